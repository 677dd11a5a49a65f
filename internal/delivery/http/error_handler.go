package http

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorHandler maps the two domain error families onto HTTP responses.
type ErrorHandler struct {
	logger *zap.Logger
}

func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// ErrorResponse is the wire shape for every non-2xx response, including the
// 300/409 conflict outcomes that carry an actionable payload.
type ErrorResponse struct {
	ResultID  string                 `json:"result_id"`
	RequestID string                 `json:"request_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	requestID := requestIDOf(c)

	var authErr *domain.AuthenticationError
	if errors.As(err, &authErr) {
		h.logAuthError(c, requestID, authErr)
		c.JSON(authErr.Code, ErrorResponse{ResultID: authErr.ResultID, RequestID: requestID, Fields: authErr.Fields})
		return
	}

	var accountErr *domain.AccountError
	if errors.As(err, &accountErr) {
		h.logger.Error("account store failure",
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
			zap.Error(accountErr),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{ResultID: domain.ResultInternalError, RequestID: requestID})
		return
	}

	h.logger.Error("unclassified error",
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{ResultID: domain.ResultInternalError, RequestID: requestID})
}

func (h *ErrorHandler) HandlePanic(c *gin.Context, r interface{}) {
	requestID := requestIDOf(c)

	stack := make([]byte, 4096)
	length := runtime.Stack(stack, false)
	h.logger.Error("panic recovered",
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.Any("panic", r),
		zap.String("stack", string(stack[:length])),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{ResultID: domain.ResultInternalError, RequestID: requestID})
}

func (h *ErrorHandler) logAuthError(c *gin.Context, requestID string, authErr *domain.AuthenticationError) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.String("result_id", authErr.ResultID),
		zap.Int("code", authErr.Code),
	}
	switch {
	case authErr.Code >= 500:
		h.logger.Error("authentication error", fields...)
	case authErr.Code == 300 || authErr.Code == 409:
		h.logger.Info("authentication conflict outcome", fields...)
	default:
		h.logger.Warn("authentication error", fields...)
	}
}

func requestIDOf(c *gin.Context) string {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Set("request_id", requestID)
	}
	return requestID
}

// RecoveryMiddleware recovers panics and routes them through HandlePanic.
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				h.HandlePanic(c, r)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RequestIDMiddleware assigns or propagates X-Request-ID.
func (h *ErrorHandler) RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs request start/completion with structured fields.
func (h *ErrorHandler) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString("request_id")

		c.Next()

		h.logger.Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("duration", time.Since(start).String()),
		)
	}
}
