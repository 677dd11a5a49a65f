package http

import (
	"net/http"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handler exposes AccountService over HTTP. Every endpoint decodes a flat
// form of string-valued request arguments and delegates to the service.
type Handler struct {
	service domain.AccountService
	errors  *ErrorHandler
}

func NewHandler(service domain.AccountService, errors *ErrorHandler) *Handler {
	return &Handler{service: service, errors: errors}
}

func (h *Handler) Authorize(c *gin.Context) {
	args, err := bindArgs(c)
	if err != nil {
		h.errors.HandleError(c, err)
		return
	}
	resp, err := h.service.Authorize(c.Request.Context(), args, envOf(c))
	if err != nil {
		h.errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) AttachAccount(c *gin.Context) {
	args, err := bindArgs(c)
	if err != nil {
		h.errors.HandleError(c, err)
		return
	}
	resp, err := h.service.AttachAccount(c.Request.Context(), args, envOf(c))
	if err != nil {
		h.errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ResolveConflict(c *gin.Context) {
	args, err := bindArgs(c)
	if err != nil {
		h.errors.HandleError(c, err)
		return
	}
	resp, err := h.service.ResolveConflict(c.Request.Context(), args, envOf(c))
	if err != nil {
		h.errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindArgs flattens form and query values into domain.RequestArgs; every
// endpoint in the external interface is string-valued.
func bindArgs(c *gin.Context) (domain.RequestArgs, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, domain.NewAuthenticationError(http.StatusBadRequest, domain.ResultMissingArgument, map[string]interface{}{"error": "malformed request body"})
	}
	args := make(domain.RequestArgs, len(c.Request.Form))
	for key := range c.Request.Form {
		args[key] = c.Request.Form.Get(key)
	}
	return args, nil
}

func envOf(c *gin.Context) domain.RequestEnv {
	return domain.RequestEnv{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
