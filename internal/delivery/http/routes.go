package http

import "github.com/gin-gonic/gin"

// SetupRoutes mounts the three account endpoints plus a liveness probe.
func SetupRoutes(router *gin.Engine, handler *Handler, errors *ErrorHandler) {
	router.Use(errors.RequestIDMiddleware(), errors.RecoveryMiddleware(), errors.LoggingMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/account")
	api.POST("/authorize", handler.Authorize)
	api.POST("/attach_account", handler.AttachAccount)
	api.POST("/resolve_conflict", handler.ResolveConflict)
}
