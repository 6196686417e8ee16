package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
)

// NoRouteHandler responds to unmatched paths with the standard error envelope
// instead of gin's plain-text 404.
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dto.HandleErrorCode(c, dto.ErrorCodeNotFound, "route not found")
	}
}

// NoMethodHandler responds to known paths hit with the wrong method.
// Requires engine.HandleMethodNotAllowed to be enabled.
func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dto.HandleErrorCode(c, dto.ErrorCodeMethodNotAllowed, "method not allowed for this route")
	}
}
