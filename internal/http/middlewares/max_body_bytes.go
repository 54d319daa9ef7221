package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps speech request bodies. A declared Content-Length over the
// limit is refused before the handler runs; chunked bodies are cut off by the
// reader and surface as *http.MaxBytesError during binding.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > max {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": gin.H{
					"code":      "payload_too_large",
					"message":   "Request body too large.",
					"requestId": ctx.GetString(CtxRequestID),
					"details":   gin.H{"limit": max},
				},
			})
			return
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)

		ctx.Next()
	}
}
