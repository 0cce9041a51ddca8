package device

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey struct{}

// WithInfo stores the device in ctx.
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// FromContext returns the device stored in ctx, or an empty Info.
func FromContext(ctx context.Context) Info {
	info, _ := ctx.Value(contextKey{}).(Info)
	return info
}

// Middleware detects the device of every request and stores it in the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := Detect(c.GetHeader("User-Agent"), c.ClientIP())
		c.Request = c.Request.WithContext(WithInfo(c.Request.Context(), info))
		c.Next()
	}
}
