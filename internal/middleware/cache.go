package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NoStore marks responses as uncacheable. Attempt state changes on every
// write and carries a live timer.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// CacheControl lets clients and proxies reuse a response for maxAge.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	value := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
