package statusapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, l *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if l != nil {
		r.Use(requestLogger(l))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/status", h.Status)

	return r
}

func requestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		uri := c.Request.RequestURI

		c.Next()

		l.Info("http_request",
			zap.String("method", method),
			zap.String("uri", uri),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
