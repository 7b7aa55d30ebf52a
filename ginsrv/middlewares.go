package ginsrv

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LeonPucin/dash-core/idgen"
	"github.com/LeonPucin/dash-core/logger"
)

const RequestIDHeader = "X-Request-ID"

func ErrorFormatterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest && !c.Writer.Written() {
			c.JSON(c.Writer.Status(), gin.H{
				"message": http.StatusText(c.Writer.Status()),
			})
		}
	}
}

// RequestIDMiddleware echoes the caller's X-Request-ID or assigns a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = idgen.NewUUID()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware logs every request at debug level, and server errors at
// error level.
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		}
		if id := c.GetString(RequestIDHeader); id != "" {
			fields = append(fields, logger.String("request_id", id))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			_ = log.Error("request failed", fields...)
			return
		}
		log.Debug("request served", fields...)
	}
}
