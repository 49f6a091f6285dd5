// Package middleware - общие обработчики gin: журнал запросов и HTTP-метрики.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/bucket-brigade/internal/logging"
)

// TraceIDKey - ключ trace-ID в контексте gin
const TraceIDKey = "trace_id"

// TraceHeader - заголовок с trace-ID в запросе и ответе
const TraceHeader = "X-Trace-Id"

// quietRoutes опрашиваются мониторингом, их успешные ответы не логируются
var quietRoutes = map[string]bool{"/metrics": true, "/health": true}

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware поверх логгера компонента
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c)
		c.Set(TraceIDKey, traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rl.logger.Trace("[HTTP] ▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			rl.logger.Error("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		case status >= 400:
			rl.logger.Warn("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		case quietRoutes[path]:
		default:
			rl.logger.Info("[HTTP] ◀ %s %s %d %s trace=%s", method, path, status, latency, traceID)
		}
	}
}

// requestTraceID: спан OpenTelemetry, затем заголовок клиента, иначе новый UUID
func requestTraceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	if h := c.GetHeader(TraceHeader); h != "" && len(h) <= 64 {
		return h
	}
	return uuid.NewString()
}
