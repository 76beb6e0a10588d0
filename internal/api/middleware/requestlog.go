package middleware

import (
	"net/http"

	"mailmaster/internal/utils/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger logs one line per request through log.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Warn("%s %s %d %s ip=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.Error)
			default:
				log.Info("%s %s %d %s ip=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			}
			return nil
		},
	})
}
