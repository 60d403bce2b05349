package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger puts a request scoped logger in the request context. A request id
// sent by the caller (providers often send one on webhook retries) is kept
// so redeliveries can be correlated.
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		req := c.Request()
		requestID := req.Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()

		level := zerolog.InfoLevel
		if res.Status >= 500 {
			level = zerolog.WarnLevel
		}

		logger.WithLevel(level).
			Str("method", req.Method).
			Str("endpoint", c.Path()).
			Str("remote_ip", c.RealIP()).
			Int("status", res.Status).
			Int64("latency", time.Since(start).Milliseconds()).
			Msg("Request processed")

		return nil
	}
}
