package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPMetrics lo implementa metrics.Prometheus.
type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// StreamMetrics suscriptores activos del feed SSE.
type StreamMetrics interface {
	StreamOpened()
	StreamClosed()
}

type nopMetrics struct{}

func (nopMetrics) ObserveHTTP(string, string, int, time.Duration) {}
func (nopMetrics) StreamOpened()                                  {}
func (nopMetrics) StreamClosed()                                  {}

// MetricsMiddleware registra latencia y status por patrón de ruta.
func MetricsMiddleware(m HTTPMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Method(), route, status, time.Since(start))
		return err
	}
}
