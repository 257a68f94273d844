package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hello-actuator/internal/handler"
)

// RegisterRoutes binds GET /hello to the greeting handler.  Optional
// middleware such as rate limiting or caching wraps only this route.  Echo
// answers other paths with 404 and other methods on /hello with 405.
func RegisterRoutes(e *echo.Echo, m ...echo.MiddlewareFunc) {
	e.GET("/hello", handler.Greeting, m...)
}

// RegisterActuator registers the operational endpoints under /actuator.
func RegisterActuator(e *echo.Echo, a *handler.ActuatorHandler) {
	g := e.Group("/actuator")
	// Links document listing the endpoints below
	g.GET("", a.Links)
	// Aggregated health; 503 when any component is DOWN
	g.GET("/health", a.Health)
	// Health of a single component such as db, redis or rabbit
	g.GET("/health/:component", a.HealthComponent)
	// Application and build metadata
	g.GET("/info", a.Info)
}
