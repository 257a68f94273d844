package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hello-actuator/internal/buildinfo"
	"github.com/iliyamo/hello-actuator/internal/health"
)

// AppInfo is the static application section of /actuator/info.
type AppInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// ActuatorHandler serves the /actuator endpoints.
type ActuatorHandler struct {
	Registry    *health.Registry // Registry runs the health indicators
	App         AppInfo          // App is reported by Info
	ShowDetails bool             // ShowDetails includes per-component health
}

// NewActuatorHandler constructs an ActuatorHandler and panics if the registry is nil.
func NewActuatorHandler(reg *health.Registry, app AppInfo, showDetails bool) *ActuatorHandler {
	if reg == nil {
		panic("nil registry passed to NewActuatorHandler")
	}
	if app.Version == "" {
		app.Version = buildinfo.Version
	}
	return &ActuatorHandler{Registry: reg, App: app, ShowDetails: showDetails}
}

type link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

// Links lists the available actuator endpoints as absolute URLs built from
// the request's scheme and host.
func (a *ActuatorHandler) Links(c echo.Context) error {
	base := c.Scheme() + "://" + c.Request().Host + "/actuator"
	return c.JSON(http.StatusOK, map[string]any{
		"_links": map[string]link{
			"self":        {Href: base},
			"health":      {Href: base + "/health"},
			"health-path": {Href: base + "/health/{*path}", Templated: true},
			"info":        {Href: base + "/info"},
		},
	})
}

// Health aggregates every indicator.  DOWN maps to 503, anything else to 200.
func (a *ActuatorHandler) Health(c echo.Context) error {
	rep := a.Registry.Check(c.Request().Context())
	if !a.ShowDetails {
		rep.Components = nil
	}
	return c.JSON(rep.Status.HTTPStatus(), rep)
}

// HealthComponent reports a single indicator by name.
func (a *ActuatorHandler) HealthComponent(c echo.Context) error {
	name := c.Param("component")
	h, ok := a.Registry.CheckOne(c.Request().Context(), name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown health component: "+name)
	}
	if !a.ShowDetails {
		h.Details = nil
	}
	return c.JSON(h.Status.HTTPStatus(), h)
}

// Info reports application metadata and link-time build values.
func (a *ActuatorHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"app": a.App,
		"build": map[string]string{
			"version": buildinfo.Version,
			"commit":  buildinfo.Commit,
			"time":    buildinfo.Date,
		},
	})
}
