// Package health implements actuator-style health indicators and their
// aggregation.  An Indicator probes one dependency; a Registry runs all of
// them with a per-indicator timeout and folds the results into a Report.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status is the health state of a component or of the whole service.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN"
)

// DefaultTimeout bounds a single indicator when the registry has none set.
const DefaultTimeout = 2 * time.Second

// Health is the result of one indicator.
type Health struct {
	Status  Status         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Up returns an UP health with optional details.
func Up(details map[string]any) Health {
	return Health{Status: StatusUp, Details: details}
}

// Down returns a DOWN health and records err under the "error" detail.
func Down(err error, details map[string]any) Health {
	if details == nil {
		details = map[string]any{}
	}
	if err != nil {
		details["error"] = err.Error()
	}
	return Health{Status: StatusDown, Details: details}
}

// Indicator probes a single dependency.  Check must honour ctx.
type Indicator interface {
	Name() string
	Check(ctx context.Context) Health
}

type funcIndicator struct {
	name string
	fn   func(ctx context.Context) Health
}

func (f funcIndicator) Name() string                     { return f.name }
func (f funcIndicator) Check(ctx context.Context) Health { return f.fn(ctx) }

// Func adapts a plain function into an Indicator.
func Func(name string, fn func(ctx context.Context) Health) Indicator {
	return funcIndicator{name: name, fn: fn}
}

// Ping is always UP.  It shows the process is serving requests.
func Ping() Indicator {
	return Func("ping", func(context.Context) Health { return Up(nil) })
}

// Report is the aggregated view returned by Registry.Check.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Health `json:"components,omitempty"`
}

// HTTPStatus maps a status to the response code used by the actuator.
func (s Status) HTTPStatus() int {
	if s == StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Registry keeps indicators in registration order.  It is safe for
// concurrent Check calls once registration is finished.
type Registry struct {
	timeout    time.Duration
	indicators []Indicator
}

// NewRegistry creates an empty registry.  A non-positive timeout selects
// DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{timeout: timeout}
}

// Register adds ind.  A later indicator with the same name replaces the
// earlier one.
func (r *Registry) Register(ind Indicator) {
	for i, existing := range r.indicators {
		if existing.Name() == ind.Name() {
			r.indicators[i] = ind
			return
		}
	}
	r.indicators = append(r.indicators, ind)
}

// Names lists registered indicator names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.indicators))
	for _, ind := range r.indicators {
		names = append(names, ind.Name())
	}
	return names
}

// Check runs every indicator concurrently and aggregates the results.
func (r *Registry) Check(ctx context.Context) Report {
	results := make([]Health, len(r.indicators))
	var wg sync.WaitGroup
	for i, ind := range r.indicators {
		wg.Add(1)
		go func(i int, ind Indicator) {
			defer wg.Done()
			results[i] = r.run(ctx, ind)
		}(i, ind)
	}
	wg.Wait()

	rep := Report{Components: make(map[string]Health, len(results))}
	statuses := make([]Status, 0, len(results))
	for i, ind := range r.indicators {
		rep.Components[ind.Name()] = results[i]
		statuses = append(statuses, results[i].Status)
	}
	rep.Status = Aggregate(statuses...)
	return rep
}

// CheckOne runs the named indicator.  ok is false if it is not registered.
func (r *Registry) CheckOne(ctx context.Context, name string) (h Health, ok bool) {
	for _, ind := range r.indicators {
		if ind.Name() == name {
			return r.run(ctx, ind), true
		}
	}
	return Health{}, false
}

// run bounds ind by the registry timeout even if ind ignores its context.
func (r *Registry) run(ctx context.Context, ind Indicator) Health {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan Health, 1)
	go func() { ch <- ind.Check(ctx) }()

	select {
	case h := <-ch:
		if h.Status == "" {
			h.Status = StatusUnknown
		}
		return h
	case <-ctx.Done():
		return Down(fmt.Errorf("%s check: %w", ind.Name(), ctx.Err()), nil)
	}
}

// Aggregate folds component statuses: DOWN beats UP, UP beats UNKNOWN.
// No statuses at all is UNKNOWN.
func Aggregate(statuses ...Status) Status {
	out := StatusUnknown
	for _, s := range statuses {
		switch s {
		case StatusDown:
			return StatusDown
		case StatusUp:
			out = StatusUp
		}
	}
	return out
}
