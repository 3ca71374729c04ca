package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/murmurapp/murmur-server/internal/events"
)

// Component health states, from best to worst.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports whether the record store answers reads and the event broker is connected",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse is the overall status and one entry per checked component.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Worst component status"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{"store": s.checkStore(ctx)}
	if reporter, ok := s.services.Events.(events.HealthReporter); ok {
		components["events"] = checkEvents(reporter)
	}

	overall := statusHealthy
	for _, c := range components {
		if rank(c.Status) > rank(overall) {
			overall = c.Status
		}
	}

	return &HealthOutput{Body: HealthResponse{Status: overall, Components: components}}, nil
}

func rank(status string) int {
	switch status {
	case statusHealthy:
		return 0
	case statusDegraded:
		return 1
	default:
		return 2
	}
}

// checkStore counts users to verify the record store answers reads.
func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "store not configured"}
	}

	start := time.Now()
	_, err := s.store.Users().Count(ctx, nil)
	latency := time.Since(start).String()
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency, Message: "store read failed"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency}
}

// checkEvents reports a lost broker connection as degraded: actions still
// succeed, only their notifications are dropped.
func checkEvents(r events.HealthReporter) ComponentHealth {
	if !r.Connected() {
		return ComponentHealth{Status: statusDegraded, Message: "event broker disconnected"}
	}
	return ComponentHealth{Status: statusHealthy}
}
