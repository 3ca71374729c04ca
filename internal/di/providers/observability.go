package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/murmurapp/murmur-server/internal/config"
	"github.com/murmurapp/murmur-server/internal/events"
	"github.com/murmurapp/murmur-server/internal/logger"
	"github.com/murmurapp/murmur-server/internal/telemetry"
)

// TelemetryHandle wraps the tracer provider with shutdown capability.
type TelemetryHandle struct {
	*telemetry.Provider
}

// Shutdown implements do.Shutdownable. Pending spans are flushed first.
func (h *TelemetryHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Provider.Shutdown(ctx)
}

// ProvideTelemetry installs the global tracer provider. Without an OTLP
// endpoint spans are still created but never exported.
func ProvideTelemetry(i do.Injector) (*TelemetryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	tp, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		return nil, err
	}

	if tp.Exporting() {
		log.Info("Trace export enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	} else {
		log.Info("Trace export disabled - no OTLP endpoint configured")
	}
	return &TelemetryHandle{Provider: tp}, nil
}

// PublisherHandle wraps the interaction event publisher with shutdown capability.
type PublisherHandle struct {
	events.Publisher
}

// Shutdown implements do.Shutdownable.
func (h *PublisherHandle) Shutdown() error {
	return h.Close()
}

// ProvidePublisher connects to NATS when a URL is configured and discards
// events otherwise.
func ProvidePublisher(i do.Injector) (*PublisherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Events.NATSURL == "" {
		log.Info("Event publishing disabled - no NATS URL configured")
		return &PublisherHandle{Publisher: events.NoopPublisher{}}, nil
	}

	pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, log.WithComponent("events"))
	if err != nil {
		return nil, err
	}

	log.Info("Event publishing enabled", "subject_prefix", cfg.Events.SubjectPrefix)
	return &PublisherHandle{Publisher: pub}, nil
}
