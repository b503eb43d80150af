package application

import (
	"context"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"

	"github.com/skysync/integration-flighthub/domain"
	"github.com/skysync/integration-flighthub/internal/pkg/application/normalize"
)

// Broadcaster fans a message out to connected telemetry consumers.
type Broadcaster interface {
	Broadcast(v any)
}

// ExportFunc forwards a normalized device batch to an external
// collaborator after each successful poll.
type ExportFunc func(ctx context.Context, devices []domain.Device) error

// Poller fetches the topology at a fixed interval and feeds the shared
// device set. Fetches run synchronously within the loop, so a new tick
// never starts while the previous fetch is still in flight.
type Poller struct {
	app      FlightHub
	devices  *normalize.DeviceSet
	hub      Broadcaster
	interval time.Duration
	exports  []ExportFunc
}

func NewPoller(app FlightHub, devices *normalize.DeviceSet, hub Broadcaster, interval time.Duration, exports ...ExportFunc) *Poller {
	return &Poller{
		app:      app,
		devices:  devices,
		hub:      hub,
		interval: interval,
		exports:  exports,
	}
}

// Start polls until the context is cancelled. Failures never stop the
// loop; they surface as error packets on the hub and in the log.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	result := p.app.GetTopology(ctx)
	if result.Code != 0 {
		log.Error().Str("reason", result.Message).Msg("topology poll failed")
		if p.hub != nil {
			p.hub.Broadcast(map[string]any{"type": "error", "message": result.Message})
		}
		return
	}

	p.devices.ApplyUpdate(result.Data)

	if p.hub != nil && len(result.Data) > 0 {
		p.hub.Broadcast(map[string]any{"type": "telemetry_update", "devices": result.Data})
	}

	for _, export := range p.exports {
		if err := export(ctx, result.Data); err != nil {
			log.Error().Err(err).Msg("device export failed")
		}
	}
}
