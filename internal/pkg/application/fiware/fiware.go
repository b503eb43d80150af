package fiware

import (
	"context"
	"errors"
	"time"

	fw "github.com/diwise/context-broker/pkg/datamodels/fiware"
	"github.com/diwise/context-broker/pkg/ngsild/client"
	ngsierrors "github.com/diwise/context-broker/pkg/ngsild/errors"
	"github.com/diwise/context-broker/pkg/ngsild/types"
	"github.com/diwise/context-broker/pkg/ngsild/types/entities"
	. "github.com/diwise/context-broker/pkg/ngsild/types/entities/decorators"
	"github.com/diwise/context-broker/pkg/ngsild/types/properties"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"

	"github.com/skysync/integration-flighthub/domain"
)

var tracer = otel.Tracer("integration-flighthub/fiware")

// CreateOrUpdateDevices mirrors the canonical device set into the
// context broker as NGSI-LD Device entities. Failures on one device do
// not stop the batch.
func CreateOrUpdateDevices(ctx context.Context, cbClient client.ContextBrokerClient, devices []domain.Device) error {
	var err error

	ctx, span := tracer.Start(ctx, "create-devices")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, ctx, logger := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(ctx), ctx)

	headers := map[string][]string{"Content-Type": {"application/ld+json"}}
	observedAt := time.Now().UTC().Format(time.RFC3339)

	var errs []error

	for _, device := range devices {
		deviceState := "offline"
		if device.Online {
			deviceState = "online"
		}

		decorators := []entities.EntityDecoratorFunc{
			entities.DefaultContext(),
			Text("name", device.DisplayName),
			Text("deviceState", deviceState),
			DateTime(properties.DateObserved, observedAt),
		}

		if t := device.Telemetry; t != nil {
			decorators = append(decorators,
				Location(t.Latitude, t.Longitude),
				Number("batteryLevel", t.BatteryPercent, properties.ObservedAt(observedAt)),
				Number("rssi", t.SignalQuality, properties.ObservedAt(observedAt)),
			)
		}

		entityID := fw.DeviceIDPrefix + device.ID

		var fragment types.EntityFragment
		fragment, err = entities.NewFragment(decorators...)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create entity fragment")
			errs = append(errs, err)
			continue
		}

		_, err = cbClient.MergeEntity(ctx, entityID, fragment, headers)
		if err != nil {
			if !errors.Is(err, ngsierrors.ErrNotFound) {
				logger.Error().Err(err).Msg("failed to merge entity")
			}

			var entity types.Entity
			entity, err = entities.New(entityID, fw.DeviceTypeName, decorators...)
			if err != nil {
				logger.Error().Err(err).Msg("failed to create new entity")
				errs = append(errs, err)
				continue
			}

			_, err = cbClient.CreateEntity(ctx, entity, headers)
			if err != nil {
				logger.Error().Err(err).Msg("failed to post entity to context broker")
				errs = append(errs, err)
				continue
			}

			logger.Info().Msgf("created entity %s", entityID)
		} else {
			logger.Debug().Msgf("updated entity %s", entityID)
		}
	}

	return errors.Join(errs...)
}
