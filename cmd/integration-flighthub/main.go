package main

import (
	"context"
	"time"

	"github.com/diwise/context-broker/pkg/ngsild/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/go-chi/chi"

	"github.com/skysync/integration-flighthub/domain"
	"github.com/skysync/integration-flighthub/internal/pkg/application"
	"github.com/skysync/integration-flighthub/internal/pkg/application/fiware"
	"github.com/skysync/integration-flighthub/internal/pkg/application/livechannel"
	"github.com/skysync/integration-flighthub/internal/pkg/application/lwm2m"
	"github.com/skysync/integration-flighthub/internal/pkg/application/normalize"
	"github.com/skysync/integration-flighthub/internal/pkg/infrastructure/router"
)

const serviceName string = "integration-flighthub"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion)
	defer cleanup()

	baseURL := env.GetVariableOrDie(logger, "FLIGHTHUB_BASEURL", "flighthub base url")
	orgKey := env.GetVariableOrDie(logger, "FLIGHTHUB_ORG_KEY", "flighthub organization key")
	projectID := env.GetVariableOrDie(logger, "FLIGHTHUB_PROJECT_UUID", "flighthub project uuid")

	apiURL := env.GetVariableOrDefault(logger, "FLIGHTHUB_API_URL", baseURL+"/openapi/v0.1/workflow")
	userToken := env.GetVariableOrDefault(logger, "FLIGHTHUB_USER_TOKEN", orgKey)
	workflowID := env.GetVariableOrDefault(logger, "FLIGHTHUB_WORKFLOW_UUID", "")
	creatorID := env.GetVariableOrDefault(logger, "FLIGHTHUB_CREATOR_ID", "")
	liveURL := env.GetVariableOrDefault(logger, "FLIGHTHUB_WS_URL", "")
	brokerURL := env.GetVariableOrDefault(logger, "CONTEXT_BROKER_URL", "")
	lwm2mURL := env.GetVariableOrDefault(logger, "LWM2M_ENDPOINT_URL", "")
	mapboxToken := env.GetVariableOrDefault(logger, "MAPBOX_PUBLIC_TOKEN", "")
	servicePort := env.GetVariableOrDefault(logger, "SERVICE_PORT", "8080")

	pollInterval, err := time.ParseDuration(env.GetVariableOrDefault(logger, "POLL_INTERVAL", "2s"))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid poll interval")
	}

	app := application.New(baseURL, apiURL, orgKey, userToken, projectID, workflowID, creatorID)
	devices := normalize.NewDeviceSet()
	hub := router.NewHub(logger)

	exports := []application.ExportFunc{}
	if brokerURL != "" {
		cbClient := client.NewContextBrokerClient(brokerURL)
		exports = append(exports, func(ctx context.Context, d []domain.Device) error {
			return fiware.CreateOrUpdateDevices(ctx, cbClient, d)
		})
	}
	if lwm2mURL != "" {
		exports = append(exports, func(ctx context.Context, d []domain.Device) error {
			return lwm2m.CreateAndSendAsLWM2M(ctx, d, lwm2mURL, lwm2m.Send)
		})
	}

	poller := application.NewPoller(app, devices, hub, pollInterval, exports...)
	go poller.Start(ctx)

	if liveURL != "" {
		channel := livechannel.New(liveURL, livechannel.Handler{
			OnSnapshot: func(d []domain.Device) {
				devices.ApplySnapshot(d)
				hub.Broadcast(map[string]any{"type": "snapshot", "devices": d})
			},
			OnUpdate: func(d []domain.Device) {
				devices.ApplyUpdate(d)
				hub.Broadcast(map[string]any{"type": "telemetry_update", "devices": d})
			},
		}, logger)
		channel.Connect(ctx)
		defer channel.Close()
	}

	cfg := router.PublicConfig{
		MapboxPublicToken: mapboxToken,
		AppSettings: router.AppSettings{
			APIURL:       apiURL,
			UserToken:    userToken,
			ProjectUUID:  projectID,
			WorkflowUUID: workflowID,
			CreatorID:    creatorID,
		},
	}

	api := router.SetupRouter(chi.NewRouter(), logger, app, devices, hub, cfg)

	err = api.Start(servicePort)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start router")
	}
}
