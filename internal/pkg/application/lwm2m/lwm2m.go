package lwm2m

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/farshidtz/senml/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/skysync/integration-flighthub/domain"
)

var tlsSkipVerify bool

func init() {
	tlsSkipVerify = env.GetVariableOrDefault(zerolog.Logger{}, "TLS_SKIP_VERIFY", "0") == "1"
}

var tracer = otel.Tracer("integration-flighthub/lwm2m")

// LocationURN is the LWM2M location object.
const LocationURN string = "urn:oma:lwm2m:ext:3336"

// CreateAndSendAsLWM2M sends the position of every device that reported
// telemetry this cycle as a SenML location pack. Devices without
// telemetry are skipped; a send failure on one device does not stop the
// batch.
func CreateAndSendAsLWM2M(ctx context.Context, devices []domain.Device, url string, sender SenderFunc) error {
	logger := logging.GetFromContext(ctx)

	var errs []error

	now := time.Now().UTC()

	for _, d := range devices {
		if d.Telemetry == nil {
			continue
		}

		log := logger.With().Str("device_id", d.ID).Logger()

		pack := newLocationPack(d.ID, d.Telemetry, now)

		if err := sender(ctx, url, pack); err != nil {
			log.Error().Err(err).Msg("could not send pack")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func newLocationPack(id string, t *domain.Telemetry, ts time.Time) senml.Pack {
	return senml.Pack{
		senml.Record{
			BaseName:    LocationURN,
			BaseTime:    float64(ts.Unix()),
			Name:        "0",
			StringValue: id,
		},
		newRec("5514", t.Latitude, "lat", ts),
		newRec("5515", t.Longitude, "lon", ts),
		newRec("5705", t.Yaw, "deg", ts),
	}
}

func newRec(name string, v float64, u string, t time.Time) senml.Record {
	return senml.Record{
		Name:  name,
		Value: &v,
		Time:  float64(t.Unix()),
		Unit:  u,
	}
}

type SenderFunc = func(context.Context, string, senml.Pack) error

func Send(ctx context.Context, url string, pack senml.Pack) error {
	var err error

	ctx, span := tracer.Start(ctx, "send-object")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var httpClient http.Client

	if tlsSkipVerify {
		customTransport := http.DefaultTransport.(*http.Transport).Clone()
		customTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		httpClient = http.Client{
			Transport: otelhttp.NewTransport(customTransport),
		}
	} else {
		httpClient = http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	b, err := json.Marshal(pack)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(b))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/senml+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	} else if resp.StatusCode != http.StatusCreated {
		err = fmt.Errorf("unexpected response code %d", resp.StatusCode)
	}

	return err
}
