package lwm2m

import (
	"context"
	"errors"
	"testing"

	"github.com/farshidtz/senml/v2"
	"github.com/matryer/is"

	"github.com/skysync/integration-flighthub/domain"
)

func TestThatOnlyDevicesWithTelemetryAreSent(t *testing.T) {
	is := is.New(t)

	var sent []senml.Pack
	sender := func(ctx context.Context, url string, p senml.Pack) error {
		sent = append(sent, p)
		return nil
	}

	devices := []domain.Device{
		{ID: "NOPOS"},
		{ID: "DRONE-1", Telemetry: &domain.Telemetry{Latitude: 57.7, Longitude: 11.9, Yaw: 90}},
	}

	err := CreateAndSendAsLWM2M(context.Background(), devices, "http://localhost", sender)
	is.NoErr(err)

	is.Equal(len(sent), 1)
	is.Equal(sent[0][0].BaseName, LocationURN)
	is.Equal(sent[0][0].StringValue, "DRONE-1")
	is.Equal(*sent[0][1].Value, 57.7)
	is.Equal(*sent[0][2].Value, 11.9)
	is.Equal(*sent[0][3].Value, float64(90))
}

func TestThatSendFailuresDoNotStopTheBatch(t *testing.T) {
	is := is.New(t)

	attempts := 0
	sender := func(ctx context.Context, url string, p senml.Pack) error {
		attempts++
		return errors.New("connection refused")
	}

	devices := []domain.Device{
		{ID: "A", Telemetry: &domain.Telemetry{Latitude: 1, Longitude: 2}},
		{ID: "B", Telemetry: &domain.Telemetry{Latitude: 3, Longitude: 4}},
	}

	err := CreateAndSendAsLWM2M(context.Background(), devices, "http://localhost", sender)

	is.True(err != nil)
	is.Equal(attempts, 2)
}
