package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/skysync/integration-flighthub/domain"
)

// MapLive maps one device object from a live-channel message. The field
// families are the same ones the legacy mapper uses, but the shape is
// flat: all fields sit at the top level, never inside a state object.
func MapLive(raw any) (domain.Device, error) {
	obj, ok := asObject(raw)
	if !ok {
		return domain.Device{}, fmt.Errorf("live device payload is not an object")
	}

	id := resolveID(obj)
	model := resolveModel(obj)

	name, ok := displayName(obj)
	if !ok {
		name = fallbackName(model, id)
	}

	d := domain.Device{
		ID:          id,
		DisplayName: name,
		Model:       model,
		Online:      resolveOnline(obj),
		Domain:      domainOf(obj),
	}

	if hasAnyKey(obj, latitudeKeys...) || hasAnyKey(obj, longitudeKeys...) {
		d.Telemetry = &domain.Telemetry{
			Latitude:        firstNumber(obj, latitudeKeys...),
			Longitude:       firstNumber(obj, longitudeKeys...),
			Height:          firstNumber(obj, heightKeys...),
			HorizontalSpeed: firstNumber(obj, hSpeedKeys...),
			VerticalSpeed:   firstNumber(obj, vSpeedKeys...),
			BatteryPercent:  resolveBattery(obj),
			SignalQuality:   resolveSignal(obj),
			FlightTime:      firstNumber(obj, flightTimeKeys...),
			Yaw:             firstNumber(obj, yawKeys...),
			Pitch:           firstNumber(obj, pitchKeys...),
			Roll:            firstNumber(obj, rollKeys...),
		}
	}

	d.Raw, _ = json.Marshal(obj)

	return d, nil
}
