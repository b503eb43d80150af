package normalize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"

	"github.com/skysync/integration-flighthub/domain"
)

// mapLegacyTree is the fallback mapper: it scans the whole response for
// device-like nodes and maps each one best-effort. A failure on one
// candidate is logged with the offending node and never aborts the batch.
func mapLegacyTree(ctx context.Context, raw any) []domain.Device {
	log := logging.GetFromContext(ctx)

	candidates := Scan(raw)
	devices := make([]domain.Device, 0, len(candidates))

	for _, c := range candidates {
		d, err := mapLegacyCandidate(c)
		if err != nil {
			if b, merr := json.Marshal(c); merr == nil {
				log.Error().Err(err).RawJSON("node", b).Msg("skipping device candidate")
			} else {
				log.Error().Err(err).Msg("skipping device candidate")
			}
			continue
		}
		devices = append(devices, d)
	}

	return devices
}

// resolveID tries serial fields, child serials, uuids and generic id
// fields in that order. A device without any of them still surfaces,
// under a clearly marked placeholder, so operators can investigate it
// via the retained raw payload.
func resolveID(obj map[string]any) string {
	for _, keys := range [][]string{serialKeys, childSerialKeys, uuidKeys, fallbackIDKeys} {
		if s, ok := firstString(obj, keys...); ok {
			return s
		}
	}
	return "UNKNOWN-" + uuid.NewString()
}

// resolveOnline applies the tri-state truthy rule to the first present
// online-status field; absent means offline.
func resolveOnline(obj map[string]any) bool {
	for _, k := range onlineKeys {
		if v, ok := obj[k]; ok {
			return truthy(v)
		}
	}
	return false
}

func resolveModel(obj map[string]any) string {
	for _, k := range modelKeys {
		if v, ok := obj[k]; ok {
			if s := modelLabel(v, ""); s != "" {
				return s
			}
		}
	}
	return GenericModel
}

func fallbackName(model, id string) string {
	prefix := id
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return fmt.Sprintf("%s (%s)", model, prefix)
}

func mapLegacyCandidate(obj map[string]any) (domain.Device, error) {
	if obj == nil {
		return domain.Device{}, fmt.Errorf("candidate node is nil")
	}

	rawBytes, err := json.Marshal(obj)
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to retain raw node: %s", err.Error())
	}

	id := resolveID(obj)
	online := resolveOnline(obj)
	model := resolveModel(obj)

	name, ok := displayName(obj)
	if !ok {
		name = fallbackName(model, id)
	}

	d := domain.Device{
		ID:          id,
		DisplayName: name,
		Model:       model,
		Online:      online,
		Domain:      domainOf(obj),
		Raw:         rawBytes,
	}

	if source, ok := telemetrySource(obj, online); ok {
		d.Telemetry = &domain.Telemetry{
			Latitude:        firstNumber(source, latitudeKeys...),
			Longitude:       firstNumber(source, longitudeKeys...),
			Height:          firstNumber(source, heightKeys...),
			HorizontalSpeed: firstNumber(source, hSpeedKeys...),
			VerticalSpeed:   firstNumber(source, vSpeedKeys...),
			BatteryPercent:  resolveBattery(source),
			SignalQuality:   resolveSignal(source),
			FlightTime:      firstNumber(source, flightTimeKeys...),
			Yaw:             firstNumber(source, yawKeys...),
			Pitch:           firstNumber(source, pitchKeys...),
			Roll:            firstNumber(source, rollKeys...),
		}
	}

	return d, nil
}

// telemetrySource selects where telemetry is read from: online devices
// prefer their nested state object, offline devices an explicit offline
// position (only when it actually carries a latitude), with the state
// object or the node itself as fallbacks. Returns false when no source
// carries a position at all, in which case telemetry is omitted rather
// than fabricated at (0,0).
func telemetrySource(obj map[string]any, online bool) (map[string]any, bool) {
	source := obj
	for _, k := range stateKeys {
		if state, ok := asObject(obj[k]); ok {
			source = state
			break
		}
	}

	if !online {
		if off, ok := asObject(obj["device_offline_position"]); ok && hasAnyKey(off, latitudeKeys...) {
			source = off
		}
	}

	if !hasAnyKey(source, latitudeKeys...) && !hasAnyKey(source, longitudeKeys...) {
		return nil, false
	}

	return source, true
}
