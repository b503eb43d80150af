package normalize

import (
	"context"
	"encoding/json"

	"github.com/skysync/integration-flighthub/domain"
)

// backendElements collects the flat device records of a backend-list
// response: a bare array, a data array, docks/drones arrays or singular
// dock/drone objects.
func backendElements(raw any) ([]map[string]any, bool) {
	appendAll := func(dst []map[string]any, v any) ([]map[string]any, bool) {
		if arr, ok := asArray(v); ok {
			for _, e := range arr {
				obj, ok := asObject(e)
				if !ok {
					return nil, false
				}
				dst = append(dst, obj)
			}
			return dst, true
		}
		if obj, ok := asObject(v); ok {
			return append(dst, obj), true
		}
		return nil, false
	}

	if arr, ok := asArray(raw); ok {
		return appendAll(nil, arr)
	}

	obj, ok := asObject(raw)
	if !ok {
		return nil, false
	}

	if _, ok := asArray(obj["data"]); ok {
		return appendAll(nil, obj["data"])
	}

	var elems []map[string]any
	found := false
	for _, k := range []string{"docks", "drones", "dock", "drone"} {
		v, ok := obj[k]
		if !ok {
			continue
		}
		elems, ok = appendAll(elems, v)
		if !ok {
			return nil, false
		}
		found = true
	}

	return elems, found
}

// matchBackendList requires every element to carry a serial field and at
// least one of latitude/longitude.
func matchBackendList(raw any) bool {
	elems, ok := backendElements(raw)
	if !ok || len(elems) == 0 {
		return false
	}

	for _, e := range elems {
		if !hasAnyKey(e, serialKeys...) {
			return false
		}
		if !hasAnyKey(e, latitudeKeys...) && !hasAnyKey(e, longitudeKeys...) {
			return false
		}
	}

	return true
}

// hasDroneFields is the structural check separating drones from docks in
// the flat backend shape: only drones report attitude, speeds or a live
// video block.
func hasDroneFields(e map[string]any) bool {
	return hasAnyKey(e, yawKeys...) ||
		hasAnyKey(e, pitchKeys...) ||
		hasAnyKey(e, rollKeys...) ||
		hasAnyKey(e, hSpeedKeys...) ||
		hasAnyKey(e, vSpeedKeys...) ||
		hasKey(e, "live")
}

func mapBackendList(_ context.Context, raw any) []domain.Device {
	elems, _ := backendElements(raw)
	devices := make([]domain.Device, 0, len(elems))

	for _, e := range elems {
		id, ok := firstString(e, serialKeys...)
		if !ok {
			continue
		}

		model := "DJI Dock"
		dom := domain.DomainDock
		if hasDroneFields(e) {
			model = "DJI Drone"
			dom = domain.DomainDrone
		}

		name, ok := displayName(e)
		if !ok {
			name = id
		}

		// battery, signal and flight time are not part of this shape
		t := &domain.Telemetry{
			Latitude:        firstNumber(e, latitudeKeys...),
			Longitude:       firstNumber(e, longitudeKeys...),
			Height:          firstNumber(e, heightKeys...),
			HorizontalSpeed: firstNumber(e, hSpeedKeys...),
			VerticalSpeed:   firstNumber(e, vSpeedKeys...),
			Yaw:             firstNumber(e, yawKeys...),
			Pitch:           firstNumber(e, pitchKeys...),
			Roll:            firstNumber(e, rollKeys...),
		}

		if live, ok := asObject(e["live"]); ok {
			capable := truthy(live["capable"])
			active := truthy(live["active"])
			t.LiveCapable = &capable
			t.LiveActive = &active
		}

		rawBytes, _ := json.Marshal(e)

		devices = append(devices, domain.Device{
			ID:          id,
			DisplayName: name,
			Model:       model,
			Online:      resolveOnline(e),
			Domain:      dom,
			Telemetry:   t,
			Raw:         rawBytes,
		})
	}

	return devices
}
