package normalize

import (
	"context"
	"encoding/json"

	"github.com/skysync/integration-flighthub/domain"
)

// topologyNodes extracts the entry list of a topology response: the
// response itself, its data array, or a list nested under data.
func topologyNodes(raw any) []map[string]any {
	collect := func(v any) []map[string]any {
		arr, ok := asArray(v)
		if !ok {
			return nil
		}
		var nodes []map[string]any
		for _, e := range arr {
			if obj, ok := asObject(e); ok {
				nodes = append(nodes, obj)
			}
		}
		return nodes
	}

	if nodes := collect(raw); nodes != nil {
		return nodes
	}

	obj, ok := asObject(raw)
	if !ok {
		return nil
	}

	if nodes := collect(obj["data"]); nodes != nil {
		return nodes
	}
	if data, ok := asObject(obj["data"]); ok {
		if nodes := collect(data["list"]); nodes != nil {
			return nodes
		}
	}
	return collect(obj["list"])
}

// domainOf reads the upstream domain enum from a node or its model
// descriptor.
func domainOf(obj map[string]any) domain.DomainClass {
	if v, ok := obj["domain"]; ok {
		if f, ok := numberOf(v); ok {
			return domain.DomainClass(int(f))
		}
	}
	if m, ok := asObject(obj["device_model"]); ok {
		if f, ok := numberOf(m["domain"]); ok {
			return domain.DomainClass(int(f))
		}
	}
	return domain.DomainUnknown
}

// matchTopologyPair looks for an entry whose parents include an
// airport-class device or whose host is a drone-class device.
func matchTopologyPair(raw any) bool {
	for _, n := range topologyNodes(raw) {
		if parents, ok := asArray(n["parents"]); ok {
			for _, p := range parents {
				if po, ok := asObject(p); ok && domainOf(po) == domain.DomainDock {
					return true
				}
			}
		}
		if host, ok := asObject(n["host"]); ok && domainOf(host) == domain.DomainDrone {
			return true
		}
	}
	return false
}

// liveFlags are derived from the dock of a topology entry and shared by
// both devices of the pair.
type liveFlags struct {
	capable bool
	active  bool
}

func dockLiveFlags(dock map[string]any) *liveFlags {
	if dock == nil {
		return nil
	}

	flags := &liveFlags{}
	state, _ := asObject(dock["device_state"])
	if state == nil {
		state = dock
	}

	if capacity, ok := asObject(state["live_capacity"]); ok {
		flags.capable = firstNumber(capacity, "available_video_number") > 0
	}
	if status, ok := asArray(state["live_status"]); ok {
		flags.active = len(status) > 0
	}

	return flags
}

func mapTopologyPair(_ context.Context, raw any) []domain.Device {
	var devices []domain.Device

	for _, n := range topologyNodes(raw) {
		var dock map[string]any
		if parents, ok := asArray(n["parents"]); ok {
			for _, p := range parents {
				if po, ok := asObject(p); ok && domainOf(po) == domain.DomainDock {
					dock = po
					break
				}
			}
		}

		live := dockLiveFlags(dock)

		if dock != nil {
			devices = append(devices, mapTopologyDevice(dock, domain.DomainDock, "DJI Dock", live))
		}
		if host, ok := asObject(n["host"]); ok {
			devices = append(devices, mapTopologyDevice(host, domain.DomainDrone, "DJI Drone", live))
		}
	}

	return devices
}

func mapTopologyDevice(node map[string]any, dom domain.DomainClass, defaultModel string, live *liveFlags) domain.Device {
	id := resolveID(node)

	model := defaultModel
	for _, k := range modelKeys {
		if v, ok := node[k]; ok {
			if s := modelLabel(v, ""); s != "" {
				model = s
				break
			}
		}
	}

	name, ok := displayName(node)
	if !ok {
		name = fallbackName(model, id)
	}

	d := domain.Device{
		ID:          id,
		DisplayName: name,
		Model:       model,
		Online:      resolveOnline(node),
		Domain:      dom,
	}

	state, hasState := asObject(node["device_state"])
	if hasState && (hasAnyKey(state, latitudeKeys...) || hasAnyKey(state, longitudeKeys...)) {
		t := &domain.Telemetry{
			Latitude:        firstNumber(state, latitudeKeys...),
			Longitude:       firstNumber(state, longitudeKeys...),
			Height:          firstNumber(state, heightKeys...),
			HorizontalSpeed: firstNumber(state, hSpeedKeys...),
			VerticalSpeed:   firstNumber(state, vSpeedKeys...),
			BatteryPercent:  resolveBattery(state),
			SignalQuality:   resolveSignal(state),
			FlightTime:      firstNumber(state, flightTimeKeys...),
			Yaw:             firstNumber(state, yawKeys...),
			Pitch:           firstNumber(state, pitchKeys...),
			Roll:            firstNumber(state, rollKeys...),
		}
		if live != nil {
			capable, active := live.capable, live.active
			t.LiveCapable = &capable
			t.LiveActive = &active
		}
		d.Telemetry = t
	}

	d.Raw, _ = json.Marshal(node)

	return d
}

// resolveBattery prefers the nested battery object (first entry of its
// battery list, then its own percent field) before falling back to
// top-level percent fields.
func resolveBattery(source map[string]any) float64 {
	if b, ok := asObject(source["battery"]); ok {
		if list, ok := asArray(b["batteries"]); ok && len(list) > 0 {
			if entry, ok := asObject(list[0]); ok {
				if f, ok := numberOf(entry["capacity_percent"]); ok {
					return f
				}
			}
		}
		if f, ok := numberOf(b["capacity_percent"]); ok {
			return f
		}
	}
	if f, ok := numberOf(source["battery"]); ok {
		return f
	}
	return firstNumber(source, batteryKeys...)
}

// resolveSignal reads the wireless link quality, nested or flat.
func resolveSignal(source map[string]any) float64 {
	if link, ok := asObject(source["wireless_link"]); ok {
		if f, ok := numberOf(link["quality"]); ok {
			return f
		}
	}
	return firstNumber(source, signalKeys...)
}
