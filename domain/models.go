package domain

import "encoding/json"

// DomainClass labels the role a device plays in the fleet. The values
// match the upstream enum so they can be compared against raw payloads.
type DomainClass int

const (
	DomainDrone   DomainClass = 0
	DomainDock    DomainClass = 3
	DomainUnknown DomainClass = -1
)

// Device is the canonical record produced by normalization. It is
// rebuilt from upstream JSON on every poll tick or live message and is
// never persisted.
type Device struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Model       string          `json:"model"`
	Online      bool            `json:"online"`
	Domain      DomainClass     `json:"domain"`
	Telemetry   *Telemetry      `json:"telemetry,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Telemetry is present on a Device only when a plausible position
// source was found for it in the current cycle. It is never zero-filled
// as a placeholder, because rendering treats (0,0) as "unpositioned".
type Telemetry struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Height          float64 `json:"height"`
	HorizontalSpeed float64 `json:"horizontal_speed"`
	VerticalSpeed   float64 `json:"vertical_speed"`
	BatteryPercent  float64 `json:"battery_percent"`
	SignalQuality   float64 `json:"signal_quality"`
	FlightTime      float64 `json:"total_flight_time"`
	Yaw             float64 `json:"yaw"`
	Pitch           float64 `json:"pitch"`
	Roll            float64 `json:"roll"`
	LiveCapable     *bool   `json:"live_capable,omitempty"`
	LiveActive      *bool   `json:"live_active,omitempty"`
}

// TopologyResult is the envelope returned by the topology query. Upstream
// failures never escape as errors; they degrade to Code -1 with an empty
// device list and an explanatory message.
type TopologyResult struct {
	Code    int      `json:"code"`
	Message string   `json:"message,omitempty"`
	Data    []Device `json:"data"`
}

// AlertRequest carries an operator-entered alert towards the upstream
// workflow-trigger endpoint.
type AlertRequest struct {
	Name        string  `json:"name,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Level       int     `json:"level"`
	Description string  `json:"description"`
}
