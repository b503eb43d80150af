package normalize

// Candidate key families shared by the scanner and the mappers. Upstream
// never advertises a schema version, so shape detection and field
// resolution both work off these fixed lookup chains. Order matters: the
// first present (or first usable) key wins.
var (
	serialKeys      = []string{"serial_number", "sn", "device_sn"}
	childSerialKeys = []string{"child_device_sn", "child_sn"}
	uuidKeys        = []string{"uuid", "device_uuid"}
	fallbackIDKeys  = []string{"id", "device_id"}

	nameKeys   = []string{"device_project_callsign", "callsign", "nickname", "device_name", "name"}
	configKeys = []string{"device_config", "config"}
	modelKeys  = []string{"device_model", "model", "device_type"}
	onlineKeys = []string{"status", "online", "is_online", "device_online_status"}
	stateKeys  = []string{"device_state", "telemetry"}

	// container-like properties the scanner recurses into; devices can be
	// nested inside other devices (parent/child frames), so recursion does
	// not stop at a matching node
	containerKeys = []string{"children", "list", "data", "host", "drone", "payload", "devices", "sub_devices"}

	latitudeKeys   = []string{"latitude", "lat"}
	longitudeKeys  = []string{"longitude", "lng", "lon"}
	heightKeys     = []string{"height", "height_m", "altitude", "alt_m"}
	hSpeedKeys     = []string{"horizontal_speed", "h_speed_mps", "speed"}
	vSpeedKeys     = []string{"vertical_speed", "v_speed_mps"}
	batteryKeys    = []string{"capacity_percent", "battery_percent", "percent"}
	signalKeys     = []string{"signal_quality", "quality"}
	flightTimeKeys = []string{"total_flight_time", "flight_time"}
	yawKeys        = []string{"attitude_head", "yaw_deg", "yaw", "heading"}
	pitchKeys      = []string{"attitude_pitch", "pitch_deg", "pitch"}
	rollKeys       = []string{"attitude_roll", "roll_deg", "roll"}
)
