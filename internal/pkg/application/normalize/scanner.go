package normalize

// Scan walks an arbitrary decoded JSON value in pre-order and collects
// every object that looks like a device. Duplicates across branches are
// expected; the reconciler resolves them downstream.
func Scan(v any) []map[string]any {
	var out []map[string]any
	scanValue(v, &out)
	return out
}

func scanValue(v any, out *[]map[string]any) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			scanValue(e, out)
		}
	case map[string]any:
		if isDeviceCandidate(t) {
			*out = append(*out, t)
		}
		for _, k := range containerKeys {
			if child, ok := t[k]; ok {
				scanValue(child, out)
			}
		}
	}
}

// isDeviceCandidate tests the structural heuristic: an explicit
// serial-like field is enough on its own; a uuid also shows up on
// folder/project/workspace nodes, so it only counts together with a
// corroborating device indicator. Presence is what matters, a falsy
// domain or online field still corroborates.
func isDeviceCandidate(obj map[string]any) bool {
	if hasAnyKey(obj, serialKeys...) || hasAnyKey(obj, childSerialKeys...) {
		return true
	}

	if !hasAnyKey(obj, uuidKeys...) {
		return false
	}

	return hasAnyKey(obj, modelKeys...) ||
		hasKey(obj, "domain") ||
		hasAnyKey(obj, onlineKeys...) ||
		hasKey(obj, "battery") ||
		hasAnyKey(obj, latitudeKeys...) ||
		hasKey(obj, "position") ||
		hasAnyKey(obj, stateKeys...)
}
