package normalize

import (
	"context"

	"github.com/skysync/integration-flighthub/domain"
)

// shape pairs a cheap, side-effect-free membership test with the mapper
// that handles responses of that layout.
type shape struct {
	name       string
	match      func(raw any) bool
	mapDevices func(ctx context.Context, raw any) []domain.Device
}

// shapes are tried in fixed priority order, first match wins. The legacy
// tree scan always matches, so every response maps to something.
var shapes = []shape{
	{"backend_list", matchBackendList, mapBackendList},
	{"topology_pair", matchTopologyPair, mapTopologyPair},
	{"legacy_tree", func(any) bool { return true }, mapLegacyTree},
}

// Devices normalizes one upstream response into canonical device records,
// deduplicated by identifier.
func Devices(ctx context.Context, raw any) []domain.Device {
	for _, s := range shapes {
		if s.match(raw) {
			return Dedup(s.mapDevices(ctx, raw))
		}
	}
	return []domain.Device{}
}
