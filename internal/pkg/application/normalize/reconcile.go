package normalize

import (
	"sync"

	"github.com/skysync/integration-flighthub/domain"
)

// Dedup keeps the first candidate per identifier, in scan order. Later
// duplicates are discarded unconditionally, even when they carry more
// data; there is no merge policy such as prefer-online or
// prefer-more-fields.
func Dedup(candidates []domain.Device) []domain.Device {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Device, 0, len(candidates))

	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}

	return out
}

// DeviceSet is the live device view shared by the poll loop and the live
// channel. Snapshots replace it wholesale, updates patch it in place by
// identifier. Insertion order is preserved so the list UI stays stable.
type DeviceSet struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Device
}

func NewDeviceSet() *DeviceSet {
	return &DeviceSet{
		byID: map[string]domain.Device{},
	}
}

// ApplySnapshot replaces the entire working set.
func (s *DeviceSet) ApplySnapshot(devices []domain.Device) {
	devices = Dedup(devices)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.byID = make(map[string]domain.Device, len(devices))
	for _, d := range devices {
		s.order = append(s.order, d.ID)
		s.byID[d.ID] = d
	}
}

// ApplyUpdate replaces only the entries named in the update, leaving all
// others untouched. Devices not seen before are appended.
func (s *DeviceSet) ApplyUpdate(devices []domain.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range devices {
		if _, ok := s.byID[d.ID]; !ok {
			s.order = append(s.order, d.ID)
		}
		s.byID[d.ID] = d
	}
}

// List returns the current devices in insertion order.
func (s *DeviceSet) List() []domain.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Device, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *DeviceSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
