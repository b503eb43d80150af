package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matryer/is"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestThatScanFindsDevicesAtArbitraryDepth(t *testing.T) {
	is := is.New(t)

	raw := decode(t, `{
		"data": {
			"list": [
				{
					"device_sn": "DOCK-1",
					"children": [
						{"sn": "DRONE-1", "payload": {"child_device_sn": "CAM-1"}}
					]
				}
			]
		}
	}`)

	found := Scan(raw)
	is.Equal(len(found), 3) // dock, drone and the nested payload device

	ids := make([]string, 0, len(found))
	for _, n := range found {
		ids = append(ids, resolveID(n))
	}
	is.Equal(ids, []string{"DOCK-1", "DRONE-1", "CAM-1"})
}

func TestThatScanIsDeterministic(t *testing.T) {
	is := is.New(t)

	raw := decode(t, `{
		"children": [{"sn": "A"}, {"sn": "B"}],
		"list": [{"sn": "C", "host": {"sn": "D"}}]
	}`)

	first := Scan(raw)
	second := Scan(raw)

	is.True(reflect.DeepEqual(first, second))
}

func TestThatUUIDAloneDoesNotMakeADeviceCandidate(t *testing.T) {
	is := is.New(t)

	// folders and projects carry uuids too; without a corroborating
	// device indicator they must not match
	folder := decode(t, `{"uuid": "f-1", "title": "My Project", "children": []}`)
	is.Equal(len(Scan(folder)), 0)

	device := decode(t, `{"uuid": "d-1", "model": "M30T"}`)
	is.Equal(len(Scan(device)), 1)

	// a falsy online field still corroborates
	offline := decode(t, `{"uuid": "d-2", "online": false}`)
	is.Equal(len(Scan(offline)), 1)
}

func TestThatScanRecursesIntoMatchingNodes(t *testing.T) {
	is := is.New(t)

	// a child device nested inside a parent device frame
	raw := decode(t, `{"sn": "PARENT", "sub_devices": [{"sn": "CHILD"}]}`)

	found := Scan(raw)
	is.Equal(len(found), 2)
}
