package livechannel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/skysync/integration-flighthub/domain"
)

func TestThatBackoffGrowsByMultiplierFromOneSecond(t *testing.T) {
	is := is.New(t)

	c := New("ws://localhost/ws", Handler{}, zerolog.Nop())

	is.Equal(c.nextDelay(), 1000*time.Millisecond)
	is.Equal(c.nextDelay(), 1600*time.Millisecond)
	is.Equal(c.nextDelay(), 2560*time.Millisecond)
}

func TestThatBackoffIsCappedAtTenSeconds(t *testing.T) {
	is := is.New(t)

	c := New("ws://localhost/ws", Handler{}, zerolog.Nop())

	var last time.Duration
	for i := 0; i < 20; i++ {
		last = c.nextDelay()
	}

	is.Equal(last, 10*time.Second)
}

func TestThatUnknownMessageTypesAreIgnored(t *testing.T) {
	is := is.New(t)

	called := false
	c := New("ws://localhost/ws", Handler{
		OnSnapshot: func([]domain.Device) { called = true },
		OnUpdate:   func([]domain.Device) { called = true },
	}, zerolog.Nop())

	c.handleMessage([]byte(`{"type":"error","devices":[{"sn":"A"}]}`))
	c.handleMessage([]byte(`{"type":"","devices":[]}`))

	is.True(!called)
}

func TestThatMalformedMessagesAreReportedWithoutClosing(t *testing.T) {
	is := is.New(t)

	var reported error
	c := New("ws://localhost/ws", Handler{
		OnError: func(err error) { reported = err },
	}, zerolog.Nop())

	c.handleMessage([]byte(`{not json`))

	is.True(reported != nil)
}

func TestThatUpdateMessagesAreCanonicalized(t *testing.T) {
	is := is.New(t)

	var got []domain.Device
	c := New("ws://localhost/ws", Handler{
		OnUpdate: func(d []domain.Device) { got = d },
	}, zerolog.Nop())

	c.handleMessage([]byte(`{"type":"telemetry_update","devices":[
		{"sn":"U1","online":1,"latitude":1.5,"longitude":2.5}
	]}`))

	is.Equal(len(got), 1)
	is.Equal(got[0].ID, "U1")
	is.True(got[0].Online)
	is.True(got[0].Telemetry != nil)
	is.Equal(got[0].Telemetry.Latitude, 1.5)
}

func TestThatSnapshotMessagesReachTheHandler(t *testing.T) {
	is := is.New(t)

	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"snapshot","devices":[{"sn":"S1","latitude":1,"longitude":2}]}`))
		conn.ReadMessage() // block until the client goes away
	}))
	defer ts.Close()

	got := make(chan []domain.Device, 1)
	c := New("ws"+strings.TrimPrefix(ts.URL, "http"), Handler{
		OnSnapshot: func(d []domain.Device) { got <- d },
	}, zerolog.Nop())

	c.Connect(context.Background())
	defer c.Close()

	select {
	case devices := <-got:
		is.Equal(len(devices), 1)
		is.Equal(devices[0].ID, "S1")
		is.True(devices[0].Telemetry != nil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestThatCloseSuppressesReconnection(t *testing.T) {
	is := is.New(t)

	// nothing listens here, so the first dial fails and a reconnect
	// gets scheduled
	c := New("ws://127.0.0.1:1/ws", Handler{}, zerolog.Nop())
	c.Connect(context.Background())

	time.Sleep(100 * time.Millisecond)

	is.NoErr(c.Close())
	is.Equal(c.State(), StateClosed)

	c.mu.Lock()
	defer c.mu.Unlock()
	is.True(!c.reconnect)
	is.True(c.timer == nil)
}
