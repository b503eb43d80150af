package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/skysync/integration-flighthub/domain"
	"github.com/skysync/integration-flighthub/internal/pkg/application/normalize"
)

func TestThatHealthEndpointReturns204(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting(&stubApp{}, nil)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "GET", "/health", nil)

	is.Equal(resp.StatusCode, http.StatusNoContent) // health endpoint status code not ok
}

func TestThatStateReturnsASnapshotEnvelope(t *testing.T) {
	is := is.New(t)

	devices := normalize.NewDeviceSet()
	devices.ApplySnapshot([]domain.Device{{ID: "D1", DisplayName: "Dock 1"}})

	r := newRouterForTesting(&stubApp{}, devices)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/state", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	var envelope struct {
		Type    string          `json:"type"`
		Devices []domain.Device `json:"devices"`
	}
	is.NoErr(json.Unmarshal([]byte(body), &envelope))
	is.Equal(envelope.Type, "snapshot")
	is.Equal(len(envelope.Devices), 1)
	is.Equal(envelope.Devices[0].ID, "D1")
}

func TestThatAlertsAreForwarded(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting(&stubApp{alertResp: `{"code":0}`}, nil)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "POST", "/api/alerts", strings.NewReader(`{"level":3,"description":"fire"}`))

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"code":0}`)
}

func TestThatAlertFailuresReturnBadGateway(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting(&stubApp{alertErr: errors.New("network unreachable: dial tcp")}, nil)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "POST", "/api/alerts", strings.NewReader(`{"level":1}`))

	is.Equal(resp.StatusCode, http.StatusBadGateway)
	is.True(strings.Contains(body, "network unreachable"))
}

func TestThatInvalidAlertPayloadsReturnBadRequest(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting(&stubApp{}, nil)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "POST", "/api/alerts", strings.NewReader(`{broken`))

	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestThatDeviceDetailIsProxied(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting(&stubApp{detail: json.RawMessage(`{"device_sn":"D1"}`)}, nil)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/devices/D1", nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"device_sn":"D1"}`)
}

func TestThatTelemetrySocketSendsAnInitialSnapshot(t *testing.T) {
	is := is.New(t)

	devices := normalize.NewDeviceSet()
	devices.ApplySnapshot([]domain.Device{{ID: "WS-1"}})

	r := newRouterForTesting(&stubApp{}, devices)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	is.NoErr(err)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	is.NoErr(err)

	var envelope struct {
		Type    string          `json:"type"`
		Devices []domain.Device `json:"devices"`
	}
	is.NoErr(json.Unmarshal(data, &envelope))
	is.Equal(envelope.Type, "snapshot")
	is.Equal(len(envelope.Devices), 1)
	is.Equal(envelope.Devices[0].ID, "WS-1")
}

func TestThatBroadcastsReachConnectedClients(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting(&stubApp{}, nil)
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/telemetry"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	is.NoErr(err)
	defer conn.Close()

	_, _, err = conn.ReadMessage() // initial snapshot
	is.NoErr(err)

	r.hub.Broadcast(map[string]any{"type": "telemetry_update", "devices": []domain.Device{{ID: "B-1"}}})

	_, data, err := conn.ReadMessage()
	is.NoErr(err)
	is.True(strings.Contains(string(data), "B-1"))
}

type stubApp struct {
	detail    json.RawMessage
	detailErr error
	alertResp string
	alertErr  error
}

func (s *stubApp) GetTopology(ctx context.Context) domain.TopologyResult {
	return domain.TopologyResult{Code: 0, Data: []domain.Device{}}
}

func (s *stubApp) GetDeviceDetail(ctx context.Context, sn string) (json.RawMessage, error) {
	return s.detail, s.detailErr
}

func (s *stubApp) TriggerAlert(ctx context.Context, alert domain.AlertRequest) (string, error) {
	return s.alertResp, s.alertErr
}

func newRouterForTesting(app *stubApp, devices *normalize.DeviceSet) *routerStruct {
	if devices == nil {
		devices = normalize.NewDeviceSet()
	}

	return SetupRouter(chi.NewRouter(), zerolog.Nop(), app, devices, NewHub(zerolog.Nop()), PublicConfig{})
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	resp, _ := http.DefaultClient.Do(req)
	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	return resp, strings.TrimSpace(string(respBody))
}
