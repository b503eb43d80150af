package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/skysync/integration-flighthub/domain"
	"github.com/skysync/integration-flighthub/internal/pkg/application/normalize"
)

type FlightHub interface {
	GetTopology(ctx context.Context) domain.TopologyResult
	GetDeviceDetail(ctx context.Context, sn string) (json.RawMessage, error)
	TriggerAlert(ctx context.Context, alert domain.AlertRequest) (string, error)
}

type flightHub struct {
	baseURL    string
	apiURL     string
	orgKey     string
	userToken  string
	projectID  string
	workflowID string
	creatorID  string
}

var tracer = otel.Tracer("integration-flighthub/app")

func New(baseURL, apiURL, orgKey, userToken, projectID, workflowID, creatorID string) FlightHub {
	return &flightHub{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiURL:     strings.TrimRight(apiURL, "/"),
		orgKey:     orgKey,
		userToken:  userToken,
		projectID:  projectID,
		workflowID: workflowID,
		creatorID:  creatorID,
	}
}

// GetTopology fetches and normalizes the device set of the configured
// project. It never returns an error: transport failures, bad status
// codes and empty or unparseable bodies all degrade to Code -1 with an
// empty device list and an explanatory message.
func (f *flightHub) GetTopology(ctx context.Context) domain.TopologyResult {
	var err error

	ctx, span := tracer.Start(ctx, "get-topology")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	fail := func(e error) domain.TopologyResult {
		err = e
		return domain.TopologyResult{Code: -1, Message: e.Error(), Data: []domain.Device{}}
	}

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/manage/api/v1.0/projects/%s/topologies", f.baseURL, f.projectID), nil)
	if rerr != nil {
		return fail(fmt.Errorf("failed to create request: %s", rerr.Error()))
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-Organization-Key", f.orgKey)

	resp, derr := httpClient.Do(req)
	if derr != nil {
		return fail(fmt.Errorf("failed to retrieve topology: %s", derr.Error()))
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("request failed, expected status code %d, got %d", http.StatusOK, resp.StatusCode))
	}

	body, berr := io.ReadAll(resp.Body)
	if berr != nil {
		return fail(fmt.Errorf("failed to read response body as bytes: %s", berr.Error()))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return fail(fmt.Errorf("empty response body from upstream"))
	}

	var raw any
	if uerr := json.Unmarshal(body, &raw); uerr != nil {
		return fail(fmt.Errorf("failed to unmarshal response: %s", uerr.Error()))
	}

	return domain.TopologyResult{
		Code: 0,
		Data: normalize.Devices(ctx, raw),
	}
}

// GetDeviceDetail is a pass-through fetch by device identifier, no
// normalization.
func (f *flightHub) GetDeviceDetail(ctx context.Context, sn string) (json.RawMessage, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-device-detail")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/manage/api/v1.0/devices/%s", f.baseURL, sn), nil)
	if err != nil {
		err = fmt.Errorf("failed to create request: %s", err.Error())
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-Organization-Key", f.orgKey)

	var resp *http.Response
	resp, err = httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to retrieve device detail: %s", err.Error())
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("request failed, expected status code %d, got %d", http.StatusOK, resp.StatusCode)
		return nil, err
	}

	var body []byte
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body as bytes: %s", err.Error())
		return nil, err
	}

	return json.RawMessage(body), nil
}

type alertParams struct {
	Creator     string  `json:"creator"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Level       int     `json:"level"`
	Description string  `json:"description"`
}

type alertBody struct {
	WorkflowUUID string      `json:"workflow_uuid"`
	TriggerType  int         `json:"trigger_type"`
	Name         string      `json:"name"`
	Params       alertParams `json:"params"`
}

// TriggerAlert forwards an operator-entered alert to the workflow
// trigger endpoint. The trigger type is fixed at 0 and an unnamed alert
// gets a generated Alert-<timestamp> name.
func (f *flightHub) TriggerAlert(ctx context.Context, alert domain.AlertRequest) (string, error) {
	var err error

	ctx, span := tracer.Start(ctx, "trigger-alert")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if f.workflowID == "" {
		err = fmt.Errorf("cannot trigger alert, no workflow uuid has been configured")
		return "", err
	}
	if f.userToken == "" {
		err = fmt.Errorf("cannot trigger alert, no user token has been configured")
		return "", err
	}

	name := strings.TrimSpace(alert.Name)
	if name == "" {
		name = "Alert-" + time.Now().UTC().Format("20060102T150405Z")
	}

	body := alertBody{
		WorkflowUUID: f.workflowID,
		TriggerType:  0,
		Name:         name,
		Params: alertParams{
			Creator:     f.creatorID,
			Latitude:    alert.Latitude,
			Longitude:   alert.Longitude,
			Level:       alert.Level,
			Description: alert.Description,
		},
	}

	var b []byte
	b, err = json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s/trigger", f.apiURL, f.workflowID), bytes.NewBuffer(b))
	if err != nil {
		err = fmt.Errorf("failed to create request: %s", err.Error())
		return "", err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+f.userToken)

	var resp *http.Response
	resp, err = httpClient.Do(req)
	if err != nil {
		// normalize the transport-level failure to something an operator
		// can act on
		err = fmt.Errorf("network unreachable: %s", err.Error())
		return "", err
	}

	defer resp.Body.Close()

	var respBody []byte
	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body as bytes: %s", err.Error())
		return "", err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err = fmt.Errorf("alert trigger failed with status code %d: %s", resp.StatusCode, string(respBody))
		return "", err
	}

	return string(respBody), nil
}
