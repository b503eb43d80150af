package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"

	"github.com/skysync/integration-flighthub/domain"
	"github.com/skysync/integration-flighthub/internal/pkg/application"
	"github.com/skysync/integration-flighthub/internal/pkg/application/normalize"
)

type Router interface {
	Start(port string) error
}

// AppSettings is the settings blob the UI reads on startup; field names
// match what the frontend expects.
type AppSettings struct {
	APIURL       string `json:"apiUrl"`
	UserToken    string `json:"userToken"`
	ProjectUUID  string `json:"projectUuid"`
	WorkflowUUID string `json:"workflowUuid"`
	CreatorID    string `json:"creatorId"`
}

type PublicConfig struct {
	MapboxPublicToken string      `json:"mapbox_public_token"`
	AppSettings       AppSettings `json:"app_settings"`
}

type routerStruct struct {
	router  chi.Router
	log     zerolog.Logger
	app     application.FlightHub
	devices *normalize.DeviceSet
	hub     *Hub
	cfg     PublicConfig

	// static stream-url lookup, populated by deployment configuration
	streamURLs map[string]string
}

func SetupRouter(chiRouter chi.Router, log zerolog.Logger, app application.FlightHub, devices *normalize.DeviceSet, hub *Hub, cfg PublicConfig) *routerStruct {
	r := &routerStruct{
		router:     chiRouter,
		log:        log,
		app:        app,
		devices:    devices,
		hub:        hub,
		cfg:        cfg,
		streamURLs: map[string]string{},
	}

	chiRouter.Use(middleware.Logger)
	chiRouter.Get("/health", r.health)
	chiRouter.Get("/api/state", r.state)
	chiRouter.Get("/api/config", r.config)
	chiRouter.Get("/api/stream", r.stream)
	chiRouter.Get("/api/devices/{sn}", r.deviceDetail)
	chiRouter.Post("/api/alerts", r.alert)
	chiRouter.Get("/ws/telemetry", r.telemetry)

	return r
}

func (r *routerStruct) Start(port string) error {
	r.log.Info().Str("port", port).Msg("starting to listen for connections")
	return http.ListenAndServe(fmt.Sprintf(":%s", port), r.router)
}

func (router *routerStruct) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (router *routerStruct) state(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"type":    "snapshot",
		"devices": router.devices.List(),
	})
}

func (router *routerStruct) config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, router.cfg)
}

func (router *routerStruct) stream(w http.ResponseWriter, r *http.Request) {
	sn := r.URL.Query().Get("sn")

	var url *string
	if u, ok := router.streamURLs[sn]; ok {
		url = &u
	}

	respondJSON(w, http.StatusOK, map[string]any{"sn": sn, "url": url})
}

func (router *routerStruct) deviceDetail(w http.ResponseWriter, r *http.Request) {
	sn := chi.URLParam(r, "sn")

	body, err := router.app.GetDeviceDetail(r.Context(), sn)
	if err != nil {
		router.log.Error().Err(err).Str("sn", sn).Msg("device detail fetch failed")
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (router *routerStruct) alert(w http.ResponseWriter, r *http.Request) {
	var alert domain.AlertRequest
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid alert payload: " + err.Error()})
		return
	}

	resp, err := router.app.TriggerAlert(r.Context(), alert)
	if err != nil {
		router.log.Error().Err(err).Msg("alert trigger failed")
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(resp))
}

func (router *routerStruct) telemetry(w http.ResponseWriter, r *http.Request) {
	router.hub.serve(w, r, map[string]any{
		"type":    "snapshot",
		"devices": router.devices.List(),
	})
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
