package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/topgirl-optimizer/internal/backend"
	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/internal/dashboard"
	"github.com/iwvelando/topgirl-optimizer/internal/registry"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/magnitude"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

type handler struct {
	registry    *registry.Registry
	dashboard   *dashboard.Dashboard
	logger      *zap.Logger
	validate    *validator.Validate
	maxBodySize int64
	version     string
}

// Options configures the panel handler.
type Options struct {
	Registry    *registry.Registry
	Dashboard   *dashboard.Dashboard
	Logger      *zap.Logger
	MaxBodySize int64
	Version     string
}

type buildingsResponse struct {
	Buildings   []building.Building `json:"buildings"`
	Suggestions []string            `json:"suggestions,omitempty"`
	Warning     string              `json:"warning,omitempty"`
}

type updateResponse struct {
	Changed   bool                `json:"changed"`
	Buildings []building.Building `json:"buildings"`
}

type levelUpResponse struct {
	Progression building.Progression `json:"progression"`
	Buildings   []building.Building  `json:"buildings"`
}

type paramsResponse struct {
	Request optimization.Request `json:"request"`
	Params  optimization.Params  `json:"params"`
	Source  string               `json:"source"`
}

type optimizeResponse struct {
	Request optimization.Request `json:"request"`
	Result  optimization.Result  `json:"result"`
}

// optimizeBody accepts numbers or user-typed strings such as "2.5m". A
// missing or unreadable amount counts as 0.
type optimizeBody struct {
	Money          interface{} `json:"current_money"`
	Gold           interface{} `json:"current_gold"`
	TradeX         interface{} `json:"trade_x"`
	TradeY         interface{} `json:"trade_y"`
	SessionSeconds int         `json:"session_seconds" validate:"gte=0"`
}

// NewHandler constructs the HTTP handler that serves the panel UI and API.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodySize := opts.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	h := &handler{
		registry:    opts.Registry,
		dashboard:   opts.Dashboard,
		logger:      logger,
		validate:    validator.New(),
		maxBodySize: maxBodySize,
		version:     version,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recovery(logger))
	r.Use(logging(logger))
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", constants.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)

		r.Route("/buildings", func(r chi.Router) {
			r.Get("/", h.handleListBuildings)
			r.Post("/", h.handleCreateBuilding)
			r.Patch("/{id}", h.handleUpdateBuilding)
			r.Delete("/{id}", h.handleDeleteBuilding)
			r.Post("/{id}/levelup", h.handleLevelUp)
		})

		r.Get("/optimize/params", h.handleOptimizeParams)
		r.Post("/optimize", h.handleOptimize)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	r.Handle("/*", http.FileServer(http.FS(sub)))

	return r
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	resp := buildingsResponse{}
	if err := h.registry.Refresh(r.Context()); err != nil {
		resp.Warning = "building list may be out of date: " + err.Error()
	}

	query := r.URL.Query().Get("q")
	resp.Buildings = h.registry.List(query)
	if len(resp.Buildings) == 0 && query != "" {
		resp.Suggestions = h.registry.Suggest(query)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateBuilding"

	values, ok := h.decodeFields(w, r, op)
	if !ok {
		return
	}
	form, err := building.DefaultForm().With(values)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.validate.Var(strings.TrimSpace(form.Name), "required"); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "building name is required", op)
		return
	}

	if err := h.registry.Create(r.Context(), form); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, buildingsResponse{Buildings: h.registry.List("")})
}

func (h *handler) handleUpdateBuilding(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateBuilding"

	id, ok := h.buildingID(w, r, op)
	if !ok {
		return
	}
	values, ok := h.decodeFields(w, r, op)
	if !ok {
		return
	}

	form, err := h.registry.Form(id)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	form, err = form.With(values)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	changed, err := h.registry.Update(r.Context(), id, form)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, updateResponse{Changed: changed, Buildings: h.registry.List("")})
}

func (h *handler) handleDeleteBuilding(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteBuilding"

	id, ok := h.buildingID(w, r, op)
	if !ok {
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	confirm := registry.ConfirmFunc(func(building.Building) bool { return confirmed })
	if err := h.registry.Delete(r.Context(), id, confirm); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, buildingsResponse{Buildings: h.registry.List("")})
}

func (h *handler) handleLevelUp(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleLevelUp"

	id, ok := h.buildingID(w, r, op)
	if !ok {
		return
	}

	progression, err := h.registry.LevelUp(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, levelUpResponse{Progression: progression, Buildings: h.registry.List("")})
}

func (h *handler) handleOptimizeParams(w http.ResponseWriter, r *http.Request) {
	req, source := h.dashboard.LoadParams(r.Context())
	h.writeJSON(w, http.StatusOK, paramsResponse{
		Request: req,
		Params:  optimization.ParamsFromRequest(req),
		Source:  source,
	})
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOptimize"

	var body optimizeBody
	if !h.decodeJSON(w, r, &body, op) {
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid optimization request: %v", err), op)
		return
	}

	req := optimization.Request{
		CurrentMoney:   magnitude.NormalizeValue(body.Money),
		CurrentGold:    magnitude.NormalizeValue(body.Gold),
		TradeX:         magnitude.NormalizeValue(body.TradeX),
		TradeY:         magnitude.NormalizeValue(body.TradeY),
		SessionSeconds: body.SessionSeconds,
	}
	if req.SessionSeconds == 0 {
		req.SessionSeconds = constants.DefaultSessionSeconds
	}

	result, err := h.dashboard.Run(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, optimizeResponse{Request: req, Result: result})
}

func (h *handler) buildingID(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid building id %q", raw), op)
		return 0, false
	}
	h.refreshOnMiss(r.Context(), id, op)
	return id, true
}

// refreshOnMiss re-fetches the list once when id is not in the local view,
// so buildings created by another client can be edited.
func (h *handler) refreshOnMiss(ctx context.Context, id int, op string) {
	if _, ok := h.registry.Get(id); ok {
		return
	}
	if err := h.registry.Refresh(ctx); err != nil {
		h.logger.Warn("failed to refresh buildings for unknown id",
			zap.String("op", op),
			zap.Int("buildingId", id),
			zap.Error(err),
		)
	}
}

// decodeFields reads a JSON object of form fields. Numbers are accepted and
// kept in their JSON text form.
func (h *handler) decodeFields(w http.ResponseWriter, r *http.Request, op string) (map[string]string, bool) {
	var raw map[string]json.RawMessage
	if !h.decodeJSON(w, r, &raw, op) {
		return nil, false
	}

	values := make(map[string]string, len(raw))
	for field, msg := range raw {
		var text string
		if err := json.Unmarshal(msg, &text); err == nil {
			values[field] = text
			continue
		}
		var number json.Number
		if err := json.Unmarshal(msg, &number); err == nil {
			values[field] = number.String()
			continue
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("field %s must be a string or number", field), op)
		return nil, false
	}
	return values, true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// respondDomainError maps registry, dashboard and backend errors to statuses.
func (h *handler) respondDomainError(w http.ResponseWriter, err error, op string) {
	status := http.StatusInternalServerError
	var statusErr *backend.StatusError
	var transportErr *backend.TransportError

	switch {
	case errors.Is(err, registry.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, registry.ErrNotConfirmed):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrUnknownBuilding):
		status = http.StatusNotFound
	case errors.Is(err, optimization.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.As(err, &statusErr), errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}
	h.respondErrorWithOp(w, status, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("panel request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
