// Package backend is the HTTP client of the optimizer backend, which owns
// the building records and computes upgrade plans.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/internal/metrics"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"go.uber.org/zap"
)

// Endpoint labels, used in logs, errors and metrics.
const (
	EndpointListBuildings  = "list_buildings"
	EndpointCreateBuilding = "create_building"
	EndpointUpdateBuilding = "update_building"
	EndpointDeleteBuilding = "delete_building"
	EndpointLevelUp        = "level_up"
	EndpointOptimize       = "optimize"
	EndpointLastOptimize   = "last_optimize"
)

// ErrNotFound matches a StatusError with status 404.
var ErrNotFound = errors.New("not found")

// TransportError reports a request that never completed: the backend could
// not be reached or the response never arrived.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP status from the backend.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: backend returned %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

// Is makes errors.Is(err, ErrNotFound) hold for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks JSON to the backend under a base URL.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient returns a client for the backend at baseURL. A zero timeout
// disables the per-request deadline.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Client{http: client, logger: logger}
}

// ListBuildings fetches every building.
func (c *Client) ListBuildings(ctx context.Context) ([]building.Building, error) {
	var buildings []building.Building
	if err := c.do(ctx, EndpointListBuildings, http.MethodGet, "/buildings", nil, &buildings); err != nil {
		return nil, err
	}
	if buildings == nil {
		buildings = []building.Building{}
	}
	return buildings, nil
}

// CreateBuilding creates a building from a full patch.
func (c *Client) CreateBuilding(ctx context.Context, patch building.Patch) error {
	return c.do(ctx, EndpointCreateBuilding, http.MethodPost, "/buildings", patch, nil)
}

// UpdateBuilding applies patch to the building with id.
func (c *Client) UpdateBuilding(ctx context.Context, id int, patch building.Patch) error {
	return c.do(ctx, EndpointUpdateBuilding, http.MethodPatch, buildingPath(id), patch, nil)
}

// DeleteBuilding removes the building with id.
func (c *Client) DeleteBuilding(ctx context.Context, id int) error {
	return c.do(ctx, EndpointDeleteBuilding, http.MethodDelete, buildingPath(id), nil, nil)
}

// LevelUp submits a progressed level state for the building with id.
func (c *Client) LevelUp(ctx context.Context, id int, progression building.Progression) error {
	return c.do(ctx, EndpointLevelUp, http.MethodPatch, buildingPath(id)+"/levelup", progression, nil)
}

// Optimize asks the backend for an upgrade plan.
func (c *Client) Optimize(ctx context.Context, req optimization.Request) (optimization.Result, error) {
	var result optimization.Result
	if err := c.do(ctx, EndpointOptimize, http.MethodPost, "/optimize", req, &result); err != nil {
		return optimization.Result{}, err
	}
	return result, nil
}

// LastRequest returns the optimization request the backend last received.
func (c *Client) LastRequest(ctx context.Context) (optimization.Request, error) {
	req := optimization.DefaultRequest()
	if err := c.do(ctx, EndpointLastOptimize, http.MethodGet, "/optimize/last", nil, &req); err != nil {
		return optimization.Request{}, err
	}
	return req, nil
}

func buildingPath(id int) string {
	return "/buildings/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out interface{}) error {
	requestID := uuid.NewString()
	start := time.Now()

	req := c.http.R().
		SetContext(ctx).
		SetHeader(constants.RequestIDHeader, requestID)
	if body != nil {
		// Encoded here so a bad body is never reported as a transport failure.
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", endpoint, err)
		}
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordBackendCall(endpoint, metrics.OutcomeTransport, elapsed.Seconds())
		c.logger.Warn("backend request failed",
			zap.String("op", "backend."+endpoint),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("requestId", requestID),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return &TransportError{Endpoint: endpoint, Err: err}
	}

	if resp.IsError() {
		metrics.RecordBackendCall(endpoint, metrics.OutcomeStatus, elapsed.Seconds())
		statusErr := &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Detail:     errorDetail(resp.Body()),
		}
		c.logger.Warn("backend rejected request",
			zap.String("op", "backend."+endpoint),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("requestId", requestID),
			zap.Int("status", statusErr.StatusCode),
			zap.String("detail", statusErr.Detail),
		)
		return statusErr
	}

	metrics.RecordBackendCall(endpoint, metrics.OutcomeSuccess, elapsed.Seconds())
	c.logger.Debug("backend request completed",
		zap.String("op", "backend."+endpoint),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("requestId", requestID),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", elapsed),
	)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: failed to decode backend response: %w", endpoint, err)
	}
	return nil
}

// errorDetail extracts the "detail" member of an error body, which is a
// string for most errors and a list of field errors for validation failures.
func errorDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || len(envelope.Detail) == 0 {
		return string(trimmed)
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, envelope.Detail); err != nil {
		return string(envelope.Detail)
	}
	return compact.String()
}
