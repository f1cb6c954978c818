// Package session persists the last optimization request across runs of the
// panel, under one well-known key.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iwvelando/topgirl-optimizer/internal/metrics"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"go.uber.org/zap"
)

// Store saves and restores the last optimization request. Each save
// overwrites the previous value; there is no history.
type Store struct {
	kv     KV
	key    string
	logger *zap.Logger
	now    func() time.Time
}

// record is the stored envelope. Schema is bumped whenever the request shape
// changes incompatibly.
type record struct {
	Schema  int           `json:"schema"`
	SavedAt time.Time     `json:"saved_at"`
	Request storedRequest `json:"request"`
}

// storedRequest decodes with pointers so fields missing from older data can
// be told apart from zero values.
type storedRequest struct {
	CurrentMoney   *float64 `json:"current_money,omitempty"`
	CurrentGold    *float64 `json:"current_gold,omitempty"`
	TradeX         *float64 `json:"trade_x,omitempty"`
	TradeY         *float64 `json:"trade_y,omitempty"`
	SessionSeconds *int     `json:"session_seconds,omitempty"`
}

// NewStore returns a store persisting under key in kv.
func NewStore(kv KV, key string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = constants.DefaultSessionKey
	}
	return &Store{kv: kv, key: key, logger: logger, now: time.Now}
}

// Save stores req, replacing any earlier value.
func (s *Store) Save(ctx context.Context, req optimization.Request) error {
	rec := record{
		Schema:  constants.SessionSchemaVersion,
		SavedAt: s.now().UTC(),
		Request: storedRequest{
			CurrentMoney:   &req.CurrentMoney,
			CurrentGold:    &req.CurrentGold,
			TradeX:         &req.TradeX,
			TradeY:         &req.TradeY,
			SessionSeconds: &req.SessionSeconds,
		},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		metrics.RecordSessionOperation("save", metrics.OutcomeFailed)
		return fmt.Errorf("failed to encode optimization request: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		metrics.RecordSessionOperation("save", metrics.OutcomeFailed)
		return fmt.Errorf("failed to save optimization request: %w", err)
	}

	metrics.RecordSessionOperation("save", metrics.OutcomeSuccess)
	s.logger.Debug("saved optimization request",
		zap.String("op", "session.Save"),
		zap.String("key", s.key),
	)
	return nil
}

// Load returns the stored request. It reports false when nothing is stored
// or the stored content cannot be read; fields missing from an older record
// take their default values.
func (s *Store) Load(ctx context.Context) (optimization.Request, bool) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		metrics.RecordSessionOperation("load", metrics.OutcomeFailed)
		s.logger.Warn("failed to read stored optimization request",
			zap.String("op", "session.Load"),
			zap.String("key", s.key),
			zap.Error(err),
		)
		return optimization.Request{}, false
	}
	if !ok {
		metrics.RecordSessionOperation("load", metrics.OutcomeAbsent)
		return optimization.Request{}, false
	}

	stored, err := decodeRecord([]byte(raw))
	if err != nil {
		metrics.RecordSessionOperation("load", metrics.OutcomeFailed)
		s.logger.Warn("ignoring unreadable stored optimization request",
			zap.String("op", "session.Load"),
			zap.String("key", s.key),
			zap.Error(err),
		)
		return optimization.Request{}, false
	}

	req, defaulted := stored.resolve()
	if len(defaulted) > 0 {
		s.logger.Info("stored optimization request is missing fields, using defaults",
			zap.String("op", "session.Load"),
			zap.Strings("fields", defaulted),
		)
	}
	metrics.RecordSessionOperation("load", metrics.OutcomeSuccess)
	return req, true
}

// decodeRecord accepts the versioned envelope and the bare request object
// written by earlier panel versions.
func decodeRecord(data []byte) (storedRequest, error) {
	var probe struct {
		Schema  *int            `json:"schema"`
		Request json.RawMessage `json:"request"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return storedRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}

	payload := data
	if probe.Schema != nil {
		if *probe.Schema != constants.SessionSchemaVersion {
			return storedRequest{}, fmt.Errorf("unsupported schema version %d", *probe.Schema)
		}
		if len(probe.Request) == 0 {
			return storedRequest{}, fmt.Errorf("record has no request")
		}
		payload = probe.Request
	}

	var stored storedRequest
	if err := json.Unmarshal(payload, &stored); err != nil {
		return storedRequest{}, fmt.Errorf("invalid request: %w", err)
	}
	if stored.empty() {
		return storedRequest{}, fmt.Errorf("record holds no known request fields")
	}
	return stored, nil
}

func (r storedRequest) empty() bool {
	return r.CurrentMoney == nil && r.CurrentGold == nil && r.TradeX == nil &&
		r.TradeY == nil && r.SessionSeconds == nil
}

// resolve fills missing fields from the defaults and names them.
func (r storedRequest) resolve() (optimization.Request, []string) {
	req := optimization.DefaultRequest()
	var defaulted []string

	resolveFloat := func(name string, src *float64, dst *float64) {
		if src == nil {
			defaulted = append(defaulted, name)
			return
		}
		*dst = *src
	}
	resolveFloat("current_money", r.CurrentMoney, &req.CurrentMoney)
	resolveFloat("current_gold", r.CurrentGold, &req.CurrentGold)
	resolveFloat("trade_x", r.TradeX, &req.TradeX)
	resolveFloat("trade_y", r.TradeY, &req.TradeY)
	if r.SessionSeconds == nil {
		defaulted = append(defaulted, "session_seconds")
	} else {
		req.SessionSeconds = *r.SessionSeconds
	}
	return req, defaulted
}
