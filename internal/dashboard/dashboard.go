// Package dashboard runs optimizations and restores the parameters of the
// last run.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwvelando/topgirl-optimizer/internal/backend"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"go.uber.org/zap"
)

// Source names where LoadParams found its parameters.
const (
	SourceBackend  = "backend"
	SourceSession  = "session"
	SourceDefaults = "defaults"
)

// Optimizer is the backend side of the dashboard.
type Optimizer interface {
	Optimize(ctx context.Context, req optimization.Request) (optimization.Result, error)
	LastRequest(ctx context.Context) (optimization.Request, error)
}

// SessionStore keeps the last submitted request locally.
type SessionStore interface {
	Save(ctx context.Context, req optimization.Request) error
	Load(ctx context.Context) (optimization.Request, bool)
}

// Dashboard prefills and submits optimization requests.
type Dashboard struct {
	optimizer Optimizer
	store     SessionStore
	logger    *zap.Logger
}

// New returns a dashboard backed by optimizer. A nil store disables the
// local copy of the last request.
func New(optimizer Optimizer, store SessionStore, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{optimizer: optimizer, store: store, logger: logger}
}

// LoadParams returns the parameters to prefill: the request the backend
// last ran, else the locally saved one, else the defaults. It never fails.
func (d *Dashboard) LoadParams(ctx context.Context) (optimization.Request, string) {
	req, err := d.optimizer.LastRequest(ctx)
	if err == nil {
		return req, SourceBackend
	}
	if errors.Is(err, backend.ErrNotFound) {
		d.logger.Debug("backend has no previous optimization",
			zap.String("op", "dashboard.LoadParams"),
		)
	} else {
		d.logger.Warn("failed to fetch last optimization from backend",
			zap.String("op", "dashboard.LoadParams"),
			zap.Error(err),
		)
	}

	if d.store != nil {
		if req, ok := d.store.Load(ctx); ok {
			return req, SourceSession
		}
	}
	return optimization.DefaultRequest(), SourceDefaults
}

// Run validates req, saves it locally and submits it. The request stays
// saved even when the backend then fails.
func (d *Dashboard) Run(ctx context.Context, req optimization.Request) (optimization.Result, error) {
	if err := req.Validate(); err != nil {
		return optimization.Result{}, err
	}

	if d.store != nil {
		if err := d.store.Save(ctx, req); err != nil {
			d.logger.Warn("failed to save optimization request",
				zap.String("op", "dashboard.Run"),
				zap.Error(err),
			)
		}
	}

	result, err := d.optimizer.Optimize(ctx, req)
	if err != nil {
		return optimization.Result{}, fmt.Errorf("optimization failed: %w", err)
	}

	d.logger.Info("optimization completed",
		zap.String("op", "dashboard.Run"),
		zap.Int("steps", len(result.UpgradePlan)),
		zap.Float64("totalIncomeEarned", result.TotalIncomeEarned),
		zap.Float64("finalIncomePerSecond", result.FinalIncomePerSecond),
	)
	return result, nil
}
