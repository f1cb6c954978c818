// Package registry keeps the local view of the building collection in step
// with the backend. Every successful write is followed by one full re-fetch;
// nothing is merged locally.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned when another write on the same building is pending.
	ErrBusy = errors.New("another change to this building is in progress")
	// ErrNotConfirmed is returned when a delete was not confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrUnknownBuilding is returned for an id missing from the local view.
	ErrUnknownBuilding = errors.New("unknown building")
)

const maxSuggestions = 3

// Backend is the subset of the backend client the registry writes through.
type Backend interface {
	ListBuildings(ctx context.Context) ([]building.Building, error)
	CreateBuilding(ctx context.Context, patch building.Patch) error
	UpdateBuilding(ctx context.Context, id int, patch building.Patch) error
	DeleteBuilding(ctx context.Context, id int) error
	LevelUp(ctx context.Context, id int, progression building.Progression) error
}

// Confirmer gates deletes.
type Confirmer interface {
	ConfirmDelete(b building.Building) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(b building.Building) bool

func (f ConfirmFunc) ConfirmDelete(b building.Building) bool {
	return f(b)
}

// Registry is safe for concurrent use.
type Registry struct {
	backend Backend
	logger  *zap.Logger

	mu        sync.RWMutex
	buildings []building.Building
	started   uint64
	applied   uint64

	pendingMu sync.Mutex
	pending   map[int]struct{}
}

// New returns an empty registry. Call Refresh to populate it.
func New(backend Backend, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		backend: backend,
		logger:  logger,
		pending: make(map[int]struct{}),
	}
}

// Refresh replaces the local view with the backend's collection. When
// refreshes overlap, the one started last wins and older responses are
// dropped. On failure the previous view is kept.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.started++
	seq := r.started
	r.mu.Unlock()

	buildings, err := r.backend.ListBuildings(ctx)
	if err != nil {
		metrics.RegistryRefreshesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		r.logger.Warn("failed to refresh buildings",
			zap.String("op", "registry.Refresh"),
			zap.Error(err),
		)
		return fmt.Errorf("failed to refresh buildings: %w", err)
	}

	r.mu.Lock()
	if seq < r.applied {
		r.mu.Unlock()
		metrics.RegistryRefreshesTotal.WithLabelValues(metrics.OutcomeStale).Inc()
		r.logger.Debug("dropping stale building list",
			zap.String("op", "registry.Refresh"),
			zap.Uint64("sequence", seq),
			zap.Uint64("applied", r.applied),
		)
		return nil
	}
	r.applied = seq
	r.buildings = buildings
	r.mu.Unlock()

	metrics.RegistryRefreshesTotal.WithLabelValues(metrics.OutcomeApplied).Inc()
	metrics.RegistryBuildings.Set(float64(len(buildings)))

	for _, b := range buildings {
		for _, warning := range b.Warnings() {
			r.logger.Warn(warning,
				zap.String("op", "registry.Refresh"),
				zap.Int("buildingId", b.ID),
			)
		}
	}
	r.logger.Debug("refreshed buildings",
		zap.String("op", "registry.Refresh"),
		zap.Int("count", len(buildings)),
	)
	return nil
}

// List returns the buildings matching query, highest income first. Buildings
// with equal income keep their backend order.
func (r *Registry) List(query string) []building.Building {
	query = strings.TrimSpace(query)

	r.mu.RLock()
	matched := make([]building.Building, 0, len(r.buildings))
	for _, b := range r.buildings {
		if b.Matches(query) {
			matched = append(matched, b)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CurrTotalIncome > matched[j].CurrTotalIncome
	})
	return matched
}

// Get returns the local copy of the building with id.
func (r *Registry) Get(id int) (building.Building, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.buildings {
		if b.ID == id {
			return b, true
		}
	}
	return building.Building{}, false
}

// Form returns the edit form of the building with id.
func (r *Registry) Form(id int) (building.FormSnapshot, error) {
	b, ok := r.Get(id)
	if !ok {
		return building.FormSnapshot{}, fmt.Errorf("building %d: %w", id, ErrUnknownBuilding)
	}
	return building.FormFromBuilding(b), nil
}

// Suggest returns up to three building names close to query, best first.
func (r *Registry) Suggest(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	type candidate struct {
		name string
		dist int
	}

	r.mu.RLock()
	var cands []candidate
	seen := make(map[string]bool)
	for _, b := range r.buildings {
		name := strings.ToLower(b.Name)
		if name == "" || seen[name] {
			continue
		}
		dist := levenshtein.ComputeDistance(query, name)
		if dist > suggestionLimit(len(name)) {
			continue
		}
		seen[name] = true
		cands = append(cands, candidate{name: b.Name, dist: dist})
	}
	r.mu.RUnlock()

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].name < cands[j].name
		}
		return cands[i].dist < cands[j].dist
	})

	if len(cands) > maxSuggestions {
		cands = cands[:maxSuggestions]
	}
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.name
	}
	return names
}

func suggestionLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// Create submits form as a new building.
func (r *Registry) Create(ctx context.Context, form building.FormSnapshot) error {
	patch := building.Diff(nil, form)
	if err := r.backend.CreateBuilding(ctx, patch); err != nil {
		return fmt.Errorf("failed to create building %q: %w", form.Name, err)
	}
	r.logger.Info("created building",
		zap.String("op", "registry.Create"),
		zap.String("name", form.Name),
	)
	r.refetch(ctx, "registry.Create")
	return nil
}

// Update submits the fields of form that differ from the local copy of the
// building. It reports false, without contacting the backend, when nothing
// changed.
func (r *Registry) Update(ctx context.Context, id int, form building.FormSnapshot) (bool, error) {
	release, err := r.acquire(id)
	if err != nil {
		return false, err
	}
	defer release()

	original, err := r.Form(id)
	if err != nil {
		return false, err
	}

	patch := building.Diff(&original, form)
	if patch.Empty() {
		r.logger.Debug("no changes to submit",
			zap.String("op", "registry.Update"),
			zap.Int("buildingId", id),
		)
		return false, nil
	}

	if err := r.backend.UpdateBuilding(ctx, id, patch); err != nil {
		return false, fmt.Errorf("failed to update building %d: %w", id, err)
	}
	r.logger.Info("updated building",
		zap.String("op", "registry.Update"),
		zap.Int("buildingId", id),
		zap.Strings("fields", patch.Fields()),
	)
	r.refetch(ctx, "registry.Update")
	return true, nil
}

// Delete removes the building with id once confirm approves it.
func (r *Registry) Delete(ctx context.Context, id int, confirm Confirmer) error {
	release, err := r.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	b, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("building %d: %w", id, ErrUnknownBuilding)
	}
	if confirm == nil || !confirm.ConfirmDelete(b) {
		return fmt.Errorf("building %d: %w", id, ErrNotConfirmed)
	}

	if err := r.backend.DeleteBuilding(ctx, id); err != nil {
		return fmt.Errorf("failed to delete building %d: %w", id, err)
	}
	r.logger.Info("deleted building",
		zap.String("op", "registry.Delete"),
		zap.Int("buildingId", id),
		zap.String("name", b.Name),
	)
	r.refetch(ctx, "registry.Delete")
	return nil
}

// LevelUp advances the building with id by one level from its local state.
func (r *Registry) LevelUp(ctx context.Context, id int) (building.Progression, error) {
	release, err := r.acquire(id)
	if err != nil {
		return building.Progression{}, err
	}
	defer release()

	b, ok := r.Get(id)
	if !ok {
		return building.Progression{}, fmt.Errorf("building %d: %w", id, ErrUnknownBuilding)
	}

	progression := building.LevelUp(b)
	if err := r.backend.LevelUp(ctx, id, progression); err != nil {
		return building.Progression{}, fmt.Errorf("failed to level up building %d: %w", id, err)
	}
	r.logger.Info("leveled up building",
		zap.String("op", "registry.LevelUp"),
		zap.Int("buildingId", id),
		zap.Int("level", progression.CurrLevel),
	)
	r.refetch(ctx, "registry.LevelUp")
	return progression, nil
}

// refetch reloads after a write. The write already succeeded, so a failed
// reload is logged and the stale view kept.
func (r *Registry) refetch(ctx context.Context, op string) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("building list may be out of date",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// acquire marks id as having a write in flight.
func (r *Registry) acquire(id int) (func(), error) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	if _, busy := r.pending[id]; busy {
		return nil, fmt.Errorf("building %d: %w", id, ErrBusy)
	}
	r.pending[id] = struct{}{}

	return func() {
		r.pendingMu.Lock()
		delete(r.pending, id)
		r.pendingMu.Unlock()
	}, nil
}
