// Package testutil provides common utility functions for testing.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/iwvelando/topgirl-optimizer/internal/backend"
	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
)

// FindBuilding finds a building by name in the buildings slice.
// Returns a pointer to the building if found, nil otherwise.
func FindBuilding(buildings []building.Building, name string) *building.Building {
	for i := range buildings {
		if buildings[i].Name == name {
			return &buildings[i]
		}
	}
	return nil
}

// Names returns the building names in order.
func Names(buildings []building.Building) []string {
	names := make([]string, len(buildings))
	for i, b := range buildings {
		names[i] = b.Name
	}
	return names
}

// Call is one request received by FakeBackend.
type Call struct {
	Method      string
	ID          int
	Patch       building.Patch
	Progression building.Progression
	Request     optimization.Request
}

// FakeBackend is an in-memory backend. Writes are applied to Buildings so a
// later list reflects them.
type FakeBackend struct {
	mu sync.Mutex

	Buildings []building.Building
	Calls     []Call

	// WriteErr fails every write, ListErr every list.
	WriteErr error
	ListErr  error

	OptimizeResult optimization.Result
	OptimizeErr    error
	Last           *optimization.Request

	// When Gate is set, writes signal Started and then wait on Gate.
	Started chan struct{}
	Gate    chan struct{}

	nextID int
}

// NewFakeBackend returns a backend holding buildings.
func NewFakeBackend(buildings ...building.Building) *FakeBackend {
	next := 1
	for _, b := range buildings {
		if b.ID >= next {
			next = b.ID + 1
		}
	}
	return &FakeBackend{Buildings: buildings, nextID: next}
}

// CallsOf returns the recorded calls with method.
func (f *FakeBackend) CallsOf(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var calls []Call
	for _, c := range f.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *FakeBackend) record(c Call) {
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	f.mu.Unlock()
}

func (f *FakeBackend) wait(ctx context.Context) error {
	if f.Gate == nil {
		return nil
	}
	if f.Started != nil {
		f.Started <- struct{}{}
	}
	select {
	case <-f.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeBackend) ListBuildings(_ context.Context) ([]building.Building, error) {
	f.record(Call{Method: "list"})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]building.Building, len(f.Buildings))
	copy(out, f.Buildings)
	return out, nil
}

func (f *FakeBackend) CreateBuilding(ctx context.Context, patch building.Patch) error {
	f.record(Call{Method: "create", Patch: patch})
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	b := building.Building{ID: f.nextID}
	f.nextID++
	if err := applyPatch(&b, patch); err != nil {
		return err
	}
	f.Buildings = append(f.Buildings, b)
	return nil
}

func (f *FakeBackend) UpdateBuilding(ctx context.Context, id int, patch building.Patch) error {
	f.record(Call{Method: "update", ID: id, Patch: patch})
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	b := f.find(id)
	if b == nil {
		return notFound(backend.EndpointUpdateBuilding)
	}
	return applyPatch(b, patch)
}

func (f *FakeBackend) DeleteBuilding(ctx context.Context, id int) error {
	f.record(Call{Method: "delete", ID: id})
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	for i := range f.Buildings {
		if f.Buildings[i].ID == id {
			f.Buildings = append(f.Buildings[:i], f.Buildings[i+1:]...)
			return nil
		}
	}
	return notFound(backend.EndpointDeleteBuilding)
}

func (f *FakeBackend) LevelUp(ctx context.Context, id int, progression building.Progression) error {
	f.record(Call{Method: "levelup", ID: id, Progression: progression})
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	b := f.find(id)
	if b == nil {
		return notFound(backend.EndpointLevelUp)
	}
	b.CurrLevel = progression.CurrLevel
	b.CurrCoefficient = progression.CurrCoefficient
	b.NextCoefficient = progression.NextCoefficient
	return nil
}

func (f *FakeBackend) Optimize(_ context.Context, req optimization.Request) (optimization.Result, error) {
	f.record(Call{Method: "optimize", Request: req})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OptimizeErr != nil {
		return optimization.Result{}, f.OptimizeErr
	}
	last := req
	f.Last = &last
	return f.OptimizeResult, nil
}

func (f *FakeBackend) LastRequest(_ context.Context) (optimization.Request, error) {
	f.record(Call{Method: "last"})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Last == nil {
		return optimization.Request{}, notFound(backend.EndpointLastOptimize)
	}
	return *f.Last, nil
}

func (f *FakeBackend) find(id int) *building.Building {
	for i := range f.Buildings {
		if f.Buildings[i].ID == id {
			return &f.Buildings[i]
		}
	}
	return nil
}

func notFound(endpoint string) error {
	return &backend.StatusError{Endpoint: endpoint, StatusCode: http.StatusNotFound, Detail: "Building not found"}
}

// applyPatch mimics the backend's validation: numeric fields reject text.
func applyPatch(b *building.Building, patch building.Patch) error {
	for field, value := range patch {
		if field == building.FieldName {
			name, _ := value.(string)
			b.Name = name
			continue
		}

		var number float64
		switch v := value.(type) {
		case int64:
			number = float64(v)
		case float64:
			number = v
		default:
			return &backend.StatusError{
				StatusCode: http.StatusUnprocessableEntity,
				Detail:     fmt.Sprintf("%s: value is not a valid number", field),
			}
		}

		switch field {
		case building.FieldCurrLevel:
			b.CurrLevel = int(number)
		case building.FieldNumEmployees:
			b.NumEmployees = int(number)
		case building.FieldCurrCoefficient:
			b.CurrCoefficient = number
		case building.FieldNextCoefficient:
			b.NextCoefficient = number
		case building.FieldGoldToUpgrade:
			b.GoldToUpgrade = number
		case building.FieldCurrTotalIncome:
			b.CurrTotalIncome = number
		default:
			return errors.New("unknown field " + field)
		}
	}
	return nil
}
