package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/iwvelando/topgirl-optimizer/internal/session"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"github.com/iwvelando/topgirl-optimizer/pkg/testutil"
	"go.uber.org/zap"
)

func TestLoadParams(t *testing.T) {
	ctx := context.Background()
	backendReq := optimization.Request{CurrentMoney: 1, CurrentGold: 2, TradeX: 3, TradeY: 4, SessionSeconds: 5}
	storedReq := optimization.Request{CurrentMoney: 10, CurrentGold: 20, TradeX: 30, TradeY: 40, SessionSeconds: 50}

	tests := []struct {
		name           string
		backendLast    *optimization.Request
		stored         *optimization.Request
		expected       optimization.Request
		expectedSource string
	}{
		{
			name:           "backend wins",
			backendLast:    &backendReq,
			stored:         &storedReq,
			expected:       backendReq,
			expectedSource: SourceBackend,
		},
		{
			name:           "session when backend has none",
			stored:         &storedReq,
			expected:       storedReq,
			expectedSource: SourceSession,
		},
		{
			name:           "defaults when nothing saved",
			expected:       optimization.DefaultRequest(),
			expectedSource: SourceDefaults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeBackend()
			fake.Last = tt.backendLast

			store := session.NewStore(session.NewMemoryKV(), "", zap.NewNop())
			if tt.stored != nil {
				if err := store.Save(ctx, *tt.stored); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			got, source := New(fake, store, nil).LoadParams(ctx)
			if got != tt.expected {
				t.Errorf("LoadParams() = %+v, expected %+v", got, tt.expected)
			}
			if source != tt.expectedSource {
				t.Errorf("LoadParams() source = %s, expected %s", source, tt.expectedSource)
			}
		})
	}
}

type unreachable struct{}

func (unreachable) Optimize(context.Context, optimization.Request) (optimization.Result, error) {
	return optimization.Result{}, errors.New("connection refused")
}

func (unreachable) LastRequest(context.Context) (optimization.Request, error) {
	return optimization.Request{}, errors.New("connection refused")
}

func TestLoadParamsBackendDown(t *testing.T) {
	got, source := New(unreachable{}, nil, nil).LoadParams(context.Background())
	if source != SourceDefaults || got != optimization.DefaultRequest() {
		t.Errorf("LoadParams() = %+v from %s, expected defaults", got, source)
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeBackend()
	fake.OptimizeResult = optimization.Result{
		TotalIncomeEarned:    5000,
		FinalIncomePerSecond: 12.5,
		UpgradePlan: []optimization.UpgradeStep{
			{BuildingName: "Cafe", UpgradeTime: 30, NewTotalIncome: 800, CurrLevel: 2},
		},
	}
	store := session.NewStore(session.NewMemoryKV(), "", nil)
	dash := New(fake, store, zap.NewNop())

	req := optimization.Params{Money: "2.5m", Gold: "12k", TradeX: "2", TradeY: "1"}.Request()
	result, err := dash.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.UpgradePlan) != 1 || result.TotalIncomeEarned != 5000 {
		t.Errorf("Run() = %+v", result)
	}

	calls := fake.CallsOf("optimize")
	if len(calls) != 1 || calls[0].Request.CurrentMoney != 2500000 || calls[0].Request.CurrentGold != 12000 {
		t.Errorf("optimize calls = %+v", calls)
	}
	if saved, ok := store.Load(ctx); !ok || saved != req {
		t.Errorf("saved request = %+v, %v; expected %+v", saved, ok, req)
	}
}

func TestRunKeepsRequestWhenBackendFails(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryKV(), "", nil)

	req := optimization.DefaultRequest()
	req.CurrentMoney = 777
	if _, err := New(unreachable{}, store, nil).Run(ctx, req); err == nil {
		t.Fatal("expected Run() to surface the backend failure")
	}
	if saved, ok := store.Load(ctx); !ok || saved != req {
		t.Errorf("saved request = %+v, %v; expected %+v", saved, ok, req)
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeBackend()
	store := session.NewStore(session.NewMemoryKV(), "", nil)

	req := optimization.DefaultRequest()
	req.SessionSeconds = 0
	if _, err := New(fake, store, nil).Run(ctx, req); err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(fake.CallsOf("optimize")); n != 0 {
		t.Errorf("expected no optimize call, got %d", n)
	}
	if _, ok := store.Load(ctx); ok {
		t.Error("expected nothing saved for an invalid request")
	}
}
