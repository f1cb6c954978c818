package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/internal/registry"
	"github.com/iwvelando/topgirl-optimizer/pkg/testutil"
	"go.uber.org/zap"
)

func manyBuildings(n int) []building.Building {
	buildings := make([]building.Building, n)
	for i := range buildings {
		buildings[i] = building.Building{
			ID:              i + 1,
			Name:            fmt.Sprintf("Building %04d", i+1),
			CurrLevel:       1 + i%50,
			NumEmployees:    1 + i%7,
			CurrCoefficient: 1,
			NextCoefficient: 1.1,
			GoldToUpgrade:   float64(10 + i%100),
			CurrTotalIncome: float64((i * 7919) % 100000),
		}
	}
	return buildings
}

// TestRegistryPerformance checks that refresh, search and suggestions stay
// fast for a large collection.
func TestRegistryPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}

	reg := registry.New(testutil.NewFakeBackend(manyBuildings(5000)...), zap.NewNop())
	ctx := context.Background()

	start := time.Now()
	iterations := 20
	for i := 0; i < iterations; i++ {
		if err := reg.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if got := reg.List("building 01"); len(got) != 100 {
			t.Fatalf("List() returned %d buildings, expected 100", len(got))
		}
		if got := reg.Suggest("buildnig 0042"); len(got) == 0 {
			t.Fatal("Suggest() returned nothing")
		}
	}
	elapsed := time.Since(start)

	avg := elapsed / time.Duration(iterations)
	t.Logf("average refresh+list+suggest over 5000 buildings: %v", avg)
	if avg > 500*time.Millisecond {
		t.Errorf("registry too slow: %v per iteration", avg)
	}
}

// TestListOrderIsStable checks that repeated listings of equal incomes keep
// the backend order.
func TestListOrderIsStable(t *testing.T) {
	buildings := manyBuildings(200)
	for i := range buildings {
		buildings[i].CurrTotalIncome = float64(i % 3)
	}
	reg := registry.New(testutil.NewFakeBackend(buildings...), zap.NewNop())
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	first := testutil.Names(reg.List(""))
	for i := 0; i < 10; i++ {
		again := testutil.Names(reg.List(""))
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("listing %d differs at %d: %s vs %s", i, j, first[j], again[j])
			}
		}
	}

	// Ids ascend within each income group
	list := reg.List("")
	for j := 1; j < len(list); j++ {
		if list[j].CurrTotalIncome == list[j-1].CurrTotalIncome && list[j].ID < list[j-1].ID {
			t.Fatalf("order not stable at %d: %d after %d", j, list[j].ID, list[j-1].ID)
		}
	}
}
