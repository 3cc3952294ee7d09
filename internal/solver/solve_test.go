package solver

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"mpvrpcc/internal/model"
)

func fastConfig() SearchConfig {
	cfg := DefaultSearchConfig()
	cfg.Improvement = NoImprovement
	cfg.TimeBudget = 500 * time.Millisecond
	return cfg
}

func TestSolveSingleProductLine(t *testing.T) {
	inst := model.NewInstance("line")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 30}, "")
	inst.AddStation(30, 0, map[int]float64{0: 40}, "")
	inst.AddTruck(100, 1, 0)

	sol, m, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sol.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(sol.Routes))
	}
	// garage -> depot -> station1 -> station2 -> garage: 10+10+10+30
	if math.Abs(sol.Routes[0].TotalDistance-60) > 1e-9 {
		t.Fatalf("distance = %g, want 60", sol.Routes[0].TotalDistance)
	}
	if m.TotalChangeoverCost != 0 || m.NumProductChanges != 0 {
		t.Fatalf("single-product solve charged changeovers: %+v", m)
	}
	if m.NumVehiclesUsed != 1 || m.TotalCost != m.TotalDistance {
		t.Fatalf("metrics = %+v", m)
	}

	if ok, violations := Validate(inst, &sol); !ok {
		t.Fatalf("solver output invalid: %+v", violations)
	}
}

func TestSolveTwoProductsOneTruck(t *testing.T) {
	inst := model.NewInstance("two-products")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 50, 1: 50}, "")
	inst.AddStation(20, 0, map[int]float64{0: 30, 1: 20}, "")
	inst.AddTruck(60, 1, 0)
	inst.SetChangeoverCosts(map[model.ProductPair]float64{
		{From: 0, To: 1}: 5,
		{From: 1, To: 0}: 7,
	})

	sol, m, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sol.Routes) != 1 || len(sol.Routes[0].MiniRoutes) != 2 {
		t.Fatalf("solution shape: %+v", sol)
	}
	// products run in ascending order; the truck starts on 0, so only the
	// 0 -> 1 switch is charged
	if m.TotalChangeoverCost != 5 || m.NumProductChanges != 1 {
		t.Fatalf("metrics = %+v", m)
	}
	if ok, violations := Validate(inst, &sol); !ok {
		t.Fatalf("solver output invalid: %+v", violations)
	}
}

func TestSolveInsufficientSupply(t *testing.T) {
	inst := model.NewInstance("short")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 150}, "")
	inst.AddTruck(200, 1, 0)

	_, _, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	var serr *InsufficientSupplyError
	if !errors.As(err, &serr) {
		t.Fatalf("want InsufficientSupplyError, got %v", err)
	}
	if serr.Product != 0 || serr.Demand != 150 || serr.Stock != 100 {
		t.Fatalf("error fields: %+v", serr)
	}
}

func TestSolveCapacityInfeasible(t *testing.T) {
	inst := model.NewInstance("tiny-truck")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 40}, "")
	// plenty of fleet in aggregate, but no single truck carries the 40
	for i := 0; i < 5; i++ {
		inst.AddTruck(10, 1, 0)
	}

	_, _, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("want ErrInfeasible, got %v", err)
	}
	var perr *InfeasibleProductsError
	if !errors.As(err, &perr) {
		t.Fatalf("want InfeasibleProductsError, got %v", err)
	}
	if !reflect.DeepEqual(perr.Products, []int{0}) {
		t.Fatalf("products = %v", perr.Products)
	}
}

func TestSolveCollectsAllInfeasibleProducts(t *testing.T) {
	inst := model.NewInstance("both-bad")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100, 1: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 40, 1: 50}, "")
	for i := 0; i < 5; i++ {
		inst.AddTruck(10, 1, 0)
	}

	_, _, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	var perr *InfeasibleProductsError
	if !errors.As(err, &perr) {
		t.Fatalf("want InfeasibleProductsError, got %v", err)
	}
	if !reflect.DeepEqual(perr.Products, []int{0, 1}) {
		t.Fatalf("products = %v, want both", perr.Products)
	}
}

func TestSolveInvalidInstance(t *testing.T) {
	inst := model.NewInstance("broken")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 40}, "")
	inst.AddTruck(50, 9, 0) // garage 9 does not exist

	_, _, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(verr.Problems) == 0 {
		t.Fatal("validation error carries no problems")
	}
}

func TestSolveCancelledContext(t *testing.T) {
	inst := model.NewInstance("cancelled")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 40}, "")
	inst.AddTruck(50, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Solve(ctx, inst, NewEngine(), fastConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestSolveZeroDemandInstance(t *testing.T) {
	inst := model.NewInstance("idle")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100}, "")
	inst.AddStation(20, 0, map[int]float64{0: 0}, "")
	inst.AddTruck(50, 1, 0)

	sol, m, err := Solve(context.Background(), inst, NewEngine(), fastConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(sol.Routes) != 0 || m.NumVehiclesUsed != 0 {
		t.Fatalf("expected empty solution, got %+v %+v", sol, m)
	}
}

func TestSolveDeterministic(t *testing.T) {
	inst := twoProductInstance()
	cfg := fastConfig()

	a, _, err := Solve(context.Background(), inst, NewEngine(), cfg)
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	b, _, err := Solve(context.Background(), inst, NewEngine(), cfg)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same config produced different solutions:\n%+v\n%+v", a, b)
	}
}

func TestSolveReportsProgress(t *testing.T) {
	inst := twoProductInstance()
	cfg := fastConfig()
	var mu sync.Mutex
	seen := map[int]bool{}
	cfg.Progress = func(product, routes int) {
		mu.Lock()
		seen[product] = true
		mu.Unlock()
	}

	if _, _, err := Solve(context.Background(), inst, NewEngine(), cfg); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("progress seen = %v, want both products", seen)
	}
}
