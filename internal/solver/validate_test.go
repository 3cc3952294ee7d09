package solver

import (
	"testing"

	"mpvrpcc/internal/model"
)

func feasiblePair() (*model.Instance, model.Solution) {
	inst := model.NewInstance("valid")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 50, 1: 50}, "")
	inst.AddStation(20, 0, map[int]float64{0: 30, 1: 20}, "")
	inst.AddTruck(60, 1, 0)
	inst.SetChangeoverCosts(map[model.ProductPair]float64{
		{From: 0, To: 1}: 5,
		{From: 1, To: 0}: 7,
	})

	sol := model.Solution{InstanceName: "valid", Routes: []model.CompleteRoute{{
		TruckID:  1,
		GarageID: 1,
		MiniRoutes: []model.MiniRoute{
			{DepotID: 1, ProductID: 0, LoadQuantity: 30, Stops: []model.StopVisit{{StationID: 1, Quantity: 30}}},
			{DepotID: 1, ProductID: 1, LoadQuantity: 20, Stops: []model.StopVisit{{StationID: 1, Quantity: 20}}},
		},
		SegmentChangeovers: []float64{0, 5},
	}}}
	return inst, sol
}

func TestValidateCleanSolution(t *testing.T) {
	inst, sol := feasiblePair()
	ok, violations := Validate(inst, &sol)
	if !ok {
		t.Fatalf("expected feasible, got %+v", violations)
	}
}

func findKind(violations []Violation, kind ViolationKind) *Violation {
	for i := range violations {
		if violations[i].Kind == kind {
			return &violations[i]
		}
	}
	return nil
}

func TestValidateCapacityExceeded(t *testing.T) {
	inst, sol := feasiblePair()
	sol.Routes[0].MiniRoutes[0].LoadQuantity = 100 // capacity is 60
	ok, violations := Validate(inst, &sol)
	if ok {
		t.Fatal("expected violations")
	}
	if v := findKind(violations, CapacityExceeded); v == nil || v.TruckID != 1 {
		t.Fatalf("capacity violation missing: %+v", violations)
	}
}

func TestValidateOverDelivery(t *testing.T) {
	inst, sol := feasiblePair()
	// deliver more than the mini-route loaded
	sol.Routes[0].MiniRoutes[0].Stops[0].Quantity = 45
	ok, violations := Validate(inst, &sol)
	if ok {
		t.Fatal("expected violations")
	}
	if findKind(violations, CapacityExceeded) == nil {
		t.Fatalf("over-delivery not flagged: %+v", violations)
	}
}

func TestValidateDemandUnmet(t *testing.T) {
	inst, sol := feasiblePair()
	sol.Routes[0].MiniRoutes[1].Stops = nil // product 1 never delivered
	ok, violations := Validate(inst, &sol)
	if ok {
		t.Fatal("expected violations")
	}
	v := findKind(violations, DemandUnmet)
	if v == nil || v.StationID != 1 || v.ProductID != 1 {
		t.Fatalf("demand violation missing: %+v", violations)
	}
}

func TestValidateStockExceeded(t *testing.T) {
	inst, sol := feasiblePair()
	// shrink stock below what the route dispatches
	inst.Depots[0].Stock[0] = 10
	ok, violations := Validate(inst, &sol)
	if ok {
		t.Fatal("expected violations")
	}
	v := findKind(violations, StockExceeded)
	if v == nil || v.DepotID != 1 || v.ProductID != 0 {
		t.Fatalf("stock violation missing: %+v", violations)
	}
}

func TestValidateChangeoverMismatch(t *testing.T) {
	inst, sol := feasiblePair()
	sol.Routes[0].SegmentChangeovers[1] = 4 // matrix says 5
	ok, violations := Validate(inst, &sol)
	if ok {
		t.Fatal("expected violations")
	}
	if findKind(violations, CostMismatch) == nil {
		t.Fatalf("cost mismatch not flagged: %+v", violations)
	}
}

func TestValidateUnknownTruck(t *testing.T) {
	inst, sol := feasiblePair()
	sol.Routes[0].TruckID = 9
	ok, violations := Validate(inst, &sol)
	if ok || len(violations) == 0 {
		t.Fatal("unknown truck should be flagged")
	}
}
