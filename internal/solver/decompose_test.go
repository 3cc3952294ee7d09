package solver

import (
	"errors"
	"reflect"
	"testing"

	"mpvrpcc/internal/model"
)

func twoProductInstance() *model.Instance {
	inst := model.NewInstance("two-product")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(10, 0, map[int]float64{0: 100, 1: 50}, "")
	inst.AddDepot(0, 10, map[int]float64{1: 80}, "")
	inst.AddStation(20, 0, map[int]float64{0: 30}, "")
	inst.AddStation(30, 0, map[int]float64{0: 20, 1: 40}, "")
	inst.AddStation(0, 30, map[int]float64{1: 25}, "")
	inst.AddTruck(60, 1, 0)
	inst.AddTruck(60, 1, 1)
	inst.SetChangeoverCosts(map[model.ProductPair]float64{
		{From: 0, To: 1}: 5,
		{From: 1, To: 0}: 7,
	})
	return inst
}

func TestDecomposeProjectsPerProduct(t *testing.T) {
	inst := twoProductInstance()
	subs, err := Decompose(inst)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d subproblems, want 2", len(subs))
	}

	p0 := subs[0]
	if p0.Product != 0 {
		t.Fatalf("first subproblem product = %d", p0.Product)
	}
	if !reflect.DeepEqual(p0.StationIDs, []int{1, 2}) {
		t.Fatalf("p0 stations = %v", p0.StationIDs)
	}
	if !reflect.DeepEqual(p0.Demands, []float64{30, 20}) {
		t.Fatalf("p0 demands = %v", p0.Demands)
	}
	if !reflect.DeepEqual(p0.DepotIDs, []int{1}) {
		t.Fatalf("p0 depots = %v", p0.DepotIDs)
	}

	p1 := subs[1]
	if !reflect.DeepEqual(p1.StationIDs, []int{2, 3}) {
		t.Fatalf("p1 stations = %v", p1.StationIDs)
	}
	if !reflect.DeepEqual(p1.DepotIDs, []int{1, 2}) {
		t.Fatalf("p1 depots = %v", p1.DepotIDs)
	}

	// depot 1 at (10,0), station 1 at (20,0): distance 10
	if p0.Dist[0][1] != 10 {
		t.Fatalf("origin-station distance = %g, want 10", p0.Dist[0][1])
	}
	if p0.Dist[1][2] != p0.Dist[2][1] {
		t.Fatal("distance matrix not symmetric")
	}
	if len(p0.Capacities) != 2 {
		t.Fatalf("capacities = %v", p0.Capacities)
	}
}

func TestDecomposeIsPure(t *testing.T) {
	inst := twoProductInstance()
	a, err := Decompose(inst)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	b, err := Decompose(inst)
	if err != nil {
		t.Fatalf("Decompose again: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two decompositions of the same instance differ")
	}
}

func TestDecomposeSkipsZeroDemandProduct(t *testing.T) {
	inst := model.NewInstance("sparse")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(1, 0, map[int]float64{0: 10, 1: 10, 2: 10}, "")
	inst.AddStation(2, 0, map[int]float64{2: 5}, "")
	inst.AddTruck(20, 1, 0)

	subs, err := Decompose(inst)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(subs) != 1 || subs[0].Product != 2 {
		t.Fatalf("subs = %+v, want only product 2", subs)
	}
}

func TestDecomposeInsufficientSupply(t *testing.T) {
	inst := model.NewInstance("short")
	inst.AddGarage(0, 0, "")
	inst.AddDepot(1, 0, map[int]float64{0: 100}, "")
	inst.AddStation(2, 0, map[int]float64{0: 150}, "")
	inst.AddTruck(200, 1, 0)

	_, err := Decompose(inst)
	var serr *InsufficientSupplyError
	if !errors.As(err, &serr) {
		t.Fatalf("want InsufficientSupplyError, got %v", err)
	}
	if serr.Product != 0 || serr.Demand != 150 || serr.Stock != 100 {
		t.Fatalf("error fields: %+v", serr)
	}
}
