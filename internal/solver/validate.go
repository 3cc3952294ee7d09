package solver

import (
	"fmt"
	"math"

	"mpvrpcc/internal/model"
)

// quantities are compared with a small tolerance because deliveries are sums
// of float64 splits.
const qtyEpsilon = 1e-6

// ViolationKind classifies a validator finding.
type ViolationKind string

const (
	CapacityExceeded ViolationKind = "CapacityExceeded"
	DemandUnmet      ViolationKind = "DemandUnmet"
	StockExceeded    ViolationKind = "StockExceeded"
	CostMismatch     ViolationKind = "CostMismatch"
)

// Violation names one broken constraint and the offending entities.
// Violations are data, never errors: an invalid solution can still be
// inspected, serialized and reported.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	TruckID   int           `json:"truckId,omitempty"`
	ProductID int           `json:"productId,omitempty"`
	StationID int           `json:"stationId,omitempty"`
	DepotID   int           `json:"depotId,omitempty"`
	Detail    string        `json:"detail"`
}

// Validate re-checks a solution against the instance independently of how it
// was produced, so solutions loaded from serialized files get the same
// scrutiny as freshly merged ones. It collects every violation instead of
// stopping at the first.
func Validate(inst *model.Instance, sol *model.Solution) (bool, []Violation) {
	var out []Violation

	delivered := make(map[[2]int]float64) // (stationID, product) -> qty
	dispatched := make(map[[2]int]float64) // (depotID, product) -> qty

	for _, route := range sol.Routes {
		truck, ok := truckByID(inst, route.TruckID)
		if !ok {
			out = append(out, Violation{Kind: CapacityExceeded, TruckID: route.TruckID,
				Detail: fmt.Sprintf("route references unknown truck %d", route.TruckID)})
			continue
		}

		current := truck.InitialProduct
		for i, mr := range route.MiniRoutes {
			// Capacity: the truck is fullest right after loading, then the
			// running load only decreases; check the load and that stops
			// never deliver more than was loaded.
			if mr.LoadQuantity > truck.Capacity+qtyEpsilon {
				out = append(out, Violation{Kind: CapacityExceeded, TruckID: truck.ID, ProductID: mr.ProductID,
					Detail: fmt.Sprintf("truck %d loads %g over capacity %g", truck.ID, mr.LoadQuantity, truck.Capacity)})
			}
			sum := 0.0
			for _, stop := range mr.Stops {
				sum += stop.Quantity
				if sum > mr.LoadQuantity+qtyEpsilon {
					out = append(out, Violation{Kind: CapacityExceeded, TruckID: truck.ID, ProductID: mr.ProductID, StationID: stop.StationID,
						Detail: fmt.Sprintf("truck %d delivers %g of product %d beyond its %g load", truck.ID, sum, mr.ProductID, mr.LoadQuantity)})
				}
				delivered[[2]int{stop.StationID, mr.ProductID}] += stop.Quantity
			}
			dispatched[[2]int{mr.DepotID, mr.ProductID}] += mr.LoadQuantity

			// Changeover: every recorded segment cost must match the matrix
			// exactly, including the first segment against the truck's
			// initial product.
			want := inst.ChangeoverCost(current, mr.ProductID)
			got := 0.0
			if i < len(route.SegmentChangeovers) {
				got = route.SegmentChangeovers[i]
			}
			if got != want {
				out = append(out, Violation{Kind: CostMismatch, TruckID: truck.ID, ProductID: mr.ProductID,
					Detail: fmt.Sprintf("truck %d segment %d charges changeover %g, matrix says %g", truck.ID, i, got, want)})
			}
			current = mr.ProductID
		}
	}

	for _, s := range inst.Stations {
		for p, want := range s.Demand {
			got := delivered[[2]int{s.ID, p}]
			if math.Abs(got-want) > qtyEpsilon {
				out = append(out, Violation{Kind: DemandUnmet, StationID: s.ID, ProductID: p,
					Detail: fmt.Sprintf("station %d received %g of product %d, demand is %g", s.ID, got, p, want)})
			}
		}
	}

	for _, d := range inst.Depots {
		for p := 0; p < inst.NumProducts; p++ {
			got := dispatched[[2]int{d.ID, p}]
			if got > d.Stock[p]+qtyEpsilon {
				out = append(out, Violation{Kind: StockExceeded, DepotID: d.ID, ProductID: p,
					Detail: fmt.Sprintf("depot %d dispatched %g of product %d, stock is %g", d.ID, got, p, d.Stock[p])})
			}
		}
	}

	return len(out) == 0, out
}

func truckByID(inst *model.Instance, id int) (model.Truck, bool) {
	if id >= 1 && id <= len(inst.Trucks) {
		return inst.Trucks[id-1], true
	}
	return model.Truck{}, false
}
