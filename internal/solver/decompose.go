package solver

import (
	"mpvrpcc/internal/model"
)

// Subproblem is one product's capacitated routing projection of an instance.
// Node 0 is the loading origin (the concatenated garage/depot entry point,
// anchored at the primary depot); nodes 1..n are the stations with nonzero
// demand for the product, in ascending station id order.
type Subproblem struct {
	Product int
	// DepotIDs lists depots with nonzero stock of the product, ascending.
	// The first one anchors the origin node.
	DepotIDs []int
	// StationIDs lists the stations with nonzero demand, ascending.
	StationIDs []int
	// Demands is aligned with StationIDs.
	Demands []float64
	// Dist is the (1+len(StationIDs))² distance matrix over origin+stations.
	Dist [][]float64
	// Capacities holds one entry per truck, in truck order.
	Capacities []float64
}

// Decompose projects a multi-product instance into independent per-product
// subproblems, enumerated in ascending product id so downstream tie-breaking
// is reproducible. Products with zero total demand are skipped. A product
// whose demand exceeds total stock fails the whole decomposition with
// *InsufficientSupplyError before any search runs.
//
// Decomposition is a pure read of the instance: running it twice yields
// identical node sets and distance matrices.
func Decompose(inst *model.Instance) ([]Subproblem, error) {
	if err := supplyShortfall(inst); err != nil {
		return nil, err
	}
	demand := inst.TotalDemand()

	subs := make([]Subproblem, 0, inst.NumProducts)
	for p := 0; p < inst.NumProducts; p++ {
		if demand[p] <= 0 {
			continue
		}

		sp := Subproblem{Product: p}
		for _, d := range inst.Depots {
			if d.Stock[p] > 0 {
				sp.DepotIDs = append(sp.DepotIDs, d.ID)
			}
		}
		for _, s := range inst.Stations {
			if s.Demand[p] > 0 {
				sp.StationIDs = append(sp.StationIDs, s.ID)
				sp.Demands = append(sp.Demands, s.Demand[p])
			}
		}

		sp.Dist = buildDistanceMatrix(inst, sp.DepotIDs[0], sp.StationIDs)
		sp.Capacities = make([]float64, len(inst.Trucks))
		for i, t := range inst.Trucks {
			sp.Capacities[i] = t.Capacity
		}
		subs = append(subs, sp)
	}
	return subs, nil
}

// supplyShortfall reports the first demanded product whose total station
// demand exceeds total depot stock.
func supplyShortfall(inst *model.Instance) error {
	demand := inst.TotalDemand()
	stock := inst.TotalStock()
	for p := range demand {
		if demand[p] > 0 && stock[p] < demand[p] {
			return &InsufficientSupplyError{Product: p, Demand: demand[p], Stock: stock[p]}
		}
	}
	return nil
}

// buildDistanceMatrix derives Euclidean distances for origin + stations.
func buildDistanceMatrix(inst *model.Instance, originDepotID int, stationIDs []int) [][]float64 {
	n := len(stationIDs) + 1
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 1; i < n; i++ {
		d := inst.Distance(model.KindDepot, originDepotID, model.KindStation, stationIDs[i-1])
		dist[0][i] = d
		dist[i][0] = d
	}
	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := inst.Distance(model.KindStation, stationIDs[i-1], model.KindStation, stationIDs[j-1])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}
