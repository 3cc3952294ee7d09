package solver

import (
	"mpvrpcc/internal/model"
)

// ComputeMetrics aggregates a solution's quality figures. It is a pure
// function of the solution: summation runs in route order, so identical
// solutions produce bit-identical metrics. Product changes are counted
// between consecutive mini-routes only; the changeover charged against the
// truck's initial product contributes cost, not a counted change.
func ComputeMetrics(inst *model.Instance, sol *model.Solution, elapsed float64) model.Metrics {
	m := model.Metrics{ComputationTimeSeconds: elapsed}
	for _, route := range sol.Routes {
		if len(route.MiniRoutes) == 0 {
			continue
		}
		m.NumVehiclesUsed++
		m.TotalDistance += route.TotalDistance
		m.TotalChangeoverCost += route.TotalChangeoverCost

		for i := 1; i < len(route.MiniRoutes); i++ {
			if route.MiniRoutes[i].ProductID != route.MiniRoutes[i-1].ProductID {
				m.NumProductChanges++
			}
		}
	}
	m.TotalCost = m.TotalDistance + m.TotalChangeoverCost
	return m
}
