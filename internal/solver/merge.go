package solver

import (
	"sort"

	"mpvrpcc/internal/model"
)

// ProductRoutes carries one product's mini-routes out of its subproblem
// solve, in the order the adapter produced them.
type ProductRoutes struct {
	Product    int
	MiniRoutes []model.MiniRoute
}

// Merge assigns each product's mini-routes onto physical trucks and orders
// them into one complete route per used truck, minimizing total changeover
// cost. Products are processed in the order they were decomposed (ascending
// product id), which fixes tie-breaking.
//
// Placing a mini-route of product p on truck T costs the changeover from T's
// last carried product (initially the truck's initial product) to p; the
// mini-route's travel distance is fixed and does not enter the assignment.
// Within one product every mini-route has the same product, so the cost of a
// truck is uniform: the assignment reduces to choosing, per mini-route in
// descending load order, the cheapest truck whose capacity fits and that has
// not yet taken a mini-route of this product. Capacity eligibility is nested
// (a truck that fits a bigger load fits every smaller one), so this greedy
// order is cost-optimal. Exact cost ties go to the lower truck id.
func Merge(inst *model.Instance, perProduct []ProductRoutes) (model.Solution, error) {
	nTrucks := len(inst.Trucks)
	lastProduct := make([]int, nTrucks)
	for i, t := range inst.Trucks {
		lastProduct[i] = t.InitialProduct
	}
	assigned := make([][]model.MiniRoute, nTrucks)
	changeovers := make([][]float64, nTrucks)

	for _, pr := range perProduct {
		if len(pr.MiniRoutes) > nTrucks {
			return model.Solution{}, &UnassignableRouteError{Product: pr.Product, MiniRoutes: len(pr.MiniRoutes), Trucks: nTrucks}
		}

		order := make([]int, len(pr.MiniRoutes))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return pr.MiniRoutes[order[a]].LoadQuantity > pr.MiniRoutes[order[b]].LoadQuantity
		})

		taken := make([]bool, nTrucks)
		for _, mi := range order {
			mr := pr.MiniRoutes[mi]
			best := -1
			bestCost := 0.0
			for ti, t := range inst.Trucks {
				if taken[ti] || t.Capacity < mr.LoadQuantity {
					continue
				}
				c := inst.ChangeoverCost(lastProduct[ti], pr.Product)
				if best < 0 || c < bestCost {
					best = ti
					bestCost = c
				}
			}
			if best < 0 {
				return model.Solution{}, &UnassignableRouteError{Product: pr.Product, MiniRoutes: len(pr.MiniRoutes), Trucks: nTrucks}
			}
			taken[best] = true
			assigned[best] = append(assigned[best], mr)
			changeovers[best] = append(changeovers[best], bestCost)
			lastProduct[best] = pr.Product
		}
	}

	sol := model.Solution{InstanceName: inst.Name}
	for ti, t := range inst.Trucks {
		if len(assigned[ti]) == 0 {
			continue
		}
		route := model.CompleteRoute{
			TruckID:            t.ID,
			GarageID:           t.GarageID,
			MiniRoutes:         assigned[ti],
			SegmentChangeovers: changeovers[ti],
		}
		route.TotalDistance = routeDistance(inst, route)
		for _, c := range route.SegmentChangeovers {
			route.TotalChangeoverCost += c
		}
		route.TotalCost = route.TotalDistance + route.TotalChangeoverCost
		sol.Routes = append(sol.Routes, route)
	}
	return sol, nil
}

// routeDistance walks the complete itinerary: garage, each mini-route's
// depot then stations in order, and back to the garage.
func routeDistance(inst *model.Instance, route model.CompleteRoute) float64 {
	if len(route.MiniRoutes) == 0 {
		return 0
	}
	total := 0.0
	prevKind := model.KindGarage
	prevID := route.GarageID
	for _, mr := range route.MiniRoutes {
		if prevKind != model.KindDepot || prevID != mr.DepotID {
			total += inst.Distance(prevKind, prevID, model.KindDepot, mr.DepotID)
			prevKind, prevID = model.KindDepot, mr.DepotID
		}
		for _, stop := range mr.Stops {
			total += inst.Distance(prevKind, prevID, model.KindStation, stop.StationID)
			prevKind, prevID = model.KindStation, stop.StationID
		}
	}
	total += inst.Distance(prevKind, prevID, model.KindGarage, route.GarageID)
	return total
}
