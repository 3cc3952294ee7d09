package solver

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Engine is the in-process RoutingSolver shipped with the module. It builds
// a first solution with the configured construction heuristic, then runs the
// configured local-search phase as an anytime loop: it can be stopped at any
// moment (deadline or ctx cancellation) and returns the best tours found so
// far. Fixed seed + fixed iteration behavior keeps runs reproducible.
type Engine struct{}

// NewEngine returns a stateless engine; all knobs travel in SearchConfig.
func NewEngine() *Engine { return &Engine{} }

// SolveSubproblem implements RoutingSolver.
func (e *Engine) SolveSubproblem(ctx context.Context, sp Subproblem, cfg SearchConfig) ([][]int, error) {
	n := len(sp.StationIDs)
	routes := make([][]int, len(sp.Capacities))
	if n == 0 {
		return routes, nil
	}

	maxCap := 0.0
	for _, c := range sp.Capacities {
		if c > maxCap {
			maxCap = c
		}
	}
	for _, d := range sp.Demands {
		if d > maxCap {
			return nil, ErrInfeasible
		}
	}

	routes = construct(sp, cfg.Construction)
	if routes == nil {
		// Distance-greedy construction can strand stations even when a
		// packing exists; retry ignoring distance before giving up.
		routes = firstFitDecreasing(sp)
	}
	if routes == nil {
		return nil, ErrInfeasible
	}

	if cfg.Improvement != NoImprovement {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		routes = improve(ctx, sp, routes, cfg.Improvement, time.Now().Add(cfg.TimeBudget), rand.New(rand.NewSource(seed)))
	}
	return routes, nil
}

// construct builds a capacity-feasible first solution, or nil when the
// heuristic strands a station.
func construct(sp Subproblem, strategy ConstructionStrategy) [][]int {
	switch strategy {
	case MostConstrainedArc:
		return constructMostConstrained(sp)
	case CheapestInsertion:
		return constructCheapestInsertion(sp)
	default:
		return constructCheapestArc(sp)
	}
}

// constructCheapestArc repeatedly appends the unassigned station with the
// cheapest arc from some vehicle's last node. Ties go to the lower station
// index, then the lower vehicle index.
func constructCheapestArc(sp Subproblem) [][]int {
	nv := len(sp.Capacities)
	routes := make([][]int, nv)
	loads := make([]float64, nv)
	assigned := make([]bool, len(sp.StationIDs))
	remaining := len(sp.StationIDs)

	for remaining > 0 {
		bestV, bestS := -1, -1
		bestArc := math.MaxFloat64
		for v := 0; v < nv; v++ {
			last := 0
			if len(routes[v]) > 0 {
				last = routes[v][len(routes[v])-1] + 1
			}
			for s := range sp.StationIDs {
				if assigned[s] || loads[v]+sp.Demands[s] > sp.Capacities[v] {
					continue
				}
				if arc := sp.Dist[last][s+1]; arc < bestArc {
					bestArc = arc
					bestV, bestS = v, s
				}
			}
		}
		if bestS < 0 {
			return nil
		}
		routes[bestV] = append(routes[bestV], bestS)
		loads[bestV] += sp.Demands[bestS]
		assigned[bestS] = true
		remaining--
	}
	return routes
}

// constructMostConstrained places the largest demands first, each on the
// vehicle where appending costs the least.
func constructMostConstrained(sp Subproblem) [][]int {
	order := make([]int, len(sp.StationIDs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sp.Demands[order[a]] > sp.Demands[order[b]] })

	nv := len(sp.Capacities)
	routes := make([][]int, nv)
	loads := make([]float64, nv)
	for _, s := range order {
		bestV := -1
		bestArc := math.MaxFloat64
		for v := 0; v < nv; v++ {
			if loads[v]+sp.Demands[s] > sp.Capacities[v] {
				continue
			}
			last := 0
			if len(routes[v]) > 0 {
				last = routes[v][len(routes[v])-1] + 1
			}
			if arc := sp.Dist[last][s+1]; arc < bestArc {
				bestArc = arc
				bestV = v
			}
		}
		if bestV < 0 {
			return nil
		}
		routes[bestV] = append(routes[bestV], s)
		loads[bestV] += sp.Demands[s]
	}
	return routes
}

// constructCheapestInsertion grows tours by the globally cheapest feasible
// insertion, accounting for the return leg to the origin.
func constructCheapestInsertion(sp Subproblem) [][]int {
	nv := len(sp.Capacities)
	routes := make([][]int, nv)
	loads := make([]float64, nv)
	assigned := make([]bool, len(sp.StationIDs))
	remaining := len(sp.StationIDs)

	for remaining > 0 {
		bestV, bestS, bestPos := -1, -1, -1
		bestDelta := math.MaxFloat64
		for s := range sp.StationIDs {
			if assigned[s] {
				continue
			}
			for v := 0; v < nv; v++ {
				if loads[v]+sp.Demands[s] > sp.Capacities[v] {
					continue
				}
				for pos := 0; pos <= len(routes[v]); pos++ {
					if delta := insertionDelta(sp, routes[v], s, pos); delta < bestDelta {
						bestDelta = delta
						bestV, bestS, bestPos = v, s, pos
					}
				}
			}
		}
		if bestS < 0 {
			return nil
		}
		routes[bestV] = insertAt(routes[bestV], bestS, bestPos)
		loads[bestV] += sp.Demands[bestS]
		assigned[bestS] = true
		remaining--
	}
	return routes
}

// firstFitDecreasing packs stations by demand only, as a feasibility
// fallback when distance-greedy construction fails.
func firstFitDecreasing(sp Subproblem) [][]int {
	order := make([]int, len(sp.StationIDs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sp.Demands[order[a]] > sp.Demands[order[b]] })

	nv := len(sp.Capacities)
	routes := make([][]int, nv)
	loads := make([]float64, nv)
	for _, s := range order {
		placed := false
		for v := 0; v < nv; v++ {
			if loads[v]+sp.Demands[s] <= sp.Capacities[v] {
				routes[v] = append(routes[v], s)
				loads[v] += sp.Demands[s]
				placed = true
				break
			}
		}
		if !placed {
			return nil
		}
	}
	return routes
}

func insertionDelta(sp Subproblem, route []int, s, pos int) float64 {
	prev := 0
	if pos > 0 {
		prev = route[pos-1] + 1
	}
	next := 0
	if pos < len(route) {
		next = route[pos] + 1
	}
	return sp.Dist[prev][s+1] + sp.Dist[s+1][next] - sp.Dist[prev][next]
}

func insertAt(route []int, s, pos int) []int {
	route = append(route, 0)
	copy(route[pos+1:], route[pos:])
	route[pos] = s
	return route
}

// tourCost is the closed-tour distance origin -> stations -> origin summed
// over all vehicles.
func tourCost(dist [][]float64, routes [][]int) float64 {
	total := 0.0
	for _, r := range routes {
		if len(r) == 0 {
			continue
		}
		prev := 0
		for _, s := range r {
			total += dist[prev][s+1]
			prev = s + 1
		}
		total += dist[prev][0]
	}
	return total
}

func cloneRoutes(routes [][]int) [][]int {
	out := make([][]int, len(routes))
	for i, r := range routes {
		out[i] = append([]int(nil), r...)
	}
	return out
}

// improve runs the selected metaheuristic until the deadline or ctx cancels,
// returning the best tours seen. Every strategy shares the same two move
// neighborhoods (intra-route 2-opt, inter-route relocate); the strategies
// differ only in the acceptance rule, so the anytime property holds for all.
func improve(ctx context.Context, sp Subproblem, routes [][]int, strategy ImprovementStrategy, deadline time.Time, rng *rand.Rand) [][]int {
	best := cloneRoutes(routes)
	bestCost := tourCost(sp.Dist, best)
	curr := cloneRoutes(routes)
	currCost := bestCost

	// Guided local search state: per-arc penalties on the augmented cost.
	n := len(sp.Dist)
	penalties := make([][]float64, n)
	for i := range penalties {
		penalties[i] = make([]float64, n)
	}
	lambda := bestCost / float64(n*8+1)

	// Tabu state: station -> iteration until which moving it is forbidden.
	tabu := make([]int, len(sp.StationIDs))
	tabuTenure := 5 + len(sp.StationIDs)/4

	temp := math.Max(bestCost/10, 1)
	const cooling = 0.995

	for iter := 0; time.Now().Before(deadline); iter++ {
		select {
		case <-ctx.Done():
			return best
		default:
		}

		cand := cloneRoutes(curr)
		twoOptPass(sp.Dist, cand)
		moved := relocateMove(sp, cand, rng)
		candCost := tourCost(sp.Dist, cand)

		accept := false
		switch strategy {
		case GuidedLocalSearch:
			if augmentedCost(sp.Dist, penalties, lambda, cand) < augmentedCost(sp.Dist, penalties, lambda, curr) {
				accept = true
			} else {
				penalizeLongestArc(sp.Dist, penalties, curr)
			}
		case TabuSearch:
			if moved < 0 || tabu[moved] <= iter {
				accept = true
				if moved >= 0 {
					tabu[moved] = iter + tabuTenure
				}
			}
		case SimulatedAnnealing:
			delta := candCost - currCost
			if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
				accept = true
			}
			temp *= cooling
		default:
			accept = candCost < currCost
		}

		if accept {
			curr = cand
			currCost = candCost
			if candCost+1e-9 < bestCost {
				best = cloneRoutes(cand)
				bestCost = candCost
			}
		}
	}
	return best
}

// twoOptPass applies one first-improvement 2-opt sweep per route in place.
func twoOptPass(dist [][]float64, routes [][]int) {
	for _, r := range routes {
		n := len(r)
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				prev := 0
				if i > 0 {
					prev = r[i-1] + 1
				}
				next := 0
				if k < n-1 {
					next = r[k+1] + 1
				}
				before := dist[prev][r[i]+1] + dist[r[k]+1][next]
				after := dist[prev][r[k]+1] + dist[r[i]+1][next]
				if after+1e-9 < before {
					for a, b := i, k; a < b; a, b = a+1, b-1 {
						r[a], r[b] = r[b], r[a]
					}
				}
			}
		}
	}
}

// relocateMove moves one random station to the cheapest feasible position on
// another vehicle. Returns the station index moved, or -1.
func relocateMove(sp Subproblem, routes [][]int, rng *rand.Rand) int {
	nonEmpty := make([]int, 0, len(routes))
	for v, r := range routes {
		if len(r) > 0 {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return -1
	}
	from := nonEmpty[rng.Intn(len(nonEmpty))]
	idx := rng.Intn(len(routes[from]))
	s := routes[from][idx]

	loads := make([]float64, len(routes))
	for v, r := range routes {
		for _, st := range r {
			loads[v] += sp.Demands[st]
		}
	}

	bestV, bestPos := -1, -1
	bestDelta := math.MaxFloat64
	for v := range routes {
		if v == from || loads[v]+sp.Demands[s] > sp.Capacities[v] {
			continue
		}
		for pos := 0; pos <= len(routes[v]); pos++ {
			if delta := insertionDelta(sp, routes[v], s, pos); delta < bestDelta {
				bestDelta = delta
				bestV, bestPos = v, pos
			}
		}
	}
	if bestV < 0 {
		return -1
	}
	routes[from] = append(routes[from][:idx], routes[from][idx+1:]...)
	routes[bestV] = insertAt(routes[bestV], s, bestPos)
	return s
}

func augmentedCost(dist, penalties [][]float64, lambda float64, routes [][]int) float64 {
	total := tourCost(dist, routes)
	for _, r := range routes {
		prev := 0
		for _, s := range r {
			total += lambda * penalties[prev][s+1]
			prev = s + 1
		}
		if len(r) > 0 {
			total += lambda * penalties[prev][0]
		}
	}
	return total
}

func penalizeLongestArc(dist, penalties [][]float64, routes [][]int) {
	worstU, worstV := -1, -1
	worst := -1.0
	for _, r := range routes {
		prev := 0
		for _, s := range r {
			// Utility of penalizing an arc decays with prior penalties.
			u := dist[prev][s+1] / (1 + penalties[prev][s+1])
			if u > worst {
				worst = u
				worstU, worstV = prev, s+1
			}
			prev = s + 1
		}
	}
	if worstU >= 0 {
		penalties[worstU][worstV]++
		penalties[worstV][worstU]++
	}
}
