package solver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"mpvrpcc/internal/model"
)

// Solve runs the full pipeline: decompose the instance per product, solve
// each subproblem on the routing solver, merge the mini-routes onto trucks
// and compute metrics.
//
// Subproblems are independent (they share only the read-only instance), so
// they run in parallel on a worker pool bounded by cfg.Workers (default
// GOMAXPROCS). The time budget is split equally across products; each
// product's search returns its best-so-far when the share expires.
// Cancelling ctx stops at product granularity: running subproblems finish
// their current anytime step and the whole solve returns ctx.Err().
//
// Per-product infeasibility is collected across all products before
// reporting, so the caller sees every problematic product at once.
func Solve(ctx context.Context, inst *model.Instance, rs RoutingSolver, cfg SearchConfig) (model.Solution, model.Metrics, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return model.Solution{}, model.Metrics{}, err
	}
	// Supply shortfall has its own error type; check it ahead of the
	// structural validation so that error is not folded into the generic
	// problem list.
	if err := supplyShortfall(inst); err != nil {
		return model.Solution{}, model.Metrics{}, err
	}
	if ok, problems := inst.Validate(); !ok {
		return model.Solution{}, model.Metrics{}, &ValidationError{Problems: problems}
	}

	subs, err := Decompose(inst)
	if err != nil {
		return model.Solution{}, model.Metrics{}, err
	}
	if len(subs) == 0 {
		return model.Solution{InstanceName: inst.Name}, ComputeMetrics(inst, &model.Solution{}, time.Since(start).Seconds()), nil
	}

	perSub := cfg
	perSub.TimeBudget = cfg.TimeBudget / time.Duration(len(subs))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][][]int, len(subs))
	errs := make([]error, len(subs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			results[i], errs[i] = rs.SolveSubproblem(ctx, subs[i], perSub)
			if errs[i] == nil && cfg.Progress != nil {
				cfg.Progress(subs[i].Product, countNonEmpty(results[i]))
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return model.Solution{}, model.Metrics{}, err
	}

	var infeasible []int
	for i, e := range errs {
		switch {
		case e == nil:
		case errors.Is(e, ErrInfeasible):
			infeasible = append(infeasible, subs[i].Product)
		default:
			return model.Solution{}, model.Metrics{}, fmt.Errorf("solve product %d: %w", subs[i].Product, e)
		}
	}
	if len(infeasible) > 0 {
		return model.Solution{}, model.Metrics{}, newInfeasibleProductsError(infeasible)
	}

	perProduct := make([]ProductRoutes, 0, len(subs))
	for i, sp := range subs {
		pr, err := buildMiniRoutes(inst, sp, results[i])
		if err != nil {
			if errors.Is(err, ErrInfeasible) {
				infeasible = append(infeasible, sp.Product)
				continue
			}
			return model.Solution{}, model.Metrics{}, err
		}
		perProduct = append(perProduct, pr)
	}
	if len(infeasible) > 0 {
		return model.Solution{}, model.Metrics{}, newInfeasibleProductsError(infeasible)
	}

	sol, err := Merge(inst, perProduct)
	if err != nil {
		// A merge failure is a broken internal invariant, not user input.
		log.Printf("solver: merge invariant failure on instance %q: %v", inst.Name, err)
		return model.Solution{}, model.Metrics{}, err
	}

	return sol, ComputeMetrics(inst, &sol, time.Since(start).Seconds()), nil
}

// buildMiniRoutes turns a subproblem's per-vehicle station sequences into
// mini-routes with a loading depot each. Every visited station receives its
// full demand in one visit. A mini-route draws its whole load from a single
// depot: depots are scanned in ascending id order against a working copy of
// the product's stock column, largest loads placed first so big loads are
// not starved by earlier small ones. When no single depot can cover some
// load the product is reported infeasible.
func buildMiniRoutes(inst *model.Instance, sp Subproblem, routes [][]int) (ProductRoutes, error) {
	remaining := make(map[int]float64, len(sp.DepotIDs))
	for _, id := range sp.DepotIDs {
		remaining[id] = inst.Depots[id-1].Stock[sp.Product]
	}

	type vehicleRoute struct {
		vehicle int
		load    float64
	}
	var nonEmpty []vehicleRoute
	for v, r := range routes {
		if len(r) == 0 {
			continue
		}
		load := 0.0
		for _, s := range r {
			load += sp.Demands[s]
		}
		nonEmpty = append(nonEmpty, vehicleRoute{vehicle: v, load: load})
	}
	sort.SliceStable(nonEmpty, func(a, b int) bool { return nonEmpty[a].load > nonEmpty[b].load })

	depotFor := make(map[int]int, len(nonEmpty))
	for _, vr := range nonEmpty {
		assigned := false
		for _, id := range sp.DepotIDs {
			if remaining[id]+qtyEpsilon >= vr.load {
				remaining[id] -= vr.load
				depotFor[vr.vehicle] = id
				assigned = true
				break
			}
		}
		if !assigned {
			return ProductRoutes{}, fmt.Errorf("product %d: no depot holds %g in one load: %w", sp.Product, vr.load, ErrInfeasible)
		}
	}

	pr := ProductRoutes{Product: sp.Product}
	for v, r := range routes {
		if len(r) == 0 {
			continue
		}
		mr := model.MiniRoute{DepotID: depotFor[v], ProductID: sp.Product}
		for _, s := range r {
			mr.Stops = append(mr.Stops, model.StopVisit{StationID: sp.StationIDs[s], Quantity: sp.Demands[s]})
			mr.LoadQuantity += sp.Demands[s]
		}
		pr.MiniRoutes = append(pr.MiniRoutes, mr)
	}
	return pr, nil
}

func countNonEmpty(routes [][]int) int {
	n := 0
	for _, r := range routes {
		if len(r) > 0 {
			n++
		}
	}
	return n
}
