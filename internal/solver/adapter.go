package solver

import (
	"context"
	"fmt"
	"time"
)

// ConstructionStrategy selects the first-solution heuristic of a
// RoutingSolver.
type ConstructionStrategy string

const (
	CheapestArc        ConstructionStrategy = "cheapest-arc"
	MostConstrainedArc ConstructionStrategy = "most-constrained-arc"
	CheapestInsertion  ConstructionStrategy = "cheapest-insertion"
)

// ImprovementStrategy selects the local-search phase of a RoutingSolver.
type ImprovementStrategy string

const (
	NoImprovement      ImprovementStrategy = "none"
	GuidedLocalSearch  ImprovementStrategy = "guided-local-search"
	TabuSearch         ImprovementStrategy = "tabu-search"
	SimulatedAnnealing ImprovementStrategy = "simulated-annealing"
)

// SearchConfig carries the search strategy and budget into a solve. It is
// passed explicitly; there is no process-wide solver state.
type SearchConfig struct {
	Construction ConstructionStrategy `json:"construction"`
	Improvement  ImprovementStrategy  `json:"improvement"`
	// TimeBudget bounds the whole solve. It is split equally across the
	// per-product subproblems.
	TimeBudget time.Duration `json:"timeBudget"`
	// Seed fixes the search RNG for reproducible runs. Zero means seed 1.
	Seed int64 `json:"seed"`
	// Workers bounds the per-product solve pool. Zero means GOMAXPROCS.
	Workers int `json:"workers"`
	// Progress, when set, is called after each product subproblem finishes.
	Progress ProgressFunc `json:"-"`
}

// ProgressFunc observes per-product solve completion.
type ProgressFunc func(product int, routes int)

// DefaultSearchConfig is cheapest-arc construction refined by guided local
// search under a 10 second budget.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Construction: CheapestArc,
		Improvement:  GuidedLocalSearch,
		TimeBudget:   10 * time.Second,
		Seed:         1,
	}
}

// Validate rejects unknown strategies and non-positive budgets before any
// search starts.
func (c SearchConfig) Validate() error {
	switch c.Construction {
	case CheapestArc, MostConstrainedArc, CheapestInsertion:
	default:
		return fmt.Errorf("unknown construction strategy %q", c.Construction)
	}
	switch c.Improvement {
	case NoImprovement, GuidedLocalSearch, TabuSearch, SimulatedAnnealing:
	default:
		return fmt.Errorf("unknown improvement strategy %q", c.Improvement)
	}
	if c.TimeBudget <= 0 {
		return fmt.Errorf("time budget must be positive, got %v", c.TimeBudget)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// RoutingSolver solves one single-product capacitated routing subproblem.
// It is the external collaborator boundary: any implementation that is
// anytime (best solution found within the budget), capacity-respecting and
// deterministic for a fixed seed can be plugged in.
//
// The returned routes are per-vehicle sequences of station indices into
// sp.StationIDs; a vehicle with no work gets an empty sequence. ErrInfeasible
// is returned when no assignment fits the vehicle capacities.
type RoutingSolver interface {
	SolveSubproblem(ctx context.Context, sp Subproblem, cfg SearchConfig) ([][]int, error)
}
