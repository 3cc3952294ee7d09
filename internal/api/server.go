// Package api implements the HTTP surface of the solver service.
package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"mpvrpcc/internal/config"
	"mpvrpcc/internal/metrics"
	"mpvrpcc/internal/solver"
	"mpvrpcc/internal/store"
	"mpvrpcc/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Broker   EventBroker
	Notifier *webhooks.Notifier
	Engine   solver.RoutingSolver
	Limiter  *rate.Limiter
	Search   solver.SearchConfig
}

// NewServer wires the server from config. Without a DATABASE_URL the store
// is in-memory; without a REDIS_URL job events stay process-local.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s = sp
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		broker = rb
	} else {
		broker = NewBroker()
	}

	search := solver.DefaultSearchConfig()
	if cfg.Search.Construction != "" {
		search.Construction = solver.ConstructionStrategy(cfg.Search.Construction)
	}
	if cfg.Search.Improvement != "" {
		search.Improvement = solver.ImprovementStrategy(cfg.Search.Improvement)
	}
	if cfg.Search.TimeBudget > 0 {
		search.TimeBudget = time.Duration(cfg.Search.TimeBudget)
	}
	if cfg.Search.Seed != 0 {
		search.Seed = cfg.Search.Seed
	}
	search.Workers = cfg.Search.Workers
	if err := search.Validate(); err != nil {
		return nil, err
	}

	return &Server{
		Store:    s,
		Broker:   broker,
		Notifier: webhooks.NewNotifier(cfg.Webhooks),
		Engine:   timedSolver{inner: solver.NewEngine()},
		Limiter:  rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
		Search:   search,
	}, nil
}

// timedSolver records per-product search durations on the metrics registry.
type timedSolver struct {
	inner solver.RoutingSolver
}

func (t timedSolver) SolveSubproblem(ctx context.Context, sp solver.Subproblem, cfg solver.SearchConfig) ([][]int, error) {
	start := time.Now()
	routes, err := t.inner.SolveSubproblem(ctx, sp, cfg)
	metrics.SubproblemDuration.Observe(time.Since(start).Seconds())
	return routes, err
}
