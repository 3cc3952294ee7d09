package solver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInfeasible is returned by a RoutingSolver when no capacity-feasible
// assignment exists for a subproblem's node set.
var ErrInfeasible = errors.New("no capacity-feasible assignment")

// ValidationError carries the structural problems of a malformed instance.
// It is fatal and surfaced before any solving starts.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid instance: %s", strings.Join(e.Problems, "; "))
}

// InsufficientSupplyError reports a product whose total station demand
// exceeds total depot stock. It is raised before any search is attempted.
type InsufficientSupplyError struct {
	Product int
	Demand  float64
	Stock   float64
}

func (e *InsufficientSupplyError) Error() string {
	return fmt.Sprintf("insufficient supply for product %d: demand %g exceeds stock %g", e.Product, e.Demand, e.Stock)
}

// InfeasibleProductsError aggregates per-product infeasibility so a caller
// sees every problematic product, not just the first one hit.
type InfeasibleProductsError struct {
	Products []int
}

func (e *InfeasibleProductsError) Error() string {
	ps := make([]string, len(e.Products))
	for i, p := range e.Products {
		ps[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("no capacity-feasible assignment for products [%s]", strings.Join(ps, " "))
}

// Unwrap lets errors.Is(err, ErrInfeasible) hold for the aggregate.
func (e *InfeasibleProductsError) Unwrap() error { return ErrInfeasible }

func newInfeasibleProductsError(products []int) *InfeasibleProductsError {
	sort.Ints(products)
	return &InfeasibleProductsError{Products: products}
}

// UnassignableRouteError indicates the merger was handed more mini-routes
// for a product than trucks able to carry them. That breaks the
// decomposer/adapter contract, so it is a defect, not a user error.
type UnassignableRouteError struct {
	Product    int
	MiniRoutes int
	Trucks     int
}

func (e *UnassignableRouteError) Error() string {
	return fmt.Sprintf("internal: %d mini-routes for product %d cannot be placed on %d trucks", e.MiniRoutes, e.Product, e.Trucks)
}
