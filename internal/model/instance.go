package model

import (
	"fmt"
	"math"
)

// LocationKind distinguishes the three node families of an instance.
type LocationKind string

const (
	KindGarage  LocationKind = "garage"
	KindDepot   LocationKind = "depot"
	KindStation LocationKind = "station"
)

// Location is a 2-D coordinate. Garages, depots and stations embed it.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Garage is where trucks originate. It has no stock and no demand.
type Garage struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Location
}

// Depot holds stock per product, indexed by product id.
type Depot struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Location
	Stock []float64 `json:"stock"`
}

// Station has a demand per product, indexed by product id. Each product's
// demand must be fully satisfied across all visits combined.
type Station struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Location
	Demand []float64 `json:"demand"`
}

// Truck carries one product at a time. Capacity is a single scalar shared
// across products. InitialProduct is the product loaded when it departs.
type Truck struct {
	ID             int     `json:"id"`
	Capacity       float64 `json:"capacity"`
	GarageID       int     `json:"garageId"`
	InitialProduct int     `json:"initialProduct"`
}

// ProductPair keys a changeover cost entry.
type ProductPair struct {
	From int
	To   int
}

// Instance describes one MPVRP-CC problem: garages, depots, stations, trucks
// and the changeover-cost matrix. Build it with the Add* methods, then treat
// it as read-only; the solver never mutates it.
type Instance struct {
	Name        string
	NumProducts int
	Garages     []Garage
	Depots      []Depot
	Stations    []Station
	Trucks      []Truck
	// Changeover[from][to] is the cost of switching a truck from one
	// product to another. Changeover[p][p] is always zero.
	Changeover [][]float64
}

// NewInstance creates an empty instance.
func NewInstance(name string) *Instance {
	return &Instance{Name: name}
}

// AddGarage appends a garage and returns its id. IDs are 1-based and
// sequential per entity kind.
func (in *Instance) AddGarage(x, y float64, name string) int {
	id := len(in.Garages) + 1
	if name == "" {
		name = fmt.Sprintf("Garage_%d", id)
	}
	in.Garages = append(in.Garages, Garage{ID: id, Name: name, Location: Location{X: x, Y: y}})
	return id
}

// AddDepot appends a depot with per-product stock and returns its id.
func (in *Instance) AddDepot(x, y float64, stock map[int]float64, name string) int {
	id := len(in.Depots) + 1
	if name == "" {
		name = fmt.Sprintf("Depot_%d", id)
	}
	in.growProducts(maxProductKey(stock) + 1)
	d := Depot{ID: id, Name: name, Location: Location{X: x, Y: y}, Stock: make([]float64, in.NumProducts)}
	for p, qty := range stock {
		d.Stock[p] = qty
	}
	in.Depots = append(in.Depots, d)
	return id
}

// AddStation appends a station with per-product demand and returns its id.
func (in *Instance) AddStation(x, y float64, demand map[int]float64, name string) int {
	id := len(in.Stations) + 1
	if name == "" {
		name = fmt.Sprintf("Station_%d", id)
	}
	in.growProducts(maxProductKey(demand) + 1)
	s := Station{ID: id, Name: name, Location: Location{X: x, Y: y}, Demand: make([]float64, in.NumProducts)}
	for p, qty := range demand {
		s.Demand[p] = qty
	}
	in.Stations = append(in.Stations, s)
	return id
}

// AddTruck appends a truck and returns its id.
func (in *Instance) AddTruck(capacity float64, garageID, initialProduct int) int {
	id := len(in.Trucks) + 1
	in.growProducts(initialProduct + 1)
	in.Trucks = append(in.Trucks, Truck{ID: id, Capacity: capacity, GarageID: garageID, InitialProduct: initialProduct})
	return id
}

// SetChangeoverCosts installs the changeover-cost matrix from a sparse
// mapping. Missing pairs cost zero; the diagonal is forced to zero.
func (in *Instance) SetChangeoverCosts(costs map[ProductPair]float64) {
	maxP := 0
	for pair := range costs {
		if pair.From > maxP {
			maxP = pair.From
		}
		if pair.To > maxP {
			maxP = pair.To
		}
	}
	in.growProducts(maxP + 1)
	for pair, c := range costs {
		if pair.From == pair.To {
			continue
		}
		in.Changeover[pair.From][pair.To] = c
	}
}

// ChangeoverCost returns the cost of switching from one product to another.
// Same-product switches and out-of-range ids cost zero.
func (in *Instance) ChangeoverCost(from, to int) float64 {
	if from == to {
		return 0
	}
	if from < 0 || to < 0 || from >= in.NumProducts || to >= in.NumProducts {
		return 0
	}
	return in.Changeover[from][to]
}

// growProducts widens every per-product array to hold at least n products.
// Demand and stock are kept as fixed-size indexed arrays so product lookups
// are bounds-checked instead of map misses.
func (in *Instance) growProducts(n int) {
	if n <= in.NumProducts {
		return
	}
	for i := range in.Depots {
		in.Depots[i].Stock = growSlice(in.Depots[i].Stock, n)
	}
	for i := range in.Stations {
		in.Stations[i].Demand = growSlice(in.Stations[i].Demand, n)
	}
	grown := make([][]float64, n)
	for p := 0; p < n; p++ {
		grown[p] = make([]float64, n)
		if p < in.NumProducts {
			copy(grown[p], in.Changeover[p])
		}
	}
	in.Changeover = grown
	in.NumProducts = n
}

func growSlice(s []float64, n int) []float64 {
	if len(s) >= n {
		return s
	}
	out := make([]float64, n)
	copy(out, s)
	return out
}

func maxProductKey(m map[int]float64) int {
	max := -1
	for p := range m {
		if p > max {
			max = p
		}
	}
	return max
}

// location resolves an entity's coordinates by kind and id.
func (in *Instance) location(kind LocationKind, id int) (Location, bool) {
	switch kind {
	case KindGarage:
		if id >= 1 && id <= len(in.Garages) {
			return in.Garages[id-1].Location, true
		}
	case KindDepot:
		if id >= 1 && id <= len(in.Depots) {
			return in.Depots[id-1].Location, true
		}
	case KindStation:
		if id >= 1 && id <= len(in.Stations) {
			return in.Stations[id-1].Location, true
		}
	}
	return Location{}, false
}

// Distance returns the Euclidean distance between two entities. Unknown ids
// yield zero; instance validation catches broken references before solving.
func (in *Instance) Distance(kind1 LocationKind, id1 int, kind2 LocationKind, id2 int) float64 {
	a, ok1 := in.location(kind1, id1)
	b, ok2 := in.location(kind2, id2)
	if !ok1 || !ok2 {
		return 0
	}
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// TotalDemand sums station demand per product.
func (in *Instance) TotalDemand() []float64 {
	total := make([]float64, in.NumProducts)
	for _, s := range in.Stations {
		for p, qty := range s.Demand {
			total[p] += qty
		}
	}
	return total
}

// TotalStock sums depot stock per product.
func (in *Instance) TotalStock() []float64 {
	total := make([]float64, in.NumProducts)
	for _, d := range in.Depots {
		for p, qty := range d.Stock {
			total[p] += qty
		}
	}
	return total
}

// Validate performs structural checks: entity presence, referential
// integrity of ids and gross supply/capacity sanity. These are instance
// checks, distinct from solution validation.
func (in *Instance) Validate() (bool, []string) {
	var errs []string
	if len(in.Garages) == 0 {
		errs = append(errs, "no garage defined")
	}
	if len(in.Depots) == 0 {
		errs = append(errs, "no depot defined")
	}
	if len(in.Stations) == 0 {
		errs = append(errs, "no station defined")
	}
	if len(in.Trucks) == 0 {
		errs = append(errs, "no truck defined")
	}
	for _, t := range in.Trucks {
		if t.GarageID < 1 || t.GarageID > len(in.Garages) {
			errs = append(errs, fmt.Sprintf("truck %d references unknown garage %d", t.ID, t.GarageID))
		}
		if t.InitialProduct < 0 || t.InitialProduct >= in.NumProducts {
			errs = append(errs, fmt.Sprintf("truck %d references unknown product %d", t.ID, t.InitialProduct))
		}
		if t.Capacity <= 0 {
			errs = append(errs, fmt.Sprintf("truck %d has non-positive capacity %g", t.ID, t.Capacity))
		}
	}
	for p := 0; p < in.NumProducts; p++ {
		if in.Changeover[p][p] != 0 {
			errs = append(errs, fmt.Sprintf("changeover cost for product %d onto itself must be zero", p))
		}
		for q := 0; q < in.NumProducts; q++ {
			if in.Changeover[p][q] < 0 {
				errs = append(errs, fmt.Sprintf("negative changeover cost for products %d->%d", p, q))
			}
		}
	}
	demand := in.TotalDemand()
	stock := in.TotalStock()
	for p := range demand {
		if stock[p] < demand[p] {
			errs = append(errs, fmt.Sprintf("insufficient stock for product %d: %g < %g", p, stock[p], demand[p]))
		}
	}
	var fleet float64
	for _, t := range in.Trucks {
		fleet += t.Capacity
	}
	maxDemand := 0.0
	for _, q := range demand {
		if q > maxDemand {
			maxDemand = q
		}
	}
	if len(in.Trucks) > 0 && fleet < maxDemand {
		errs = append(errs, fmt.Sprintf("total fleet capacity insufficient: %g < %g", fleet, maxDemand))
	}
	return len(errs) == 0, errs
}
