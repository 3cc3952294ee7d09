package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mpvrpcc/internal/model"
)

// Wire shape of the structured instance format. Stock and demand are
// product-id keyed maps; changeover costs are keyed "from-to".
type instanceJSON struct {
	Name            string             `json:"name"`
	Garages         []garageJSON       `json:"garages"`
	Depots          []depotJSON        `json:"depots"`
	Stations        []stationJSON      `json:"stations"`
	Trucks          []truckJSON        `json:"trucks"`
	ChangeoverCosts map[string]float64 `json:"changeover_costs"`
}

type garageJSON struct {
	ID   int     `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name,omitempty"`
}

type depotJSON struct {
	ID    int                `json:"id"`
	X     float64            `json:"x"`
	Y     float64            `json:"y"`
	Name  string             `json:"name,omitempty"`
	Stock map[string]float64 `json:"stock"`
}

type stationJSON struct {
	ID     int                `json:"id"`
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
	Name   string             `json:"name,omitempty"`
	Demand map[string]float64 `json:"demand"`
}

type truckJSON struct {
	ID             int     `json:"id"`
	Capacity       float64 `json:"capacity"`
	GarageID       int     `json:"garage_id"`
	InitialProduct int     `json:"initial_product"`
}

// EncodeInstanceJSON serializes an instance to the structured format. Every
// product appears in each stock/demand map, zeros included, so decoding
// reconstructs the exact product dimension.
func EncodeInstanceJSON(inst *model.Instance) ([]byte, error) {
	out := instanceJSON{Name: inst.Name, ChangeoverCosts: map[string]float64{}}
	for _, g := range inst.Garages {
		out.Garages = append(out.Garages, garageJSON{ID: g.ID, X: g.X, Y: g.Y, Name: g.Name})
	}
	for _, d := range inst.Depots {
		out.Depots = append(out.Depots, depotJSON{ID: d.ID, X: d.X, Y: d.Y, Name: d.Name, Stock: productMap(d.Stock)})
	}
	for _, s := range inst.Stations {
		out.Stations = append(out.Stations, stationJSON{ID: s.ID, X: s.X, Y: s.Y, Name: s.Name, Demand: productMap(s.Demand)})
	}
	for _, t := range inst.Trucks {
		out.Trucks = append(out.Trucks, truckJSON{ID: t.ID, Capacity: t.Capacity, GarageID: t.GarageID, InitialProduct: t.InitialProduct})
	}
	for from := 0; from < inst.NumProducts; from++ {
		for to := 0; to < inst.NumProducts; to++ {
			if from == to {
				continue
			}
			out.ChangeoverCosts[fmt.Sprintf("%d-%d", from, to)] = inst.Changeover[from][to]
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeInstanceJSON rebuilds an instance through the construction API, so
// ids come out sequential exactly as they were serialized.
func DecodeInstanceJSON(data []byte, name string) (*model.Instance, error) {
	var in instanceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode instance json: %w", err)
	}
	if in.Name != "" {
		name = in.Name
	}
	inst := model.NewInstance(name)
	for _, g := range in.Garages {
		inst.AddGarage(g.X, g.Y, g.Name)
	}
	for _, d := range in.Depots {
		stock, err := parseProductMap(d.Stock)
		if err != nil {
			return nil, fmt.Errorf("depot %d: %w", d.ID, err)
		}
		inst.AddDepot(d.X, d.Y, stock, d.Name)
	}
	for _, s := range in.Stations {
		demand, err := parseProductMap(s.Demand)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", s.ID, err)
		}
		inst.AddStation(s.X, s.Y, demand, s.Name)
	}
	for _, t := range in.Trucks {
		inst.AddTruck(t.Capacity, t.GarageID, t.InitialProduct)
	}
	costs := map[model.ProductPair]float64{}
	for key, c := range in.ChangeoverCosts {
		parts := strings.SplitN(key, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("changeover key %q: want \"from-to\"", key)
		}
		from, err1 := strconv.Atoi(parts[0])
		to, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("changeover key %q: want \"from-to\"", key)
		}
		costs[model.ProductPair{From: from, To: to}] = c
	}
	inst.SetChangeoverCosts(costs)
	return inst, nil
}

func productMap(qty []float64) map[string]float64 {
	m := make(map[string]float64, len(qty))
	for p, q := range qty {
		m[strconv.Itoa(p)] = q
	}
	return m
}

func parseProductMap(m map[string]float64) (map[int]float64, error) {
	out := make(map[int]float64, len(m))
	for key, q := range m {
		p, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("product key %q is not an integer", key)
		}
		if p < 0 {
			return nil, fmt.Errorf("product key %d is negative", p)
		}
		out[p] = q
	}
	return out, nil
}
