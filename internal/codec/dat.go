package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mpvrpcc/internal/model"
)

// The tabular (.dat) format:
//
//	NbProducts NbDepots NbGarages NbStations NbVehicles
//	<NbProducts lines of the changeover-cost matrix>
//	<NbVehicles lines: id capacity garage_id initial_product>   (product 1-based)
//	<NbDepots lines:   id x y stock_p1 ... stock_pn>
//	<NbGarages lines:  id x y>
//	<NbStations lines: id x y demand_p1 ... demand_pn>
//
// Blank lines and lines starting with '#' or '"' are skipped on read.

// EncodeInstanceDAT writes an instance in the tabular format.
func EncodeInstanceDAT(w io.Writer, inst *model.Instance) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d %d %d\n", inst.NumProducts, len(inst.Depots), len(inst.Garages), len(inst.Stations), len(inst.Trucks))
	for _, row := range inst.Changeover {
		fmt.Fprintln(bw, joinFloats(row))
	}
	for _, t := range inst.Trucks {
		fmt.Fprintf(bw, "%d %s %d %d\n", t.ID, formatFloat(t.Capacity), t.GarageID, t.InitialProduct+1)
	}
	for _, d := range inst.Depots {
		fmt.Fprintf(bw, "%d %s %s %s\n", d.ID, formatFloat(d.X), formatFloat(d.Y), joinFloats(d.Stock))
	}
	for _, g := range inst.Garages {
		fmt.Fprintf(bw, "%d %s %s\n", g.ID, formatFloat(g.X), formatFloat(g.Y))
	}
	for _, s := range inst.Stations {
		fmt.Fprintf(bw, "%d %s %s %s\n", s.ID, formatFloat(s.X), formatFloat(s.Y), joinFloats(s.Demand))
	}
	return bw.Flush()
}

// DecodeInstanceDAT parses the tabular format into a fresh instance.
func DecodeInstanceDAT(r io.Reader, name string) (*model.Instance, error) {
	lines, err := readDataLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("decode instance dat: empty input")
	}

	header, err := parseFloats(lines[0])
	if err != nil || len(header) != 5 {
		return nil, fmt.Errorf("decode instance dat: bad header %q", lines[0])
	}
	nProducts, nDepots, nGarages, nStations, nVehicles := int(header[0]), int(header[1]), int(header[2]), int(header[3]), int(header[4])

	want := 1 + nProducts + nVehicles + nDepots + nGarages + nStations
	if len(lines) < want {
		return nil, fmt.Errorf("decode instance dat: got %d data lines, want %d", len(lines), want)
	}

	inst := model.NewInstance(name)
	cur := 1

	costs := map[model.ProductPair]float64{}
	for from := 0; from < nProducts; from++ {
		row, err := parseFloats(lines[cur])
		if err != nil || len(row) != nProducts {
			return nil, fmt.Errorf("decode instance dat: bad changeover row %q", lines[cur])
		}
		for to, c := range row {
			costs[model.ProductPair{From: from, To: to}] = c
		}
		cur++
	}

	type truckLine struct {
		capacity       float64
		garageID       int
		initialProduct int
	}
	trucks := make([]truckLine, 0, nVehicles)
	for i := 0; i < nVehicles; i++ {
		row, err := parseFloats(lines[cur])
		if err != nil || len(row) != 4 {
			return nil, fmt.Errorf("decode instance dat: bad vehicle line %q", lines[cur])
		}
		trucks = append(trucks, truckLine{capacity: row[1], garageID: int(row[2]), initialProduct: int(row[3]) - 1})
		cur++
	}

	for i := 0; i < nDepots; i++ {
		row, err := parseFloats(lines[cur])
		if err != nil || len(row) != 3+nProducts {
			return nil, fmt.Errorf("decode instance dat: bad depot line %q", lines[cur])
		}
		stock := make(map[int]float64, nProducts)
		for p := 0; p < nProducts; p++ {
			stock[p] = row[3+p]
		}
		inst.AddDepot(row[1], row[2], stock, "")
		cur++
	}

	for i := 0; i < nGarages; i++ {
		row, err := parseFloats(lines[cur])
		if err != nil || len(row) != 3 {
			return nil, fmt.Errorf("decode instance dat: bad garage line %q", lines[cur])
		}
		inst.AddGarage(row[1], row[2], "")
		cur++
	}

	for i := 0; i < nStations; i++ {
		row, err := parseFloats(lines[cur])
		if err != nil || len(row) != 3+nProducts {
			return nil, fmt.Errorf("decode instance dat: bad station line %q", lines[cur])
		}
		demand := make(map[int]float64, nProducts)
		for p := 0; p < nProducts; p++ {
			demand[p] = row[3+p]
		}
		inst.AddStation(row[1], row[2], demand, "")
		cur++
	}

	for _, t := range trucks {
		inst.AddTruck(t.capacity, t.garageID, t.initialProduct)
	}
	inst.SetChangeoverCosts(costs)
	return inst, nil
}

func readDataLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "\"") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func parseFloats(line string) ([]float64, error) {
	fields := strings.Fields(line)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

// formatFloat keeps full float64 precision so a write/read cycle is
// lossless.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
