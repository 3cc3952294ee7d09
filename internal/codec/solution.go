package codec

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"strings"

	"mpvrpcc/internal/model"
)

// WriteSolution renders a solution in the two-lines-per-route text form:
// the visit sequence with loads/deliveries, then the carried-product
// sequence with cumulative changeover cost, followed by the metrics trailer.
func WriteSolution(w io.Writer, inst *model.Instance, sol *model.Solution, m model.Metrics) error {
	bw := bufio.NewWriter(w)
	for _, route := range sol.Routes {
		writeRoute(bw, inst, route)
	}
	fmt.Fprintf(bw, "%d\n", m.NumVehiclesUsed)
	fmt.Fprintf(bw, "%d\n", m.NumProductChanges)
	fmt.Fprintf(bw, "%.2f\n", m.TotalChangeoverCost)
	fmt.Fprintf(bw, "%.2f\n", m.TotalDistance)
	fmt.Fprintf(bw, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(bw, "%.3f\n", m.ComputationTimeSeconds)
	return bw.Flush()
}

func writeRoute(w io.Writer, inst *model.Instance, route model.CompleteRoute) {
	visits := []string{fmt.Sprintf("%d", route.GarageID)}
	products := []string{}
	cumulative := 0.0
	product := initialProduct(inst, route.TruckID)

	for i, mr := range route.MiniRoutes {
		if i < len(route.SegmentChangeovers) {
			cumulative += route.SegmentChangeovers[i]
		}
		product = mr.ProductID
		visits = append(visits, fmt.Sprintf("%d [%d]", mr.DepotID, int(mr.LoadQuantity)))
		products = append(products, fmt.Sprintf("%d(%.1f)", product, cumulative))
		for _, stop := range mr.Stops {
			visits = append(visits, fmt.Sprintf("%d (%d)", stop.StationID, int(stop.Quantity)))
			products = append(products, fmt.Sprintf("%d(%.1f)", product, cumulative))
		}
	}
	visits = append(visits, fmt.Sprintf("%d", route.GarageID))
	products = append(products, fmt.Sprintf("%d(%.1f)", product, cumulative))

	fmt.Fprintf(w, "%d: %s\n", route.TruckID, strings.Join(visits, " - "))
	fmt.Fprintf(w, "%d: %s\n", route.TruckID, strings.Join(products, " - "))
	fmt.Fprintln(w)
}

func initialProduct(inst *model.Instance, truckID int) int {
	if truckID >= 1 && truckID <= len(inst.Trucks) {
		return inst.Trucks[truckID-1].InitialProduct
	}
	return 0
}
