package model

// StopVisit is one delivery within a mini-route.
type StopVisit struct {
	StationID int     `json:"stationId"`
	Quantity  float64 `json:"quantity"`
}

// MiniRoute is a single-product route segment for one truck: load at one
// depot, then deliver to an ordered sequence of stations.
type MiniRoute struct {
	DepotID      int         `json:"depotId"`
	ProductID    int         `json:"productId"`
	LoadQuantity float64     `json:"loadQuantity"`
	Stops        []StopVisit `json:"stops"`
}

// CompleteRoute is one truck's full itinerary: garage, then its mini-routes
// in order, then back to the garage. SegmentChangeovers[i] is the changeover
// cost charged before MiniRoutes[i]; the first entry compares against the
// truck's initial product.
type CompleteRoute struct {
	TruckID             int         `json:"truckId"`
	GarageID            int         `json:"garageId"`
	MiniRoutes          []MiniRoute `json:"miniRoutes"`
	SegmentChangeovers  []float64   `json:"segmentChangeovers"`
	TotalDistance       float64     `json:"totalDistance"`
	TotalChangeoverCost float64     `json:"totalChangeoverCost"`
	TotalCost           float64     `json:"totalCost"`
}

// Solution is the set of complete routes, one per used truck. Unused trucks
// do not appear.
type Solution struct {
	InstanceName string          `json:"instanceName,omitempty"`
	Routes       []CompleteRoute `json:"routes"`
}

// Metrics aggregates a solution's quality figures. TotalCost is always
// exactly TotalDistance + TotalChangeoverCost.
type Metrics struct {
	NumVehiclesUsed        int     `json:"numVehiclesUsed"`
	NumProductChanges      int     `json:"numProductChanges"`
	TotalChangeoverCost    float64 `json:"totalChangeoverCost"`
	TotalDistance          float64 `json:"totalDistance"`
	TotalCost              float64 `json:"totalCost"`
	ComputationTimeSeconds float64 `json:"computationTimeSeconds"`
}
