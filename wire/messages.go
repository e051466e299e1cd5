package wire

// API selects the computation requested from the backend.
type API int32

const (
	APIUnknown       API = 0
	APIDirectPath    API = 1
	APIRoutingMatrix API = 2
)

// String returns the API name.
func (a API) String() string {
	switch a {
	case APIDirectPath:
		return "direct_path"
	case APIRoutingMatrix:
		return "street_network_routing_matrix"
	default:
		return "unknown"
	}
}

// Request is one backend request. Exactly one of DirectPath and
// RoutingMatrix is set, matching API.
type Request struct {
	API           API
	DirectPath    *DirectPathRequest
	RoutingMatrix *RoutingMatrixRequest
}

// Operation returns the API name, used to label backend requests.
func (r *Request) Operation() string { return r.API.String() }

// LocationContext is an endpoint of a computation, by place URI.
type LocationContext struct {
	Place          string
	AccessDuration int32
}

// StreetNetworkParams carries the per-mode speeds (m/s) and search budgets
// (seconds) of a direct path request.
type StreetNetworkParams struct {
	OriginMode      string
	DestinationMode string

	WalkingSpeed             float64
	MaxWalkingDurationToPT   int32
	BikeSpeed                float64
	MaxBikeDurationToPT      int32
	BSSSpeed                 float64
	MaxBSSDurationToPT       int32
	CarSpeed                 float64
	MaxCarDurationToPT       int32
	CarNoParkSpeed           float64
	MaxCarNoParkDurationToPT int32
}

// DirectPathRequest asks for a point-to-point path.
type DirectPathRequest struct {
	Origin      LocationContext
	Destination LocationContext
	// Datetime is a Unix timestamp; Clockwise tells whether it is a departure.
	Datetime  int64
	Clockwise bool
	Params    StreetNetworkParams
}

// RoutingMatrixRequest asks for durations from every origin to every
// destination. The backend serves one-to-many shapes only.
type RoutingMatrixRequest struct {
	Origins      []LocationContext
	Destinations []LocationContext
	Mode         string
	Speed        float64
	MaxDuration  int32
}

// Response is one backend response.
type Response struct {
	Journeys      []Journey
	RoutingMatrix *RoutingMatrix
	Error         *Error
}

// Error is reported by the backend in place of a result.
type Error struct {
	ID      int32
	Message string
}

// Journey is one computed path.
type Journey struct {
	Duration          int32
	DepartureDateTime int64
	ArrivalDateTime   int64
	Sections          []Section
}

// Section is one leg of a journey.
type Section struct {
	ID            string
	Mode          string
	Origin        Place
	Destination   Place
	BeginDateTime int64
	EndDateTime   int64
	Duration      int32
	Length        int32
}

// Place is a named location.
type Place struct {
	URI   string
	Name  string
	Coord *Coord
}

// Coord is a WGS84 position.
type Coord struct {
	Lon float64
	Lat float64
}

// RoutingStatus tells whether a matrix cell could be reached.
type RoutingStatus int32

const (
	Reached   RoutingStatus = 0
	Unreached RoutingStatus = 1
	Unknown   RoutingStatus = 2
)

// RoutingMatrix holds one row per origin.
type RoutingMatrix struct {
	Rows []MatrixRow
}

// MatrixRow holds one element per destination.
type MatrixRow struct {
	Elements []MatrixElement
}

// MatrixElement is a single origin/destination result.
type MatrixElement struct {
	Duration      int32
	RoutingStatus RoutingStatus
}
