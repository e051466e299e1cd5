package streetnetwork

import (
	"context"

	"github.com/kbukum/mobilitykit/provider"
	"github.com/kbukum/mobilitykit/wire"
)

// Family is the registry family name of street-network backends.
const Family = "street_network"

// Service is a street-network backend.
type Service interface {
	provider.Provider

	// Modes lists the modes the backend serves.
	Modes() []Mode
	// DirectPath computes a point-to-point path.
	DirectPath(ctx context.Context, req DirectPathRequest) (*wire.Response, error)
	// RoutingMatrix computes one-to-many durations.
	RoutingMatrix(ctx context.Context, req MatrixRequest) (*wire.RoutingMatrix, error)
	// MakePathKey derives the memoization key of a direct path.
	MakePathKey(mode Mode, origin, destination string, pathType PathType, extremity *PeriodExtremity) PathKey
}

// PathKey identifies a direct path computation for memoization. Extremity is
// always nil: a path between two fixed points is assumed not to depend on the
// departure time, so real-time effects are not modelled.
type PathKey struct {
	Mode        Mode
	Origin      string
	Destination string
	Type        PathType
	Extremity   *PeriodExtremity
}
