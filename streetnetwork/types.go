package streetnetwork

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/kbukum/mobilitykit/errors"
)

// Mode is a street-network travel mode.
type Mode string

const (
	Walking     Mode = "walking"
	Bike        Mode = "bike"
	BSS         Mode = "bss"
	Car         Mode = "car"
	CarNoPark   Mode = "car_no_park"
	Taxi        Mode = "taxi"
	Ridesharing Mode = "ridesharing"
)

var knownModes = []Mode{Walking, Bike, BSS, Car, CarNoPark, Taxi, Ridesharing}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range knownModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.InvalidInput("mode", fmt.Sprintf("unknown street network mode %q", s))
}

// WireMode is the mode the backend computes for m. Taxi and ridesharing are
// driven legs without parking.
func (m Mode) WireMode() Mode {
	if m == Taxi || m == Ridesharing {
		return CarNoPark
	}
	return m
}

// PathType tells where a street-network leg sits in a journey.
type PathType int

const (
	// BeginningFallback reaches the first transit stop.
	BeginningFallback PathType = iota
	// EndingFallback leaves the last transit stop.
	EndingFallback
	// Direct is a whole journey without transit.
	Direct
)

// String returns the path type name.
func (t PathType) String() string {
	switch t {
	case BeginningFallback:
		return "beginning_fallback"
	case EndingFallback:
		return "ending_fallback"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// PlaceKind distinguishes places sent by coordinates from places sent by URI.
type PlaceKind int

const (
	PlaceObject PlaceKind = iota
	PlaceAddress
)

// Place is an origin or destination.
type Place struct {
	URI  string
	Kind PlaceKind
	// Lon and Lat are used for addresses when set.
	Lon, Lat float64
}

// WireURI returns the identifier sent to backends. Addresses are sent as
// coord:lon:lat, either from their coordinates or from a "lon;lat" URI.
func (p Place) WireURI() string {
	if p.Kind != PlaceAddress {
		return p.URI
	}
	if p.Lon != 0 || p.Lat != 0 {
		return fmt.Sprintf("coord:%g:%g", p.Lon, p.Lat)
	}
	if lon, lat, ok := strings.Cut(p.URI, ";"); ok {
		return "coord:" + lon + ":" + lat
	}
	return p.URI
}

// PeriodExtremity is the fixed end of a fallback period.
type PeriodExtremity struct {
	Datetime time.Time
	// RepresentsStart is true when Datetime is a departure.
	RepresentsStart bool
}

// Params holds per-mode speeds in m/s and budgets in seconds.
type Params struct {
	Speed                 map[Mode]float64
	MaxDurationToPT       map[Mode]int32
	MaxDirectPathDuration map[Mode]int32
}

// DefaultParams returns the usual journey planner defaults.
func DefaultParams() Params {
	return Params{
		Speed: map[Mode]float64{
			Walking: 1.12, Bike: 4.1, BSS: 4.1, Car: 11.11, CarNoPark: 11.11,
			Taxi: 11.11, Ridesharing: 6.94,
		},
		MaxDurationToPT: map[Mode]int32{
			Walking: 1800, Bike: 1800, BSS: 1800, Car: 1800, CarNoPark: 1800,
		},
		MaxDirectPathDuration: map[Mode]int32{
			Walking: 86400, Bike: 86400, BSS: 86400, Car: 86400, CarNoPark: 86400,
			Taxi: 86400, Ridesharing: 86400,
		},
	}
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	return Params{
		Speed:                 cloneOrEmpty(p.Speed),
		MaxDurationToPT:       cloneOrEmpty(p.MaxDurationToPT),
		MaxDirectPathDuration: cloneOrEmpty(p.MaxDirectPathDuration),
	}
}

// SpeedFor picks the speed of mode, then of its wire mode, then walking.
func (p Params) SpeedFor(mode Mode) float64 {
	if v, ok := p.Speed[mode]; ok {
		return v
	}
	if v, ok := p.Speed[mode.WireMode()]; ok {
		return v
	}
	return p.Speed[Walking]
}

func cloneOrEmpty[V any](m map[Mode]V) map[Mode]V {
	if m == nil {
		return make(map[Mode]V)
	}
	return maps.Clone(m)
}

// DirectPathRequest asks for a point-to-point street-network path.
type DirectPathRequest struct {
	Mode        Mode
	Origin      Place
	Destination Place
	Extremity   PeriodExtremity
	PathType    PathType
	Params      Params
}

// MatrixRequest asks for durations between origins and destinations. One
// side must hold a single place.
type MatrixRequest struct {
	Origins      []Place
	Destinations []Place
	Mode         Mode
	MaxDuration  int32
	Params       Params
}
