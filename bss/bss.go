package bss

import (
	"context"

	"github.com/kbukum/mobilitykit/provider"
)

// Family is the registry family name of bike-share providers.
const Family = "bss"

// POITypeBicycleRental is the POI type of bike-share stations.
const POITypeBicycleRental = "poi_type:amenity:bicycle_rental"

// StandsStatus is the operating state of a station.
type StandsStatus string

const (
	StatusOpen        StandsStatus = "open"
	StatusClosed      StandsStatus = "closed"
	StatusUnavailable StandsStatus = "unavailable"
)

// Stands is the availability of one station.
type Stands struct {
	AvailablePlaces int          `json:"available_places"`
	AvailableBikes  int          `json:"available_bikes"`
	TotalStands     int          `json:"total_stands"`
	Status          StandsStatus `json:"status"`
}

// UnavailableStands is reported when a provider cannot answer.
func UnavailableStands() *Stands {
	return &Stands{Status: StatusUnavailable}
}

// POIType classifies a POI.
type POIType struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// POI is a point of interest. Properties carry the OSM-like tags used to
// match a provider (network, operator, ref).
type POI struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Type       *POIType          `json:"poi_type,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Stands     *Stands           `json:"stands,omitempty"`
}

// IsBikeShareStation reports whether p is a bike-share station.
func (p *POI) IsBikeShareStation() bool {
	return p != nil && p.Type != nil && p.Type.ID == POITypeBicycleRental
}

// Place is a search result that may embed a POI.
type Place struct {
	ID           string `json:"id"`
	EmbeddedType string `json:"embedded_type"`
	POI          *POI   `json:"poi,omitempty"`
}

// Provider answers stand availability for the stations it handles.
type Provider interface {
	provider.Provider

	// Handles reports whether poi belongs to this provider.
	Handles(poi *POI) bool
	// Stands returns the live availability of poi.
	Stands(ctx context.Context, poi *POI) (*Stands, error)
}
