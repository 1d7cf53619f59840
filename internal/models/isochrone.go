package models

// IsochroneAttributes are the summary attributes requested for every isochrone.
var IsochroneAttributes = []string{"area", "reachfactor", "total_pop"}

// Isochrone is the area reachable from a center within RangeSeconds for a profile.
type Isochrone struct {
	Profile      Profile            `json:"profile"`
	RangeSeconds int                `json:"range_seconds"`
	Polygon      []Coordinates      `json:"polygon"`    // Closed ring, first point equals the last.
	Properties   map[string]float64 `json:"properties"` // Exactly IsochroneAttributes.
}
