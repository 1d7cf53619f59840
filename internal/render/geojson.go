// Package render encodes a plan as a GeoJSON FeatureCollection that map
// front-ends can draw directly.
package render

import (
	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/UnknownOlympus/isomap/internal/service"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FillOpacity is the opacity of every isochrone polygon.
const FillOpacity = 0.2

// FeatureCollection returns one Point per marker and one Polygon per layer.
// Coordinates are [lon, lat]. A plan without a location yields an empty collection.
func FeatureCollection(plan *service.Plan) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if plan == nil || plan.NoLocation {
		return fc
	}

	for _, layer := range plan.Layers {
		feature := geojson.NewFeature(orb.Polygon{ring(layer.Ring)})
		feature.Properties["kind"] = "isochrone"
		feature.Properties["profile"] = string(layer.Profile)
		feature.Properties["name"] = layer.DisplayName
		feature.Properties["fill"] = layer.FillColor
		feature.Properties["fill-opacity"] = FillOpacity
		feature.Properties["stroke-width"] = 0
		feature.Properties["tooltip"] = layer.Tooltip
		for key, value := range layer.Properties {
			feature.Properties[key] = value
		}
		fc.Append(feature)
	}

	for _, marker := range plan.Markers {
		feature := geojson.NewFeature(point(marker.Coordinates))
		feature.Properties["kind"] = "marker"
		feature.Properties["role"] = string(marker.Role)
		feature.Properties["marker-color"] = marker.Color
		feature.Properties["title"] = marker.Label
		feature.Properties["source"] = string(marker.Source)
		fc.Append(feature)
	}

	if plan.Bounds != nil {
		fc.BBox = geojson.BBox{
			plan.Bounds.SouthWest[1], plan.Bounds.SouthWest[0],
			plan.Bounds.NorthEast[1], plan.Bounds.NorthEast[0],
		}
	}

	return fc
}

func point(c models.Coordinates) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

func ring(coords []models.Coordinates) orb.Ring {
	r := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		r = append(r, point(c))
	}

	return r
}
