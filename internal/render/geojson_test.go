package render_test

import (
	"encoding/json"
	"testing"

	"github.com/UnknownOlympus/isomap/internal/models"
	"github.com/UnknownOlympus/isomap/internal/render"
	"github.com/UnknownOlympus/isomap/internal/service"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *service.Plan {
	center := models.Coordinates{Latitude: 39.78, Longitude: -89.65}
	props := map[string]float64{"area": 1000, "reachfactor": 0.42, "total_pop": 50}

	return &service.Plan{
		Center:  &center,
		Minutes: 30,
		Markers: []service.Marker{{
			Role: models.RoleCenter, Coordinates: center, Color: "blue", Label: "Center", Source: service.SourceBrowser,
		}},
		Layers: []service.Layer{{
			Profile:     models.ProfileDriving,
			DisplayName: "Driving",
			FillColor:   "green",
			Tooltip:     "30 mins Driving Reach Factor: 0.42",
			Properties:  props,
			Ring: []models.Coordinates{
				{Latitude: 39.7, Longitude: -89.7},
				{Latitude: 39.9, Longitude: -89.7},
				{Latitude: 39.9, Longitude: -89.5},
				{Latitude: 39.7, Longitude: -89.7},
			},
		}},
		Bounds: &service.Bounds{SouthWest: [2]float64{39.7, -89.7}, NorthEast: [2]float64{39.9, -89.5}},
	}
}

func TestFeatureCollection(t *testing.T) {
	fc := render.FeatureCollection(samplePlan())
	require.Len(t, fc.Features, 2)

	polygon := fc.Features[0]
	require.IsType(t, orb.Polygon{}, polygon.Geometry)
	assert.Equal(t, orb.Point{-89.7, 39.7}, polygon.Geometry.(orb.Polygon)[0][0])
	assert.Equal(t, "isochrone", polygon.Properties.MustString("kind"))
	assert.Equal(t, "driving-car", polygon.Properties.MustString("profile"))
	assert.Equal(t, "green", polygon.Properties.MustString("fill"))
	assert.InDelta(t, render.FillOpacity, polygon.Properties.MustFloat64("fill-opacity"), 1e-9)
	assert.Equal(t, "30 mins Driving Reach Factor: 0.42", polygon.Properties.MustString("tooltip"))
	assert.InDelta(t, 0.42, polygon.Properties.MustFloat64("reachfactor"), 1e-9)

	marker := fc.Features[1]
	assert.Equal(t, orb.Point{-89.65, 39.78}, marker.Geometry)
	assert.Equal(t, "marker", marker.Properties.MustString("kind"))
	assert.Equal(t, "center", marker.Properties.MustString("role"))
	assert.Equal(t, "blue", marker.Properties.MustString("marker-color"))

	assert.Equal(t, geojson.BBox{-89.7, 39.7, -89.5, 39.9}, fc.BBox)
}

func TestFeatureCollection_MarshalsAsGeoJSON(t *testing.T) {
	data, err := json.Marshal(render.FeatureCollection(samplePlan()))
	require.NoError(t, err)

	var decoded struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.Len(t, decoded.BBox, 4)
	assert.Equal(t, "Polygon", decoded.Features[0].Geometry.Type)
	assert.Equal(t, "Point", decoded.Features[1].Geometry.Type)
}

func TestFeatureCollection_NoLocation(t *testing.T) {
	fc := render.FeatureCollection(&service.Plan{NoLocation: true})
	assert.Empty(t, fc.Features)
	assert.Nil(t, fc.BBox)

	assert.Empty(t, render.FeatureCollection(nil).Features)
}
