package engine

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/metrics"
	"github.com/lakehopper/mapclient/internal/typeid"
)

const (
	// DefaultLineThickness is the stroke weight given to LineStrings.
	DefaultLineThickness = 8
	// DefaultWeight is the stroke weight of every other geometry.
	DefaultWeight = 3
)

// Factory turns GeoJSON objects into layers. Points are placed through the
// marker registry so coincident points across all layers share pie icons.
type Factory struct {
	markers *MarkerRegistry
}

// NewFactory creates a factory placing markers into markers.
func NewFactory(markers *MarkerRegistry) *Factory {
	return &Factory{markers: markers}
}

// Build renders obj into a single layer colored with color. lineThickness
// applies to features whose geometry is (or directly contains) a LineString.
func (f *Factory) Build(obj document.Object, color string, lineThickness float64) *Layer {
	start := time.Now()
	defer func() {
		metrics.LayerBuildDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	b := &layerBuilder{
		markers:       f.markers,
		color:         color,
		lineThickness: lineThickness,
		layer: &Layer{
			ID:     typeid.NewLayerID(),
			Color:  color,
			Source: obj,
		},
	}

	switch o := obj.(type) {
	case *document.Feature:
		b.addFeature(o)
	case *document.FeatureCollection:
		for _, feat := range o.Features {
			b.addFeature(feat)
		}
	case *document.GeometryCollection:
		b.addGeometry("", o.Geometries, nil)
	case *document.Geometry:
		b.addGeometry("", o.Geometry, nil)
	}

	return b.layer
}

type layerBuilder struct {
	markers       *MarkerRegistry
	color         string
	lineThickness float64
	layer         *Layer
}

func (b *layerBuilder) addFeature(feat *document.Feature) {
	if feat == nil || feat.Feature == nil {
		return
	}
	feat.Annotate()
	b.addGeometry(feat.Name(), feat.Geometry, feat.Indices)
}

// addGeometry renders one feature. Points become markers; everything else is
// collected into a single styled shape carrying the feature name as tooltip.
func (b *layerBuilder) addGeometry(name string, geom orb.Geometry, indices []string) {
	if geom == nil {
		return
	}

	var shapes orb.Collection
	var walk func(g orb.Geometry, label string)
	walk = func(g orb.Geometry, label string) {
		switch g := g.(type) {
		case orb.Point:
			b.placePoint(g, label)
		case orb.MultiPoint:
			for _, p := range g {
				b.placePoint(p, label)
			}
		case orb.Collection:
			for _, sub := range g {
				walk(sub, label)
			}
		default:
			shapes = append(shapes, g)
		}
	}

	if coll, ok := geom.(orb.Collection); ok {
		for i, sub := range coll {
			label := name
			if i < len(indices) {
				label = indices[i]
			}
			walk(sub, label)
		}
	} else {
		walk(geom, name)
	}

	if len(shapes) == 0 {
		return
	}
	var shapeGeom orb.Geometry = shapes
	if len(shapes) == 1 {
		shapeGeom = shapes[0]
	}
	b.layer.Shapes = append(b.layer.Shapes, &Shape{
		Geometry: shapeGeom,
		Style: Style{
			Color:     b.color,
			FillColor: b.color,
			Weight:    b.weightFor(geom),
		},
		Tooltip: name,
	})
}

func (b *layerBuilder) placePoint(p orb.Point, label string) {
	m := b.markers.Place(b.layer.ID, document.PointLatLng(p), label, b.color)
	b.layer.Markers = append(b.layer.Markers, m)
}

// weightFor styles a whole feature: it is thick when its geometry is a
// LineString or a collection with a LineString member.
func (b *layerBuilder) weightFor(geom orb.Geometry) float64 {
	switch g := geom.(type) {
	case orb.LineString:
		return b.lineThickness
	case orb.Collection:
		for _, sub := range g {
			if _, ok := sub.(orb.LineString); ok {
				return b.lineThickness
			}
		}
	}
	return DefaultWeight
}
