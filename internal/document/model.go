package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNull        = errors.New("geojson: null object")
	ErrMissingType = errors.New("geojson: missing type member")
)

// UnknownTypeError is returned when the type member names no GeoJSON object.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("geojson: unknown type %q", e.Type)
}

// Object is a decoded GeoJSON object. The set of implementations is closed:
// *Feature, *FeatureCollection, *GeometryCollection and *Geometry.
type Object interface {
	Type() string
	isObject()
}

// LatLng is a geographic position in the order the map front-end uses.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointLatLng converts an orb point (lng, lat) into a LatLng.
func PointLatLng(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Point converts back into an orb point.
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// Feature wraps a GeoJSON feature. Indices holds the per-member labels of a
// GeometryCollection geometry once Annotate has run; they are kept outside
// the geometry so they never leak into serialization or comparisons.
type Feature struct {
	*geojson.Feature
	Indices []string
}

// FeatureCollection is an ordered list of features.
type FeatureCollection struct {
	Features []*Feature
}

// GeometryCollection is a bare GeometryCollection (not wrapped in a Feature).
type GeometryCollection struct {
	Geometries orb.Collection
}

// Geometry is a bare geometry of a single kind (Point, LineString, ...).
type Geometry struct {
	orb.Geometry
}

func (*Feature) Type() string            { return "Feature" }
func (*FeatureCollection) Type() string  { return "FeatureCollection" }
func (*GeometryCollection) Type() string { return "GeometryCollection" }
func (g *Geometry) Type() string {
	if g.Geometry == nil {
		return "Geometry"
	}
	return g.Geometry.GeoJSONType()
}

func (*Feature) isObject()            {}
func (*FeatureCollection) isObject()  {}
func (*GeometryCollection) isObject() {}
func (*Geometry) isObject()           {}

// NewFeature wraps f.
func NewFeature(f *geojson.Feature) *Feature {
	return &Feature{Feature: f}
}

// Name returns the feature's "name" property, or "" when it has none.
func (f *Feature) Name() string {
	if f == nil || f.Feature == nil || f.Properties == nil {
		return ""
	}
	switch v := f.Properties["name"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Annotate labels each member of a GeometryCollection geometry with
// "<name>: <position>". Features with any other geometry are left alone.
func (f *Feature) Annotate() {
	if f == nil || f.Feature == nil {
		return
	}
	coll, ok := f.Geometry.(orb.Collection)
	if !ok {
		return
	}
	name := f.Name()
	f.Indices = make([]string, len(coll))
	for i := range coll {
		f.Indices[i] = fmt.Sprintf("%s: %d", name, i)
	}
}

// Decode parses a GeoJSON document into its Object variant.
func Decode(data []byte) (Object, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if head.Type == "" {
		if string(data) == "null" {
			return nil, ErrNull
		}
		return nil, ErrMissingType
	}

	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		return NewFeature(f), nil

	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		out := &FeatureCollection{Features: make([]*Feature, 0, len(fc.Features))}
		for _, f := range fc.Features {
			out.Features = append(out.Features, NewFeature(f))
		}
		return out, nil

	case "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry collection: %w", err)
		}
		coll, _ := g.Geometry().(orb.Collection)
		return &GeometryCollection{Geometries: coll}, nil

	case "Point", "MultiPoint", "LineString", "MultiLineString", "Polygon", "MultiPolygon":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return &Geometry{Geometry: g.Geometry()}, nil

	default:
		return nil, &UnknownTypeError{Type: head.Type}
	}
}

// DecodeFeature decodes data and requires it to be a Feature.
func DecodeFeature(data []byte) (*Feature, error) {
	obj, err := Decode(data)
	if err != nil {
		return nil, err
	}
	f, ok := obj.(*Feature)
	if !ok {
		return nil, fmt.Errorf("expected Feature, got %s", obj.Type())
	}
	return f, nil
}

// Encode serializes obj back into GeoJSON. Index annotations are not part of
// the output.
func Encode(obj Object) ([]byte, error) {
	switch o := obj.(type) {
	case *Feature:
		return json.Marshal(o.Feature)
	case *FeatureCollection:
		fc := geojson.NewFeatureCollection()
		for _, f := range o.Features {
			fc.Append(f.Feature)
		}
		return json.Marshal(fc)
	case *GeometryCollection:
		return json.Marshal(geojson.NewGeometry(o.Geometries))
	case *Geometry:
		return json.Marshal(geojson.NewGeometry(o.Geometry))
	default:
		return nil, fmt.Errorf("encode geojson: unsupported object %T", obj)
	}
}
