package document

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SampleCenter is where the sample data set is located.
var SampleCenter = LatLng{Lat: 50.98, Lng: 4.52}

// square returns a closed ring of half-width d around (lng, lat).
func square(lng, lat, d float64) orb.Ring {
	return orb.Ring{
		{lng - d, lat - d},
		{lng + d, lat - d},
		{lng + d, lat + d},
		{lng - d, lat + d},
		{lng - d, lat - d},
	}
}

func namedFeature(name string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["name"] = name
	return f
}

// SampleObstacles returns a MultiPolygon of buildings around SampleCenter.
func SampleObstacles() *geojson.Feature {
	c := SampleCenter
	return namedFeature("obstacles", orb.MultiPolygon{
		{square(c.Lng-0.004, c.Lat+0.002, 0.0008)},
		{square(c.Lng+0.003, c.Lat-0.001, 0.0010)},
		{square(c.Lng+0.001, c.Lat+0.004, 0.0006)},
	})
}

// SampleWaters returns a MultiPolygon of ponds around SampleCenter.
func SampleWaters() *geojson.Feature {
	c := SampleCenter
	return namedFeature("waters", orb.MultiPolygon{
		{square(c.Lng-0.006, c.Lat-0.004, 0.0015)},
		{square(c.Lng+0.007, c.Lat+0.003, 0.0012)},
	})
}

// SampleRestrictedAirspace returns a single restricted zone east of SampleCenter.
func SampleRestrictedAirspace() *geojson.Feature {
	c := SampleCenter
	return namedFeature("restricted airspace", orb.MultiPolygon{
		{square(c.Lng+0.012, c.Lat, 0.003)},
	})
}
