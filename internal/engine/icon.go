package engine

import (
	"fmt"
	"math"
	"strconv"
)

const (
	iconSize   = 20
	iconRadius = 10
	iconCenter = 10
)

// Icon is a marker icon ready for a DOM-backed marker. HTML holds the SVG
// markup; Size and Anchor are in pixels.
type Icon struct {
	HTML   string `json:"html"`
	Size   [2]int `json:"iconSize"`
	Anchor [2]int `json:"iconAnchor"`
	Slices int    `json:"slices"`
	Slice  int    `json:"slice"`
	Color  string `json:"color"`
}

// PieIcon draws slice number slice (zero-based) of a circle divided into
// slices equal wedges, filled with color.
func PieIcon(color string, slices, slice int) Icon {
	html := fmt.Sprintf(
		`<svg data-nbro-overlaps="%d" data-overlap-nbr="%d" width="%d" height="%d" xmlns="http://www.w3.org/2000/svg" version="1.1" preserveAspectRatio="none"><path fill="%s" d="%s"/></svg>`,
		slices, slice, iconSize, iconSize, color, slicePath(slices, slice),
	)
	return Icon{
		HTML:   html,
		Size:   [2]int{iconSize, iconSize},
		Anchor: [2]int{iconCenter, iconCenter},
		Slices: slices,
		Slice:  slice,
		Color:  color,
	}
}

// slicePath returns the SVG path data of one wedge. Boundary points lie on
// the circle at (center + sin a*r, center + cos a*r).
func slicePath(slices, slice int) string {
	sliceAngle := math.Pi * 2 / float64(slices)
	startAngle := sliceAngle * float64(slice)
	endAngle := startAngle + sliceAngle

	x0 := iconCenter + math.Sin(startAngle)*iconRadius
	y0 := iconCenter + math.Cos(startAngle)*iconRadius
	x1 := iconCenter + math.Sin(endAngle)*iconRadius
	y1 := iconCenter + math.Cos(endAngle)*iconRadius

	return fmt.Sprintf("M %d %d L %s %s A %d %d 0 1 0 %s %s L %d %d Z",
		iconCenter, iconCenter,
		flooredTenths(x0), flooredTenths(y0),
		iconRadius, iconRadius,
		flooredTenths(x1), flooredTenths(y1),
		iconCenter, iconCenter,
	)
}

// flooredTenths floors v to one decimal: 9.9999 -> 99.999 -> 99 -> "9.9".
// Truncation matters: a full circle ends at 9.999999999999998, which must
// not round back onto its start point.
func flooredTenths(v float64) string {
	return strconv.FormatFloat(math.Floor(v*10)/10, 'f', 1, 64)
}
