// Package palette assigns distinguishing colors to rendered geometry groups.
package palette

// Palette is the ordered set of colors handed out to geometry groups that
// have no fixed color of their own.
var Palette = [...]string{
	"#004d61",
	"#5bd1d7",
	"#FFBA49",
	"#C2E812",
	"#6E4555",
	"#504136",
	"#21712B",
	"#51FD68",
}

// Size is the number of distinct palette colors.
const Size = len(Palette)

// Fixed overlay colors.
const (
	Obstacles          = "#ff502f"
	Waters             = "#495d69"
	RestrictedAirspace = "#845a9e"
	ShortestPath       = "#b900e3"
)

// ColorFor returns the palette color for index. Indexes wrap around the
// palette, so callers must keep their own index stable per group.
func ColorFor(index int) string {
	i := index % Size
	if i < 0 {
		i += Size
	}
	return Palette[i]
}

// Exhausted reports whether n concurrently colored groups would reuse colors.
func Exhausted(n int) bool {
	return n > Size
}
