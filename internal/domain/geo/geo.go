// Package geo provides planar distance and spatial bucketing helpers.
//
// Coordinates are WGS84-equivalent lat/lon but all radii in this engine are
// expressed in abstract distance-units, so neighbor search treats the
// coordinate plane as Euclidean rather than computing geodesics.
package geo

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/okian/strata/internal/domain/model"
)

// Coord converts a record location to a planar coordinate.
func Coord(loc model.Location) geom.Coord {
	return geom.Coord{loc.Longitude, loc.Latitude}
}

// Distance returns the planar distance in distance-units between two locations.
func Distance(a, b model.Location) float64 {
	return xy.Distance(Coord(a), Coord(b))
}

// DepthGap returns the absolute depth-top separation between two locations.
func DepthGap(a, b model.Location) float64 {
	return math.Abs(a.DepthTop - b.DepthTop)
}

// CellKey buckets a location into a coarse grid cell of the given size.
// Ingestion is serialized per cell; the key must be stable for identical
// inputs.
func CellKey(loc model.Location, cellSize float64) string {
	if cellSize <= 0 {
		cellSize = 1.0
	}
	cx := int(math.Floor(loc.Longitude / cellSize))
	cy := int(math.Floor(loc.Latitude / cellSize))
	return fmt.Sprintf("%d:%d", cx, cy)
}

// CellKeysWithin returns the keys of all cells intersecting the square that
// circumscribes the search circle around loc. Neighbor queries scan these
// cells and filter by exact distance.
func CellKeysWithin(loc model.Location, radius, cellSize float64) []string {
	if cellSize <= 0 {
		cellSize = 1.0
	}
	minX := int(math.Floor((loc.Longitude - radius) / cellSize))
	maxX := int(math.Floor((loc.Longitude + radius) / cellSize))
	minY := int(math.Floor((loc.Latitude - radius) / cellSize))
	maxY := int(math.Floor((loc.Latitude + radius) / cellSize))

	keys := make([]string, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			keys = append(keys, fmt.Sprintf("%d:%d", x, y))
		}
	}
	return keys
}
