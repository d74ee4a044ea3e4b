package coordinator

import "github.com/khryptorgraphics/burnwise/pkg/types"

// FallbackCentroid is used when a polygon degenerates to a point or
// its signed area is ~0 (spec.md §4.3 "degenerate polygons").
var FallbackCentroid = types.Point{Lat: 38.5, Lon: -121.5}

// polygonArea returns the polygon's signed area via the shoelace
// formula, in squared-degree units (adequate for sign/zero checks;
// acreage comes from the request, not the geometry).
func polygonArea(p types.Polygon) float64 {
	n := len(p.Points)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += p.Points[i].Lon*p.Points[j].Lat - p.Points[j].Lon*p.Points[i].Lat
	}
	return area / 2
}

// isClosed reports whether the first and last points coincide.
func isClosed(p types.Polygon) bool {
	n := len(p.Points)
	if n < 2 {
		return false
	}
	first, last := p.Points[0], p.Points[n-1]
	return first.Lat == last.Lat && first.Lon == last.Lon
}

// ValidPolygon reports whether p has >= 4 points, is closed, and has
// positive (non-zero) area, per spec.md §3.
func ValidPolygon(p types.Polygon) bool {
	if len(p.Points) < 4 {
		return false
	}
	if !isClosed(p) {
		return false
	}
	return polygonArea(p) != 0
}

// Centroid computes the polygon's area-weighted centroid, falling
// back to FallbackCentroid for degenerate polygons.
func Centroid(p types.Polygon) (types.Point, bool) {
	n := len(p.Points)
	if n < 3 {
		return FallbackCentroid, false
	}
	area := polygonArea(p)
	if area == 0 {
		return FallbackCentroid, false
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := p.Points[i].Lon*p.Points[j].Lat - p.Points[j].Lon*p.Points[i].Lat
		cx += (p.Points[i].Lon + p.Points[j].Lon) * cross
		cy += (p.Points[i].Lat + p.Points[j].Lat) * cross
	}
	factor := 1 / (6 * area)
	return types.Point{Lon: cx * factor, Lat: cy * factor}, true
}
