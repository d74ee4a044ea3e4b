package smoke

import (
	"math"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// burnGeometry is the minimal per-burn shape conflict detection needs:
// a centroid, plume radius, and time window.
type burnGeometry struct {
	RequestID  int64
	Centroid   types.Point
	MaxRadiusM float64
	Window     types.TimeWindow
	// CenterlineAtDistance evaluates this burn's own concentration
	// curve at an arbitrary downwind distance, used to test whether
	// one burn's plume reaches unhealthy levels at another's centroid.
	CenterlineAtDistance func(distanceM float64) float64
}

// haversineMeters returns the great-circle distance between two WGS84
// points in meters.
func haversineMeters(a, b types.Point) float64 {
	const earthRadiusM = 6371000.0
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	sinDLat, sinDLon := math.Sin(dLat/2), math.Sin(dLon/2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// windowsIntersect reports whether two half-open time windows overlap.
func windowsIntersect(a, b types.TimeWindow) bool {
	return a.Start < b.End && b.Start < a.End
}

// DetectConflicts evaluates every pair among burns for spatial and
// temporal conflicts per spec.md §4.3, returning a symmetric
// per-burn-request conflict list (each conflict appears once under
// each burn it involves).
func DetectConflicts(burns []burnGeometry) map[int64][]types.Conflict {
	result := make(map[int64][]types.Conflict, len(burns))
	for i := 0; i < len(burns); i++ {
		for j := i + 1; j < len(burns); j++ {
			a, b := burns[i], burns[j]

			dist := haversineMeters(a.Centroid, b.Centroid)
			if dist < a.MaxRadiusM+b.MaxRadiusM {
				overlapKm := (a.MaxRadiusM + b.MaxRadiusM - dist) / 1000.0
				severity := spatialSeverity(overlapKm, a, b, dist)
				result[a.RequestID] = append(result[a.RequestID], types.Conflict{
					OtherBurnRequestID: b.RequestID, Type: types.ConflictSpatial, Severity: severity,
				})
				result[b.RequestID] = append(result[b.RequestID], types.Conflict{
					OtherBurnRequestID: a.RequestID, Type: types.ConflictSpatial, Severity: severity,
				})
			}

			if windowsIntersect(a.Window, b.Window) {
				result[a.RequestID] = append(result[a.RequestID], types.Conflict{
					OtherBurnRequestID: b.RequestID, Type: types.ConflictTemporal, Severity: types.SeverityMedium,
				})
				result[b.RequestID] = append(result[b.RequestID], types.Conflict{
					OtherBurnRequestID: a.RequestID, Type: types.ConflictTemporal, Severity: types.SeverityMedium,
				})
			}
		}
	}
	return result
}

// spatialSeverity grades an overlap per spec.md §4.3: low under 1km,
// medium 1-3km, high beyond 3km or if either plume's centerline
// concentration at the other's centroid exceeds 35 ug/m3.
func spatialSeverity(overlapKm float64, a, b burnGeometry, centroidDistM float64) types.ConflictSeverity {
	if a.CenterlineAtDistance != nil && a.CenterlineAtDistance(centroidDistM) > epaDailyUgM3 {
		return types.SeverityHigh
	}
	if b.CenterlineAtDistance != nil && b.CenterlineAtDistance(centroidDistM) > epaDailyUgM3 {
		return types.SeverityHigh
	}
	switch {
	case overlapKm > 3:
		return types.SeverityHigh
	case overlapKm >= 1:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}
