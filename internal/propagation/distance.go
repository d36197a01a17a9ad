package propagation

import "math"

// EarthRadiusKm is the sphere radius used for the great-circle distance
// calculation, per spec.md §4.3.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates on a sphere of radius EarthRadiusKm.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat2 := math.Sin(dLat / 2)
	sinDLon2 := math.Sin(dLon / 2)

	h := sinDLat2*sinDLat2 + math.Cos(lat1)*math.Cos(lat2)*sinDLon2*sinDLon2
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// DistanceGrids is a convenience wrapper decoding both grids before
// computing the great-circle distance between them.
func DistanceGrids(gridA, gridB string) (float64, error) {
	a, err := GridToCoordinates(gridA)
	if err != nil {
		return 0, err
	}
	b, err := GridToCoordinates(gridB)
	if err != nil {
		return 0, err
	}
	return HaversineKm(a, b), nil
}
