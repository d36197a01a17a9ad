package propagation

import (
	"math"
	"testing"
)

func TestDistanceIdentical(t *testing.T) {
	d := HaversineKm(Coordinate{Lat: 10, Lon: 20}, Coordinate{Lat: 10, Lon: 20})
	if math.Abs(d) > 1e-6 {
		t.Errorf("distance between identical points = %v, want ~0", d)
	}
}

func TestDistanceAntipodal(t *testing.T) {
	d := HaversineKm(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 0, Lon: 180})
	want := math.Pi * EarthRadiusKm
	if math.Abs(d-want) > 1 {
		t.Errorf("antipodal distance = %v, want ~%v", d, want)
	}
}
