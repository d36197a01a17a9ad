package propagation

import (
	"math"
	"testing"
)

func TestGridRoundTrip(t *testing.T) {
	cases := []struct {
		lat, lon float64
	}{
		{59.5, 10.5},
		{40.7, -74.0},
		{-33.9, 151.2},
		{0, 0},
	}

	for _, c := range cases {
		grid, err := CoordinatesToGrid(c.lat, c.lon, 6)
		if err != nil {
			t.Fatalf("CoordinatesToGrid(%v,%v): %v", c.lat, c.lon, err)
		}

		coord, err := GridToCoordinates(grid)
		if err != nil {
			t.Fatalf("GridToCoordinates(%q): %v", grid, err)
		}

		if math.Abs(coord.Lat-c.lat) > 1.0/48 {
			t.Errorf("lat round-trip: got %v want ~%v (grid %s)", coord.Lat, c.lat, grid)
		}
		if math.Abs(coord.Lon-c.lon) > 1.0/24 {
			t.Errorf("lon round-trip: got %v want ~%v (grid %s)", coord.Lon, c.lon, grid)
		}
	}
}

func TestGridDecodeKnown(t *testing.T) {
	coord, err := GridToCoordinates("JO59jw")
	if err != nil {
		t.Fatal(err)
	}
	if coord.Lat < 59 || coord.Lat > 60 {
		t.Errorf("JO59jw latitude out of expected range: %v", coord.Lat)
	}
	if coord.Lon < 10 || coord.Lon > 11 {
		t.Errorf("JO59jw longitude out of expected range: %v", coord.Lon)
	}
}

func TestGridInvalid(t *testing.T) {
	if _, err := GridToCoordinates("AB1"); err == nil {
		t.Error("expected error for 3-character grid")
	}
	if _, err := GridToCoordinates("ZZ99"); err == nil {
		t.Error("expected error for out-of-range field letters")
	}
}
