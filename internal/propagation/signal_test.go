package propagation

import (
	"testing"
	"time"
)

func TestSignalStrengthBounds(t *testing.T) {
	e := New(NewState(120, 3, SeasonWinter, false), nil, nil)

	noon := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s, err := e.SignalStrength("JO59jw", "FN31pr", noon)
	if err != nil {
		t.Fatal(err)
	}
	if s < 0 || s > 1 {
		t.Errorf("signal strength %v out of [0,1]", s)
	}
}

func TestSignalStrengthSymmetricCache(t *testing.T) {
	e := New(NewState(120, 3, SeasonWinter, false), nil, nil)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	a, err := e.SignalStrength("JO59jw", "FN31pr", now)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.SignalStrength("FN31pr", "JO59jw", now)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("signal strength not symmetric: %v vs %v", a, b)
	}
}

func TestGeomagneticFactorClampedAtK9(t *testing.T) {
	snap := Snapshot{SFI: 100, K: 9, Season: SeasonWinter}
	f := clamp(1-float64(snap.K)/9, 0.1, 1.0)
	if f != 0.1 {
		t.Errorf("geomagnetic factor at K=9 = %v, want 0.1", f)
	}
}

func TestEpochMutationClearsCache(t *testing.T) {
	e := New(NewState(100, 2, SeasonWinter, false), nil, nil)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	if _, err := e.SignalStrength("JO59jw", "FN31pr", now); err != nil {
		t.Fatal(err)
	}
	if e.Cache().Size() == 0 {
		t.Fatal("expected a populated cache before mutation")
	}

	e.SetSolarFluxIndex(150)

	if size := e.Cache().Size(); size != 0 {
		t.Errorf("cache size after epoch change = %d, want 0", size)
	}
}

func TestBandRecommendation(t *testing.T) {
	e := New(NewState(200, 1, SeasonSummer, false), nil, nil)

	if b := e.RecommendBand(400); b != 20 {
		t.Errorf("band at 400km = %d, want 20", b)
	}

	b := e.RecommendBand(3000)
	if b != 10 && b != 12 {
		t.Errorf("band at 3000km with high MUF = %d, want 10 or 12", b)
	}
}
