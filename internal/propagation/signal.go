package propagation

import (
	"math/rand"
	"time"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// signalStrengthScore computes the six-factor product of spec.md §4.3 for
// a pair distanceKm apart with the given daytime flags, under the
// ionospheric snapshot snap; rng supplies the random draw.
func signalStrengthScore(distanceKm float64, aDaytime, bDaytime bool, snap Snapshot, rng *rand.Rand) float64 {
	fDistance := 1 / (1 + distanceKm/1000)

	var fTime float64
	switch {
	case aDaytime && bDaytime:
		fTime = 1.0
	case !aDaytime && !bDaytime:
		fTime = 0.8
	default:
		fTime = 0.5
	}

	fSolar := clamp(float64(snap.SFI)/200, 0.1, 1.0)
	fGeomagnetic := clamp(1-float64(snap.K)/9, 0.1, 1.0)
	fSeason := signalSeasonFactor[snap.Season&3]
	fStochastic := 0.8 + 0.2*rng.Float64()

	score := fDistance * fTime * fSolar * fGeomagnetic * fSeason * fStochastic
	return clamp(score, 0, 1)
}

// SignalStrength returns the memoized signal-strength score in [0,1]
// between two grid locators at wall-clock time t, per spec.md §4.3. A
// cache hit returns immediately; a miss computes, memoizes under the
// current epoch, and publishes a signal-strength-changed event as a hint
// (§5: "observers... must treat the notification as a hint and
// re-query if needed").
func (e *Engine) SignalStrength(gridA, gridB string, t time.Time) (float64, error) {
	snap := e.state.Snapshot()

	if v, ok := e.cache.Get(gridA, gridB, snap.Epoch); ok {
		e.hitCounter()
		return v, nil
	}
	e.missCounter()

	distance, err := DistanceGrids(gridA, gridB)
	if err != nil {
		return 0, err
	}

	aDay, err := IsDaytime(gridA, t)
	if err != nil {
		return 0, err
	}
	bDay, err := IsDaytime(gridB, t)
	if err != nil {
		return 0, err
	}

	score := signalStrengthScore(distance, aDay, bDay, snap, e.rng)

	e.cache.Put(gridA, gridB, snap.Epoch, score)
	e.notifySignalStrengthChanged(gridA, gridB, score)

	return score, nil
}
