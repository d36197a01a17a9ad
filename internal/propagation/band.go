package propagation

// bandLadder is the fixed step-down ladder of spec.md §4.3 for distances
// >= 2000 km, from the highest band (10 m, used when MUF > 28 MHz) down
// to the lowest (160 m, used when MUF <= 3.5 MHz). spec.md only pins the
// two end thresholds (>28 and <=3.5); every breakpoint here, including the
// 80 m/3.5 MHz one, matches original_source/src/murmur/modules/
// HFBandSimulation.cpp's full ladder exactly — an Open Question resolution
// recorded in DESIGN.md.
var bandLadder = []struct {
	band      int
	minMUFMHz float64
}{
	{10, 28},
	{12, 24},
	{15, 21},
	{17, 18},
	{20, 14},
	{30, 10},
	{40, 7},
	{80, 3.5},
	{160, 0}, // catch-all, MUF <= 3.5 and below
}

// RecommendBand implements spec.md §4.3's band recommendation for a given
// great-circle distance under the engine's current ionospheric state.
func (e *Engine) RecommendBand(distanceKm float64) int {
	snap := e.state.Snapshot()
	muf := snap.MUF(distanceKm)
	return recommendBandFor(distanceKm, muf)
}

func recommendBandFor(distanceKm, muf float64) int {
	switch {
	case distanceKm < 500:
		return 20
	case distanceKm < 2000:
		switch {
		case muf > 21:
			return 15
		case muf > 14:
			return 20
		default:
			return 40
		}
	default:
		for _, step := range bandLadder {
			if muf > step.minMUFMHz {
				return step.band
			}
		}
		return 160
	}
}
