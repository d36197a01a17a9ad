package propagation

import (
	"math"
	"math/rand"
	"time"
)

// FadingEffects derives packet-loss probability, jitter and an additive
// noise factor from a signal-strength score s, per spec.md §4.3. The
// "jitter = clamp(d, 0, 1) scaled similarly" clause is underspecified in
// spec.md beyond naming the same composite multiplier packet loss uses;
// this implementation applies that multiplier to d directly (without the
// packet-loss-specific ^1.3 exponent) and clamps to [0,1] — an Open
// Question resolution recorded in DESIGN.md.
func (e *Engine) FadingEffects(s float64, now time.Time) (packetLoss, jitter, noiseFactor float64) {
	d := clamp(1-s, 0, 1)
	m := now.UnixMilli()

	tSlow := float64(5000 + e.rng.Intn(2001)) // [5000, 7000] ms
	slowPhaseMs := m % int64(tSlow)
	p := float64(slowPhaseMs) / tSlow
	cSlow := 0.5 * (1 + math.Sin(2*math.Pi*p))

	tFast := float64(100 + e.rng.Intn(301)) // [100, 400] ms
	fastPhaseMs := m % int64(tFast)
	cFast := 0.3 * (1 + math.Sin(6*math.Pi*float64(fastPhaseMs)/tFast))

	cRand := 0.2 * e.rng.Float64()

	deepFadeProb := math.Min(0.2, 0.05+0.15*d)
	var cDeep float64
	if sampleBernoulli(e.rng, deepFadeProb) {
		cDeep = 0.7 + 0.3*e.rng.Float64()
	}

	multiplier := 0.5 + 0.3*cSlow + 0.1*cFast + cRand + cDeep

	packetLoss = clamp(math.Pow(d, 1.3)*multiplier, 0, 0.95)
	jitter = clamp(d*multiplier, 0, 1)
	noiseFactor = clamp(d, 0, 1)

	return packetLoss, jitter, noiseFactor
}

// sampleBernoulli is kept as a named helper so the deep-fade draw reads
// the way spec.md states it ("Bernoulli(p)") rather than as a bare
// comparison.
func sampleBernoulli(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}
