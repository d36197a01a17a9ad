package channel

import "math"

// AdjustmentType selects how a VolumeAdjustment's factor scales a sample,
// grounded on VolumeAdjustment.h's Multiplicative/Logarithmic modes.
type AdjustmentType int

const (
	Multiplicative AdjustmentType = iota
	Logarithmic
)

// VolumeAdjustment is the listener-binding volume adjustment of spec.md
// §3: {type, factor}, factor clamped to [0, 10]. Identity is
// Multiplicative with factor 1.
type VolumeAdjustment struct {
	Type   AdjustmentType
	Factor float64
}

// Identity returns the no-op volume adjustment applied when a listener
// binding is first created.
func Identity() VolumeAdjustment {
	return VolumeAdjustment{Type: Multiplicative, Factor: 1}
}

// Disabled returns the adjustment applied when a listener is disabled:
// factor 0 while the binding itself is preserved (spec.md §4.2).
func Disabled() VolumeAdjustment {
	return VolumeAdjustment{Type: Multiplicative, Factor: 0}
}

// ClampFactor clamps f to the [0, 10] range spec.md §3 names for the
// listener-binding volume adjustment.
func ClampFactor(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 10 {
		return 10
	}
	return f
}

// Apply adjusts sample by the adjustment, per VolumeAdjustment.cpp's two
// modes: Multiplicative scales linearly, Logarithmic treats Factor as a
// dB-style gain (10^(factor/20)).
func (v VolumeAdjustment) Apply(sample float32) float32 {
	factor := ClampFactor(v.Factor)

	switch v.Type {
	case Logarithmic:
		gain := math.Pow(10, factor/20)
		return float32(float64(sample) * gain)
	default:
		return float32(float64(sample) * factor)
	}
}
