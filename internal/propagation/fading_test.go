package propagation

import (
	"testing"
	"time"
)

func TestFadingEffectsBounds(t *testing.T) {
	e := New(NewState(100, 4, SeasonSpring, false), nil, nil)
	now := time.Now()

	for _, s := range []float64{0, 0.05, 0.5, 0.99, 1} {
		loss, jitter, noise := e.FadingEffects(s, now)
		if loss < 0 || loss > 0.95 {
			t.Errorf("packet loss for s=%v = %v, out of [0,0.95]", s, loss)
		}
		if jitter < 0 || jitter > 1 {
			t.Errorf("jitter for s=%v = %v, out of [0,1]", s, jitter)
		}
		if noise < 0 || noise > 1 {
			t.Errorf("noise for s=%v = %v, out of [0,1]", s, noise)
		}
	}
}

func TestFadingFullSignalLowLoss(t *testing.T) {
	e := New(NewState(100, 0, SeasonSpring, false), nil, nil)
	now := time.Now()

	loss, _, noise := e.FadingEffects(1, now)
	if loss != 0 {
		t.Errorf("packet loss at s=1 = %v, want 0", loss)
	}
	if noise != 0 {
		t.Errorf("noise factor at s=1 = %v, want 0", noise)
	}
}
