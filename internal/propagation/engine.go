// Package propagation implements spec.md §4.3: per-pair signal strength
// as a function of geography, frequency and time, and the fading model
// derived from it. It is the dominant algorithmic content of the server.
package propagation

import (
	"math/rand"
	"sync"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/bus"
	"github.com/signalsfoundry/murmurhf/internal/metrics"
)

// Engine owns the ionospheric State, the pair signal-strength cache, and
// publishes change notifications onto the event bus. It has no knowledge
// of sessions or channels — those are looked up by the caller (e.g.
// internal/routing) using grid locator strings, per DESIGN NOTES §9's
// "express relationships by stable ids, not pointers."
type Engine struct {
	state *State
	cache *PairCache
	bus   *bus.Bus
	mtr   *metrics.Metrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New returns an Engine seeded with initial ionospheric state. bus and
// mtr may be nil (tests construct Engines without either).
func New(initial *State, b *bus.Bus, mtr *metrics.Metrics) *Engine {
	return &Engine{
		state: initial,
		cache: NewPairCache(),
		bus:   b,
		mtr:   mtr,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State exposes the engine's ionospheric state for read access (e.g. the
// server's ServerSync / UserStats payloads).
func (e *Engine) State() *State { return e.state }

// Cache exposes the pair cache for invariant tests.
func (e *Engine) Cache() *PairCache { return e.cache }

func (e *Engine) hitCounter() {
	if e.mtr != nil {
		e.mtr.PairCacheHits.Inc()
	}
}

func (e *Engine) missCounter() {
	if e.mtr != nil {
		e.mtr.PairCacheMisses.Inc()
	}
}

func (e *Engine) notifySignalStrengthChanged(gridA, gridB string, score float64) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.TopicSignalStrengthChanged, bus.SignalStrengthChanged{
		GridA: gridA, GridB: gridB, Strength: score,
	})
}

// applyMutation clears the cache, updates the epoch gauge and publishes
// propagation-updated + MUF-changed whenever a mutation actually bumped
// the epoch, satisfying spec.md §5's happens-before ordering: the epoch
// increment happens inside State's lock, strictly before this
// notification runs.
func (e *Engine) applyMutation(epoch uint64, changed bool) {
	if !changed {
		return
	}

	e.cache.Clear()

	if e.mtr != nil {
		e.mtr.IonosphericEpoch.Set(float64(epoch))
	}
	if e.bus != nil {
		e.bus.Publish(bus.TopicPropagationUpdated, epoch)
		e.bus.Publish(bus.TopicMUFChanged, e.state.Snapshot().MUF(0))
	}
}

// SetSolarFluxIndex mutates SFI, per spec.md §4.3 "State-change fan-out".
func (e *Engine) SetSolarFluxIndex(sfi int) {
	epoch, changed := e.state.SetSFI(sfi)
	e.applyMutation(epoch, changed)
}

// SetKIndex mutates the K-index.
func (e *Engine) SetKIndex(k int) {
	epoch, changed := e.state.SetK(k)
	e.applyMutation(epoch, changed)
}

// SetSeason mutates the season.
func (e *Engine) SetSeason(season int) {
	epoch, changed := e.state.SetSeason(season)
	e.applyMutation(epoch, changed)
}

// RefreshAutoSeason re-derives the season from now() when auto-time is
// enabled; intended to be called from the periodic ionospheric task.
func (e *Engine) RefreshAutoSeason(now time.Time) {
	epoch, changed := e.state.RefreshAutoSeason(now)
	e.applyMutation(epoch, changed)
}

// ApplyExternalUpdate applies an SFI/K pair obtained from an external
// data source (DXView/SWPC fetchers are out of scope per spec.md §1; only
// this callback is specified) and publishes external-data-updated
// regardless of whether the values actually changed, since the source
// update itself is the event of interest.
func (e *Engine) ApplyExternalUpdate(source string, sfi, k int, ok bool) {
	if ok {
		e.SetSolarFluxIndex(sfi)
		e.SetKIndex(k)
	}
	if e.bus != nil {
		e.bus.Publish(bus.TopicExternalDataUpdated, externalDataUpdate{Source: source, Success: ok})
	}
}

type externalDataUpdate struct {
	Source  string
	Success bool
}
