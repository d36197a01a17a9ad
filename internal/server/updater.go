package server

import (
	"context"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/wire"
)

// runUpdater drives the periodic ionospheric task of spec.md §5: refresh
// the auto-derived season, run the external-data callback if configured,
// and fan out the resulting state to every connected session.
// A tick that fires while the previous one is still running is coalesced
// (skipped), never queued, per spec.md §5's concurrency note — the ticker
// itself already gives us that for free since it only ever has one
// in-flight call from this single goroutine.
func (s *Server) runUpdater(ctx context.Context) {
	if !s.cfg.HFPropagation.Enabled {
		return
	}

	interval := time.Duration(s.cfg.HFPropagation.UpdateIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runUpdateTick()
		}
	}
}

func (s *Server) runUpdateTick() {
	now := time.Now()
	if s.cfg.HFPropagation.AutoSeason {
		s.engine.RefreshAutoSeason(now)
	}

	if s.cfg.HFPropagation.UseExternalData {
		s.pollExternalData()
	}

	s.broadcastPropagationState()
}

// pollExternalData is the hook spec.md §4.3 names as "external data
// source, interfaced only" (DXView/SWPC fetchers are out of scope per
// spec.md §1's Non-goals). No fetcher is wired in, so this reports a
// failed attempt — ApplyExternalUpdate still needs to run so
// external-data-updated fires for anything subscribed to it.
func (s *Server) pollExternalData() {
	s.engine.ApplyExternalUpdate("none-configured", 0, 0, false)
}

func (s *Server) broadcastPropagationState() {
	snap := s.engine.State().Snapshot()
	rec := wire.PropagationUpdateRecord{
		Epoch:           snap.Epoch,
		SolarFluxIndex:  int32(snap.SFI),
		KIndex:          int32(snap.K),
		Season:          int32(snap.Season),
		CriticalFreqMHz: snap.CriticalFrequencyMHz(),
	}
	payload := rec.Encode()

	connsMu.RLock()
	defer connsMu.RUnlock()
	for _, cc := range conns {
		cc.send(wire.PropagationUpdate, payload)
	}
}
