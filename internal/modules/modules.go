// Package modules adapts the original source's ModuleManager/IServerModule
// pattern (src/murmur/ModuleManager.{h,cpp} and the modules/ variant) into
// a bounded worker-pool fan-out with per-task failure isolation, per
// DESIGN NOTES §9: "one failing module must not prevent others from
// receiving the event."
package modules

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Module is the minimal lifecycle contract every server module satisfies.
// It is deliberately smaller than the original IServerModule: settings and
// versioning belong to internal/config, not here.
type Module interface {
	Name() string
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context)
}

// Manager fans work out to modules over a bounded worker pool, isolating
// failures so one panicking or erroring module never blocks the others.
type Manager struct {
	mu      sync.RWMutex
	modules []Module
	pool    chan struct{}
}

// New creates a Manager whose concurrent fan-out is capped at size
// (defaulting to runtime.GOMAXPROCS(0) when size <= 0, per spec.md §5
// "worker pool of size = hardware concurrency, overridable").
func New(size int) *Manager {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Manager{pool: make(chan struct{}, size)}
}

// Register adds m to the set of managed modules and initializes it.
func (mgr *Manager) Register(ctx context.Context, m Module) error {
	if err := m.Initialize(ctx); err != nil {
		return err
	}

	mgr.mu.Lock()
	mgr.modules = append(mgr.modules, m)
	mgr.mu.Unlock()
	return nil
}

// ShutdownAll shuts every registered module down, most-recently-registered
// first, tolerating individual failures (logged, never propagated).
func (mgr *Manager) ShutdownAll(ctx context.Context) {
	mgr.mu.RLock()
	mods := append([]Module(nil), mgr.modules...)
	mgr.mu.RUnlock()

	for i := len(mods) - 1; i >= 0; i-- {
		func(m Module) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("module %s panicked during shutdown: %v", m.Name(), r)
				}
			}()
			m.Shutdown(ctx)
		}(mods[i])
	}
}

// ExecuteOnAll runs fn against every registered module concurrently,
// bounded by the worker pool, and returns once all have completed. A
// panicking or erroring fn is logged and does not affect other modules.
func (mgr *Manager) ExecuteOnAll(fn func(Module) error) {
	mgr.mu.RLock()
	mods := append([]Module(nil), mgr.modules...)
	mgr.mu.RUnlock()

	var wg sync.WaitGroup
	for _, m := range mods {
		wg.Add(1)
		mgr.pool <- struct{}{}
		go func(m Module) {
			defer wg.Done()
			defer func() { <-mgr.pool }()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("module %s panicked: %v", m.Name(), r)
				}
			}()

			if err := fn(m); err != nil {
				log.Printf("module %s reported error: %v", m.Name(), err)
			}
		}(m)
	}
	wg.Wait()
}
