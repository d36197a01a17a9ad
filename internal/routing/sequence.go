package routing

import "sync"

// sequenceTracker assigns per-(speaker,receiver) monotonically increasing
// sequence numbers, counting dropped packets too — spec.md §4.4's
// ordering guarantee: "dropped packets are still counted against
// sequence so downstream jitter buffers detect gaps."
type sequenceTracker struct {
	mu      sync.Mutex
	counter map[seqKey]uint64
}

type seqKey struct {
	speaker, receiver uint32
}

func newSequenceTracker() *sequenceTracker {
	return &sequenceTracker{counter: make(map[seqKey]uint64)}
}

// next returns and advances the sequence counter for (speaker, receiver).
func (t *sequenceTracker) next(speaker, receiver uint32) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := seqKey{speaker, receiver}
	seq := t.counter[key]
	t.counter[key] = seq + 1
	return seq
}

// clearSpeaker drops every sequence counter keyed on speaker, called when
// its session closes.
func (t *sequenceTracker) clearSpeaker(speaker uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.counter {
		if key.speaker == speaker {
			delete(t.counter, key)
		}
	}
}
