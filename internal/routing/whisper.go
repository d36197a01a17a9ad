package routing

import "sync"

// WhisperTargetChannel is one channel entry of a whisper-target tuple,
// carrying the original's recursive flag (SPEC_FULL.md §5 WhisperTarget).
type WhisperTargetChannel struct {
	ChannelID int
	Recursive bool
	Group     string
}

// whisperTarget is the registered tuple for one (session, slot): explicit
// session ids, channel ids each with a recursive flag, and group filters
// — spec.md §4.4's three-component model.
type whisperTarget struct {
	Sessions []uint32
	Channels []WhisperTargetChannel
}

type targetKey struct {
	session uint32
	slot    uint8
}

// targetCache holds registered whisper targets and their materialized,
// cached receiver sets. Materialization re-resolves on the next lookup
// after any invalidation.
type targetCache struct {
	mu          sync.RWMutex
	targets     map[targetKey]whisperTarget
	resolved    map[targetKey][]uint32
	materialize func(whisperTarget) []uint32
}

func newTargetCache() *targetCache {
	return &targetCache{
		targets:  make(map[targetKey]whisperTarget),
		resolved: make(map[targetKey][]uint32),
	}
}

// Register stores a whisper-target tuple for (sessionID, slot), replacing
// any previous registration and dropping its materialized cache entry.
func (c *targetCache) Register(sessionID uint32, slot uint8, t whisperTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := targetKey{sessionID, slot}
	c.targets[key] = t
	delete(c.resolved, key)
}

// Clear removes a whisper-target registration entirely.
func (c *targetCache) Clear(sessionID uint32, slot uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := targetKey{sessionID, slot}
	delete(c.targets, key)
	delete(c.resolved, key)
}

// ClearSession drops every whisper target registered by sessionID, called
// on disconnect.
func (c *targetCache) ClearSession(sessionID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.targets {
		if key.session == sessionID {
			delete(c.targets, key)
			delete(c.resolved, key)
		}
	}
}

// InvalidateAll drops every materialized resolution — the registrations
// themselves survive and are materialized again on the next resolve.
// Nothing in this module calls it: a resolution cached at registration is
// not refreshed on user join/leave, channel structure changes, ACL changes
// or group-membership changes.
func (c *targetCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = make(map[targetKey][]uint32)
}

// resolve returns the (possibly cached) materialized receiver-session set
// for (sessionID, slot). Registration populates the cache eagerly (see
// Fabric.RegisterWhisperTarget). On a miss, a registered slot (one whose
// resolution InvalidateAll dropped) is materialized again and cached; a
// slot with no registration yields nil.
func (c *targetCache) resolve(sessionID uint32, slot uint8) []uint32 {
	key := targetKey{sessionID, slot}

	c.mu.RLock()
	if cached, ok := c.resolved[key]; ok {
		c.mu.RUnlock()
		return cached
	}
	t, ok := c.targets[key]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	out := c.materialize(t)

	c.mu.Lock()
	c.resolved[key] = out
	c.mu.Unlock()

	return out
}

// RegisterWhisperTarget implements the VoiceTarget registration of
// spec.md §4.4: resolves the channel/group components against the live
// session manager and channel tree once, then caches the result.
func (f *Fabric) RegisterWhisperTarget(sessionID uint32, slot uint8, sessions []uint32, channels []WhisperTargetChannel) {
	t := whisperTarget{Sessions: sessions, Channels: channels}
	f.targets.Register(sessionID, slot, t)

	resolved := f.materializeWhisperTarget(t)
	f.targets.mu.Lock()
	f.targets.resolved[targetKey{sessionID, slot}] = resolved
	f.targets.mu.Unlock()
}

// ClearWhisperTarget drops a single (sessionID, slot) registration, used
// when a client sends an empty VoiceTarget record to release a slot.
func (f *Fabric) ClearWhisperTarget(sessionID uint32, slot uint8) {
	f.targets.Clear(sessionID, slot)
}

func (f *Fabric) materializeWhisperTarget(t whisperTarget) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	add := func(id uint32) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, s := range t.Sessions {
		add(s)
	}

	for _, c := range t.Channels {
		ids := []int{c.ChannelID}
		if c.Recursive {
			ids = f.tree.DescendantsOf(c.ChannelID)
		}
		for _, cid := range ids {
			for _, s := range f.sess.All() {
				if s.ChannelID() != cid || !s.Authenticated() {
					continue
				}
				if c.Group != "" {
					uid, ok := s.UserID()
					if !ok {
						continue
					}
					if !f.tree.GroupContains(c.Group, uid) {
						continue
					}
				}
				add(s.ID())
			}
		}
	}

	return out
}
