package session

import "time"

// DefaultIdleTimeout is the default idle timer of spec.md §4.1 (30s).
// The `timeout` config key is not read in place of it; callers pass the
// timeout to IsIdle.
const DefaultIdleTimeout = 30 * time.Second

// DefaultHandshakeDeadline bounds how long a session may remain
// unauthenticated before the control loop closes it (spec.md §4.1).
const DefaultHandshakeDeadline = 5 * time.Second

// DefaultRPCDeadline is the per-RPC deadline of spec.md §5 ("Every
// client-initiated RPC-like operation has a deadline (default 5s)").
const DefaultRPCDeadline = 5 * time.Second

// MaxInFlightControlMessages is the per-session limit on unacknowledged
// control messages. No code in this module reads it, and no config key
// overrides it.
const MaxInFlightControlMessages = 64

// IsIdle reports whether the session has exceeded timeout since its last
// activity — a missed Ping and no voice traffic, per spec.md §4.1.
func (s *Session) IsIdle(now time.Time, timeout time.Duration) bool {
	return s.IdleFor(now) > timeout
}

// HandshakeExpired reports whether a not-yet-authenticated session has
// gone longer than deadline since its last activity.
func (s *Session) HandshakeExpired(now time.Time, deadline time.Duration) bool {
	if s.Authenticated() {
		return false
	}
	return s.IdleFor(now) > deadline
}
