package session

import (
	"testing"
	"time"
)

func TestIsIdle(t *testing.T) {
	s := newSession(1, nil)
	s.lastActivity = time.Now().Add(-time.Minute)

	if !s.IsIdle(time.Now(), DefaultIdleTimeout) {
		t.Error("expected session idle after exceeding timeout")
	}
	if s.IsIdle(time.Now(), time.Hour) {
		t.Error("expected session not idle under a generous timeout")
	}
}

func TestHandshakeExpiredOnlyBeforeAuthentication(t *testing.T) {
	s := newSession(1, nil)
	s.lastActivity = time.Now().Add(-time.Hour)

	if !s.HandshakeExpired(time.Now(), DefaultHandshakeDeadline) {
		t.Error("expected expired handshake for stale unauthenticated session")
	}

	s.authenticated = true
	if s.HandshakeExpired(time.Now(), DefaultHandshakeDeadline) {
		t.Error("expected authenticated sessions to never report handshake-expired")
	}
}
