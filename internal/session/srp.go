package session

import (
	"crypto/subtle"

	"github.com/HimbeerserverDE/srp"
)

// handshakeSRP holds the server-side intermediate values of one SRP
// exchange, named the way command.go's Peer fields are (srp_s/srp_A/
// srp_B/srp_K) but scoped to the session rather than a global Peer.
type handshakeSRP struct {
	username []byte
	s        []byte
	a        []byte
	b        []byte
	k        []byte
}

// beginSRP runs the server half of the handshake given the client's A and
// the stored (salt, verifier) pair, mirroring command.go's
// ToServerSrpBytesA handler.
func (s *Session) beginSRP(username string, a, salt, verifier []byte) (b []byte, err error) {
	b, _, k, err := srp.Handshake(a, verifier)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.srp = handshakeSRP{username: []byte(username), s: salt, a: a, b: b, k: k}
	s.username = username
	s.mu.Unlock()

	return b, nil
}

// verifySRP checks the client's proof M against the locally computed M2,
// mirroring command.go's ToServerSrpBytesM handler's constant-time
// comparison.
func (s *Session) verifySRP(m []byte) bool {
	s.mu.RLock()
	h := s.srp
	s.mu.RUnlock()

	m2 := srp.CalculateM(h.username, h.s, h.a, h.b, h.k)
	return subtle.ConstantTimeCompare(m, m2) == 1
}
