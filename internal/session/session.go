// Package session implements spec.md §3's transient Session record and
// §4.1's handshake state machine, grounded on the teacher's Peer/Conn
// (conn.go, init.go, command.go) — including its SRP exchange, generalized
// from a single hardcoded auth database to the pluggable internal/store
// verifier lookup.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/wirecrypto"
)

// State is the handshake state machine of spec.md §4.1.
type State int

const (
	Fresh State = iota
	Versioned
	Authenticating
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Versioned:
		return "versioned"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Codec is the negotiated voice codec.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecOpus
	CodecCELTLegacy
)

// Flags bundles the per-session boolean state of spec.md §3.
type Flags struct {
	SelfMute        bool
	SelfDeaf        bool
	ServerMute      bool
	ServerDeaf      bool
	Suppress        bool
	PrioritySpeaker bool
	Recording       bool
}

// Session is the transient per-connection record of spec.md §3.
type Session struct {
	mu sync.RWMutex

	id    uint32
	state State

	userID        int
	authenticated bool
	username      string

	channelID int

	flags Flags

	crypto *wirecrypto.Session

	lastActivity time.Time
	addr         net.Addr
	voiceAddr    net.Addr

	codec Codec

	gridLocator string

	srp handshakeSRP
}

func newSession(id uint32, addr net.Addr) *Session {
	return &Session{
		id:           id,
		state:        Fresh,
		lastActivity: time.Now(),
		addr:         addr,
	}
}

func (s *Session) ID() uint32 { return s.id }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Session) UserID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.authenticated
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) ChannelID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelID
}

func (s *Session) SetChannelID(c int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = c
}

func (s *Session) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

func (s *Session) SetFlags(f Flags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = f
}

func (s *Session) Crypto() *wirecrypto.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.crypto
}

func (s *Session) SetCrypto(c *wirecrypto.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crypto = c
}

func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActivity)
}

func (s *Session) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Session) VoiceAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceAddr
}

// BindVoiceAddr records the address voice packets arrive from, once the
// first encrypted packet round-trips, per spec.md §4.1.
func (s *Session) BindVoiceAddr(addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceAddr = addr
}

func (s *Session) Codec() Codec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codec
}

func (s *Session) SetCodec(c Codec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codec = c
}

func (s *Session) GridLocator() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gridLocator, s.gridLocator != ""
}

func (s *Session) SetGridLocator(grid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gridLocator = grid
}
