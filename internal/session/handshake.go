package session

import (
	"crypto/rand"

	"github.com/HimbeerserverDE/srp"

	"github.com/signalsfoundry/murmurhf/internal/errs"
	"github.com/signalsfoundry/murmurhf/internal/store"
)

// HandleVersion is the Fresh → Versioned transition of spec.md §4.1.
// Any other message in the Fresh state is a ProtocolError.
func (s *Session) HandleVersion() error {
	if s.State() != Fresh {
		return errs.New(errs.ProtocolError, "session", errUnexpectedVersion)
	}
	s.setState(Versioned)
	s.Touch()
	return nil
}

var errUnexpectedVersion = protoErr("Version received outside Fresh state")
var errUnexpectedAuthenticate = protoErr("Authenticate received outside Versioned state")
var errUnexpectedSRPBytesA = protoErr("SrpBytesA received outside Authenticating state")
var errUnexpectedSRPBytesM = protoErr("SrpBytesM received outside Authenticating state")

type protoErr string

func (e protoErr) Error() string { return string(e) }

// BeginAuthenticate is the Versioned → Authenticating transition. It
// resolves the user by name in st, then runs the server half of the SRP
// exchange against the client's A value and returns the server's B value.
//
// It registers nothing: a failed lookup is returned unchanged, and a user
// with no stored verifier or salt is an AuthError. Registering new names
// under the `autoregister` config key is left to the caller.
func (s *Session) BeginAuthenticate(st *store.Store, username string, clientA []byte) (serverB []byte, err error) {
	if s.State() != Versioned {
		return nil, errs.New(errs.ProtocolError, "session", errUnexpectedAuthenticate)
	}
	s.setState(Authenticating)

	user, err := st.LookupUserByName(username)
	if err != nil {
		return nil, err
	}
	if len(user.PasswordVerifier) == 0 || len(user.PasswordSalt) == 0 {
		return nil, errs.New(errs.AuthError, "session", errNoVerifier)
	}

	b, err := s.beginSRP(username, clientA, user.PasswordSalt, user.PasswordVerifier)
	if err != nil {
		return nil, errs.New(errs.AuthError, "session", err)
	}

	s.mu.Lock()
	s.userID = user.ID
	s.username = username
	s.mu.Unlock()

	return b, nil
}

var errNoVerifier = protoErr("user has no password verifier set")

// FinishAuthenticate completes the Authenticating state with the client's
// proof M. On success the session moves to Authenticated and userID is
// returned; on failure the caller is expected to Reject and close per
// spec.md §4.1 (permanent failure → Reject, close).
func (s *Session) FinishAuthenticate(m []byte) (userID int, err error) {
	if s.State() != Authenticating {
		return 0, errs.New(errs.ProtocolError, "session", errUnexpectedSRPBytesM)
	}

	if !s.verifySRP(m) {
		s.setState(Closed)
		return 0, errs.New(errs.AuthError, "session", errBadProof)
	}

	s.mu.Lock()
	s.authenticated = true
	s.state = Authenticated
	uid := s.userID
	s.mu.Unlock()
	s.Touch()

	return uid, nil
}

var errBadProof = protoErr("SRP proof mismatch")

// NewVerifier derives a fresh SRP salt/verifier pair for name/password,
// grounded on init.go's client-side srp.NewClient call — the server plays
// this role once, at registration time, never retaining the plaintext
// password.
func NewVerifier(name, password string) (salt, verifier []byte, err error) {
	salt, verifier, err = srp.NewClient([]byte(name), []byte(password))
	return salt, verifier, err
}

// ForceAuthenticated marks the session Authenticated for userID without
// running an SRP exchange, used for anonymous listening-only logins that
// carry a random token instead of a verifier (see RandomSessionToken).
func (s *Session) ForceAuthenticated(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.authenticated = true
	s.state = Authenticated
}

// SetUsername records the display name associated with the session,
// used by anonymous logins that skip BeginAuthenticate entirely.
func (s *Session) SetUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = name
}

// RandomSessionToken returns cryptographically random bytes, used for
// anonymous listening-only logins that skip SRP entirely (no persisted
// user record to verify against).
func RandomSessionToken(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
