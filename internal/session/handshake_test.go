package session

import (
	"strings"
	"testing"

	"github.com/HimbeerserverDE/srp"

	"github.com/signalsfoundry/murmurhf/internal/errs"
	"github.com/signalsfoundry/murmurhf/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenSQLite("file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHandshakeFullRoundTrip(t *testing.T) {
	st := openTestStore(t)

	username := "alice"
	password := []byte("correct horse battery staple")

	salt, verifier, err := srp.NewClient([]byte(strings.ToLower(username)), password)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.RegisterUser(username, verifier, salt); err != nil {
		t.Fatal(err)
	}

	sess := newSession(1, nil)
	if err := sess.HandleVersion(); err != nil {
		t.Fatal(err)
	}
	if sess.State() != Versioned {
		t.Fatalf("state = %v, want Versioned", sess.State())
	}

	clientA, clientA_priv, err := srp.InitiateHandshake()
	if err != nil {
		t.Fatal(err)
	}

	serverB, err := sess.BeginAuthenticate(st, username, clientA)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State() != Authenticating {
		t.Fatalf("state = %v, want Authenticating", sess.State())
	}

	clientK, err := srp.CompleteHandshake(clientA, clientA_priv, []byte(strings.ToLower(username)), password, salt, serverB)
	if err != nil {
		t.Fatal(err)
	}
	clientM := srp.CalculateM([]byte(username), salt, clientA, serverB, clientK)

	uid, err := sess.FinishAuthenticate(clientM)
	if err != nil {
		t.Fatal(err)
	}
	if uid == 0 {
		t.Error("expected nonzero userID")
	}
	if sess.State() != Authenticated {
		t.Fatalf("state = %v, want Authenticated", sess.State())
	}
	if !sess.Authenticated() {
		t.Error("expected Authenticated() true")
	}
}

func TestFinishAuthenticateRejectsBadProof(t *testing.T) {
	st := openTestStore(t)

	username := "bob"
	password := []byte("hunter2")
	salt, verifier, err := srp.NewClient([]byte(strings.ToLower(username)), password)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.RegisterUser(username, verifier, salt); err != nil {
		t.Fatal(err)
	}

	sess := newSession(2, nil)
	sess.HandleVersion()

	clientA, _, err := srp.InitiateHandshake()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.BeginAuthenticate(st, username, clientA); err != nil {
		t.Fatal(err)
	}

	_, err = sess.FinishAuthenticate([]byte("garbage proof"))
	if errs.KindOf(err) != errs.AuthError {
		t.Errorf("got %v, want AuthError", err)
	}
	if sess.State() != Closed {
		t.Errorf("state = %v, want Closed", sess.State())
	}
}

func TestVersionOutsideFreshIsProtocolError(t *testing.T) {
	sess := newSession(3, nil)
	sess.HandleVersion()

	err := sess.HandleVersion()
	if errs.KindOf(err) != errs.ProtocolError {
		t.Errorf("got %v, want ProtocolError", err)
	}
}
