package store

import (
	"testing"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite("file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterUserEnforcesNameUniqueness(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.RegisterUser("Alice", nil, nil); err != nil {
		t.Fatal(err)
	}
	_, err := s.RegisterUser("alice", nil, nil)
	if errs.KindOf(err) != errs.Conflict {
		t.Errorf("got %v, want Conflict", err)
	}
}

func TestUnregisterNonexistentUserIsNotFound(t *testing.T) {
	s := openTestStore(t)

	err := s.UnregisterUser(999)
	if errs.KindOf(err) != errs.NotFound {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.RegisterUser("bob", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetProperty(id, PropGridLocator, "JO59jw"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetProperty(id, PropGridLocator)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != "JO59jw" {
		t.Errorf("got (%q,%v), want (JO59jw,true)", got, ok)
	}

	if err := s.SetProperty(id, PropGridLocator, "FN31pr"); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.GetProperty(id, PropGridLocator)
	if got != "FN31pr" {
		t.Errorf("overwrite failed, got %q", got)
	}
}

func TestACLRowsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	uid := 7
	rows := []ACLRow{
		{ChannelID: 1, UserID: &uid, Allow: 3, ApplySubs: true},
		{ChannelID: 1, Group: "moderator", Allow: 7, Deny: 1, ApplyHere: true},
	}
	if err := s.SetACLRowsForChannel(1, rows); err != nil {
		t.Fatal(err)
	}

	got, err := s.ACLRowsForChannel(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
}

func TestBanQueryMatchesByPrefix(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddBan(Ban{
		Address:   []byte{192, 168, 1, 0},
		PrefixLen: 24,
		Reason:    "abuse",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, matched, err := s.QueryBan([]byte{192, 168, 1, 55}, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Error("expected ban to match address in banned /24")
	}

	_, matched, _ = s.QueryBan([]byte{192, 168, 2, 55}, 1000)
	if matched {
		t.Error("expected ban not to match address outside banned /24")
	}
}

func TestTempGroupsMembership(t *testing.T) {
	g := NewTempGroups()

	g.Join(1, 5, "relay")
	if !g.IsMember(1, 5, "relay") {
		t.Fatal("expected membership after Join")
	}

	g.ClearSession(1)
	if g.IsMember(1, 5, "relay") {
		t.Error("expected membership cleared after ClearSession")
	}
}
