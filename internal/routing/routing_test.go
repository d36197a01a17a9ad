package routing

import (
	"testing"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/channel"
	"github.com/signalsfoundry/murmurhf/internal/propagation"
	"github.com/signalsfoundry/murmurhf/internal/session"
	"github.com/signalsfoundry/murmurhf/internal/store"
)

func newTestFabric(t *testing.T) (*Fabric, *channel.Tree, *session.Manager, *store.Store) {
	t.Helper()

	tree := channel.New(nil)
	if err := tree.AddChannel(1, "40m", "", channel.RootID, false); err != nil {
		t.Fatal(err)
	}

	st, err := store.OpenSQLite("file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	engine := propagation.New(propagation.NewState(120, 3, propagation.SeasonWinter, false), nil, nil)
	sess := session.NewManager(100)
	groups := store.NewTempGroups()

	return New(tree, engine, sess, st, groups), tree, sess, st
}

func authenticatedSession(t *testing.T, sess *session.Manager, userID, channelID int) *session.Session {
	t.Helper()
	s, err := sess.Create(nil)
	if err != nil {
		t.Fatal(err)
	}
	s.HandleVersion()
	s.SetChannelID(channelID)
	s.ForceAuthenticated(userID)
	return s
}

func TestNoGridLocatorsPassesThrough(t *testing.T) {
	f, _, sess, _ := newTestFabric(t)

	speaker := authenticatedSession(t, sess, 1, 1)
	receiver := authenticatedSession(t, sess, 2, 1)

	effects, err := f.RouteVoicePacket(speaker.ID(), 0, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(effects) != 1 || effects[0].ReceiverSessionID != receiver.ID() {
		t.Fatalf("got %+v, want single effect for receiver", effects)
	}
	if effects[0].Dropped {
		t.Error("expected pass-through effect without grid locators")
	}
}

func TestListeningOnlySpeakerIsSilent(t *testing.T) {
	f, _, sess, st := newTestFabric(t)

	speaker := authenticatedSession(t, sess, 1, 1)
	authenticatedSession(t, sess, 2, 1)

	if err := st.SetProperty(1, store.PropListeningOnlyFlag, "1"); err != nil {
		t.Fatal(err)
	}

	effects, err := f.RouteVoicePacket(speaker.ID(), 0, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(effects) != 0 {
		t.Errorf("got %d effects, want 0 for listening-only speaker", len(effects))
	}
}

func TestListenerBindingReceivesChannelAudio(t *testing.T) {
	f, tree, sess, _ := newTestFabric(t)

	listener := authenticatedSession(t, sess, 9, channel.RootID)
	if err := tree.AddListener(9, 1); err != nil {
		t.Fatal(err)
	}
	speaker := authenticatedSession(t, sess, 1, 1)

	effects, err := f.RouteVoicePacket(speaker.ID(), 0, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, e := range effects {
		if e.ReceiverSessionID == listener.ID() {
			found = true
		}
	}
	if !found {
		t.Error("expected listener to receive channel audio via binding")
	}
}
