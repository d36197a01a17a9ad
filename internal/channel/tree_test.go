package channel

import "testing"

func TestRootExists(t *testing.T) {
	tr := New(nil)
	c, ok := tr.Channel(RootID)
	if !ok {
		t.Fatal("root channel missing")
	}
	if c.ParentID != RootID {
		t.Errorf("root parent = %d, want %d (self)", c.ParentID, RootID)
	}
}

func TestACLInheritance(t *testing.T) {
	tr := New(nil)
	if err := tr.AddChannel(1, "40m", "", RootID, false); err != nil {
		t.Fatal(err)
	}

	uid := 42
	tr.SetACL(RootID, []*ACLRow{
		{ChannelID: RootID, UserID: &uid, Allow: PermTraverse | PermEnter | PermSpeak, ApplySubs: true},
	})

	perm, err := tr.EffectivePermission(uid, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !perm.Has(PermSpeak) {
		t.Error("expected inherited Speak permission on channel 1")
	}

	ok, err := tr.CanEnter(uid, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected CanEnter true")
	}
}

func TestACLDenyOverridesAncestorAllow(t *testing.T) {
	tr := New(nil)
	tr.AddChannel(1, "40m", "", RootID, false)

	uid := 7
	tr.SetACL(RootID, []*ACLRow{
		{ChannelID: RootID, UserID: &uid, Allow: PermSpeak | PermEnter | PermTraverse, ApplySubs: true},
	})
	tr.SetACL(1, []*ACLRow{
		{ChannelID: 1, UserID: &uid, Deny: PermSpeak, ApplyHere: true},
	})

	perm, err := tr.EffectivePermission(uid, 1)
	if err != nil {
		t.Fatal(err)
	}
	if perm.Has(PermSpeak) {
		t.Error("expected Speak to be denied at channel 1")
	}
}

func TestListenerIdempotent(t *testing.T) {
	tr := New(nil)
	tr.AddChannel(1, "40m", "", RootID, false)

	if err := tr.AddListener(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := tr.AddListener(1, 1); err != nil {
		t.Fatal(err)
	}

	bindings := tr.ListenersOf(1)
	if len(bindings) != 1 {
		t.Errorf("len(bindings) = %d, want 1", len(bindings))
	}
}

func TestListenerRemoveSymmetric(t *testing.T) {
	tr := New(nil)
	tr.AddChannel(1, "40m", "", RootID, false)
	tr.AddListener(5, 1)

	tr.RemoveListener(5, 1)

	if _, ok := tr.IsListening(5, 1); ok {
		t.Error("expected listener removed")
	}
	if len(tr.ListenersOf(1)) != 0 {
		t.Error("expected channel index empty")
	}
}

func TestPermissionCacheInvalidatedOnACLChange(t *testing.T) {
	tr := New(nil)
	tr.AddChannel(1, "40m", "", RootID, false)

	uid := 3
	perm, _ := tr.EffectivePermission(uid, 1)
	if perm.Has(PermSpeak) {
		t.Fatal("expected no Speak before ACL grant")
	}

	tr.SetACL(RootID, []*ACLRow{
		{ChannelID: RootID, UserID: &uid, Allow: PermSpeak, ApplySubs: true},
	})

	perm, _ = tr.EffectivePermission(uid, 1)
	if !perm.Has(PermSpeak) {
		t.Error("expected Speak after ACL grant and cache invalidation")
	}
}
