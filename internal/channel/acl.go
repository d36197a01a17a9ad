package channel

// SetACL replaces every ACL row attached to channelID and invalidates the
// permission cache for the affected subtree, per spec.md §4.2.
func (t *Tree) SetACL(channelID int, rows []*ACLRow) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.channels[channelID]; !ok {
		return errNotFound(channelID)
	}

	t.acl[channelID] = rows
	t.invalidateSubtreeLocked(channelID)
	return nil
}

// SetGroupMembers replaces the membership of group and invalidates the
// whole permission cache, since group membership can affect evaluation
// at any channel referencing that group.
func (t *Tree) SetGroupMembers(group string, userIDs []int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := make(map[int]bool, len(userIDs))
	for _, id := range userIDs {
		members[id] = true
	}
	t.groups[group] = members
	t.permCache = make(map[permCacheKey]Permission)
}

func (t *Tree) isGroupMemberLocked(group string, userID int) bool {
	if group == "@all" {
		return true
	}
	members, ok := t.groups[group]
	if !ok {
		return false
	}
	return members[userID]
}

func (t *Tree) rowAppliesLocked(row *ACLRow, userID int) bool {
	if row.UserID != nil {
		return *row.UserID == userID
	}
	return t.isGroupMemberLocked(row.Group, userID)
}

// EffectivePermission walks from root to channelID, accumulating ACL
// grants and denials, per spec.md §4.2. Results are cached per
// (userID, channelID) until invalidated by an ACL, group-membership, or
// parentage change.
func (t *Tree) EffectivePermission(userID, channelID int) (Permission, error) {
	t.mu.RLock()
	if v, ok := t.permCache[permCacheKey{userID, channelID}]; ok {
		t.mu.RUnlock()
		return v, nil
	}

	if _, ok := t.channels[channelID]; !ok {
		t.mu.RUnlock()
		return PermNone, errNotFound(channelID)
	}

	chain := t.ancestorsLocked(channelID)

	var perm Permission
	for i, id := range chain {
		isTarget := i == len(chain)-1
		for _, row := range t.acl[id] {
			if !t.rowAppliesLocked(row, userID) {
				continue
			}
			if !isTarget && !row.ApplySubs {
				continue
			}
			if isTarget && !row.ApplyHere && !row.ApplySubs {
				continue
			}
			perm |= row.Allow
			perm &^= row.Deny
		}
	}
	t.mu.RUnlock()

	t.mu.Lock()
	t.permCache[permCacheKey{userID, channelID}] = perm
	t.mu.Unlock()

	return perm, nil
}

// CanTraverse reports whether userID has Traverse on every strict
// ancestor of channelID — required to see the channel at all.
func (t *Tree) CanTraverse(userID, channelID int) (bool, error) {
	t.mu.RLock()
	chain := t.ancestorsLocked(channelID)
	t.mu.RUnlock()

	for _, id := range chain[:len(chain)-1] {
		perm, err := t.EffectivePermission(userID, id)
		if err != nil {
			return false, err
		}
		if !perm.Has(PermTraverse) {
			return false, nil
		}
	}
	return true, nil
}

// CanEnter reports whether userID can both traverse to and Enter
// channelID.
func (t *Tree) CanEnter(userID, channelID int) (bool, error) {
	ok, err := t.CanTraverse(userID, channelID)
	if err != nil || !ok {
		return false, err
	}
	perm, err := t.EffectivePermission(userID, channelID)
	if err != nil {
		return false, err
	}
	return perm.Has(PermEnter), nil
}
