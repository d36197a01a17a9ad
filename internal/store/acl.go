package store

import (
	"database/sql"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// ACLRow is the persisted form of spec.md §3's ACL row. Exactly one of
// UserID or Group is set.
type ACLRow struct {
	ChannelID int
	UserID    *int
	Group     string
	Allow     uint32
	Deny      uint32
	ApplyHere bool
	ApplySubs bool
	Inherited bool
}

// ACLRowsForChannel returns every ACL row configured directly on
// channelID (not its ancestors — permission evaluation walks ancestors
// itself via internal/channel).
func (s *Store) ACLRowsForChannel(channelID int) ([]ACLRow, error) {
	rows, err := s.db.Query(
		`SELECT channel_id, user_id, group_name, allow_mask, deny_mask, apply_here, apply_subs, inherited
		 FROM acl_rows WHERE channel_id = `+s.placeholder(1),
		channelID,
	)
	if err != nil {
		return nil, errs.New(errs.StoreError, "store", err)
	}
	defer rows.Close()

	var out []ACLRow
	for rows.Next() {
		var r ACLRow
		var userID sql.NullInt64
		var group sql.NullString
		if err := rows.Scan(&r.ChannelID, &userID, &group, &r.Allow, &r.Deny, &r.ApplyHere, &r.ApplySubs, &r.Inherited); err != nil {
			return nil, errs.New(errs.StoreError, "store", err)
		}
		if userID.Valid {
			id := int(userID.Int64)
			r.UserID = &id
		}
		r.Group = group.String
		out = append(out, r)
	}
	return out, nil
}

// SetACLRowsForChannel replaces channelID's ACL rows wholesale, inside one
// transaction — the set is small and always managed as a unit, mirroring
// how internal/channel.SetACL treats it in memory.
func (s *Store) SetACLRowsForChannel(channelID int, rows []ACLRow) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM acl_rows WHERE channel_id = `+s.placeholder(1), channelID); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		for _, r := range rows {
			var userID interface{}
			if r.UserID != nil {
				userID = *r.UserID
			}
			_, err := tx.Exec(
				`INSERT INTO acl_rows (channel_id, user_id, group_name, allow_mask, deny_mask, apply_here, apply_subs, inherited)
				 VALUES (`+s.placeholder(1)+`,`+s.placeholder(2)+`,`+s.placeholder(3)+`,`+s.placeholder(4)+`,`+
					s.placeholder(5)+`,`+s.placeholder(6)+`,`+s.placeholder(7)+`,`+s.placeholder(8)+`)`,
				channelID, userID, r.Group, r.Allow, r.Deny, r.ApplyHere, r.ApplySubs, r.Inherited,
			)
			if err != nil {
				return errs.New(errs.StoreError, "store", err)
			}
		}
		return nil
	})
}
