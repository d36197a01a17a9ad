package store

import (
	"database/sql"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// Block registers that ownerID no longer wants to hear blockedID,
// backing the "user-level block-list" spec.md §4.4 excludes receivers by.
func (s *Store) Block(ownerID, blockedID int) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`DELETE FROM blocklist WHERE owner_id = `+s.placeholder(1)+` AND blocked_id = `+s.placeholder(2),
			ownerID, blockedID,
		); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		_, err := tx.Exec(
			`INSERT INTO blocklist (owner_id, blocked_id) VALUES (`+s.placeholder(1)+`,`+s.placeholder(2)+`)`,
			ownerID, blockedID,
		)
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		return nil
	})
}

// Unblock removes a block-list entry; a no-op if absent.
func (s *Store) Unblock(ownerID, blockedID int) error {
	_, err := s.db.Exec(
		`DELETE FROM blocklist WHERE owner_id = `+s.placeholder(1)+` AND blocked_id = `+s.placeholder(2),
		ownerID, blockedID,
	)
	if err != nil {
		return errs.New(errs.StoreError, "store", err)
	}
	return nil
}

// IsBlocked reports whether ownerID's block list contains blockedID.
func (s *Store) IsBlocked(ownerID, blockedID int) (bool, error) {
	var n int
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM blocklist WHERE owner_id = `+s.placeholder(1)+` AND blocked_id = `+s.placeholder(2),
		ownerID, blockedID,
	)
	if err := row.Scan(&n); err != nil {
		return false, errs.New(errs.StoreError, "store", err)
	}
	return n > 0, nil
}
