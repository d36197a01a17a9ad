package store

import (
	"database/sql"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// GetTexture returns a user's avatar/texture blob, grounded on the
// teacher's readStorageItem/SetStorageKey key-value pattern but keyed on
// user id rather than an arbitrary string, per spec.md §4.5.
func (s *Store) GetTexture(userID int) ([]byte, bool, error) {
	var blob []byte
	row := s.db.QueryRow(`SELECT blob FROM textures WHERE user_id = `+s.placeholder(1), userID)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, errs.New(errs.StoreError, "store", err)
	}
	return blob, true, nil
}

// SetTexture upserts a user's texture blob; an empty blob deletes it,
// mirroring the teacher's SetStorageKey("", ...) deletes-on-empty rule.
func (s *Store) SetTexture(userID int, blob []byte) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM textures WHERE user_id = `+s.placeholder(1), userID); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		if len(blob) == 0 {
			return nil
		}
		_, err := tx.Exec(
			`INSERT INTO textures (user_id, blob) VALUES (`+s.placeholder(1)+`,`+s.placeholder(2)+`)`,
			userID, blob,
		)
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		return nil
	})
}
