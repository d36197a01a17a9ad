package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// PropertyTag is the small-integer tag spec.md §3 keys the User record's
// property map on.
type PropertyTag int

const (
	PropComment PropertyTag = iota
	PropEmail
	PropTextureBlobID
	PropLastSeen
	PropLastChannel
	PropGridLocator
	PropPreferredBand
	PropAdminFlag
	PropListeningOnlyFlag
	PropAntennaGainDB
	PropAntennaDirectional
)

// User is the persisted record of spec.md §3.
type User struct {
	ID             int
	Name           string
	PasswordVerifier []byte
	PasswordSalt     []byte
	CertHashStrong   string
	CertHashWeak     string
}

var errNameTaken = fmt.Errorf("store: user name already registered")

// RegisterUser inserts a new user, enforcing case-insensitive
// name-uniqueness per spec.md §3. A name collision is a Conflict, not a
// StoreError — it is a normal outcome of concurrent self-registration.
func (s *Store) RegisterUser(name string, verifier, salt []byte) (int, error) {
	var id int
	err := s.withTx(func(tx *sql.Tx) error {
		var exists int
		row := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE name_lower = `+s.placeholder(1), strings.ToLower(name))
		if err := row.Scan(&exists); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		if exists > 0 {
			return errs.New(errs.Conflict, "store", errNameTaken)
		}

		res, err := tx.Exec(
			`INSERT INTO users (name_lower, name, pw_verifier, pw_salt) VALUES (`+
				s.placeholder(1)+`,`+s.placeholder(2)+`,`+s.placeholder(3)+`,`+s.placeholder(4)+`)`,
			strings.ToLower(name), name, verifier, salt,
		)
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		id = int(lastID)
		return nil
	})
	return id, err
}

// UnregisterUser deletes a user and all of its properties and textures.
// Unregistering an id that does not exist is a no-op returning NotFound,
// per spec.md §8's idempotence law.
func (s *Store) UnregisterUser(userID int) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM users WHERE id = `+s.placeholder(1), userID)
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		if n == 0 {
			return errs.New(errs.NotFound, "store", fmt.Errorf("user %d not found", userID))
		}

		if _, err := tx.Exec(`DELETE FROM user_properties WHERE user_id = `+s.placeholder(1), userID); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		if _, err := tx.Exec(`DELETE FROM textures WHERE user_id = `+s.placeholder(1), userID); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		return nil
	})
}

// LookupUserByName resolves a case-insensitive name to a User record.
func (s *Store) LookupUserByName(name string) (User, error) {
	var u User
	row := s.db.QueryRow(
		`SELECT id, name, pw_verifier, pw_salt, cert_hash_strong, cert_hash_weak FROM users WHERE name_lower = `+s.placeholder(1),
		strings.ToLower(name),
	)
	var verifier, salt []byte
	var strong, weak sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &verifier, &salt, &strong, &weak); err != nil {
		if err == sql.ErrNoRows {
			return User{}, errs.New(errs.NotFound, "store", fmt.Errorf("user %q not found", name))
		}
		return User{}, errs.New(errs.StoreError, "store", err)
	}
	u.PasswordVerifier, u.PasswordSalt = verifier, salt
	u.CertHashStrong, u.CertHashWeak = strong.String, weak.String
	return u, nil
}

// GetProperty implements the (user_id, property_tag) → string get half of
// spec.md §4.5.
func (s *Store) GetProperty(userID int, tag PropertyTag) (string, bool, error) {
	var value string
	row := s.db.QueryRow(
		`SELECT value FROM user_properties WHERE user_id = `+s.placeholder(1)+` AND tag = `+s.placeholder(2),
		userID, int(tag),
	)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errs.New(errs.StoreError, "store", err)
	}
	return value, true, nil
}

// SetProperty implements the set half, an upsert keyed on (user_id, tag).
func (s *Store) SetProperty(userID int, tag PropertyTag, value string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`DELETE FROM user_properties WHERE user_id = `+s.placeholder(1)+` AND tag = `+s.placeholder(2),
			userID, int(tag),
		); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO user_properties (user_id, tag, value) VALUES (`+s.placeholder(1)+`,`+s.placeholder(2)+`,`+s.placeholder(3)+`)`,
			userID, int(tag), value,
		); err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		return nil
	})
}
