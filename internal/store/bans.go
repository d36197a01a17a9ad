package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// Ban mirrors spec.md §3's Ban record. Duration 0 means permanent.
type Ban struct {
	ID              string
	Address         []byte
	PrefixLen       uint8
	Username        string
	CertHash        string
	Reason          string
	StartUnix       int64
	DurationSeconds int64
}

// AddBan appends a ban, grounded on the teacher's addBanItem. Ban ids are
// uuids (SPEC_FULL.md §4 domain stack) so callers can reference a specific
// entry for RemoveBan without racing on address+username collisions.
func (s *Store) AddBan(b Ban) (Ban, error) {
	b.ID = uuid.NewString()
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO bans (id, address, prefix_len, username, cert_hash, reason, start_unix, duration_seconds)
			 VALUES (`+s.placeholder(1)+`,`+s.placeholder(2)+`,`+s.placeholder(3)+`,`+s.placeholder(4)+`,`+
				s.placeholder(5)+`,`+s.placeholder(6)+`,`+s.placeholder(7)+`,`+s.placeholder(8)+`)`,
			b.ID, b.Address, b.PrefixLen, b.Username, b.CertHash, b.Reason, b.StartUnix, b.DurationSeconds,
		)
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		return nil
	})
	return b, err
}

// RemoveBan deletes a ban by id. A nonexistent id is NotFound.
func (s *Store) RemoveBan(id string) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM bans WHERE id = `+s.placeholder(1), id)
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errs.New(errs.StoreError, "store", err)
		}
		if n == 0 {
			return errs.New(errs.NotFound, "store", fmt.Errorf("ban %q not found", id))
		}
		return nil
	})
}

// BanList returns every ban on record, grounded on the teacher's BanList.
func (s *Store) BanList() ([]Ban, error) {
	rows, err := s.db.Query(`SELECT id, address, prefix_len, username, cert_hash, reason, start_unix, duration_seconds FROM bans`)
	if err != nil {
		return nil, errs.New(errs.StoreError, "store", err)
	}
	defer rows.Close()

	var out []Ban
	for rows.Next() {
		var b Ban
		if err := rows.Scan(&b.ID, &b.Address, &b.PrefixLen, &b.Username, &b.CertHash, &b.Reason, &b.StartUnix, &b.DurationSeconds); err != nil {
			return nil, errs.New(errs.StoreError, "store", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// QueryBan reports whether addr (with the given prefix match) is covered
// by any recorded ban, and if so returns it. Permanent bans (duration 0)
// always match once started; timed bans match only while
// start ≤ nowUnix < start+duration.
func (s *Store) QueryBan(addr []byte, nowUnix int64) (Ban, bool, error) {
	bans, err := s.BanList()
	if err != nil {
		return Ban{}, false, err
	}
	for _, b := range bans {
		if !addressMatches(b.Address, b.PrefixLen, addr) {
			continue
		}
		if b.StartUnix > nowUnix {
			continue
		}
		if b.DurationSeconds != 0 && nowUnix >= b.StartUnix+b.DurationSeconds {
			continue
		}
		return b, true, nil
	}
	return Ban{}, false, nil
}

func addressMatches(banned []byte, prefixLen uint8, addr []byte) bool {
	if len(banned) != len(addr) {
		return false
	}
	fullBytes := int(prefixLen) / 8
	remBits := int(prefixLen) % 8
	if fullBytes > len(banned) {
		return false
	}
	for i := 0; i < fullBytes; i++ {
		if banned[i] != addr[i] {
			return false
		}
	}
	if remBits == 0 || fullBytes >= len(banned) {
		return true
	}
	mask := byte(0xff << (8 - remBits))
	return banned[fullBytes]&mask == addr[fullBytes]&mask
}
