package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// ErrAccountNotFound is returned when an account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// AccountRecord is one persisted ledger account.
type AccountRecord struct {
	Address   string    `json:"address"`
	Owner     string    `json:"owner"`
	Lamports  uint64    `json:"lamports"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveAccount inserts or replaces an account record.
func (s *Storage) SaveAccount(rec *AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (address, owner, lamports, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			owner = excluded.owner,
			lamports = excluded.lamports,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	_, err := s.db.Exec(query, rec.Address, rec.Owner, int64(rec.Lamports), rec.Data, rec.UpdatedAt.Unix())
	return err
}

// GetAccount retrieves an account by address.
func (s *Storage) GetAccount(address string) (*AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT address, owner, lamports, data, updated_at FROM accounts WHERE address = ?",
		address,
	)
	return scanAccountRecord(row.Scan)
}

// DeleteAccount removes an account by address.
func (s *Storage) DeleteAccount(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM accounts WHERE address = ?", address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListAccounts returns every persisted account.
func (s *Storage) ListAccounts() ([]*AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT address, owner, lamports, data, updated_at FROM accounts")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AccountRecord
	for rows.Next() {
		rec, err := scanAccountRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AccountCount returns the number of persisted accounts.
func (s *Storage) AccountCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	return count, err
}

// SaveSnapshot replaces the whole account table with the ledger's current
// state in one transaction.
func (s *Storage) SaveSnapshot(accounts map[runtime.PublicKey]*runtime.Account, slot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM accounts"); err != nil {
		return err
	}

	now := time.Now().Unix()
	stmt, err := tx.Prepare("INSERT INTO accounts (address, owner, lamports, data, updated_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pk, acct := range accounts {
		if _, err := stmt.Exec(pk.String(), acct.Owner.String(), int64(acct.Lamports), acct.Data, now); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO ledger_meta (key, value, updated_at) VALUES ('slot', ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		fmt.Sprintf("%d", slot), now,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadSnapshot restores the persisted account state into ledger form and
// returns the saved slot height.
func (s *Storage) LoadSnapshot() (map[runtime.PublicKey]*runtime.Account, uint64, error) {
	records, err := s.ListAccounts()
	if err != nil {
		return nil, 0, err
	}

	accounts := make(map[runtime.PublicKey]*runtime.Account, len(records))
	for _, rec := range records {
		addr, err := runtime.PublicKeyFromBase58(rec.Address)
		if err != nil {
			return nil, 0, fmt.Errorf("corrupt account address %q: %w", rec.Address, err)
		}
		owner, err := runtime.PublicKeyFromBase58(rec.Owner)
		if err != nil {
			return nil, 0, fmt.Errorf("corrupt account owner %q: %w", rec.Owner, err)
		}
		accounts[addr] = &runtime.Account{
			Lamports: rec.Lamports,
			Owner:    owner,
			Data:     rec.Data,
		}
	}

	slot, err := s.loadSlot()
	if err != nil {
		return nil, 0, err
	}
	return accounts, slot, nil
}

func (s *Storage) loadSlot() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM ledger_meta WHERE key = 'slot'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(value, 10, 64)
}

func scanAccountRecord(scan func(...interface{}) error) (*AccountRecord, error) {
	var rec AccountRecord
	var lamports, updatedAt int64

	err := scan(&rec.Address, &rec.Owner, &lamports, &rec.Data, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	rec.Lamports = uint64(lamports)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}
