package storage

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// ErrEventNotFound is returned when an event does not exist.
var ErrEventNotFound = errors.New("event not found")

// EventRecord is one persisted program event.
type EventRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Wallets   []string  `json:"wallets"`
	GroupID   string    `json:"group_id,omitempty"`
	Slot      uint64    `json:"slot"`
	EmittedAt time.Time `json:"emitted_at"`
}

// AppendEvent persists one emitted program event and returns its record.
func (s *Storage) AppendEvent(ev runtime.Event, slot uint64, emittedAt time.Time) (*EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &EventRecord{
		ID:        uuid.NewString(),
		Kind:      ev.Kind,
		Slot:      slot,
		EmittedAt: emittedAt,
	}
	for _, w := range ev.Wallets {
		rec.Wallets = append(rec.Wallets, w.String())
	}
	if ev.GroupID != nil {
		rec.GroupID = hex.EncodeToString(ev.GroupID[:])
	}

	walletsJSON, err := json.Marshal(rec.Wallets)
	if err != nil {
		return nil, err
	}

	var groupID interface{}
	if rec.GroupID != "" {
		groupID = rec.GroupID
	}

	_, err = s.db.Exec(
		"INSERT INTO events (id, kind, wallets, group_id, slot, emitted_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Kind, string(walletsJSON), groupID, int64(rec.Slot), rec.EmittedAt.Unix(),
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListEventsSince returns events with slot greater than the given height,
// oldest first.
func (s *Storage) ListEventsSince(slot uint64, limit int) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, kind, wallets, group_id, slot, emitted_at FROM events WHERE slot > ? ORDER BY slot ASC"
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", int64(slot), limit)
	} else {
		rows, err = s.db.Query(query, int64(slot))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEventRows(rows)
}

// ListEventsByWallet returns events that mention the wallet, newest first.
func (s *Storage) ListEventsByWallet(wallet string, limit int) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Wallets are stored as a JSON array of base58 strings; a LIKE match
	// on the quoted form is exact because base58 never contains quotes.
	query := `SELECT id, kind, wallets, group_id, slot, emitted_at FROM events WHERE wallets LIKE ? ORDER BY slot DESC`
	pattern := `%"` + wallet + `"%`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", pattern, limit)
	} else {
		rows, err = s.db.Query(query, pattern)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEventRows(rows)
}

// EventCount returns the total number of persisted events.
func (s *Storage) EventCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

func scanEventRows(rows *sql.Rows) ([]*EventRecord, error) {
	var records []*EventRecord
	for rows.Next() {
		var rec EventRecord
		var walletsJSON string
		var groupID sql.NullString
		var slot, emittedAt int64

		if err := rows.Scan(&rec.ID, &rec.Kind, &walletsJSON, &groupID, &slot, &emittedAt); err != nil {
			return nil, err
		}
		if walletsJSON != "" {
			json.Unmarshal([]byte(walletsJSON), &rec.Wallets)
		}
		if groupID.Valid {
			rec.GroupID = groupID.String
		}
		rec.Slot = uint64(slot)
		rec.EmittedAt = time.Unix(emittedAt, 0)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
