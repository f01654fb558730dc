// Package pagination implements keyset cursors over (created_at, id), newest
// first.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor points just past the last row of the previous page.
type Cursor struct {
	LastID    int64
	Timestamp time.Time
}

type wireCursor struct {
	ID int64     `json:"i"`
	TS time.Time `json:"t"`
}

// EncodeCursor returns an opaque token, or "" when there is no next page.
func EncodeCursor(lastID int64, timestamp time.Time) string {
	if lastID <= 0 {
		return ""
	}
	raw, err := json.Marshal(wireCursor{ID: lastID, TS: timestamp.UTC()})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes a cursor; an empty string yields a nil cursor.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var wc wireCursor
	if err := json.Unmarshal(raw, &wc); err != nil || wc.ID <= 0 || wc.TS.IsZero() {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: wc.ID, Timestamp: wc.TS}, nil
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Trim cuts a result fetched with limit+1 rows down to limit and reports
// whether another page exists.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
