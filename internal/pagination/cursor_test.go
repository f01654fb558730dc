package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 7, 10, 11, 34, 31, 488918000, time.UTC)

	encoded := EncodeCursor(42, ts)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.LastID)
	assert.True(t, ts.Equal(cursor.Timestamp))
}

func TestEncodeCursor_NoLastID(t *testing.T) {
	assert.Empty(t, EncodeCursor(0, time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	for _, raw := range []string{
		"%%%",
		enc([]byte("not json")),
		enc([]byte(`{"i":0,"t":"2025-07-10T11:34:31Z"}`)),
		enc([]byte(`{"i":5}`)),
		EncodeCursor(7, time.Now()) + "x",
	} {
		_, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor, raw)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}

func TestTrim(t *testing.T) {
	rows, more := Trim([]int{1, 2, 3}, 2)
	assert.Equal(t, []int{1, 2}, rows)
	assert.True(t, more)

	rows, more = Trim([]int{1, 2}, 2)
	assert.Equal(t, []int{1, 2}, rows)
	assert.False(t, more)
}
