package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/session"
)

func TestGenerateFormat(t *testing.T) {
	id := session.Generate()
	assert.True(t, session.IsValid(id), "generated id %q must be valid", id)
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := session.Generate()
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"sess_20250131_142530_A1B2C3D4", true},
		{"sess_20250131_142530_a1b2c3d4", false},
		{"sess_20250131_142530_A1B2C3", false},
		{"sess_20250131_142530_A1B2C3D4E5", false},
		{"session_20250131_142530_A1B2C3D4", false},
		{"sess_2025013_142530_A1B2C3D4", false},
		{"sess_20250131_14253_A1B2C3D4", false},
		{"", false},
		{"sess__A1B2C3D4", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.valid, session.IsValid(tc.id), "id %q", tc.id)
	}
}

func TestExtractCreationDate(t *testing.T) {
	ts, ok := session.ExtractCreationDate("sess_20250131_142530_A1B2C3D4")
	require.True(t, ok)

	expected := time.Date(2025, 1, 31, 14, 25, 30, 0, time.Local)
	assert.True(t, expected.Equal(ts), "got %v, want %v", ts, expected)
}

func TestExtractCreationDateInvalid(t *testing.T) {
	_, ok := session.ExtractCreationDate("not-a-session-id")
	assert.False(t, ok)

	// Well-formed but not a real calendar date.
	_, ok = session.ExtractCreationDate("sess_20251341_142530_A1B2C3D4")
	assert.False(t, ok)
}

func TestGenerateRoundTrip(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	id := session.Generate()
	after := time.Now().Add(time.Second)

	ts, ok := session.ExtractCreationDate(id)
	require.True(t, ok)
	assert.False(t, ts.Before(before), "embedded time %v before generation window start %v", ts, before)
	assert.False(t, ts.After(after), "embedded time %v after generation window end %v", ts, after)
}
