package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	plus2 := time.FixedZone("", 2*3600)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc 5322", "Sun, 01 Jun 2025 11:50:00 +0000", time.Date(2025, 6, 1, 11, 50, 0, 0, time.UTC)},
		{"single digit day", "Sun, 1 Jun 2025 13:50:00 +0200", time.Date(2025, 6, 1, 13, 50, 0, 0, plus2)},
		{"trailing comment", "Sun, 01 Jun 2025 11:50:00 +0000 (UTC)", time.Date(2025, 6, 1, 11, 50, 0, 0, time.UTC)},
		{"no weekday", "1 Jun 2025 11:50:00 +0000", time.Date(2025, 6, 1, 11, 50, 0, 0, time.UTC)},
		{"iso", "2025-06-01T11:50:00Z", time.Date(2025, 6, 1, 11, 50, 0, 0, time.UTC)},
		{"positional inside noise", "received 1 Jun 2025 13:50:00 +0200 via relay", time.Date(2025, 6, 1, 13, 50, 0, 0, plus2)},
		{"positional without zone", "at 1 June 2025 11:50 somewhere", time.Date(2025, 6, 1, 11, 50, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}

	for _, raw := range []string{"", "yesterday", "31 Foo 2025 10:00:00"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseTimestamp(raw)
			assert.ErrorIs(t, err, ErrUnparseableDate)
		})
	}
}
