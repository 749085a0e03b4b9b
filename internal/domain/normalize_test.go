package domain

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRoomID(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		valid bool
	}{
		{"min", "1", "1", true},
		{"max", "999", "999", true},
		{"mid", "42", "42", true},
		{"leading zeros collapse", "007", "7", true},
		{"surrounding spaces", " 12 ", "12", true},
		{"zero", "0", "", false},
		{"above max", "1000", "", false},
		{"negative", "-5", "", false},
		{"letters", "12a", "", false},
		{"empty", "", "", false},
		{"spaces only", "   ", "", false},
		{"decimal", "1.5", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeRoomID(tt.in)
			require.Equal(t, tt.valid, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRoomIDWholeRange(t *testing.T) {
	for n := 1; n <= 999; n++ {
		id := strconv.Itoa(n)
		got, ok := NormalizeRoomID(id)
		require.True(t, ok, "room id %s must normalize", id)
		require.Equal(t, id, got)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"trim", "  Alice  ", "Alice"},
		{"collapse inner whitespace", "Alice \t  Smith", "Alice Smith"},
		{"blank", "   ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeNameCapsLength(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	require.Len(t, NormalizeName(long), 60)
}

func TestNameKey(t *testing.T) {
	require.Equal(t, NameKey("Alice"), NameKey("  aLiCe "))
	require.NotEqual(t, NameKey("Alice"), NameKey("Bob"))
}
