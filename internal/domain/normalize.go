package domain

import (
	"strconv"
	"strings"
)

const (
	minRoomID = 1
	maxRoomID = 999

	maxNameLength = 60
)

// NormalizeRoomID validates a room id and returns its canonical decimal form
// without leading zeros. The second result is false for anything that is not
// a number in [1, 999].
func NormalizeRoomID(value string) (string, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return "", false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	numeric, err := strconv.Atoi(text)
	if err != nil || numeric < minRoomID || numeric > maxRoomID {
		return "", false
	}
	return strconv.Itoa(numeric), true
}

// NormalizeName trims a display name, collapses internal whitespace to single
// spaces and caps it at 60 characters. Returns "" for blank input.
func NormalizeName(value string) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	runes := []rune(collapsed)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	return string(runes)
}

// NameKey is the form display names are compared in: trimmed and lowercased.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
