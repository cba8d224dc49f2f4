package handler

import (
	"testing"
	"time"
)

// ========================================
// Helper Function Tests
// ========================================

func TestAtoiDefault_ValidInput(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"100", 1, 100},
		{"999", 0, 999},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestAtoiDefault_InvalidInput(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
		{"12.5", 5, 5},
		{"12abc", 5, 5},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) }

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"", "2025-03-09", true},
		{"2024-12-31", "2024-12-31", true},
		{"2024-02-30", "", false},
		{"31-12-2024", "", false},
		{"today", "", false},
	}

	for _, tt := range tests {
		got, ok := parseDate(tt.input, now)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseDate(%q) = (%q, %v), expected (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
