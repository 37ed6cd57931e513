package models

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-01", "2025-01", false},
		{"2025-12", "2025-12", false},
		{"2025-13", "", true},
		{"2025-1", "", true},
		{"2025", "", true},
		{"january", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMonth(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMonth(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	start, end, err := MonthBounds("2025-01")
	if err != nil {
		t.Fatalf("MonthBounds: %v", err)
	}
	if got := start.Format(DateLayout); got != "2025-01-01" {
		t.Errorf("start = %s, want 2025-01-01", got)
	}
	if got := end.Format(DateLayout); got != "2025-02-01" {
		t.Errorf("end = %s, want 2025-02-01", got)
	}

	// December rolls into the next year.
	_, end, err = MonthBounds("2025-12")
	if err != nil {
		t.Fatalf("MonthBounds: %v", err)
	}
	if got := end.Format(DateLayout); got != "2026-01-01" {
		t.Errorf("end = %s, want 2026-01-01", got)
	}

	// A date on the last day of the month is inside the half-open range.
	lastDay := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	start, end, _ = MonthBounds("2025-01")
	if lastDay.Before(start) || !lastDay.Before(end) {
		t.Errorf("2025-01-31 should fall within [%s, %s)", start, end)
	}
}

func TestTransactionMonth(t *testing.T) {
	tx := Transaction{Date: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}
	if got := tx.Month(); got != "2025-03" {
		t.Errorf("Month() = %q, want 2025-03", got)
	}
}
