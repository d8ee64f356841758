package expiry

import (
	"errors"
	"testing"
	"time"
)

var today = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC) // time of day must not matter

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		expiryDate  string
		wantExpired bool
		wantDays    int
	}{
		{
			name:        "expires in the future",
			expiryDate:  "2025-06-20",
			wantExpired: false,
			wantDays:    5,
		},
		{
			name:        "expires today is not expired",
			expiryDate:  "2025-06-15",
			wantExpired: false,
			wantDays:    0,
		},
		{
			name:        "expired yesterday",
			expiryDate:  "2025-06-14",
			wantExpired: true,
			wantDays:    -1,
		},
		{
			name:        "expires tomorrow",
			expiryDate:  "2025-06-16",
			wantExpired: false,
			wantDays:    1,
		},
		{
			name:        "long expired",
			expiryDate:  "2024-06-15",
			wantExpired: true,
			wantDays:    -365,
		},
		{
			name:        "rfc3339 timestamp truncated to date",
			expiryDate:  "2025-06-20T18:45:00Z",
			wantExpired: false,
			wantDays:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Classify(tt.expiryDate, today)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.expiryDate, err)
			}
			if v.IsExpired != tt.wantExpired {
				t.Errorf("Expected IsExpired=%v, got %v", tt.wantExpired, v.IsExpired)
			}
			if v.DaysUntilExpiry != tt.wantDays {
				t.Errorf("Expected DaysUntilExpiry=%d, got %d", tt.wantDays, v.DaysUntilExpiry)
			}
		})
	}
}

func TestClassifyInvalidDate(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "not-a-date", "2025-13-40", "15/06/2025"} {
		_, err := Classify(bad, today)
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Classify(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestVerdictUrgency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verdict Verdict
		want    Urgency
	}{
		{"expired", Verdict{IsExpired: true, DaysUntilExpiry: -2}, UrgencyExpired},
		{"expires today", Verdict{DaysUntilExpiry: 0}, UrgencyUrgent},
		{"expires tomorrow", Verdict{DaysUntilExpiry: 1}, UrgencyUrgent},
		{"within three days", Verdict{DaysUntilExpiry: 3}, UrgencyWarning},
		{"within a week", Verdict{DaysUntilExpiry: 7}, UrgencyNotice},
		{"fresh", Verdict{DaysUntilExpiry: 8}, UrgencyFresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.verdict.Urgency(); got != tt.want {
				t.Errorf("Expected urgency %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	lateTonight := time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC)
	v, err := Classify("2025-06-15", lateTonight)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if v.IsExpired {
		t.Error("Item expiring today must not be expired regardless of time of day")
	}
}
