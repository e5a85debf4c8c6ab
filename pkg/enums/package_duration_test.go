package enums

import (
	"testing"
	"time"
)

func TestParsePackageDuration(t *testing.T) {
	for _, value := range []string{"monthly", "yearly", "lifetime"} {
		got, err := ParsePackageDuration(value)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", value, err)
		}
		if got.String() != value {
			t.Fatalf("expected %q, got %q", value, got)
		}
	}
	if _, err := ParsePackageDuration("weekly"); err == nil {
		t.Fatal("expected error for unknown duration")
	}
}

func TestEndDateFrom(t *testing.T) {
	start := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	if got := PackageDurationMonthly.EndDateFrom(start); !got.Equal(start.AddDate(0, 1, 0)) {
		t.Fatalf("monthly end date wrong: %v", got)
	}
	if got := PackageDurationYearly.EndDateFrom(start); !got.Equal(start.AddDate(1, 0, 0)) {
		t.Fatalf("yearly end date wrong: %v", got)
	}
	if got := PackageDurationLifetime.EndDateFrom(start); got.Year() != start.Year()+100 {
		t.Fatalf("lifetime end date wrong: %v", got)
	}
}
