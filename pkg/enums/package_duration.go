package enums

import (
	"fmt"
	"time"
)

// PackageDuration defines how long a subscription purchased under a package lasts.
type PackageDuration string

const (
	PackageDurationMonthly  PackageDuration = "monthly"
	PackageDurationYearly   PackageDuration = "yearly"
	PackageDurationLifetime PackageDuration = "lifetime"
)

var validPackageDurations = []PackageDuration{
	PackageDurationMonthly,
	PackageDurationYearly,
	PackageDurationLifetime,
}

// String implements fmt.Stringer.
func (d PackageDuration) String() string {
	return string(d)
}

// IsValid reports whether the value is a known PackageDuration.
func (d PackageDuration) IsValid() bool {
	for _, candidate := range validPackageDurations {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParsePackageDuration converts raw input into a PackageDuration.
func ParsePackageDuration(value string) (PackageDuration, error) {
	for _, candidate := range validPackageDurations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package duration %q", value)
}

// EndDateFrom computes the subscription end date for a window starting at the
// given time. Lifetime packages use a hundred-year horizon.
func (d PackageDuration) EndDateFrom(start time.Time) time.Time {
	switch d {
	case PackageDurationMonthly:
		return start.AddDate(0, 1, 0)
	case PackageDurationYearly:
		return start.AddDate(1, 0, 0)
	case PackageDurationLifetime:
		return start.AddDate(100, 0, 0)
	}
	return start
}
