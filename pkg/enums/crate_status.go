package enums

import (
	"fmt"
	"strings"
)

// CrateStatus tracks one physical crate through the press line.
type CrateStatus string

const (
	CrateStatusWaiting    CrateStatus = "waiting"
	CrateStatusInProgress CrateStatus = "in_progress"
	CrateStatusProcessed  CrateStatus = "processed"
)

var validCrateStatuses = []CrateStatus{
	CrateStatusWaiting,
	CrateStatusInProgress,
	CrateStatusProcessed,
}

// String implements fmt.Stringer.
func (c CrateStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CrateStatus.
func (c CrateStatus) IsValid() bool {
	for _, candidate := range validCrateStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCrateStatus converts raw input into a CrateStatus.
func ParseCrateStatus(value string) (CrateStatus, error) {
	needle := strings.TrimSpace(value)
	for _, candidate := range validCrateStatuses {
		if strings.EqualFold(string(candidate), needle) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid crate status %q", value)
}
