package enums

import "fmt"

// RefreshStatus tracks the lifecycle of an analytics refresh run.
type RefreshStatus string

const (
	RefreshStatusProcessing RefreshStatus = "processing"
	RefreshStatusCompleted  RefreshStatus = "completed"
	RefreshStatusFailed     RefreshStatus = "failed"
)

var validRefreshStatuses = []RefreshStatus{
	RefreshStatusProcessing,
	RefreshStatusCompleted,
	RefreshStatusFailed,
}

// String implements fmt.Stringer.
func (s RefreshStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RefreshStatus.
func (s RefreshStatus) IsValid() bool {
	for _, candidate := range validRefreshStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the run can no longer change.
func (s RefreshStatus) IsTerminal() bool {
	return s == RefreshStatusCompleted || s == RefreshStatusFailed
}

// ParseRefreshStatus converts raw input into a RefreshStatus.
func ParseRefreshStatus(value string) (RefreshStatus, error) {
	for _, candidate := range validRefreshStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refresh status %q", value)
}
