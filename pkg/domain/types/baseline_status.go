package types

import "fmt"

// BaselineStatus describes how a requirement relates to a saved baseline
type BaselineStatus string

const (
	BaselineStatusUnchanged BaselineStatus = "unchanged"
	BaselineStatusChanged   BaselineStatus = "changed"
	BaselineStatusNew       BaselineStatus = "new"
)

// AllBaselineStatuses returns all valid baseline statuses
func AllBaselineStatuses() []BaselineStatus {
	return []BaselineStatus{
		BaselineStatusUnchanged,
		BaselineStatusChanged,
		BaselineStatusNew,
	}
}

// IsValid checks if the baseline status is valid
func (s BaselineStatus) IsValid() bool {
	switch s {
	case BaselineStatusUnchanged,
		BaselineStatusChanged,
		BaselineStatusNew:
		return true
	default:
		return false
	}
}

// String returns the string representation of the baseline status
func (s BaselineStatus) String() string {
	return string(s)
}

// ParseBaselineStatus parses a string into a BaselineStatus
func ParseBaselineStatus(s string) (BaselineStatus, error) {
	status := BaselineStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid baseline status: %s", s)
	}
	return status, nil
}
