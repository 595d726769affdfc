package types

import "fmt"

// ActionStatus represents the status of a treatment plan action
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "PENDING"
	ActionStatusInProgress ActionStatus = "IN_PROGRESS"
	ActionStatusCompleted  ActionStatus = "COMPLETED"
	ActionStatusVerified   ActionStatus = "VERIFIED"
)

// AllActionStatuses returns all valid action statuses
func AllActionStatuses() []ActionStatus {
	return []ActionStatus{
		ActionStatusPending,
		ActionStatusInProgress,
		ActionStatusCompleted,
		ActionStatusVerified,
	}
}

// IsValid checks if the action status is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusPending, ActionStatusInProgress, ActionStatusCompleted, ActionStatusVerified:
		return true
	default:
		return false
	}
}

// IsDone reports whether the action no longer needs work.
func (s ActionStatus) IsDone() bool {
	return s == ActionStatusCompleted || s == ActionStatusVerified
}

// Normalize returns the status, treating empty as ActionStatusPending.
func (s ActionStatus) Normalize() ActionStatus {
	if s == "" {
		return ActionStatusPending
	}
	return s
}

// String returns the string representation of the action status
func (s ActionStatus) String() string {
	return string(s)
}

// ParseActionStatus parses a string into an ActionStatus
func ParseActionStatus(s string) (ActionStatus, error) {
	status := ActionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid action status: %s", s)
	}
	return status, nil
}
