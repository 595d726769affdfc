package types

import "fmt"

// RiskStatus represents the lifecycle status of a risk record
type RiskStatus string

const (
	RiskStatusOpen        RiskStatus = "OPEN"
	RiskStatusInProgress  RiskStatus = "IN_PROGRESS"
	RiskStatusAccepted    RiskStatus = "ACCEPTED"
	RiskStatusTransferred RiskStatus = "TRANSFERRED"
	RiskStatusTerminated  RiskStatus = "TERMINATED"
	RiskStatusClosed      RiskStatus = "CLOSED"
)

// AllRiskStatuses returns all valid risk statuses
func AllRiskStatuses() []RiskStatus {
	return []RiskStatus{
		RiskStatusOpen,
		RiskStatusInProgress,
		RiskStatusAccepted,
		RiskStatusTransferred,
		RiskStatusTerminated,
		RiskStatusClosed,
	}
}

// IsValid checks if the risk status is valid
func (s RiskStatus) IsValid() bool {
	switch s {
	case RiskStatusOpen,
		RiskStatusInProgress,
		RiskStatusAccepted,
		RiskStatusTransferred,
		RiskStatusTerminated,
		RiskStatusClosed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further workflow
// transitions or follow-ups.
func (s RiskStatus) IsTerminal() bool {
	return s == RiskStatusClosed || s == RiskStatusTerminated
}

// Normalize returns the status, treating empty as RiskStatusOpen for
// backward compatibility.
func (s RiskStatus) Normalize() RiskStatus {
	if s == "" {
		return RiskStatusOpen
	}
	return s
}

// String returns the string representation of the risk status
func (s RiskStatus) String() string {
	return string(s)
}

// ParseRiskStatus parses a string into a RiskStatus
func ParseRiskStatus(s string) (RiskStatus, error) {
	status := RiskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid risk status: %s", s)
	}
	return status, nil
}
