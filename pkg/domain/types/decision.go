package types

import "fmt"

// Decision represents the treatment decision taken for an assessed risk
type Decision string

const (
	DecisionTreat     Decision = "TREAT"
	DecisionAccept    Decision = "ACCEPT"
	DecisionTransfer  Decision = "TRANSFER"
	DecisionTerminate Decision = "TERMINATE"
)

// AllDecisions returns all valid treatment decisions
func AllDecisions() []Decision {
	return []Decision{
		DecisionTreat,
		DecisionAccept,
		DecisionTransfer,
		DecisionTerminate,
	}
}

// IsValid checks if the decision is valid
func (d Decision) IsValid() bool {
	switch d {
	case DecisionTreat, DecisionAccept, DecisionTransfer, DecisionTerminate:
		return true
	default:
		return false
	}
}

// Status returns the risk status a risk enters when this decision is taken.
func (d Decision) Status() RiskStatus {
	switch d {
	case DecisionTreat:
		return RiskStatusInProgress
	case DecisionAccept:
		return RiskStatusAccepted
	case DecisionTransfer:
		return RiskStatusTransferred
	case DecisionTerminate:
		return RiskStatusTerminated
	default:
		return RiskStatusOpen
	}
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// ParseDecision parses a string into a Decision
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid treatment decision: %s", s)
	}
	return d, nil
}
