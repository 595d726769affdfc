package types

import "fmt"

// Priority represents the urgency of a treatment plan
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// ParsePriority parses a string into a Priority
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// ControlCategory classifies a security control by its function
type ControlCategory string

const (
	ControlPreventive ControlCategory = "PREVENTIVE"
	ControlDetective  ControlCategory = "DETECTIVE"
	ControlCorrective ControlCategory = "CORRECTIVE"
)

// AllControlCategories returns all control categories
func AllControlCategories() []ControlCategory {
	return []ControlCategory{
		ControlPreventive,
		ControlDetective,
		ControlCorrective,
	}
}

// IsValid checks if the control category is valid
func (c ControlCategory) IsValid() bool {
	switch c {
	case ControlPreventive, ControlDetective, ControlCorrective:
		return true
	default:
		return false
	}
}

// String returns the string representation of the control category
func (c ControlCategory) String() string {
	return string(c)
}
