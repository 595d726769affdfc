package types

// FollowUpStatus represents the follow-up state of a risk
type FollowUpStatus string

const (
	// FollowUpNone means no follow-up has been scheduled yet.
	FollowUpNone FollowUpStatus = "NONE"
	// FollowUpScheduled means a next follow-up date has been computed.
	FollowUpScheduled FollowUpStatus = "SCHEDULED"
	// FollowUpClosed means the follow-up cycle is finished and no further
	// check will be scheduled.
	FollowUpClosed FollowUpStatus = "CLOSED"
)

// IsValid checks if the follow-up status is valid
func (s FollowUpStatus) IsValid() bool {
	switch s {
	case FollowUpNone, FollowUpScheduled, FollowUpClosed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further follow-up will be scheduled.
func (s FollowUpStatus) IsTerminal() bool {
	return s == FollowUpClosed
}

// Normalize returns the status, treating empty as FollowUpNone.
func (s FollowUpStatus) Normalize() FollowUpStatus {
	if s == "" {
		return FollowUpNone
	}
	return s
}

// String returns the string representation of the follow-up status
func (s FollowUpStatus) String() string {
	return string(s)
}
