package types

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// RiskID is the stable, globally unique identifier of a risk record.
type RiskID string

// NewRiskID generates a new time-ordered risk ID.
func NewRiskID() RiskID {
	return RiskID(uuid.Must(uuid.NewV7()).String())
}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Validate checks if the RiskID is valid
func (x RiskID) Validate() error {
	if x == "" {
		return goerr.New("risk ID cannot be empty", goerr.T(TagValidation))
	}
	if !uuidPattern.MatchString(string(x)) {
		return goerr.New("risk ID must be a UUID", goerr.T(TagValidation), goerr.V("id", x))
	}
	return nil
}

// String returns the string representation of RiskID
func (x RiskID) String() string {
	return string(x)
}

// AssessmentID identifies the upstream assessment run that produced a risk.
type AssessmentID string

// NewAssessmentID generates a new assessment ID.
func NewAssessmentID() AssessmentID {
	return AssessmentID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of AssessmentID
func (x AssessmentID) String() string {
	return string(x)
}
