package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// QuestionnaireToken is an unguessable capability token granting write
// access to one pending questionnaire's answers.
type QuestionnaireToken string

const questionnaireTokenBytes = 24

// NewQuestionnaireToken generates a new random capability token.
func NewQuestionnaireToken() (QuestionnaireToken, error) {
	buf := make([]byte, questionnaireTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerr.Wrap(err, "failed to generate questionnaire token")
	}
	return QuestionnaireToken(hex.EncodeToString(buf)), nil
}

// Validate checks if the token has the expected shape
func (t QuestionnaireToken) Validate() error {
	if t == "" {
		return goerr.New("questionnaire token cannot be empty", goerr.T(TagValidation))
	}
	if len(t) != questionnaireTokenBytes*2 {
		return goerr.New("questionnaire token has invalid length", goerr.T(TagValidation))
	}
	return nil
}

// String returns the string representation of the token
func (t QuestionnaireToken) String() string {
	return string(t)
}

// QuestionnaireStatus represents the lifecycle of a pending questionnaire
type QuestionnaireStatus string

const (
	QuestionnairePending   QuestionnaireStatus = "PENDING"
	QuestionnaireCompleted QuestionnaireStatus = "COMPLETED"
	QuestionnaireExpired   QuestionnaireStatus = "EXPIRED"
)

// IsValid checks if the questionnaire status is valid
func (s QuestionnaireStatus) IsValid() bool {
	switch s {
	case QuestionnairePending, QuestionnaireCompleted, QuestionnaireExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of the questionnaire status
func (s QuestionnaireStatus) String() string {
	return string(s)
}

// QuestionnaireKind distinguishes what a questionnaire collects answers for.
type QuestionnaireKind string

const (
	QuestionnaireKindAsset    QuestionnaireKind = "ASSET"
	QuestionnaireKindDecision QuestionnaireKind = "DECISION"
	QuestionnaireKindFollowUp QuestionnaireKind = "FOLLOWUP"
)

// IsValid checks if the questionnaire kind is valid
func (k QuestionnaireKind) IsValid() bool {
	switch k {
	case QuestionnaireKindAsset, QuestionnaireKindDecision, QuestionnaireKindFollowUp:
		return true
	default:
		return false
	}
}

// String returns the string representation of the questionnaire kind
func (k QuestionnaireKind) String() string {
	return string(k)
}

// ParseQuestionnaireKind parses a string into a QuestionnaireKind
func ParseQuestionnaireKind(s string) (QuestionnaireKind, error) {
	k := QuestionnaireKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid questionnaire kind: %s", s)
	}
	return k, nil
}
