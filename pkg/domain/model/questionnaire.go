package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// Question is one entry of a questionnaire template.
type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Section  string `json:"section,omitempty"`
	Required bool   `json:"required"`
}

// PendingQuestionnaire is the ephemeral handoff record for asynchronous
// answer collection. Its token is a capability: whoever holds it may
// submit answers for the target risk, once, before expiry.
type PendingQuestionnaire struct {
	Token       types.QuestionnaireToken
	RiskID      types.RiskID
	AssetName   string
	Kind        types.QuestionnaireKind
	Questions   []Question
	Answers     Answers
	Recipient   string
	Status      types.QuestionnaireStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt time.Time
}

// Validate checks the pending questionnaire fields
func (q *PendingQuestionnaire) Validate() error {
	if err := q.Token.Validate(); err != nil {
		return err
	}
	if err := q.RiskID.Validate(); err != nil {
		return err
	}
	if !q.Kind.IsValid() {
		return goerr.New("invalid questionnaire kind",
			goerr.T(types.TagValidation), goerr.V("kind", q.Kind))
	}
	if len(q.Questions) == 0 {
		return goerr.New("questionnaire requires at least one question",
			goerr.T(types.TagValidation))
	}
	return nil
}

// IsExpired reports whether the questionnaire can no longer accept
// answers at the given time.
func (q *PendingQuestionnaire) IsExpired(now time.Time) bool {
	if q.Status == types.QuestionnaireExpired {
		return true
	}
	return !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}

// ValidateAnswers checks submitted answers against the question set.
// Every required question must have a non-empty answer.
func (q *PendingQuestionnaire) ValidateAnswers(answers Answers) error {
	for _, question := range q.Questions {
		if !question.Required {
			continue
		}
		if answers[question.ID] == "" {
			return goerr.New("required question has no answer",
				goerr.T(types.TagValidation),
				goerr.V("question_id", question.ID))
		}
	}
	return nil
}

// Clone returns a deep copy of the pending questionnaire.
func (q *PendingQuestionnaire) Clone() *PendingQuestionnaire {
	if q == nil {
		return nil
	}
	c := *q
	c.Questions = append([]Question(nil), q.Questions...)
	if q.Answers != nil {
		c.Answers = make(Answers, len(q.Answers))
		for k, v := range q.Answers {
			c.Answers[k] = v
		}
	}
	return &c
}
