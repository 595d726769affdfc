package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// RiskRepository defines the interface for Risk data access. Every write
// advances the record's UpdatedAt via the repository clock.
type RiskRepository interface {
	// Create stores a new risk, assigning the next monotonic risk number.
	// Risk numbers are never reused, even after deletion.
	Create(ctx context.Context, risk *model.Risk) (*model.Risk, error)

	// Get retrieves a risk by ID
	Get(ctx context.Context, id types.RiskID) (*model.Risk, error)

	// List retrieves all risks
	List(ctx context.Context) ([]*model.Risk, error)

	// ListByStatus retrieves risks matching any of the given statuses
	ListByStatus(ctx context.Context, statuses ...types.RiskStatus) ([]*model.Risk, error)

	// ListFollowUpsDue retrieves non-terminal risks whose next follow-up
	// date is at or before the given time.
	ListFollowUpsDue(ctx context.Context, before time.Time) ([]*model.Risk, error)

	// Update replaces an existing risk record
	Update(ctx context.Context, risk *model.Risk) (*model.Risk, error)

	// Delete deletes a risk by ID
	Delete(ctx context.Context, id types.RiskID) error
}

// QuestionnaireRepository defines the interface for pending questionnaire
// token records.
type QuestionnaireRepository interface {
	// Put stores a pending questionnaire keyed by its token
	Put(ctx context.Context, pq *model.PendingQuestionnaire) error

	// Get retrieves a pending questionnaire by token
	Get(ctx context.Context, token types.QuestionnaireToken) (*model.PendingQuestionnaire, error)

	// Complete atomically records answers for a pending questionnaire.
	// The expiry and consumption checks happen before answers are
	// accepted: completion of an expired or already-completed
	// questionnaire is rejected and leaves the stored record untouched.
	Complete(ctx context.Context, token types.QuestionnaireToken, answers model.Answers) (*model.PendingQuestionnaire, error)
}
