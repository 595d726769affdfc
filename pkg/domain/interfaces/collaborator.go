package interfaces

import (
	"context"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// ScoringOracle is the external collaborator producing structured
// judgments. The pipeline only consumes its outputs; responses are
// validated against the expected schema before any field reaches a risk
// record. Calls may block for unbounded wall-clock time, so
// implementations apply timeouts and callers treat failures as retryable.
type ScoringOracle interface {
	// GenerateQuestionnaire produces a question set for the given asset
	// and questionnaire kind.
	GenerateQuestionnaire(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error)

	// AssessImpact rates CIA impact and probability from questionnaire
	// answers.
	AssessImpact(ctx context.Context, risk *model.Risk, scaleNotes string) (*model.ImpactJudgment, error)

	// EvaluateControls identifies declared controls, gaps, and
	// recommendations from answers and framework passages.
	EvaluateControls(ctx context.Context, risk *model.Risk, framework []model.Passage) (*model.ControlJudgment, error)

	// RecommendDecision proposes a treatment decision for an assessed
	// risk. The workflow engine formalizes it; it is never auto-applied.
	RecommendDecision(ctx context.Context, risk *model.Risk) (*model.DecisionJudgment, error)

	// ExtractMethodology derives a methodology fragment (e.g. what a
	// scale level means under the org's framework) for the given topic.
	ExtractMethodology(ctx context.Context, topic string) (string, error)
}

// Retrieval is the external knowledge-lookup collaborator. The core only
// caches its results, never its internals.
type Retrieval interface {
	// Search returns ranked passages for the query text.
	Search(ctx context.Context, query string, limit int) ([]model.Passage, error)
}
