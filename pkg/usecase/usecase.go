package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model/config"
	"github.com/secmon-lab/aegisrisk/pkg/service/cache"
)

type UseCases struct {
	repo        interfaces.Repository
	cache       *cache.Service
	oracle      interfaces.ScoringOracle
	retrieval   interfaces.Retrieval
	methodology *config.Methodology
	now         func() time.Time
	locks       *riskLocks

	Risk          *RiskUseCase
	Assessment    *AssessmentUseCase
	Treatment     *TreatmentUseCase
	FollowUp      *FollowUpUseCase
	Questionnaire *QuestionnaireUseCase
}

type Option func(*UseCases)

// WithOracle attaches the scoring oracle. Without it, assessment and
// follow-up operations fail with a collaborator error.
func WithOracle(oracle interfaces.ScoringOracle) Option {
	return func(uc *UseCases) {
		uc.oracle = oracle
	}
}

// WithRetrieval attaches the knowledge-lookup collaborator. Without it,
// control evaluation runs on questionnaire answers alone.
func WithRetrieval(retrieval interfaces.Retrieval) Option {
	return func(uc *UseCases) {
		uc.retrieval = retrieval
	}
}

// WithMethodology overrides the built-in assessment framework.
func WithMethodology(m *config.Methodology) Option {
	return func(uc *UseCases) {
		uc.methodology = m
	}
}

// WithClock overrides the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:        repo,
		cache:       cache.New(repo.Cache()),
		methodology: config.DefaultMethodology(),
		now:         func() time.Time { return time.Now().UTC() },
		locks:       newRiskLocks(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Risk = &RiskUseCase{uc}
	uc.Assessment = &AssessmentUseCase{uc}
	uc.Treatment = &TreatmentUseCase{uc}
	uc.FollowUp = &FollowUpUseCase{uc}
	uc.Questionnaire = &QuestionnaireUseCase{uc}

	return uc
}

// CacheStats reports per-namespace cache usage.
func (uc *UseCases) CacheStats(ctx context.Context) ([]model.CacheStats, error) {
	stats, err := uc.cache.Stats(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to collect cache stats")
	}
	return stats, nil
}
