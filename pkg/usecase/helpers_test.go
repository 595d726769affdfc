package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/repository/memory"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// mockOracle is a ScoringOracle with canned judgments and call counters.
// Override individual funcs per test; unset funcs use the defaults below.
type mockOracle struct {
	generateQuestionnaire func(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error)
	assessImpact          func(ctx context.Context, risk *model.Risk, scaleNotes string) (*model.ImpactJudgment, error)
	evaluateControls      func(ctx context.Context, risk *model.Risk, framework []model.Passage) (*model.ControlJudgment, error)
	recommendDecision     func(ctx context.Context, risk *model.Risk) (*model.DecisionJudgment, error)
	extractMethodology    func(ctx context.Context, topic string) (string, error)

	questionnaireCalls int
	impactCalls        int
	controlCalls       int
	decisionCalls      int
	methodologyCalls   int
}

func (m *mockOracle) GenerateQuestionnaire(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error) {
	m.questionnaireCalls++
	if m.generateQuestionnaire != nil {
		return m.generateQuestionnaire(ctx, asset, kind)
	}
	return []model.Question{
		{ID: "q1", Text: "Does the asset store personal data?", Required: true},
		{ID: "q2", Text: "Is access logged?", Required: false},
	}, nil
}

func (m *mockOracle) AssessImpact(ctx context.Context, risk *model.Risk, scaleNotes string) (*model.ImpactJudgment, error) {
	m.impactCalls++
	if m.assessImpact != nil {
		return m.assessImpact(ctx, risk, scaleNotes)
	}
	return &model.ImpactJudgment{
		Confidentiality:  4,
		Integrity:        3,
		Availability:     2,
		ProbabilityLevel: 5,
		Rationale:        "personal data with broad exposure",
	}, nil
}

func (m *mockOracle) EvaluateControls(ctx context.Context, risk *model.Risk, framework []model.Passage) (*model.ControlJudgment, error) {
	m.controlCalls++
	if m.evaluateControls != nil {
		return m.evaluateControls(ctx, risk, framework)
	}
	return &model.ControlJudgment{
		Controls: []model.Control{
			{Name: "Disk encryption", Category: types.ControlPreventive, Effectiveness: 0.6},
			{Name: "Access reviews", Category: types.ControlPreventive, Effectiveness: 0.6},
		},
		Gaps: []string{"no intrusion detection"},
	}, nil
}

func (m *mockOracle) RecommendDecision(ctx context.Context, risk *model.Risk) (*model.DecisionJudgment, error) {
	m.decisionCalls++
	if m.recommendDecision != nil {
		return m.recommendDecision(ctx, risk)
	}
	return &model.DecisionJudgment{
		Decision:  types.DecisionTreat,
		Rationale: "residual stays above tolerance",
	}, nil
}

func (m *mockOracle) ExtractMethodology(ctx context.Context, topic string) (string, error) {
	m.methodologyCalls++
	if m.extractMethodology != nil {
		return m.extractMethodology(ctx, topic)
	}
	return "impact and probability are rated 1 to 5", nil
}

// mockRetrieval returns the same passages for every query.
type mockRetrieval struct {
	passages []model.Passage
	calls    int
}

func (m *mockRetrieval) Search(ctx context.Context, query string, limit int) ([]model.Passage, error) {
	m.calls++
	return m.passages, nil
}

func newTestUseCases(t *testing.T, opts ...usecase.Option) (*usecase.UseCases, *mockOracle) {
	t.Helper()

	oracle := &mockOracle{}
	repo := memory.New(memory.WithClock(func() time.Time { return testNow }))

	base := []usecase.Option{
		usecase.WithOracle(oracle),
		usecase.WithClock(func() time.Time { return testNow }),
	}
	return usecase.New(repo, append(base, opts...)...), oracle
}

func createTestRisk(t *testing.T, uc *usecase.UseCases) *model.Risk {
	t.Helper()

	risk, err := uc.Risk.Create(context.Background(), usecase.CreateRiskInput{
		Title:           "Unencrypted backups",
		Description:     "Nightly database backups are stored unencrypted",
		ThreatName:      "data theft",
		Vulnerabilities: []string{"no encryption at rest"},
		Asset: model.Asset{
			Name: "Customer Database",
			Type: "database",
		},
		Owner:     "dba-team",
		CreatedBy: "scanner",
	})
	gt.NoError(t, err).Required()
	return risk
}

// assessTestRisk runs the full pipeline after attaching answers.
func assessTestRisk(t *testing.T, uc *usecase.UseCases, id types.RiskID) *model.Risk {
	t.Helper()
	ctx := context.Background()

	risk, err := uc.Risk.Get(ctx, id)
	gt.NoError(t, err).Required()
	risk.Answers = model.Answers{"q1": "yes", "q2": "yes"}
	_, err = uc.Repo().Risk().Update(ctx, risk)
	gt.NoError(t, err).Required()

	assessed, err := uc.Assessment.Run(ctx, id)
	gt.NoError(t, err).Required()
	return assessed
}

func treatPlan() *model.TreatmentPlan {
	return &model.TreatmentPlan{
		Mitigation: "Encrypt backups and rotate keys",
		Priority:   types.PriorityHigh,
		Actions: []model.Action{
			{Order: 1, Description: "Enable backup encryption", Owner: "dba-team"},
			{Order: 2, Description: "Verify restore from encrypted backup", Owner: "dba-team"},
		},
	}
}
