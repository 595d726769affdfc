package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/repository/memory"
	"github.com/secmon-lab/aegisrisk/pkg/service/scheduler"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// stubOracle returns fixed judgments so risks can be assessed and decided
// without an LLM.
type stubOracle struct{}

func (stubOracle) GenerateQuestionnaire(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error) {
	return []model.Question{{ID: "q1", Text: "What changed since the last check?"}}, nil
}

func (stubOracle) AssessImpact(ctx context.Context, risk *model.Risk, scaleNotes string) (*model.ImpactJudgment, error) {
	return &model.ImpactJudgment{Confidentiality: 4, Integrity: 3, Availability: 2, ProbabilityLevel: 5}, nil
}

func (stubOracle) EvaluateControls(ctx context.Context, risk *model.Risk, framework []model.Passage) (*model.ControlJudgment, error) {
	return &model.ControlJudgment{
		Controls: []model.Control{
			{Name: "Disk encryption", Category: types.ControlPreventive, Effectiveness: 0.5},
		},
	}, nil
}

func (stubOracle) RecommendDecision(ctx context.Context, risk *model.Risk) (*model.DecisionJudgment, error) {
	return &model.DecisionJudgment{Decision: types.DecisionTreat}, nil
}

func (stubOracle) ExtractMethodology(ctx context.Context, topic string) (string, error) {
	return "impact and probability are rated 1 to 5", nil
}

func setupDueRisk(t *testing.T, clock *time.Time) (*usecase.UseCases, types.RiskID) {
	t.Helper()
	ctx := context.Background()

	repo := memory.New(memory.WithClock(func() time.Time { return *clock }))
	uc := usecase.New(repo,
		usecase.WithOracle(stubOracle{}),
		usecase.WithClock(func() time.Time { return *clock }))

	risk, err := uc.Risk.Create(ctx, usecase.CreateRiskInput{
		Title:      "Unencrypted backups",
		ThreatName: "data theft",
		Asset:      model.Asset{Name: "Customer Database", Type: "database"},
		Owner:      "dba-team",
	})
	gt.NoError(t, err).Required()

	stored, err := uc.Risk.Get(ctx, risk.ID)
	gt.NoError(t, err).Required()
	stored.Answers = model.Answers{"q1": "yes"}
	_, err = repo.Risk().Update(ctx, stored)
	gt.NoError(t, err).Required()

	_, err = uc.Assessment.Run(ctx, risk.ID)
	gt.NoError(t, err).Required()

	_, err = uc.Treatment.Decide(ctx, risk.ID, model.NewTreatOutcome(&model.TreatmentPlan{
		Mitigation: "Encrypt backups",
		Priority:   types.PriorityHigh,
		Actions:    []model.Action{{Order: 1, Description: "Enable backup encryption"}},
	}, "ciso", *clock))
	gt.NoError(t, err).Required()

	return uc, risk.ID
}

func TestSweep(t *testing.T) {
	t.Run("issues a questionnaire and pushes the next check forward", func(t *testing.T) {
		clock := testNow
		uc, riskID := setupDueRisk(t, &clock)
		ctx := context.Background()

		// The decision scheduled the check five days out; jump past it.
		clock = testNow.AddDate(0, 0, 6)

		due, err := uc.FollowUp.ListDue(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, due).Length(1)

		worker := scheduler.NewFollowUpWorker(uc, time.Hour)
		gt.NoError(t, worker.Sweep(ctx))

		after, err := uc.Risk.Get(ctx, riskID)
		gt.NoError(t, err).Required()
		gt.Value(t, after.NextFollowUpAt).Equal(clock.AddDate(0, 0, 5))

		due, err = uc.FollowUp.ListDue(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, due).Length(0)
	})

	t.Run("no due risks is a no-op", func(t *testing.T) {
		clock := testNow
		uc, _ := setupDueRisk(t, &clock)

		worker := scheduler.NewFollowUpWorker(uc, time.Hour)
		gt.NoError(t, worker.Sweep(context.Background()))

		due, err := uc.FollowUp.ListDue(context.Background())
		gt.NoError(t, err).Required()
		gt.Array(t, due).Length(0)
	})
}

func TestWorkerLifecycle(t *testing.T) {
	clock := testNow
	uc, _ := setupDueRisk(t, &clock)

	worker := scheduler.NewFollowUpWorker(uc, time.Hour)
	gt.NoError(t, worker.Start(context.Background()))
	worker.Stop()
}
