package usecase

import (
	"context"
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

// FollowUpUseCase drives the periodic re-check of non-terminal risks:
// collecting progress answers, re-running control evaluation only, and
// either scheduling the next check or flipping the risk toward closure.
type FollowUpUseCase struct {
	*UseCases
}

// nextFollowUpDays picks the cadence within [min, max] days from
// treatment progress. Stalled risks come back sooner; risks trending
// toward completion get the long end of the window.
func (uc *UseCases) nextFollowUpDays(progress float64) int {
	window := uc.methodology.FollowUp
	span := float64(window.MaxDays - window.MinDays)
	return window.MinDays + int(math.Round(progress*span))
}

// scheduleFollowUp sets the next follow-up date from the risk's current
// treatment progress.
func (uc *UseCases) scheduleFollowUp(risk *model.Risk, now time.Time) {
	days := uc.nextFollowUpDays(risk.Outcome.Progress())
	risk.FollowUpStatus = types.FollowUpScheduled
	risk.NextFollowUpAt = now.AddDate(0, 0, days)
}

// Schedule (re)computes the next follow-up date for a decided,
// non-terminal risk.
func (uc *FollowUpUseCase) Schedule(ctx context.Context, id types.RiskID) (*model.Risk, error) {
	unlock := uc.locks.Lock(id)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot schedule follow-up for a terminal risk",
			goerr.T(types.TagState), goerr.V("id", id), goerr.V("status", risk.Status))
	}
	if risk.Outcome == nil {
		return nil, goerr.New("follow-up requires a treatment decision",
			goerr.T(types.TagState), goerr.V("id", id))
	}

	uc.scheduleFollowUp(risk, uc.now())

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist follow-up schedule", goerr.V("id", id))
	}
	return updated, nil
}

// Run performs one follow-up: re-evaluates controls against the fresh
// progress answers, appends the history record with the risk-reduction
// delta, and either closes the risk or schedules the next check.
func (uc *FollowUpUseCase) Run(ctx context.Context, id types.RiskID, answers model.Answers, actionOwner string) (*model.Risk, error) {
	if uc.oracle == nil {
		return nil, goerr.New("scoring oracle is not configured", goerr.T(types.TagCollaborator))
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot follow up on a terminal risk",
			goerr.T(types.TagState), goerr.V("id", id), goerr.V("status", risk.Status))
	}
	if !risk.Assessed() {
		return nil, goerr.New("cannot follow up on an unassessed risk",
			goerr.T(types.TagState), goerr.V("id", id))
	}

	previous := risk.ResidualRiskValue()

	// Control evaluation re-pass only. The merged view feeds the oracle;
	// the risk's own answer blob stays as assessed.
	merged := risk.Clone()
	if merged.Answers == nil {
		merged.Answers = make(model.Answers, len(answers))
	}
	for k, v := range answers {
		merged.Answers[k] = v
	}

	framework, err := uc.frameworkPassages(ctx, merged)
	if err != nil {
		return nil, err
	}
	judgment, err := uc.oracle.EvaluateControls(ctx, merged, framework)
	if err != nil {
		return nil, err
	}

	risk.Controls = uc.evaluateControls(risk.Quantification.RiskValue, judgment)
	current := risk.Controls.ResidualRiskValue

	now := uc.now()
	record := model.FollowUpRecord{
		At:               now,
		Answers:          answers,
		PreviousResidual: previous,
		NewResidual:      current,
		Delta:            previous - current,
		ActionOwner:      actionOwner,
	}
	switch {
	case current < previous:
		record.Trend = "IMPROVING"
	case current > previous:
		record.Trend = "WORSENING"
	default:
		record.Trend = "SAME"
	}
	risk.FollowUps = append(risk.FollowUps, record)
	if actionOwner != "" {
		risk.ActionOwner = actionOwner
	}

	if current <= uc.methodology.ClosureThreshold {
		uc.close(risk, now)
	} else {
		uc.scheduleFollowUp(risk, now)
	}

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist follow-up", goerr.V("id", id))
	}

	logging.From(ctx).Info("follow-up recorded",
		"risk_id", id,
		"previous_residual", previous,
		"new_residual", current,
		"trend", record.Trend,
		"status", updated.Status)

	return updated, nil
}

// ListDue returns the non-terminal risks whose follow-up date has
// arrived.
func (uc *FollowUpUseCase) ListDue(ctx context.Context) ([]*model.Risk, error) {
	risks, err := uc.repo.Risk().ListFollowUpsDue(ctx, uc.now())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list due follow-ups")
	}
	return risks, nil
}
