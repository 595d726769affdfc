package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

// TreatmentUseCase is the workflow engine formalizing treatment
// decisions. An assessed risk takes exactly one decision branch; changing
// a taken decision requires an explicit reset that clears the previous
// branch first.
type TreatmentUseCase struct {
	*UseCases
}

// Decide records a treatment decision for an assessed risk. The outcome
// must carry exactly the branch its decision selects; a risk that already
// holds a decision is rejected with a conflict until Reset is called.
func (uc *TreatmentUseCase) Decide(ctx context.Context, id types.RiskID, outcome *model.TreatmentOutcome) (*model.Risk, error) {
	if outcome == nil {
		return nil, goerr.New("treatment outcome is required", goerr.T(types.TagValidation))
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	if !risk.Assessed() {
		return nil, goerr.New("risk has not been assessed",
			goerr.T(types.TagState), goerr.V("id", id))
	}
	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot decide on a terminal risk",
			goerr.T(types.TagState), goerr.V("id", id), goerr.V("status", risk.Status))
	}
	if risk.Outcome != nil {
		return nil, goerr.New("risk already holds a treatment decision",
			goerr.T(types.TagConflict),
			goerr.V("id", id), goerr.V("decision", risk.Outcome.Decision))
	}

	if outcome.DecidedAt.IsZero() {
		outcome.DecidedAt = uc.now()
	}
	if err := outcome.Validate(); err != nil {
		return nil, err
	}

	uc.applyDecision(risk, outcome)

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist decision", goerr.V("id", id))
	}

	logging.From(ctx).Info("treatment decision recorded",
		"risk_id", id,
		"decision", outcome.Decision,
		"status", updated.Status)

	return updated, nil
}

// applyDecision moves the risk into the state its decision selects.
// Terminated risks and final acceptances are terminal and get no
// follow-up; every other branch stays under periodic follow-up.
func (uc *TreatmentUseCase) applyDecision(risk *model.Risk, outcome *model.TreatmentOutcome) {
	now := uc.now()

	risk.Outcome = outcome
	risk.Status = outcome.Decision.Status()

	switch outcome.Decision {
	case types.DecisionAccept:
		if outcome.Acceptance.Final {
			uc.close(risk, now)
			return
		}
	case types.DecisionTerminate:
		risk.FollowUpStatus = types.FollowUpNone
		risk.NextFollowUpAt = time.Time{}
		return
	}

	uc.scheduleFollowUp(risk, now)
}

// Reset clears a taken decision so a different branch can be selected.
// Terminal risks stay decided; they are never silently reopened.
func (uc *TreatmentUseCase) Reset(ctx context.Context, id types.RiskID) (*model.Risk, error) {
	unlock := uc.locks.Lock(id)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	if risk.Outcome == nil {
		return nil, goerr.New("risk holds no treatment decision",
			goerr.T(types.TagState), goerr.V("id", id))
	}
	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot reset a terminal risk",
			goerr.T(types.TagState), goerr.V("id", id), goerr.V("status", risk.Status))
	}

	previous := risk.Outcome.Decision
	risk.Outcome = nil
	risk.Status = types.RiskStatusOpen
	risk.FollowUpStatus = types.FollowUpNone
	risk.NextFollowUpAt = time.Time{}

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist decision reset", goerr.V("id", id))
	}

	logging.From(ctx).Info("treatment decision reset",
		"risk_id", id, "previous_decision", previous)

	return updated, nil
}

// UpdateAction advances one action of a treatment plan. Once every action
// is verified complete the risk closes.
func (uc *TreatmentUseCase) UpdateAction(ctx context.Context, id types.RiskID, order int, status types.ActionStatus) (*model.Risk, error) {
	if !status.IsValid() {
		return nil, goerr.New("invalid action status",
			goerr.T(types.TagValidation), goerr.V("status", status))
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	if risk.Outcome == nil || risk.Outcome.Treat == nil {
		return nil, goerr.New("risk holds no treatment plan",
			goerr.T(types.TagState), goerr.V("id", id))
	}
	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot update actions of a terminal risk",
			goerr.T(types.TagState), goerr.V("id", id), goerr.V("status", risk.Status))
	}

	found := false
	for i := range risk.Outcome.Treat.Actions {
		if risk.Outcome.Treat.Actions[i].Order == order {
			risk.Outcome.Treat.Actions[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return nil, goerr.New("treatment plan has no such action",
			goerr.T(types.TagNotFound), goerr.V("id", id), goerr.V("order", order))
	}

	if risk.Outcome.AllActionsVerified() {
		uc.close(risk, uc.now())
	}

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist action update", goerr.V("id", id))
	}
	return updated, nil
}

func (uc *UseCases) close(risk *model.Risk, now time.Time) {
	risk.Status = types.RiskStatusClosed
	risk.ClosedAt = now
	risk.FollowUpStatus = types.FollowUpClosed
	risk.NextFollowUpAt = time.Time{}
}
