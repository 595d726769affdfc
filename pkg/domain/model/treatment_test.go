package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

var decidedAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func validPlan() *model.TreatmentPlan {
	return &model.TreatmentPlan{
		Mitigation: "Encrypt backups",
		Priority:   types.PriorityHigh,
		Actions: []model.Action{
			{Order: 1, Description: "Enable backup encryption"},
			{Order: 2, Description: "Verify restore"},
		},
	}
}

func TestTreatmentOutcomeValidate(t *testing.T) {
	t.Run("constructors produce valid outcomes", func(t *testing.T) {
		gt.NoError(t, model.NewTreatOutcome(validPlan(), "ciso", decidedAt).Validate())
		gt.NoError(t, model.NewAcceptOutcome(&model.AcceptanceForm{
			Reason:  "within tolerance",
			Answers: model.Answers{"q1": "yes"},
		}, "ciso", decidedAt).Validate())
		gt.NoError(t, model.NewTransferOutcome(&model.TransferForm{
			Receiver: "insurer",
			Answers:  model.Answers{"q1": "yes"},
		}, "ciso", decidedAt).Validate())
		gt.NoError(t, model.NewTerminateOutcome(&model.TerminationForm{
			Confirmation: "service shut down",
			Answers:      model.Answers{"q1": "n/a"},
		}, "ciso", decidedAt).Validate())
	})

	t.Run("branch must match the decision tag", func(t *testing.T) {
		outcome := &model.TreatmentOutcome{
			Decision: types.DecisionAccept,
			Treat:    validPlan(),
		}
		err := outcome.Validate()
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagConflict)).Equal(true)
	})

	t.Run("exactly one branch may be populated", func(t *testing.T) {
		outcome := model.NewTreatOutcome(validPlan(), "ciso", decidedAt)
		outcome.Acceptance = &model.AcceptanceForm{Reason: "x", Answers: model.Answers{"q1": "y"}}
		err := outcome.Validate()
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagConflict)).Equal(true)
	})

	t.Run("unknown decisions are rejected", func(t *testing.T) {
		outcome := &model.TreatmentOutcome{Decision: "IGNORE"}
		err := outcome.Validate()
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagValidation)).Equal(true)
	})

	t.Run("plans need mitigation, actions and priority", func(t *testing.T) {
		plan := validPlan()
		plan.Mitigation = ""
		gt.Error(t, model.NewTreatOutcome(plan, "ciso", decidedAt).Validate())

		plan = validPlan()
		plan.Actions = nil
		gt.Error(t, model.NewTreatOutcome(plan, "ciso", decidedAt).Validate())

		plan = validPlan()
		plan.Priority = ""
		gt.Error(t, model.NewTreatOutcome(plan, "ciso", decidedAt).Validate())
	})

	t.Run("forms need their answer blobs", func(t *testing.T) {
		gt.Error(t, model.NewAcceptOutcome(&model.AcceptanceForm{
			Reason: "no answers attached",
		}, "ciso", decidedAt).Validate())
		gt.Error(t, model.NewTransferOutcome(&model.TransferForm{
			Receiver: "insurer",
		}, "ciso", decidedAt).Validate())
	})
}

func TestTreatmentOutcomeProgress(t *testing.T) {
	outcome := model.NewTreatOutcome(validPlan(), "ciso", decidedAt)
	gt.Value(t, outcome.Progress()).Equal(0.0)
	gt.Value(t, outcome.AllActionsVerified()).Equal(false)

	outcome.Treat.Actions[0].Status = types.ActionStatusCompleted
	gt.Value(t, outcome.Progress()).Equal(0.5)

	outcome.Treat.Actions[0].Status = types.ActionStatusVerified
	outcome.Treat.Actions[1].Status = types.ActionStatusVerified
	gt.Value(t, outcome.Progress()).Equal(1.0)
	gt.Value(t, outcome.AllActionsVerified()).Equal(true)

	// Outcomes without a plan report zero progress.
	accept := model.NewAcceptOutcome(&model.AcceptanceForm{
		Reason:  "within tolerance",
		Answers: model.Answers{"q1": "yes"},
	}, "ciso", decidedAt)
	gt.Value(t, accept.Progress()).Equal(0.0)
	gt.Value(t, accept.AllActionsVerified()).Equal(false)
}
