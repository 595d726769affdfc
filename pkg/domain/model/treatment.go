package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// Answers is a questionnaire answer blob keyed by question ID.
type Answers map[string]string

// TreatmentOutcome is a tagged variant carrying exactly one decision
// branch. The Decision field selects the populated branch; the other three
// pointers stay nil. Use the New*Outcome constructors to build a valid
// value.
type TreatmentOutcome struct {
	Decision    types.Decision   `json:"decision"`
	Treat       *TreatmentPlan   `json:"treat,omitempty"`
	Acceptance  *AcceptanceForm  `json:"acceptance,omitempty"`
	Transfer    *TransferForm    `json:"transfer,omitempty"`
	Termination *TerminationForm `json:"termination,omitempty"`
	DecidedAt   time.Time        `json:"decided_at"`
	DecidedBy   string           `json:"decided_by"`
}

// TreatmentPlan holds the mitigation plan for a TREAT decision.
type TreatmentPlan struct {
	Mitigation string         `json:"mitigation"`
	Actions    []Action       `json:"actions"`
	Priority   types.Priority `json:"priority"`
	Answers    Answers        `json:"answers,omitempty"`
}

// Action is one ordered step of a treatment plan.
type Action struct {
	Order       int                `json:"order"`
	Description string             `json:"description"`
	Owner       string             `json:"owner"`
	DueDate     time.Time          `json:"due_date,omitzero"`
	Status      types.ActionStatus `json:"status"`
}

// AcceptanceForm justifies an ACCEPT decision.
type AcceptanceForm struct {
	Reason     string    `json:"reason"`
	Conditions string    `json:"conditions,omitempty"`
	Approver   string    `json:"approver"`
	Final      bool      `json:"final"`
	ReviewDate time.Time `json:"review_date,omitzero"`
	Answers    Answers   `json:"answers"`
}

// TransferForm identifies the receiving party of a TRANSFER decision.
type TransferForm struct {
	Receiver    string  `json:"receiver"`
	Mechanism   string  `json:"mechanism,omitempty"`
	ContractRef string  `json:"contract_ref,omitempty"`
	Answers     Answers `json:"answers"`
}

// TerminationForm confirms asset or activity removal for a TERMINATE
// decision.
type TerminationForm struct {
	Confirmation string    `json:"confirmation"`
	RemovedAt    time.Time `json:"removed_at,omitzero"`
	Answers      Answers   `json:"answers"`
}

// NewTreatOutcome builds a TREAT outcome from a mitigation plan.
func NewTreatOutcome(plan *TreatmentPlan, decidedBy string, now time.Time) *TreatmentOutcome {
	return &TreatmentOutcome{
		Decision:  types.DecisionTreat,
		Treat:     plan,
		DecidedAt: now,
		DecidedBy: decidedBy,
	}
}

// NewAcceptOutcome builds an ACCEPT outcome from an acceptance form.
func NewAcceptOutcome(form *AcceptanceForm, decidedBy string, now time.Time) *TreatmentOutcome {
	return &TreatmentOutcome{
		Decision:   types.DecisionAccept,
		Acceptance: form,
		DecidedAt:  now,
		DecidedBy:  decidedBy,
	}
}

// NewTransferOutcome builds a TRANSFER outcome from a transfer form.
func NewTransferOutcome(form *TransferForm, decidedBy string, now time.Time) *TreatmentOutcome {
	return &TreatmentOutcome{
		Decision:  types.DecisionTransfer,
		Transfer:  form,
		DecidedAt: now,
		DecidedBy: decidedBy,
	}
}

// NewTerminateOutcome builds a TERMINATE outcome from a termination form.
func NewTerminateOutcome(form *TerminationForm, decidedBy string, now time.Time) *TreatmentOutcome {
	return &TreatmentOutcome{
		Decision:    types.DecisionTerminate,
		Termination: form,
		DecidedAt:   now,
		DecidedBy:   decidedBy,
	}
}

// Validate checks that the decision tag matches the populated branch and
// that the branch carries its required artifacts. Deserialized outcomes
// must pass through here before use.
func (o *TreatmentOutcome) Validate() error {
	if !o.Decision.IsValid() {
		return goerr.New("invalid treatment decision",
			goerr.T(types.TagValidation), goerr.V("decision", o.Decision))
	}

	populated := 0
	if o.Treat != nil {
		populated++
	}
	if o.Acceptance != nil {
		populated++
	}
	if o.Transfer != nil {
		populated++
	}
	if o.Termination != nil {
		populated++
	}
	if populated != 1 {
		return goerr.New("treatment outcome must carry exactly one branch",
			goerr.T(types.TagConflict),
			goerr.V("decision", o.Decision), goerr.V("populated", populated))
	}

	switch o.Decision {
	case types.DecisionTreat:
		if o.Treat == nil {
			return branchMismatch(o.Decision)
		}
		return o.Treat.Validate()
	case types.DecisionAccept:
		if o.Acceptance == nil {
			return branchMismatch(o.Decision)
		}
		return o.Acceptance.Validate()
	case types.DecisionTransfer:
		if o.Transfer == nil {
			return branchMismatch(o.Decision)
		}
		return o.Transfer.Validate()
	case types.DecisionTerminate:
		if o.Termination == nil {
			return branchMismatch(o.Decision)
		}
		return o.Termination.Validate()
	}
	return nil
}

func branchMismatch(d types.Decision) error {
	return goerr.New("treatment outcome branch does not match decision",
		goerr.T(types.TagConflict), goerr.V("decision", d))
}

// Progress returns the fraction of plan actions that are done, in [0, 1].
// Outcomes without a treatment plan report zero progress.
func (o *TreatmentOutcome) Progress() float64 {
	if o == nil || o.Treat == nil || len(o.Treat.Actions) == 0 {
		return 0
	}
	done := 0
	for _, a := range o.Treat.Actions {
		if a.Status.IsDone() {
			done++
		}
	}
	return float64(done) / float64(len(o.Treat.Actions))
}

// AllActionsVerified reports whether every action of a treatment plan has
// been verified complete.
func (o *TreatmentOutcome) AllActionsVerified() bool {
	if o == nil || o.Treat == nil || len(o.Treat.Actions) == 0 {
		return false
	}
	for _, a := range o.Treat.Actions {
		if a.Status != types.ActionStatusVerified {
			return false
		}
	}
	return true
}

// Validate checks the treatment plan fields
func (p *TreatmentPlan) Validate() error {
	if p.Mitigation == "" {
		return goerr.New("treatment plan requires a mitigation plan",
			goerr.T(types.TagValidation))
	}
	if len(p.Actions) == 0 {
		return goerr.New("treatment plan requires at least one action",
			goerr.T(types.TagValidation))
	}
	if !p.Priority.IsValid() {
		return goerr.New("treatment plan requires a valid priority",
			goerr.T(types.TagValidation), goerr.V("priority", p.Priority))
	}
	for i, a := range p.Actions {
		if a.Description == "" {
			return goerr.New("treatment action requires a description",
				goerr.T(types.TagValidation), goerr.V("index", i))
		}
	}
	return nil
}

// Validate checks the acceptance form fields
func (f *AcceptanceForm) Validate() error {
	if f.Reason == "" {
		return goerr.New("acceptance form requires a reason",
			goerr.T(types.TagValidation))
	}
	if len(f.Answers) == 0 {
		return goerr.New("acceptance form requires questionnaire answers",
			goerr.T(types.TagValidation))
	}
	return nil
}

// Validate checks the transfer form fields
func (f *TransferForm) Validate() error {
	if f.Receiver == "" {
		return goerr.New("transfer form requires a receiving party",
			goerr.T(types.TagValidation))
	}
	if len(f.Answers) == 0 {
		return goerr.New("transfer form requires questionnaire answers",
			goerr.T(types.TagValidation))
	}
	return nil
}

// Validate checks the termination form fields
func (f *TerminationForm) Validate() error {
	if f.Confirmation == "" {
		return goerr.New("termination form requires a removal confirmation",
			goerr.T(types.TagValidation))
	}
	if len(f.Answers) == 0 {
		return goerr.New("termination form requires questionnaire answers",
			goerr.T(types.TagValidation))
	}
	return nil
}
