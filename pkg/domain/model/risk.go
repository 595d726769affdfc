package model

import (
	"time"

	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// ImpactAssessment holds the outputs of the impact stage. CIA sub-ratings
// are on the 1..5 scale; Overall is derived from them.
type ImpactAssessment struct {
	Confidentiality int    `json:"confidentiality"`
	Integrity       int    `json:"integrity"`
	Availability    int    `json:"availability"`
	Overall         int    `json:"overall"`
	Level           int    `json:"level"`
	Category        string `json:"category"`
	Rationale       string `json:"rationale,omitempty"`
}

// ProbabilityAssessment holds the likelihood outputs of the impact stage.
type ProbabilityAssessment struct {
	Level    int    `json:"level"`
	Category string `json:"category"`
}

// Quantification holds the outputs of the deterministic quantification
// stage.
type Quantification struct {
	RiskValue       int    `json:"risk_value"`
	RiskRating      string `json:"risk_rating"`
	EvaluationLevel string `json:"evaluation_level"`
	Classification  string `json:"classification"`
}

// ControlEvaluation holds the outputs of the control evaluation stage.
type ControlEvaluation struct {
	Controls               []Control                         `json:"controls"`
	ControlCount           int                               `json:"control_count"`
	CategoryEffectiveness  map[types.ControlCategory]float64 `json:"category_effectiveness"`
	ControlRating          float64                           `json:"control_rating"`
	ResidualRiskValue      float64                           `json:"residual_risk_value"`
	ResidualClassification string                            `json:"residual_classification"`
	Gaps                   []string                          `json:"gaps,omitempty"`
	RecommendedControls    []string                          `json:"recommended_controls,omitempty"`
}

// FollowUpRecord is one entry of the append-only follow-up history.
type FollowUpRecord struct {
	At               time.Time `json:"at"`
	Answers          Answers   `json:"answers"`
	PreviousResidual float64   `json:"previous_residual"`
	NewResidual      float64   `json:"new_residual"`
	Delta            float64   `json:"delta"`
	Trend            string    `json:"trend"`
	ActionOwner      string    `json:"action_owner,omitempty"`
}

// Risk is the durable entity tracking one identified risk through
// assessment, treatment decision, and closure.
type Risk struct {
	// Identity
	ID     types.RiskID
	Number int64

	// Descriptive
	Title           string
	Description     string
	ThreatName      string
	Vulnerabilities []string
	Asset           Asset

	// Stage outputs. Each pointer is nil until its pipeline stage has run;
	// once set it is frozen until an explicit re-assessment.
	Questions      []Question
	Answers        Answers
	Impact         *ImpactAssessment
	Probability    *ProbabilityAssessment
	Quantification *Quantification
	Controls       *ControlEvaluation
	Recommended    types.Decision

	// Ownership
	Owner        string
	OwnerContact string
	Approver     string

	// Treatment
	Outcome              *TreatmentOutcome
	TargetCompletionDate time.Time

	// Lifecycle
	Status       types.RiskStatus
	IdentifiedAt time.Time
	AddedAt      time.Time
	ClosedAt     time.Time
	UpdatedAt    time.Time

	// Follow-up
	FollowUpStatus types.FollowUpStatus
	NextFollowUpAt time.Time
	FollowUps      []FollowUpRecord
	ActionOwner    string

	// Provenance
	SourceAssessmentID types.AssessmentID
	CreatedBy          string
	FromQuestionnaire  bool
}

// Decision returns the taken treatment decision, or empty if none.
func (r *Risk) Decision() types.Decision {
	if r.Outcome == nil {
		return ""
	}
	return r.Outcome.Decision
}

// Assessed reports whether every pipeline stage up to decision has
// produced its outputs.
func (r *Risk) Assessed() bool {
	return r.Impact != nil && r.Probability != nil &&
		r.Quantification != nil && r.Controls != nil
}

// ResidualRiskValue returns the current residual risk value, falling back
// to the pre-control risk value when controls have not been evaluated.
func (r *Risk) ResidualRiskValue() float64 {
	if r.Controls != nil {
		return r.Controls.ResidualRiskValue
	}
	if r.Quantification != nil {
		return float64(r.Quantification.RiskValue)
	}
	return 0
}

// Progress returns the fraction of completed treatment actions.
func (r *Risk) Progress() float64 {
	return r.Outcome.Progress()
}

// Trend compares the two latest residual values: "IMPROVING", "WORSENING"
// or "SAME". Risks without follow-up history report "UNKNOWN".
func (r *Risk) Trend() string {
	if len(r.FollowUps) == 0 {
		return "UNKNOWN"
	}
	last := r.FollowUps[len(r.FollowUps)-1]
	switch {
	case last.NewResidual < last.PreviousResidual:
		return "IMPROVING"
	case last.NewResidual > last.PreviousResidual:
		return "WORSENING"
	default:
		return "SAME"
	}
}

// Clone returns a deep copy so repository reads cannot leak shared state.
func (r *Risk) Clone() *Risk {
	if r == nil {
		return nil
	}
	c := *r

	c.Vulnerabilities = append([]string(nil), r.Vulnerabilities...)
	c.Questions = append([]Question(nil), r.Questions...)
	c.FollowUps = append([]FollowUpRecord(nil), r.FollowUps...)
	if r.Answers != nil {
		c.Answers = make(Answers, len(r.Answers))
		for k, v := range r.Answers {
			c.Answers[k] = v
		}
	}
	if r.Impact != nil {
		v := *r.Impact
		c.Impact = &v
	}
	if r.Probability != nil {
		v := *r.Probability
		c.Probability = &v
	}
	if r.Quantification != nil {
		v := *r.Quantification
		c.Quantification = &v
	}
	if r.Controls != nil {
		v := *r.Controls
		v.Controls = append([]Control(nil), r.Controls.Controls...)
		v.Gaps = append([]string(nil), r.Controls.Gaps...)
		v.RecommendedControls = append([]string(nil), r.Controls.RecommendedControls...)
		if r.Controls.CategoryEffectiveness != nil {
			v.CategoryEffectiveness = make(map[types.ControlCategory]float64, len(r.Controls.CategoryEffectiveness))
			for k, val := range r.Controls.CategoryEffectiveness {
				v.CategoryEffectiveness[k] = val
			}
		}
		c.Controls = &v
	}
	if r.Outcome != nil {
		v := *r.Outcome
		if r.Outcome.Treat != nil {
			p := *r.Outcome.Treat
			p.Actions = append([]Action(nil), r.Outcome.Treat.Actions...)
			v.Treat = &p
		}
		if r.Outcome.Acceptance != nil {
			f := *r.Outcome.Acceptance
			v.Acceptance = &f
		}
		if r.Outcome.Transfer != nil {
			f := *r.Outcome.Transfer
			v.Transfer = &f
		}
		if r.Outcome.Termination != nil {
			f := *r.Outcome.Termination
			v.Termination = &f
		}
		c.Outcome = &v
	}

	return &c
}
