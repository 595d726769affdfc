package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// ImpactJudgment is the scoring oracle's structured response for the
// impact stage. It is validated before any field reaches a risk record.
type ImpactJudgment struct {
	Confidentiality  int    `json:"confidentiality"`
	Integrity        int    `json:"integrity"`
	Availability     int    `json:"availability"`
	ProbabilityLevel int    `json:"probability_level"`
	Rationale        string `json:"rationale"`
}

// Validate checks the judgment against the expected field schema.
func (j *ImpactJudgment) Validate() error {
	for name, v := range map[string]int{
		"confidentiality":   j.Confidentiality,
		"integrity":         j.Integrity,
		"availability":      j.Availability,
		"probability_level": j.ProbabilityLevel,
	} {
		if v < 1 || v > 5 {
			return goerr.New("impact judgment rating out of range",
				goerr.T(types.TagCollaborator),
				goerr.V("field", name), goerr.V("value", v))
		}
	}
	return nil
}

// ControlJudgment is the oracle's structured response for the control
// evaluation stage.
type ControlJudgment struct {
	Controls            []Control `json:"controls"`
	Gaps                []string  `json:"gaps"`
	RecommendedControls []string  `json:"recommended_controls"`
}

// Validate checks the judgment against the expected field schema.
func (j *ControlJudgment) Validate() error {
	for i := range j.Controls {
		if err := j.Controls[i].Validate(); err != nil {
			return goerr.Wrap(err, "control judgment has invalid control",
				goerr.T(types.TagCollaborator), goerr.V("index", i))
		}
	}
	return nil
}

// DecisionJudgment is the oracle's recommendation for the decision stage.
// The workflow engine formalizes it; it is never applied automatically.
type DecisionJudgment struct {
	Decision  types.Decision `json:"decision"`
	Rationale string         `json:"rationale"`
}

// Validate checks the judgment against the expected field schema.
func (j *DecisionJudgment) Validate() error {
	if !j.Decision.IsValid() {
		return goerr.New("decision judgment has invalid decision",
			goerr.T(types.TagCollaborator), goerr.V("decision", j.Decision))
	}
	return nil
}

// Passage is one ranked result from the retrieval collaborator.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}
