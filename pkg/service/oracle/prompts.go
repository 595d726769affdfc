package oracle

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

type questionnaireResponse struct {
	Questions []model.Question `json:"questions"`
}

type methodologyResponse struct {
	Fragment string `json:"fragment"`
}

func questionnaireSystemPrompt(kind types.QuestionnaireKind) string {
	var sb strings.Builder

	sb.WriteString("You are a security risk assessment assistant. Your task is to generate a questionnaire for an information asset.\n\n")
	sb.WriteString("## Instructions:\n\n")
	switch kind {
	case types.QuestionnaireKindDecision:
		sb.WriteString("1. Generate questions that establish which risk treatment option fits: implementing controls, accepting, transferring, or terminating the risky activity.\n")
	case types.QuestionnaireKindFollowUp:
		sb.WriteString("1. Generate questions that establish the implementation progress of planned controls and any change in the threat environment since the last review.\n")
	default:
		sb.WriteString("1. Generate questions that establish the asset's exposure: data sensitivity, access paths, existing safeguards, and dependency on third parties.\n")
	}
	sb.WriteString("2. For each question, provide:\n")
	sb.WriteString("   - id: A short stable identifier (e.g. q1, q2)\n")
	sb.WriteString("   - text: The question text\n")
	sb.WriteString("   - section: The topic grouping the question belongs to\n")
	sb.WriteString("   - required: Whether an answer is mandatory\n")
	sb.WriteString("3. Keep the questionnaire focused: 5 to 12 questions.\n")

	return sb.String()
}

func questionnaireUserPrompt(asset model.Asset, kind types.QuestionnaireKind) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate a %s questionnaire for the following asset.\n\n", strings.ToLower(kind.String()))
	sb.WriteString("## Asset:\n\n")
	fmt.Fprintf(&sb, "**Name:** %s\n", asset.Name)
	fmt.Fprintf(&sb, "**Type:** %s\n", asset.Type)
	if asset.Owner != "" {
		fmt.Fprintf(&sb, "**Owner:** %s\n", asset.Owner)
	}
	if asset.BusinessValue != "" {
		fmt.Fprintf(&sb, "**Business value:** %s\n", asset.BusinessValue)
	}
	if asset.Criticality != "" {
		fmt.Fprintf(&sb, "**Criticality:** %s\n", asset.Criticality)
	}

	return sb.String()
}

func questionnaireSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "QuestionnaireResponse",
		Description: "Generated questionnaire for an asset",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"questions": {
				Type:        gollem.TypeArray,
				Description: "Ordered list of questions",
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"id": {
							Type:        gollem.TypeString,
							Description: "Short stable question identifier",
						},
						"text": {
							Type:        gollem.TypeString,
							Description: "The question text",
						},
						"section": {
							Type:        gollem.TypeString,
							Description: "Topic grouping the question belongs to",
						},
						"required": {
							Type:        gollem.TypeBoolean,
							Description: "Whether an answer is mandatory",
						},
					},
					Required: []string{"id", "text", "required"},
				},
			},
		},
		Required: []string{"questions"},
	}
}

func impactSystemPrompt(scaleNotes string) string {
	var sb strings.Builder

	sb.WriteString("You are a security risk assessment assistant. Your task is to rate the impact and probability of a risk on 1-5 ordinal scales.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Rate confidentiality, integrity, and availability impact independently, each from 1 (negligible) to 5 (severe).\n")
	sb.WriteString("2. Rate probability_level from 1 (rare) to 5 (almost certain).\n")
	sb.WriteString("3. Base ratings on the questionnaire answers; do not assume controls that are not described.\n")
	sb.WriteString("4. Provide a short rationale in the same language as the risk description.\n")
	if scaleNotes != "" {
		sb.WriteString("\n## Scale definitions:\n\n")
		sb.WriteString(scaleNotes)
		sb.WriteString("\n")
	}

	return sb.String()
}

func impactSchema() *gollem.Parameter {
	level := func(desc string) *gollem.Parameter {
		return &gollem.Parameter{
			Type:        gollem.TypeInteger,
			Description: desc,
		}
	}
	return &gollem.Parameter{
		Title:       "ImpactAssessmentResponse",
		Description: "Impact and probability ratings for a risk",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"confidentiality":   level("Confidentiality impact, 1 to 5"),
			"integrity":         level("Integrity impact, 1 to 5"),
			"availability":      level("Availability impact, 1 to 5"),
			"probability_level": level("Likelihood of occurrence, 1 to 5"),
			"rationale": {
				Type:        gollem.TypeString,
				Description: "Short justification of the ratings",
			},
		},
		Required: []string{"confidentiality", "integrity", "availability", "probability_level", "rationale"},
	}
}

func controlSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a security risk assessment assistant. Your task is to evaluate the controls mitigating a risk.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. From the questionnaire answers, list the controls that are actually in place.\n")
	sb.WriteString("2. For each control, provide:\n")
	sb.WriteString("   - name: A short control name\n")
	sb.WriteString("   - description: What the control does\n")
	sb.WriteString("   - category: PREVENTIVE, DETECTIVE, or CORRECTIVE\n")
	sb.WriteString("   - effectiveness: How well it mitigates this risk, from 0.0 (none) to 1.0 (complete)\n")
	sb.WriteString("3. List gaps: expected controls that are missing or only partially implemented.\n")
	sb.WriteString("4. List recommended_controls: concrete additions that would reduce the residual risk.\n")
	sb.WriteString("5. Only include controls the answers support; do not invent safeguards.\n")

	return sb.String()
}

func controlUserPrompt(risk *model.Risk, framework []model.Passage) string {
	var sb strings.Builder

	sb.WriteString(riskUserPrompt(risk))

	if len(framework) > 0 {
		sb.WriteString("\n## Framework guidance:\n\n")
		for _, passage := range framework {
			if passage.Source != "" {
				fmt.Fprintf(&sb, "### %s\n", passage.Source)
			}
			sb.WriteString(passage.Content)
			sb.WriteString("\n\n")
		}
	}

	return sb.String()
}

func controlSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "ControlEvaluationResponse",
		Description: "Controls, gaps, and recommendations for a risk",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"controls": {
				Type:        gollem.TypeArray,
				Description: "Controls that are in place",
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"name": {
							Type:        gollem.TypeString,
							Description: "Short control name",
						},
						"description": {
							Type:        gollem.TypeString,
							Description: "What the control does",
						},
						"category": {
							Type:        gollem.TypeString,
							Description: "PREVENTIVE, DETECTIVE, or CORRECTIVE",
							Enum:        []string{"PREVENTIVE", "DETECTIVE", "CORRECTIVE"},
						},
						"effectiveness": {
							Type:        gollem.TypeNumber,
							Description: "Mitigation effectiveness from 0.0 to 1.0",
						},
					},
					Required: []string{"name", "category", "effectiveness"},
				},
			},
			"gaps": {
				Type:        gollem.TypeArray,
				Description: "Expected controls that are missing",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
			"recommended_controls": {
				Type:        gollem.TypeArray,
				Description: "Concrete additions that would reduce residual risk",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
		},
		Required: []string{"controls", "gaps", "recommended_controls"},
	}
}

func decisionSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a security risk assessment assistant. Your task is to recommend a risk treatment decision.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Recommend exactly one of: TREAT (implement additional controls), ACCEPT (retain the risk), TRANSFER (shift it to a third party), TERMINATE (stop the risky activity).\n")
	sb.WriteString("2. Weigh the residual risk value against the cost and feasibility of further mitigation.\n")
	sb.WriteString("3. Provide a short rationale in the same language as the risk description.\n")

	return sb.String()
}

func decisionSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "DecisionRecommendationResponse",
		Description: "Recommended treatment decision for an assessed risk",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"decision": {
				Type:        gollem.TypeString,
				Description: "One of TREAT, ACCEPT, TRANSFER, TERMINATE",
				Enum:        []string{"TREAT", "ACCEPT", "TRANSFER", "TERMINATE"},
			},
			"rationale": {
				Type:        gollem.TypeString,
				Description: "Short justification of the recommendation",
			},
		},
		Required: []string{"decision", "rationale"},
	}
}

func methodologySystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a security risk assessment assistant. Your task is to explain one aspect of a qualitative risk assessment methodology.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. The user provides a topic such as a scale definition, a rating formula, or a classification rule.\n")
	sb.WriteString("2. Return a concise fragment describing how that aspect is applied: the levels, thresholds, or steps involved.\n")
	sb.WriteString("3. Keep the fragment self-contained so it can be reused verbatim in later assessments.\n")

	return sb.String()
}

func methodologySchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "MethodologyFragmentResponse",
		Description: "Reusable methodology fragment for a topic",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"fragment": {
				Type:        gollem.TypeString,
				Description: "Concise self-contained methodology description",
			},
		},
		Required: []string{"fragment"},
	}
}

// riskUserPrompt renders the risk context shared by the impact, control,
// and decision calls.
func riskUserPrompt(risk *model.Risk) string {
	var sb strings.Builder

	sb.WriteString("## Risk:\n\n")
	fmt.Fprintf(&sb, "**Title:** %s\n", risk.Title)
	if risk.Description != "" {
		fmt.Fprintf(&sb, "**Description:** %s\n", risk.Description)
	}
	if risk.ThreatName != "" {
		fmt.Fprintf(&sb, "**Threat:** %s\n", risk.ThreatName)
	}
	if len(risk.Vulnerabilities) > 0 {
		fmt.Fprintf(&sb, "**Vulnerabilities:** %s\n", strings.Join(risk.Vulnerabilities, ", "))
	}
	fmt.Fprintf(&sb, "**Asset:** %s (%s)\n", risk.Asset.Name, risk.Asset.Type)

	if risk.Quantification != nil {
		fmt.Fprintf(&sb, "**Risk value:** %d (%s)\n", risk.Quantification.RiskValue, risk.Quantification.Classification)
	}
	if risk.Controls != nil {
		fmt.Fprintf(&sb, "**Residual risk value:** %.1f (%s)\n", risk.Controls.ResidualRiskValue, risk.Controls.ResidualClassification)
	}

	if len(risk.Answers) > 0 {
		sb.WriteString("\n## Questionnaire answers:\n\n")
		for _, q := range risk.Questions {
			answer := risk.Answers[q.ID]
			if answer == "" {
				continue
			}
			fmt.Fprintf(&sb, "**Q: %s**\nA: %s\n\n", q.Text, answer)
		}
	}

	return sb.String()
}
