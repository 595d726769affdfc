// Package oracle implements the scoring oracle on top of a gollem LLM
// client. Every call requests structured JSON output against an explicit
// response schema and validates the parsed judgment before returning it.
package oracle

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

type client struct {
	llmClient  gollem.LLMClient
	timeout    time.Duration
	maxRetries int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithTimeout caps the wall-clock time of a single oracle call.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithMaxRetries sets how many times a failed call is retried before the
// error is surfaced to the caller.
func WithMaxRetries(n int) Option {
	return func(c *client) {
		c.maxRetries = n
	}
}

// New creates a scoring oracle backed by the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (interfaces.ScoringOracle, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:  llmClient,
		timeout:    60 * time.Second,
		maxRetries: 2,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// generate runs one structured-output call with timeout and bounded
// retry. The returned error always carries the collaborator tag so
// callers can distinguish oracle outages from their own failures.
func (c *client) generate(ctx context.Context, systemPrompt, userPrompt string, schema *gollem.Parameter, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			logging.From(ctx).Warn("retrying oracle call",
				"attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return goerr.Wrap(ctx.Err(), "oracle call canceled", goerr.T(types.TagCollaborator))
			}
		}

		lastErr = c.generateOnce(ctx, systemPrompt, userPrompt, schema, out)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *client) generateOnce(ctx context.Context, systemPrompt, userPrompt string, schema *gollem.Parameter, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schema),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create LLM session", goerr.T(types.TagCollaborator))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return goerr.Wrap(err, "failed to generate content from LLM", goerr.T(types.TagCollaborator))
	}
	if len(resp.Texts) == 0 {
		return goerr.New("empty response from LLM", goerr.T(types.TagCollaborator))
	}

	if err := json.Unmarshal([]byte(resp.Texts[0]), out); err != nil {
		return goerr.Wrap(err, "failed to parse LLM response",
			goerr.T(types.TagCollaborator), goerr.V("response", resp.Texts[0]))
	}
	return nil
}

// GenerateQuestionnaire produces a question set for the asset and kind.
func (c *client) GenerateQuestionnaire(ctx context.Context, asset model.Asset, kind types.QuestionnaireKind) ([]model.Question, error) {
	var resp questionnaireResponse
	if err := c.generate(ctx, questionnaireSystemPrompt(kind), questionnaireUserPrompt(asset, kind), questionnaireSchema(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Questions) == 0 {
		return nil, goerr.New("oracle returned no questions",
			goerr.T(types.TagCollaborator), goerr.V("asset", asset.Name), goerr.V("kind", kind))
	}
	return resp.Questions, nil
}

// AssessImpact rates CIA impact and probability from the answers.
func (c *client) AssessImpact(ctx context.Context, risk *model.Risk, scaleNotes string) (*model.ImpactJudgment, error) {
	var judgment model.ImpactJudgment
	if err := c.generate(ctx, impactSystemPrompt(scaleNotes), riskUserPrompt(risk), impactSchema(), &judgment); err != nil {
		return nil, err
	}
	if err := judgment.Validate(); err != nil {
		return nil, err
	}
	return &judgment, nil
}

// EvaluateControls identifies controls, gaps, and recommendations.
func (c *client) EvaluateControls(ctx context.Context, risk *model.Risk, framework []model.Passage) (*model.ControlJudgment, error) {
	var judgment model.ControlJudgment
	if err := c.generate(ctx, controlSystemPrompt(), controlUserPrompt(risk, framework), controlSchema(), &judgment); err != nil {
		return nil, err
	}
	if err := judgment.Validate(); err != nil {
		return nil, err
	}
	return &judgment, nil
}

// RecommendDecision proposes a treatment decision for an assessed risk.
func (c *client) RecommendDecision(ctx context.Context, risk *model.Risk) (*model.DecisionJudgment, error) {
	var judgment model.DecisionJudgment
	if err := c.generate(ctx, decisionSystemPrompt(), riskUserPrompt(risk), decisionSchema(), &judgment); err != nil {
		return nil, err
	}
	judgment.Decision = types.Decision(strings.ToUpper(judgment.Decision.String()))
	if err := judgment.Validate(); err != nil {
		return nil, err
	}
	return &judgment, nil
}

// ExtractMethodology derives a methodology fragment for the topic.
func (c *client) ExtractMethodology(ctx context.Context, topic string) (string, error) {
	var resp methodologyResponse
	if err := c.generate(ctx, methodologySystemPrompt(), topic, methodologySchema(), &resp); err != nil {
		return "", err
	}
	if resp.Fragment == "" {
		return "", goerr.New("oracle returned empty methodology fragment",
			goerr.T(types.TagCollaborator), goerr.V("topic", topic))
	}
	return resp.Fragment, nil
}
