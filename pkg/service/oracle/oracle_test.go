package oracle_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/service/oracle"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{Texts: []string{"{}"}}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
	sessions     int
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	c.sessions++
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func textClient(texts ...string) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockLLMSession{
				generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
					return &gollem.Response{Texts: texts}, nil
				},
			}, nil
		},
	}
}

func testAsset() model.Asset {
	return model.Asset{Name: "Customer Database", Type: "database"}
}

func testRisk() *model.Risk {
	return &model.Risk{
		Title:      "Unencrypted backups",
		ThreatName: "data theft",
		Asset:      testAsset(),
		Answers:    model.Answers{"q1": "yes"},
	}
}

func TestGenerateQuestionnaire(t *testing.T) {
	t.Run("parses the structured question list", func(t *testing.T) {
		c := textClient(`{"questions":[{"id":"q1","text":"Does the asset store personal data?","required":true}]}`)
		o, err := oracle.New(c)
		gt.NoError(t, err).Required()

		questions, err := o.GenerateQuestionnaire(context.Background(), testAsset(), types.QuestionnaireKindAsset)
		gt.NoError(t, err).Required()
		gt.Array(t, questions).Length(1)
		gt.Value(t, questions[0].ID).Equal("q1")
		gt.Value(t, questions[0].Required).Equal(true)
	})

	t.Run("rejects an empty question list", func(t *testing.T) {
		c := textClient(`{"questions":[]}`)
		o, err := oracle.New(c)
		gt.NoError(t, err).Required()

		_, err = o.GenerateQuestionnaire(context.Background(), testAsset(), types.QuestionnaireKindAsset)
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagCollaborator)).Equal(true)
	})
}

func TestAssessImpact(t *testing.T) {
	t.Run("parses a valid judgment", func(t *testing.T) {
		c := textClient(`{"confidentiality":4,"integrity":3,"availability":2,"probability_level":5,"rationale":"broad exposure"}`)
		o, err := oracle.New(c)
		gt.NoError(t, err).Required()

		judgment, err := o.AssessImpact(context.Background(), testRisk(), "scale notes")
		gt.NoError(t, err).Required()
		gt.Value(t, judgment.Confidentiality).Equal(4)
		gt.Value(t, judgment.ProbabilityLevel).Equal(5)
	})

	t.Run("rejects out-of-range ratings", func(t *testing.T) {
		c := textClient(`{"confidentiality":9,"integrity":3,"availability":2,"probability_level":5}`)
		o, err := oracle.New(c, oracle.WithMaxRetries(0))
		gt.NoError(t, err).Required()

		_, err = o.AssessImpact(context.Background(), testRisk(), "scale notes")
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagCollaborator)).Equal(true)
	})
}

func TestRecommendDecision(t *testing.T) {
	t.Run("normalizes decision casing", func(t *testing.T) {
		c := textClient(`{"decision":"treat","rationale":"residual above tolerance"}`)
		o, err := oracle.New(c)
		gt.NoError(t, err).Required()

		judgment, err := o.RecommendDecision(context.Background(), testRisk())
		gt.NoError(t, err).Required()
		gt.Value(t, judgment.Decision).Equal(types.DecisionTreat)
	})

	t.Run("rejects unknown decisions", func(t *testing.T) {
		c := textClient(`{"decision":"IGNORE"}`)
		o, err := oracle.New(c, oracle.WithMaxRetries(0))
		gt.NoError(t, err).Required()

		_, err = o.RecommendDecision(context.Background(), testRisk())
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagCollaborator)).Equal(true)
	})
}

func TestGenerateRetry(t *testing.T) {
	t.Run("empty responses are retried then surfaced", func(t *testing.T) {
		c := textClient() // no texts at all
		o, err := oracle.New(c, oracle.WithMaxRetries(1), oracle.WithTimeout(time.Second))
		gt.NoError(t, err).Required()

		_, err = o.ExtractMethodology(context.Background(), "impact scale")
		gt.Error(t, err)
		gt.Value(t, goerr.HasTag(err, types.TagCollaborator)).Equal(true)
		gt.Value(t, c.sessions).Equal(2)
	})

	t.Run("a retry can succeed", func(t *testing.T) {
		calls := 0
		c := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						calls++
						if calls == 1 {
							return nil, goerr.New("transient failure")
						}
						return &gollem.Response{Texts: []string{`{"fragment":"levels 1 to 5"}`}}, nil
					},
				}, nil
			},
		}
		o, err := oracle.New(c, oracle.WithMaxRetries(2))
		gt.NoError(t, err).Required()

		fragment, err := o.ExtractMethodology(context.Background(), "impact scale")
		gt.NoError(t, err).Required()
		gt.Value(t, fragment).Equal("levels 1 to 5")
	})

	t.Run("requires an LLM client", func(t *testing.T) {
		_, err := oracle.New(nil)
		gt.Error(t, err)
	})
}
