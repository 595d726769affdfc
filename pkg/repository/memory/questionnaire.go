package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

type questionnaireRepository struct {
	mu      sync.Mutex
	pending map[types.QuestionnaireToken]*model.PendingQuestionnaire
	clock   func() time.Time
}

func newQuestionnaireRepository(clock func() time.Time) *questionnaireRepository {
	return &questionnaireRepository{
		pending: make(map[types.QuestionnaireToken]*model.PendingQuestionnaire),
		clock:   clock,
	}
}

func (r *questionnaireRepository) Put(ctx context.Context, pq *model.PendingQuestionnaire) error {
	if err := pq.Validate(); err != nil {
		return goerr.Wrap(err, "invalid pending questionnaire")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[pq.Token]; exists {
		return goerr.New("questionnaire token already exists",
			goerr.T(types.TagConflict), goerr.V("risk_id", pq.RiskID))
	}

	stored := pq.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.clock()
	}
	if stored.Status == "" {
		stored.Status = types.QuestionnairePending
	}
	r.pending[pq.Token] = stored
	return nil
}

func (r *questionnaireRepository) Get(ctx context.Context, token types.QuestionnaireToken) (*model.PendingQuestionnaire, error) {
	if err := token.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pq, exists := r.pending[token]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "pending questionnaire not found")
	}

	return pq.Clone(), nil
}

// Complete checks expiry and consumption before accepting answers: a
// token that has expired or already been completed stays inert and the
// submitted answers are discarded.
func (r *questionnaireRepository) Complete(ctx context.Context, token types.QuestionnaireToken, answers model.Answers) (*model.PendingQuestionnaire, error) {
	if err := token.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pq, exists := r.pending[token]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "pending questionnaire not found")
	}

	now := r.clock()
	if pq.Status == types.QuestionnaireCompleted {
		return nil, goerr.New("questionnaire token already consumed",
			goerr.T(types.TagExpiredToken), goerr.V("risk_id", pq.RiskID))
	}
	if pq.IsExpired(now) {
		pq.Status = types.QuestionnaireExpired
		return nil, goerr.New("questionnaire token expired",
			goerr.T(types.TagExpiredToken),
			goerr.V("risk_id", pq.RiskID), goerr.V("expires_at", pq.ExpiresAt))
	}

	if err := pq.ValidateAnswers(answers); err != nil {
		return nil, err
	}

	pq.Answers = make(model.Answers, len(answers))
	for k, v := range answers {
		pq.Answers[k] = v
	}
	pq.Status = types.QuestionnaireCompleted
	pq.CompletedAt = now

	return pq.Clone(), nil
}
