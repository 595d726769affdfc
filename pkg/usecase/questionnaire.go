package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

// DefaultQuestionnaireTTL bounds how long an issued token stays
// completable.
const DefaultQuestionnaireTTL = 7 * 24 * time.Hour

// QuestionnaireUseCase issues capability tokens for asynchronous answer
// collection and folds completed answers back into the risk record.
type QuestionnaireUseCase struct {
	*UseCases
}

// Issue creates a pending questionnaire for the risk and returns it with
// its token. The question set reuses the cached template for the asset
// type when one exists.
func (uc *QuestionnaireUseCase) Issue(ctx context.Context, riskID types.RiskID, kind types.QuestionnaireKind, recipient string, ttl time.Duration) (*model.PendingQuestionnaire, error) {
	if !kind.IsValid() {
		return nil, goerr.New("invalid questionnaire kind",
			goerr.T(types.TagValidation), goerr.V("kind", kind))
	}
	if ttl <= 0 {
		ttl = DefaultQuestionnaireTTL
	}

	risk, err := uc.repo.Risk().Get(ctx, riskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", riskID))
	}
	if risk.Status.IsTerminal() {
		return nil, goerr.New("cannot issue a questionnaire for a terminal risk",
			goerr.T(types.TagState), goerr.V("id", riskID), goerr.V("status", risk.Status))
	}

	questions, err := uc.questionSet(ctx, risk.Asset, kind)
	if err != nil {
		return nil, err
	}

	token, err := types.NewQuestionnaireToken()
	if err != nil {
		return nil, err
	}

	now := uc.now()
	pq := &model.PendingQuestionnaire{
		Token:     token,
		RiskID:    riskID,
		AssetName: risk.Asset.Name,
		Kind:      kind,
		Questions: questions,
		Recipient: recipient,
		Status:    types.QuestionnairePending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := uc.repo.Questionnaire().Put(ctx, pq); err != nil {
		return nil, goerr.Wrap(err, "failed to store pending questionnaire")
	}

	logging.From(ctx).Info("questionnaire issued",
		"risk_id", riskID, "kind", kind, "expires_at", pq.ExpiresAt)

	return pq, nil
}

// Get retrieves a pending questionnaire by its token.
func (uc *QuestionnaireUseCase) Get(ctx context.Context, token types.QuestionnaireToken) (*model.PendingQuestionnaire, error) {
	pq, err := uc.repo.Questionnaire().Get(ctx, token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get pending questionnaire")
	}
	return pq, nil
}

// Complete consumes a token with the submitted answers and folds them
// into the target risk. Expired or already-consumed tokens are rejected
// before any answer is accepted; follow-up questionnaires additionally
// trigger the follow-up re-evaluation.
func (uc *QuestionnaireUseCase) Complete(ctx context.Context, token types.QuestionnaireToken, answers model.Answers) (*model.Risk, error) {
	pq, err := uc.repo.Questionnaire().Complete(ctx, token, answers)
	if err != nil {
		return nil, err
	}

	if pq.Kind == types.QuestionnaireKindFollowUp {
		return uc.FollowUp.Run(ctx, pq.RiskID, answers, pq.Recipient)
	}

	unlock := uc.locks.Lock(pq.RiskID)
	defer unlock()

	risk, err := uc.repo.Risk().Get(ctx, pq.RiskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", pq.RiskID))
	}

	if len(risk.Questions) == 0 {
		risk.Questions = pq.Questions
	}
	if risk.Answers == nil {
		risk.Answers = make(model.Answers, len(answers))
	}
	for k, v := range answers {
		risk.Answers[k] = v
	}
	risk.FromQuestionnaire = true

	updated, err := uc.repo.Risk().Update(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist questionnaire answers",
			goerr.V("id", pq.RiskID))
	}

	logging.From(ctx).Info("questionnaire completed",
		"risk_id", pq.RiskID, "kind", pq.Kind, "answers", len(answers))

	return updated, nil
}
