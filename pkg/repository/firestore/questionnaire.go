package firestore

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type questionnaireDocument struct {
	Token       string    `firestore:"token"`
	RiskID      string    `firestore:"risk_id"`
	AssetName   string    `firestore:"asset_name"`
	Kind        string    `firestore:"kind"`
	Questions   []byte    `firestore:"questions"`
	Answers     []byte    `firestore:"answers,omitempty"`
	Recipient   string    `firestore:"recipient,omitempty"`
	Status      string    `firestore:"status"`
	CreatedAt   time.Time `firestore:"created_at"`
	ExpiresAt   time.Time `firestore:"expires_at,omitempty"`
	CompletedAt time.Time `firestore:"completed_at,omitempty"`
}

type questionnaireRepository struct {
	client           *firestore.Client
	collectionPrefix string
	clock            func() time.Time
}

func newQuestionnaireRepository(client *firestore.Client, clock func() time.Time) *questionnaireRepository {
	return &questionnaireRepository{
		client: client,
		clock:  clock,
	}
}

func (r *questionnaireRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_pending_questionnaires"
	}
	return "pending_questionnaires"
}

func (r *questionnaireRepository) toDocument(pq *model.PendingQuestionnaire) (*questionnaireDocument, error) {
	questions, err := json.Marshal(pq.Questions)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal questions")
	}
	doc := &questionnaireDocument{
		Token:       pq.Token.String(),
		RiskID:      pq.RiskID.String(),
		AssetName:   pq.AssetName,
		Kind:        pq.Kind.String(),
		Questions:   questions,
		Recipient:   pq.Recipient,
		Status:      pq.Status.String(),
		CreatedAt:   pq.CreatedAt,
		ExpiresAt:   pq.ExpiresAt,
		CompletedAt: pq.CompletedAt,
	}
	if len(pq.Answers) > 0 {
		answers, err := json.Marshal(pq.Answers)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal answers")
		}
		doc.Answers = answers
	}
	return doc, nil
}

func (doc *questionnaireDocument) toModel() (*model.PendingQuestionnaire, error) {
	pq := &model.PendingQuestionnaire{
		Token:       types.QuestionnaireToken(doc.Token),
		RiskID:      types.RiskID(doc.RiskID),
		AssetName:   doc.AssetName,
		Kind:        types.QuestionnaireKind(doc.Kind),
		Recipient:   doc.Recipient,
		Status:      types.QuestionnaireStatus(doc.Status),
		CreatedAt:   doc.CreatedAt,
		ExpiresAt:   doc.ExpiresAt,
		CompletedAt: doc.CompletedAt,
	}
	if err := json.Unmarshal(doc.Questions, &pq.Questions); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal questions")
	}
	if len(doc.Answers) > 0 {
		if err := json.Unmarshal(doc.Answers, &pq.Answers); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal answers")
		}
	}
	return pq, nil
}

func (r *questionnaireRepository) Put(ctx context.Context, pq *model.PendingQuestionnaire) error {
	if err := pq.Validate(); err != nil {
		return goerr.Wrap(err, "invalid pending questionnaire")
	}

	stored := pq.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.clock()
	}
	if stored.Status == "" {
		stored.Status = types.QuestionnairePending
	}

	doc, err := r.toDocument(stored)
	if err != nil {
		return err
	}

	docRef := r.client.Collection(r.collection()).Doc(stored.Token.String())
	if _, err := docRef.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.New("questionnaire token already exists",
				goerr.T(types.TagConflict), goerr.V("risk_id", stored.RiskID))
		}
		return goerr.Wrap(err, "failed to put pending questionnaire")
	}

	return nil
}

func (r *questionnaireRepository) Get(ctx context.Context, token types.QuestionnaireToken) (*model.PendingQuestionnaire, error) {
	if err := token.Validate(); err != nil {
		return nil, err
	}

	docRef := r.client.Collection(r.collection()).Doc(token.String())
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "pending questionnaire not found")
		}
		return nil, goerr.Wrap(err, "failed to get pending questionnaire")
	}

	var qDoc questionnaireDocument
	if err := doc.DataTo(&qDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal pending questionnaire")
	}

	return qDoc.toModel()
}

// Complete runs in a transaction so the expiry and consumption checks and
// the answer write cannot interleave with a concurrent completion.
func (r *questionnaireRepository) Complete(ctx context.Context, token types.QuestionnaireToken, answers model.Answers) (*model.PendingQuestionnaire, error) {
	if err := token.Validate(); err != nil {
		return nil, err
	}

	docRef := r.client.Collection(r.collection()).Doc(token.String())

	var completed *model.PendingQuestionnaire
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "pending questionnaire not found")
			}
			return goerr.Wrap(err, "failed to get pending questionnaire")
		}

		var qDoc questionnaireDocument
		if err := doc.DataTo(&qDoc); err != nil {
			return goerr.Wrap(err, "failed to unmarshal pending questionnaire")
		}

		pq, err := qDoc.toModel()
		if err != nil {
			return err
		}

		now := r.clock()
		if pq.Status == types.QuestionnaireCompleted {
			return goerr.New("questionnaire token already consumed",
				goerr.T(types.TagExpiredToken), goerr.V("risk_id", pq.RiskID))
		}
		if pq.IsExpired(now) {
			return goerr.New("questionnaire token expired",
				goerr.T(types.TagExpiredToken),
				goerr.V("risk_id", pq.RiskID), goerr.V("expires_at", pq.ExpiresAt))
		}

		if err := pq.ValidateAnswers(answers); err != nil {
			return err
		}

		raw, err := json.Marshal(answers)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal answers")
		}

		if err := tx.Update(docRef, []firestore.Update{
			{Path: "answers", Value: raw},
			{Path: "status", Value: types.QuestionnaireCompleted.String()},
			{Path: "completed_at", Value: now},
		}); err != nil {
			return goerr.Wrap(err, "failed to complete pending questionnaire")
		}

		pq.Answers = answers
		pq.Status = types.QuestionnaireCompleted
		pq.CompletedAt = now
		completed = pq
		return nil
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}
