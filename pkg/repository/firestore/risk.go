package firestore

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// riskDocument is the persisted layout of a risk. Stage outputs and the
// treatment outcome are stored as JSON blobs so the document schema stays
// stable while the stage structs evolve.
type riskDocument struct {
	ID              string   `firestore:"id"`
	Number          int64    `firestore:"number"`
	Title           string   `firestore:"title"`
	Description     string   `firestore:"description"`
	ThreatName      string   `firestore:"threat_name"`
	Vulnerabilities []string `firestore:"vulnerabilities"`

	AssetID            string `firestore:"asset_id"`
	AssetName          string `firestore:"asset_name"`
	AssetType          string `firestore:"asset_type"`
	AssetOwner         string `firestore:"asset_owner"`
	AssetBusinessValue string `firestore:"asset_business_value"`
	AssetCriticality   string `firestore:"asset_criticality"`

	Questions      []byte `firestore:"questions,omitempty"`
	Answers        []byte `firestore:"answers,omitempty"`
	Impact         []byte `firestore:"impact,omitempty"`
	Probability    []byte `firestore:"probability,omitempty"`
	Quantification []byte `firestore:"quantification,omitempty"`
	Controls       []byte `firestore:"controls,omitempty"`
	Recommended    string `firestore:"recommended,omitempty"`
	Outcome        []byte `firestore:"outcome,omitempty"`

	Owner                string    `firestore:"owner"`
	OwnerContact         string    `firestore:"owner_contact"`
	Approver             string    `firestore:"approver"`
	TargetCompletionDate time.Time `firestore:"target_completion_date,omitempty"`

	Status       string    `firestore:"status"`
	IdentifiedAt time.Time `firestore:"identified_at"`
	AddedAt      time.Time `firestore:"added_at"`
	ClosedAt     time.Time `firestore:"closed_at,omitempty"`
	UpdatedAt    time.Time `firestore:"updated_at"`

	FollowUpStatus string    `firestore:"followup_status"`
	NextFollowUpAt time.Time `firestore:"next_followup_at,omitempty"`
	FollowUps      []byte    `firestore:"followups,omitempty"`
	ActionOwner    string    `firestore:"action_owner,omitempty"`

	SourceAssessmentID string `firestore:"source_assessment_id,omitempty"`
	CreatedBy          string `firestore:"created_by,omitempty"`
	FromQuestionnaire  bool   `firestore:"from_questionnaire"`
}

type riskRepository struct {
	client           *firestore.Client
	collectionPrefix string
	clock            func() time.Time
}

func newRiskRepository(client *firestore.Client, clock func() time.Time) *riskRepository {
	return &riskRepository{
		client: client,
		clock:  clock,
	}
}

func (r *riskRepository) risksCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_risks"
	}
	return "risks"
}

func (r *riskRepository) counterCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_counters"
	}
	return "counters"
}

// nextNumber increments the risk number counter in a transaction. Numbers
// are monotonic and never reused.
func (r *riskRepository) nextNumber(ctx context.Context) (int64, error) {
	counterRef := r.client.Collection(r.counterCollection()).Doc("risk_number")

	var next int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				next = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": next,
				})
			}
			return goerr.Wrap(err, "failed to get risk number counter")
		}

		current, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}

		next = current.(int64) + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: next},
		})
	})

	if err != nil {
		return 0, goerr.Wrap(err, "failed to assign risk number")
	}

	return next, nil
}

func marshalField(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal risk field")
	}
	return raw, nil
}

func unmarshalField(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return goerr.Wrap(err, "failed to unmarshal risk field")
	}
	return nil
}

func (r *riskRepository) toDocument(risk *model.Risk) (*riskDocument, error) {
	doc := &riskDocument{
		ID:              risk.ID.String(),
		Number:          risk.Number,
		Title:           risk.Title,
		Description:     risk.Description,
		ThreatName:      risk.ThreatName,
		Vulnerabilities: risk.Vulnerabilities,

		AssetID:            risk.Asset.ID,
		AssetName:          risk.Asset.Name,
		AssetType:          risk.Asset.Type,
		AssetOwner:         risk.Asset.Owner,
		AssetBusinessValue: risk.Asset.BusinessValue,
		AssetCriticality:   risk.Asset.Criticality,

		Recommended: risk.Recommended.String(),

		Owner:                risk.Owner,
		OwnerContact:         risk.OwnerContact,
		Approver:             risk.Approver,
		TargetCompletionDate: risk.TargetCompletionDate,

		Status:       risk.Status.Normalize().String(),
		IdentifiedAt: risk.IdentifiedAt,
		AddedAt:      risk.AddedAt,
		ClosedAt:     risk.ClosedAt,
		UpdatedAt:    risk.UpdatedAt,

		FollowUpStatus: risk.FollowUpStatus.Normalize().String(),
		NextFollowUpAt: risk.NextFollowUpAt,
		ActionOwner:    risk.ActionOwner,

		SourceAssessmentID: risk.SourceAssessmentID.String(),
		CreatedBy:          risk.CreatedBy,
		FromQuestionnaire:  risk.FromQuestionnaire,
	}

	var err error
	if len(risk.Questions) > 0 {
		if doc.Questions, err = marshalField(risk.Questions); err != nil {
			return nil, err
		}
	}
	if len(risk.Answers) > 0 {
		if doc.Answers, err = marshalField(risk.Answers); err != nil {
			return nil, err
		}
	}
	if risk.Impact != nil {
		if doc.Impact, err = marshalField(risk.Impact); err != nil {
			return nil, err
		}
	}
	if risk.Probability != nil {
		if doc.Probability, err = marshalField(risk.Probability); err != nil {
			return nil, err
		}
	}
	if risk.Quantification != nil {
		if doc.Quantification, err = marshalField(risk.Quantification); err != nil {
			return nil, err
		}
	}
	if risk.Controls != nil {
		if doc.Controls, err = marshalField(risk.Controls); err != nil {
			return nil, err
		}
	}
	if risk.Outcome != nil {
		if doc.Outcome, err = marshalField(risk.Outcome); err != nil {
			return nil, err
		}
	}
	if len(risk.FollowUps) > 0 {
		if doc.FollowUps, err = marshalField(risk.FollowUps); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func (doc *riskDocument) toModel() (*model.Risk, error) {
	risk := &model.Risk{
		ID:              types.RiskID(doc.ID),
		Number:          doc.Number,
		Title:           doc.Title,
		Description:     doc.Description,
		ThreatName:      doc.ThreatName,
		Vulnerabilities: doc.Vulnerabilities,

		Asset: model.Asset{
			ID:            doc.AssetID,
			Name:          doc.AssetName,
			Type:          doc.AssetType,
			Owner:         doc.AssetOwner,
			BusinessValue: doc.AssetBusinessValue,
			Criticality:   doc.AssetCriticality,
		},

		Recommended: types.Decision(doc.Recommended),

		Owner:                doc.Owner,
		OwnerContact:         doc.OwnerContact,
		Approver:             doc.Approver,
		TargetCompletionDate: doc.TargetCompletionDate,

		Status:       types.RiskStatus(doc.Status).Normalize(),
		IdentifiedAt: doc.IdentifiedAt,
		AddedAt:      doc.AddedAt,
		ClosedAt:     doc.ClosedAt,
		UpdatedAt:    doc.UpdatedAt,

		FollowUpStatus: types.FollowUpStatus(doc.FollowUpStatus).Normalize(),
		NextFollowUpAt: doc.NextFollowUpAt,
		ActionOwner:    doc.ActionOwner,

		SourceAssessmentID: types.AssessmentID(doc.SourceAssessmentID),
		CreatedBy:          doc.CreatedBy,
		FromQuestionnaire:  doc.FromQuestionnaire,
	}

	if err := unmarshalField(doc.Questions, &risk.Questions); err != nil {
		return nil, err
	}
	if err := unmarshalField(doc.Answers, &risk.Answers); err != nil {
		return nil, err
	}
	if len(doc.Impact) > 0 {
		risk.Impact = &model.ImpactAssessment{}
		if err := unmarshalField(doc.Impact, risk.Impact); err != nil {
			return nil, err
		}
	}
	if len(doc.Probability) > 0 {
		risk.Probability = &model.ProbabilityAssessment{}
		if err := unmarshalField(doc.Probability, risk.Probability); err != nil {
			return nil, err
		}
	}
	if len(doc.Quantification) > 0 {
		risk.Quantification = &model.Quantification{}
		if err := unmarshalField(doc.Quantification, risk.Quantification); err != nil {
			return nil, err
		}
	}
	if len(doc.Controls) > 0 {
		risk.Controls = &model.ControlEvaluation{}
		if err := unmarshalField(doc.Controls, risk.Controls); err != nil {
			return nil, err
		}
	}
	if len(doc.Outcome) > 0 {
		risk.Outcome = &model.TreatmentOutcome{}
		if err := unmarshalField(doc.Outcome, risk.Outcome); err != nil {
			return nil, err
		}
	}
	if err := unmarshalField(doc.FollowUps, &risk.FollowUps); err != nil {
		return nil, err
	}

	return risk, nil
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	created := risk.Clone()
	if created.ID == "" {
		created.ID = types.NewRiskID()
	}

	number, err := r.nextNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := r.clock()
	created.Number = number
	created.Status = created.Status.Normalize()
	created.FollowUpStatus = created.FollowUpStatus.Normalize()
	created.AddedAt = now
	created.UpdatedAt = now
	if created.IdentifiedAt.IsZero() {
		created.IdentifiedAt = now
	}

	doc, err := r.toDocument(created)
	if err != nil {
		return nil, err
	}

	docRef := r.client.Collection(r.risksCollection()).Doc(created.ID.String())
	if _, err := docRef.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.New("risk already exists",
				goerr.T(types.TagConflict), goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create risk", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *riskRepository) Get(ctx context.Context, id types.RiskID) (*model.Risk, error) {
	docRef := r.client.Collection(r.risksCollection()).Doc(id.String())
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	var riskDoc riskDocument
	if err := doc.DataTo(&riskDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal risk", goerr.V("id", id))
	}

	return riskDoc.toModel()
}

func (r *riskRepository) list(ctx context.Context, query firestore.Query) ([]*model.Risk, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var risks []*model.Risk
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate risks")
		}

		var riskDoc riskDocument
		if err := doc.DataTo(&riskDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal risk")
		}

		risk, err := riskDoc.toModel()
		if err != nil {
			return nil, err
		}
		risks = append(risks, risk)
	}

	return risks, nil
}

func (r *riskRepository) List(ctx context.Context) ([]*model.Risk, error) {
	return r.list(ctx, r.client.Collection(r.risksCollection()).OrderBy("number", firestore.Asc))
}

func (r *riskRepository) ListByStatus(ctx context.Context, statuses ...types.RiskStatus) ([]*model.Risk, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, s.String())
	}

	query := r.client.Collection(r.risksCollection()).
		Where("status", "in", values).
		OrderBy("number", firestore.Asc)
	return r.list(ctx, query)
}

func (r *riskRepository) ListFollowUpsDue(ctx context.Context, before time.Time) ([]*model.Risk, error) {
	query := r.client.Collection(r.risksCollection()).
		Where("followup_status", "==", types.FollowUpScheduled.String()).
		Where("next_followup_at", "<=", before).
		OrderBy("next_followup_at", firestore.Asc)

	risks, err := r.list(ctx, query)
	if err != nil {
		return nil, err
	}

	// Terminal statuses are excluded here rather than in the query to keep
	// the composite index requirement to a single field pair.
	due := make([]*model.Risk, 0, len(risks))
	for _, risk := range risks {
		if risk.Status.IsTerminal() {
			continue
		}
		due = append(due, risk)
	}
	return due, nil
}

func (r *riskRepository) Update(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	docRef := r.client.Collection(r.risksCollection()).Doc(risk.ID.String())

	existing, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", risk.ID))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", risk.ID))
	}

	var existingDoc riskDocument
	if err := existing.DataTo(&existingDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal risk", goerr.V("id", risk.ID))
	}

	updated := risk.Clone()
	// Identity and creation metadata are immutable.
	updated.Number = existingDoc.Number
	updated.AddedAt = existingDoc.AddedAt
	updated.UpdatedAt = r.clock()

	doc, err := r.toDocument(updated)
	if err != nil {
		return nil, err
	}

	if _, err := docRef.Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to update risk", goerr.V("id", risk.ID))
	}

	return updated, nil
}

func (r *riskRepository) Delete(ctx context.Context, id types.RiskID) error {
	docRef := r.client.Collection(r.risksCollection()).Doc(id.String())

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
	}

	return nil
}
