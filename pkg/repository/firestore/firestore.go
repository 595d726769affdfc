package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = goerr.New("record not found", goerr.T(types.TagNotFound))

// Firestore is the durable repository backend.
type Firestore struct {
	client        *firestore.Client
	risk          *riskRepository
	questionnaire *questionnaireRepository
	cache         *cacheRepository
}

var _ interfaces.Repository = &Firestore{}

// Option configures the Firestore repository
type Option func(*Firestore)

// WithCollectionPrefix namespaces all collections, used to isolate test
// runs against a shared project.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.risk.collectionPrefix = prefix
		f.questionnaire.collectionPrefix = prefix
		f.cache.collectionPrefix = prefix
	}
}

// WithClock injects the time source used for record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(f *Firestore) {
		f.risk.clock = clock
		f.questionnaire.clock = clock
		f.cache.clock = clock
	}
}

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	now := func() time.Time { return time.Now().UTC() }

	f := &Firestore{
		client:        client,
		risk:          newRiskRepository(client, now),
		questionnaire: newQuestionnaireRepository(client, now),
		cache:         newCacheRepository(client, now),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Risk() interfaces.RiskRepository {
	return f.risk
}

func (f *Firestore) Questionnaire() interfaces.QuestionnaireRepository {
	return f.questionnaire
}

func (f *Firestore) Cache() interfaces.CacheRepository {
	return f.cache
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
