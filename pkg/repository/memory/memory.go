package memory

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = goerr.New("record not found", goerr.T(types.TagNotFound))

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is the in-memory repository backend for development and tests.
type Memory struct {
	risk          *riskRepository
	questionnaire *questionnaireRepository
	cache         *cacheRepository
}

var _ interfaces.Repository = &Memory{}

// Option configures the Memory repository
type Option func(*Memory)

// WithClock injects the time source used for record timestamps, enabling
// deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Memory) {
		m.risk.clock = clock
		m.questionnaire.clock = clock
		m.cache.clock = clock
	}
}

// New creates an in-memory repository
func New(opts ...Option) *Memory {
	now := func() time.Time { return time.Now().UTC() }

	m := &Memory{
		risk:          newRiskRepository(now),
		questionnaire: newQuestionnaireRepository(now),
		cache:         newCacheRepository(now),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) Risk() interfaces.RiskRepository {
	return m.risk
}

func (m *Memory) Questionnaire() interfaces.QuestionnaireRepository {
	return m.questionnaire
}

func (m *Memory) Cache() interfaces.CacheRepository {
	return m.cache
}

// Close is a no-op for the in-memory backend
func (m *Memory) Close() error {
	return nil
}
