package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

type riskRepository struct {
	mu         sync.RWMutex
	risks      map[types.RiskID]*model.Risk
	nextNumber int64
	clock      func() time.Time
}

func newRiskRepository(clock func() time.Time) *riskRepository {
	return &riskRepository{
		risks:      make(map[types.RiskID]*model.Risk),
		nextNumber: 1,
		clock:      clock,
	}
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := risk.Clone()
	if created.ID == "" {
		created.ID = types.NewRiskID()
	}
	if _, exists := r.risks[created.ID]; exists {
		return nil, goerr.New("risk already exists",
			goerr.T(types.TagConflict), goerr.V("id", created.ID))
	}

	now := r.clock()
	created.Number = r.nextNumber
	created.Status = created.Status.Normalize()
	created.FollowUpStatus = created.FollowUpStatus.Normalize()
	created.AddedAt = now
	created.UpdatedAt = now
	if created.IdentifiedAt.IsZero() {
		created.IdentifiedAt = now
	}
	r.nextNumber++

	r.risks[created.ID] = created
	return created.Clone(), nil
}

func (r *riskRepository) Get(ctx context.Context, id types.RiskID) (*model.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	risk, exists := r.risks[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}

	return risk.Clone(), nil
}

func (r *riskRepository) List(ctx context.Context) ([]*model.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	risks := make([]*model.Risk, 0, len(r.risks))
	for _, risk := range r.risks {
		risks = append(risks, risk.Clone())
	}

	sort.Slice(risks, func(i, j int) bool {
		return risks[i].Number < risks[j].Number
	})
	return risks, nil
}

func (r *riskRepository) ListByStatus(ctx context.Context, statuses ...types.RiskStatus) ([]*model.Risk, error) {
	wanted := make(map[types.RiskStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var risks []*model.Risk
	for _, risk := range r.risks {
		if wanted[risk.Status.Normalize()] {
			risks = append(risks, risk.Clone())
		}
	}

	sort.Slice(risks, func(i, j int) bool {
		return risks[i].Number < risks[j].Number
	})
	return risks, nil
}

func (r *riskRepository) ListFollowUpsDue(ctx context.Context, before time.Time) ([]*model.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var risks []*model.Risk
	for _, risk := range r.risks {
		if risk.Status.Normalize().IsTerminal() {
			continue
		}
		if risk.FollowUpStatus != types.FollowUpScheduled {
			continue
		}
		if risk.NextFollowUpAt.IsZero() || risk.NextFollowUpAt.After(before) {
			continue
		}
		risks = append(risks, risk.Clone())
	}

	sort.Slice(risks, func(i, j int) bool {
		return risks[i].NextFollowUpAt.Before(risks[j].NextFollowUpAt)
	})
	return risks, nil
}

func (r *riskRepository) Update(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.risks[risk.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", risk.ID))
	}

	updated := risk.Clone()
	// Identity and creation metadata are immutable.
	updated.Number = existing.Number
	updated.AddedAt = existing.AddedAt
	updated.UpdatedAt = r.clock()

	r.risks[updated.ID] = updated
	return updated.Clone(), nil
}

func (r *riskRepository) Delete(ctx context.Context, id types.RiskID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.risks[id]; !exists {
		return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}

	// nextNumber is not decremented: risk numbers are never reused.
	delete(r.risks, id)
	return nil
}
