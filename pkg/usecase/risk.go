package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
)

// RiskUseCase covers the basic lifecycle of risk records outside the
// assessment pipeline and workflow engine.
type RiskUseCase struct {
	*UseCases
}

// CreateRiskInput carries the caller-provided fields of a new risk.
type CreateRiskInput struct {
	Title           string
	Description     string
	ThreatName      string
	Vulnerabilities []string
	Asset           model.Asset
	Owner           string
	OwnerContact    string
	CreatedBy       string
}

func (uc *RiskUseCase) Create(ctx context.Context, input CreateRiskInput) (*model.Risk, error) {
	if input.Title == "" {
		return nil, goerr.New("risk title is required", goerr.T(types.TagValidation))
	}
	if err := input.Asset.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid asset", goerr.T(types.TagValidation))
	}

	now := uc.now()
	risk := &model.Risk{
		ID:              types.NewRiskID(),
		Title:           input.Title,
		Description:     input.Description,
		ThreatName:      input.ThreatName,
		Vulnerabilities: input.Vulnerabilities,
		Asset:           input.Asset,
		Owner:           input.Owner,
		OwnerContact:    input.OwnerContact,
		Status:          types.RiskStatusOpen,
		IdentifiedAt:    now,
		CreatedBy:       input.CreatedBy,
	}

	created, err := uc.repo.Risk().Create(ctx, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create risk")
	}
	return created, nil
}

func (uc *RiskUseCase) Get(ctx context.Context, id types.RiskID) (*model.Risk, error) {
	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}
	return risk, nil
}

func (uc *RiskUseCase) List(ctx context.Context, statuses ...types.RiskStatus) ([]*model.Risk, error) {
	var risks []*model.Risk
	var err error
	if len(statuses) == 0 {
		risks, err = uc.repo.Risk().List(ctx)
	} else {
		risks, err = uc.repo.Risk().ListByStatus(ctx, statuses...)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risks")
	}
	return risks, nil
}

func (uc *RiskUseCase) Delete(ctx context.Context, id types.RiskID) error {
	unlock := uc.locks.Lock(id)
	defer unlock()

	if err := uc.repo.Risk().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
	}
	return nil
}
