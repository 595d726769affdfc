package usecase

import "github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"

// Repo exposes the backing repository for test fixtures
func (uc *UseCases) Repo() interfaces.Repository {
	return uc.repo
}

// NextFollowUpDays is exported for testing
var NextFollowUpDays = (*UseCases).nextFollowUpDays
