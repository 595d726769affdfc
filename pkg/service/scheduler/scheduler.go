// Package scheduler runs the periodic follow-up sweep: it finds risks
// whose next follow-up date has arrived, issues a follow-up questionnaire
// for each, and pushes the date forward so a risk is not re-issued every
// tick.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
	"github.com/secmon-lab/aegisrisk/pkg/utils/async"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
)

// FollowUpWorker manages the background follow-up sweep.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type FollowUpWorker struct {
	uc          *usecase.UseCases
	interval    time.Duration
	concurrency int
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewFollowUpWorker creates a worker sweeping due follow-ups every
// interval.
func NewFollowUpWorker(uc *usecase.UseCases, interval time.Duration) *FollowUpWorker {
	return &FollowUpWorker{
		uc:          uc,
		interval:    interval,
		concurrency: 4,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background sweep loop. Does not block server startup;
// the loop is detached from the caller's cancellation and stopped via
// Stop.
func (w *FollowUpWorker) Start(ctx context.Context) error {
	logging.Default().Info("follow-up worker starting",
		"interval", w.interval.String())

	async.Dispatch(ctx, func(ctx context.Context) error {
		w.run(ctx)
		return nil
	})

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *FollowUpWorker) Stop() {
	logging.Default().Info("follow-up worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("follow-up worker stopped")
}

func (w *FollowUpWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.Sweep(ctx); err != nil {
		logging.Default().Error("initial follow-up sweep failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				logging.Default().Error("follow-up sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("follow-up worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("follow-up worker context cancelled")
			return
		}
	}
}

// Sweep performs a single sweep over all due follow-ups. Risks are
// processed in parallel; one failing risk does not abort the others.
func (w *FollowUpWorker) Sweep(ctx context.Context) error {
	startTime := time.Now()

	due, err := w.uc.FollowUp.ListDue(ctx)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	logging.Default().Info("follow-up sweep started", "due", len(due))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.concurrency)

	for _, risk := range due {
		eg.Go(func() error {
			if err := w.followUp(ctx, risk); err != nil {
				logging.Default().Error("follow-up failed for risk",
					"risk_id", risk.ID, "error", err.Error())
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	logging.Default().Info("follow-up sweep completed",
		"due", len(due),
		"duration", time.Since(startTime).String())

	return nil
}

// followUp issues the follow-up questionnaire for one due risk and
// reschedules it.
func (w *FollowUpWorker) followUp(ctx context.Context, risk *model.Risk) error {
	recipient := risk.ActionOwner
	if recipient == "" {
		recipient = risk.Owner
	}

	pq, err := w.uc.Questionnaire.Issue(ctx, risk.ID,
		types.QuestionnaireKindFollowUp, recipient, 0)
	if err != nil {
		return err
	}

	// Push the date forward so the next tick skips this risk while
	// answers are pending.
	if _, err := w.uc.FollowUp.Schedule(ctx, risk.ID); err != nil {
		return err
	}

	logging.Default().Info("follow-up questionnaire issued",
		"risk_id", risk.ID,
		"recipient", recipient,
		"trend", risk.Trend(),
		"expires_at", pq.ExpiresAt)

	return nil
}
