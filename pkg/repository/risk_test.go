package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/domain/model"
	"github.com/secmon-lab/aegisrisk/pkg/domain/types"
	"github.com/secmon-lab/aegisrisk/pkg/repository/firestore"
	"github.com/secmon-lab/aegisrisk/pkg/repository/memory"
)

func testAsset() model.Asset {
	return model.Asset{
		Name: "Customer Database",
		Type: "database",
	}
}

func runRiskRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns monotonic risk numbers", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created1, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "SQL injection on order API",
			Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk1: %v", err)
		}

		if created1.Number != 1 {
			t.Errorf("expected Number=1, got %d", created1.Number)
		}
		if created1.ID == "" {
			t.Error("expected non-empty ID")
		}
		if created1.Status != types.RiskStatusOpen {
			t.Errorf("expected status OPEN, got %s", created1.Status)
		}
		if created1.AddedAt.IsZero() {
			t.Error("expected non-zero AddedAt")
		}
		if created1.UpdatedAt.IsZero() {
			t.Error("expected non-zero UpdatedAt")
		}

		created2, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Stolen laptop with cached credentials",
			Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk2: %v", err)
		}

		if created2.Number != 2 {
			t.Errorf("expected Number=2, got %d", created2.Number)
		}
	})

	t.Run("Risk numbers are not reused after deletion", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created1, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Expired TLS certificate",
			Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		if err := repo.Risk().Delete(ctx, created1.ID); err != nil {
			t.Fatalf("failed to delete risk: %v", err)
		}

		created2, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Unpatched VPN appliance",
			Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		if created2.Number != created1.Number+1 {
			t.Errorf("expected Number=%d, got %d", created1.Number+1, created2.Number)
		}
	})

	t.Run("Get returns not-found for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Risk().Get(ctx, types.NewRiskID())
		if err == nil {
			t.Fatal("expected error for unknown risk ID")
		}
		if !goerr.HasTag(err, types.TagNotFound) {
			t.Errorf("expected not-found tag, got %v", err)
		}
	})

	t.Run("Update preserves number and creation time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Phishing against finance team",
			Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		modified := created.Clone()
		modified.Description = "Targeted credential phishing"
		modified.Number = 999
		modified.AddedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

		updated, err := repo.Risk().Update(ctx, modified)
		if err != nil {
			t.Fatalf("failed to update risk: %v", err)
		}

		if updated.Number != created.Number {
			t.Errorf("expected Number=%d, got %d", created.Number, updated.Number)
		}
		if !updated.AddedAt.Equal(created.AddedAt) {
			t.Errorf("expected AddedAt=%v, got %v", created.AddedAt, updated.AddedAt)
		}
		if updated.Description != "Targeted credential phishing" {
			t.Errorf("expected updated description, got %s", updated.Description)
		}
	})

	t.Run("ListByStatus filters on any of the given statuses", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		open, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Open risk", Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}
		closed, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Closed risk", Asset: testAsset(), Status: types.RiskStatusClosed,
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		risks, err := repo.Risk().ListByStatus(ctx, types.RiskStatusOpen)
		if err != nil {
			t.Fatalf("failed to list risks: %v", err)
		}
		if len(risks) != 1 || risks[0].ID != open.ID {
			t.Errorf("expected only the open risk, got %d risks", len(risks))
		}

		risks, err = repo.Risk().ListByStatus(ctx, types.RiskStatusOpen, types.RiskStatusClosed)
		if err != nil {
			t.Fatalf("failed to list risks: %v", err)
		}
		if len(risks) != 2 {
			t.Errorf("expected 2 risks, got %d", len(risks))
		}
		_ = closed
	})

	t.Run("ListFollowUpsDue returns only scheduled non-terminal risks", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		now := time.Now().UTC()

		due, err := repo.Risk().Create(ctx, &model.Risk{
			Title:          "Due risk",
			Asset:          testAsset(),
			FollowUpStatus: types.FollowUpScheduled,
			NextFollowUpAt: now.AddDate(0, 0, -1),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		_, err = repo.Risk().Create(ctx, &model.Risk{
			Title:          "Not yet due",
			Asset:          testAsset(),
			FollowUpStatus: types.FollowUpScheduled,
			NextFollowUpAt: now.AddDate(0, 0, 3),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		_, err = repo.Risk().Create(ctx, &model.Risk{
			Title:          "Terminal risk",
			Asset:          testAsset(),
			Status:         types.RiskStatusClosed,
			FollowUpStatus: types.FollowUpScheduled,
			NextFollowUpAt: now.AddDate(0, 0, -1),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		_, err = repo.Risk().Create(ctx, &model.Risk{
			Title: "Never scheduled",
			Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		risks, err := repo.Risk().ListFollowUpsDue(ctx, now)
		if err != nil {
			t.Fatalf("failed to list due follow-ups: %v", err)
		}

		if len(risks) != 1 {
			t.Fatalf("expected 1 due risk, got %d", len(risks))
		}
		if risks[0].ID != due.ID {
			t.Errorf("expected risk %s, got %s", due.ID, risks[0].ID)
		}
	})

	t.Run("Delete removes the risk", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Risk().Create(ctx, &model.Risk{
			Title: "Short-lived risk", Asset: testAsset(),
		})
		if err != nil {
			t.Fatalf("failed to create risk: %v", err)
		}

		if err := repo.Risk().Delete(ctx, created.ID); err != nil {
			t.Fatalf("failed to delete risk: %v", err)
		}

		if _, err := repo.Risk().Get(ctx, created.ID); err == nil {
			t.Error("expected error after deletion")
		}

		err = repo.Risk().Delete(ctx, created.ID)
		if err == nil {
			t.Fatal("expected error for double deletion")
		}
		if !goerr.HasTag(err, types.TagNotFound) {
			t.Errorf("expected not-found tag, got %v", err)
		}
	})
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func TestMemoryRiskRepository(t *testing.T) {
	runRiskRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreRiskRepository(t *testing.T) {
	runRiskRepositoryTest(t, newFirestoreRepository)
}
