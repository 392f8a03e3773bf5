package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

type fakeLotsRepo struct {
	lots.Repository

	all       []models.Lot
	updates   []map[string]any
	snapshots []*models.MaturationDailySnapshot
}

func (f *fakeLotsRepo) WithTx(tx *gorm.DB) lots.Repository { return f }

func (f *fakeLotsRepo) ListAll(ctx context.Context) ([]models.Lot, error) {
	return f.all, nil
}

func (f *fakeLotsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeLotsRepo) UpsertSnapshot(ctx context.Context, snapshot *models.MaturationDailySnapshot) error {
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func TestMaturationJob_TransitionsAndSnapshots(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeLotsRepo{
		all: []models.Lot{
			{ID: uuid.New(), EntryDate: now.AddDate(0, 0, -6), MaturityState: enums.MaturityStateDeVez, Boxes: 10},
			{ID: uuid.New(), EntryDate: now.Add(-time.Hour), MaturityState: enums.MaturityStateVerde, Boxes: 4},
		},
	}
	job, err := NewMaturationJob(repo, discardLogger(), 24*time.Hour)
	if err != nil {
		t.Fatalf("NewMaturationJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(repo.updates) != 1 {
		t.Fatalf("expected one state transition, got %d", len(repo.updates))
	}
	if repo.updates[0]["maturity_state"] != enums.MaturityStateMadura {
		t.Fatalf("six day old lot must become MADURA, got %v", repo.updates[0])
	}
	if len(repo.snapshots) != 2 {
		t.Fatalf("every lot gets a daily snapshot, got %d", len(repo.snapshots))
	}
	if repo.snapshots[0].State != enums.MaturityStateMadura {
		t.Fatalf("snapshot must carry the recomputed state, got %s", repo.snapshots[0].State)
	}
	if repo.snapshots[1].State != enums.MaturityStateVerde {
		t.Fatalf("fresh lot stays VERDE, got %s", repo.snapshots[1].State)
	}
}
