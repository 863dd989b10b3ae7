package fan

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

func testProfileRepo(t *testing.T) (FanProfileRepo, dbctx.Context) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.FanProfile{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewFanProfileRepo(db, log), dbctx.Context{Ctx: context.Background()}
}

func TestIncrementCounterCreatesMissingProfile(t *testing.T) {
	repo, dbc := testProfileRepo(t)
	fanID := uuid.New()
	creatorID := uuid.New()

	if err := repo.IncrementCounter(dbc, fanID, creatorID, "free_content_requests"); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}

	p, err := repo.GetByPair(dbc, fanID, creatorID)
	if err != nil {
		t.Fatalf("GetByPair: %v", err)
	}
	if p == nil {
		t.Fatal("expected a profile row seeded by the first increment")
	}
	if p.FreeContentRequests != 1 {
		t.Fatalf("FreeContentRequests = %d, want 1", p.FreeContentRequests)
	}
	if p.MessagesWithoutPurchase != 0 {
		t.Fatalf("MessagesWithoutPurchase = %d, want 0", p.MessagesWithoutPurchase)
	}
	if p.ID == uuid.Nil {
		t.Fatal("seeded profile has no id")
	}
}

func TestIncrementCounterBumpsExistingProfile(t *testing.T) {
	repo, dbc := testProfileRepo(t)
	fanID := uuid.New()
	creatorID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := repo.IncrementCounter(dbc, fanID, creatorID, "messages_without_purchase"); err != nil {
			t.Fatalf("IncrementCounter #%d: %v", i+1, err)
		}
	}

	p, err := repo.GetByPair(dbc, fanID, creatorID)
	if err != nil {
		t.Fatalf("GetByPair: %v", err)
	}
	if p == nil {
		t.Fatal("expected profile row")
	}
	if p.MessagesWithoutPurchase != 3 {
		t.Fatalf("MessagesWithoutPurchase = %d, want 3", p.MessagesWithoutPurchase)
	}
}

func TestIncrementCounterRejectsUnknownColumn(t *testing.T) {
	repo, dbc := testProfileRepo(t)
	if err := repo.IncrementCounter(dbc, uuid.New(), uuid.New(), "total_spent"); err == nil {
		t.Fatal("expected an error for a column outside the counter allowlist")
	}
}
