package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/gameforum/internal/model"
)

func TestMemorySessionRepo_CreateAndFind(t *testing.T) {
	repo := NewMemorySessionRepo()
	ctx := context.Background()
	now := time.Now()

	s := &model.Session{ID: "tok", UserID: "u1", Data: []byte(`{"id":"u1"}`), ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 呼び出し側のスライスを書き換えても保存内容に影響しない
	s.Data[0] = 'X'

	got, err := repo.FindByID(ctx, "tok")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if string(got.Data) != `{"id":"u1"}` {
		t.Errorf("Data = %s", got.Data)
	}

	missing, _ := repo.FindByID(ctx, "nope")
	if missing != nil {
		t.Errorf("expected nil for unknown token, got %+v", missing)
	}
}

func TestMemorySessionRepo_ExpiredIsInvisible(t *testing.T) {
	repo := NewMemorySessionRepo()
	ctx := context.Background()
	now := time.Now()
	repo.now = func() time.Time { return now }

	_ = repo.Create(ctx, &model.Session{ID: "tok", UserID: "u1", ExpiresAt: now.Add(time.Minute)})

	repo.now = func() time.Time { return now.Add(time.Minute) }
	got, _ := repo.FindByID(ctx, "tok")
	if got != nil {
		t.Errorf("expected expired session to be nil, got %+v", got)
	}

	// 期限切れのセッションはTouchで復活しない
	_ = repo.Touch(ctx, "tok", now.Add(time.Hour))
	if got, _ := repo.FindByID(ctx, "tok"); got != nil {
		t.Errorf("Touch must not revive expired session")
	}

	deleted, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 || repo.Len() != 0 {
		t.Errorf("DeleteExpired = %d, Len = %d; want 1, 0", deleted, repo.Len())
	}
}

func TestMemorySessionRepo_Touch(t *testing.T) {
	repo := NewMemorySessionRepo()
	ctx := context.Background()
	now := time.Now()

	_ = repo.Create(ctx, &model.Session{ID: "tok", UserID: "u1", ExpiresAt: now.Add(time.Minute)})
	newExpiry := now.Add(48 * time.Hour)
	if err := repo.Touch(ctx, "tok", newExpiry); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	got, _ := repo.FindByID(ctx, "tok")
	if got == nil || !got.ExpiresAt.Equal(newExpiry) {
		t.Fatalf("ExpiresAt = %v, want %v", got, newExpiry)
	}
}

func TestMemorySessionRepo_Delete(t *testing.T) {
	repo := NewMemorySessionRepo()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	_ = repo.Create(ctx, &model.Session{ID: "a1", UserID: "a", ExpiresAt: exp})
	_ = repo.Create(ctx, &model.Session{ID: "a2", UserID: "a", ExpiresAt: exp})
	_ = repo.Create(ctx, &model.Session{ID: "b1", UserID: "b", ExpiresAt: exp})

	if err := repo.DeleteByID(ctx, "b1"); err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	if err := repo.DeleteByID(ctx, "b1"); err != nil {
		t.Fatalf("second DeleteByID should be a no-op: %v", err)
	}
	if err := repo.DeleteByUserID(ctx, "a"); err != nil {
		t.Fatalf("DeleteByUserID failed: %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("Len = %d, want 0", repo.Len())
	}
}
