package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/gameforum/internal/model"
)

// MemorySessionRepo はプロセス内メモリを使用したセッションリポジトリ。
// 再起動でセッションは失われるため、開発環境とテストでの利用を想定する。
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

// Create はセッションを作成する。
func (r *MemorySessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *session
	s.Data = append([]byte(nil), session.Data...)
	r.sessions[session.ID] = s
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *MemorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || s.Expired(r.now()) {
		return nil, nil
	}
	s.Data = append([]byte(nil), s.Data...)
	return &s, nil
}

// Touch はセッションの有効期限を延長する。
func (r *MemorySessionRepo) Touch(_ context.Context, id string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Expired(r.now()) {
		return nil
	}
	s.ExpiresAt = expiresAt
	r.sessions[id] = s
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MemorySessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
func (r *MemorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var deleted int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len は保持しているセッション数を返す。テスト用。
func (r *MemorySessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// compile-time interface check
var (
	_ SessionRepository = (*MemorySessionRepo)(nil)
	_ ExpiredSessionPurger = (*MemorySessionRepo)(nil)
)
