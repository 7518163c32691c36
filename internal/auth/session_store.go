package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/repository"
)

// tokenBytes はセッショントークンの乱数バイト数。hexで64文字になる。
const tokenBytes = 32

// DefaultSessionMaxAge はセッションの既定の有効期間（30日）。
const DefaultSessionMaxAge = 30 * 24 * time.Hour

// SessionStoreConfig はセッションストアの設定。
type SessionStoreConfig struct {
	MaxAge        time.Duration // セッション有効期間
	Sliding       bool          // アクセスごとに有効期限を延長するか
	TouchInterval time.Duration // 延長を行う最小の経過時間
}

// SessionStore はセッションの発行、解決、破棄を行う。
// 永続化はSessionRepositoryに委譲するため、PostgreSQL/Redis/メモリを差し替えられる。
type SessionStore struct {
	repo     repository.SessionRepository
	config   SessionStoreConfig
	now      func() time.Time
	newToken func() (string, error)
}

// NewSessionStore はSessionStoreを生成する。
func NewSessionStore(repo repository.SessionRepository, config SessionStoreConfig) *SessionStore {
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultSessionMaxAge
	}
	return &SessionStore{
		repo:     repo,
		config:   config,
		now:      time.Now,
		newToken: generateToken,
	}
}

// MaxAge はセッション有効期間を返す。Cookieの有効期限に使用する。
func (s *SessionStore) MaxAge() time.Duration {
	return s.config.MaxAge
}

// Create はユーザー識別情報を保存したセッションを発行する。
// 永続化に失敗した場合はトークンを返さない。
func (s *SessionStore) Create(ctx context.Context, identity *model.Identity) (*model.Session, error) {
	data, err := encodeIdentity(identity)
	if err != nil {
		return nil, err
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        token,
		UserID:    identity.ID,
		Data:      data,
		ExpiresAt: now.Add(s.config.MaxAge),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Resolve はトークンに対応する有効なセッションを返す。
// トークンが空、形式不正、未知、期限切れの場合はnil, nilを返す。
// スライディング有効時、TouchInterval以上経過していれば有効期限を延長する。
func (s *SessionStore) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if !validToken(token) {
		return nil, nil
	}

	session, err := s.repo.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	now := s.now()
	if session.Expired(now) {
		return nil, nil
	}

	if s.config.Sliding {
		consumed := s.config.MaxAge - session.ExpiresAt.Sub(now)
		if consumed > s.config.TouchInterval {
			expiresAt := now.Add(s.config.MaxAge)
			if err := s.repo.Touch(ctx, token, expiresAt); err != nil {
				// 延長に失敗しても現在のセッションは有効
				slog.Warn("failed to extend session",
					slog.String("session", tokenPrefix(token)),
					slog.String("error", err.Error()),
				)
			} else {
				session.ExpiresAt = expiresAt
				session.Extended = true
			}
		}
	}

	return session, nil
}

// Destroy はセッションを破棄する。存在しないトークンの場合は何もしない。
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DestroyAllForUser は指定ユーザーの全セッションを破棄する。
func (s *SessionStore) DestroyAllForUser(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validToken はトークンが発行形式（64文字のhex）であるかを判定する。
func validToken(token string) bool {
	if len(token) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// tokenPrefix はログ出力用にトークンの先頭8文字を返す。
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
