// Package auth はメールアドレスとパスワードによる認証とセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/gameforum/internal/metrics"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/password"
	"github.com/hitoshi/gameforum/internal/repository"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	sessions *SessionStore
	hasher   PasswordHasher
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	users repository.UserRepository,
	sessions *SessionStore,
	hasher PasswordHasher,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		metrics:  collector,
		now:      time.Now,
	}
}

// Sessions はサービスが使用するセッションストアを返す。
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// NormalizeEmail は比較と保存に使うメールアドレスの正規形を返す。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は新しいユーザーを一般ロールで登録する。
// 入力不備はVALIDATION_FAILED、メールアドレス重複はDUPLICATE_EMAILのAppErrorを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	switch {
	case name == "":
		return nil, model.NewValidationError("名前を入力してください")
	case email == "":
		return nil, model.NewValidationError("メールアドレスを入力してください")
	case !looksLikeEmail(email):
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	case in.Password == "":
		return nil, model.NewValidationError("パスワードを入力してください")
	case len(in.Password) > password.MaxLength:
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以内で入力してください", password.MaxLength))
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		Role:         model.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordRegistration()
	slog.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Authenticate はメールアドレスとパスワードを検証し、ユーザー識別情報を返す。
// ユーザー不在はErrUserNotFound、パスワード不一致はErrBadPasswordを返す。
// ストアの障害はラップしたエラーとして返す。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		s.metrics.RecordLoginAttempt(metrics.LoginError)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordLoginAttempt(metrics.LoginUserNotFound)
		slog.Info("login failed", slog.String("reason", "user_not_found"))
		return nil, ErrUserNotFound
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordLoginAttempt(metrics.LoginBadPassword)
		slog.Info("login failed",
			slog.String("reason", "bad_password"),
			slog.String("user_id", user.ID),
		)
		return nil, ErrBadPassword
	}

	s.metrics.RecordLoginAttempt(metrics.LoginSuccess)
	return user.Identity(), nil
}

// Login は資格情報を検証し、新しいセッションを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSessionCreated()
	slog.Info("user logged in",
		slog.String("user_id", identity.ID),
		slog.String("session", tokenPrefix(session.ID)),
	)
	return session, nil
}

// Logout はセッションを破棄する。空または破棄済みのトークンでもエラーにしない。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}

	s.metrics.RecordSessionDestroyed()
	slog.Info("user logged out", slog.String("session", tokenPrefix(token)))
	return nil
}

// ResolveSession はセッショントークンから現在のユーザーと有効期限を取得する。
// セッションが無効、またはユーザーが存在しない場合はnil, nilを返す。
func (s *Service) ResolveSession(ctx context.Context, token string) (*model.ResolvedSession, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	identity, err := decodeIdentity(session.Data)
	if err != nil || identity.ID != session.UserID {
		slog.Warn("discarding session with invalid payload",
			slog.String("session", tokenPrefix(token)),
		)
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		slog.Warn("session refers to missing user",
			slog.String("user_id", identity.ID),
			slog.String("session", tokenPrefix(token)),
		)
		return nil, nil
	}

	return &model.ResolvedSession{
		User:      user,
		ExpiresAt: session.ExpiresAt,
		Extended:  session.Extended,
	}, nil
}

// InvalidateUserSessions は指定ユーザーの全セッションを破棄する。
// ロール変更後に古い識別情報が使われないようにするために呼ぶ。
func (s *Service) InvalidateUserSessions(ctx context.Context, userID string) error {
	return s.sessions.DestroyAllForUser(ctx, userID)
}

func looksLikeEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1
}
