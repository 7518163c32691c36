// Package user はプロフィール表示と管理者によるユーザー管理を提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/gameforum/internal/auth"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/repository"
)

// PostLister は投稿者別の投稿一覧取得インターフェース。
type PostLister interface {
	ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error)
}

// SessionInvalidator はユーザーの全セッション破棄インターフェース。
type SessionInvalidator interface {
	InvalidateUserSessions(ctx context.Context, userID string) error
}

// Profile はプロフィールページの表示内容。
type Profile struct {
	User  *model.User
	Posts []model.PostWithAuthor
}

// Service はユーザー管理のサービス層。
type Service struct {
	users    repository.UserRepository
	posts    PostLister
	sessions SessionInvalidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, posts PostLister, sessions SessionInvalidator) *Service {
	return &Service{
		users:    users,
		posts:    posts,
		sessions: sessions,
	}
}

// Profile は指定ユーザーのプロフィールと投稿一覧を返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	if !model.ValidID(userID) {
		return nil, model.NewUserNotFoundError()
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	posts, err := s.posts.ListByAuthor(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: u, Posts: posts}, nil
}

// ListUsers は全ユーザーを登録順に返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// SetRole は管理者が対象ユーザーのロールを変更する。
// 自分自身のロールは変更できない。変更後は対象ユーザーの全セッションを破棄する。
func (s *Service) SetRole(ctx context.Context, actor *model.User, targetID, role string) error {
	if !actor.IsAdmin() {
		return model.NewAdminRequiredError()
	}

	newRole, ok := model.ParseRole(role)
	if !ok {
		return model.NewValidationError("ロールが正しくありません")
	}
	if actor.ID == targetID {
		return model.NewValidationError("自分自身のロールは変更できません")
	}
	if !model.ValidID(targetID) {
		return model.NewUserNotFoundError()
	}

	if err := s.applyRole(ctx, targetID, newRole); err != nil {
		return err
	}

	slog.Info("user role changed",
		slog.String("user_id", targetID),
		slog.String("role", string(newRole)),
		slog.String("changed_by", actor.ID),
	)
	return nil
}

// GrantAdminByEmail はメールアドレスで指定したユーザーを管理者にする。
// 最初の管理者を作成するためのCLIから使用する。
func (s *Service) GrantAdminByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	if u.Role != model.RoleAdmin {
		if err := s.applyRole(ctx, u.ID, model.RoleAdmin); err != nil {
			return nil, err
		}
		u.Role = model.RoleAdmin
	}

	slog.Info("admin role granted", slog.String("user_id", u.ID))
	return u, nil
}

func (s *Service) applyRole(ctx context.Context, userID string, role model.Role) error {
	err := s.users.UpdateRole(ctx, userID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}

	if s.sessions != nil {
		if err := s.sessions.InvalidateUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}
	return nil
}
