// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/gameforum/internal/model"
)

var (
	// ErrNotFound は更新対象のレコードが存在しない場合のエラー。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail はメールアドレスの一意制約に違反した場合のエラー。
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository はユーザーデータ（Credential Store）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスの完全一致でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを登録日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// UpdateRole はユーザーのロールを更新する。存在しない場合はErrNotFoundを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// PostRepository は投稿データ（Resource Store）の永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は投稿のタイトルと本文を更新し、更新後の投稿を返す。
	// 存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, id, title, content string) (*model.Post, error)

	// Delete は指定IDの投稿を削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, id string) error

	// List は投稿を作成日時の降順で投稿者情報付きで返す。
	List(ctx context.Context, filter model.PostFilter) ([]model.PostWithAuthor, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Touch はセッションの有効期限を延長する。
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ExpiredSessionPurger は期限切れセッションの一括削除を提供する。
// TTLで自動失効するバックエンド（Redis）は実装しない。
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
