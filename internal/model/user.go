// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleMember は一般ユーザーのロール。登録時のデフォルト。
	RoleMember Role = "member"
	// RoleAdmin は管理者ロール。他ユーザーの投稿も編集・削除できる。
	RoleAdmin Role = "admin"
)

// ParseRole は文字列をRoleに変換する。未知の値の場合はfalseを返す。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember:
		return RoleMember, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// User はフォーラムの登録ユーザーを表す。
// PasswordHashはビューやログに出してはならない。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin はユーザーが管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Identity はセッションに保存する最小限のユーザー情報（identity projection）。
// リクエストごとにIDでUserを再取得する。
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Identity はUserからIdentityを射影する。パスワードハッシュは含まない。
func (u *User) Identity() *Identity {
	if u == nil {
		return nil
	}
	return &Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Session はユーザーのログインセッションを表す。
// IDはクライアントがCookieで保持する唯一の認証情報。
// DataにはシリアライズされたIdentityを格納する。
type Session struct {
	ID        string
	UserID    string
	Data      []byte
	ExpiresAt time.Time
	CreatedAt time.Time

	// Extended は今回の解決で有効期限を延長したかどうか。永続化しない。
	Extended bool
}

// ResolvedSession はリクエストのセッショントークンから解決したユーザーと有効期限。
type ResolvedSession struct {
	User      *User
	ExpiresAt time.Time
	Extended  bool // Cookieの再発行が必要
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
