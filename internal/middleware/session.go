// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/gameforum/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// SessionResolver はセッショントークンからユーザーを解決するインターフェース。
// 無効なトークンにはnil, nilを返す。
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.ResolvedSession, error)
}

// SessionCookie はセッションCookieの属性。
type SessionCookie struct {
	Domain string
	Secure bool
}

// Set はセッションCookieを指定秒数の有効期間で設定する。
func (c SessionCookie) Set(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear はセッションCookieを削除する。
func (c SessionCookie) Clear(w http.ResponseWriter) {
	c.Set(w, "", -1)
}

// NewSessionLoader はCookieのセッショントークンからユーザーを解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// 全ルートに適用され、未認証でもリクエストを止めない。
// サーバー側で有効期限が延長された場合はCookieを同じ期限で再発行する。
func NewSessionLoader(resolver SessionResolver, cookie SessionCookie) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			resolved, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				// ストア障害時は未認証として扱う
				slog.Error("failed to resolve session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if resolved == nil || resolved.User == nil {
				next.ServeHTTP(w, r)
				return
			}

			if resolved.Extended {
				if maxAge := int(time.Until(resolved.ExpiresAt).Seconds()); maxAge > 0 {
					cookie.Set(w, token, maxAge)
				}
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), resolved.User)))
		})
	}
}

// SessionToken はリクエストのCookieからセッショントークンを取得する。
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
