package handler

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/gameforum/internal/middleware"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/view"
)

func testRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error: %v", err)
	}
	return r
}

// withUser はリクエストコンテキストに認証済みユーザーを注入する。
func withUser(req *http.Request, user *model.User) *http.Request {
	return req.WithContext(middleware.ContextWithUser(req.Context(), user))
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashFrom はレスポンスに設定されたフラッシュメッセージを復号して返す。
func flashFrom(t *testing.T, resp *http.Response) string {
	t.Helper()
	c := findCookie(resp, flashCookieName)
	if c == nil {
		return ""
	}
	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		t.Fatalf("invalid flash cookie %q: %v", c.Value, err)
	}
	return string(msg)
}

func flashCookie(message string) *http.Cookie {
	return &http.Cookie{
		Name:  flashCookieName,
		Value: base64.RawURLEncoding.EncodeToString([]byte(message)),
	}
}

var (
	memberA = &model.User{ID: "11111111-1111-1111-1111-111111111111", Name: "Alice", Email: "alice@example.com", Role: model.RoleMember}
	memberB = &model.User{ID: "22222222-2222-2222-2222-222222222222", Name: "Bob", Email: "bob@example.com", Role: model.RoleMember}
	admin   = &model.User{ID: "33333333-3333-3333-3333-333333333333", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
)
