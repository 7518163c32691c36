// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gameforum/internal/auth"
	"github.com/hitoshi/gameforum/internal/middleware"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/view"
)

// 認証まわりのパス
const (
	LoginPath    = "/auth/login-page"
	RegisterPath = "/auth/register-page"
)

// msgRegisterFailed は登録失敗時にユーザーへ表示するメッセージ。原因はログにのみ記録する。
const msgRegisterFailed = "登録に失敗しました"

// AuthService は認証ハンドラーが必要とするサービスインターフェース。
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain      string
	CookieSecure      bool
	SessionMaxAge     int // セッションCookieの有効期間（秒）
	UnifiedLoginError bool
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthService
	config  AuthHandlerConfig
	pages   *pages
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthService, config AuthHandlerConfig, renderer Renderer) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		pages:   newPages(renderer),
	}
}

func (h *AuthHandler) cookie() middleware.SessionCookie {
	return middleware.SessionCookie{Domain: h.config.CookieDomain, Secure: h.config.CookieSecure}
}

// LoginPage はログインフォームを表示する。
// GET /auth/login-page
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, view.PageLogin, view.AuthPage{
		Base: h.pages.base(w, r, "ログイン"),
	})
}

// RegisterPage は登録フォームを表示する。
// GET /auth/register-page
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, view.PageRegister, view.AuthPage{
		Base: h.pages.base(w, r, "新規登録"),
	})
}

// Register はユーザーを登録し、ログインページへリダイレクトする。
// 失敗時は原因を問わず同じメッセージで登録ページへ戻す。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, msgRegisterFailed, h.config.CookieSecure)
		http.Redirect(w, r, RegisterPath, http.StatusFound)
		return
	}

	_, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			slog.Info("registration rejected", slog.String("code", appErr.Code))
		} else {
			slog.Error("registration failed", slog.String("error", err.Error()))
		}
		setFlash(w, msgRegisterFailed, h.config.CookieSecure)
		http.Redirect(w, r, RegisterPath, http.StatusFound)
		return
	}

	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// Login は資格情報を検証し、セッションCookieを設定してトップページへリダイレクトする。
// 認証失敗時はフラッシュメッセージを設定してログインページへ戻す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.ErrorPage(w, r, http.StatusBadRequest, model.NewValidationError("フォームを読み取れません"))
		return
	}

	session, err := h.service.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		var failure *auth.AuthFailure
		if !errors.As(err, &failure) {
			h.pages.serviceError(w, r, err)
			return
		}
		setFlash(w, auth.FailureMessage(err, h.config.UnifiedLoginError), h.config.CookieSecure)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	h.cookie().Set(w, session.ID, h.config.SessionMaxAge)

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout はセッションを破棄し、Cookieを削除してログインページへリダイレクトする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
			// 失敗してもCookieはクリアする
		}
	}

	h.cookie().Clear(w)

	http.Redirect(w, r, LoginPath, http.StatusFound)
}
