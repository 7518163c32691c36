package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gameforum/internal/middleware"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/user"
	"github.com/hitoshi/gameforum/internal/view"
)

// ProfileService はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*user.Profile, error)
}

// AdminService は管理ハンドラーが必要とするサービスインターフェース。
type AdminService interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	SetRole(ctx context.Context, actor *model.User, targetID, role string) error
}

// UserHandler はプロフィールとユーザー管理のHTTPハンドラー。
type UserHandler struct {
	profiles ProfileService
	admin    AdminService
	pages    *pages
	secure   bool
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(profiles ProfileService, admin AdminService, renderer Renderer, cookieSecure bool) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		admin:    admin,
		pages:    newPages(renderer),
		secure:   cookieSecure,
	}
}

// MyProfile はログイン中のユーザーのメールアドレスと投稿一覧を表示する。
// GET /profile
func (h *UserHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	current := middleware.UserFromContext(r.Context())
	h.renderProfile(w, r, current.ID, true)
}

// PublicProfile は指定ユーザーの公開プロフィールと投稿一覧を表示する。
// GET /profile/{id}
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	h.renderProfile(w, r, chi.URLParam(r, "id"), false)
}

func (h *UserHandler) renderProfile(w http.ResponseWriter, r *http.Request, userID string, own bool) {
	profile, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	title := profile.User.Name
	if own {
		title = "マイページ"
	}
	h.pages.render(w, r, http.StatusOK, view.PageProfile, view.ProfilePage{
		Base:  h.pages.base(w, r, title),
		Owner: profile.User,
		Posts: profile.Posts,
		Own:   own,
	})
}

// Dashboard は全ユーザーとロールの一覧を表示する。
// GET /admin
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageAdmin, view.AdminPage{
		Base:  h.pages.base(w, r, "ユーザー管理"),
		Users: users,
		Roles: []model.Role{model.RoleMember, model.RoleAdmin},
	})
}

// UpdateRole は対象ユーザーのロールを変更して管理ページへリダイレクトする。
// 入力不備はフラッシュメッセージで通知する。
// POST /admin/users/{id}/role
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.ErrorPage(w, r, http.StatusBadRequest, model.NewValidationError("フォームを読み取れません"))
		return
	}

	actor := middleware.UserFromContext(r.Context())
	err := h.admin.SetRole(r.Context(), actor, chi.URLParam(r, "id"), r.PostFormValue("role"))
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) && appErr.Code == model.ErrCodeValidationFailed {
			setFlash(w, appErr.Message, h.secure)
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}
		h.pages.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusFound)
}
