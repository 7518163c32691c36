package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gameforum/internal/middleware"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/view"
)

// PostService は投稿ハンドラーが必要とするサービスインターフェース。
type PostService interface {
	List(ctx context.Context) ([]model.PostWithAuthor, error)
	Create(ctx context.Context, author *model.Identity, title, content string) (*model.Post, error)
	GetForEdit(ctx context.Context, requester *model.Identity, postID string) (*model.Post, error)
	Update(ctx context.Context, requester *model.Identity, postID, title, content string) (*model.Post, error)
	Delete(ctx context.Context, requester *model.Identity, postID string) error
}

// PostHandler は投稿関連のHTTPハンドラー。
// すべてのルートはRequireAuthenticatedの内側に配置する。
type PostHandler struct {
	service PostService
	pages   *pages
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostService, renderer Renderer) *PostHandler {
	return &PostHandler{
		service: service,
		pages:   newPages(renderer),
	}
}

// Index は全投稿と投稿フォームを表示する。
// GET /
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageIndex, view.IndexPage{
		Base:  h.pages.base(w, r, ""),
		Posts: posts,
	})
}

// Create は投稿を作成してトップページへリダイレクトする。
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	requester := middleware.UserFromContext(r.Context()).Identity()
	if _, err := h.service.Create(r.Context(), requester, r.PostFormValue("title"), r.PostFormValue("content")); err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// EditPage は投稿の編集フォームを表示する。投稿者本人または管理者のみ。
// GET /posts/edit/{id}
func (h *PostHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserFromContext(r.Context()).Identity()

	post, err := h.service.GetForEdit(r.Context(), requester, chi.URLParam(r, "id"))
	if err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	h.pages.render(w, r, http.StatusOK, view.PageEdit, view.EditPage{
		Base: h.pages.base(w, r, "投稿を編集"),
		Post: post,
	})
}

// Update は投稿を更新してトップページへリダイレクトする。投稿者本人または管理者のみ。
// POST /posts/edit/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	requester := middleware.UserFromContext(r.Context()).Identity()
	_, err := h.service.Update(r.Context(), requester, chi.URLParam(r, "id"),
		r.PostFormValue("title"), r.PostFormValue("content"))
	if err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// Delete は投稿を削除してトップページへリダイレクトする。投稿者本人または管理者のみ。
// POST /posts/delete/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requester := middleware.UserFromContext(r.Context()).Identity()

	if err := h.service.Delete(r.Context(), requester, chi.URLParam(r, "id")); err != nil {
		h.pages.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *PostHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		h.pages.ErrorPage(w, r, http.StatusBadRequest, model.NewValidationError("フォームを読み取れません"))
		return false
	}
	return true
}
