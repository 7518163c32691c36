package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gameforum/internal/middleware"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/view"
)

// Renderer はページテンプレートの描画インターフェース。
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// pages はハンドラー共通のページ描画とエラーページ応答を行う。
type pages struct {
	renderer Renderer
}

func newPages(renderer Renderer) *pages {
	return &pages{renderer: renderer}
}

// base はリクエストから共通の表示内容を組み立てる。フラッシュメッセージはここで消費される。
func (p *pages) base(w http.ResponseWriter, r *http.Request, title string) view.Base {
	return view.Base{
		Title: title,
		User:  middleware.UserFromContext(r.Context()),
		Flash: popFlash(w, r),
	}
}

// render はページを描画してstatusで応答する。描画に失敗した場合は500を返す。
func (p *pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WritePlainError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// ErrorPage はAppErrorをエラーページとして描画する。middleware.ErrorPageFuncとして使用する。
func (p *pages) ErrorPage(w http.ResponseWriter, r *http.Request, status int, appErr *model.AppError) {
	data := view.ErrorPage{
		Base: view.Base{
			Title: http.StatusText(status),
			User:  middleware.UserFromContext(r.Context()),
		},
		Status: status,
		Error:  appErr,
	}

	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, view.PageError, data); err != nil {
		slog.Error("failed to render error page", slog.String("error", err.Error()))
		middleware.WritePlainError(w, r, status, appErr)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound は存在しないURLへのリクエストに404ページを返す。
func (p *pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.ErrorPage(w, r, http.StatusNotFound, model.NewPageNotFoundError())
}

// serviceError はサービス層のエラーを対応するステータスのエラーページに変換する。
// AppError以外は永続化層の障害として詳細をログに記録し、汎用の500ページを返す。
func (p *pages) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		p.ErrorPage(w, r, statusForAppError(appErr), appErr)
		return
	}

	slog.Error("internal error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.ErrorPage(w, r, http.StatusInternalServerError, model.NewInternalError())
}

func statusForAppError(appErr *model.AppError) int {
	switch appErr.Code {
	case model.ErrCodeNotFound, model.ErrCodeUserNotFound, model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
