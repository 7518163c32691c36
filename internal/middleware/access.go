package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/gameforum/internal/metrics"
	"github.com/hitoshi/gameforum/internal/model"
)

// AccessControl は認証とロールによるアクセス制御ミドルウェアを生成する。
type AccessControl struct {
	loginPath string
	errorPage ErrorPageFunc
	metrics   metrics.MetricsCollector
}

// NewAccessControl はAccessControlを生成する。
// loginPathは未認証時のリダイレクト先、errorPageは権限不足時のエラーページ描画に使用する。
func NewAccessControl(loginPath string, errorPage ErrorPageFunc, collector metrics.MetricsCollector) *AccessControl {
	if errorPage == nil {
		errorPage = WritePlainError
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &AccessControl{
		loginPath: loginPath,
		errorPage: errorPage,
		metrics:   collector,
	}
}

// RequireAuthenticated は認証済みユーザーのみ通過させるミドルウェアを返す。
// 未認証のリクエストはログインページへ302でリダイレクトし、後続のハンドラーを呼ばない。
func (a *AccessControl) RequireAuthenticated() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == nil {
				a.metrics.RecordAccessDenied(metrics.DeniedUnauthenticated)
				http.Redirect(w, r, a.loginPath, http.StatusFound)
				return
			}
			// 認証が必要なページはキャッシュさせない
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole は指定ロールのユーザーのみ通過させるミドルウェアを返す。
// 未認証はログインページへリダイレクト、ロール不一致は403エラーページを返す。
func (a *AccessControl) RequireRole(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authenticated := a.RequireAuthenticated()
		return authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user.Role != role {
				a.metrics.RecordAccessDenied(metrics.DeniedRole)
				slog.Warn("role required",
					slog.String("path", r.URL.Path),
					slog.String("user_id", user.ID),
					slog.String("required_role", string(role)),
				)
				a.errorPage(w, r, http.StatusForbidden, model.NewAdminRequiredError())
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
