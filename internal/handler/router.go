package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gameforum/internal/metrics"
	"github.com/hitoshi/gameforum/internal/middleware"
	"github.com/hitoshi/gameforum/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 描画
	Renderer Renderer

	// ミドルウェア依存
	SessionResolver middleware.SessionResolver
	Metrics         metrics.MetricsCollector
	Logger          *slog.Logger

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthService
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostService

	// ユーザー
	ProfileService ProfileService
	AdminService   AdminService
}

// NewRouter は全ページのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Metrics → SessionLoader → Logging
//
// SessionLoaderは全ルートに適用され、認証の要否はルートグループごとに
// RequireAuthenticated / RequireRole で判定する。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := newPages(deps.Renderer)
	access := middleware.NewAccessControl(LoginPath, p.ErrorPage, collector)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Renderer)
	postHandler := NewPostHandler(deps.PostService, deps.Renderer)
	userHandler := NewUserHandler(deps.ProfileService, deps.AdminService, deps.Renderer, deps.AuthConfig.CookieSecure)

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(p.ErrorPage))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSessionLoader(deps.SessionResolver, middleware.SessionCookie{
		Domain: deps.AuthConfig.CookieDomain,
		Secure: deps.AuthConfig.CookieSecure,
	}))
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.NotFound(p.NotFound)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login-page", authHandler.LoginPage)
		r.Get("/register-page", authHandler.RegisterPage)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(access.RequireAuthenticated())

		r.Get("/", postHandler.Index)

		r.Get("/profile", userHandler.MyProfile)
		r.Get("/profile/{id}", userHandler.PublicProfile)

		// 編集・削除の所有権はpost.Serviceで検証する
		r.Route("/posts", func(r chi.Router) {
			r.Post("/", postHandler.Create)
			r.Get("/edit/{id}", postHandler.EditPage)
			r.Post("/edit/{id}", postHandler.Update)
			r.Post("/delete/{id}", postHandler.Delete)
		})
	})

	// --- 管理者のみのルート ---
	r.Route("/admin", func(r chi.Router) {
		r.Use(access.RequireRole(model.RoleAdmin))

		r.Get("/", userHandler.Dashboard)
		r.Post("/users/{id}/role", userHandler.UpdateRole)
	})

	return r
}
