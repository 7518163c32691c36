package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/gameforum/internal/auth"
	"github.com/hitoshi/gameforum/internal/config"
	"github.com/hitoshi/gameforum/internal/database"
	"github.com/hitoshi/gameforum/internal/handler"
	"github.com/hitoshi/gameforum/internal/logger"
	"github.com/hitoshi/gameforum/internal/metrics"
	"github.com/hitoshi/gameforum/internal/password"
	"github.com/hitoshi/gameforum/internal/post"
	"github.com/hitoshi/gameforum/internal/repository"
	"github.com/hitoshi/gameforum/internal/security"
	"github.com/hitoshi/gameforum/internal/user"
	"github.com/hitoshi/gameforum/internal/view"
	"github.com/hitoshi/gameforum/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの最大待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", string(cfg.SessionStore)),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandGrantAdmin:
		if len(args) < 2 || args[1] == "" {
			return errors.New("usage: gameforum grant-admin <email>")
		}
		return runGrantAdmin(cfg, args[1])
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// sessionBackend は選択されたセッション永続化先と、その後始末を保持する。
type sessionBackend struct {
	repo  repository.SessionRepository
	close func() error
}

// openSessionBackend はSESSION_STOREの設定に応じてセッションリポジトリを構築する。
func openSessionBackend(cfg *config.Config, db *sql.DB) (*sessionBackend, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client, err := database.OpenRedis(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return &sessionBackend{
			repo:  repository.NewRedisSessionRepo(client, ""),
			close: client.Close,
		}, nil
	case config.SessionStoreMemory:
		slog.Warn("using in-memory session store; sessions are lost on restart")
		return &sessionBackend{
			repo:  repository.NewMemorySessionRepo(),
			close: func() error { return nil },
		}, nil
	default:
		if db == nil {
			return nil, errors.New("postgres session store requires a database connection")
		}
		return &sessionBackend{
			repo:  repository.NewPostgresSessionRepo(db),
			close: func() error { return nil },
		}, nil
	}
}

// services はドメインサービス群をまとめたもの。
type services struct {
	auth  *auth.Service
	posts *post.Service
	users *user.Service
}

func newServices(cfg *config.Config, db *sql.DB, sessions repository.SessionRepository, collector metrics.MetricsCollector) *services {
	userRepo := repository.NewPostgresUserRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)

	store := auth.NewSessionStore(sessions, auth.SessionStoreConfig{
		MaxAge:        cfg.SessionMaxAgeDuration(),
		Sliding:       cfg.SessionSliding,
		TouchInterval: cfg.SessionTouchInterval,
	})
	authService := auth.NewService(userRepo, store, password.NewHasher(cfg.BcryptCost), collector)
	postService := post.NewService(postRepo, security.NewPostSanitizer(), collector)
	userService := user.NewService(userRepo, postService, authService)

	return &services{auth: authService, posts: postService, users: userService}
}

// newRegistry はアプリケーションのメトリクスとランタイムメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. セッションストア
	backend, err := openSessionBackend(cfg, db)
	if err != nil {
		return err
	}
	defer backend.close()

	// 3. メトリクスとサービスの初期化
	reg, collector := newRegistry()
	svcs := newServices(cfg, db, backend.repo, collector)

	renderer, err := view.New()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Renderer:        renderer,
		SessionResolver: svcs.auth,
		Metrics:         collector,
		Logger:          slog.Default(),
		HealthChecker:   db,
		MetricsHandler:  metrics.Handler(reg),
		AuthService:     svcs.auth,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:      cfg.CookieDomain,
			CookieSecure:      cfg.CookieSecure,
			SessionMaxAge:     cfg.SessionMaxAge,
			UnifiedLoginError: cfg.LoginUnifiedError,
		},
		PostService:    svcs.posts,
		ProfileService: svcs.users,
		AdminService:   svcs.users,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// メモリストアは別プロセスのworkerから掃除できないため、サーバー内で実行する
	if purger, ok := backend.repo.(repository.ExpiredSessionPurger); ok && cfg.SessionStore == config.SessionStoreMemory {
		job := cleanup.NewCleanupJob(purger, slog.Default(), collector)
		go job.Start(ctx, cfg.SessionCleanupInterval)
	}

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLのsessionsテーブルから期限切れセッションを定期的に削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.SessionStore != config.SessionStorePostgres {
		// RedisはキーのTTLで失効し、メモリストアはserve内で掃除する
		slog.Info("session cleanup worker not required",
			slog.String("session_store", string(cfg.SessionStore)),
		)
		return nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	_, collector := newRegistry()
	job := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default(), collector)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runGrantAdmin は指定メールアドレスのユーザーに管理者ロールを付与する。
// 最初の管理者を作成するために使用する。
func runGrantAdmin(cfg *config.Config, email string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, err := openSessionBackend(cfg, db)
	if err != nil {
		return err
	}
	defer backend.close()

	svcs := newServices(cfg, db, backend.repo, metrics.Nop{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := svcs.users.GrantAdminByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("grant-admin failed: %w", err)
	}

	slog.Info("admin granted", slog.String("user_id", u.ID))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
