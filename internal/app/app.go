// Package app はコマンドの解析、依存関係のワイヤリング、サーバーの起動を行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/moody/internal/auth"
	"github.com/hitoshi/moody/internal/config"
	"github.com/hitoshi/moody/internal/database"
	"github.com/hitoshi/moody/internal/geo"
	"github.com/hitoshi/moody/internal/handler"
	"github.com/hitoshi/moody/internal/insight"
	"github.com/hitoshi/moody/internal/logger"
	"github.com/hitoshi/moody/internal/metrics"
	"github.com/hitoshi/moody/internal/middleware"
	"github.com/hitoshi/moody/internal/mood"
	"github.com/hitoshi/moody/internal/place"
	"github.com/hitoshi/moody/internal/repository"
)

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

	// 3. 設定されたログレベルで再設定
	logger.SetupDefault(w, cfg.LogLevel)

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
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		var rest []string
		if len(args) > 1 {
			rest = args[1:]
		}
		opts, err := ParseMigrateArgs(rest)
		if err != nil {
			return err
		}
		return runMigrate(cfg, opts)
	default:
		return runServe(cfg)
	}
}

// Dependencies はHTTPサーバーの構築に必要な外部リソースを保持する。
type Dependencies struct {
	DB         *sql.DB
	HTTPClient *http.Client
	Registry   *prometheus.Registry
	Logger     *slog.Logger
}

// NewHandler は設定と外部リソースから全サービスを組み立て、ルーターを返す。
// 返されたcleanupはレートリミッターのバックグラウンド処理を停止する。
func NewHandler(cfg *config.Config, deps Dependencies) (http.Handler, func(), error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.PlacesTimeout}
	}

	// 1. メトリクス
	collector := metrics.NewCollector(deps.Registry)

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(deps.DB)
	placeRepo := repository.NewPostgresPlaceRepo(deps.DB)
	eventRepo := repository.NewPostgresMoodEventRepo(deps.DB)

	// 3. 認証
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTDuration)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	authService := auth.NewService(userRepo, tokens)

	// 4. 周辺スポット検索（サーキットブレーカー付き）
	placesClient := geo.NewGooglePlacesClient(httpClient, log, cfg.PlacesAPIKey,
		geo.WithEndpoint(cfg.PlacesEndpoint),
		geo.WithRadius(cfg.PlacesRadius),
	)
	resolver := geo.NewBreakerResolver(placesClient, geo.DefaultBreakerSettings(), log, collector)

	// 5. ドメインサービスの初期化
	placeStore := place.NewStore(placeRepo, collector, cfg.PlaceConflictRetries)
	moodService := mood.NewService(userRepo, resolver, placeStore, eventRepo, collector, cfg.PlacesTimeout)
	insightService := insight.NewService(eventRepo)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitMoodEvents),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		StatusRecorder:    collector,
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		UserService:       authService,
		TokenService:      authService,
		MoodService:       moodService,
		InsightService:    insightService,
		DB:                deps.DB,
		MetricsHandler:    metrics.Handler(deps.Registry),
	})

	return router, rateLimiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 依存関係のワイヤリング
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "moody"),
	)

	router, cleanup, err := NewHandler(cfg, Dependencies{
		DB:       db,
		Registry: registry,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveUntilDone(ctx, server, cfg.ShutdownTimeout)
}

// serveUntilDone はctxがキャンセルされるまでサーバーを動かし、その後グレースフルシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// upは未適用のマイグレーションをすべて適用し、downは指定ステップ数だけ戻す。
func runMigrate(cfg *config.Config, opts MigrateOptions) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Bool("down", opts.Down),
	)

	if opts.Down {
		if err := database.RollbackMigrations(cfg.DatabaseURL, opts.Steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database rollback completed", slog.Int("steps", opts.Steps))
		return nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
