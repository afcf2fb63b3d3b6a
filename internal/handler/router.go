package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moody/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder
	Authenticator     middleware.TokenAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証・ユーザー
	UserService  UserServiceInterface
	TokenService TokenServiceInterface

	// ムードイベント・集計
	MoodService    MoodServiceInterface
	InsightService InsightServiceInterface

	// 運用
	DB             Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → CORS → SecurityHeaders → BearerAuth → RateLimit(GeneralMiddleware)
//
// /health、/metrics、/users、/tokens、/tokeninfo は認証グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	userHandler := NewUserHandler(deps.UserService)
	authHandler := NewAuthHandler(deps.TokenService)
	moodHandler := NewMoodHandler(deps.MoodService)
	insightHandler := NewInsightHandler(deps.InsightService)
	healthHandler := NewHealthHandler(deps.DB)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, notFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowedError())
	})

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Post("/users", userHandler.Register)
	r.Post("/tokens", authHandler.IssueToken)
	r.Get("/tokeninfo", authHandler.TokenInfo)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/mood_events", func(r chi.Router) {
			// POST /mood_events - 作成専用のレート制限を追加
			r.With(deps.RateLimiter.MoodEventCreationMiddleware()).Post("/", moodHandler.CreateMoodEvent)
			r.Get("/", moodHandler.ListMoodEvents)
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/frequency", insightHandler.Frequency)
			r.Get("/places", insightHandler.Places)
		})
	})

	return r
}
