package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chirp/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存。
type RouterDeps struct {
	AuthHandler   *AuthHandler
	TweetHandler  *TweetHandler
	StreamHandler *StreamHandler
	HealthHandler *HealthHandler

	// 認可ゲートの依存
	TokenVerifier middleware.TokenVerifier
	UserFinder    middleware.UserFinder

	Logger      *slog.Logger
	Metrics     middleware.HTTPMetricsRecorder
	MetricsPage http.Handler
	RateLimiter *middleware.RateLimiter

	// CSRF
	CSRFSecret  string
	CSRFEnforce bool

	CORSAllowedOrigin string
}

// NewRouter はアプリケーションのルーターを構築する。
//
// ミドルウェアの適用順:
//  1. リクエストID採番
//  2. CORS
//  3. セキュリティヘッダー
//  4. アクセスログ
//  5. メトリクス記録
//  6. panicリカバリー
//  7. レート制限
//
// 認可ゲートは/auth/me、/tweets配下、/streamにのみ適用する。
// /auth/signupと/auth/loginは未認証でアクセスできる必要がある。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	authGate := middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", deps.AuthHandler.Signup)
		r.Post("/login", deps.AuthHandler.Login)
		r.Post("/logout", deps.AuthHandler.Logout)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFSecret))

		r.Group(func(r chi.Router) {
			r.Use(authGate)
			r.Get("/me", deps.AuthHandler.Me)
		})
	})

	r.Route("/tweets", func(r chi.Router) {
		r.Use(authGate)
		if deps.CSRFEnforce {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFSecret))
		}

		r.Get("/", deps.TweetHandler.List)
		r.Post("/", deps.TweetHandler.Create)
		r.Get("/{id}", deps.TweetHandler.Get)
		r.Put("/{id}", deps.TweetHandler.Update)
		r.Delete("/{id}", deps.TweetHandler.Delete)
	})

	r.Group(func(r chi.Router) {
		r.Use(authGate)
		r.Get("/stream", deps.StreamHandler.Stream)
	})

	if deps.HealthHandler != nil {
		r.Get("/health", deps.HealthHandler.Check)
	}
	if deps.MetricsPage != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsPage)
	}

	return r
}
