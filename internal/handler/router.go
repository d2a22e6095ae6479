package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/steamstats/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusMetrics     middleware.HTTPStatusRecorder
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService  AuthServiceInterface
	AuthConfig   AuthHandlerConfig
	LoginMetrics LoginRecorder

	// Prometheusスクレイプ用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler

	// Steam統計
	ProfileService ProfileServiceInterface
	LibraryService LibraryServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS
//
// 認証が必要なルート（/steam/*）にはさらに Session → RateLimit(General) を積む。
// /auth/login にはIPベースのログイン専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusMetrics))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.LoginMetrics, deps.AuthConfig)
	steamHandler := NewSteamHandler(deps.ProfileService, deps.LibraryService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（Steam OpenIDフロー）
	r.Route("/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.LoginMiddleware()).Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/steam", func(r chi.Router) {
			r.Get("/profile", steamHandler.GetProfile)
			r.Get("/games", steamHandler.ListGames)
			r.Get("/games/recent", steamHandler.ListRecentGames)
		})
	})

	return r
}

// healthHandler はロードバランサー向けのヘルスチェックエンドポイント。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
