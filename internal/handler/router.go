package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/trialman/internal/middleware"
)

// HealthChecker はデータベース疎通確認のインターフェース。*sqlx.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MetricsRecorder   middleware.HTTPRecorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 治験
	TrialService TrialServiceInterface
	StatsService StatsServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Logging → Metrics → Recovery → SecurityHeaders → CORS
//	  認証ルート: + LoginRateLimit（登録・ログイン）
//	  保護ルート: + Session → RateLimit(General)
//
// APIルートはルート直下と/api配下の両方にマウントする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	trialHandler := NewTrialHandler(deps.TrialService, deps.StatsService)

	mountAPI := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.LoginMiddleware())
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
				r.Use(deps.RateLimiter.GeneralMiddleware())
				r.Get("/user", authHandler.CurrentUser)
			})
		})

		// ミドルウェアスタック: Session → RateLimit(General)
		r.Route("/trials", func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/", trialHandler.ListTrials)
			r.Post("/", trialHandler.CreateTrial)
			r.Get("/stats", trialHandler.GetStats)
			r.Get("/export", trialHandler.ExportTrials)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", trialHandler.GetTrial)
				r.Put("/", trialHandler.UpdateTrial)
				r.Delete("/", trialHandler.DeleteTrial)
			})
		})
	}

	mountAPI(r)
	r.Route("/api", mountAPI)

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler はDB疎通を含むヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
