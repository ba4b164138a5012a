// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/payment"
)

// Reconciler recovers payments that were captured without the enrollment
// being activated.
type Reconciler interface {
	ListReconciliationGaps(ctx context.Context) ([]payment.Gap, error)
	Reconcile(ctx context.Context, paymentID string) (*payment.CallbackResponse, error)
}

type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type OTPPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Handler struct {
	repo       Repository
	reconciler Reconciler
	tokens     TokenPurger
	otps       OTPPurger
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	logger     *slog.Logger
}

type HandlerConfig struct {
	Repo       Repository
	Reconciler Reconciler
	Tokens     TokenPurger
	OTPs       OTPPurger
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Logger     *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		repo:       cfg.Repo,
		reconciler: cfg.Reconciler,
		tokens:     cfg.Tokens,
		otps:       cfg.OTPs,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/overview", h.GetOverview)
		r.Get("/admin/stats", h.GetSystemStats)

		r.Get("/admin/reconciliation", h.ListGaps)
		r.Post("/admin/reconciliation/{paymentID}", h.Reconcile)

		r.Post("/admin/maintenance/purge", h.Purge)
	})
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	overview, err := h.repo.Overview(ctx)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	gaps, err := h.reconciler.ListReconciliationGaps(ctx)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	overview.ReconciliationGaps = len(gaps)

	core.OK(w, overview)
}

func (h *Handler) ListGaps(w http.ResponseWriter, r *http.Request) {
	gaps, err := h.reconciler.ListReconciliationGaps(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if gaps == nil {
		gaps = []payment.Gap{}
	}
	core.OK(w, gaps)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reconciler.Reconcile(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokens, err := h.tokens.PurgeExpiredTokens(ctx)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	otps, err := h.otps.PurgeExpired(ctx)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "expired records purged",
		"refresh_tokens", tokens,
		"otp_records", otps,
	)

	core.OK(w, PurgeResponse{RefreshTokens: tokens, OTPRecords: otps})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	core.OK(w, SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     memStats.Alloc,
			NumGC:        memStats.NumGC,
		},
	})
}

func pingOK(ctx context.Context, ping func(ctx context.Context) error) bool {
	return ping == nil || ping(ctx) == nil
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}
