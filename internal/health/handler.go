// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/promptcraft/internal/core"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB          Checker
	Redis       Checker
	DBStats     func() sql.DBStats
	RedisStats  func() core.RedisPoolStats
	Environment string
	Version     string
}

type Handler struct {
	db          Checker
	redis       Checker
	dbStats     func() sql.DBStats
	redisStats  func() core.RedisPoolStats
	environment string
	version     string
	startedAt   time.Time
	now         func() time.Time
	ready       atomic.Bool
	shutdown    atomic.Bool
}

func NewHandler(cfg Config) *Handler {
	h := &Handler{
		db:          cfg.DB,
		redis:       cfg.Redis,
		dbStats:     cfg.DBStats,
		redisStats:  cfg.RedisStats,
		environment: cfg.Environment,
		version:     cfg.Version,
		startedAt:   time.Now(),
		now:         time.Now,
	}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Detail)
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	h.writeStatus(w, http.StatusOK, StatusResponse{
		Status: "ok",
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	if !h.ready.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "not_ready",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.runHealthChecks(ctx)
	status, code := summarize(checks)

	h.writeStatus(w, code, ReadinessResponse{
		Status: status,
		Checks: checks,
	})
}

// Detail always answers 200 while the process is up so uptime and pool
// numbers stay visible during a partial outage; Status carries the verdict.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.runHealthChecks(ctx)
	status, _ := summarize(checks)
	if h.shutdown.Load() {
		status = "shutting_down"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := h.now()

	h.writeStatus(w, http.StatusOK, DetailResponse{
		Status:      status,
		Message:     "Promptcraft API is running",
		Timestamp:   now.UTC(),
		Uptime:      now.Sub(h.startedAt).Round(time.Second).String(),
		Environment: h.environment,
		Version:     h.version,
		Checks:      checks,
		Database:    h.databasePool(),
		Redis:       h.redisPool(),
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			MemAlloc:     mem.Alloc,
			MemSys:       mem.Sys,
			NumGC:        mem.NumGC,
		},
	})
}

func summarize(checks []HealthCheck) (string, int) {
	for _, check := range checks {
		if !check.Healthy {
			return "degraded", http.StatusServiceUnavailable
		}
	}
	return "ok", http.StatusOK
}

func (h *Handler) runHealthChecks(ctx context.Context) []HealthCheck {
	var wg sync.WaitGroup
	checks := make([]HealthCheck, 2)

	wg.Add(2)

	go func() {
		defer wg.Done()
		checks[0] = ping(ctx, "database", h.db)
	}()

	go func() {
		defer wg.Done()
		checks[1] = ping(ctx, "redis", h.redis)
	}()

	wg.Wait()
	return checks
}

func ping(ctx context.Context, name string, c Checker) HealthCheck {
	check := HealthCheck{
		Name:    name,
		Healthy: true,
	}

	if c == nil {
		check.Healthy = false
		check.Message = name + " checker not configured"
		return check
	}

	start := time.Now()
	err := c.Ping(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "ping failed"
	}

	return check
}

func (h *Handler) databasePool() *DBPoolStats {
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
	}
}

func (h *Handler) redisPool() *core.RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &stats
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type DetailResponse struct {
	Status      string               `json:"status"`
	Message     string               `json:"message"`
	Timestamp   time.Time            `json:"timestamp"`
	Uptime      string               `json:"uptime"`
	Environment string               `json:"environment"`
	Version     string               `json:"version,omitempty"`
	Checks      []HealthCheck        `json:"checks"`
	Database    *DBPoolStats         `json:"database,omitempty"`
	Redis       *core.RedisPoolStats `json:"redis,omitempty"`
	Runtime     RuntimeStats         `json:"runtime"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"maxOpenConnections"`
	OpenConnections    int    `json:"openConnections"`
	InUse              int    `json:"inUse"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"waitCount"`
	WaitDuration       string `json:"waitDuration"`
}

type RuntimeStats struct {
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
	NumCPU       int    `json:"numCpu"`
	MemAlloc     uint64 `json:"memAlloc"`
	MemSys       uint64 `json:"memSys"`
	NumGC        uint32 `json:"numGc"`
}
