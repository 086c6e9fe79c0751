package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	authapi "pedeai/cmd/internal/auth/api"
	"pedeai/cmd/internal/gate"
)

type routes struct {
	log   Logger
	cfg   Config
	db    *pgxpool.Pool
	redis redis.Cmdable
	reg   *prometheus.Registry
	auth  *authapi.Handler
	gate  *gate.Gate
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", rt.handleReady)

	if rt.cfg.MetricsEnabled && rt.reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(rt.reg, promhttp.HandlerOpts{Registry: rt.reg}))
	}

	rt.auth.Register(mux)

	// Page routes sit behind the gate; the API routes above do their own auth.
	mux.Handle("GET /dashboard", rt.gate.Middleware(http.HandlerFunc(handleDashboard)))
	mux.Handle("GET /dashboard/", rt.gate.Middleware(http.HandlerFunc(handleDashboard)))
	for _, p := range []string{"/login", "/registro", "/recuperar-senha"} {
		mux.Handle("GET "+p, rt.gate.Middleware(pageHandler(p)))
	}
}

func (rt routes) handleReady(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.ReadinessRequireDB && rt.db == nil {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	if rt.db != nil {
		if err := PingDB(r.Context(), rt.db, 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			rt.log.Info("readyz.db.not_ready", "err", err)
			return
		}
	}

	if rt.redis != nil {
		if err := PingRedis(r.Context(), rt.redis, 2*time.Second); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			rt.log.Info("readyz.redis.not_ready", "err", err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

type pageUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"page": "dashboard", "path": r.URL.Path}
	if c, ok := gate.ClaimsFromContext(r.Context()); ok {
		body["user"] = pageUser{ID: c.ID, Email: c.Email, FullName: c.FullName, Role: c.Role}
	}
	writePage(w, body)
}

func pageHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writePage(w, map[string]any{"page": name[1:]})
	})
}

func writePage(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
