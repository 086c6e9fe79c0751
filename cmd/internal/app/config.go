package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" (default) or "pretty"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// DatabaseURL enables the Postgres identity store; empty means in-memory.
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBSchema      string
	DBAutoMigrate bool

	// RedisURL enables the shared login limiter; empty means in-memory.
	RedisURL string

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool

	MetricsEnabled bool

	// Empty lists keep the gate defaults.
	GateProtectedPrefixes []string
	GateAuthOnlyPaths     []string

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("PEDEAI_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("PEDEAI_LOG_LEVEL", "info"),
		LogFormat: EnvString("PEDEAI_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("PEDEAI_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PEDEAI_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PEDEAI_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PEDEAI_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("PEDEAI_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("PEDEAI_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("PEDEAI_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("PEDEAI_DB_MIN_CONNS", 0),
		DBSchema:      EnvString("PEDEAI_DB_SCHEMA", "pedeai"),
		DBAutoMigrate: EnvBool("PEDEAI_DB_AUTO_MIGRATE", true),

		RedisURL: EnvString("PEDEAI_REDIS_URL", ""),

		ReadinessRequireDB: EnvBool("PEDEAI_READINESS_REQUIRE_DB", false),

		MetricsEnabled: EnvBool("PEDEAI_METRICS_ENABLED", true),

		GateProtectedPrefixes: EnvList("PEDEAI_GATE_PROTECTED_PREFIXES"),
		GateAuthOnlyPaths:     EnvList("PEDEAI_GATE_AUTH_ONLY_PATHS"),

		CORSAllowedOrigins:   EnvList("PEDEAI_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("PEDEAI_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("PEDEAI_CORS_MAX_AGE_SECONDS", 600),
	}
}
