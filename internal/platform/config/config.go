package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// BaseDomain is the shared application domain; subdomain resolution
	// treats "<slug>.<BaseDomain>" as a tenant slug lookup.
	BaseDomain string

	// AdminPathPrefix routes resolve to the system tenant without lookup.
	AdminPathPrefix string

	// AdminToken guards the /admin surface. Empty disables the surface.
	AdminToken string

	JWTSigningKey string

	// PostgresURL is optional; empty selects the in-memory stores.
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers is optional; empty disables the audit relay.
	KafkaBrokers []string
	AuditTopic   string

	// SeedDemoData provisions sample tenants and users on startup.
	SeedDemoData bool
}

// RedisConfig holds connection settings for the tenant directory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DirectoryCacheTTL bounds staleness of cached tenant lookups. Deactivation
// busts entries eagerly; the TTL is the backstop.
var DirectoryCacheTTL = 30 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            getenv("WAYFARE_ADDR", ":8080"),
		BaseDomain:      getenv("WAYFARE_BASE_DOMAIN", "wayfare.app"),
		AdminPathPrefix: getenv("WAYFARE_ADMIN_PREFIX", "/admin"),
		AdminToken:      os.Getenv("WAYFARE_ADMIN_TOKEN"),
		// Default for development - must be overridden in production.
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("DATABASE_URL"),
		AuditTopic:    getenv("AUDIT_TOPIC", "wayfare.audit"),
		SeedDemoData:  os.Getenv("SEED_DEMO_DATA") == "true",
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
