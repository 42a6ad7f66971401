package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Backends soportados para relaciones y eventos.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMongo    = "mongo"
	StoreNone     = "none"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort            string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL"`
	RelationshipStore   string `env:"RELATIONSHIP_STORE" envDefault:"memory"`
	EventStore          string `env:"EVENT_STORE" envDefault:"none"`
	RedisAddr           string `env:"REDIS_ADDR"`
	RedisPassword       string `env:"REDIS_PASSWORD"`
	RedisDB             int    `env:"REDIS_DB" envDefault:"0"`
	RedisEventsChannel  string `env:"REDIS_EVENTS_CHANNEL" envDefault:"relationship-events"`
	MongoURI            string `env:"MONGO_URI"`
	MongoDatabase       string `env:"MONGO_DATABASE" envDefault:"negaboku"`
	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`

	// Roles que pueden mutar relaciones; vacio acepta cualquier token valido.
	JWTMutationRoles []string `env:"JWT_MUTATION_ROLES" envSeparator:","`

	// 0 desactiva el limite de mutaciones por actor.
	MutationRateLimit         int `env:"MUTATION_RATE_LIMIT" envDefault:"0"`
	MutationRateWindowSeconds int `env:"MUTATION_RATE_WINDOW_SECONDS" envDefault:"60"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.RelationshipStore = strings.ToLower(strings.TrimSpace(cfg.RelationshipStore))
	cfg.EventStore = strings.ToLower(strings.TrimSpace(cfg.EventStore))
	if cfg.RelationshipStore == "" {
		cfg.RelationshipStore = StoreMemory
	}
	if cfg.EventStore == "" {
		cfg.EventStore = StoreNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba que cada backend elegido tenga su conexión configurada.
func (c *Config) Validate() error {
	switch c.RelationshipStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("RELATIONSHIP_STORE=%s requires DATABASE_URL", c.RelationshipStore)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("RELATIONSHIP_STORE=%s requires REDIS_ADDR", c.RelationshipStore)
		}
	default:
		return fmt.Errorf("unknown RELATIONSHIP_STORE %q", c.RelationshipStore)
	}

	switch c.EventStore {
	case StoreNone:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("EVENT_STORE=%s requires DATABASE_URL", c.EventStore)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("EVENT_STORE=%s requires MONGO_URI", c.EventStore)
		}
	default:
		return fmt.Errorf("unknown EVENT_STORE %q", c.EventStore)
	}

	if c.MutationRateLimit < 0 || c.MutationRateWindowSeconds < 0 {
		return fmt.Errorf("MUTATION_RATE_LIMIT and MUTATION_RATE_WINDOW_SECONDS must not be negative")
	}
	return nil
}

// NeedsPostgres indica si algún backend usa Postgres.
func (c *Config) NeedsPostgres() bool {
	return c.RelationshipStore == StorePostgres || c.EventStore == StorePostgres
}
