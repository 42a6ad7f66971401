package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"negaboku/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Configuración razonable para ambientes iniciales.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// schema crea las tablas si no existen. Las relaciones son direccionales:
// (source_id, target_id) y (target_id, source_id) son filas distintas.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS relationships (
		source_id  TEXT NOT NULL,
		target_id  TEXT NOT NULL,
		value      INTEGER NOT NULL CHECK (value BETWEEN -25 AND 100),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (source_id, target_id)
	)`,
	`CREATE TABLE IF NOT EXISTS relationship_events (
		id          UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		source_id   TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		payload     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS relationship_events_source_idx ON relationship_events (source_id, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS relationship_events_target_idx ON relationship_events (target_id, occurred_at DESC)`,
}

// EnsureSchema aplica el esquema de forma idempotente.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
