package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"negaboku/internal/domain"
)

// EventRepository archiva eventos de dominio ya confirmados.
type EventRepository interface {
	Append(ctx context.Context, events []domain.DomainEvent) error
	ListByCharacter(ctx context.Context, id domain.CharacterID, limit int) ([]domain.DomainEvent, error)
}

const (
	defaultEventListLimit = 50
	maxEventListLimit     = 500
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultEventListLimit
	}
	if limit > maxEventListLimit {
		return maxEventListLimit
	}
	return limit
}

type PgEventRepository struct {
	pool *pgxpool.Pool
}

func NewPgEventRepository(pool *pgxpool.Pool) *PgEventRepository {
	return &PgEventRepository{pool: pool}
}

func (r *PgEventRepository) Append(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	const query = `
		INSERT INTO relationship_events (id, kind, source_id, target_id, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, e := range events {
		payload, err := domain.MarshalEvent(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.EventID(), err)
		}
		pair := e.Pair()
		batch.Queue(query, e.EventID(), string(e.Kind()), pair.Source.Value(), pair.Target.Value(), e.OccurredAt(), payload)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

func (r *PgEventRepository) ListByCharacter(ctx context.Context, id domain.CharacterID, limit int) ([]domain.DomainEvent, error) {
	const query = `
		SELECT payload
		FROM relationship_events
		WHERE source_id = $1 OR target_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, id.Value(), normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.DomainEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := domain.UnmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
