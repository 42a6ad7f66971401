package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"negaboku/internal/domain"
)

type PgRelationshipRepository struct {
	pool *pgxpool.Pool
}

func NewPgRelationshipRepository(pool *pgxpool.Pool) *PgRelationshipRepository {
	return &PgRelationshipRepository{pool: pool}
}

func (r *PgRelationshipRepository) Load(ctx context.Context, ids []domain.CharacterID) (*domain.RelationshipAggregate, error) {
	const query = `
		SELECT source_id, target_id, value
		FROM relationships
		WHERE source_id = ANY($1) AND target_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, idStrings(uniqueIDs(ids)))
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	defer rows.Close()

	stored := make(map[domain.RelationshipKey]int)
	for rows.Next() {
		var (
			source, target string
			value          int
		)
		if err := rows.Scan(&source, &target, &value); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		key, err := keyFromStrings(source, target)
		if err != nil {
			return nil, err
		}
		stored[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	return seedAggregate(ids, stored), nil
}

func (r *PgRelationshipRepository) Save(ctx context.Context, aggregate *domain.RelationshipAggregate) error {
	const query = `
		INSERT INTO relationships (source_id, target_id, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id, target_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	entries := aggregate.GetAllRelationships()
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for key, value := range entries {
		batch.Queue(query, key.Source.Value(), key.Target.Value(), value.Value(), now)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save relationships: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save relationships: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PgRelationshipRepository) Exists(ctx context.Context, source, target domain.CharacterID) (bool, error) {
	const query = `
		SELECT EXISTS (SELECT 1 FROM relationships WHERE source_id = $1 AND target_id = $2)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, source.Value(), target.Value()).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRelationshipRepository) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM relationships`)
	return err
}

func idStrings(ids []domain.CharacterID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Value())
	}
	return out
}

func keyFromStrings(source, target string) (domain.RelationshipKey, error) {
	src, err := domain.NewCharacterID(source)
	if err != nil {
		return domain.RelationshipKey{}, fmt.Errorf("stored source id: %w", err)
	}
	tgt, err := domain.NewCharacterID(target)
	if err != nil {
		return domain.RelationshipKey{}, fmt.Errorf("stored target id: %w", err)
	}
	return domain.RelationshipKey{Source: src, Target: tgt}, nil
}
