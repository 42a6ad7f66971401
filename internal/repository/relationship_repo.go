package repository

import (
	"context"
	"sync"

	"negaboku/internal/domain"
)

// RelationshipRepository carga y guarda el agregado de relaciones.
//
// Load garantiza que todo par ordenado (i != j) de ids tenga un valor en el agregado:
// el guardado o, si falta, el valor por defecto sembrado con InitializeRelationship.
type RelationshipRepository interface {
	Load(ctx context.Context, ids []domain.CharacterID) (*domain.RelationshipAggregate, error)
	Save(ctx context.Context, aggregate *domain.RelationshipAggregate) error
	Exists(ctx context.Context, source, target domain.CharacterID) (bool, error)
	Clear(ctx context.Context) error
}

// orderedPairs devuelve todos los pares ordenados distintos, sin ids repetidos.
func orderedPairs(ids []domain.CharacterID) []domain.RelationshipKey {
	unique := uniqueIDs(ids)
	pairs := make([]domain.RelationshipKey, 0, len(unique)*(len(unique)-1))
	for _, a := range unique {
		for _, b := range unique {
			if a != b {
				pairs = append(pairs, domain.RelationshipKey{Source: a, Target: b})
			}
		}
	}
	return pairs
}

func uniqueIDs(ids []domain.CharacterID) []domain.CharacterID {
	seen := make(map[domain.CharacterID]struct{}, len(ids))
	out := make([]domain.CharacterID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// seedAggregate construye un agregado con los valores guardados o por defecto.
func seedAggregate(ids []domain.CharacterID, stored map[domain.RelationshipKey]int) *domain.RelationshipAggregate {
	agg := domain.NewRelationshipAggregate()
	for _, key := range orderedPairs(ids) {
		value := domain.DefaultRelationshipValue()
		if v, ok := stored[key]; ok {
			value = domain.NewRelationshipValue(v)
		}
		agg.InitializeRelationship(key.Source, key.Target, value)
	}
	return agg
}

// MemoryRelationshipRepository guarda relaciones en memoria. Útil en tests y en el simulador.
type MemoryRelationshipRepository struct {
	mu    sync.Mutex
	items map[domain.RelationshipKey]int
}

func NewMemoryRelationshipRepository() *MemoryRelationshipRepository {
	return &MemoryRelationshipRepository{
		items: make(map[domain.RelationshipKey]int),
	}
}

func (r *MemoryRelationshipRepository) Load(_ context.Context, ids []domain.CharacterID) (*domain.RelationshipAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return seedAggregate(ids, r.items), nil
}

func (r *MemoryRelationshipRepository) Save(_ context.Context, aggregate *domain.RelationshipAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, value := range aggregate.GetAllRelationships() {
		r.items[key] = value.Value()
	}
	return nil
}

func (r *MemoryRelationshipRepository) Exists(_ context.Context, source, target domain.CharacterID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[domain.RelationshipKey{Source: source, Target: target}]
	return ok, nil
}

func (r *MemoryRelationshipRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[domain.RelationshipKey]int)
	return nil
}
