package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"negaboku/internal/domain"
	"negaboku/internal/repository"
)

var (
	ErrRelationshipServiceNotConfigured = errors.New("relationship service not configured")
	ErrSelfRelationship                 = errors.New("source and target must be different characters")
	ErrEventHistoryDisabled             = errors.New("event history not configured")
)

// RelationshipView es el estado de una direccion de la relacion.
type RelationshipView struct {
	Source         domain.CharacterID       `json:"source"`
	Target         domain.CharacterID       `json:"target"`
	Value          int                      `json:"value"`
	Level          domain.RelationshipLevel `json:"level"`
	CanCooperate   bool                     `json:"can_use_cooperation_skill"`
	CanUseConflict bool                     `json:"can_use_conflict_skill"`
}

func newRelationshipView(source, target domain.CharacterID, value domain.RelationshipValue) RelationshipView {
	return RelationshipView{
		Source:         source,
		Target:         target,
		Value:          value.Value(),
		Level:          value.Level(),
		CanCooperate:   value.CanUseCooperationSkill(),
		CanUseConflict: value.CanUseConflictSkill(),
	}
}

// MutationResult resume una mutacion confirmada.
type MutationResult struct {
	Forward RelationshipView     `json:"forward"`
	Reverse RelationshipView     `json:"reverse"`
	Events  []domain.DomainEvent `json:"-"`
}

// PartyAnalysis agrupa las metricas de grupo de RelationshipDomainService.
type PartyAnalysis struct {
	Members          []domain.CharacterID             `json:"members"`
	Average          float64                          `json:"average"`
	CooperationPairs []domain.RelationshipKey         `json:"cooperation_pairs"`
	ConflictPairs    []domain.RelationshipKey         `json:"conflict_pairs"`
	Distribution     map[domain.RelationshipLevel]int `json:"distribution"`
}

// RelationshipService orquesta los casos de uso: carga, muta, guarda y publica.
type RelationshipService struct {
	mu       sync.Mutex
	repo     repository.RelationshipRepository
	history  repository.EventRepository
	sink     EventSink
	analysis RelationshipDomainService
	logger   *zap.Logger
}

// NewRelationshipService crea el servicio. sink y history pueden ser nil.
func NewRelationshipService(repo repository.RelationshipRepository, sink EventSink, logger *zap.Logger) *RelationshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipService{
		repo:     repo,
		sink:     sink,
		analysis: NewRelationshipDomainService(),
		logger:   logger,
	}
}

// WithEventHistory habilita EventHistory sobre el repositorio dado.
func (s *RelationshipService) WithEventHistory(history repository.EventRepository) *RelationshipService {
	s.history = history
	return s
}

func (s *RelationshipService) GetRelationship(ctx context.Context, source, target domain.CharacterID) (RelationshipView, error) {
	if err := s.checkPair(source, target); err != nil {
		return RelationshipView{}, err
	}
	agg, err := s.repo.Load(ctx, []domain.CharacterID{source, target})
	if err != nil {
		return RelationshipView{}, fmt.Errorf("load relationships: %w", err)
	}
	return newRelationshipView(source, target, agg.GetRelationship(source, target)), nil
}

func (s *RelationshipService) ModifyRelationship(ctx context.Context, source, target domain.CharacterID, delta int, reason string) (MutationResult, error) {
	if err := s.checkPair(source, target); err != nil {
		return MutationResult{}, err
	}
	return s.mutate(ctx, source, target, func(agg *domain.RelationshipAggregate) {
		agg.ModifyRelationship(source, target, delta, reason)
	})
}

func (s *RelationshipService) ModifyMutualRelationship(ctx context.Context, first, second domain.CharacterID, delta int, reason string) (MutationResult, error) {
	if err := s.checkPair(first, second); err != nil {
		return MutationResult{}, err
	}
	return s.mutate(ctx, first, second, func(agg *domain.RelationshipAggregate) {
		agg.ModifyMutualRelationship(first, second, delta, reason)
	})
}

func (s *RelationshipService) HandleBattleEvent(ctx context.Context, kind domain.BattleEventType, first, second domain.CharacterID) (MutationResult, error) {
	if err := s.checkPair(first, second); err != nil {
		return MutationResult{}, err
	}
	return s.mutate(ctx, first, second, func(agg *domain.RelationshipAggregate) {
		agg.HandleBattleEvent(kind, first, second)
	})
}

// mutate ejecuta load -> fn -> save -> publish -> commit bajo el mutex del servicio.
func (s *RelationshipService) mutate(ctx context.Context, first, second domain.CharacterID, fn func(*domain.RelationshipAggregate)) (MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.repo.Load(ctx, []domain.CharacterID{first, second})
	if err != nil {
		return MutationResult{}, fmt.Errorf("load relationships: %w", err)
	}
	fn(agg)
	if err := s.repo.Save(ctx, agg); err != nil {
		return MutationResult{}, fmt.Errorf("save relationships: %w", err)
	}

	events := agg.UncommittedEvents()
	if s.sink != nil && len(events) > 0 {
		if err := s.sink.Publish(ctx, events); err != nil {
			s.logger.Warn("publish relationship events failed",
				zap.String("source", first.Value()),
				zap.String("target", second.Value()),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
		}
	}
	agg.MarkChangesAsCommitted()

	return MutationResult{
		Forward: newRelationshipView(first, second, agg.GetRelationship(first, second)),
		Reverse: newRelationshipView(second, first, agg.GetRelationship(second, first)),
		Events:  events,
	}, nil
}

func (s *RelationshipService) AveragePartyRelationship(ctx context.Context, party []domain.CharacterID) (float64, error) {
	agg, err := s.loadParty(ctx, party)
	if err != nil {
		return 0, err
	}
	return s.analysis.CalculateAveragePartyRelationship(agg, party), nil
}

func (s *RelationshipService) CooperationSkillPairs(ctx context.Context, party []domain.CharacterID) ([]domain.RelationshipKey, error) {
	agg, err := s.loadParty(ctx, party)
	if err != nil {
		return nil, err
	}
	return s.analysis.GetCooperationSkillPairs(agg, party), nil
}

func (s *RelationshipService) ConflictSkillPairs(ctx context.Context, party []domain.CharacterID) ([]domain.RelationshipKey, error) {
	agg, err := s.loadParty(ctx, party)
	if err != nil {
		return nil, err
	}
	return s.analysis.GetConflictSkillPairs(agg, party), nil
}

func (s *RelationshipService) RelationshipDistribution(ctx context.Context, party []domain.CharacterID) (map[domain.RelationshipLevel]int, error) {
	agg, err := s.loadParty(ctx, party)
	if err != nil {
		return nil, err
	}
	return s.analysis.AnalyzeRelationshipDistribution(agg, party), nil
}

// AnalyzeParty calcula todas las metricas de grupo sobre una sola carga.
func (s *RelationshipService) AnalyzeParty(ctx context.Context, party []domain.CharacterID) (PartyAnalysis, error) {
	agg, err := s.loadParty(ctx, party)
	if err != nil {
		return PartyAnalysis{}, err
	}
	return PartyAnalysis{
		Members:          party,
		Average:          s.analysis.CalculateAveragePartyRelationship(agg, party),
		CooperationPairs: s.analysis.GetCooperationSkillPairs(agg, party),
		ConflictPairs:    s.analysis.GetConflictSkillPairs(agg, party),
		Distribution:     s.analysis.AnalyzeRelationshipDistribution(agg, party),
	}, nil
}

// PartyRelationships devuelve todos los pares ordenados como mapa plano "a:b" -> valor.
func (s *RelationshipService) PartyRelationships(ctx context.Context, party []domain.CharacterID) (map[string]int, error) {
	agg, err := s.loadParty(ctx, party)
	if err != nil {
		return nil, err
	}
	all := agg.GetAllRelationships()
	out := make(map[string]int, len(all))
	for key, value := range all {
		out[key.String()] = value.Value()
	}
	return out, nil
}

func (s *RelationshipService) EventHistory(ctx context.Context, id domain.CharacterID, limit int) ([]domain.DomainEvent, error) {
	if s == nil || s.history == nil {
		return nil, ErrEventHistoryDisabled
	}
	events, err := s.history.ListByCharacter(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *RelationshipService) loadParty(ctx context.Context, party []domain.CharacterID) (*domain.RelationshipAggregate, error) {
	if s == nil || s.repo == nil {
		return nil, ErrRelationshipServiceNotConfigured
	}
	agg, err := s.repo.Load(ctx, party)
	if err != nil {
		return nil, fmt.Errorf("load party relationships: %w", err)
	}
	return agg, nil
}

func (s *RelationshipService) checkPair(source, target domain.CharacterID) error {
	if s == nil || s.repo == nil {
		return ErrRelationshipServiceNotConfigured
	}
	if source == target {
		return ErrSelfRelationship
	}
	return nil
}
