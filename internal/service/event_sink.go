package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"negaboku/internal/domain"
	"negaboku/internal/repository"
)

// EventSink consume los eventos confirmados de una mutacion.
type EventSink interface {
	Publish(ctx context.Context, events []domain.DomainEvent) error
}

// EventSinkFunc adapta una funcion a EventSink.
type EventSinkFunc func(ctx context.Context, events []domain.DomainEvent) error

func (f EventSinkFunc) Publish(ctx context.Context, events []domain.DomainEvent) error {
	return f(ctx, events)
}

// MultiEventSink publica en todos los sinks y junta los errores.
type MultiEventSink []EventSink

func (m MultiEventSink) Publish(ctx context.Context, events []domain.DomainEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FilteredEventSink reenvia solo las variantes indicadas.
type FilteredEventSink struct {
	next  EventSink
	kinds map[domain.EventKind]struct{}
}

func NewFilteredEventSink(next EventSink, kinds ...domain.EventKind) *FilteredEventSink {
	set := make(map[domain.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &FilteredEventSink{next: next, kinds: set}
}

func (f *FilteredEventSink) Publish(ctx context.Context, events []domain.DomainEvent) error {
	var selected []domain.DomainEvent
	for _, e := range events {
		if _, ok := f.kinds[e.Kind()]; ok {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		return nil
	}
	return f.next.Publish(ctx, selected)
}

// LoggingEventSink escribe cada evento con zap.
type LoggingEventSink struct {
	logger *zap.Logger
}

func NewLoggingEventSink(logger *zap.Logger) *LoggingEventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingEventSink{logger: logger}
}

func (s *LoggingEventSink) Publish(_ context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		pair := e.Pair()
		fields := []zap.Field{
			zap.String("event_id", e.EventID().String()),
			zap.String("kind", string(e.Kind())),
			zap.String("source", pair.Source.Value()),
			zap.String("target", pair.Target.Value()),
		}
		switch ev := e.(type) {
		case domain.RelationshipLevelChangedEvent:
			s.logger.Info("relationship level changed", append(fields,
				zap.Stringer("previous_level", ev.PreviousLevel),
				zap.Stringer("new_level", ev.NewLevel),
				zap.Int("previous_value", ev.PreviousValue),
				zap.Int("new_value", ev.NewValue),
				zap.String("reason", ev.Reason),
				zap.Bool("significant", ev.IsSignificantChange()),
			)...)
		case domain.SkillUnlockedEvent:
			s.logger.Info("skill unlocked", append(fields,
				zap.Stringer("skill", ev.Skill),
				zap.Stringer("level", ev.CurrentLevel),
				zap.Int("value", ev.CurrentValue),
			)...)
		}
	}
	return nil
}

// EventStoreSink archiva los eventos en un EventRepository.
type EventStoreSink struct {
	repo repository.EventRepository
}

func NewEventStoreSink(repo repository.EventRepository) *EventStoreSink {
	return &EventStoreSink{repo: repo}
}

func (s *EventStoreSink) Publish(ctx context.Context, events []domain.DomainEvent) error {
	if s == nil || s.repo == nil {
		return nil
	}
	return s.repo.Append(ctx, events)
}
