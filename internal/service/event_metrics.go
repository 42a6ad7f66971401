package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"negaboku/internal/domain"
)

// MetricsEventSink cuenta eventos de dominio en Prometheus.
type MetricsEventSink struct {
	levelChanges   *prometheus.CounterVec
	skillsUnlocked *prometheus.CounterVec
}

// NewMetricsEventSink registra los contadores en reg (prometheus.DefaultRegisterer si es nil).
func NewMetricsEventSink(reg prometheus.Registerer) *MetricsEventSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &MetricsEventSink{
		levelChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "negaboku_relationship_level_changes_total",
				Help: "Relationship level transitions by previous and new level",
			},
			[]string{"from", "to"},
		),
		skillsUnlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "negaboku_skills_unlocked_total",
				Help: "Skill unlocks by skill type",
			},
			[]string{"skill"},
		),
	}
}

func (m *MetricsEventSink) Publish(_ context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		switch ev := e.(type) {
		case domain.RelationshipLevelChangedEvent:
			m.levelChanges.WithLabelValues(ev.PreviousLevel.String(), ev.NewLevel.String()).Inc()
		case domain.SkillUnlockedEvent:
			m.skillsUnlocked.WithLabelValues(ev.Skill.String()).Inc()
		}
	}
	return nil
}
