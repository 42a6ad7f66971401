package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind es la etiqueta que distingue las variantes de DomainEvent.
type EventKind string

const (
	EventKindLevelChanged  EventKind = "relationship.level_changed"
	EventKindSkillUnlocked EventKind = "relationship.skill_unlocked"
)

// DomainEvent es un registro inmutable de una transicion del agregado.
// El conjunto de variantes es cerrado: RelationshipLevelChangedEvent y SkillUnlockedEvent.
type DomainEvent interface {
	EventID() uuid.UUID
	OccurredAt() time.Time
	Kind() EventKind
	// Pair devuelve el par (origen, destino) afectado.
	Pair() RelationshipKey

	sealed()
}

// SkillType es el tipo de habilidad que se desbloquea al cruzar un nivel.
type SkillType int

const (
	CooperationSkill SkillType = iota
	ConflictSkill
)

func (s SkillType) String() string {
	switch s {
	case CooperationSkill:
		return "cooperation"
	case ConflictSkill:
		return "conflict"
	default:
		return fmt.Sprintf("SkillType(%d)", int(s))
	}
}

func (s SkillType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SkillType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cooperation":
		*s = CooperationSkill
	case "conflict":
		*s = ConflictSkill
	default:
		return fmt.Errorf("unknown skill type %q", string(text))
	}
	return nil
}

// RelationshipLevelChangedEvent se emite cuando un cambio mueve el valor a otro nivel.
type RelationshipLevelChangedEvent struct {
	ID            uuid.UUID         `json:"event_id"`
	Timestamp     time.Time         `json:"occurred_at"`
	Source        CharacterID       `json:"source"`
	Target        CharacterID       `json:"target"`
	PreviousLevel RelationshipLevel `json:"previous_level"`
	NewLevel      RelationshipLevel `json:"new_level"`
	PreviousValue int               `json:"previous_value"`
	NewValue      int               `json:"new_value"`
	Reason        string            `json:"reason"`
}

func (e RelationshipLevelChangedEvent) EventID() uuid.UUID    { return e.ID }
func (e RelationshipLevelChangedEvent) OccurredAt() time.Time { return e.Timestamp }
func (e RelationshipLevelChangedEvent) Kind() EventKind       { return EventKindLevelChanged }
func (e RelationshipLevelChangedEvent) Pair() RelationshipKey {
	return RelationshipKey{Source: e.Source, Target: e.Target}
}
func (RelationshipLevelChangedEvent) sealed() {}

// IsImprovement indica si el valor subio.
func (e RelationshipLevelChangedEvent) IsImprovement() bool {
	return e.NewValue > e.PreviousValue
}

// IsSignificantChange indica un salto de al menos dos pasos (50 puntos).
func (e RelationshipLevelChangedEvent) IsSignificantChange() bool {
	diff := e.NewValue - e.PreviousValue
	if diff < 0 {
		diff = -diff
	}
	return diff >= RelationshipStepSize*2
}

// SkillUnlockedEvent se emite al entrar en Intimate (cooperacion) o Hostile (conflicto).
type SkillUnlockedEvent struct {
	ID           uuid.UUID         `json:"event_id"`
	Timestamp    time.Time         `json:"occurred_at"`
	Source       CharacterID       `json:"source"`
	Target       CharacterID       `json:"target"`
	Skill        SkillType         `json:"skill"`
	CurrentLevel RelationshipLevel `json:"current_level"`
	CurrentValue int               `json:"current_value"`
}

func (e SkillUnlockedEvent) EventID() uuid.UUID    { return e.ID }
func (e SkillUnlockedEvent) OccurredAt() time.Time { return e.Timestamp }
func (e SkillUnlockedEvent) Kind() EventKind       { return EventKindSkillUnlocked }
func (e SkillUnlockedEvent) Pair() RelationshipKey {
	return RelationshipKey{Source: e.Source, Target: e.Target}
}
func (SkillUnlockedEvent) sealed() {}

// FilterEvents devuelve, en orden, los eventos de la variante indicada.
func FilterEvents(events []DomainEvent, kind EventKind) []DomainEvent {
	var out []DomainEvent
	for _, e := range events {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// eventEnvelope es la forma serializada: etiqueta + payload de la variante.
type eventEnvelope struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalEvent serializa un evento con su etiqueta de variante.
func MarshalEvent(e DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{Kind: e.Kind(), Payload: payload})
}

// UnmarshalEvent reconstruye la variante concreta a partir de MarshalEvent.
func UnmarshalEvent(data []byte) (DomainEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case EventKindLevelChanged:
		var e RelationshipLevelChangedEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventKindSkillUnlocked:
		var e SkillUnlockedEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
