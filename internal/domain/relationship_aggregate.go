package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRelationshipKey = errors.New("invalid relationship key")

// RelationshipKey es un par ordenado: (a,b) y (b,a) son entradas distintas.
type RelationshipKey struct {
	Source CharacterID `json:"source"`
	Target CharacterID `json:"target"`
}

// String usa la forma persistida "{source}:{target}".
func (k RelationshipKey) String() string {
	return k.Source.Value() + ":" + k.Target.Value()
}

// Reverse devuelve el par en la direccion opuesta.
func (k RelationshipKey) Reverse() RelationshipKey {
	return RelationshipKey{Source: k.Target, Target: k.Source}
}

// ParseRelationshipKey separa en el primer ':'.
func ParseRelationshipKey(s string) (RelationshipKey, error) {
	src, tgt, ok := strings.Cut(s, ":")
	if !ok {
		return RelationshipKey{}, ErrInvalidRelationshipKey
	}
	source, err := NewCharacterID(src)
	if err != nil {
		return RelationshipKey{}, ErrInvalidRelationshipKey
	}
	target, err := NewCharacterID(tgt)
	if err != nil {
		return RelationshipKey{}, ErrInvalidRelationshipKey
	}
	return RelationshipKey{Source: source, Target: target}, nil
}

// RelationshipAggregate es la raiz que posee todos los valores por par y
// acumula eventos de dominio sin confirmar.
//
// No es seguro para uso concurrente; quien lo comparta entre goroutines debe
// serializar el acceso.
type RelationshipAggregate struct {
	relationships map[RelationshipKey]RelationshipValue
	events        []DomainEvent

	now   func() time.Time
	newID func() uuid.UUID
}

// AggregateOption configura dependencias del agregado (reloj, generador de ids).
type AggregateOption func(*RelationshipAggregate)

// WithClock fija el reloj usado para sellar eventos.
func WithClock(now func() time.Time) AggregateOption {
	return func(a *RelationshipAggregate) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator fija el generador de ids de eventos.
func WithIDGenerator(newID func() uuid.UUID) AggregateOption {
	return func(a *RelationshipAggregate) {
		if newID != nil {
			a.newID = newID
		}
	}
}

func NewRelationshipAggregate(opts ...AggregateOption) *RelationshipAggregate {
	a := &RelationshipAggregate{
		relationships: make(map[RelationshipKey]RelationshipValue),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.New,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InitializeRelationship fija el valor sin emitir eventos (carga inicial).
func (a *RelationshipAggregate) InitializeRelationship(source, target CharacterID, value RelationshipValue) {
	a.relationships[RelationshipKey{Source: source, Target: target}] = value
}

// GetRelationship devuelve el valor guardado o el valor por defecto, sin materializarlo.
func (a *RelationshipAggregate) GetRelationship(source, target CharacterID) RelationshipValue {
	if v, ok := a.relationships[RelationshipKey{Source: source, Target: target}]; ok {
		return v
	}
	return DefaultRelationshipValue()
}

// ModifyRelationship aplica delta a source->target y registra los eventos del cambio de nivel.
func (a *RelationshipAggregate) ModifyRelationship(source, target CharacterID, delta int, reason string) {
	oldValue := a.GetRelationship(source, target)
	newValue := oldValue.Add(delta)
	a.relationships[RelationshipKey{Source: source, Target: target}] = newValue

	oldLevel, newLevel := oldValue.Level(), newValue.Level()
	if oldLevel == newLevel {
		return
	}

	a.record(RelationshipLevelChangedEvent{
		ID:            a.newID(),
		Timestamp:     a.now(),
		Source:        source,
		Target:        target,
		PreviousLevel: oldLevel,
		NewLevel:      newLevel,
		PreviousValue: oldValue.Value(),
		NewValue:      newValue.Value(),
		Reason:        reason,
	})

	switch newLevel {
	case LevelIntimate:
		a.recordSkillUnlocked(source, target, CooperationSkill, newValue)
	case LevelHostile:
		a.recordSkillUnlocked(source, target, ConflictSkill, newValue)
	}
}

// ModifyMutualRelationship aplica el mismo delta en ambas direcciones, una tras otra.
func (a *RelationshipAggregate) ModifyMutualRelationship(first, second CharacterID, delta int, reason string) {
	a.ModifyRelationship(first, second, delta, reason)
	a.ModifyRelationship(second, first, delta, reason)
}

// HandleBattleEvent traduce un evento de combate a cambios con magnitud fija.
// En Protection, first es el protector y second el protegido.
// Un tipo desconocido no produce cambios.
func (a *RelationshipAggregate) HandleBattleEvent(kind BattleEventType, first, second CharacterID) {
	switch kind {
	case BattleCooperation:
		a.ModifyMutualRelationship(first, second, largePositiveChange, ReasonCooperation)
	case BattleFriendlyFire:
		a.ModifyMutualRelationship(first, second, largeNegativeChange, ReasonFriendlyFire)
	case BattleProtection:
		a.ModifyRelationship(first, second, protectionProtectorChange, ReasonProtecting)
		a.ModifyRelationship(second, first, protectionBeneficiaryChange, ReasonProtected)
	case BattleRivalry:
		a.ModifyMutualRelationship(first, second, smallNegativeChange, ReasonRivalry)
	case BattleSupport:
		a.ModifyMutualRelationship(first, second, smallPositiveChange, ReasonSupport)
	}
}

// GetAllRelationships devuelve una copia; modificarla no afecta al agregado.
func (a *RelationshipAggregate) GetAllRelationships() map[RelationshipKey]RelationshipValue {
	out := make(map[RelationshipKey]RelationshipValue, len(a.relationships))
	for k, v := range a.relationships {
		out[k] = v
	}
	return out
}

// UncommittedEvents devuelve los eventos pendientes en orden de emision.
func (a *RelationshipAggregate) UncommittedEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.events))
	copy(out, a.events)
	return out
}

// HasEventKind indica si hay algun evento pendiente de la variante dada.
func (a *RelationshipAggregate) HasEventKind(kind EventKind) bool {
	for _, e := range a.events {
		if e.Kind() == kind {
			return true
		}
	}
	return false
}

// EventsOfKind filtra los eventos pendientes por variante.
func (a *RelationshipAggregate) EventsOfKind(kind EventKind) []DomainEvent {
	return FilterEvents(a.events, kind)
}

// MarkChangesAsCommitted vacia el buffer de eventos. Es idempotente.
func (a *RelationshipAggregate) MarkChangesAsCommitted() {
	a.events = nil
}

func (a *RelationshipAggregate) record(e DomainEvent) {
	a.events = append(a.events, e)
}

func (a *RelationshipAggregate) recordSkillUnlocked(source, target CharacterID, skill SkillType, value RelationshipValue) {
	a.record(SkillUnlockedEvent{
		ID:           a.newID(),
		Timestamp:    a.now(),
		Source:       source,
		Target:       target,
		Skill:        skill,
		CurrentLevel: value.Level(),
		CurrentValue: value.Value(),
	})
}
