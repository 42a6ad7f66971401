package domain

import (
	"fmt"
	"math"
	"strings"
)

// Rango y umbrales del sistema de relaciones (5 niveles en pasos de 25).
const (
	RelationshipMinValue     = -25
	RelationshipMaxValue     = 100
	RelationshipDefaultValue = 50
	RelationshipStepSize     = 25

	IntimateThreshold = 76
	FriendlyThreshold = 51
	NeutralThreshold  = 26
	ColdThreshold     = 1

	// Umbrales de habilidades. Hoy coinciden con los limites Intimate/Hostile,
	// pero los eventos de desbloqueo dependen del cambio de nivel, no de estos valores.
	CooperationSkillThreshold = 76
	ConflictSkillThreshold    = 0
)

// RelationshipLevel es el nivel discreto derivado de un RelationshipValue.
type RelationshipLevel int

const (
	LevelHostile RelationshipLevel = iota
	LevelCold
	LevelNeutral
	LevelFriendly
	LevelIntimate
)

// AllRelationshipLevels devuelve los niveles de mayor a menor.
func AllRelationshipLevels() []RelationshipLevel {
	return []RelationshipLevel{LevelIntimate, LevelFriendly, LevelNeutral, LevelCold, LevelHostile}
}

func (l RelationshipLevel) String() string {
	switch l {
	case LevelHostile:
		return "Hostile"
	case LevelCold:
		return "Cold"
	case LevelNeutral:
		return "Neutral"
	case LevelFriendly:
		return "Friendly"
	case LevelIntimate:
		return "Intimate"
	default:
		return fmt.Sprintf("RelationshipLevel(%d)", int(l))
	}
}

// ParseRelationshipLevel acepta el nombre del nivel sin distinguir mayusculas.
func ParseRelationshipLevel(s string) (RelationshipLevel, bool) {
	for _, l := range AllRelationshipLevels() {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, true
		}
	}
	return 0, false
}

func (l RelationshipLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *RelationshipLevel) UnmarshalText(text []byte) error {
	parsed, ok := ParseRelationshipLevel(string(text))
	if !ok {
		return fmt.Errorf("unknown relationship level %q", string(text))
	}
	*l = parsed
	return nil
}

// RelationshipValue es un valor inmutable acotado a [-25, 100].
// El valor cero del struct no es valido como "neutral": usar DefaultRelationshipValue.
type RelationshipValue struct {
	value int
}

// NewRelationshipValue acota v al rango permitido. Nunca falla.
func NewRelationshipValue(v int) RelationshipValue {
	return RelationshipValue{value: clamp(v, RelationshipMinValue, RelationshipMaxValue)}
}

// DefaultRelationshipValue es el valor inicial (50, Neutral).
func DefaultRelationshipValue() RelationshipValue {
	return NewRelationshipValue(RelationshipDefaultValue)
}

func (r RelationshipValue) Value() int { return r.value }

// Add devuelve un nuevo valor con delta aplicado; r no cambia.
// Deltas fuera de +-span saturan antes de sumar para no desbordar int.
func (r RelationshipValue) Add(delta int) RelationshipValue {
	const span = RelationshipMaxValue - RelationshipMinValue
	if delta > span {
		delta = span
	} else if delta < -span {
		delta = -span
	}
	return NewRelationshipValue(r.value + delta)
}

// AddSteps aplica steps*25 redondeando al par (0.5 paso => +12).
func (r RelationshipValue) AddSteps(steps float64) RelationshipValue {
	if math.IsNaN(steps) {
		return r
	}
	delta := math.RoundToEven(RelationshipStepSize * steps)
	// Fuera del rango total el resultado ya queda en un extremo.
	span := float64(RelationshipMaxValue - RelationshipMinValue)
	if delta > span {
		delta = span
	} else if delta < -span {
		delta = -span
	}
	return r.Add(int(delta))
}

// Level se calcula siempre a partir del valor.
func (r RelationshipValue) Level() RelationshipLevel {
	switch {
	case r.value >= IntimateThreshold:
		return LevelIntimate
	case r.value >= FriendlyThreshold:
		return LevelFriendly
	case r.value >= NeutralThreshold:
		return LevelNeutral
	case r.value >= ColdThreshold:
		return LevelCold
	default:
		return LevelHostile
	}
}

func (r RelationshipValue) CanUseCooperationSkill() bool {
	return r.value >= CooperationSkillThreshold
}

func (r RelationshipValue) CanUseConflictSkill() bool {
	return r.value <= ConflictSkillThreshold
}

func (r RelationshipValue) String() string {
	return fmt.Sprintf("RelationshipValue(%d, %s)", r.value, r.Level())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
