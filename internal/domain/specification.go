package domain

// Specification es una regla de negocio sobre un RelationshipValue.
type Specification interface {
	IsSatisfiedBy(candidate RelationshipValue) bool
}

// SpecificationFunc adapta una funcion a Specification.
type SpecificationFunc func(RelationshipValue) bool

func (f SpecificationFunc) IsSatisfiedBy(candidate RelationshipValue) bool { return f(candidate) }

// Reglas con nombre. Son funciones puras sin estado.
var (
	CanUseCooperationSkill Specification = SpecificationFunc(func(v RelationshipValue) bool {
		return v.Value() >= CooperationSkillThreshold
	})

	CanUseConflictSkill Specification = SpecificationFunc(func(v RelationshipValue) bool {
		return v.Value() <= ConflictSkillThreshold
	})

	IsIntimateLevel Specification = SpecificationFunc(func(v RelationshipValue) bool {
		return v.Level() == LevelIntimate
	})

	IsHostileLevel Specification = SpecificationFunc(func(v RelationshipValue) bool {
		return v.Level() == LevelHostile
	})

	// IsStableRelationship acepta solo Neutral y Friendly: Intimate y Hostile son extremos,
	// Cold es fragil.
	IsStableRelationship Specification = SpecificationFunc(func(v RelationshipValue) bool {
		l := v.Level()
		return l == LevelNeutral || l == LevelFriendly
	})
)
