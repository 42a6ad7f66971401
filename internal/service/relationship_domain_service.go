package service

import (
	"negaboku/internal/domain"
)

// RelationshipReader es la vista de solo lectura que necesitan los analisis de grupo.
// *domain.RelationshipAggregate la implementa.
type RelationshipReader interface {
	GetRelationship(source, target domain.CharacterID) domain.RelationshipValue
}

// RelationshipDomainService calcula agregados sobre un grupo de personajes.
// No guarda estado; el valor cero es utilizable.
//
// Todas las operaciones recorren los pares i<j y leen solo la direccion
// (party[i], party[j]); la direccion inversa se ignora.
type RelationshipDomainService struct{}

func NewRelationshipDomainService() RelationshipDomainService {
	return RelationshipDomainService{}
}

// CalculateAveragePartyRelationship promedia los valores de todos los pares.
// Con menos de dos miembros devuelve el valor por defecto (50).
func (RelationshipDomainService) CalculateAveragePartyRelationship(rel RelationshipReader, party []domain.CharacterID) float64 {
	if len(party) < 2 {
		return domain.RelationshipDefaultValue
	}
	total, count := 0, 0
	forEachPair(party, func(a, b domain.CharacterID) {
		total += rel.GetRelationship(a, b).Value()
		count++
	})
	return float64(total) / float64(count)
}

// GetCooperationSkillPairs devuelve los pares que pueden usar habilidades de cooperacion.
func (s RelationshipDomainService) GetCooperationSkillPairs(rel RelationshipReader, party []domain.CharacterID) []domain.RelationshipKey {
	return s.pairsSatisfying(rel, party, domain.CanUseCooperationSkill)
}

// GetConflictSkillPairs devuelve los pares que pueden usar habilidades de conflicto.
func (s RelationshipDomainService) GetConflictSkillPairs(rel RelationshipReader, party []domain.CharacterID) []domain.RelationshipKey {
	return s.pairsSatisfying(rel, party, domain.CanUseConflictSkill)
}

// AnalyzeRelationshipDistribution cuenta pares por nivel. Los cinco niveles siempre estan
// presentes y la suma es C(n, 2).
func (RelationshipDomainService) AnalyzeRelationshipDistribution(rel RelationshipReader, party []domain.CharacterID) map[domain.RelationshipLevel]int {
	dist := make(map[domain.RelationshipLevel]int, 5)
	for _, level := range domain.AllRelationshipLevels() {
		dist[level] = 0
	}
	forEachPair(party, func(a, b domain.CharacterID) {
		dist[rel.GetRelationship(a, b).Level()]++
	})
	return dist
}

func (RelationshipDomainService) pairsSatisfying(rel RelationshipReader, party []domain.CharacterID, spec domain.Specification) []domain.RelationshipKey {
	pairs := []domain.RelationshipKey{}
	forEachPair(party, func(a, b domain.CharacterID) {
		if spec.IsSatisfiedBy(rel.GetRelationship(a, b)) {
			pairs = append(pairs, domain.RelationshipKey{Source: a, Target: b})
		}
	})
	return pairs
}

func forEachPair(party []domain.CharacterID, fn func(a, b domain.CharacterID)) {
	for i := 0; i < len(party); i++ {
		for j := i + 1; j < len(party); j++ {
			fn(party[i], party[j])
		}
	}
}
