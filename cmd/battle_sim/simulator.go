package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"negaboku/internal/domain"
	"negaboku/internal/repository"
	"negaboku/internal/service"
)

var errUsage = errors.New("comando invalido, escribe 'ayuda'")

type simulator struct {
	svc   *service.RelationshipService
	repo  repository.RelationshipRepository
	party []domain.CharacterID
	out   io.Writer
}

// exec interpreta una linea y, si muta, imprime el analisis del grupo.
func (s *simulator) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return errUsage
	}
	switch strings.ToLower(fields[0]) {
	case "battle":
		if len(fields) != 4 {
			return errUsage
		}
		kind, err := domain.ParseBattleEventType(fields[1])
		if err != nil {
			return err
		}
		a, b, err := parsePair(fields[2], fields[3])
		if err != nil {
			return err
		}
		res, err := s.svc.HandleBattleEvent(ctx, kind, a, b)
		if err != nil {
			return err
		}
		s.printMutation(res)
	case "modify":
		if len(fields) < 4 {
			return errUsage
		}
		a, b, err := parsePair(fields[1], fields[2])
		if err != nil {
			return err
		}
		delta, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("delta invalido %q", fields[3])
		}
		rest := fields[4:]
		mutual := len(rest) > 0 && strings.EqualFold(rest[0], "mutual")
		if mutual {
			rest = rest[1:]
		}
		reason := strings.Join(rest, " ")
		var res service.MutationResult
		if mutual {
			res, err = s.svc.ModifyMutualRelationship(ctx, a, b, delta, reason)
		} else {
			res, err = s.svc.ModifyRelationship(ctx, a, b, delta, reason)
		}
		if err != nil {
			return err
		}
		s.printMutation(res)
	case "show":
		return s.printParty(ctx)
	case "reset":
		if err := s.repo.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Relaciones reiniciadas.")
		return nil
	default:
		return errUsage
	}
	return s.printAnalysis(ctx)
}

func (s *simulator) printMutation(res service.MutationResult) {
	fmt.Fprintf(s.out, "%s -> %s: %d (%s)\n", res.Forward.Source, res.Forward.Target, res.Forward.Value, res.Forward.Level)
	fmt.Fprintf(s.out, "%s -> %s: %d (%s)\n", res.Reverse.Source, res.Reverse.Target, res.Reverse.Value, res.Reverse.Level)
	for _, e := range res.Events {
		switch ev := e.(type) {
		case domain.RelationshipLevelChangedEvent:
			fmt.Fprintf(s.out, "  * nivel %s -> %s (%s)\n", ev.PreviousLevel, ev.NewLevel, ev.Pair())
		case domain.SkillUnlockedEvent:
			fmt.Fprintf(s.out, "  * habilidad %s desbloqueada (%s)\n", ev.Skill, ev.Pair())
		}
	}
}

func (s *simulator) printParty(ctx context.Context) error {
	flat, err := s.svc.PartyRelationships(ctx, s.party)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(s.out, "%-20s %4d\n", k, flat[k])
	}
	return s.printAnalysis(ctx)
}

func (s *simulator) printAnalysis(ctx context.Context) error {
	analysis, err := s.svc.AnalyzeParty(ctx, s.party)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Promedio del grupo: %.2f\n", analysis.Average)
	fmt.Fprintf(s.out, "Cooperacion: %s\n", joinKeys(analysis.CooperationPairs))
	fmt.Fprintf(s.out, "Conflicto: %s\n", joinKeys(analysis.ConflictPairs))
	parts := make([]string, 0, len(analysis.Distribution))
	for _, level := range domain.AllRelationshipLevels() {
		parts = append(parts, fmt.Sprintf("%s=%d", level, analysis.Distribution[level]))
	}
	fmt.Fprintf(s.out, "Distribucion: %s\n", strings.Join(parts, " "))
	return nil
}

func parsePair(a, b string) (domain.CharacterID, domain.CharacterID, error) {
	first, err := domain.NewCharacterID(a)
	if err != nil {
		return domain.CharacterID{}, domain.CharacterID{}, err
	}
	second, err := domain.NewCharacterID(b)
	if err != nil {
		return domain.CharacterID{}, domain.CharacterID{}, err
	}
	return first, second, nil
}

func joinKeys(keys []domain.RelationshipKey) string {
	if len(keys) == 0 {
		return "-"
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return strings.Join(out, ", ")
}
