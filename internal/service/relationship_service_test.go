package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"negaboku/internal/domain"
	"negaboku/internal/repository"
)

type failingRepo struct {
	repository.RelationshipRepository
	loadErr error
	saveErr error
}

func (f *failingRepo) Load(ctx context.Context, ids []domain.CharacterID) (*domain.RelationshipAggregate, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.RelationshipRepository.Load(ctx, ids)
}

func (f *failingRepo) Save(ctx context.Context, agg *domain.RelationshipAggregate) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.RelationshipRepository.Save(ctx, agg)
}

func newTestService(sink EventSink) (*RelationshipService, *repository.MemoryRelationshipRepository) {
	repo := repository.NewMemoryRelationshipRepository()
	return NewRelationshipService(repo, sink, zap.NewNop()), repo
}

func TestRelationshipService_ModifyPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	svc, repo := newTestService(sink)
	p := ids("dan", "zack")

	res, err := svc.ModifyRelationship(ctx, p[0], p[1], 25, "gift")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if res.Forward.Value != 75 || res.Forward.Level != domain.LevelFriendly {
		t.Fatalf("unexpected forward %+v", res.Forward)
	}
	if res.Reverse.Value != 50 {
		t.Fatalf("expected reverse untouched, got %d", res.Reverse.Value)
	}
	if len(res.Events) != 1 || sink.count() != 1 {
		t.Fatalf("expected one level change published, got %d / %d", len(res.Events), sink.count())
	}

	agg, _ := repo.Load(ctx, p)
	if got := agg.GetRelationship(p[0], p[1]).Value(); got != 75 {
		t.Fatalf("expected persisted 75, got %d", got)
	}

	view, err := svc.GetRelationship(ctx, p[0], p[1])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Value != 75 || view.CanCooperate {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestRelationshipService_WithinLevelPublishesNothing(t *testing.T) {
	sink := &recordingSink{}
	svc, _ := newTestService(sink)
	p := ids("dan", "zack")

	if _, err := svc.ModifyRelationship(context.Background(), p[0], p[1], 10, "chat"); err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(sink.batches) != 0 {
		t.Fatalf("expected no publish for a change inside the same level")
	}
}

func TestRelationshipService_MutualToIntimateUnlocksBothDirections(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	svc, _ := newTestService(sink)
	p := ids("dan", "zack")

	if _, err := svc.ModifyMutualRelationship(ctx, p[0], p[1], 25, "camp"); err != nil {
		t.Fatalf("modify: %v", err)
	}
	res, err := svc.ModifyMutualRelationship(ctx, p[0], p[1], 25, "camp")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if res.Forward.Value != 100 || res.Reverse.Value != 100 {
		t.Fatalf("expected both directions at 100, got %+v", res)
	}
	if !res.Forward.CanCooperate || !res.Reverse.CanCooperate {
		t.Fatalf("expected cooperation skills available")
	}
	if got := len(domain.FilterEvents(res.Events, domain.EventKindSkillUnlocked)); got != 2 {
		t.Fatalf("expected 2 skill unlocks, got %d", got)
	}
	if sink.count() != 6 {
		t.Fatalf("expected 6 events across both calls, got %d", sink.count())
	}
}

func TestRelationshipService_HandleBattleEvent(t *testing.T) {
	svc, _ := newTestService(nil)
	p := ids("dan", "zack")

	res, err := svc.HandleBattleEvent(context.Background(), domain.BattleProtection, p[0], p[1])
	if err != nil {
		t.Fatalf("battle: %v", err)
	}
	if res.Forward.Value != 62 || res.Reverse.Value != 75 {
		t.Fatalf("expected 62/75, got %d/%d", res.Forward.Value, res.Reverse.Value)
	}
}

func TestRelationshipService_Errors(t *testing.T) {
	ctx := context.Background()
	p := ids("dan", "zack")

	t.Run("self relationship", func(t *testing.T) {
		svc, _ := newTestService(nil)
		if _, err := svc.ModifyRelationship(ctx, p[0], p[0], 5, ""); !errors.Is(err, ErrSelfRelationship) {
			t.Fatalf("expected ErrSelfRelationship, got %v", err)
		}
		if _, err := svc.GetRelationship(ctx, p[1], p[1]); !errors.Is(err, ErrSelfRelationship) {
			t.Fatalf("expected ErrSelfRelationship, got %v", err)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		svc := NewRelationshipService(nil, nil, nil)
		if _, err := svc.HandleBattleEvent(ctx, domain.BattleSupport, p[0], p[1]); !errors.Is(err, ErrRelationshipServiceNotConfigured) {
			t.Fatalf("expected ErrRelationshipServiceNotConfigured, got %v", err)
		}
		if _, err := svc.AnalyzeParty(ctx, p); !errors.Is(err, ErrRelationshipServiceNotConfigured) {
			t.Fatalf("expected ErrRelationshipServiceNotConfigured, got %v", err)
		}
	})

	t.Run("load error is wrapped", func(t *testing.T) {
		boom := errors.New("db down")
		repo := &failingRepo{RelationshipRepository: repository.NewMemoryRelationshipRepository(), loadErr: boom}
		svc := NewRelationshipService(repo, nil, nil)
		if _, err := svc.ModifyRelationship(ctx, p[0], p[1], 5, ""); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped load error, got %v", err)
		}
	})

	t.Run("save error skips publish", func(t *testing.T) {
		boom := errors.New("write failed")
		sink := &recordingSink{}
		repo := &failingRepo{RelationshipRepository: repository.NewMemoryRelationshipRepository(), saveErr: boom}
		svc := NewRelationshipService(repo, sink, nil)
		if _, err := svc.ModifyRelationship(ctx, p[0], p[1], 50, ""); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped save error, got %v", err)
		}
		if len(sink.batches) != 0 {
			t.Fatalf("expected nothing published when save fails")
		}
	})
}

func TestRelationshipService_SinkFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	repo := repository.NewMemoryRelationshipRepository()
	svc := NewRelationshipService(repo, &recordingSink{err: errors.New("broker down")}, zap.New(core))
	p := ids("dan", "zack")

	res, err := svc.ModifyRelationship(ctx, p[0], p[1], -75, "betrayal")
	if err != nil {
		t.Fatalf("expected mutation to succeed, got %v", err)
	}
	if res.Forward.Value != -25 {
		t.Fatalf("expected -25, got %d", res.Forward.Value)
	}
	if logs.FilterMessage("publish relationship events failed").Len() != 1 {
		t.Fatalf("expected the sink failure to be logged")
	}
	view, _ := svc.GetRelationship(ctx, p[0], p[1])
	if view.Value != -25 || !view.CanUseConflict {
		t.Fatalf("expected saved hostile value, got %+v", view)
	}
}

func TestRelationshipService_PartyQueries(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)
	party := ids("dan", "zack", "sora")

	if _, err := svc.ModifyRelationship(ctx, party[0], party[1], 30, ""); err != nil {
		t.Fatalf("modify: %v", err)
	}
	if _, err := svc.ModifyRelationship(ctx, party[1], party[2], -60, ""); err != nil {
		t.Fatalf("modify: %v", err)
	}

	avg, err := svc.AveragePartyRelationship(ctx, party)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if want := (80.0 + 50.0 - 10.0) / 3.0; avg != want {
		t.Fatalf("expected %v, got %v", want, avg)
	}

	coop, _ := svc.CooperationSkillPairs(ctx, party)
	assertPairs(t, coop, []domain.RelationshipKey{{Source: party[0], Target: party[1]}})
	conflict, _ := svc.ConflictSkillPairs(ctx, party)
	assertPairs(t, conflict, []domain.RelationshipKey{{Source: party[1], Target: party[2]}})

	dist, _ := svc.RelationshipDistribution(ctx, party)
	if dist[domain.LevelIntimate] != 1 || dist[domain.LevelHostile] != 1 || dist[domain.LevelNeutral] != 1 || dist[domain.LevelFriendly] != 0 {
		t.Fatalf("unexpected distribution %v", dist)
	}

	analysis, err := svc.AnalyzeParty(ctx, party)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Average != avg || len(analysis.CooperationPairs) != 1 || len(analysis.ConflictPairs) != 1 {
		t.Fatalf("unexpected analysis %+v", analysis)
	}

	flat, err := svc.PartyRelationships(ctx, party)
	if err != nil {
		t.Fatalf("party relationships: %v", err)
	}
	if len(flat) != 6 || flat["dan:zack"] != 80 || flat["zack:sora"] != -10 || flat["sora:dan"] != 50 {
		t.Fatalf("unexpected flat map %v", flat)
	}
}

func TestRelationshipService_EventHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)
	dan := domain.MustCharacterID("dan")

	if _, err := svc.EventHistory(ctx, dan, 10); !errors.Is(err, ErrEventHistoryDisabled) {
		t.Fatalf("expected ErrEventHistoryDisabled, got %v", err)
	}

	store := &fakeEventRepository{}
	svc.sink = NewEventStoreSink(store)
	svc.WithEventHistory(store)

	if _, err := svc.ModifyMutualRelationship(ctx, dan, domain.MustCharacterID("zack"), 50, "rescue"); err != nil {
		t.Fatalf("modify: %v", err)
	}
	events, err := svc.EventHistory(ctx, dan, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 4 || store.listed != dan || store.limit != 10 {
		t.Fatalf("unexpected history %d events for %s/%d", len(events), store.listed, store.limit)
	}
}

func TestRelationshipService_SerializesMutations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)
	p := ids("dan", "zack")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ModifyRelationship(ctx, p[0], p[1], 1, "tick"); err != nil {
				t.Errorf("modify: %v", err)
			}
		}()
	}
	wg.Wait()

	view, _ := svc.GetRelationship(ctx, p[0], p[1])
	if view.Value != 90 {
		t.Fatalf("expected no lost updates (90), got %d", view.Value)
	}
}
