package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"negaboku/internal/domain"
)

type recordingSink struct {
	batches [][]domain.DomainEvent
	err     error
}

func (r *recordingSink) Publish(_ context.Context, events []domain.DomainEvent) error {
	r.batches = append(r.batches, events)
	return r.err
}

func (r *recordingSink) count() int {
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func sampleEvents() []domain.DomainEvent {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	dan, zack := domain.MustCharacterID("dan"), domain.MustCharacterID("zack")
	return []domain.DomainEvent{
		domain.RelationshipLevelChangedEvent{
			ID:            uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			Timestamp:     at,
			Source:        dan,
			Target:        zack,
			PreviousLevel: domain.LevelFriendly,
			NewLevel:      domain.LevelIntimate,
			PreviousValue: 75,
			NewValue:      100,
			Reason:        domain.ReasonCooperation,
		},
		domain.SkillUnlockedEvent{
			ID:           uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			Timestamp:    at,
			Source:       dan,
			Target:       zack,
			Skill:        domain.CooperationSkill,
			CurrentLevel: domain.LevelIntimate,
			CurrentValue: 100,
		},
	}
}

func TestMultiEventSink(t *testing.T) {
	ctx := context.Background()
	first := &recordingSink{}
	failing := &recordingSink{err: errors.New("boom")}
	last := &recordingSink{}

	err := MultiEventSink{first, nil, failing, last}.Publish(ctx, sampleEvents())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if first.count() != 2 || last.count() != 2 {
		t.Fatalf("expected every sink to receive the batch despite failures")
	}
}

func TestFilteredEventSink(t *testing.T) {
	ctx := context.Background()
	next := &recordingSink{}
	sink := NewFilteredEventSink(next, domain.EventKindSkillUnlocked)

	if err := sink.Publish(ctx, sampleEvents()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(next.batches) != 1 || len(next.batches[0]) != 1 {
		t.Fatalf("expected one filtered event, got %v", next.batches)
	}
	if next.batches[0][0].Kind() != domain.EventKindSkillUnlocked {
		t.Fatalf("unexpected kind %s", next.batches[0][0].Kind())
	}

	if err := sink.Publish(ctx, sampleEvents()[:1]); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(next.batches) != 1 {
		t.Fatalf("expected no forward when nothing matches")
	}
}

func TestLoggingEventSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLoggingEventSink(zap.New(core))

	if err := sink.Publish(context.Background(), sampleEvents()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 log entries, got %d", logs.Len())
	}
	changed := logs.FilterMessage("relationship level changed").All()
	if len(changed) != 1 {
		t.Fatalf("expected level change entry")
	}
	fields := changed[0].ContextMap()
	if fields["new_level"] != "Intimate" || fields["significant"] != false {
		t.Fatalf("unexpected fields %v", fields)
	}
	if logs.FilterMessage("skill unlocked").Len() != 1 {
		t.Fatalf("expected skill unlock entry")
	}
}

func TestMetricsEventSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewMetricsEventSink(reg)

	if err := sink.Publish(context.Background(), sampleEvents()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := testutil.ToFloat64(sink.levelChanges.WithLabelValues("Friendly", "Intimate")); got != 1 {
		t.Fatalf("expected one Friendly->Intimate transition, got %v", got)
	}
	if got := testutil.ToFloat64(sink.skillsUnlocked.WithLabelValues("cooperation")); got != 1 {
		t.Fatalf("expected one cooperation unlock, got %v", got)
	}
}

type fakeRedisPublisher struct {
	channels []string
	messages []string
	err      error
}

func (f *fakeRedisPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.channels = append(f.channels, channel)
	if b, ok := message.([]byte); ok {
		f.messages = append(f.messages, string(b))
	}
	cmd.SetVal(1)
	return cmd
}

func TestRedisEventPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes envelopes", func(t *testing.T) {
		fake := &fakeRedisPublisher{}
		pub := &RedisEventPublisher{client: fake, channel: "events", timeout: time.Second}
		if err := pub.Publish(ctx, sampleEvents()); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if len(fake.messages) != 2 || fake.channels[0] != "events" {
			t.Fatalf("unexpected publishes %v on %v", fake.messages, fake.channels)
		}
		decoded, err := domain.UnmarshalEvent([]byte(fake.messages[1]))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.Kind() != domain.EventKindSkillUnlocked {
			t.Fatalf("unexpected decoded kind %s", decoded.Kind())
		}
	})

	t.Run("wraps redis errors", func(t *testing.T) {
		boom := errors.New("redis down")
		pub := &RedisEventPublisher{client: &fakeRedisPublisher{err: boom}, channel: "events", timeout: time.Second}
		if err := pub.Publish(ctx, sampleEvents()); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		var pub *RedisEventPublisher
		if err := pub.Publish(ctx, sampleEvents()); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if NewRedisEventPublisher(nil, "x") != nil {
			t.Fatalf("expected nil publisher without client")
		}
	})
}

type fakeEventRepository struct {
	appended []domain.DomainEvent
	listed   domain.CharacterID
	limit    int
	err      error
}

func (f *fakeEventRepository) Append(_ context.Context, events []domain.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, events...)
	return nil
}

func (f *fakeEventRepository) ListByCharacter(_ context.Context, id domain.CharacterID, limit int) ([]domain.DomainEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listed, f.limit = id, limit
	return f.appended, nil
}

func TestEventStoreSink(t *testing.T) {
	repo := &fakeEventRepository{}
	if err := NewEventStoreSink(repo).Publish(context.Background(), sampleEvents()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(repo.appended) != 2 {
		t.Fatalf("expected 2 archived events, got %d", len(repo.appended))
	}
	if err := NewEventStoreSink(nil).Publish(context.Background(), sampleEvents()); err != nil {
		t.Fatalf("expected nil repo to be a no-op, got %v", err)
	}
}
