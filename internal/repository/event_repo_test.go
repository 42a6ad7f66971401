package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"negaboku/internal/domain"
)

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: defaultEventListLimit},
		{in: -3, want: defaultEventListLimit},
		{in: 10, want: 10},
		{in: 500, want: 500},
		{in: 501, want: maxEventListLimit},
		{in: 1 << 30, want: maxEventListLimit},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in); got != tt.want {
			t.Fatalf("normalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToEventDocument(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ev := domain.SkillUnlockedEvent{
		ID:           uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Timestamp:    at,
		Source:       dan,
		Target:       zack,
		Skill:        domain.ConflictSkill,
		CurrentLevel: domain.LevelHostile,
		CurrentValue: -5,
	}

	doc, err := toEventDocument(ev)
	if err != nil {
		t.Fatalf("toEventDocument: %v", err)
	}
	if doc.ID != "22222222-2222-2222-2222-222222222222" || doc.Kind != string(domain.EventKindSkillUnlocked) {
		t.Fatalf("unexpected document header %+v", doc)
	}
	if doc.Source != "dan" || doc.Target != "zack" || !doc.OccurredAt.Equal(at) {
		t.Fatalf("unexpected document pair/time %+v", doc)
	}

	decoded, err := domain.UnmarshalEvent(doc.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != ev {
		t.Fatalf("decoded event mismatch: %+v", decoded)
	}
}

func TestOnlyDuplicateKeyErrors(t *testing.T) {
	writeErr := func(code int) mongo.BulkWriteError {
		return mongo.BulkWriteError{WriteError: mongo.WriteError{Code: code, Message: "write failed"}}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "all duplicates",
			err:  mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{writeErr(11000), writeErr(11000)}},
			want: true,
		},
		{
			name: "wrapped duplicates",
			err:  fmt.Errorf("insert: %w", mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{writeErr(11000)}}),
			want: true,
		},
		{
			name: "duplicate mixed with validation failure",
			err:  mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{writeErr(11000), writeErr(121)}},
			want: false,
		},
		{
			name: "write concern failure",
			err: mongo.BulkWriteException{
				WriteConcernError: &mongo.WriteConcernError{Code: 64, Message: "waiting for replication timed out"},
				WriteErrors:       []mongo.BulkWriteError{writeErr(11000)},
			},
			want: false,
		},
		{name: "empty exception", err: mongo.BulkWriteException{}, want: false},
		{name: "plain error", err: errors.New("connection reset"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := onlyDuplicateKeyErrors(tt.err); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
