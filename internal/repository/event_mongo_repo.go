package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"negaboku/internal/domain"
)

// eventDocument es la forma en que un evento se guarda en MongoDB.
// Data contiene el sobre serializado por domain.MarshalEvent.
type eventDocument struct {
	ID         string    `bson:"_id"`
	Kind       string    `bson:"kind"`
	Source     string    `bson:"source"`
	Target     string    `bson:"target"`
	OccurredAt time.Time `bson:"occurred_at"`
	Data       []byte    `bson:"data"`
}

type MongoEventRepository struct {
	collection *mongo.Collection
}

func NewMongoEventRepository(database *mongo.Database) *MongoEventRepository {
	return &MongoEventRepository{collection: database.Collection("relationship_events")}
}

// EnsureIndexes crea los índices por personaje y fecha.
func (r *MongoEventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "target", Value: 1}, {Key: "occurred_at", Value: -1}}},
	})
	return err
}

func (r *MongoEventRepository) Append(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(events))
	for _, e := range events {
		doc, err := toEventDocument(e)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeyErrors(err) {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

// onlyDuplicateKeyErrors es true si todos los fallos del lote son ids ya
// guardados. Cualquier otro error de escritura se propaga.
func onlyDuplicateKeyErrors(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if !isDuplicateKeyCode(we.Code) {
			return false
		}
	}
	return true
}

func isDuplicateKeyCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

func (r *MongoEventRepository) ListByCharacter(ctx context.Context, id domain.CharacterID, limit int) ([]domain.DomainEvent, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"source": id.Value()},
		bson.M{"target": id.Value()},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	events := make([]domain.DomainEvent, 0, len(docs))
	for _, doc := range docs {
		e, err := domain.UnmarshalEvent(doc.Data)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", doc.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func toEventDocument(e domain.DomainEvent) (eventDocument, error) {
	data, err := domain.MarshalEvent(e)
	if err != nil {
		return eventDocument{}, fmt.Errorf("encode event %s: %w", e.EventID(), err)
	}
	pair := e.Pair()
	return eventDocument{
		ID:         e.EventID().String(),
		Kind:       string(e.Kind()),
		Source:     pair.Source.Value(),
		Target:     pair.Target.Value(),
		OccurredAt: e.OccurredAt(),
		Data:       data,
	}, nil
}
