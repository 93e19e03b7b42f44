// Package mongostore keeps quizzes and tests as documents in MongoDB.
package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"quizzy/models"
	"quizzy/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	quizzesCollection = "quizzes"
	testsCollection   = "tests"
)

type Store struct {
	client  *mongo.Client
	quizzes *QuizStore
	tests   *TestStore
}

var _ repository.Store = (*Store)(nil)

// New binds both collections. Embedded documents decode as bson.M so that
// opaque content items serialize back to plain JSON objects.
func New(client *mongo.Client, database string) *Store {
	reg := bson.NewRegistry()
	reg.RegisterTypeMapEntry(bson.TypeEmbeddedDocument, reflect.TypeOf(bson.M{}))
	collOpts := options.Collection().SetRegistry(reg)

	db := client.Database(database)
	return &Store{
		client:  client,
		quizzes: &QuizStore{coll: db.Collection(quizzesCollection, collOpts)},
		tests:   &TestStore{coll: db.Collection(testsCollection, collOpts)},
	}
}

// EnsureIndexes creates the unique (quizId, email) index that backs the
// one-attempt-per-taker rule, plus lookup indexes. Only non-empty pairs are
// unique.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.tests.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "quizId", Value: 1}, {Key: "email", Value: 1}},
			// Tests created by upsert carry empty values and stay outside the index.
			Options: options.Index().
				SetUnique(true).
				SetName("quiz_email_unique").
				SetPartialFilterExpression(bson.M{
					"quizId": bson.M{"$gt": ""},
					"email":  bson.M{"$gt": ""},
				}),
		},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create test indexes: %w", err)
	}
	_, err = s.quizzes.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "participants", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create quiz indexes: %w", err)
	}
	return nil
}

func (s *Store) Quizzes() repository.QuizRepository { return s.quizzes }

func (s *Store) Tests() repository.TestRepository { return s.tests }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func parseKey(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", models.ErrInvalidID, id)
	}
	return oid, nil
}

func jsonValue(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}
	return v, nil
}

// setFields turns a field patch into a $set document. The key is never set.
func setFields(fields map[string]json.RawMessage) (bson.M, error) {
	set := make(bson.M, len(fields))
	for key, raw := range fields {
		if key == "_id" {
			continue
		}
		v, err := jsonValue(raw)
		if err != nil {
			return nil, err
		}
		set[key] = v
	}
	return set, nil
}

func updateResult(res *mongo.UpdateResult) *models.UpdateResult {
	out := &models.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		hex := oid.Hex()
		out.UpsertedID = &hex
	}
	return out
}
