package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizzy/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type testDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	QuizID    string             `bson:"quizId"`
	Email     string             `bson:"email"`
	Contents  []map[string]any   `bson:"contents"`
	CreatedAt time.Time          `bson:"createdAt"`
	Extra     bson.M             `bson:",inline"`
}

func newTestDoc(t *models.Test) testDoc {
	contents := t.Contents
	if contents == nil {
		contents = []map[string]any{}
	}
	return testDoc{
		QuizID:    t.QuizID,
		Email:     t.Email,
		Contents:  contents,
		CreatedAt: t.CreatedAt,
		Extra:     bson.M(t.Extra),
	}
}

func (d testDoc) toModel() models.Test {
	t := models.Test{
		ID:        d.ID.Hex(),
		QuizID:    d.QuizID,
		Email:     d.Email,
		Contents:  d.Contents,
		CreatedAt: d.CreatedAt,
	}
	if len(d.Extra) > 0 {
		t.Extra = map[string]any(d.Extra)
	}
	return t
}

type TestStore struct {
	coll *mongo.Collection
}

func (s *TestStore) FindExisting(ctx context.Context, quizID, email string) (*models.Test, error) {
	return s.findOne(ctx, bson.M{"quizId": quizID, "email": email})
}

func (s *TestStore) findOne(ctx context.Context, filter bson.M) (*models.Test, error) {
	var doc testDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("find test: %w", err)
	}
	t := doc.toModel()
	return &t, nil
}

func (s *TestStore) Create(ctx context.Context, test *models.Test) (*models.Test, error) {
	doc := newTestDoc(test)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrDuplicateAttempt
		}
		return nil, fmt.Errorf("insert test: %w", err)
	}
	stored := *test
	stored.ID = doc.ID.Hex()
	stored.CreatedAt = doc.CreatedAt
	return &stored, nil
}

func (s *TestStore) GetByID(ctx context.Context, id string) (*models.Test, error) {
	oid, err := parseKey(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *TestStore) ListByTaker(ctx context.Context, email string) ([]models.Test, error) {
	cur, err := s.coll.Find(ctx, bson.M{"email": email}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	var docs []testDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	tests := make([]models.Test, 0, len(docs))
	for _, d := range docs {
		tests = append(tests, d.toModel())
	}
	return tests, nil
}

// RecordAnswer sets contents.<n>.answered with the other fields in one $set.
// A missing test is inserted as a whole document rather than through an
// upsert, so that contents stays an array.
func (s *TestStore) RecordAnswer(ctx context.Context, id string, upd models.TestUpdate, opts models.UpdateOptions) (*models.UpdateResult, error) {
	oid, err := parseKey(id)
	if err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	set, err := setFields(upd.Fields)
	if err != nil {
		return nil, err
	}
	delete(set, "createdAt")
	if upd.Question != nil {
		set[fmt.Sprintf("contents.%d.answered", *upd.Question)] = true
	}
	if len(set) == 0 {
		return nil, models.ErrEmptyPatch
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}
	if res.MatchedCount > 0 || !opts.CreateIfMissing {
		return updateResult(res), nil
	}

	test := models.Test{}
	if err := test.ApplyFields(upd.Fields); err != nil {
		return nil, err
	}
	if upd.Question != nil {
		test.MarkAnswered(*upd.Question)
	}
	doc := newTestDoc(&test)
	doc.ID = oid
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrDuplicateAttempt
		}
		return nil, fmt.Errorf("upsert test: %w", err)
	}
	hex := oid.Hex()
	return &models.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: &hex}, nil
}
