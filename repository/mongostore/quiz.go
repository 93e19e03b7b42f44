package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizzy/models"
	"quizzy/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type quizDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Author       string             `bson:"author"`
	Status       string             `bson:"status"`
	Contents     []any              `bson:"contents"`
	Participants []string           `bson:"participants"`
	Extra        bson.M             `bson:",inline"`
}

func newQuizDoc(q *models.Quiz) (quizDoc, error) {
	doc := quizDoc{
		Author:       q.Author,
		Status:       string(q.Status),
		Contents:     make([]any, 0, len(q.Contents)),
		Participants: q.Participants,
		Extra:        bson.M(q.Extra),
	}
	if doc.Participants == nil {
		doc.Participants = []string{}
	}
	for _, raw := range q.Contents {
		v, err := jsonValue(raw)
		if err != nil {
			return quizDoc{}, err
		}
		doc.Contents = append(doc.Contents, v)
	}
	return doc, nil
}

func (d quizDoc) toModel() (models.Quiz, error) {
	q := models.Quiz{
		ID:           d.ID.Hex(),
		Author:       d.Author,
		Status:       models.QuizStatus(d.Status),
		Participants: d.Participants,
	}
	if len(d.Extra) > 0 {
		q.Extra = map[string]any(d.Extra)
	}
	for _, item := range d.Contents {
		raw, err := json.Marshal(item)
		if err != nil {
			return models.Quiz{}, fmt.Errorf("encode contents of quiz %s: %w", q.ID, err)
		}
		q.Contents = append(q.Contents, raw)
	}
	return q, nil
}

type QuizStore struct {
	coll *mongo.Collection
}

func (s *QuizStore) ListByAuthor(ctx context.Context, author string, status models.QuizStatus, page, limit int) ([]models.Quiz, int64, error) {
	filter := bson.M{"author": author}
	if status != "" {
		filter["status"] = string(status)
	}
	return s.list(ctx, filter, page, limit)
}

func (s *QuizStore) ListByParticipant(ctx context.Context, email string, page, limit int) ([]models.Quiz, int64, error) {
	return s.list(ctx, bson.M{"participants": bson.M{"$in": bson.A{email}}}, page, limit)
}

func (s *QuizStore) list(ctx context.Context, filter bson.M, page, limit int) ([]models.Quiz, int64, error) {
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}

	skip, take := repository.Window(page, limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(take))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}
	var docs []quizDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}

	quizzes := make([]models.Quiz, 0, len(docs))
	for _, d := range docs {
		q, err := d.toModel()
		if err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, nil
}

func (s *QuizStore) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	oid, err := parseKey(id)
	if err != nil {
		return nil, err
	}
	var doc quizDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	q, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *QuizStore) Insert(ctx context.Context, quiz *models.Quiz) (*models.Quiz, error) {
	doc, err := newQuizDoc(quiz)
	if err != nil {
		return nil, err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}
	stored := *quiz
	stored.ID = doc.ID.Hex()
	return &stored, nil
}

func (s *QuizStore) Update(ctx context.Context, id string, upd models.QuizUpdate, opts models.UpdateOptions) (*models.UpdateResult, error) {
	oid, err := parseKey(id)
	if err != nil {
		return nil, err
	}

	var update bson.M
	switch upd.Mode {
	case models.AppendContent:
		item, err := jsonValue(upd.Item)
		if err != nil {
			return nil, err
		}
		update = bson.M{"$push": bson.M{"contents": item}}
	case models.AppendParticipant:
		update = bson.M{"$push": bson.M{"participants": upd.Participant}}
	default:
		set, err := setFields(upd.Fields)
		if err != nil {
			return nil, err
		}
		if len(set) == 0 {
			return nil, models.ErrEmptyPatch
		}
		update = bson.M{"$set": set}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update, options.Update().SetUpsert(opts.CreateIfMissing))
	if err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return updateResult(res), nil
}

func (s *QuizStore) Delete(ctx context.Context, id string) (*models.DeleteResult, error) {
	oid, err := parseKey(id)
	if err != nil {
		return nil, err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("delete quiz: %w", err)
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}
