package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizzy/logger"
	"quizzy/models"
	"quizzy/repository"

	"go.uber.org/zap"
)

type TestService struct {
	tests    repository.TestRepository
	quizzes  repository.QuizRepository
	notifier Notifier
	opts     models.UpdateOptions
}

func NewTestService(tests repository.TestRepository, quizzes repository.QuizRepository, notifier Notifier, opts models.UpdateOptions) *TestService {
	return &TestService{tests: tests, quizzes: quizzes, notifier: notifier, opts: opts}
}

// StartTestRequest carries the query identity of the attempt; Body holds any
// document fields. Query values win over body values.
type StartTestRequest struct {
	QuizID string
	Email  string
	Body   map[string]json.RawMessage
}

// Start creates the single attempt a taker gets for a quiz. Without contents
// in the body the quiz's contents are copied in, all unanswered.
func (s *TestService) Start(ctx context.Context, req StartTestRequest) (*models.Test, error) {
	var test models.Test
	if err := test.ApplyFields(req.Body); err != nil {
		return nil, err
	}
	if req.QuizID != "" {
		test.QuizID = req.QuizID
	}
	if req.Email != "" {
		test.Email = req.Email
	}
	if test.QuizID == "" || test.Email == "" {
		return nil, fmt.Errorf("%w: quizId and email are required", models.ErrBadRequest)
	}

	_, err := s.tests.FindExisting(ctx, test.QuizID, test.Email)
	switch {
	case err == nil:
		duplicateAttempts.Inc()
		return nil, models.ErrDuplicateAttempt
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	if _, ok := req.Body["contents"]; !ok {
		quiz, err := s.quizzes.GetByID(ctx, test.QuizID)
		if err != nil {
			return nil, err
		}
		test.Contents = models.SnapshotContents(quiz.Contents)
	}

	created, err := s.tests.Create(ctx, &test)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateAttempt) {
			duplicateAttempts.Inc()
		}
		return nil, err
	}
	testsStarted.Inc()

	if s.notifier != nil {
		s.notifier.Publish(created.QuizID, EventTestStarted, map[string]any{
			"testId": created.ID,
			"email":  created.Email,
		})
	}
	return created, nil
}

func (s *TestService) Get(ctx context.Context, id string) (*models.Test, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *TestService) ListByTaker(ctx context.Context, email string) ([]models.Test, error) {
	return s.tests.ListByTaker(ctx, email)
}

// RecordAnswer flags contents[question] as answered when question is set, and
// replaces any listed fields.
func (s *TestService) RecordAnswer(ctx context.Context, id string, question *int, fields map[string]json.RawMessage) (*models.UpdateResult, error) {
	upd := models.TestUpdate{Question: question, Fields: fields}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	res, err := s.tests.RecordAnswer(ctx, id, upd, s.opts)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return res, nil
	}
	answersRecorded.Inc()

	if s.notifier != nil && res.MatchedCount+res.UpsertedCount > 0 {
		test, err := s.tests.GetByID(ctx, id)
		if err != nil {
			logger.Log.Warn("Skipping progress event", zap.String("test", id), zap.Error(err))
			return res, nil
		}
		s.notifier.Publish(test.QuizID, EventAnswerRecorded, map[string]any{
			"testId":   test.ID,
			"email":    test.Email,
			"question": *question,
		})
	}
	return res, nil
}
