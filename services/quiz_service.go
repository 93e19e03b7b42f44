package services

import (
	"context"
	"encoding/json"
	"fmt"

	"quizzy/models"
	"quizzy/repository"
)

type QuizService struct {
	quizzes repository.QuizRepository
	policy  AccessPolicy
	opts    models.UpdateOptions
}

func NewQuizService(quizzes repository.QuizRepository, policy AccessPolicy, opts models.UpdateOptions) *QuizService {
	return &QuizService{quizzes: quizzes, policy: policy, opts: opts}
}

type ListQuizzesRequest struct {
	Email  string
	Status string
	Page   int
	Limit  int
}

// ListAuthored returns the caller's own quizzes. The policy check runs before
// the store is touched.
func (s *QuizService) ListAuthored(ctx context.Context, identity *models.Identity, req ListQuizzesRequest) (*models.QuizPage, error) {
	if err := s.policy.AuthorizeAuthorView(req.Email, identity); err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	quizzes, total, err := s.quizzes.ListByAuthor(ctx, req.Email, status, req.Page, req.Limit)
	if err != nil {
		return nil, err
	}
	return &models.QuizPage{Quizzes: quizzes, TotalCount: total}, nil
}

func (s *QuizService) ListParticipated(ctx context.Context, identity *models.Identity, req ListQuizzesRequest) (*models.QuizPage, error) {
	if err := s.policy.AuthorizeParticipantView(req.Email, identity); err != nil {
		return nil, err
	}
	quizzes, total, err := s.quizzes.ListByParticipant(ctx, req.Email, req.Page, req.Limit)
	if err != nil {
		return nil, err
	}
	return &models.QuizPage{Quizzes: quizzes, TotalCount: total}, nil
}

func (s *QuizService) Get(ctx context.Context, id string) (*models.Quiz, error) {
	return s.quizzes.GetByID(ctx, id)
}

func (s *QuizService) Create(ctx context.Context, quiz *models.Quiz) (*models.Quiz, error) {
	if quiz.Status == "" {
		quiz.Status = models.StatusPending
	}
	if !quiz.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, quiz.Status)
	}
	created, err := s.quizzes.Insert(ctx, quiz)
	if err != nil {
		return nil, err
	}
	quizWrites.WithLabelValues("create").Inc()
	return created, nil
}

// Update picks the patch shape: a truthy contents value is appended as one
// item, else a truthy participants value is appended as one identity, else
// every listed field is replaced.
func (s *QuizService) Update(ctx context.Context, id string, patch map[string]json.RawMessage) (*models.UpdateResult, error) {
	upd, err := decideQuizUpdate(patch)
	if err != nil {
		return nil, err
	}
	res, err := s.quizzes.Update(ctx, id, upd, s.opts)
	if err != nil {
		return nil, err
	}
	quizWrites.WithLabelValues(upd.Mode.String()).Inc()
	return res, nil
}

func (s *QuizService) Delete(ctx context.Context, id string) (*models.DeleteResult, error) {
	res, err := s.quizzes.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	quizWrites.WithLabelValues("delete").Inc()
	return res, nil
}

func decideQuizUpdate(patch map[string]json.RawMessage) (models.QuizUpdate, error) {
	if raw, ok := patch["contents"]; ok && truthy(raw) {
		return models.QuizUpdate{Mode: models.AppendContent, Item: raw}, nil
	}
	if raw, ok := patch["participants"]; ok && truthy(raw) {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			return models.QuizUpdate{}, fmt.Errorf("%w: participants must be a single identity", models.ErrBadRequest)
		}
		return models.QuizUpdate{Mode: models.AppendParticipant, Participant: email}, nil
	}

	fields := make(map[string]json.RawMessage, len(patch))
	for k, v := range patch {
		if k != "_id" {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return models.QuizUpdate{}, models.ErrEmptyPatch
	}
	var scratch models.Quiz
	if err := scratch.ApplyFields(fields); err != nil {
		return models.QuizUpdate{}, err
	}
	return models.QuizUpdate{Mode: models.ReplaceFields, Fields: fields}, nil
}

// truthy follows loose JSON truthiness: null, false, 0 and "" are falsy.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
