// Package repository defines the storage contracts for quizzes and tests.
// Implementations return models.ErrNotFound for absent documents and
// models.ErrInvalidID for keys they cannot parse; anything else is a
// persistence failure.
package repository

import (
	"context"
	"math"

	"quizzy/models"
)

const (
	DefaultPageSize = 10
	// MaxSkip caps the offset so page*limit cannot overflow.
	MaxSkip = math.MaxInt32
)

type QuizRepository interface {
	ListByAuthor(ctx context.Context, author string, status models.QuizStatus, page, limit int) ([]models.Quiz, int64, error)
	ListByParticipant(ctx context.Context, email string, page, limit int) ([]models.Quiz, int64, error)
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	Insert(ctx context.Context, quiz *models.Quiz) (*models.Quiz, error)
	Update(ctx context.Context, id string, upd models.QuizUpdate, opts models.UpdateOptions) (*models.UpdateResult, error)
	Delete(ctx context.Context, id string) (*models.DeleteResult, error)
}

type TestRepository interface {
	FindExisting(ctx context.Context, quizID, email string) (*models.Test, error)
	// Create fails with models.ErrDuplicateAttempt when a test for the same
	// (quizID, email) pair already exists.
	Create(ctx context.Context, test *models.Test) (*models.Test, error)
	GetByID(ctx context.Context, id string) (*models.Test, error)
	ListByTaker(ctx context.Context, email string) ([]models.Test, error)
	RecordAnswer(ctx context.Context, id string, upd models.TestUpdate, opts models.UpdateOptions) (*models.UpdateResult, error)
}

// Store bundles both repositories with the lifecycle of the backing connection.
type Store interface {
	Quizzes() QuizRepository
	Tests() TestRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Window converts page/limit into skip/take. An explicit page without a limit
// is ignored and the window starts at zero. The offset is clamped to MaxSkip.
func Window(page, limit int) (skip, take int) {
	if page > 0 && limit > 0 {
		if page > MaxSkip/limit {
			skip = MaxSkip
		} else {
			skip = page * limit
		}
	}
	take = DefaultPageSize
	if limit > 0 {
		take = limit
	}
	return skip, take
}
