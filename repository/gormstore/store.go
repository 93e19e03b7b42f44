// Package gormstore keeps quizzes and tests in a SQL database through gorm.
// Document-shaped fields (contents, participants, author-supplied extras) live
// in JSON columns.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"quizzy/models"
	"quizzy/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	db      *gorm.DB
	quizzes *QuizStore
	tests   *TestStore
}

var _ repository.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		quizzes: &QuizStore{db: db},
		tests:   &TestStore{db: db},
	}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&quizRow{}, &testRow{})
}

func (s *Store) Quizzes() repository.QuizRepository { return s.quizzes }

func (s *Store) Tests() repository.TestRepository { return s.tests }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseKey(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", models.ErrInvalidID, id)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

func upserted(id string) *models.UpdateResult {
	return &models.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: &id}
}
