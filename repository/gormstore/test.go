package gormstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quizzy/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// testRow is unique per (quiz_id, email); the index is what makes a second
// attempt fail even when two creates race. Empty values are stored as NULL so
// tests created by upsert, which carry no pair yet, never collide.
type testRow struct {
	ID        string  `gorm:"primaryKey;size:36"`
	QuizID    *string `gorm:"size:64;uniqueIndex:idx_tests_quiz_email"`
	Email     *string `gorm:"size:320;uniqueIndex:idx_tests_quiz_email;index:idx_tests_email"`
	Contents  datatypes.JSON
	Extra     datatypes.JSONMap
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (testRow) TableName() string { return "tests" }

func newTestRow(t *models.Test) (testRow, error) {
	contents := t.Contents
	if contents == nil {
		contents = []map[string]any{}
	}
	c, err := json.Marshal(contents)
	if err != nil {
		return testRow{}, err
	}
	return testRow{
		ID:        t.ID,
		QuizID:    nullable(t.QuizID),
		Email:     nullable(t.Email),
		Contents:  datatypes.JSON(c),
		Extra:     datatypes.JSONMap(t.Extra),
		CreatedAt: t.CreatedAt,
	}, nil
}

func (r testRow) toModel() (models.Test, error) {
	t := models.Test{
		ID:        r.ID,
		QuizID:    deref(r.QuizID),
		Email:     deref(r.Email),
		CreatedAt: r.CreatedAt,
		Extra:     map[string]any(r.Extra),
	}
	if len(r.Contents) > 0 {
		if err := json.Unmarshal(r.Contents, &t.Contents); err != nil {
			return models.Test{}, fmt.Errorf("decode contents of test %s: %w", r.ID, err)
		}
	}
	return t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type TestStore struct {
	db *gorm.DB
}

func (s *TestStore) FindExisting(ctx context.Context, quizID, email string) (*models.Test, error) {
	var row testRow
	err := s.db.WithContext(ctx).Where("quiz_id = ? AND email = ?", quizID, email).First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	t, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TestStore) Create(ctx context.Context, test *models.Test) (*models.Test, error) {
	stored := *test
	stored.ID = uuid.NewString()
	row, err := newTestRow(&stored)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.ErrDuplicateAttempt
		}
		return nil, fmt.Errorf("insert test: %w", err)
	}
	stored.CreatedAt = row.CreatedAt
	return &stored, nil
}

func (s *TestStore) GetByID(ctx context.Context, id string) (*models.Test, error) {
	if err := parseKey(id); err != nil {
		return nil, err
	}
	var row testRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	t, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TestStore) ListByTaker(ctx context.Context, email string) ([]models.Test, error) {
	var rows []testRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	tests := make([]models.Test, 0, len(rows))
	for _, row := range rows {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, nil
}

func (s *TestStore) RecordAnswer(ctx context.Context, id string, upd models.TestUpdate, opts models.UpdateOptions) (*models.UpdateResult, error) {
	if err := parseKey(id); err != nil {
		return nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	var res *models.UpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row testRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !opts.CreateIfMissing {
				res = &models.UpdateResult{Acknowledged: true}
				return nil
			}
			test := models.Test{ID: id}
			if err := applyTestUpdate(&test, upd); err != nil {
				return err
			}
			created, err := newTestRow(&test)
			if err != nil {
				return err
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
			res = upserted(id)
			return nil
		}
		if err != nil {
			return err
		}

		test, err := row.toModel()
		if err != nil {
			return err
		}
		before, _ := json.Marshal(test)
		if err := applyTestUpdate(&test, upd); err != nil {
			return err
		}
		after, _ := json.Marshal(test)

		res = &models.UpdateResult{Acknowledged: true, MatchedCount: 1}
		if bytes.Equal(before, after) {
			return nil
		}

		next, err := newTestRow(&test)
		if err != nil {
			return err
		}
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		res.ModifiedCount = 1
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.ErrDuplicateAttempt
		}
		return nil, err
	}
	return res, nil
}

func applyTestUpdate(t *models.Test, upd models.TestUpdate) error {
	if err := t.ApplyFields(upd.Fields); err != nil {
		return err
	}
	if upd.Question != nil {
		t.MarkAnswered(*upd.Question)
	}
	return nil
}
