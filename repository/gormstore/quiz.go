package gormstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quizzy/models"
	"quizzy/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type quizRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Author       string `gorm:"index;not null;default:''"`
	Status       string `gorm:"index;size:16;not null;default:''"`
	Contents     datatypes.JSON
	Participants datatypes.JSON
	Extra        datatypes.JSONMap
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (quizRow) TableName() string { return "quizzes" }

func newQuizRow(q *models.Quiz) (quizRow, error) {
	contents := q.Contents
	if contents == nil {
		contents = []json.RawMessage{}
	}
	c, err := json.Marshal(contents)
	if err != nil {
		return quizRow{}, err
	}
	participants := q.Participants
	if participants == nil {
		participants = []string{}
	}
	p, err := json.Marshal(participants)
	if err != nil {
		return quizRow{}, err
	}
	return quizRow{
		ID:           q.ID,
		Author:       q.Author,
		Status:       string(q.Status),
		Contents:     datatypes.JSON(c),
		Participants: datatypes.JSON(p),
		Extra:        datatypes.JSONMap(q.Extra),
	}, nil
}

func (r quizRow) toModel() (models.Quiz, error) {
	q := models.Quiz{
		ID:     r.ID,
		Author: r.Author,
		Status: models.QuizStatus(r.Status),
		Extra:  map[string]any(r.Extra),
	}
	if len(r.Contents) > 0 {
		if err := json.Unmarshal(r.Contents, &q.Contents); err != nil {
			return models.Quiz{}, fmt.Errorf("decode contents of quiz %s: %w", r.ID, err)
		}
	}
	if len(r.Participants) > 0 {
		if err := json.Unmarshal(r.Participants, &q.Participants); err != nil {
			return models.Quiz{}, fmt.Errorf("decode participants of quiz %s: %w", r.ID, err)
		}
	}
	return q, nil
}

type QuizStore struct {
	db *gorm.DB
}

func (s *QuizStore) ListByAuthor(ctx context.Context, author string, status models.QuizStatus, page, limit int) ([]models.Quiz, int64, error) {
	return s.list(ctx, page, limit, func(db *gorm.DB) *gorm.DB {
		db = db.Where("author = ?", author)
		if status != "" {
			db = db.Where("status = ?", string(status))
		}
		return db
	})
}

func (s *QuizStore) ListByParticipant(ctx context.Context, email string, page, limit int) ([]models.Quiz, int64, error) {
	return s.list(ctx, page, limit, func(db *gorm.DB) *gorm.DB {
		return participantFilter(db, email)
	})
}

func participantFilter(db *gorm.DB, email string) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		needle, _ := json.Marshal([]string{email})
		return db.Where("participants @> ?::jsonb", string(needle))
	}
	return db.Where("EXISTS (SELECT 1 FROM json_each(quizzes.participants) WHERE json_each.value = ?)", email)
}

func (s *QuizStore) list(ctx context.Context, page, limit int, filter func(*gorm.DB) *gorm.DB) ([]models.Quiz, int64, error) {
	base := func() *gorm.DB {
		return filter(s.db.WithContext(ctx).Model(&quizRow{}))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}

	skip, take := repository.Window(page, limit)
	var rows []quizRow
	if err := base().Order("created_at, id").Offset(skip).Limit(take).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}

	quizzes := make([]models.Quiz, 0, len(rows))
	for _, row := range rows {
		q, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, nil
}

func (s *QuizStore) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	if err := parseKey(id); err != nil {
		return nil, err
	}
	var row quizRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	q, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *QuizStore) Insert(ctx context.Context, quiz *models.Quiz) (*models.Quiz, error) {
	stored := *quiz
	stored.ID = uuid.NewString()
	row, err := newQuizRow(&stored)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}
	return &stored, nil
}

func (s *QuizStore) Update(ctx context.Context, id string, upd models.QuizUpdate, opts models.UpdateOptions) (*models.UpdateResult, error) {
	if err := parseKey(id); err != nil {
		return nil, err
	}
	if upd.Mode == models.ReplaceFields && len(upd.Fields) == 0 {
		return nil, models.ErrEmptyPatch
	}

	var res *models.UpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row quizRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !opts.CreateIfMissing {
				res = &models.UpdateResult{Acknowledged: true}
				return nil
			}
			quiz := models.Quiz{ID: id}
			if err := applyQuizUpdate(&quiz, upd); err != nil {
				return err
			}
			created, err := newQuizRow(&quiz)
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

		quiz, err := row.toModel()
		if err != nil {
			return err
		}
		before, _ := json.Marshal(quiz)
		if err := applyQuizUpdate(&quiz, upd); err != nil {
			return err
		}
		after, _ := json.Marshal(quiz)

		res = &models.UpdateResult{Acknowledged: true, MatchedCount: 1}
		if bytes.Equal(before, after) {
			return nil
		}

		next, err := newQuizRow(&quiz)
		if err != nil {
			return err
		}
		next.CreatedAt = row.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		res.ModifiedCount = 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func applyQuizUpdate(q *models.Quiz, upd models.QuizUpdate) error {
	switch upd.Mode {
	case models.AppendContent:
		q.Contents = append(q.Contents, upd.Item)
	case models.AppendParticipant:
		q.Participants = append(q.Participants, upd.Participant)
	default:
		return q.ApplyFields(upd.Fields)
	}
	return nil
}

func (s *QuizStore) Delete(ctx context.Context, id string) (*models.DeleteResult, error) {
	if err := parseKey(id); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Delete(&quizRow{}, "id = ?", id)
	if tx.Error != nil {
		return nil, fmt.Errorf("delete quiz: %w", tx.Error)
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: tx.RowsAffected}, nil
}
