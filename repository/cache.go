package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizzy/logger"
	"quizzy/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedQuizRepository keeps point lookups in redis. Writes to a key drop its
// cached copy; listings always go to the underlying store.
type CachedQuizRepository struct {
	QuizRepository
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedQuizRepository(inner QuizRepository, rdb *redis.Client, ttl time.Duration) *CachedQuizRepository {
	return &CachedQuizRepository{QuizRepository: inner, rdb: rdb, ttl: ttl}
}

func quizCacheKey(id string) string {
	return "quizzy:quiz:" + id
}

func (r *CachedQuizRepository) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	data, err := r.rdb.Get(ctx, quizCacheKey(id)).Bytes()
	if err == nil {
		var quiz models.Quiz
		if err := json.Unmarshal(data, &quiz); err == nil {
			return &quiz, nil
		}
		logger.Log.Warn("Dropping unreadable cached quiz", zap.String("id", id))
	} else if !errors.Is(err, redis.Nil) {
		logger.Log.Warn("Quiz cache read failed", zap.String("id", id), zap.Error(err))
	}

	quiz, err := r.QuizRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(quiz); err == nil {
		if err := r.rdb.Set(ctx, quizCacheKey(id), data, r.ttl).Err(); err != nil {
			logger.Log.Warn("Quiz cache write failed", zap.String("id", id), zap.Error(err))
		}
	}
	return quiz, nil
}

func (r *CachedQuizRepository) Update(ctx context.Context, id string, upd models.QuizUpdate, opts models.UpdateOptions) (*models.UpdateResult, error) {
	res, err := r.QuizRepository.Update(ctx, id, upd, opts)
	r.invalidate(ctx, id)
	return res, err
}

func (r *CachedQuizRepository) Delete(ctx context.Context, id string) (*models.DeleteResult, error) {
	res, err := r.QuizRepository.Delete(ctx, id)
	r.invalidate(ctx, id)
	return res, err
}

func (r *CachedQuizRepository) invalidate(ctx context.Context, id string) {
	if err := r.rdb.Del(ctx, quizCacheKey(id)).Err(); err != nil {
		logger.Log.Warn("Quiz cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}
