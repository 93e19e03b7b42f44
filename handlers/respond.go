package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"quizzy/logger"
	"quizzy/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrInvalidID),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrEmptyPatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrDuplicateAttempt):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

// queryInt reads a non-negative integer query value; anything else is 0.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// readObject decodes an optional JSON object body. An empty body is nil.
func readObject(c *gin.Context) (map[string]json.RawMessage, error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, badBody(err)
	}
	return obj, nil
}

func badBody(err error) error {
	if errors.Is(err, models.ErrInvalidStatus) || errors.Is(err, models.ErrBadRequest) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
}
