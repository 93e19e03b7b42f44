package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"quizzy/models"
	"quizzy/services"

	"github.com/gin-gonic/gin"
)

type TestHandler struct {
	testService *services.TestService
}

func NewTestHandler(testService *services.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

func (h *TestHandler) StartTest(c *gin.Context) {
	body, err := readObject(c)
	if err != nil {
		respondError(c, err)
		return
	}

	test, err := h.testService.Start(c.Request.Context(), services.StartTestRequest{
		QuizID: c.Query("quizId"),
		Email:  c.Query("email"),
		Body:   body,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GetTests looks one test up by id, or lists a taker's tests by email.
func (h *TestHandler) GetTests(c *gin.Context) {
	if id := c.Query("id"); id != "" {
		h.getByID(c, id)
		return
	}
	if email := c.Query("email"); email != "" {
		tests, err := h.testService.ListByTaker(c.Request.Context(), email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tests)
		return
	}
	respondError(c, fmt.Errorf("%w: id or email is required", models.ErrBadRequest))
}

func (h *TestHandler) GetTest(c *gin.Context) {
	h.getByID(c, c.Param("id"))
}

func (h *TestHandler) getByID(c *gin.Context, id string) {
	test, err := h.testService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

func (h *TestHandler) RecordAnswer(c *gin.Context) {
	fields, err := readObject(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var question *int
	if n, err := strconv.Atoi(c.Query("question")); err == nil && n >= 0 {
		question = &n
	}

	res, err := h.testService.RecordAnswer(c.Request.Context(), c.Param("id"), question, fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
