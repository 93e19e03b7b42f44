package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"quizzy/middleware"
	"quizzy/models"
	"quizzy/services"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *services.QuizService
}

func NewQuizHandler(quizService *services.QuizService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
	}
}

func listRequest(c *gin.Context, email string) services.ListQuizzesRequest {
	return services.ListQuizzesRequest{
		Email:  email,
		Status: c.Query("status"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
}

func (h *QuizHandler) ListAuthored(c *gin.Context) {
	page, err := h.quizService.ListAuthored(c.Request.Context(), middleware.IdentityFrom(c), listRequest(c, c.Query("email")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *QuizHandler) ListParticipated(c *gin.Context) {
	req := listRequest(c, c.Param("email"))
	req.Status = ""
	page, err := h.quizService.ListParticipated(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.quizService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		respondError(c, badBody(err))
		return
	}

	created, err := h.quizService.Create(c.Request.Context(), &quiz)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	patch, err := readObject(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.quizService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	res, err := h.quizService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
