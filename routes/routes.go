package routes

import (
	"quizzy/handlers"
	"quizzy/middleware"
	"quizzy/services"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Quiz     *handlers.QuizHandler
	Test     *handlers.TestHandler
	Progress *handlers.ProgressHandler
	Health   *handlers.HealthHandler
}

func SetupRoutes(
	router *gin.Engine,
	h Handlers,
	authService *services.AuthService,
	policy services.AccessPolicy,
) {
	requireAuth := middleware.AuthMiddleware(authService)

	router.GET("/", h.Health.Welcome)
	router.GET("/health", h.Health.Health)
	router.GET("/metrics", middleware.PrometheusHandler())

	router.POST("/jwt", h.Auth.IssueToken)

	// Quiz listings
	router.GET("/quizzes", requireAuth, h.Quiz.ListAuthored)
	if policy.EnforceParticipantView {
		router.GET("/quizzes/:email", requireAuth, h.Quiz.ListParticipated)
	} else {
		router.GET("/quizzes/:email", h.Quiz.ListParticipated)
	}

	quiz := router.Group("/quiz")
	{
		quiz.POST("", h.Quiz.CreateQuiz)
		quiz.GET("/:id", h.Quiz.GetQuiz)
		quiz.PATCH("/:id", h.Quiz.UpdateQuiz)
		quiz.DELETE("/:id", h.Quiz.DeleteQuiz)
	}

	test := router.Group("/test")
	{
		test.POST("", h.Test.StartTest)
		test.GET("", h.Test.GetTests)
		test.GET("/:id", h.Test.GetTest)
		test.PATCH("/:id", h.Test.RecordAnswer)
	}

	// Live progress for a quiz; browsers pass the token as ?token=
	router.GET("/ws/quiz/:id", requireAuth, h.Progress.Watch)
}
