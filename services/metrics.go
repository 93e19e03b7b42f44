package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quizWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzy_quiz_writes_total",
			Help: "Quiz writes by operation",
		},
		[]string{"op"},
	)

	testsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizzy_tests_started_total",
		Help: "Test attempts created",
	})

	duplicateAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizzy_duplicate_attempts_total",
		Help: "Test starts rejected because an attempt already exists",
	})

	answersRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizzy_answers_recorded_total",
		Help: "Test updates that flagged a question as answered",
	})
)
