package progressValidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONName(t *testing.T) {
	assert.Equal(t, "totalQuestions", jsonName("QuizAttemptRequest.TotalQuestions"))
	assert.Equal(t, "parcoursId", jsonName("VideoProgressRequest.ParcoursID"))
	assert.Equal(t, "answers[1].questionId", jsonName("QuizAttemptRequest.Answers[1].QuestionID"))
}

func TestCheckQuizAttempt(t *testing.T) {
	errs := check(&QuizAttemptRequest{TotalQuestions: 4, CorrectAnswers: 3, Answers: []AnswerRecord{{Answer: "a"}}})
	assert.Equal(t, map[string]string{"answers[0].questionId": "QuestionID is required!"}, errs)

	errs = check(&QuizAttemptRequest{CorrectAnswers: -1, TimeSpentSeconds: -2})
	assert.Contains(t, errs, "totalQuestions")
	assert.Contains(t, errs, "correctAnswers")
	assert.Contains(t, errs, "timeSpentSeconds")

	assert.Empty(t, check(&QuizAttemptRequest{TotalQuestions: 4, CorrectAnswers: 4}))
}

func TestCheckVideoProgress(t *testing.T) {
	errs := check(&VideoProgressRequest{})
	assert.Equal(t, "CurrentTime is required!", errs["currentTime"])

	negative := -1.0
	errs = check(&VideoProgressRequest{CurrentTime: &negative})
	assert.Contains(t, errs, "currentTime")

	zero := 0.0
	assert.Empty(t, check(&VideoProgressRequest{CurrentTime: &zero}))
}
