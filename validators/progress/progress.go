package progressValidator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"dodje/middleware"
)

var validate = validator.New()

// VideoProgressRequest is one playback tick posted by the player.
type VideoProgressRequest struct {
	ParcoursID  string     `json:"parcoursId" validate:"omitempty,max=64"`
	CurrentTime *float64   `json:"currentTime" validate:"required,gte=0"`
	Duration    float64    `json:"duration" validate:"gte=0"`
	SessionID   string     `json:"sessionId" validate:"omitempty,max=64"`
	RecordedAt  *time.Time `json:"recordedAt"`
}

// QuizAttemptRequest is one graded quiz submission.
type QuizAttemptRequest struct {
	ParcoursID       string         `json:"parcoursId" validate:"omitempty,max=64"`
	AttemptID        string         `json:"attemptId" validate:"omitempty,max=64"`
	TotalQuestions   int            `json:"totalQuestions" validate:"required,gt=0"`
	CorrectAnswers   int            `json:"correctAnswers" validate:"gte=0,ltefield=TotalQuestions"`
	TimeSpentSeconds float64        `json:"timeSpentSeconds" validate:"gte=0"`
	Answers          []AnswerRecord `json:"answers" validate:"dive"`
	SubmittedAt      *time.Time     `json:"submittedAt"`
}

type AnswerRecord struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer"`
	Correct    bool   `json:"correct"`
}

// VideoProgress validates a playback tick
func VideoProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(VideoProgressRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if strings.TrimSpace(c.Params("video_id")) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{"videoId": "Video ID is required!"})
		}
		if errs := check(reqData); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}

		c.Locals("validatedVideoProgress", reqData)
		return c.Next()
	}
}

// QuizAttempt validates a quiz submission
func QuizAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(QuizAttemptRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if strings.TrimSpace(c.Params("quiz_id")) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{"quizId": "Quiz ID is required!"})
		}
		errs := check(reqData)
		if len(reqData.Answers) > reqData.TotalQuestions && reqData.TotalQuestions > 0 {
			errs["answers"] = "More answers than questions!"
		}
		if len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}

		c.Locals("validatedQuizAttempt", reqData)
		return c.Next()
	}
}

// check runs the struct tags and keys failures by json field name.
func check(req interface{}) map[string]string {
	out := make(map[string]string)
	err := validate.Struct(req)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[jsonName(fe.StructNamespace())] = message(fe)
	}
	return out
}

// jsonName turns "QuizAttemptRequest.Answers[0].QuestionID" into
// "answers[0].questionId".
func jsonName(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		p = strings.Replace(p, "ID", "Id", 1)
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required!", fe.Field())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s!", fe.Field(), map[string]string{"gt": "greater than", "gte": "at least"}[fe.Tag()], fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s!", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long!", fe.Field())
	}
	return fmt.Sprintf("%s is invalid!", fe.Field())
}
