package progressController

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"dodje/logger"
	"dodje/middleware"
	"dodje/progression"
	"dodje/realtime"
	progressValidator "dodje/validators/progress"
)

// Controller serves the progression endpoints.
type Controller struct {
	coordinator *progression.Coordinator
	seeder      *progression.InitializationService
	hub         *realtime.Hub
	timeout     time.Duration
	log         *logger.Logger
}

func New(coordinator *progression.Coordinator, seeder *progression.InitializationService, hub *realtime.Hub, timeout time.Duration, baseLog *logger.Logger) *Controller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Controller{
		coordinator: coordinator,
		seeder:      seeder,
		hub:         hub,
		timeout:     timeout,
		log:         baseLog.With("controller", "progress"),
	}
}

// writeContext detaches activity writes from the client connection: a player
// that disconnects mid-cascade must not leave the cascade half done.
func (h *Controller) writeContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.UserContext()), h.timeout)
}

// InitProgress seeds the user's statuses from the catalog
func (h *Controller) InitProgress(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	ctx, cancel := h.writeContext(c)
	defer cancel()

	if err := h.seeder.InitializeUser(ctx, userID); err != nil {
		return h.fail(c, err, "Failed to initialise progress!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress initialised!", nil)
}

// RecordVideoProgress stores a playback tick
func (h *Controller) RecordVideoProgress(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	reqData, ok := c.Locals("validatedVideoProgress").(*progressValidator.VideoProgressRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	snap := progression.VideoSnapshot{
		CurrentTime: *reqData.CurrentTime,
		Duration:    reqData.Duration,
		SessionID:   reqData.SessionID,
	}
	if reqData.RecordedAt != nil {
		snap.RecordedAt = reqData.RecordedAt.UTC()
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()
	rec, err := h.coordinator.RecordVideoProgress(ctx, userID, c.Params("video_id"), reqData.ParcoursID, snap)
	if err != nil {
		return h.fail(c, err, "Failed to record video progress!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Video progress recorded!", rec)
}

// RecordQuizAttempt stores a graded quiz submission
func (h *Controller) RecordQuizAttempt(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	reqData, ok := c.Locals("validatedQuizAttempt").(*progressValidator.QuizAttemptRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	result := progression.QuizResult{
		AttemptID:        reqData.AttemptID,
		TotalQuestions:   reqData.TotalQuestions,
		CorrectAnswers:   reqData.CorrectAnswers,
		TimeSpentSeconds: reqData.TimeSpentSeconds,
	}
	for _, a := range reqData.Answers {
		result.Answers = append(result.Answers, progression.QuestionAnswer{QuestionID: a.QuestionID, Answer: a.Answer, Correct: a.Correct})
	}
	if reqData.SubmittedAt != nil {
		result.SubmittedAt = reqData.SubmittedAt.UTC()
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()
	rec, err := h.coordinator.RecordQuizAttempt(ctx, userID, c.Params("quiz_id"), reqData.ParcoursID, result)
	if err != nil {
		return h.fail(c, err, "Failed to record quiz attempt!")
	}

	message := "Quiz attempt recorded!"
	if rec.Status == progression.StatusCompleted {
		message = "Quiz passed!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, rec)
}

// GetStatus returns the user's status on one entity
func (h *Controller) GetStatus(c *fiber.Ctx) error {
	kind, err := progression.ParseKind(c.Params("kind"))
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"kind": "Kind must be parcours, video or quiz!"})
	}
	rec, err := h.coordinator.Status(c.UserContext(), middleware.UserID(c), kind, c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch status!")
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Status fetched!", rec)
}

// GetParcoursVideos lists the user's video statuses inside a parcours
func (h *Controller) GetParcoursVideos(c *fiber.Ctx) error {
	recs, err := h.coordinator.ListStatuses(c.UserContext(), middleware.UserID(c), progression.KindVideo, progression.FieldParcoursID, c.Params("parcours_id"))
	if err != nil {
		return h.fail(c, err, "Failed to fetch video statuses!")
	}
	if recs == nil {
		recs = []progression.Record{}
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Video statuses fetched!", recs)
}

// GetParcoursByStatus lists the user's parcours in the given status
func (h *Controller) GetParcoursByStatus(c *fiber.Ctx) error {
	status, err := progression.ParseStatus(c.Query("status", string(progression.StatusUnblocked)))
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"status": "Unknown status!"})
	}
	recs, err := h.coordinator.ListStatuses(c.UserContext(), middleware.UserID(c), progression.KindParcours, progression.FieldStatus, string(status))
	if err != nil {
		return h.fail(c, err, "Failed to fetch parcours statuses!")
	}
	if recs == nil {
		recs = []progression.Record{}
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Parcours statuses fetched!", recs)
}

// RetryReward pays a completed parcours reward that was not recorded
func (h *Controller) RetryReward(c *fiber.Ctx) error {
	ctx, cancel := h.writeContext(c)
	defer cancel()
	granted, err := h.coordinator.RetryParcoursReward(ctx, middleware.UserID(c), c.Params("parcours_id"))
	if err != nil {
		return h.fail(c, err, "Failed to grant reward!")
	}
	message := "Reward already granted!"
	if granted {
		message = "Reward granted!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, fiber.Map{"granted": granted})
}

// StreamEvents pushes the user's status changes as server-sent events
func (h *Controller) StreamEvents(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	events, unsubscribe := h.hub.Subscribe(userID)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ping := time.NewTicker(25 * time.Second)
		defer ping.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				raw, err := json.Marshal(ev)
				if err != nil {
					h.log.Warn("Failed to encode status event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: status\ndata: %s\n\n", raw)
			case <-ping.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

// fail maps progression errors onto the response envelope: bad input is a
// 422, everything else a logged 500.
func (h *Controller) fail(c *fiber.Ctx, err error, message string) error {
	var invalid *progression.InvalidInputError
	if errors.As(err, &invalid) {
		field := invalid.Field
		if field == "" {
			field = "request"
		}
		return middleware.ValidationErrorResponse(c, map[string]string{field: invalid.Reason})
	}
	h.log.Error(message, "userId", middleware.UserID(c), "path", c.Path(), "error", err)
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, message, nil)
}
