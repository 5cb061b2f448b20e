package progressRoutes

import (
	progressController "dodje/controllers/progress"
	"dodje/middleware"
	progressValidator "dodje/validators/progress"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressRoutes(app *fiber.App, ctrl *progressController.Controller) {
	progressGroup := app.Group("/progress", middleware.JWTMiddleware)

	progressGroup.Post("/init", ctrl.InitProgress)
	progressGroup.Post("/videos/:video_id/progress", progressValidator.VideoProgress(), ctrl.RecordVideoProgress)
	progressGroup.Post("/quizzes/:quiz_id/attempts", progressValidator.QuizAttempt(), ctrl.RecordQuizAttempt)

	progressGroup.Get("/events", ctrl.StreamEvents)
	progressGroup.Get("/parcours", ctrl.GetParcoursByStatus)
	progressGroup.Get("/parcours/:parcours_id/videos", ctrl.GetParcoursVideos)
	progressGroup.Post("/parcours/:parcours_id/reward", ctrl.RetryReward)
	progressGroup.Get("/:kind/:id", ctrl.GetStatus)
}
