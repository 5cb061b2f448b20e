package catalog

import "dodje/models"

// Rows converts p into the gorm rows stored by the catalog repository.
func (p Parcours) Rows() (models.Parcours, []models.Video, *models.Quiz) {
	row := models.Parcours{
		ID:          p.ID,
		Domain:      p.Domain,
		Level:       p.Level,
		SortOrder:   p.Order,
		Title:       p.Title,
		Description: p.Description,
	}
	videos := make([]models.Video, 0, len(p.Videos))
	for _, v := range p.Videos {
		videos = append(videos, models.Video{
			ID:         v.ID,
			ParcoursID: p.ID,
			SortOrder:  v.Order,
			Title:      v.Title,
			VideoURL:   v.URL,
			Duration:   v.Duration,
		})
	}
	var quiz *models.Quiz
	if p.Quiz != nil {
		row.QuizID = p.Quiz.ID
		quiz = &models.Quiz{
			ID:           p.Quiz.ID,
			ParcoursID:   p.ID,
			Title:        p.Quiz.Title,
			PassingScore: p.Quiz.PassingScore,
		}
	}
	return row, videos, quiz
}
