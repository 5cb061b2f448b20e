package gormstore

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"dodje/models"
	"dodje/progression"
)

func parcoursRecord(row models.UserParcoursStatus) *progression.Record {
	return &progression.Record{
		UserID:    row.UserID,
		Kind:      progression.KindParcours,
		EntityID:  row.ParcoursID,
		Domain:    row.Domain,
		Status:    progression.Status(row.Status),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func parcoursRow(rec progression.Record) models.UserParcoursStatus {
	return models.UserParcoursStatus{
		UserID:     rec.UserID,
		ParcoursID: rec.EntityID,
		Domain:     rec.Domain,
		Status:     string(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func videoRecord(row models.UserVideoStatus) (*progression.Record, error) {
	rec := &progression.Record{
		UserID:     row.UserID,
		Kind:       progression.KindVideo,
		EntityID:   row.VideoID,
		ParcoursID: row.ParcoursID,
		Status:     progression.Status(row.Status),
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
	if row.RecordedAt == nil && len(row.History) == 0 {
		return rec, nil
	}
	rec.Video = &progression.VideoProgress{
		CurrentTime: row.Position,
		Duration:    row.Duration,
		Percentage:  row.Percentage,
	}
	if row.RecordedAt != nil {
		rec.Video.RecordedAt = row.RecordedAt.UTC()
	}
	if len(row.History) > 0 {
		if err := json.Unmarshal(row.History, &rec.Video.History); err != nil {
			return nil, errors.Wrapf(err, "decode watch history of %s", row.VideoID)
		}
	}
	return rec, nil
}

func videoRow(rec progression.Record) (models.UserVideoStatus, error) {
	row := models.UserVideoStatus{
		UserID:     rec.UserID,
		VideoID:    rec.EntityID,
		ParcoursID: rec.ParcoursID,
		Status:     string(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if v := rec.Video; v != nil {
		row.Position = v.CurrentTime
		row.Duration = v.Duration
		row.Percentage = v.Percentage
		if !v.RecordedAt.IsZero() {
			at := v.RecordedAt
			row.RecordedAt = &at
		}
		if len(v.History) > 0 {
			raw, err := json.Marshal(v.History)
			if err != nil {
				return row, errors.Wrap(err, "encode watch history")
			}
			row.History = datatypes.JSON(raw)
		}
	}
	return row, nil
}

func quizRecord(row models.UserQuizStatus, attempts []models.QuizAttempt) (*progression.Record, error) {
	rec := &progression.Record{
		UserID:     row.UserID,
		Kind:       progression.KindQuiz,
		EntityID:   row.QuizID,
		ParcoursID: row.ParcoursID,
		Status:     progression.Status(row.Status),
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
	if row.Attempts == 0 && len(attempts) == 0 {
		return rec, nil
	}
	rec.Quiz = &progression.QuizProgress{
		Summary: progression.QuizSummary{
			Attempts:       row.Attempts,
			BestScore:      row.BestScore,
			AverageScore:   row.AverageScore,
			SuccessRate:    row.SuccessRate,
			TotalTimeSpent: time.Duration(row.TotalTimeSpent * float64(time.Second)),
		},
	}
	for _, a := range attempts {
		att := progression.QuizAttempt{
			ID:              a.AttemptKey,
			SubmittedAt:     a.SubmittedAt.UTC(),
			TotalQuestions:  a.TotalQuestions,
			CorrectAnswers:  a.CorrectAnswers,
			ScorePercentage: a.ScorePercentage,
			Passed:          a.Passed,
			Duration:        time.Duration(a.DurationSeconds * float64(time.Second)),
		}
		if len(a.Answers) > 0 {
			if err := json.Unmarshal(a.Answers, &att.Answers); err != nil {
				return nil, errors.Wrapf(err, "decode answers of attempt %d", a.ID)
			}
		}
		rec.Quiz.Attempts = append(rec.Quiz.Attempts, att)
	}
	return rec, nil
}

func quizRow(rec progression.Record) models.UserQuizStatus {
	row := models.UserQuizStatus{
		UserID:     rec.UserID,
		QuizID:     rec.EntityID,
		ParcoursID: rec.ParcoursID,
		Status:     string(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if q := rec.Quiz; q != nil {
		row.Attempts = q.Summary.Attempts
		row.BestScore = q.Summary.BestScore
		row.AverageScore = q.Summary.AverageScore
		row.SuccessRate = q.Summary.SuccessRate
		row.TotalTimeSpent = q.Summary.TotalTimeSpent.Seconds()
	}
	return row
}

func attemptRow(userID, quizID string, a progression.QuizAttempt) (models.QuizAttempt, error) {
	row := models.QuizAttempt{
		UserID:          userID,
		QuizID:          quizID,
		AttemptKey:      a.ID,
		SubmittedAt:     a.SubmittedAt,
		TotalQuestions:  a.TotalQuestions,
		CorrectAnswers:  a.CorrectAnswers,
		ScorePercentage: a.ScorePercentage,
		Passed:          a.Passed,
		DurationSeconds: a.Duration.Seconds(),
	}
	if len(a.Answers) > 0 {
		raw, err := json.Marshal(a.Answers)
		if err != nil {
			return row, errors.Wrap(err, "encode answers")
		}
		row.Answers = datatypes.JSON(raw)
	}
	return row, nil
}
