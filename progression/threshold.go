package progression

import (
	"math"
	"time"
)

const (
	// VideoCompletionPercent is the watched share at which a video counts as seen.
	VideoCompletionPercent = 90.0
	// QuizPassingScore is the score percentage a quiz attempt needs to pass.
	QuizPassingScore = 70.0
)

// QuizScore is the outcome of grading one attempt.
type QuizScore struct {
	ScorePercentage float64
	Passed          bool
}

// VideoCompletion reports whether a watch percentage completes a video.
func VideoCompletion(percentage float64) bool {
	return percentage >= VideoCompletionPercent
}

// QuizCompletion grades correctAnswers out of totalQuestions against
// QuizPassingScore.
func QuizCompletion(correctAnswers, totalQuestions int) (QuizScore, error) {
	return QuizCompletionAt(correctAnswers, totalQuestions, QuizPassingScore)
}

// QuizCompletionAt grades against passingScore. A passingScore outside
// (0, 100] falls back to QuizPassingScore.
func QuizCompletionAt(correctAnswers, totalQuestions int, passingScore float64) (QuizScore, error) {
	if math.IsNaN(passingScore) || passingScore <= 0 || passingScore > 100 {
		passingScore = QuizPassingScore
	}
	if totalQuestions <= 0 {
		return QuizScore{}, invalid("totalQuestions", "must be greater than zero")
	}
	if correctAnswers < 0 {
		return QuizScore{}, invalid("correctAnswers", "must not be negative")
	}
	if correctAnswers > totalQuestions {
		return QuizScore{}, invalid("correctAnswers", "exceeds totalQuestions")
	}
	score := 100 * float64(correctAnswers) / float64(totalQuestions)
	return QuizScore{ScorePercentage: score, Passed: score >= passingScore}, nil
}

// VideoPercentage converts a playback position into a watched percentage in
// [0, 100].
func VideoPercentage(currentTime, duration float64) (float64, error) {
	if math.IsNaN(currentTime) || math.IsInf(currentTime, 0) || currentTime < 0 {
		return 0, invalid("currentTime", "must be a non-negative number")
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, invalid("duration", "must be greater than zero")
	}
	pct := 100 * currentTime / duration
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// SummarizeAttempts recomputes the quiz progress summary from the full attempt
// list.
func SummarizeAttempts(attempts []QuizAttempt) QuizSummary {
	sum := QuizSummary{Attempts: len(attempts)}
	if len(attempts) == 0 {
		return sum
	}
	var total float64
	passed := 0
	for _, a := range attempts {
		total += a.ScorePercentage
		if a.ScorePercentage > sum.BestScore {
			sum.BestScore = a.ScorePercentage
		}
		if a.Passed {
			passed++
		}
		sum.TotalTimeSpent += a.Duration
	}
	sum.AverageScore = total / float64(len(attempts))
	sum.SuccessRate = 100 * float64(passed) / float64(len(attempts))
	return sum
}

// QuizSummary aggregates every attempt of one user on one quiz.
type QuizSummary struct {
	Attempts       int           `json:"attempts"`
	BestScore      float64       `json:"bestScore"`
	AverageScore   float64       `json:"averageScore"`
	SuccessRate    float64       `json:"successRate"`
	TotalTimeSpent time.Duration `json:"totalTimeSpent"`
}
