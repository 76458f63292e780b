package services

import (
	"math"

	"academyapp/internal/models"
)

// ScoreSummary partitions the questions of one graded attempt. Every question
// index lands in exactly one of the three buckets.
type ScoreSummary struct {
	Score        int   `json:"score"`
	Total        int   `json:"total"`
	Correct      []int `json:"correct"`
	Wrong        []int `json:"wrong"`
	NotAttempted []int `json:"not_attempted"`
	Threshold    int   `json:"threshold"`
	Passed       bool  `json:"passed"`
}

// PassThreshold returns the minimum passing score for a quiz of the given
// size: ceil(ratio × total). A 9-question quiz at 0.8 requires 8.
func PassThreshold(total int, ratio float64) int {
	return int(math.Ceil(ratio * float64(total)))
}

// ScoreQuiz grades one set of answers against the quiz. Answers are compared
// by exact string match; a nil answer counts as not attempted. The answers
// slice may be shorter than the question list.
func ScoreQuiz(quiz *models.Quiz, answers []*string, passRatio float64) ScoreSummary {
	total := len(quiz.Questions)
	summary := ScoreSummary{
		Total:     total,
		Threshold: PassThreshold(total, passRatio),
	}

	for i, q := range quiz.Questions {
		var answer *string
		if i < len(answers) {
			answer = answers[i]
		}
		switch {
		case answer == nil:
			summary.NotAttempted = append(summary.NotAttempted, i)
		case *answer == q.CorrectAnswer:
			summary.Correct = append(summary.Correct, i)
		default:
			summary.Wrong = append(summary.Wrong, i)
		}
	}

	summary.Score = len(summary.Correct)
	summary.Passed = summary.Score >= summary.Threshold
	return summary
}
