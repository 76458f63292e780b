package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestQuizRecord_AttemptsRemaining(t *testing.T) {
	rec := QuizRecord{}
	assert.Equal(t, 3, rec.AttemptsRemaining(3))

	rec.Attempts = []QuizAttempt{{Score: 2}, {Score: 5}}
	assert.Equal(t, 1, rec.AttemptsRemaining(3))

	rec.Attempts = append(rec.Attempts, QuizAttempt{Score: 1}, QuizAttempt{Score: 0})
	assert.Equal(t, 0, rec.AttemptsRemaining(3))
}

func TestQuizRecord_CanAttempt(t *testing.T) {
	rec := QuizRecord{}
	assert.True(t, rec.CanAttempt(3))

	rec.HasPassedQuiz = true
	assert.False(t, rec.CanAttempt(3), "passed quizzes accept no further attempts")

	rec = QuizRecord{Attempts: []QuizAttempt{{}, {}, {}}}
	assert.False(t, rec.CanAttempt(3), "exhausted attempts accept no further attempts")
}

func TestCourseProgress_CompletionPercent(t *testing.T) {
	p := CourseProgress{CompletedWeeks: []int{1, 2}}
	assert.InDelta(t, 50.0, p.CompletionPercent(4), 0.001)
	assert.Equal(t, 0.0, p.CompletionPercent(0))
	assert.Equal(t, 100.0, CourseProgress{CompletedWeeks: []int{1, 2, 3}}.CompletionPercent(2))
}

func TestCourseProgress_Lookups(t *testing.T) {
	p := CourseProgress{
		CompletedWeeks: []int{3, 1},
		VideoWatchCounts: map[string]map[string]int{
			"1": {"Intro": 4},
		},
		VideosWatchedOnce: map[string]map[string]bool{
			"1": {"Intro": true},
		},
		CompletedItems: map[string]WeekItems{
			"2": {Videos: []string{"Deep Dive"}},
		},
	}

	assert.True(t, p.HasCompletedWeek(1))
	assert.False(t, p.HasCompletedWeek(2))
	assert.Equal(t, []int{1, 3}, p.SortedCompletedWeeks())
	assert.Equal(t, 4, p.WatchCount(1, "Intro"))
	assert.Equal(t, 0, p.WatchCount(2, "Intro"))
	assert.True(t, p.WatchedOnce(1, "Intro"))
	assert.False(t, p.WatchedOnce(1, "Outro"))
	assert.True(t, p.ItemCompleted(2, ContentVideos, "Deep Dive"))
	assert.False(t, p.ItemCompleted(2, ContentReadings, "Deep Dive"))
}

func TestContentItem_UnmarshalYAML(t *testing.T) {
	var plain ContentItem
	require.NoError(t, yaml.Unmarshal([]byte(`"Chapter One"`), &plain))
	assert.Equal(t, ContentItemPlain, plain.Kind)
	assert.Equal(t, "Chapter One", plain.Title)

	var linked ContentItem
	require.NoError(t, yaml.Unmarshal([]byte(`{title: "Paper", url: "https://example.com/paper.pdf"}`), &linked))
	assert.Equal(t, ContentItemLinked, linked.Kind)
	assert.Equal(t, "Paper", linked.Title)
	assert.Equal(t, "https://example.com/paper.pdf", linked.URL)

	var bad ContentItem
	assert.Error(t, yaml.Unmarshal([]byte(`{url: "https://example.com"}`), &bad))
}

func TestContentItem_MarshalJSON(t *testing.T) {
	plain, err := json.Marshal(ContentItem{Kind: ContentItemPlain, Title: "Notes"})
	require.NoError(t, err)
	assert.JSONEq(t, `"Notes"`, string(plain))

	linked, err := json.Marshal(ContentItem{Kind: ContentItemLinked, Title: "Paper", URL: "https://x.test"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Paper","url":"https://x.test"}`, string(linked))
}

func TestWeek_TrackedItems(t *testing.T) {
	w := Week{
		Number:   1,
		Lessons:  []string{"L1"},
		Videos:   []string{"V1", "V2"},
		Readings: []ContentItem{{Kind: ContentItemPlain, Title: "R1"}},
	}
	items := w.TrackedItems()
	assert.Equal(t, []string{"L1"}, items[ContentLessons])
	assert.Equal(t, []string{"V1", "V2"}, items[ContentVideos])
	assert.Equal(t, []string{"R1"}, items[ContentReadings])
	_, hasAssignments := items[ContentAssignments]
	assert.False(t, hasAssignments)
}

func TestQuestion_CorrectAnswerHiddenFromJSON(t *testing.T) {
	q := Question{QuestionText: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"}
	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"4"`+`,`+`"correct`)
	assert.NotContains(t, string(data), "correct_answer")
}
