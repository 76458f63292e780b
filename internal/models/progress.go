package models

import (
	"sort"
	"strconv"
)

// ContentType identifies a category of week content.
type ContentType string

// Content types tracked per week.
const (
	ContentLessons     ContentType = "lessons"
	ContentVideos      ContentType = "videos"
	ContentReadings    ContentType = "readings"
	ContentAssignments ContentType = "assignments"
)

// WeekItems holds the sets of item titles marked complete for one week,
// grouped by content type.
type WeekItems struct {
	Lessons     []string `json:"lessons,omitempty" bson:"lessons,omitempty"`
	Videos      []string `json:"videos,omitempty" bson:"videos,omitempty"`
	Readings    []string `json:"readings,omitempty" bson:"readings,omitempty"`
	Assignments []string `json:"assignments,omitempty" bson:"assignments,omitempty"`
}

// ForType returns the completed titles for one content type.
func (w WeekItems) ForType(ct ContentType) []string {
	switch ct {
	case ContentLessons:
		return w.Lessons
	case ContentVideos:
		return w.Videos
	case ContentReadings:
		return w.Readings
	case ContentAssignments:
		return w.Assignments
	}
	return nil
}

// CourseProgress is the per-user completion state for one enrolled course.
// Map keys for weeks are decimal strings because they live in document field
// paths.
type CourseProgress struct {
	// CompletedWeeks grows monotonically; a week is never removed.
	CompletedWeeks   []int `json:"completed_weeks" bson:"completedWeeks,omitempty"`
	LastAccessedWeek int   `json:"last_accessed_week" bson:"lastAccessedWeek,omitempty"`

	// CompletedItems: week -> content type -> completed item titles.
	CompletedItems map[string]WeekItems `json:"completed_items,omitempty" bson:"completedItems,omitempty"`

	// VideoWatchCounts: week -> video title -> completed playback count,
	// capped at the configured maximum.
	VideoWatchCounts map[string]map[string]int `json:"video_watch_counts,omitempty" bson:"videoWatchCounts,omitempty"`

	// VideosWatchedOnce: week -> video title -> true once played to completion
	// at least one time. Gates week completion independent of the view cap.
	VideosWatchedOnce map[string]map[string]bool `json:"videos_watched_once,omitempty" bson:"videosWatchedOnce,omitempty"`
}

// WeekKey converts a week number to its document field key.
func WeekKey(week int) string {
	return strconv.Itoa(week)
}

// HasCompletedWeek reports whether the week is in the completed set.
func (p CourseProgress) HasCompletedWeek(week int) bool {
	for _, w := range p.CompletedWeeks {
		if w == week {
			return true
		}
	}
	return false
}

// SortedCompletedWeeks returns the completed weeks sorted ascending.
func (p CourseProgress) SortedCompletedWeeks() []int {
	weeks := make([]int, len(p.CompletedWeeks))
	copy(weeks, p.CompletedWeeks)
	sort.Ints(weeks)
	return weeks
}

// WatchCount returns the completed playback count for a (week, title) pair.
func (p CourseProgress) WatchCount(week int, title string) int {
	if p.VideoWatchCounts == nil {
		return 0
	}
	return p.VideoWatchCounts[WeekKey(week)][title]
}

// WatchedOnce reports whether the video has been played to completion at least once.
func (p CourseProgress) WatchedOnce(week int, title string) bool {
	if p.VideosWatchedOnce == nil {
		return false
	}
	return p.VideosWatchedOnce[WeekKey(week)][title]
}

// ItemCompleted reports whether the item is marked complete for the week.
func (p CourseProgress) ItemCompleted(week int, ct ContentType, title string) bool {
	if p.CompletedItems == nil {
		return false
	}
	for _, t := range p.CompletedItems[WeekKey(week)].ForType(ct) {
		if t == title {
			return true
		}
	}
	return false
}

// CompletionPercent returns completed weeks over total weeks, in [0, 100].
func (p CourseProgress) CompletionPercent(totalWeeks int) float64 {
	if totalWeeks <= 0 {
		return 0
	}
	pct := float64(len(p.CompletedWeeks)) / float64(totalWeeks) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
