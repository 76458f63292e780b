package models

import (
	"encoding/json"

	contextutils "academyapp/internal/utils"

	"gopkg.in/yaml.v3"
)

// Question is one quiz question. CorrectAnswer must exactly match one of the
// options.
type Question struct {
	QuestionText  string   `json:"question_text" yaml:"question_text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"-" yaml:"correct_answer"` // never serialized to learners
}

// Quiz is a static quiz definition bundled with the application.
type Quiz struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// ContentItemKind tags the two shapes course content items come in.
type ContentItemKind string

// Content item kinds.
const (
	ContentItemPlain  ContentItemKind = "plain"
	ContentItemLinked ContentItemKind = "linked"
)

// ContentItem is a tagged union: either a plain title or a linked resource
// with a URL. The shape is resolved once at catalog load time instead of
// being branched on at every use.
type ContentItem struct {
	Kind  ContentItemKind
	Title string
	URL   string // only set for linked resources
}

// UnmarshalYAML accepts either a bare string or a {title, url} mapping.
func (c *ContentItem) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Kind = ContentItemPlain
		c.Title = node.Value
		return nil
	case yaml.MappingNode:
		var linked struct {
			Title string `yaml:"title"`
			URL   string `yaml:"url"`
		}
		if err := node.Decode(&linked); err != nil {
			return err
		}
		if linked.Title == "" {
			return contextutils.ErrorWithContextf("linked content item missing title")
		}
		c.Kind = ContentItemLinked
		c.Title = linked.Title
		c.URL = linked.URL
		return nil
	}
	return contextutils.ErrorWithContextf("content item must be a string or a {title, url} mapping")
}

// MarshalJSON emits a plain string for plain items and an object for linked ones.
func (c ContentItem) MarshalJSON() ([]byte, error) {
	if c.Kind == ContentItemLinked {
		return json.Marshal(struct {
			Title string `json:"title"`
			URL   string `json:"url,omitempty"`
		}{Title: c.Title, URL: c.URL})
	}
	return json.Marshal(c.Title)
}

// TrackingVariant selects which completion predicate applies to a course.
type TrackingVariant string

// Tracking variants.
const (
	// TrackingItems marks a week complete when every tracked content item is
	// marked complete.
	TrackingItems TrackingVariant = "items"
	// TrackingVideos marks a week complete when every video has been played to
	// completion at least once.
	TrackingVideos TrackingVariant = "videos"
)

// Week bundles one week's content within a course.
type Week struct {
	Number      int           `json:"number" yaml:"number"`
	Title       string        `json:"title" yaml:"title"`
	Lessons     []string      `json:"lessons,omitempty" yaml:"lessons"`
	Videos      []string      `json:"videos,omitempty" yaml:"videos"`
	Readings    []ContentItem `json:"readings,omitempty" yaml:"readings"`
	Assignments []ContentItem `json:"assignments,omitempty" yaml:"assignments"`
	QuizID      string        `json:"quiz_id,omitempty" yaml:"quiz_id"`
}

// TrackedItems returns the titles a learner must complete per content type
// for the items-tracked completion predicate.
func (w Week) TrackedItems() map[ContentType][]string {
	items := make(map[ContentType][]string)
	if len(w.Lessons) > 0 {
		items[ContentLessons] = w.Lessons
	}
	if len(w.Videos) > 0 {
		items[ContentVideos] = w.Videos
	}
	if len(w.Readings) > 0 {
		items[ContentReadings] = contentTitles(w.Readings)
	}
	if len(w.Assignments) > 0 {
		items[ContentAssignments] = contentTitles(w.Assignments)
	}
	return items
}

func contentTitles(items []ContentItem) []string {
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	return titles
}

// Course is a static course definition bundled with the application.
type Course struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Tracking    TrackingVariant `json:"tracking" yaml:"tracking"`
	Weeks       []Week          `json:"weeks" yaml:"weeks"`
}

// WeekByNumber returns the week with the given number, or nil.
func (c *Course) WeekByNumber(number int) *Week {
	for i := range c.Weeks {
		if c.Weeks[i].Number == number {
			return &c.Weeks[i]
		}
	}
	return nil
}

// HasVideo reports whether the given week contains a video with the title.
func (w Week) HasVideo(title string) bool {
	for _, v := range w.Videos {
		if v == title {
			return true
		}
	}
	return false
}
