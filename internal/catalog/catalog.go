// Package catalog holds the static course and quiz definitions bundled with
// the application. Definitions are loaded once at startup from embedded YAML;
// they are not fetched remotely and are not user-owned data.
package catalog

import (
	"embed"
	"sort"

	"academyapp/internal/models"
	contextutils "academyapp/internal/utils"

	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// Catalog is an immutable, keyed view of the bundled courses and quizzes.
type Catalog struct {
	courses map[string]*models.Course
	quizzes map[string]*models.Quiz
}

// Load parses the embedded seed files and validates them.
func Load() (*Catalog, error) {
	var coursesDoc struct {
		Courses []*models.Course `yaml:"courses"`
	}
	var quizzesDoc struct {
		Quizzes []*models.Quiz `yaml:"quizzes"`
	}

	courseData, err := seedFS.ReadFile("seed/courses.yaml")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read embedded courses")
	}
	if err := yaml.Unmarshal(courseData, &coursesDoc); err != nil {
		return nil, contextutils.WrapError(err, "failed to parse courses seed")
	}

	quizData, err := seedFS.ReadFile("seed/quizzes.yaml")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read embedded quizzes")
	}
	if err := yaml.Unmarshal(quizData, &quizzesDoc); err != nil {
		return nil, contextutils.WrapError(err, "failed to parse quizzes seed")
	}

	return New(coursesDoc.Courses, quizzesDoc.Quizzes)
}

// New builds a catalog from already-parsed definitions and validates them.
func New(courses []*models.Course, quizzes []*models.Quiz) (*Catalog, error) {
	c := &Catalog{
		courses: make(map[string]*models.Course, len(courses)),
		quizzes: make(map[string]*models.Quiz, len(quizzes)),
	}

	for _, quiz := range quizzes {
		if err := validateQuiz(quiz); err != nil {
			return nil, err
		}
		if _, exists := c.quizzes[quiz.ID]; exists {
			return nil, contextutils.ErrorWithContextf("duplicate quiz id %q", quiz.ID)
		}
		c.quizzes[quiz.ID] = quiz
	}

	for _, course := range courses {
		if err := validateCourse(course, c.quizzes); err != nil {
			return nil, err
		}
		if _, exists := c.courses[course.ID]; exists {
			return nil, contextutils.ErrorWithContextf("duplicate course id %q", course.ID)
		}
		c.courses[course.ID] = course
	}

	return c, nil
}

func validateQuiz(quiz *models.Quiz) error {
	if quiz.ID == "" || len(quiz.Questions) == 0 {
		return contextutils.ErrorWithContextf("quiz %q must have an id and at least one question", quiz.ID)
	}
	// Quiz IDs key the per-user quizzesTaken document paths.
	if !contextutils.IsValidDocumentKey(quiz.ID) {
		return contextutils.ErrorWithContextf("quiz id %q is not a valid document key", quiz.ID)
	}
	for i, q := range quiz.Questions {
		if q.QuestionText == "" || len(q.Options) < 2 {
			return contextutils.ErrorWithContextf("quiz %q question %d needs text and at least two options", quiz.ID, i)
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return contextutils.ErrorWithContextf("quiz %q question %d: correct answer does not match any option", quiz.ID, i)
		}
	}
	return nil
}

func validateCourse(course *models.Course, quizzes map[string]*models.Quiz) error {
	if course.ID == "" || len(course.Weeks) == 0 {
		return contextutils.ErrorWithContextf("course %q must have an id and at least one week", course.ID)
	}
	// Course IDs key the per-user userProgress document paths.
	if !contextutils.IsValidDocumentKey(course.ID) {
		return contextutils.ErrorWithContextf("course id %q is not a valid document key", course.ID)
	}
	if course.Tracking != models.TrackingItems && course.Tracking != models.TrackingVideos {
		return contextutils.ErrorWithContextf("course %q has unknown tracking variant %q", course.ID, course.Tracking)
	}
	seen := make(map[int]bool, len(course.Weeks))
	for _, week := range course.Weeks {
		if week.Number <= 0 {
			return contextutils.ErrorWithContextf("course %q has a week with non-positive number", course.ID)
		}
		if seen[week.Number] {
			return contextutils.ErrorWithContextf("course %q has duplicate week %d", course.ID, week.Number)
		}
		seen[week.Number] = true

		// Item titles become document field-path keys, so they must not
		// contain path separators or operator prefixes.
		for ct, titles := range week.TrackedItems() {
			for _, title := range titles {
				if !contextutils.IsValidDocumentKey(title) {
					return contextutils.ErrorWithContextf("course %q week %d: %s title %q is not a valid document key", course.ID, week.Number, ct, title)
				}
			}
		}

		if week.QuizID != "" {
			if _, ok := quizzes[week.QuizID]; !ok {
				return contextutils.ErrorWithContextf("course %q week %d references unknown quiz %q", course.ID, week.Number, week.QuizID)
			}
		}
	}
	return nil
}

// Course returns the course with the given ID.
func (c *Catalog) Course(id string) (*models.Course, error) {
	course, ok := c.courses[id]
	if !ok {
		return nil, contextutils.ErrCourseNotFound
	}
	return course, nil
}

// Quiz returns the quiz with the given ID.
func (c *Catalog) Quiz(id string) (*models.Quiz, error) {
	quiz, ok := c.quizzes[id]
	if !ok {
		return nil, contextutils.ErrQuizNotFound
	}
	return quiz, nil
}

// Courses returns all courses sorted by ID.
func (c *Catalog) Courses() []*models.Course {
	courses := make([]*models.Course, 0, len(c.courses))
	for _, course := range c.courses {
		courses = append(courses, course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// Quizzes returns all quizzes sorted by ID.
func (c *Catalog) Quizzes() []*models.Quiz {
	quizzes := make([]*models.Quiz, 0, len(c.quizzes))
	for _, quiz := range c.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes
}
