// Command catalog_lint loads the embedded course and quiz catalog and prints
// a summary plus warnings about content that validates but is probably wrong:
// weeks with nothing to track, quizzes no course references, linked resources
// without URLs. It is a developer utility, not part of runtime.
package main

import (
	"fmt"
	"os"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/services"
)

func main() {
	cat, err := catalog.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog failed to load: %v\n", err)
		os.Exit(1)
	}

	warnings := 0
	referenced := make(map[string]bool)

	fmt.Println("Courses:")
	for _, course := range cat.Courses() {
		fmt.Printf("  %s (%q, tracking=%s, weeks=%d)\n", course.ID, course.Title, course.Tracking, len(course.Weeks))

		for i := range course.Weeks {
			week := &course.Weeks[i]
			if week.QuizID != "" {
				referenced[week.QuizID] = true
			}

			tracked := week.TrackedItems()
			if len(tracked) == 0 {
				fmt.Printf("    warning: week %d has no tracked content and can never complete\n", week.Number)
				warnings++
			}

			for _, item := range week.Readings {
				if item.URL == "" && item.Kind == models.ContentItemLinked {
					fmt.Printf("    warning: week %d reading %q is linked but has no URL\n", week.Number, item.Title)
					warnings++
				}
			}
			for _, item := range week.Assignments {
				if item.URL == "" && item.Kind == models.ContentItemLinked {
					fmt.Printf("    warning: week %d assignment %q is linked but has no URL\n", week.Number, item.Title)
					warnings++
				}
			}
		}
	}

	fmt.Println("Quizzes:")
	for _, quiz := range cat.Quizzes() {
		total := len(quiz.Questions)
		fmt.Printf("  %s (%q, questions=%d, pass at %d/%d, attempts=%d)\n",
			quiz.ID, quiz.Title, total, services.PassThreshold(total, config.DefaultPassThresholdRatio), total, config.DefaultMaxQuizAttempts)

		if !referenced[quiz.ID] {
			fmt.Printf("    warning: quiz %s is not referenced by any course week\n", quiz.ID)
			warnings++
		}
	}

	if warnings > 0 {
		fmt.Printf("%d warning(s)\n", warnings)
		os.Exit(2)
	}
	fmt.Println("catalog is clean")
}
