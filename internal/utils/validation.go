package contextutils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail reports whether the given string looks like an email address.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidDocumentKey reports whether a string is safe to use as a map key in a
// document field path. Mongo field paths treat '.' as a separator and '$' as
// an operator prefix, so titles containing either cannot be stored as keys.
func IsValidDocumentKey(key string) bool {
	if key == "" {
		return false
	}
	return !strings.ContainsAny(key, ".$")
}
