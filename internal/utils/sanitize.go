package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// SanitizeText strips all markup. Used for names, subjects and plain text answers.
func SanitizeText(input string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(input))
}

// SanitizeRich keeps safe formatting markup. Used for comment bodies and feedback messages.
func SanitizeRich(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}
