package contact

import (
	"strings"

	"github.com/jmehdipour/contact-desk/internal/model"
)

var (
	urgentKeywords = []string{"urgent", "emergency", "asap", "immediately"}
	highKeywords   = []string{"important", "priority", "soon"}
)

// Classify derives the initial priority of a submission from its text.
// Keywords match as case-insensitive substrings; urgent beats high, and
// fallback applies when neither set matches.
func Classify(subject, message string, fallback model.Priority) model.Priority {
	text := strings.ToLower(subject + " " + message)

	if containsAny(text, urgentKeywords) {
		return model.PriorityUrgent
	}
	if containsAny(text, highKeywords) {
		return model.PriorityHigh
	}
	return fallback
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
