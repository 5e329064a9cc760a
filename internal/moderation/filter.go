// Package moderation implements message validation and content filtering for
// peer chat: profanity masking, crisis-keyword detection, and removal of
// personal information. All functions are pure and safe for concurrent use.
package moderation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the upper bound on a trimmed message, in runes.
	MaxMessageLength = 1000

	// RedactionMarker replaces any detected personal information.
	RedactionMarker = "[PERSONAL INFO REMOVED]"

	// BlockThreshold is the number of flagged-word matches above which a
	// message is rejected outright.
	BlockThreshold = 2
)

// inappropriateWords is a basic list; a production deployment would back this
// with a dedicated service. Self-harm indicators are listed here as well so
// they are flagged for support, not only masked.
var inappropriateWords = []string{
	"fuck", "shit", "damn", "bitch", "ass", "bastard",
	"kill myself", "suicide", "end it all", "want to die",
	"idiot", "stupid", "moron", "loser",
}

var crisisKeywords = []string{
	"kill myself", "suicide", "want to die", "end it all", "hurt myself",
	"self harm", "cut myself", "overdose", "pills", "bridge", "rope",
	"gun", "knife", "blade", "razor", "not worth living",
}

var personalInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),                     // phone numbers
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // email addresses
	regexp.MustCompile(`@[A-Za-z0-9_]+`),                                    // social media handles
	regexp.MustCompile(`https?://\S+`),                                      // URLs
}

var wordPatterns = buildWordPatterns()

func buildWordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(inappropriateWords))
	for _, w := range inappropriateWords {
		patterns[w] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w))
	}
	return patterns
}

// Validation is the result of checking a message's basic shape.
type Validation struct {
	IsValid bool
	Errors  []string
}

// ValidateMessage checks a raw message for emptiness and length bounds.
// Content policy is handled separately by CheckContent.
func ValidateMessage(message string) Validation {
	var errs []string

	trimmed := strings.TrimSpace(message)

	if len(trimmed) == 0 {
		errs = append(errs, "Message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		errs = append(errs, "Message must be less than 1000 characters")
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}

// ContentCheck is the structured result of scanning a message.
type ContentCheck struct {
	HasInappropriateContent bool     `json:"hasInappropriateContent"`
	HasCrisisContent        bool     `json:"hasCrisisContent"`
	HasPersonalInfo         bool     `json:"hasPersonalInfo"`
	FlaggedWords            []string `json:"flaggedWords"`
	CrisisKeywords          []string `json:"crisisKeywords"`
	PersonalInfoFound       []string `json:"personalInfoFound"`
}

// CheckContent scans a message for inappropriate words, crisis keywords and
// personal information. Every occurrence of a flagged word counts as one
// match, so repeating a word raises the count toward the block threshold.
func CheckContent(message string) ContentCheck {
	lower := strings.ToLower(message)
	check := ContentCheck{}

	for _, word := range inappropriateWords {
		if n := strings.Count(lower, word); n > 0 {
			check.HasInappropriateContent = true
			for i := 0; i < n; i++ {
				check.FlaggedWords = append(check.FlaggedWords, word)
			}
		}
	}

	for _, keyword := range crisisKeywords {
		if strings.Contains(lower, keyword) {
			check.HasCrisisContent = true
			check.CrisisKeywords = append(check.CrisisKeywords, keyword)
		}
	}

	for _, pattern := range personalInfoPatterns {
		if matches := pattern.FindAllString(message, -1); len(matches) > 0 {
			check.HasPersonalInfo = true
			check.PersonalInfoFound = append(check.PersonalInfoFound, matches...)
		}
	}

	return check
}

// FilterMessage masks inappropriate words with equal-length asterisk runs and
// replaces personal information with the redaction marker. Applying it twice
// is a no-op: masked words no longer match, and the marker contains no
// filterable content.
func FilterMessage(message string) string {
	filtered := message

	for _, word := range inappropriateWords {
		filtered = wordPatterns[word].ReplaceAllString(filtered, strings.Repeat("*", len(word)))
	}

	for _, pattern := range personalInfoPatterns {
		filtered = pattern.ReplaceAllString(filtered, RedactionMarker)
	}

	return filtered
}

// ShouldBlock reports whether a message must be rejected. Crisis content never
// blocks a message: a message that might indicate self-harm risk is always
// delivered, flagged, and answered with support resources instead.
func ShouldBlock(check ContentCheck) bool {
	return len(check.FlaggedWords) > BlockThreshold
}

// ShouldFlagForReview reports whether the persisted message must be marked for
// moderator attention.
func ShouldFlagForReview(check ContentCheck) bool {
	return check.HasInappropriateContent || check.HasCrisisContent || check.HasPersonalInfo
}
