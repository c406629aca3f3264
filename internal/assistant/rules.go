package assistant

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mdnooraj/folio/internal/profile"
)

// Source is the read-only profile data the assistant answers from.
// Implemented by *profile.Store.
type Source interface {
	CoreSkills() []string
	TechnicalSkills() []string
	Experience() []profile.Experience
	Education() []profile.Education
}

// DefaultFallback is the reply when no rule matches.
const DefaultFallback = "I can tell you about Zakir's skills, experience, or education."

// DefaultGreeting seeds every new transcript.
const DefaultGreeting = "Hi! I'm Zakir's assistant. Ask me about his skills, education, or experience."

// Rule pairs a predicate on the user's text with the reply it produces.
type Rule struct {
	Name  string
	Match func(text string) bool
	Reply func(src Source) string
}

// Keyword returns a predicate matching text that contains kw, ignoring case.
func Keyword(kw string) func(string) bool {
	kw = strings.ToLower(kw)
	return func(text string) bool {
		return strings.Contains(strings.ToLower(text), kw)
	}
}

// DefaultRules returns the skills, experience and education rules in
// priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "skills", Match: Keyword("skill"), Reply: skillsReply},
		{Name: "experience", Match: Keyword("experience"), Reply: experienceReply},
		{Name: "education", Match: Keyword("education"), Reply: educationReply},
	}
}

// Respond evaluates rules in order against text and returns the reply of
// the first match, or fallback.
func Respond(rules []Rule, fallback string, src Source, text string) string {
	for _, r := range rules {
		if r.Match(text) {
			return r.Reply(src)
		}
	}
	return fallback
}

func skillsReply(src Source) string {
	return strings.Join(slices.Concat(src.CoreSkills(), src.TechnicalSkills()), ", ")
}

func experienceReply(src Source) string {
	var parts []string
	for _, e := range src.Experience() {
		parts = append(parts, fmt.Sprintf("%s at %s (%s)", e.Role, e.Company, e.From))
	}
	return strings.Join(parts, "; ")
}

func educationReply(src Source) string {
	var parts []string
	for _, e := range src.Education() {
		parts = append(parts, fmt.Sprintf("%s from %s (%s)", e.Degree, e.School, e.Year))
	}
	return strings.Join(parts, "; ")
}

// emptySource stands in for a missing profile.
type emptySource struct{}

func (emptySource) CoreSkills() []string             { return nil }
func (emptySource) TechnicalSkills() []string        { return nil }
func (emptySource) Experience() []profile.Experience { return nil }
func (emptySource) Education() []profile.Education   { return nil }
