package profile

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Store provides read-only access to a Record. It is safe for concurrent
// use by any number of readers because nothing ever writes to it.
//
// A nil *Store, or a Store over a nil Record, behaves as an empty profile:
// every accessor returns an empty sequence.
type Store struct {
	rec *Record
}

// NewStore wraps rec. The Store keeps its own copy so later changes to rec
// by the caller are not observed.
func NewStore(rec *Record) *Store {
	if rec == nil {
		return &Store{}
	}
	cp := deepCopyRecord(rec)
	return &Store{rec: &cp}
}

// CoreSkills returns the core skills in display order.
func (s *Store) CoreSkills() []string {
	if s == nil || s.rec == nil {
		return nil
	}
	return slices.Clone(s.rec.Skills.Core)
}

// TechnicalSkills returns the technical skills in display order.
func (s *Store) TechnicalSkills() []string {
	if s == nil || s.rec == nil {
		return nil
	}
	return slices.Clone(s.rec.Skills.Technical)
}

// Experience returns the experience entries in display order.
func (s *Store) Experience() []Experience {
	if s == nil || s.rec == nil {
		return nil
	}
	out := make([]Experience, len(s.rec.Experience))
	for i, e := range s.rec.Experience {
		out[i] = e
		out[i].Bullets = slices.Clone(e.Bullets)
	}
	return out
}

// Education returns the education entries in display order.
func (s *Store) Education() []Education {
	if s == nil || s.rec == nil {
		return nil
	}
	return slices.Clone(s.rec.Education)
}

// Record returns a deep copy of the whole record for display layers.
func (s *Store) Record() Record {
	if s == nil {
		return Record{}
	}
	return deepCopyRecord(s.rec)
}

// Name returns the profile owner's name, or "" for an empty profile.
func (s *Store) Name() string {
	if s == nil || s.rec == nil {
		return ""
	}
	return s.rec.Name
}

// maxSummaryChars keeps the summary short enough for a tool description or
// a terminal line wrap.
const maxSummaryChars = 1000

// Summary returns a compact single-paragraph description of the profile.
func (s *Store) Summary() string {
	return summarize(s.Record())
}

func summarize(r Record) string {
	var parts []string

	switch {
	case r.Name != "" && r.Title != "":
		parts = append(parts, fmt.Sprintf("%s, %s.", r.Name, r.Title))
	case r.Name != "":
		parts = append(parts, r.Name+".")
	}
	if r.Location != "" {
		parts = append(parts, fmt.Sprintf("Based in %s.", r.Location))
	}

	if len(r.Experience) > 0 {
		var roles []string
		for _, e := range r.Experience {
			roles = append(roles, fmt.Sprintf("%s at %s since %s", e.Role, e.Company, e.From))
		}
		parts = append(parts, fmt.Sprintf("Experience: %s.", strings.Join(roles, "; ")))
	}

	skills := append(slices.Clone(r.Skills.Core), r.Skills.Technical...)
	if len(skills) > 0 {
		parts = append(parts, fmt.Sprintf("Skills: %s.", strings.Join(skills, ", ")))
	}

	if len(parts) == 0 {
		return "Profile: not yet configured."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}

func deepCopyRecord(r *Record) Record {
	if r == nil {
		return Record{}
	}
	cp := *r
	if r.Experience != nil {
		cp.Experience = make([]Experience, len(r.Experience))
		for i, e := range r.Experience {
			cp.Experience[i] = e
			cp.Experience[i].Bullets = slices.Clone(e.Bullets)
		}
	}
	cp.Education = slices.Clone(r.Education)
	cp.Skills.Core = slices.Clone(r.Skills.Core)
	cp.Skills.Technical = slices.Clone(r.Skills.Technical)
	return cp
}
