// Package profile defines the record, mode and section types shared by the
// LinkedIn scraper and the profile facade.
package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the scraper and the facade.
var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrNoCookies       = errors.New("no cookies available")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnsupportedMode = errors.New("unsupported mode")
	ErrMalformedRecord = errors.New("malformed record")
)

// Mode selects whether the target is an individual or a company profile.
type Mode int

// Mode constants. The zero value is not a valid mode.
const (
	ModeIndividual Mode = iota + 1
	ModeCompany
)

func (m Mode) String() string {
	switch m {
	case ModeIndividual:
		return "individual"
	case ModeCompany:
		return "company"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode resolves a mode string. "in" and "individual" select
// ModeIndividual, "company" selects ModeCompany; matching ignores case and
// surrounding whitespace.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "individual":
		return ModeIndividual, nil
	case "company":
		return ModeCompany, nil
	default:
		return 0, fmt.Errorf("%w: %q (want individual, in or company)", ErrUnsupportedMode, s)
	}
}

// Section names a top-level group within a Record.
type Section string

// Individual sections.
const (
	SectionPersonalInfo    Section = "personal_info"
	SectionExperiences     Section = "experiences"
	SectionSkills          Section = "skills"
	SectionAccomplishments Section = "accomplishments"
	SectionInterests       Section = "interests"
)

// Company sections.
const (
	SectionOverview Section = "overview"
	SectionJobs     Section = "jobs"
)

// Field allow-lists, in the order they are reported in diagnostics.
var allowedFields = map[Section][]string{
	SectionPersonalInfo: {
		"name", "headline", "company", "school", "location", "summary", "image",
		"followers", "email", "phone", "connected", "websites", "current_company_link",
	},
	SectionExperiences: {"jobs", "education", "volunteering"},
	SectionAccomplishments: {
		"publications", "certifications", "patents", "courses", "projects",
		"honors", "test_scores", "languages", "organizations",
	},
	SectionOverview: {
		"description", "name", "company_size", "website", "industry",
		"headquarters", "type", "specialties", "num_employees", "image",
	},
}

// AllowedFields returns the valid field names for a keyed section, or nil for
// sections that are sequences (skills, interests, jobs).
func AllowedFields(s Section) []string {
	fields := allowedFields[s]
	if fields == nil {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// IsAllowed reports whether field is in the allow-list for s.
func IsAllowed(s Section, field string) bool {
	for _, f := range allowedFields[s] {
		if f == field {
			return true
		}
	}
	return false
}

// Sections returns the sections a record of the given mode carries.
func Sections(m Mode) []Section {
	switch m {
	case ModeIndividual:
		return []Section{SectionPersonalInfo, SectionExperiences, SectionSkills, SectionAccomplishments, SectionInterests}
	case ModeCompany:
		return []Section{SectionOverview, SectionJobs}
	default:
		return nil
	}
}

// ModeOf returns the mode whose records carry section s.
func ModeOf(s Section) Mode {
	switch s {
	case SectionOverview, SectionJobs:
		return ModeCompany
	case SectionPersonalInfo, SectionExperiences, SectionSkills, SectionAccomplishments, SectionInterests:
		return ModeIndividual
	default:
		return 0
	}
}
