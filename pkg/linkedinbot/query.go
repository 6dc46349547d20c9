package linkedinbot

import (
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

// Field is the result of looking up one requested field name.
type Field struct {
	Value any   // the record value; nil when Err is set or the field is absent
	Err   error // *InvalidFieldError for names outside the allow-list
	Name  string
}

// Skill is one entry of the skills section.
type Skill struct {
	Name         string
	Endorsements string
}

func (s Skill) String() string {
	return s.Name + ": " + s.Endorsements
}

// InvalidFieldError reports a field name outside its section's allow-list.
type InvalidFieldError struct {
	Section profile.Section
	Field   string
	Allowed []string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s field %q: valid fields are %s",
		e.Section, e.Field, strings.Join(e.Allowed, ", "))
}

// Is reports whether target is ErrInvalidField.
func (*InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }

// WrongModeError reports an operation called on a session of the other mode.
type WrongModeError struct {
	Section profile.Section
	Mode    profile.Mode
}

func (e *WrongModeError) Error() string {
	var ops []string
	for _, s := range profile.Sections(e.Mode) {
		ops = append(ops, string(s))
	}
	return fmt.Sprintf("%s is only available for %s profiles; this session is in %s mode, use %s",
		e.Section, profile.ModeOf(e.Section), e.Mode, strings.Join(ops, ", "))
}

// Is reports whether target is ErrWrongMode.
func (*WrongModeError) Is(target error) bool { return target == ErrWrongMode }

// PersonalInfo looks up fields of an individual's personal_info section.
func (s *Session) PersonalInfo(fields ...string) ([]Field, error) {
	return s.lookup(profile.SectionPersonalInfo, fields)
}

// Experiences looks up jobs, education or volunteering.
func (s *Session) Experiences(fields ...string) ([]Field, error) {
	return s.lookup(profile.SectionExperiences, fields)
}

// Accomplishments looks up fields of an individual's accomplishments section.
func (s *Session) Accomplishments(fields ...string) ([]Field, error) {
	return s.lookup(profile.SectionAccomplishments, fields)
}

// Overview looks up fields of a company's overview section.
func (s *Session) Overview(fields ...string) ([]Field, error) {
	return s.lookup(profile.SectionOverview, fields)
}

// Skills returns the individual's skills in record order. Endorsement counts
// are rendered as text whether the record stores them as numbers or strings.
func (s *Session) Skills() ([]Skill, error) {
	entries, err := s.list(profile.SectionSkills)
	if err != nil {
		return nil, err
	}

	skills := make([]Skill, 0, len(entries))
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: skills[%d] is %T", profile.ErrMalformedRecord, i, e)
		}
		skills = append(skills, Skill{
			Name:         profile.Text(m["name"]),
			Endorsements: profile.Text(m["endorsements"]),
		})
	}
	return skills, nil
}

// Interests returns the individual's interests.
func (s *Session) Interests() ([]any, error) {
	return s.list(profile.SectionInterests)
}

// Jobs returns the company's job listings.
func (s *Session) Jobs() ([]any, error) {
	return s.list(profile.SectionJobs)
}

func (s *Session) gate(sec profile.Section) error {
	if profile.ModeOf(sec) != s.mode {
		return &WrongModeError{Section: sec, Mode: s.mode}
	}
	return nil
}

// lookup resolves each requested name independently, in order. Names outside
// the allow-list get an *InvalidFieldError and are not looked up.
func (s *Session) lookup(sec profile.Section, names []string) ([]Field, error) {
	if err := s.gate(sec); err != nil {
		return nil, err
	}
	var values map[string]any // resolved on the first allowed name
	out := make([]Field, 0, len(names))
	for _, name := range names {
		if !profile.IsAllowed(sec, name) {
			s.logger.Debug("invalid field requested", "section", sec, "field", name)
			out = append(out, Field{
				Name: name,
				Err:  &InvalidFieldError{Section: sec, Field: name, Allowed: profile.AllowedFields(sec)},
			})
			continue
		}
		if values == nil {
			v, err := s.record.Keyed(sec)
			if err != nil {
				return nil, err
			}
			values = v
		}
		out = append(out, Field{Name: name, Value: profile.CloneValue(values[name])})
	}
	return out, nil
}

func (s *Session) list(sec profile.Section) ([]any, error) {
	if err := s.gate(sec); err != nil {
		return nil, err
	}
	l, err := s.record.List(sec)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, nil
	}
	out, ok := profile.CloneValue(l).([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", profile.ErrMalformedRecord, sec)
	}
	return out, nil
}
