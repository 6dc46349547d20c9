package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the nested result of scraping one profile: section name to a
// mapping (keyed sections) or a sequence (skills, interests, jobs).
type Record map[string]any

// Keyed returns the keyed section s. A missing section yields an empty map.
func (r Record) Keyed(s Section) (map[string]any, error) {
	v, ok := r[string(s)]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: section %s is %T, want mapping", ErrMalformedRecord, s, v)
	}
	return m, nil
}

// List returns the sequence section s. A missing section yields nil.
func (r Record) List(s Section) ([]any, error) {
	v, ok := r[string(s)]
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: section %s is %T, want sequence", ErrMalformedRecord, s, v)
	}
	return l, nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices of a record value. Scalars are
// returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = CloneValue(e)
		}
		return m
	case Record:
		return t.Clone()
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = CloneValue(e)
		}
		return l
	case []string:
		l := make([]string, len(t))
		copy(l, t)
		return l
	default:
		return v
	}
}

// Text renders a scalar record value as text. Numbers decoded from JSON
// render without a trailing ".0"; nil renders as "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
