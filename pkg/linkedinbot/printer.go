package linkedinbot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how the Printer renders values.
type Format string

// Output formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
	}
}

// Printer writes Session results as lines of text.
//
// Invalid field names and wrong-mode calls are written as a single
// diagnostic line; the methods only return errors from the writer.
type Printer struct {
	w      io.Writer
	s      *Session
	format Format
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithFormat sets the output format. The default is FormatJSON.
func WithFormat(f Format) PrinterOption {
	return func(p *Printer) { p.format = f }
}

// NewPrinter returns a Printer for s writing to w.
func NewPrinter(w io.Writer, s *Session, opts ...PrinterOption) *Printer {
	p := &Printer{w: w, s: s, format: FormatJSON}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PersonalInfo prints one mapping line per requested field.
func (p *Printer) PersonalInfo(fields ...string) error {
	return p.fields(p.s.PersonalInfo(fields...))
}

// Experiences prints one mapping line per requested field.
func (p *Printer) Experiences(fields ...string) error {
	return p.fields(p.s.Experiences(fields...))
}

// Accomplishments prints one mapping line per requested field.
func (p *Printer) Accomplishments(fields ...string) error {
	return p.fields(p.s.Accomplishments(fields...))
}

// Overview prints one mapping line per requested field.
func (p *Printer) Overview(fields ...string) error {
	return p.fields(p.s.Overview(fields...))
}

// Skills prints one "name: endorsements" line per skill.
func (p *Printer) Skills() error {
	skills, err := p.s.Skills()
	if err != nil {
		return p.diagnose(err)
	}
	for _, sk := range skills {
		if _, err := fmt.Fprintln(p.w, sk.String()); err != nil {
			return err
		}
	}
	return nil
}

// Interests prints one line per interest.
func (p *Printer) Interests() error {
	return p.entries(p.s.Interests())
}

// Jobs prints one line per job listing.
func (p *Printer) Jobs() error {
	return p.entries(p.s.Jobs())
}

// Record prints the full record as an indented document.
func (p *Printer) Record() error {
	rec := p.s.Record()
	if p.format == FormatYAML {
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func (p *Printer) fields(fields []Field, err error) error {
	if err != nil {
		return p.diagnose(err)
	}
	for _, f := range fields {
		if f.Err != nil {
			if err := p.diagnose(f.Err); err != nil {
				return err
			}
			continue
		}
		line, err := p.line(map[string]any{f.Name: f.Value}, true)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) entries(entries []any, err error) error {
	if err != nil {
		return p.diagnose(err)
	}
	for _, e := range entries {
		line, ok := e.(string)
		if !ok {
			if line, err = p.line(e, false); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

// diagnose writes a query condition as one line.
func (p *Printer) diagnose(err error) error {
	_, werr := fmt.Fprintln(p.w, err)
	return werr
}

// line renders v on a single line. With block set, a YAML mapping keeps its
// top level in block style ("name: SpaceX").
func (p *Printer) line(v any, block bool) (string, error) {
	if p.format == FormatYAML {
		return yamlLine(v, block)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// yamlLine renders v in flow style. With block set, the top-level mapping
// stays in block style so a single-key mapping reads "websites: [a, b]".
func yamlLine(v any, block bool) (string, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	if block && n.Kind == yaml.MappingNode {
		for _, c := range n.Content {
			flow(c)
		}
	} else {
		flow(&n)
	}

	out, err := yaml.Marshal(&n)
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func flow(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = yaml.FlowStyle
	}
	if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		flow(c)
	}
}
