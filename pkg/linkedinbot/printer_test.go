package linkedinbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestPrinterScenarios(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		open   func(*testing.T) *Session
		print  func(*Printer) error
		want   []string
	}{
		{
			name:  "skills",
			open:  openIndividual,
			print: (*Printer).Skills,
			want:  []string{"Python: 42", "SQL: 7"},
		},
		{
			name:  "overview json",
			open:  openCompany,
			print: func(p *Printer) error { return p.Overview("name", "num_employees") },
			want:  []string{`{"name":"SpaceX"}`, `{"num_employees":"9001"}`},
		},
		{
			name:   "overview yaml",
			format: FormatYAML,
			open:   openCompany,
			print:  func(p *Printer) error { return p.Overview("name", "num_employees") },
			want:   []string{"name: SpaceX", `num_employees: "9001"`},
		},
		{
			name:  "json keeps ampersands",
			open:  openCompany,
			print: func(p *Printer) error { return p.Overview("industry") },
			want:  []string{`{"industry":"Aviation & Aerospace"}`},
		},
		{
			name:  "invalid accomplishment",
			open:  openIndividual,
			print: func(p *Printer) error { return p.Accomplishments("not_a_field") },
			want: []string{`invalid accomplishments field "not_a_field": valid fields are ` +
				"publications, certifications, patents, courses, projects, honors, test_scores, languages, organizations"},
		},
		{
			name:  "mixed valid and invalid in caller order",
			open:  openIndividual,
			print: func(p *Printer) error { return p.Experiences("volunteering", "name") },
			want: []string{
				`{"volunteering":[]}`,
				`invalid experiences field "name": valid fields are jobs, education, volunteering`,
			},
		},
		{
			name:   "sequence value yaml",
			format: FormatYAML,
			open:   openIndividual,
			print:  func(p *Printer) error { return p.Accomplishments("languages") },
			want:   []string{"languages: [English, French]"},
		},
		{
			name:  "interests",
			open:  openIndividual,
			print: (*Printer).Interests,
			want:  []string{"SpaceX", "Python Developers"},
		},
		{
			name:  "jobs json",
			open:  openCompany,
			print: (*Printer).Jobs,
			want:  []string{`{"location":"McGregor, TX","title":"Propulsion Engineer"}`},
		},
		{
			name:  "wrong mode",
			open:  openCompany,
			print: (*Printer).Skills,
			want:  []string{"skills is only available for individual profiles; this session is in company mode, use overview, jobs"},
		},
		{
			name:  "wrong mode with fields",
			open:  openIndividual,
			print: func(p *Printer) error { return p.Overview("name", "bogus") },
			want:  []string{"overview is only available for company profiles; this session is in individual mode, use personal_info, experiences, skills, accomplishments, interests"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			var opts []PrinterOption
			if tt.format != "" {
				opts = append(opts, WithFormat(tt.format))
			}
			p := NewPrinter(&buf, tt.open(t), opts...)
			if err := tt.print(p); err != nil {
				t.Fatalf("print: %v", err)
			}
			if diff := cmp.Diff(tt.want, lines(buf.String())); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrinterJobsYAMLIsOneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter(&buf, openCompany(t), WithFormat(FormatYAML)).Jobs(); err != nil {
		t.Fatal(err)
	}
	got := lines(buf.String())
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(got), buf.String())
	}
	var job map[string]string
	if err := yaml.Unmarshal([]byte(got[0]), &job); err != nil {
		t.Fatalf("line is not YAML: %v", err)
	}
	if job["title"] != "Propulsion Engineer" || job["location"] != "McGregor, TX" {
		t.Errorf("job = %v", job)
	}
}

func TestPrinterMultilineYAMLStaysOnOneLine(t *testing.T) {
	rec := individualRecord()
	rec["personal_info"].(map[string]any)["summary"] = "line one\nline two"
	s := mustOpen(t, rec)

	var buf bytes.Buffer
	if err := NewPrinter(&buf, s, WithFormat(FormatYAML)).PersonalInfo("summary"); err != nil {
		t.Fatal(err)
	}
	got := lines(buf.String())
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(got), buf.String())
	}
	var m map[string]string
	if err := yaml.Unmarshal([]byte(got[0]), &m); err != nil {
		t.Fatal(err)
	}
	if m["summary"] != "line one\nline two" {
		t.Errorf("summary = %q", m["summary"])
	}
}

func TestPrinterRecordJSON(t *testing.T) {
	s := openIndividual(t)
	var buf bytes.Buffer
	if err := NewPrinter(&buf, s).Record(); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if diff := cmp.Diff(map[string]any(s.Record()), got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestPrinterRecordYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter(&buf, openCompany(t), WithFormat(FormatYAML)).Record(); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Overview map[string]string `yaml:"overview"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got.Overview["name"] != "SpaceX" {
		t.Errorf("overview.name = %q", got.Overview["name"])
	}
}

func mustOpen(t *testing.T, rec map[string]any) *Session {
	t.Helper()
	s, err := Open(context.Background(), "tok", "in", "x", WithScraper(&fakeScraper{individual: rec}))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type failingWriter struct{}

var errWrite = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestPrinterReturnsWriteErrors(t *testing.T) {
	p := NewPrinter(failingWriter{}, openCompany(t))
	if err := p.Overview("name"); !errors.Is(err, errWrite) {
		t.Errorf("Overview err = %v, want write error", err)
	}
	if err := p.Skills(); !errors.Is(err, errWrite) {
		t.Errorf("Skills err = %v, want write error", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
