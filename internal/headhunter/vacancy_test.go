package headhunter

import (
	"strings"
	"testing"
)

func TestVacancyTextUsesDescription(t *testing.T) {
	vacancy := &Vacancy{
		ID:          "1",
		Name:        "Go Developer",
		Description: "<p>We build <strong>payment</strong> services.</p><ul><li>Go</li><li>PostgreSQL</li></ul>",
	}
	vacancy.Employer.Name = "Acme"
	vacancy.Area.Name = "Moscow"
	vacancy.Salary.From = 300000
	vacancy.Salary.To = 400000
	vacancy.Salary.Currency = "RUR"
	vacancy.KeySkills = append(vacancy.KeySkills, struct {
		Name string `json:"name,omitempty"`
	}{Name: "Go"}, struct {
		Name string `json:"name,omitempty"`
	}{Name: " "})
	vacancy.Snipet.Requirement = "ignored when description exists"

	text := vacancy.Text()

	for _, want := range []string{
		"Go Developer",
		"Employer: Acme",
		"Area: Moscow",
		"Salary: 300000-400000 RUR",
		"Key skills: Go\n",
		"Description: We build payment services. Go PostgreSQL",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}

	if strings.Contains(text, "ignored") || strings.Contains(text, "<") {
		t.Fatalf("unexpected content in:\n%s", text)
	}
}

func TestVacancyTextFallsBackToSnippet(t *testing.T) {
	vacancy := &Vacancy{Name: "SRE"}
	vacancy.Snipet.Requirement = "Experience with <highlighttext>Kubernetes</highlighttext>"
	vacancy.Snipet.Responsibility = "Keep things running"

	text := vacancy.Text()

	if !strings.Contains(text, "Requirements: Experience with Kubernetes") {
		t.Fatalf("unexpected text:\n%s", text)
	}
	if !strings.Contains(text, "Responsibilities: Keep things running") {
		t.Fatalf("unexpected text:\n%s", text)
	}
}

func TestVacancySalaryString(t *testing.T) {
	tests := []struct {
		from, to int
		want     string
	}{
		{from: 100, to: 200, want: "100-200 USD"},
		{from: 100, want: "from 100 USD"},
		{to: 200, want: "up to 200 USD"},
		{want: ""},
	}

	for _, tt := range tests {
		vacancy := &Vacancy{}
		vacancy.Salary.From = tt.from
		vacancy.Salary.To = tt.to
		vacancy.Salary.Currency = "USD"
		if got := vacancy.SalaryString(); got != tt.want {
			t.Fatalf("SalaryString(%d, %d) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestVacancyMetadata(t *testing.T) {
	vacancy := &Vacancy{ID: "7", AlternateURL: "https://hh.ru/vacancy/7"}
	vacancy.Employer.Name = "Acme"

	metadata := vacancy.Metadata()

	if metadata["employer"] != "Acme" || metadata["url"] != "https://hh.ru/vacancy/7" || metadata["source"] != "hh.ru" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}
	if _, ok := metadata["salary"]; ok {
		t.Fatalf("salary should be omitted: %v", metadata)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain   text\n here", want: "plain text here"},
		{in: "<p>one</p><p>two</p>", want: "one two"},
		{in: "a &amp; b", want: "a & b"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Fatalf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVacanciesFindByID(t *testing.T) {
	vacancies := &Vacancies{Items: []*Vacancy{{ID: "1"}, {ID: "2"}}}

	if vacancies.Len() != 2 {
		t.Fatalf("unexpected len %d", vacancies.Len())
	}
	if got := vacancies.FindByID("2"); got == nil || got.ID != "2" {
		t.Fatalf("expected vacancy 2, got %+v", got)
	}
	if vacancies.FindByID("3") != nil {
		t.Fatalf("expected nil for missing vacancy")
	}
}
