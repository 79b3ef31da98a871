package headhunter

import (
	"fmt"
	"strings"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
		URL  string `json:"url,omitempty"`
	} `json:"area,omitempty"`
	Salary struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
		Gross    bool   `json:"gross,omitempty"`
	} `json:"salary,omitempty"`
	Experience struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"experience,omitempty"`
	Schedule struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employer struct {
		ID           string `json:"id,omitempty"`
		Name         string `json:"name,omitempty"`
		URL          string `json:"url,omitempty"`
		AlternateURL string `json:"alternate_url,omitempty"`
		Trusted      bool   `json:"trusted,omitempty"`
	} `json:"employer,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Employment   struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employment,omitempty"`
	Description string `json:"description,omitempty"`
	KeySkills   []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Archived bool `json:"archived,omitempty"`
	Snipet   struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	ProfessionalRoles []struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"professional_roles,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}

// Text renders the vacancy as plain text suitable for embedding. The full
// description is used when present, otherwise the search snippet.
func (va *Vacancy) Text() string {
	var b textBuilder
	b.line(va.Name)
	b.field("Employer", va.Employer.Name)
	b.field("Area", va.Area.Name)
	b.field("Experience", va.Experience.Name)
	b.field("Schedule", va.Schedule.Name)
	b.field("Employment", va.Employment.Name)
	b.field("Salary", va.SalaryString())
	b.field("Key skills", strings.Join(va.Skills(), ", "))

	if description := StripHTML(va.Description); description != "" {
		b.field("Description", description)
	} else {
		b.field("Requirements", StripHTML(va.Snipet.Requirement))
		b.field("Responsibilities", StripHTML(va.Snipet.Responsibility))
	}

	return b.String()
}

// Skills returns key skill names.
func (va *Vacancy) Skills() []string {
	skills := make([]string, 0, len(va.KeySkills))
	for _, skill := range va.KeySkills {
		if name := strings.TrimSpace(skill.Name); name != "" {
			skills = append(skills, name)
		}
	}
	return skills
}

// SalaryString formats the salary fork, empty when no salary is published.
func (va *Vacancy) SalaryString() string {
	s := va.Salary
	switch {
	case s.From > 0 && s.To > 0:
		return fmt.Sprintf("%d-%d %s", s.From, s.To, s.Currency)
	case s.From > 0:
		return fmt.Sprintf("from %d %s", s.From, s.Currency)
	case s.To > 0:
		return fmt.Sprintf("up to %d %s", s.To, s.Currency)
	default:
		return ""
	}
}

// Metadata returns the fields kept next to the vacancy vector.
func (va *Vacancy) Metadata() map[string]any {
	metadata := map[string]any{
		"source":   "hh.ru",
		"employer": va.Employer.Name,
		"area":     va.Area.Name,
		"url":      va.AlternateURL,
	}
	if salary := va.SalaryString(); salary != "" {
		metadata["salary"] = salary
	}
	if va.Experience.Name != "" {
		metadata["experience"] = va.Experience.Name
	}
	if va.PublishedAt != "" {
		metadata["published_at"] = va.PublishedAt
	}
	if skills := va.Skills(); len(skills) > 0 {
		metadata["key_skills"] = skills
	}
	return metadata
}
