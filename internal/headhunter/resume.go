package headhunter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type Resumes struct {
	Items []*Resume
}

type Resume struct {
	Title string `json:"title,omitempty"`
	ID    string `json:"id,omitempty"`
}

type ResumeDetails struct {
	ID    string
	Title string
	Raw   map[string]any
}

// resumeContent is the subset of the resume payload used for matching.
type resumeContent struct {
	Title    string   `mapstructure:"title"`
	Skills   string   `mapstructure:"skills"`
	SkillSet []string `mapstructure:"skill_set"`
	Area     struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"area"`
	TotalExperience struct {
		Months int `mapstructure:"months"`
	} `mapstructure:"total_experience"`
	Experience []struct {
		Company     string `mapstructure:"company"`
		Position    string `mapstructure:"position"`
		Start       string `mapstructure:"start"`
		End         string `mapstructure:"end"`
		Description string `mapstructure:"description"`
	} `mapstructure:"experience"`
	Education struct {
		Primary []struct {
			Name         string `mapstructure:"name"`
			Organization string `mapstructure:"organization"`
			Result       string `mapstructure:"result"`
			Year         int    `mapstructure:"year"`
		} `mapstructure:"primary"`
	} `mapstructure:"education"`
	Language []struct {
		Name  string `mapstructure:"name"`
		Level struct {
			Name string `mapstructure:"name"`
		} `mapstructure:"level"`
	} `mapstructure:"language"`
}

func (c *Client) getResumes(ctx context.Context, id string) (*Resumes, error) {
	apiURLMineResumes := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	items, err := c.GetItems(ctx, apiURLMineResumes, nil)
	if err != nil {
		return nil, err
	}

	var resumes []*Resume
	if err = decodeItems(items, &resumes); err != nil {
		return nil, err
	}

	return &Resumes{
		Items: resumes,
	}, nil
}

func (r *Resumes) Len() int {
	return len(r.Items)
}

func (r *Resumes) Titles() []string {
	ids := make([]string, 0, len(r.Items))

	for _, v := range r.Items {
		ids = append(ids, v.Title)
	}

	return ids
}

func (r *Resumes) FindByTitle(title string) *Resume {
	for _, resume := range r.Items {
		if resume.Title == title {
			return resume
		}
	}

	return nil
}

func (c *Client) GetResumeDetails(ctx context.Context, id string) (*ResumeDetails, error) {
	if id == "" {
		return nil, fmt.Errorf("resume id is required")
	}

	apiURL := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	var raw map[string]any
	if err := c.getJSON(ctx, apiURL, nil, &raw); err != nil {
		return nil, err
	}

	if raw == nil {
		raw = make(map[string]any)
	}

	return &ResumeDetails{
		ID:    valueAsString(raw["id"]),
		Title: valueAsString(raw["title"]),
		Raw:   raw,
	}, nil
}

// Text renders the resume as plain text suitable for embedding.
func (d *ResumeDetails) Text() (string, error) {
	var content resumeContent
	cfg := &mapstructure.DecoderConfig{
		Result:           &content,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return "", err
	}
	if err := decoder.Decode(d.Raw); err != nil {
		return "", fmt.Errorf("decode resume %s: %w", d.ID, err)
	}

	var b textBuilder
	b.line(firstNonEmpty(content.Title, d.Title))
	b.field("Area", content.Area.Name)
	if months := content.TotalExperience.Months; months > 0 {
		b.field("Total experience", fmt.Sprintf("%d years %d months", months/12, months%12))
	}
	b.field("Skills", strings.Join(content.SkillSet, ", "))
	b.field("About", StripHTML(content.Skills))

	if len(content.Experience) > 0 {
		b.line("Experience:")
		for _, exp := range content.Experience {
			end := exp.End
			if end == "" {
				end = "present"
			}
			b.line(fmt.Sprintf("- %s at %s (%s - %s): %s", exp.Position, exp.Company, exp.Start, end, StripHTML(exp.Description)))
		}
	}

	for _, edu := range content.Education.Primary {
		b.field("Education", strings.TrimSpace(fmt.Sprintf("%s, %s %s", edu.Name, edu.Organization, edu.Result)))
	}

	languages := make([]string, 0, len(content.Language))
	for _, lang := range content.Language {
		languages = append(languages, strings.TrimSpace(lang.Name+" "+lang.Level.Name))
	}
	b.field("Languages", strings.Join(languages, ", "))

	return b.String(), nil
}

func valueAsString(v any) string {
	if v == nil {
		return ""
	}

	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
