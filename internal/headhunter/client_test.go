package headhunter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(zap.NewNop(), "token", "")
	client.APIURL = server.URL
	return client
}

func TestSearchFetchesAllPages(t *testing.T) {
	var pages []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SearchPath {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "" {
			page = "0"
		}

		fmt.Fprintf(w, `{"items":[{"id":"v%s","name":"Go Developer %s","salary":null,"employer":{"id":"e1","name":"Acme"}}],"found":2,"pages":2,"page":%s,"per_page":1}`, page, page, page)
	})

	vacancies, err := client.Search(context.Background(), &SearchParams{Text: "golang", Areas: []int{1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vacancies.Len() != 2 {
		t.Fatalf("expected 2 vacancies, got %d", vacancies.Len())
	}

	if vacancies.Items[1].ID != "v1" || vacancies.Items[0].Employer.Name != "Acme" {
		t.Fatalf("unexpected vacancies: %+v", vacancies.Items)
	}

	if len(pages) != 2 || pages[1] != "1" {
		t.Fatalf("unexpected page requests: %v", pages)
	}
}

func TestSearchHonoursMaxPages(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"items":[{"id":"1"}],"found":50,"pages":50,"page":0,"per_page":1}`)
	})
	client.MaxPages = 1

	vacancies, err := client.Search(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 || vacancies.Len() != 1 {
		t.Fatalf("expected a single page, got calls=%d items=%d", calls, vacancies.Len())
	}
}

func TestGetVacancyDecodesGzip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SearchPath+"/42" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_ = json.NewEncoder(gz).Encode(map[string]any{
			"id":          "42",
			"name":        "Platform Engineer",
			"description": "<p>Kubernetes</p>",
			"key_skills":  []map[string]string{{"name": "Go"}},
		})
	})

	vacancy, err := client.GetVacancy(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vacancy.Name != "Platform Engineer" || len(vacancy.Skills()) != 1 {
		t.Fatalf("unexpected vacancy: %+v", vacancy)
	}

	if _, err := client.GetVacancy(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestGetVacancyBadStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	if _, err := client.GetVacancy(context.Background(), "1"); err == nil || !strings.Contains(err.Error(), "bad status") {
		t.Fatalf("expected bad status error, got %v", err)
	}
}

func TestResumes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resumes/mine":
			fmt.Fprint(w, `{"items":[{"id":"r1","title":"Go Developer"},{"id":"r2","title":"SRE"}],"found":2,"pages":1,"page":0,"per_page":20}`)
		case "/resumes/r1":
			fmt.Fprint(w, `{
				"id":"r1",
				"title":"Go Developer",
				"skills":"<p>Distributed systems</p>",
				"skill_set":["Go","PostgreSQL"],
				"area":{"name":"Berlin"},
				"total_experience":{"months":62},
				"experience":[{"company":"Acme","position":"Backend Engineer","start":"2020-01-01","end":null,"description":"Payments"}],
				"education":{"primary":[{"name":"MSU","organization":"CS","result":"MSc","year":2015}]},
				"language":[{"name":"English","level":{"name":"C1"}}]
			}`)
		default:
			http.NotFound(w, r)
		}
	})

	resumes, err := client.GetMineResumes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resumes.Len() != 2 || resumes.Titles()[1] != "SRE" {
		t.Fatalf("unexpected resumes: %+v", resumes.Items)
	}

	resume := resumes.FindByTitle("Go Developer")
	if resume == nil || resume.ID != "r1" {
		t.Fatalf("expected resume r1, got %+v", resume)
	}

	details, err := client.GetResumeDetails(context.Background(), resume.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := details.Text()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Go Developer\n",
		"Area: Berlin",
		"Total experience: 5 years 2 months",
		"Skills: Go, PostgreSQL",
		"About: Distributed systems",
		"- Backend Engineer at Acme (2020-01-01 - present): Payments",
		"Education: MSU, CS MSc",
		"Languages: English C1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
}

func TestBuildParams(t *testing.T) {
	q := buildParams(&SearchParams{
		Text:      "golang",
		Areas:     []int{1, 113},
		Schedules: []string{"remote"},
		PerPage:   "100",
		Period:    7,
	})

	if q.Get("text") != "golang" || q.Get("per_page") != "100" || q.Get("period") != "7" {
		t.Fatalf("unexpected params: %v", q)
	}

	if areas := q["area"]; len(areas) != 2 || areas[1] != "113" {
		t.Fatalf("unexpected areas: %v", areas)
	}

	if q.Get("schedule") != "remote" {
		t.Fatalf("unexpected schedule: %v", q)
	}

	if _, ok := q["employer_id"]; ok {
		t.Fatalf("zero employer id should be omitted: %v", q)
	}
}
