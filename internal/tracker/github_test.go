package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v57/github"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/models"
)

func newTestGitHub(t *testing.T, mux *http.ServeMux) *GitHub {
	t.Helper()
	mux.HandleFunc("GET /repos/octo/blog", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"blog","owner":{"login":"octo"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	client.BaseURL = base

	g, err := NewGitHub(context.Background(), client, "octo/blog")
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}
	return g
}

func TestSplitRepository(t *testing.T) {
	owner, repo, err := SplitRepository("octo/blog")
	if err != nil || owner != "octo" || repo != "blog" {
		t.Errorf("SplitRepository = %q, %q, %v", owner, repo, err)
	}
	for _, bad := range []string{"", "octo", "/blog", "octo/", "a/b/c"} {
		if _, _, err := SplitRepository(bad); !errors.Is(err, apperr.ErrInvalidRepository) {
			t.Errorf("SplitRepository(%q) err = %v", bad, err)
		}
	}
}

func TestNewGitHubClient_RequiresToken(t *testing.T) {
	if _, err := NewGitHubClient(context.Background(), "", ""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestListLabels_FollowsPages(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("GET /repos/octo/blog/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name":"notes","color":"00ff00"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octo/blog/labels?page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `[{"name":"go","color":"ff0000"}]`)
	})
	g := newTestGitHub(t, mux)
	srvURL = g.client.BaseURL.String()
	srvURL = srvURL[:len(srvURL)-1]

	labels, err := g.ListLabels(context.Background())
	if err != nil {
		t.Fatalf("ListLabels: %v", err)
	}
	want := []models.Label{{Name: "go", Color: "ff0000"}, {Name: "notes", Color: "00ff00"}}
	if len(labels) != len(want) || labels[0] != want[0] || labels[1] != want[1] {
		t.Errorf("labels = %+v, want %+v", labels, want)
	}
}

func TestListOpenIssues_DropsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/blog/issues", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state = %q, want open", got)
		}
		fmt.Fprint(w, `[
			{"number":2,"title":"Post","body":"b","state":"open","html_url":"https://github.com/octo/blog/issues/2","labels":[{"name":"go"}]},
			{"number":3,"title":"PR","state":"open","pull_request":{"url":"x"}}
		]`)
	})
	g := newTestGitHub(t, mux)

	issues, err := g.ListOpenIssues(context.Background())
	if err != nil {
		t.Fatalf("ListOpenIssues: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %+v", issues)
	}
	got := issues[0]
	if got.Number != 2 || got.Title != "Post" || got.URL != "https://github.com/octo/blog/issues/2" || got.Labels[0] != "go" {
		t.Errorf("issue = %+v", got)
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{"missing", http.StatusNotFound, true},
		{"deleted", http.StatusGone, true},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /repos/octo/blog/issues/1", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"message":"%s"}`, http.StatusText(tt.status))
			})
			g := newTestGitHub(t, mux)

			_, err := g.GetIssue(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, apperr.ErrNotFound); got != tt.notFound {
				t.Errorf("errors.Is(%v, ErrNotFound) = %v, want %v", err, got, tt.notFound)
			}
		})
	}
}

func TestCreateAndEditIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/blog/issues", func(w http.ResponseWriter, r *http.Request) {
		var req github.IssueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.GetTitle() != "Hello" || req.Labels == nil || len(*req.Labels) != 0 {
			t.Errorf("create request = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"number":7,"title":%q,"body":%q,"state":"open"}`, req.GetTitle(), req.GetBody())
	})
	mux.HandleFunc("PATCH /repos/octo/blog/issues/7", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if _, ok := req["title"]; ok {
			t.Errorf("close request should not send a title: %v", req)
		}
		fmt.Fprintf(w, `{"number":7,"title":"Hello","state":%q}`, req["state"])
	})
	mux.HandleFunc("POST /repos/octo/blog/labels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"name":"go","color":"abcdef"}`)
	})
	g := newTestGitHub(t, mux)
	ctx := context.Background()

	created, err := g.CreateIssue(ctx, "Hello", "body", nil)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if created.Number != 7 || created.Body != "body" {
		t.Errorf("created = %+v", created)
	}

	closed, err := g.EditIssue(ctx, 7, IssueEdit{State: Ptr(models.IssueClosed)})
	if err != nil {
		t.Fatalf("EditIssue: %v", err)
	}
	if closed.State != models.IssueClosed {
		t.Errorf("state = %q", closed.State)
	}

	label, err := g.CreateLabel(ctx, "go", "abcdef")
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	if label.Color != "abcdef" {
		t.Errorf("label = %+v", label)
	}
}

func TestNewGitHub_MissingRepository(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	client := github.NewClient(nil)
	client.BaseURL, _ = url.Parse(srv.URL + "/")

	if _, err := NewGitHub(context.Background(), client, "octo/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
