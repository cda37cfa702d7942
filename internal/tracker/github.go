package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/models"
)

const pageSize = 100

// NewGitHubClient creates a GitHub client authenticated with a static token.
// A non-empty apiURL points the client at a GitHub Enterprise instance.
func NewGitHubClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if apiURL == "" {
		return client, nil
	}
	return client.WithEnterpriseURLs(apiURL, apiURL)
}

// SplitRepository splits an "owner/repo" identifier.
func SplitRepository(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q is not owner/repo", apperr.ErrInvalidRepository, fullName)
	}
	return owner, repo, nil
}

// GitHub implements Tracker on top of the GitHub issues API.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

var _ Tracker = (*GitHub)(nil)

// NewGitHub resolves the repository by its full name and returns a tracker
// bound to it.
func NewGitHub(ctx context.Context, client *github.Client, fullName string) (*GitHub, error) {
	owner, name, err := SplitRepository(fullName)
	if err != nil {
		return nil, err
	}
	repo, _, err := client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("tracker: repository %s: %w", fullName, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("tracker: get repository %s: %w", fullName, err)
	}
	return &GitHub{
		client: client,
		owner:  repo.GetOwner().GetLogin(),
		repo:   repo.GetName(),
	}, nil
}

// ListLabels returns every repository label.
func (g *GitHub) ListLabels(ctx context.Context) ([]models.Label, error) {
	opts := &github.ListOptions{PerPage: pageSize}
	var out []models.Label
	for {
		labels, resp, err := g.client.Issues.ListLabels(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("tracker: list labels: %w", err)
		}
		for _, l := range labels {
			out = append(out, models.Label{Name: l.GetName(), Color: l.GetColor()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// ListOpenIssues returns all open issues. The issues endpoint also returns
// pull requests; those are dropped.
func (g *GitHub) ListOpenIssues(ctx context.Context) ([]*models.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       models.IssueOpen,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	var out []*models.Issue
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("tracker: list issues: %w", err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, toIssue(issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// CreateLabel creates a repository label.
func (g *GitHub) CreateLabel(ctx context.Context, name, color string) (models.Label, error) {
	label, _, err := g.client.Issues.CreateLabel(ctx, g.owner, g.repo, &github.Label{
		Name:  github.String(name),
		Color: github.String(color),
	})
	if err != nil {
		return models.Label{}, fmt.Errorf("tracker: create label %q: %w", name, err)
	}
	return models.Label{Name: label.GetName(), Color: label.GetColor()}, nil
}

// CreateIssue opens an issue.
func (g *GitHub) CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error) {
	if labels == nil {
		labels = []string{}
	}
	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.repo, &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	})
	if err != nil {
		return nil, fmt.Errorf("tracker: create issue %q: %w", title, err)
	}
	return toIssue(issue), nil
}

// EditIssue updates an issue.
func (g *GitHub) EditIssue(ctx context.Context, number int, edit IssueEdit) (*models.Issue, error) {
	issue, _, err := g.client.Issues.Edit(ctx, g.owner, g.repo, number, &github.IssueRequest{
		Title:  edit.Title,
		Body:   edit.Body,
		Labels: edit.Labels,
		State:  edit.State,
	})
	if err != nil {
		return nil, fmt.Errorf("tracker: edit issue #%d: %w", number, err)
	}
	return toIssue(issue), nil
}

// GetIssue fetches an issue by number.
func (g *GitHub) GetIssue(ctx context.Context, number int) (*models.Issue, error) {
	issue, _, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("tracker: issue #%d: %w", number, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("tracker: get issue #%d: %w", number, err)
	}
	return toIssue(issue), nil
}

func toIssue(issue *github.Issue) *models.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	return &models.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		Labels: labels,
		State:  issue.GetState(),
		URL:    issue.GetHTMLURL(),
	}
}

// isNotFound reports a 404, or a 410 for issues that were deleted.
func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	code := ghErr.Response.StatusCode
	return code == http.StatusNotFound || code == http.StatusGone
}
