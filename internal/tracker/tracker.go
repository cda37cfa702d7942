// Package tracker defines the issue tracker collaborator used by the
// publisher, with a GitHub implementation and a dry-run decorator.
package tracker

import (
	"context"

	"github.com/starford/issueblog/internal/models"
)

// Tracker is the set of remote operations a sync pass needs.
type Tracker interface {
	// ListLabels returns every label defined in the repository.
	ListLabels(ctx context.Context) ([]models.Label, error)
	// ListOpenIssues returns every open issue, pull requests excluded.
	ListOpenIssues(ctx context.Context) ([]*models.Issue, error)
	// CreateLabel creates a label with a 6 hex digit colour.
	CreateLabel(ctx context.Context, name, color string) (models.Label, error)
	// CreateIssue opens a new issue.
	CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error)
	// EditIssue applies the non-nil fields of edit to issue number.
	EditIssue(ctx context.Context, number int, edit IssueEdit) (*models.Issue, error)
	// GetIssue fetches one issue; it returns an error wrapping apperr.ErrNotFound
	// when the issue does not exist.
	GetIssue(ctx context.Context, number int) (*models.Issue, error)
}

// IssueEdit carries the fields to change on an issue. Nil fields are left as is.
type IssueEdit struct {
	Title  *string
	Body   *string
	Labels *[]string
	State  *string
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
