package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/tracker"
)

// Table-of-contents defaults.
const (
	DefaultTOCNumber = 1
	DefaultTOCTitle  = "Blog Table of Contents"
)

// TOCOptions configures the table-of-contents issue.
type TOCOptions struct {
	Number    int
	Title     string
	IgnoreIDs []string
}

// TOC maintains the singleton table-of-contents issue.
type TOC struct {
	tracker tracker.Tracker
	number  int
	title   string
	ignore  map[string]struct{}
	logger  *slog.Logger
}

// NewTOC creates a TOC publisher. Zero option fields take the defaults.
func NewTOC(t tracker.Tracker, opts TOCOptions, logger *slog.Logger) *TOC {
	if opts.Number == 0 {
		opts.Number = DefaultTOCNumber
	}
	if opts.Title == "" {
		opts.Title = DefaultTOCTitle
	}
	ignore := make(map[string]struct{}, len(opts.IgnoreIDs))
	for _, id := range opts.IgnoreIDs {
		ignore[id] = struct{}{}
	}
	return &TOC{
		tracker: t,
		number:  opts.Number,
		title:   opts.Title,
		ignore:  ignore,
		logger:  logger,
	}
}

// Number returns the reserved issue number.
func (t *TOC) Number() int {
	return t.number
}

// Ensure fetches the reserved issue, creating it with an empty body when it
// does not exist. An issue at the reserved number that carries a post marker
// is refused rather than overwritten.
func (t *TOC) Ensure(ctx context.Context) (*models.Issue, error) {
	issue, err := t.tracker.GetIssue(ctx, t.number)
	switch {
	case err == nil:
		if id, ok := ExtractPostID(issue.Body); ok {
			return nil, fmt.Errorf("publish: issue #%d is reserved for the table of contents but belongs to post %s", t.number, id)
		}
		t.logger.Debug("found table of contents", slog.Int("number", issue.Number))
		return issue, nil
	case errors.Is(err, apperr.ErrNotFound):
		t.logger.Info("table of contents not found, creating it", slog.Int("number", t.number))
		created, err := t.tracker.CreateIssue(ctx, t.title, "", nil)
		if err != nil {
			return nil, fmt.Errorf("publish: create table of contents: %w", err)
		}
		return created, nil
	default:
		return nil, fmt.Errorf("publish: get table of contents: %w", err)
	}
}

// Publish renders the listing and writes it to issue, the table of contents
// resolved by Ensure earlier in the pass, when it changed. It reports whether
// an edit was made.
func (t *TOC) Publish(ctx context.Context, issue *models.Issue, posts []models.Post, issues map[string]*models.Issue) (bool, error) {
	body := RenderTOC(posts, issues, t.ignore)
	if issue.Body == body {
		t.logger.Info("table of contents is already up to date")
		return false, nil
	}

	t.logger.Info("updating table of contents", slog.Int("number", issue.Number))
	if _, err := t.tracker.EditIssue(ctx, issue.Number, tracker.IssueEdit{Body: tracker.Ptr(body)}); err != nil {
		return false, fmt.Errorf("publish: update table of contents: %w", err)
	}
	return true, nil
}

// RenderTOC lists posts newest first (stable for equal dates), one
// "- [title](url) / date" line each. Ignored ids and posts without an issue
// are left out.
func RenderTOC(posts []models.Post, issues map[string]*models.Issue, ignore map[string]struct{}) string {
	ordered := slices.Clone(posts)
	slices.SortStableFunc(ordered, func(a, b models.Post) int {
		return b.Date.Compare(a.Date)
	})

	lines := make([]string, 0, len(ordered))
	for _, post := range ordered {
		if _, skip := ignore[post.ID]; skip {
			continue
		}
		issue, ok := issues[post.ID]
		if !ok || issue == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("- [%s](%s) / %s", post.Title, issue.URL, post.DateString()))
	}
	return strings.Join(lines, "\n")
}
