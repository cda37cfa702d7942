package tracker

import (
	"context"
	"log/slog"

	"github.com/starford/issueblog/internal/models"
)

// DryRun forwards reads to the wrapped tracker and logs mutations instead of
// sending them. Issues it pretends to create get negative numbers.
type DryRun struct {
	next   Tracker
	logger *slog.Logger
	issued int
}

var _ Tracker = (*DryRun)(nil)

// NewDryRun wraps next.
func NewDryRun(next Tracker, logger *slog.Logger) *DryRun {
	return &DryRun{next: next, logger: logger}
}

// ListLabels forwards to the wrapped tracker.
func (d *DryRun) ListLabels(ctx context.Context) ([]models.Label, error) {
	return d.next.ListLabels(ctx)
}

// ListOpenIssues forwards to the wrapped tracker.
func (d *DryRun) ListOpenIssues(ctx context.Context) ([]*models.Issue, error) {
	return d.next.ListOpenIssues(ctx)
}

// GetIssue forwards to the wrapped tracker.
func (d *DryRun) GetIssue(ctx context.Context, number int) (*models.Issue, error) {
	return d.next.GetIssue(ctx, number)
}

// CreateLabel logs the label and returns it without creating it.
func (d *DryRun) CreateLabel(_ context.Context, name, color string) (models.Label, error) {
	d.logger.Info("dry-run: create label", slog.String("name", name), slog.String("color", color))
	return models.Label{Name: name, Color: color}, nil
}

// CreateIssue logs the issue and returns it with a negative placeholder number.
func (d *DryRun) CreateIssue(_ context.Context, title, body string, labels []string) (*models.Issue, error) {
	d.issued++
	d.logger.Info("dry-run: create issue", slog.String("title", title), slog.Any("labels", labels))
	return &models.Issue{
		Number: -d.issued,
		Title:  title,
		Body:   body,
		Labels: append([]string{}, labels...),
		State:  models.IssueOpen,
	}, nil
}

// EditIssue logs the edit and returns an issue carrying only the edited fields.
func (d *DryRun) EditIssue(_ context.Context, number int, edit IssueEdit) (*models.Issue, error) {
	attrs := []any{slog.Int("number", number)}
	out := &models.Issue{Number: number, State: models.IssueOpen}
	if edit.Title != nil {
		out.Title = *edit.Title
		attrs = append(attrs, slog.String("title", *edit.Title))
	}
	if edit.Body != nil {
		out.Body = *edit.Body
		attrs = append(attrs, slog.Int("body_bytes", len(*edit.Body)))
	}
	if edit.Labels != nil {
		out.Labels = append([]string{}, *edit.Labels...)
		attrs = append(attrs, slog.Any("labels", *edit.Labels))
	}
	if edit.State != nil {
		out.State = *edit.State
		attrs = append(attrs, slog.String("state", *edit.State))
	}
	d.logger.Info("dry-run: edit issue", attrs...)
	return out, nil
}
