package publish

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/tracker"
)

// ColorFunc returns a 6 hex digit label colour.
type ColorFunc func() string

// RandomColor picks a uniformly random colour.
func RandomColor() string {
	return fmt.Sprintf("%06x", rand.IntN(0x1000000))
}

// ReconcileResult is the outcome of a reconcile pass.
type ReconcileResult struct {
	// Issues maps post id to issue: every remote issue that was indexed plus
	// every issue created in this pass.
	Issues        map[string]*models.Issue
	Created       []string
	Updated       []string
	Closed        []string
	LabelsCreated []string
}

// Reconciler brings the remote issue set into agreement with local posts.
type Reconciler struct {
	tracker     tracker.Tracker
	transformer *content.Transformer
	logger      *slog.Logger
	color       ColorFunc
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithColorFunc overrides how new label colours are chosen.
func WithColorFunc(fn ColorFunc) ReconcilerOption {
	return func(r *Reconciler) {
		r.color = fn
	}
}

// NewReconciler creates a reconciler.
func NewReconciler(t tracker.Tracker, transformer *content.Transformer, logger *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		tracker:     t,
		transformer: transformer,
		logger:      logger,
		color:       RandomColor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile processes posts in ascending date order (stable for equal dates):
// each post's issue is created, or edited when title, body or label set
// differ. Remote issues whose post was not seen are closed afterwards.
// labels is updated in place with any label created along the way.
//
// A tracker failure aborts the pass; mutations already made are kept.
func (r *Reconciler) Reconcile(ctx context.Context, posts []models.Post, labels map[string]models.Label, remote map[string]*models.Issue) (*ReconcileResult, error) {
	ordered := slices.Clone(posts)
	slices.SortStableFunc(ordered, func(a, b models.Post) int {
		return a.Date.Compare(b.Date)
	})

	if labels == nil {
		labels = map[string]models.Label{}
	}
	res := &ReconcileResult{Issues: maps.Clone(remote)}
	if res.Issues == nil {
		res.Issues = map[string]*models.Issue{}
	}
	visited := make(map[string]struct{}, len(ordered))

	for _, post := range ordered {
		visited[post.ID] = struct{}{}

		names, err := r.ensureLabels(ctx, post.Labels, labels, res)
		if err != nil {
			return res, err
		}

		body := r.transformer.Rewrite(post.Body, post.Slug)
		rendered := RenderBody(body, post.ID)

		issue, ok := remote[post.ID]
		if !ok {
			r.logger.Info("creating issue for new post", slog.String("post_id", post.ID), slog.String("title", post.Title))
			created, err := r.tracker.CreateIssue(ctx, post.Title, rendered, names)
			if err != nil {
				return res, fmt.Errorf("publish: create issue for %s: %w", post.ID, err)
			}
			res.Issues[post.ID] = created
			res.Created = append(res.Created, post.ID)
			continue
		}

		if issue.Title == post.Title && StripMarker(issue.Body) == body && sameSet(issue.Labels, names) {
			continue
		}

		r.logger.Info("updating issue", slog.String("post_id", post.ID), slog.Int("number", issue.Number))
		if _, err := r.tracker.EditIssue(ctx, issue.Number, tracker.IssueEdit{
			Title:  tracker.Ptr(post.Title),
			Body:   tracker.Ptr(rendered),
			Labels: tracker.Ptr(names),
		}); err != nil {
			return res, fmt.Errorf("publish: update issue #%d for %s: %w", issue.Number, post.ID, err)
		}
		res.Updated = append(res.Updated, post.ID)
	}

	for _, id := range slices.Sorted(maps.Keys(remote)) {
		if _, ok := visited[id]; ok {
			continue
		}
		issue := remote[id]
		r.logger.Info("closing issue for deleted post", slog.String("post_id", id), slog.Int("number", issue.Number))
		if _, err := r.tracker.EditIssue(ctx, issue.Number, tracker.IssueEdit{
			State: tracker.Ptr(models.IssueClosed),
		}); err != nil {
			return res, fmt.Errorf("publish: close issue #%d for %s: %w", issue.Number, id, err)
		}
		res.Closed = append(res.Closed, id)
	}

	return res, nil
}

// ensureLabels resolves names against known, creating any that are missing.
func (r *Reconciler) ensureLabels(ctx context.Context, names []string, known map[string]models.Label, res *ReconcileResult) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := known[name]; !ok {
			color := r.color()
			r.logger.Info("label not found, creating it", slog.String("label", name), slog.String("color", color))
			label, err := r.tracker.CreateLabel(ctx, name, color)
			if err != nil {
				return nil, fmt.Errorf("publish: create label %q: %w", name, err)
			}
			known[name] = label
			res.LabelsCreated = append(res.LabelsCreated, name)
		}
		out = append(out, known[name].Name)
	}
	return out, nil
}

func sameSet(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}
	return maps.Equal(setA, setB)
}
