// Package publish mirrors local posts as tracker issues and maintains the
// table-of-contents issue that links to them.
package publish

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/posts"
	"github.com/starford/issueblog/internal/tracker"
)

// Report summarises one sync pass.
type Report struct {
	Posts         int          `json:"posts"`
	Created       []string     `json:"created"`
	Updated       []string     `json:"updated"`
	Closed        []string     `json:"closed"`
	LabelsCreated []string     `json:"labels_created"`
	Skipped       []posts.Skip `json:"skipped"`
	TOCUpdated    bool         `json:"toc_updated"`
	Duration      string       `json:"duration"`
}

// Mutations counts the tracker writes made during the pass, excluding the
// one-time creation of the table-of-contents issue.
func (r *Report) Mutations() int {
	n := len(r.Created) + len(r.Updated) + len(r.Closed) + len(r.LabelsCreated)
	if r.TOCUpdated {
		n++
	}
	return n
}

// Publisher runs sync passes. Passes are serialized.
type Publisher struct {
	mu         sync.Mutex
	tracker    tracker.Tracker
	loader     *posts.Loader
	reconciler *Reconciler
	toc        *TOC
	logger     *slog.Logger
}

// New wires a publisher.
func New(t tracker.Tracker, loader *posts.Loader, transformer *content.Transformer, tocOpts TOCOptions, logger *slog.Logger, opts ...ReconcilerOption) *Publisher {
	return &Publisher{
		tracker:    t,
		loader:     loader,
		reconciler: NewReconciler(t, transformer, logger, opts...),
		toc:        NewTOC(t, tocOpts, logger),
		logger:     logger,
	}
}

// Run performs one full pass: load posts, reserve the table of contents,
// index remote issues, reconcile, and refresh the table of contents.
func (p *Publisher) Run(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	loaded, err := p.loader.Load()
	if err != nil {
		return nil, err
	}
	report := &Report{Posts: len(loaded.Posts), Skipped: loaded.Skipped}

	labelList, err := p.tracker.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]models.Label, len(labelList))
	for _, l := range labelList {
		labels[l.Name] = l
	}

	// Resolve the table of contents once per pass, before any post issue can
	// take the reserved number.
	tocIssue, err := p.toc.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := BuildRemoteIndex(ctx, p.tracker, tocIssue.Number)
	if err != nil {
		return nil, err
	}

	res, err := p.reconciler.Reconcile(ctx, loaded.Posts, labels, remote)
	if res != nil {
		report.Created = res.Created
		report.Updated = res.Updated
		report.Closed = res.Closed
		report.LabelsCreated = res.LabelsCreated
	}
	if err != nil {
		return report, err
	}

	report.TOCUpdated, err = p.toc.Publish(ctx, tocIssue, loaded.Posts, res.Issues)
	if err != nil {
		return report, err
	}

	report.Duration = time.Since(start).String()
	p.logger.Info("blog update finished",
		slog.Int("posts", report.Posts),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("created", len(report.Created)),
		slog.Int("updated", len(report.Updated)),
		slog.Int("closed", len(report.Closed)),
		slog.Bool("toc_updated", report.TOCUpdated),
		slog.String("duration", report.Duration))
	return report, nil
}

// Posts loads the posts tree without touching the tracker.
func (p *Publisher) Posts() (*posts.Result, error) {
	return p.loader.Load()
}
