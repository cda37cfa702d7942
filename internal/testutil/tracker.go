package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/tracker"
)

// Mutating operation names recorded by FakeTracker.
const (
	OpCreateLabel = "create_label"
	OpCreateIssue = "create_issue"
	OpEditIssue   = "edit_issue"
)

// Call is one recorded mutating call.
type Call struct {
	Op     string
	Number int
	Edit   tracker.IssueEdit
	Name   string
	Color  string
}

// FakeTracker is an in-memory tracker.Tracker. It hands out copies so callers
// cannot mutate its state without going through the API.
type FakeTracker struct {
	Owner  string
	Repo   string
	labels map[string]models.Label
	issues map[int]*models.Issue
	calls  []Call

	// FailOn makes the named operation return an error.
	FailOn string
}

var _ tracker.Tracker = (*FakeTracker)(nil)

// NewFakeTracker returns an empty tracker for owner/repo.
func NewFakeTracker() *FakeTracker {
	return &FakeTracker{
		Owner:  "owner",
		Repo:   "repo",
		labels: map[string]models.Label{},
		issues: map[int]*models.Issue{},
	}
}

// AddLabel seeds a label without recording a call.
func (f *FakeTracker) AddLabel(name, color string) {
	f.labels[name] = models.Label{Name: name, Color: color}
}

// AddIssue seeds an issue without recording a call. Zero Number picks the
// next free number; empty State means open.
func (f *FakeTracker) AddIssue(issue models.Issue) *models.Issue {
	if issue.Number == 0 {
		issue.Number = f.nextNumber()
	}
	if issue.State == "" {
		issue.State = models.IssueOpen
	}
	if issue.URL == "" {
		issue.URL = f.url(issue.Number)
	}
	issue.Labels = append([]string{}, issue.Labels...)
	f.issues[issue.Number] = &issue
	return clone(&issue)
}

// Issue returns a copy of issue number, or nil.
func (f *FakeTracker) Issue(number int) *models.Issue {
	if issue, ok := f.issues[number]; ok {
		return clone(issue)
	}
	return nil
}

// Label returns a seeded or created label.
func (f *FakeTracker) Label(name string) (models.Label, bool) {
	l, ok := f.labels[name]
	return l, ok
}

// Calls returns every mutating call in order.
func (f *FakeTracker) Calls() []Call {
	return slices.Clone(f.calls)
}

// CallsOf returns the mutating calls with the given op.
func (f *FakeTracker) CallsOf(op string) []Call {
	var out []Call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls.
func (f *FakeTracker) ResetCalls() {
	f.calls = nil
}

// ListLabels implements tracker.Tracker.
func (f *FakeTracker) ListLabels(_ context.Context) ([]models.Label, error) {
	if err := f.fail("list_labels"); err != nil {
		return nil, err
	}
	out := make([]models.Label, 0, len(f.labels))
	for _, name := range slices.Sorted(maps.Keys(f.labels)) {
		out = append(out, f.labels[name])
	}
	return out, nil
}

// ListOpenIssues implements tracker.Tracker.
func (f *FakeTracker) ListOpenIssues(_ context.Context) ([]*models.Issue, error) {
	if err := f.fail("list_issues"); err != nil {
		return nil, err
	}
	var out []*models.Issue
	for _, n := range slices.Sorted(maps.Keys(f.issues)) {
		if f.issues[n].State == models.IssueOpen {
			out = append(out, clone(f.issues[n]))
		}
	}
	return out, nil
}

// CreateLabel implements tracker.Tracker.
func (f *FakeTracker) CreateLabel(_ context.Context, name, color string) (models.Label, error) {
	if err := f.fail(OpCreateLabel); err != nil {
		return models.Label{}, err
	}
	if _, ok := f.labels[name]; ok {
		return models.Label{}, fmt.Errorf("label %q: %w", name, apperr.ErrAlreadyExists)
	}
	f.calls = append(f.calls, Call{Op: OpCreateLabel, Name: name, Color: color})
	f.labels[name] = models.Label{Name: name, Color: color}
	return f.labels[name], nil
}

// CreateIssue implements tracker.Tracker.
func (f *FakeTracker) CreateIssue(_ context.Context, title, body string, labels []string) (*models.Issue, error) {
	if err := f.fail(OpCreateIssue); err != nil {
		return nil, err
	}
	n := f.nextNumber()
	f.calls = append(f.calls, Call{Op: OpCreateIssue, Number: n, Name: title})
	issue := &models.Issue{
		Number: n,
		Title:  title,
		Body:   body,
		Labels: append([]string{}, labels...),
		State:  models.IssueOpen,
		URL:    f.url(n),
	}
	f.issues[n] = issue
	return clone(issue), nil
}

// EditIssue implements tracker.Tracker.
func (f *FakeTracker) EditIssue(_ context.Context, number int, edit tracker.IssueEdit) (*models.Issue, error) {
	if err := f.fail(OpEditIssue); err != nil {
		return nil, err
	}
	issue, ok := f.issues[number]
	if !ok {
		return nil, fmt.Errorf("issue #%d: %w", number, apperr.ErrNotFound)
	}
	f.calls = append(f.calls, Call{Op: OpEditIssue, Number: number, Edit: edit})
	if edit.Title != nil {
		issue.Title = *edit.Title
	}
	if edit.Body != nil {
		issue.Body = *edit.Body
	}
	if edit.Labels != nil {
		issue.Labels = append([]string{}, *edit.Labels...)
		sort.Strings(issue.Labels)
	}
	if edit.State != nil {
		issue.State = *edit.State
	}
	return clone(issue), nil
}

// GetIssue implements tracker.Tracker.
func (f *FakeTracker) GetIssue(_ context.Context, number int) (*models.Issue, error) {
	if err := f.fail("get_issue"); err != nil {
		return nil, err
	}
	issue, ok := f.issues[number]
	if !ok {
		return nil, fmt.Errorf("issue #%d: %w", number, apperr.ErrNotFound)
	}
	return clone(issue), nil
}

func (f *FakeTracker) fail(op string) error {
	if f.FailOn == op {
		return fmt.Errorf("fake tracker: %s failed", op)
	}
	return nil
}

func (f *FakeTracker) nextNumber() int {
	n := 1
	for k := range f.issues {
		if k >= n {
			n = k + 1
		}
	}
	return n
}

func (f *FakeTracker) url(n int) string {
	return fmt.Sprintf("https://github.com/%s/%s/issues/%d", f.Owner, f.Repo, n)
}

func clone(issue *models.Issue) *models.Issue {
	c := *issue
	c.Labels = append([]string{}, issue.Labels...)
	return &c
}
