// Package models defines the domain types shared by the loader, the tracker
// adapters and the publisher.
package models

import "time"

// DateLayout is the front matter date format.
const DateLayout = "2006-01-02"

// Issue states.
const (
	IssueOpen   = "open"
	IssueClosed = "closed"
)

// Post is a validated blog post read from the posts tree.
type Post struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
	Labels []string  `json:"labels"`
	Body   string    `json:"-"`
	Slug   string    `json:"slug"`
}

// DateString returns the post date in front matter form.
func (p Post) DateString() string {
	return p.Date.Format(DateLayout)
}

// Issue is the tracker-side mirror of a post, or any other issue in the repository.
type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Body   string   `json:"-"`
	Labels []string `json:"labels"`
	State  string   `json:"state"`
	URL    string   `json:"url"`
}

// Label is a named, coloured tag owned by the tracker.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}
