// Package posts loads blog posts from the posts tree. Each post lives in its
// own directory with an index document whose front matter names the post.
package posts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/issueblog/internal/frontmatter"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/storage"
)

// DefaultIndexFile is the post source document inside each post directory.
const DefaultIndexFile = "index.md"

// IDLength is the number of characters in a post id.
const IDLength = 6

var idPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// SkipReason explains why a post directory was excluded from sync.
type SkipReason string

const (
	SkipNoIndexFile   SkipReason = "no-index-file"
	SkipNoFrontMatter SkipReason = "no-front-matter"
	SkipUnterminated  SkipReason = "unterminated-front-matter"
	SkipMissingID     SkipReason = "missing-id"
	SkipInvalidID     SkipReason = "invalid-id"
	SkipMissingTitle  SkipReason = "missing-title"
	SkipMissingDate   SkipReason = "missing-date"
	SkipInvalidDate   SkipReason = "invalid-date"
	SkipDuplicateID   SkipReason = "duplicate-id"
)

// Skip records an excluded post directory.
type Skip struct {
	Slug   string     `json:"slug"`
	Reason SkipReason `json:"reason"`
}

// Outcome is the result of validating one post source: either a Post or a
// non-empty Reason.
type Outcome struct {
	Post   models.Post
	Reason SkipReason
}

// Valid reports whether the outcome carries a post.
func (o Outcome) Valid() bool {
	return o.Reason == ""
}

// Result holds every valid post, in directory order, and every skipped directory.
type Result struct {
	Posts   []models.Post
	Skipped []Skip
}

// Loader reads posts from a storage provider.
type Loader struct {
	store     storage.Provider
	indexFile string
	logger    *slog.Logger
}

// NewLoader creates a loader. An empty indexFile means DefaultIndexFile.
func NewLoader(store storage.Provider, indexFile string, logger *slog.Logger) *Loader {
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}
	return &Loader{store: store, indexFile: indexFile, logger: logger}
}

// Load walks the top-level directories of the posts tree. Directories that do
// not hold a valid post are reported in Result.Skipped; only I/O failures
// other than a missing index document are returned as errors.
func (l *Loader) Load() (*Result, error) {
	dirs, err := l.store.ListDirs("")
	if err != nil {
		return nil, fmt.Errorf("posts: %w", err)
	}

	res := &Result{}
	seen := make(map[string]string, len(dirs))
	for _, slug := range dirs {
		data, err := l.store.Read(path.Join(slug, l.indexFile))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				res.skip(l.logger, slug, SkipNoIndexFile)
				continue
			}
			return nil, fmt.Errorf("posts: %w", err)
		}

		out := Validate(slug, data)
		if !out.Valid() {
			res.skip(l.logger, slug, out.Reason)
			continue
		}
		if first, dup := seen[out.Post.ID]; dup {
			l.logger.Warn("posts: duplicate id",
				slog.String("id", out.Post.ID),
				slog.String("kept", first),
				slog.String("skipped", slug))
			res.skip(l.logger, slug, SkipDuplicateID)
			continue
		}
		seen[out.Post.ID] = slug
		res.Posts = append(res.Posts, out.Post)
	}
	return res, nil
}

func (r *Result) skip(logger *slog.Logger, slug string, reason SkipReason) {
	logger.Debug("posts: skipped", slog.String("slug", slug), slog.String("reason", string(reason)))
	r.Skipped = append(r.Skipped, Skip{Slug: slug, Reason: reason})
}

// Validate parses a post source and checks the identifying fields.
func Validate(slug string, data []byte) Outcome {
	doc, err := frontmatter.Parse(data)
	switch {
	case errors.Is(err, frontmatter.ErrUnterminated):
		return Outcome{Reason: SkipUnterminated}
	case err != nil:
		return Outcome{Reason: SkipNoFrontMatter}
	}

	id, _ := doc.Fields.Get("id")
	if id == "" {
		return Outcome{Reason: SkipMissingID}
	}
	if err := ValidateID(id); err != nil {
		return Outcome{Reason: SkipInvalidID}
	}

	title, _ := doc.Fields.Get("title")
	if title == "" {
		return Outcome{Reason: SkipMissingTitle}
	}

	rawDate, _ := doc.Fields.Get("date")
	if rawDate == "" {
		return Outcome{Reason: SkipMissingDate}
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return Outcome{Reason: SkipInvalidDate}
	}

	return Outcome{Post: models.Post{
		ID:     id,
		Title:  title,
		Date:   date,
		Labels: labels(doc.Fields),
		Body:   doc.Body,
		Slug:   slug,
	}}
}

// ValidateID checks that id is exactly IDLength lowercase alphanumerics.
func ValidateID(id string) error {
	return validation.Validate(id,
		validation.Required,
		validation.Length(IDLength, IDLength),
		validation.Match(idPattern).Error("must contain only lowercase letters and digits"),
	)
}

// parseDate reads a YYYY-MM-DD prefix, so "2024-01-01 09:30" is accepted.
func parseDate(raw string) (time.Time, error) {
	if len(raw) > len(models.DateLayout) {
		raw = raw[:len(models.DateLayout)]
	}
	return time.Parse(models.DateLayout, raw)
}

// labels collects the optional `label` field and the comma separated
// `labels` field, dropping blanks and duplicates.
func labels(fields frontmatter.Fields) []string {
	var raw []string
	if v, ok := fields.Get("label"); ok {
		raw = append(raw, v)
	}
	if v, ok := fields.Get("labels"); ok {
		raw = append(raw, strings.Split(v, ",")...)
	}

	seen := make(map[string]struct{}, len(raw))
	out := []string{}
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
