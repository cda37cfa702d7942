// Package scaffold creates new post directories with a ready-to-edit index
// document and an empty assets folder.
package scaffold

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/posts"
	"github.com/starford/issueblog/internal/storage"
)

// DefaultLabel is used when a request names no label.
const DefaultLabel = "uncategorized"

// ErrEmptyTitle is returned when the title is blank after trimming.
var ErrEmptyTitle = errors.New("scaffold: title cannot be empty")

const (
	letters = "abcdefghijklmnopqrstuvwxyz"
	digits  = "0123456789"
)

// Request describes the post to create.
type Request struct {
	Title string
	Label string
}

// Created describes a scaffolded post. Paths are relative to the posts tree.
type Created struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Date      string `json:"date"`
	IndexPath string `json:"index_path"`
	AssetsDir string `json:"assets_dir"`
}

// Scaffolder writes new posts into a storage provider.
type Scaffolder struct {
	store        storage.Provider
	indexFile    string
	defaultLabel string
	now          func() time.Time
	newID        func() string
	logger       *slog.Logger
}

// Option configures a Scaffolder.
type Option func(*Scaffolder)

// WithClock overrides the clock used for the post date.
func WithClock(now func() time.Time) Option {
	return func(s *Scaffolder) {
		s.now = now
	}
}

// WithIDFunc overrides post id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Scaffolder) {
		s.newID = fn
	}
}

// New creates a scaffolder. Empty indexFile and defaultLabel take the package defaults.
func New(store storage.Provider, indexFile, defaultLabel string, logger *slog.Logger, opts ...Option) *Scaffolder {
	if indexFile == "" {
		indexFile = posts.DefaultIndexFile
	}
	if defaultLabel == "" {
		defaultLabel = DefaultLabel
	}
	s := &Scaffolder{
		store:        store,
		indexFile:    indexFile,
		defaultLabel: defaultLabel,
		now:          time.Now,
		newID:        GenerateID,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create makes <slug>/assets/ and <slug>/<index file>. An existing slug
// directory is never touched.
func (s *Scaffolder) Create(req Request) (*Created, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = s.defaultLabel
	}

	dir, err := Slugify(title)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.Exists(dir)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("scaffold: directory %q: %w", dir, apperr.ErrAlreadyExists)
	}

	id := s.newID()
	if err := posts.ValidateID(id); err != nil {
		return nil, fmt.Errorf("scaffold: generated id %q: %w", id, err)
	}

	out := &Created{
		ID:        id,
		Slug:      dir,
		Date:      s.now().Format(models.DateLayout),
		IndexPath: path.Join(dir, s.indexFile),
		AssetsDir: path.Join(dir, content.AssetsDir),
	}
	if err := s.store.MkdirAll(out.AssetsDir); err != nil {
		return nil, err
	}
	if err := s.store.Write(out.IndexPath, []byte(render(title, out.Date, label, id))); err != nil {
		return nil, err
	}

	s.logger.Info("created new post",
		slog.String("dir", dir),
		slog.String("id", id),
		slog.String("index", out.IndexPath),
		slog.String("assets", out.AssetsDir))
	return out, nil
}

func render(title, date, label, id string) string {
	return fmt.Sprintf("---\ntitle: %s\ndate: %s\nlabel: %s\nid: %s\n---\n\n", title, date, label, id)
}

// Slugify turns a post title into a directory name.
func Slugify(title string) (string, error) {
	s, err := slug.Normalize(title)
	if err != nil {
		return "", fmt.Errorf("scaffold: slug for %q: %w", title, err)
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "", fmt.Errorf("scaffold: title %q has no usable characters", title)
	}
	return s, nil
}

// GenerateID returns three letter-digit pairs, e.g. "k3x9b1".
func GenerateID() string {
	var b strings.Builder
	for range posts.IDLength / 2 {
		b.WriteByte(letters[rand.IntN(len(letters))])
		b.WriteByte(digits[rand.IntN(len(digits))])
	}
	return b.String()
}
