// Package postservice is the application layer shared by the HTTP trigger
// and the MCP server: listing and scaffolding posts, storing post assets,
// previewing issue bodies and running sync passes.
package postservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/posts"
	"github.com/starford/issueblog/internal/publish"
	"github.com/starford/issueblog/internal/scaffold"
	"github.com/starford/issueblog/internal/sse"
	"github.com/starford/issueblog/internal/storage"
)

// PostDetail is the full representation of one post.
type PostDetail struct {
	ID     string   `json:"id"`
	Slug   string   `json:"slug"`
	Title  string   `json:"title"`
	Date   string   `json:"date"`
	Labels []string `json:"labels"`
	// Source is the raw index document.
	Source   string `json:"source"`
	Checksum string `json:"checksum"`
	// IssueBody is the body the issue will carry after the next sync.
	IssueBody string `json:"issue_body"`
}

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	ID     string   `json:"id"`
	Slug   string   `json:"slug"`
	Title  string   `json:"title"`
	Date   string   `json:"date"`
	Labels []string `json:"labels"`
}

// PostList is the result of loading the posts tree.
type PostList struct {
	Posts   []PostListItem `json:"posts"`
	Skipped []posts.Skip   `json:"skipped"`
}

// Asset describes a stored post asset.
type Asset struct {
	// Path is relative to the post directory, ready for Markdown.
	Path     string `json:"path"`
	Markdown string `json:"markdown"`
	// URL is where the asset is served from once pushed.
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// Notifier receives service events, such as a finished sync pass.
type Notifier interface {
	Notify(kind string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}

// Service coordinates storage, scaffolding and publishing.
type Service struct {
	store       storage.Provider
	publisher   *publish.Publisher
	scaffolder  *scaffold.Scaffolder
	transformer *content.Transformer
	indexFile   string
	notifier    Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sends sync, post and asset events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewService creates a new post service.
func NewService(store storage.Provider, publisher *publish.Publisher, scaffolder *scaffold.Scaffolder, transformer *content.Transformer, indexFile string, opts ...Option) *Service {
	if indexFile == "" {
		indexFile = posts.DefaultIndexFile
	}
	s := &Service{
		store:       store,
		publisher:   publisher,
		scaffolder:  scaffolder,
		transformer: transformer,
		indexFile:   indexFile,
		notifier:    nopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPosts loads the posts tree without touching the tracker.
func (s *Service) ListPosts(_ context.Context) (*PostList, error) {
	res, err := s.publisher.Posts()
	if err != nil {
		return nil, err
	}
	out := &PostList{
		Posts:   make([]PostListItem, 0, len(res.Posts)),
		Skipped: nonNilSlice(res.Skipped),
	}
	for _, p := range res.Posts {
		out.Posts = append(out.Posts, PostListItem{
			ID:     p.ID,
			Slug:   p.Slug,
			Title:  p.Title,
			Date:   p.DateString(),
			Labels: nonNilSlice(p.Labels),
		})
	}
	return out, nil
}

// GetPost returns the post with the given id.
func (s *Service) GetPost(_ context.Context, id string) (*PostDetail, error) {
	res, err := s.publisher.Posts()
	if err != nil {
		return nil, err
	}
	for _, p := range res.Posts {
		if p.ID != id {
			continue
		}
		data, err := s.store.Read(path.Join(p.Slug, s.indexFile))
		if err != nil {
			return nil, err
		}
		return &PostDetail{
			ID:        p.ID,
			Slug:      p.Slug,
			Title:     p.Title,
			Date:      p.DateString(),
			Labels:    nonNilSlice(p.Labels),
			Source:    string(data),
			Checksum:  checksum(data),
			IssueBody: publish.RenderBody(s.transformer.Rewrite(p.Body, p.Slug), p.ID),
		}, nil
	}
	return nil, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
}

// CreatePost scaffolds a new post.
func (s *Service) CreatePost(_ context.Context, req scaffold.Request) (*scaffold.Created, error) {
	created, err := s.scaffolder.Create(req)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(sse.EventPostCreated, created)
	return created, nil
}

// Sync runs one publishing pass.
func (s *Service) Sync(ctx context.Context) (*publish.Report, error) {
	s.notifier.Notify(sse.EventSyncStarted, struct{}{})
	report, err := s.publisher.Run(ctx)
	if err != nil {
		s.notifier.Notify(sse.EventSyncFailed, map[string]any{"error": err.Error(), "report": report})
		return report, err
	}
	s.notifier.Notify(sse.EventSyncFinished, report)
	return report, nil
}

// SaveAsset stores data as <slug>/assets/<name>. The post must exist and the
// asset must not.
func (s *Service) SaveAsset(_ context.Context, slug, name string, data []byte) (*Asset, error) {
	name, err := AssetName(name)
	if err != nil {
		return nil, err
	}
	if slug == "" || strings.ContainsAny(slug, `/\`) || slug == "." || slug == ".." {
		return nil, fmt.Errorf("invalid post directory %q", slug)
	}
	ok, err := s.store.Exists(path.Join(slug, s.indexFile))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("post directory %s: %w", slug, apperr.ErrNotFound)
	}

	rel := path.Join(content.AssetsDir, name)
	full := path.Join(slug, rel)
	if exists, err := s.store.Exists(full); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("asset %s: %w", full, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(full, data); err != nil {
		return nil, err
	}
	asset := &Asset{
		Path:     rel,
		Markdown: fmt.Sprintf("![%s](%s)", name, rel),
		URL:      s.transformer.AssetURL(slug, rel),
		Size:     len(data),
	}
	s.notifier.Notify(sse.EventAssetCreated, map[string]any{"slug": slug, "asset": asset})
	return asset, nil
}

// AssetName validates that name is a plain file name.
func AssetName(name string) (string, error) {
	if name == "" {
		return "", errors.New("filename is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return name, nil
}

// IsNotExist reports whether err means a missing file or post.
func IsNotExist(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
