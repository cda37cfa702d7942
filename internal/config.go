package internal

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/playlist"
	"github.com/starford/issueblog/internal/posts"
	"github.com/starford/issueblog/internal/publish"
	"github.com/starford/issueblog/internal/scaffold"
	"github.com/starford/issueblog/internal/tracker"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	GitHub   GitHubConfig      `yaml:"github"`
	Blog     BlogConfig        `yaml:"blog"`
	TOC      TOCConfig         `yaml:"toc"`
	Scaffold ScaffoldConfig    `yaml:"scaffold"`
	Playlist playlist.Options  `yaml:"playlist"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration shared by every command. GitHub
// credentials and playlist options are checked by the commands that use them.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Blog.Validate(); err != nil {
		return err
	}
	if err := c.TOC.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GitHubConfig identifies the repository whose issues mirror the blog.
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Repository string `yaml:"repository"`
	// APIURL points at a GitHub Enterprise API; empty means github.com.
	APIURL  string `yaml:"api_url"`
	RawHost string `yaml:"raw_host"`
	Branch  string `yaml:"branch"`
}

// Validate checks the credentials before any network call is made.
func (c *GitHubConfig) Validate() error {
	if c.Token == "" {
		return errors.New("GITHUB_TOKEN environment variable not found")
	}
	if c.Repository == "" {
		return errors.New("GITHUB_REPOSITORY environment variable not found")
	}
	if _, _, err := tracker.SplitRepository(c.Repository); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, is.URL),
		validation.Field(&c.RawHost, validation.Required, is.URL),
		validation.Field(&c.Branch, validation.Required),
	)
}

// BlogConfig describes the posts tree.
type BlogConfig struct {
	// PostsDir is the local directory holding one subdirectory per post.
	PostsDir  string `yaml:"posts_dir"`
	IndexFile string `yaml:"index_file"`
	// RepoPath is where PostsDir lives inside the repository, used to build
	// raw asset URLs.
	RepoPath string `yaml:"repo_path"`
}

// Validate validates the blog configuration.
func (c *BlogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PostsDir, validation.Required),
		validation.Field(&c.IndexFile, validation.Required),
	)
}

// TOCConfig configures the table-of-contents issue.
type TOCConfig struct {
	IssueNumber   int      `yaml:"issue_number"`
	Title         string   `yaml:"title"`
	IgnorePostIDs []string `yaml:"ignore_post_ids"`
}

// Validate validates the table-of-contents configuration.
func (c *TOCConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IssueNumber, validation.Required, validation.Min(1)),
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.IgnorePostIDs, validation.Each(validation.By(func(v any) error {
			id, _ := v.(string)
			return posts.ValidateID(id)
		}))),
	)
}

// Options converts the section to publisher options.
func (c *TOCConfig) Options() publish.TOCOptions {
	return publish.TOCOptions{
		Number:    c.IssueNumber,
		Title:     c.Title,
		IgnoreIDs: c.IgnorePostIDs,
	}
}

// ScaffoldConfig configures the new-post command.
type ScaffoldConfig struct {
	DefaultLabel string `yaml:"default_label"`
}

// AuthConfig holds authentication configuration for the HTTP trigger.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		GitHub: GitHubConfig{
			RawHost: content.DefaultRawHost,
			Branch:  "main",
		},
		Blog: BlogConfig{
			PostsDir:  "posts",
			IndexFile: posts.DefaultIndexFile,
			RepoPath:  "posts",
		},
		TOC: TOCConfig{
			IssueNumber: publish.DefaultTOCNumber,
			Title:       publish.DefaultTOCTitle,
		},
		Scaffold: ScaffoldConfig{
			DefaultLabel: scaffold.DefaultLabel,
		},
		Playlist: playlist.DefaultOptions(),
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
