package internal

import (
	"io"
	"log/slog"
	"time"

	"github.com/starford/issueblog/internal/playlist"
	"github.com/starford/issueblog/internal/tracker"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	logger   *slog.Logger
	tracker  tracker.Tracker
	dryRun   bool
	watch    bool
	debounce time.Duration
	version  string
	stdout   io.Writer
	download []playlist.Option
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the app config section.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithTracker replaces the GitHub tracker. Credentials are not required then.
func WithTracker(t tracker.Tracker) Option {
	return func(a *application) {
		a.tracker = t
	}
}

// WithDryRun logs tracker mutations instead of sending them.
func WithDryRun(enabled bool) Option {
	return func(a *application) {
		a.dryRun = enabled
	}
}

// WithWatch keeps syncing as the posts tree changes.
func WithWatch(enabled bool, debounce time.Duration) Option {
	return func(a *application) {
		a.watch = enabled
		a.debounce = debounce
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets where command results are printed.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithDownloaderOptions customises the playlist downloader.
func WithDownloaderOptions(opts ...playlist.Option) Option {
	return func(a *application) {
		a.download = append(a.download, opts...)
	}
}
