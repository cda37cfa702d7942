// Package playlist downloads a music playlist as audio files by driving the
// yt-dlp command-line tool.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	DefaultBinary         = "yt-dlp"
	DefaultFormat         = "bestaudio/best"
	DefaultOutputTemplate = "%(title)s - %(artist)s.%(ext)s"
	DefaultAudioFormat    = "mp3"
	DefaultAudioQuality   = "0"
	DefaultArchiveFile    = "downloaded_songs.txt"
)

// ErrBinaryNotFound is returned when the downloader is not on PATH.
var ErrBinaryNotFound = errors.New("playlist: downloader binary not found")

// Options configures one download.
type Options struct {
	URL            string `yaml:"url"`
	OutputDir      string `yaml:"output_dir"`
	Binary         string `yaml:"binary"`
	Format         string `yaml:"format"`
	OutputTemplate string `yaml:"output_template"`
	AudioFormat    string `yaml:"audio_format"`
	AudioQuality   string `yaml:"audio_quality"`
	EmbedThumbnail bool   `yaml:"embed_thumbnail"`
	EmbedMetadata  bool   `yaml:"embed_metadata"`
	IgnoreErrors   bool   `yaml:"ignore_errors"`
	ArchiveFile    string `yaml:"archive_file"`
}

// DefaultOptions returns options that extract best-quality mp3 with
// thumbnail and tags, skipping broken entries and already-downloaded ones.
func DefaultOptions() Options {
	return Options{
		Binary:         DefaultBinary,
		Format:         DefaultFormat,
		OutputTemplate: DefaultOutputTemplate,
		AudioFormat:    DefaultAudioFormat,
		AudioQuality:   DefaultAudioQuality,
		EmbedThumbnail: true,
		EmbedMetadata:  true,
		IgnoreErrors:   true,
		ArchiveFile:    DefaultArchiveFile,
	}
}

// Validate reports missing fields and a malformed playlist URL.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.URL, validation.Required, is.URL),
		validation.Field(&o.OutputDir, validation.Required),
		validation.Field(&o.Binary, validation.Required),
		validation.Field(&o.OutputTemplate, validation.Required),
	)
}

// Args builds the downloader argv, without the binary name. The output
// template and archive file are placed inside OutputDir.
func (o Options) Args() []string {
	args := make([]string, 0, 16)
	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}
	args = append(args, "-o", filepath.Join(o.OutputDir, o.OutputTemplate))
	if o.AudioFormat != "" {
		args = append(args, "-x", "--audio-format", o.AudioFormat)
		if o.AudioQuality != "" {
			args = append(args, "--audio-quality", o.AudioQuality)
		}
	}
	if o.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if o.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	if o.IgnoreErrors {
		args = append(args, "--ignore-errors")
	}
	if o.ArchiveFile != "" {
		args = append(args, "--download-archive", filepath.Join(o.OutputDir, o.ArchiveFile))
	}
	return append(args, o.URL)
}

// Runner executes a resolved binary with args.
type Runner func(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error

// Downloader runs playlist downloads.
type Downloader struct {
	logger   *slog.Logger
	lookPath func(string) (string, error)
	run      Runner
	stdout   io.Writer
	stderr   io.Writer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRunner replaces process execution.
func WithRunner(r Runner) Option {
	return func(d *Downloader) {
		d.run = r
	}
}

// WithLookPath replaces binary resolution.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(d *Downloader) {
		d.lookPath = fn
	}
}

// WithOutput redirects the downloader's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Downloader) {
		d.stdout = stdout
		d.stderr = stderr
	}
}

// NewDownloader returns a Downloader that runs the real binary unless
// WithRunner replaces it.
func NewDownloader(logger *slog.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		logger:   logger,
		lookPath: exec.LookPath,
		run:      execRunner,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download validates opts, creates the output directory and runs the binary
// to completion.
func (d *Downloader) Download(ctx context.Context, opts Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("playlist: invalid options: %w", err)
	}
	bin, err := d.lookPath(opts.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, opts.Binary, err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("playlist: create output dir: %w", err)
	}

	args := opts.Args()
	d.logger.Info("downloading playlist",
		slog.String("url", opts.URL),
		slog.String("output_dir", opts.OutputDir),
		slog.String("binary", bin))
	if err := d.run(ctx, bin, args, d.stdout, d.stderr); err != nil {
		return fmt.Errorf("playlist: %s: %w", opts.Binary, err)
	}
	d.logger.Info("playlist download finished", slog.String("output_dir", opts.OutputDir))
	return nil
}

func execRunner(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
