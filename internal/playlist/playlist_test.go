package playlist

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/issueblog/internal/testutil"
)

func TestArgs_Defaults(t *testing.T) {
	opts := DefaultOptions()
	opts.URL = "https://www.youtube.com/playlist?list=PL123"
	opts.OutputDir = "/music"

	want := []string{
		"-f", "bestaudio/best",
		"-o", filepath.Join("/music", "%(title)s - %(artist)s.%(ext)s"),
		"-x", "--audio-format", "mp3", "--audio-quality", "0",
		"--embed-thumbnail", "--embed-metadata", "--ignore-errors",
		"--download-archive", filepath.Join("/music", "downloaded_songs.txt"),
		"https://www.youtube.com/playlist?list=PL123",
	}
	if got := opts.Args(); !slices.Equal(got, want) {
		t.Errorf("Args() =\n%q\nwant\n%q", got, want)
	}
}

func TestArgs_Minimal(t *testing.T) {
	opts := Options{URL: "https://example.com/list", OutputDir: "out", OutputTemplate: "%(id)s.%(ext)s"}
	want := []string{"-o", filepath.Join("out", "%(id)s.%(ext)s"), "https://example.com/list"}
	if got := opts.Args(); !slices.Equal(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err == nil {
		t.Error("expected error for missing url and output dir")
	}
	opts.URL = "not a url"
	opts.OutputDir = "out"
	if err := opts.Validate(); err == nil {
		t.Error("expected error for malformed url")
	}
	opts.URL = "https://example.com/list"
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDownload_RunsResolvedBinary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "music")
	opts := DefaultOptions()
	opts.URL = "https://example.com/list"
	opts.OutputDir = out

	var gotBin string
	var gotArgs []string
	d := NewDownloader(testutil.Logger(),
		WithLookPath(func(name string) (string, error) { return "/usr/bin/" + name, nil }),
		WithRunner(func(_ context.Context, bin string, args []string, _, _ io.Writer) error {
			gotBin, gotArgs = bin, args
			return nil
		}),
	)
	if err := d.Download(context.Background(), opts); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if gotBin != "/usr/bin/yt-dlp" {
		t.Errorf("binary = %q", gotBin)
	}
	if !slices.Equal(gotArgs, opts.Args()) {
		t.Errorf("args = %q", gotArgs)
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestDownload_MissingBinary(t *testing.T) {
	opts := DefaultOptions()
	opts.URL = "https://example.com/list"
	opts.OutputDir = t.TempDir()

	d := NewDownloader(testutil.Logger(),
		WithLookPath(func(string) (string, error) { return "", errors.New("not found") }),
	)
	if err := d.Download(context.Background(), opts); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("err = %v, want ErrBinaryNotFound", err)
	}
}

func TestDownload_RunnerErrorPropagates(t *testing.T) {
	opts := DefaultOptions()
	opts.URL = "https://example.com/list"
	opts.OutputDir = t.TempDir()

	boom := errors.New("exit status 1")
	d := NewDownloader(testutil.Logger(),
		WithLookPath(func(name string) (string, error) { return name, nil }),
		WithRunner(func(context.Context, string, []string, io.Writer, io.Writer) error { return boom }),
	)
	if err := d.Download(context.Background(), opts); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped runner error", err)
	}
}
