package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/issueblog/internal"
	"github.com/starford/issueblog/internal/publish"
	"github.com/starford/issueblog/internal/scaffold"
	pkgconfig "github.com/starford/issueblog/pkg/config"
)

var version = "dev"

// loadConfig reads the optional config file, then applies flags and their
// environment sources on top.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	if v := cmd.String("posts-dir"); v != "" {
		cfg.Blog.PostsDir = v
	}
	if v := cmd.String("token"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := cmd.String("repository"); v != "" {
		cfg.GitHub.Repository = v
	}
	return cfg, nil
}

func baseOptions(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogger(internal.NewLogger(os.Stderr, cfg.App)),
		internal.WithVersion(version),
	}
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := append(baseOptions(cfg),
		internal.WithDryRun(cmd.Bool("dry-run")),
		internal.WithWatch(cmd.Bool("watch"), cmd.Duration("debounce")),
	)
	if err := internal.Sync(ctx, opts...); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := append(baseOptions(cfg), internal.WithWatch(cmd.Bool("watch"), cmd.Duration("debounce")))
	if err := internal.Serve(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, baseOptions(cfg)...)
}

func runNew(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	title := cmd.String("title")
	label := cmd.String("label")
	if title == "" {
		in := bufio.NewReader(os.Stdin)
		if title, err = prompt(in, "Enter post title: "); err != nil {
			return err
		}
		if title == "" {
			return scaffold.ErrEmptyTitle
		}
		if label == "" {
			if label, err = prompt(in, fmt.Sprintf("Enter post label (default: %s): ", cfg.Scaffold.DefaultLabel)); err != nil {
				return err
			}
		}
	}

	created, err := internal.NewPost(scaffold.Request{Title: title, Label: label}, baseOptions(cfg)...)
	if err != nil {
		return err
	}
	fmt.Printf("Created new post in %s\n  - Markdown file: %s\n  - Assets folder: %s\n",
		created.Slug, created.IndexPath, created.AssetsDir)
	return nil
}

func prompt(in *bufio.Reader, question string) (string, error) {
	fmt.Print(question)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runPlaylist(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v := cmd.String("url"); v != "" {
		cfg.Playlist.URL = v
	}
	if v := cmd.String("output"); v != "" {
		cfg.Playlist.OutputDir = v
	}
	return internal.DownloadPlaylist(ctx, baseOptions(cfg)...)
}

func trackerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "token",
			Usage:   "GitHub token",
			Sources: cli.EnvVars("GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "repository",
			Aliases: []string{"r"},
			Usage:   "Repository as owner/repo",
			Sources: cli.EnvVars("GITHUB_REPOSITORY"),
		},
	}
}

func watchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Re-sync whenever the posts tree changes",
		},
		&cli.DurationFlag{
			Name:  "debounce",
			Usage: "Quiet period before a change triggers a sync",
			Value: publish.DefaultDebounce,
		},
	}
}

func main() {
	syncFlags := append(trackerFlags(), watchFlags()...)
	syncFlags = append(syncFlags, &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Log tracker changes without sending them",
	})

	cmd := &cli.Command{
		Name:    "issueblog",
		Usage:   "Publish a directory of Markdown posts as GitHub issues with a table of contents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "posts-dir",
				Usage:   "Directory holding one subdirectory per post",
				Sources: cli.EnvVars("POSTS_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Mirror posts to issues, close issues of deleted posts and refresh the table of contents",
				Flags:  syncFlags,
				Action: runSync,
			},
			{
				Name:  "new",
				Usage: "Scaffold a new post directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Post title; prompted for when empty"},
					&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Post label"},
				},
				Action: runNew,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP trigger service",
				Flags:  append(trackerFlags(), watchFlags()...),
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Flags:  trackerFlags(),
				Action: runMCP,
			},
			{
				Name:  "playlist",
				Usage: "Download a playlist as audio files with yt-dlp",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Playlist URL", Sources: cli.EnvVars("PLAYLIST_URL")},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", Sources: cli.EnvVars("PLAYLIST_OUTPUT_DIR")},
				},
				Action: runPlaylist,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
