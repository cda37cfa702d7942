package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/issueblog/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.TOC.IssueNumber != 1 || cfg.Blog.PostsDir != "posts" || cfg.Blog.IndexFile != "index.md" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log format should fail")
	}
	cfg.App.LogFormat = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty log format: %v", err)
	}
	if cfg.App.LogFormat != LogFormatText {
		t.Errorf("log format = %q, want text", cfg.App.LogFormat)
	}
}

func TestTOCConfig_IgnoreIDsValidated(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.TOC.IgnorePostIDs = []string{"abc123", "BAD"}
	if err := cfg.Validate(); err == nil {
		t.Error("malformed ignore id should fail")
	}
	cfg.TOC.IgnorePostIDs = []string{"abc123"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGitHubConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		repo    string
		wantErr string
	}{
		{"missing token", "", "octo/blog", "GITHUB_TOKEN"},
		{"missing repository", "t", "", "GITHUB_REPOSITORY"},
		{"malformed repository", "t", "octo", "owner/repo"},
		{"valid", "t", "octo/blog", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().GitHub
			cfg.Token = tt.token
			cfg.Repository = tt.repo
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BLOG_DIR", "content/posts")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "app:\n  log_level: debug\n  http:\n    port: 9000\nblog:\n  posts_dir: ${TEST_BLOG_DIR}\ntoc:\n  ignore_post_ids: [abc123]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blog.PostsDir != "content/posts" {
		t.Errorf("posts_dir = %q", cfg.Blog.PostsDir)
	}
	if cfg.App.HTTP.Port != 9000 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Blog.IndexFile != "index.md" || cfg.TOC.Title == "" {
		t.Error("defaults not preserved for keys absent from the file")
	}
}
