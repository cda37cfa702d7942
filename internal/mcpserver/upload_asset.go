package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/postservice"
)

const maxAssetSize = 10 << 20

var (
	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := ""
	if v, fErr := req.RequireString("filename"); fErr == nil {
		filename = v
	}

	var data []byte
	var ext string
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = decodeDataURI(rawURL)
	} else {
		data, ext, err = fetch(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if filename == "" {
		filename = nameFromURL(rawURL, ext)
	}
	filename = cleanName(filename)
	if err := checkContent(data, filename); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	asset, err := s.svc.SaveAsset(ctx, slug, filename, data)
	if err != nil {
		switch {
		case postservice.IsNotExist(err):
			return mcp.NewToolResultError(fmt.Sprintf("post not found: %s", slug)), nil
		case errors.Is(err, apperr.ErrAlreadyExists):
			return mcp.NewToolResultError(fmt.Sprintf("asset already exists: %s", filename)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(asset)
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses data:<mime>;base64,<payload>.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errors.New("invalid data URI: missing comma separator")
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", errors.New("only base64 data URIs are supported")
	}
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxAssetSize)
	}
	return data, ext, nil
}

// fetch downloads an http(s) URL, refusing loopback and metadata hosts.
func fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	if err := checkHost(u.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects (max 5)")
			}
			return checkHost(req.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxAssetSize)
	}
	mime, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return data, mimeToExt[strings.TrimSpace(mime)], nil
}

func checkHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the HTTP client reports DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// nameFromURL takes the last path element when it has an extension, and
// falls back to a random name.
func nameFromURL(rawURL, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	if strings.HasPrefix(rawURL, "data:") {
		return uuid.NewString() + ext
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); strings.Contains(base, ".") && base != "." {
			return base
		}
	}
	return uuid.NewString() + ext
}

func cleanName(name string) string {
	name = unsafeNameRe.ReplaceAllString(path.Base(strings.ReplaceAll(name, `\`, "/")), "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = uuid.NewString()
	}
	return name
}

// checkContent makes sure the extension is an image type and that the bytes
// look like it.
func checkContent(data []byte, name string) error {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	known := false
	for _, e := range mimeToExt {
		if e == ext {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, svg)", path.Ext(name))
	}

	if ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return errors.New("content does not look like SVG (missing <svg tag)")
		}
		return nil
	}
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if mimeToExt[detected] != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
