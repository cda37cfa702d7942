// Package content rewrites post bodies for publication outside the posts tree.
package content

import (
	"strings"
)

// DefaultRawHost serves raw repository files.
const DefaultRawHost = "https://raw.githubusercontent.com"

// AssetsDir is the per-post directory holding images and attachments.
const AssetsDir = "assets"

const assetPrefix = AssetsDir + "/"

// Transformer turns relative asset references into absolute raw-file URLs:
// <host>/<owner>/<repo>/<branch>/<posts-root>/<slug>/assets/...
type Transformer struct {
	base string
}

// NewTransformer builds a transformer for repository ("owner/repo") at branch,
// with posts stored under postsRoot inside the repository.
func NewTransformer(rawHost, repository, branch, postsRoot string) *Transformer {
	if rawHost == "" {
		rawHost = DefaultRawHost
	}
	parts := []string{strings.TrimRight(rawHost, "/")}
	for _, p := range []string{repository, branch, postsRoot} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return &Transformer{base: strings.Join(parts, "/")}
}

// AssetURL returns the absolute URL of rel ("assets/...") for the post slug.
func (t *Transformer) AssetURL(slug, rel string) string {
	return t.base + "/" + slug + "/" + rel
}

// Rewrite replaces every relative "assets/..." reference in body. A reference
// starts at a word boundary (optionally as "./assets/") and ends at
// whitespace or a closing markup delimiter. Absolute URLs never match, so
// rewriting an already rewritten body changes nothing.
func (t *Transformer) Rewrite(body, slug string) string {
	var b strings.Builder
	rest := body
	for {
		idx := strings.Index(rest, assetPrefix)
		if idx < 0 {
			b.WriteString(rest)
			return b.String()
		}

		start := idx
		if idx >= 2 && rest[idx-2:idx] == "./" {
			start = idx - 2
		}
		end := idx + len(assetPrefix)
		for end < len(rest) && !isTerminator(rest[end]) {
			end++
		}

		if end == idx+len(assetPrefix) || !atBoundary(rest, start) {
			b.WriteString(rest[:idx+len(assetPrefix)])
			rest = rest[idx+len(assetPrefix):]
			continue
		}

		b.WriteString(rest[:start])
		b.WriteString(t.AssetURL(slug, rest[idx:end]))
		rest = rest[end:]
	}
}

func isTerminator(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v', ')', ']', '>', '"', '\'':
		return true
	}
	return false
}

// atBoundary reports whether a reference may begin at s[i]: the preceding
// byte must not continue a path or word.
func atBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	c := s[i-1]
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '/', c == '.', c == '_', c == '-', c == ':':
		return false
	}
	return true
}
