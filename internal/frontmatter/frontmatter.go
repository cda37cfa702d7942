// Package frontmatter separates a leading `---` block from Markdown content and
// reads that block as ordered `key: value` lines.
package frontmatter

import (
	"errors"
	"strings"
)

// Delimiter opens and closes a front matter block.
const Delimiter = "---"

var (
	// ErrNoFrontMatter means the first non-blank line is not a delimiter.
	ErrNoFrontMatter = errors.New("frontmatter: no opening delimiter")
	// ErrUnterminated means no closing delimiter follows the opening one.
	ErrUnterminated = errors.New("frontmatter: no closing delimiter")
)

// Field is a single `key: value` line of a front matter block.
type Field struct {
	Key   string
	Value string
	Line  int // 1-based, relative to the first line inside the block
}

// Fields keeps front matter entries in source order.
type Fields []Field

// Get returns the value of the first field named key.
func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Document is a parsed Markdown source.
type Document struct {
	Fields Fields
	Body   string
}

// Parse splits data into its front matter block and body, then parses the block.
func Parse(data []byte) (*Document, error) {
	block, body, err := Split(data)
	if err != nil {
		return nil, err
	}
	return &Document{
		Fields: ParseFields(block),
		Body:   body,
	}, nil
}

// Split returns the raw front matter block and the trimmed body that follows
// the closing delimiter. Leading blank lines before the opening delimiter are
// tolerated; anything else before it means there is no front matter.
func Split(data []byte) (string, string, error) {
	text := strings.TrimLeft(string(data), "\r\n")

	first, offset := nextLine(text, 0)
	if !isDelimiter(first) {
		return "", "", ErrNoFrontMatter
	}

	var block []string
	for offset < len(text) {
		line, next := nextLine(text, offset)
		if isDelimiter(line) {
			return strings.Join(block, "\n"), strings.TrimSpace(text[next:]), nil
		}
		block = append(block, line)
		offset = next
	}
	return "", "", ErrUnterminated
}

// ParseFields reads block line by line. Blank lines, comments and lines
// without a colon are ignored; the value keeps any further colons and any
// quotes verbatim.
func ParseFields(block string) Fields {
	var out Fields
	for i, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, Field{
			Key:   key,
			Value: strings.TrimSpace(value),
			Line:  i + 1,
		})
	}
	return out
}

// nextLine returns the line starting at offset without its line terminator,
// and the offset of the following line.
func nextLine(text string, offset int) (string, int) {
	rest := text[offset:]
	idx := strings.IndexByte(rest, '\n')
	if idx < 0 {
		return strings.TrimSuffix(rest, "\r"), len(text)
	}
	return strings.TrimSuffix(rest[:idx], "\r"), offset + idx + 1
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == Delimiter
}
