package publish

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/models"
	"github.com/starford/issueblog/internal/tracker"
)

var markerRe = regexp.MustCompile(`<!-- post-id: ([a-z0-9]{6}) -->`)

// Marker returns the hidden comment that ties an issue to a post id.
func Marker(id string) string {
	return fmt.Sprintf("<!-- post-id: %s -->", id)
}

// RenderBody appends the marker for id as the last line of body.
func RenderBody(body, id string) string {
	return body + "\n\n" + Marker(id)
}

// ExtractPostID returns the post id embedded in an issue body.
func ExtractPostID(body string) (string, bool) {
	m := markerRe.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StripMarker removes the marker and surrounding whitespace, leaving the body
// as it was before RenderBody.
func StripMarker(body string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(body, ""))
}

// BuildRemoteIndex lists open issues and keys them by embedded post id. The
// reserved table-of-contents issue and issues without a marker are ignored.
// Two open issues carrying the same id fail the build before anything is
// mutated.
func BuildRemoteIndex(ctx context.Context, t tracker.Tracker, tocNumber int) (map[string]*models.Issue, error) {
	issues, err := t.ListOpenIssues(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.Issue, len(issues))
	for _, issue := range issues {
		if issue.Number == tocNumber {
			continue
		}
		id, ok := ExtractPostID(issue.Body)
		if !ok {
			continue
		}
		if prev, dup := out[id]; dup {
			return nil, fmt.Errorf("%w: %s is carried by issues #%d and #%d",
				apperr.ErrDuplicatePostID, id, prev.Number, issue.Number)
		}
		out[id] = issue
	}
	return out, nil
}
