package worktree

import (
	"regexp"
	"strings"
)

const (
	branchPrefix  = "claude/"
	maxSlugLength = 40
)

var collapseHyphens = regexp.MustCompile(`-+`)

// CreateDescriptiveBranchName is pure and deterministic: the same inputs
// always produce the same output.
func CreateDescriptiveBranchName(identifier, title string) string {
	id := strings.ToLower(strings.TrimSpace(identifier))
	slug := Slugify(title, maxSlugLength)
	if slug == "" {
		return branchPrefix + id
	}
	return branchPrefix + id + "-" + slug
}

// Slugify lowercases, replaces runs of non alnum characters with a single
// hyphen, trims leading/trailing hyphens, and truncates to maxLen at a word
// boundary when possible.
func Slugify(s string, maxLen int) string {
	lower := strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	slug := collapseHyphens.ReplaceAllString(b.String(), "-")
	slug = strings.Trim(slug, "-")

	if len(slug) <= maxLen {
		return slug
	}

	truncated := slug[:maxLen]
	if idx := strings.LastIndexByte(truncated, '-'); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.Trim(truncated, "-")
}
