package worktree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Fix login bug", "fix-login-bug"},
		{"collapses punctuation", "fix: login/auth!! bug", "fix-login-auth-bug"},
		{"trims edges", "--weird--title--", "weird-title"},
		{"empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Slugify(c.in, maxSlugLength))
		})
	}
}

func TestSlugifyTruncatesAtWordBoundary(t *testing.T) {
	long := "implement a very long and detailed description of a complicated feature request"
	got := Slugify(long, 30)
	assert.LessOrEqual(t, len(got), 30)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestCreateDescriptiveBranchNameIsDeterministic(t *testing.T) {
	a := CreateDescriptiveBranchName("DEV-123", "Fix login bug")
	b := CreateDescriptiveBranchName("DEV-123", "Fix login bug")
	assert.Equal(t, a, b)
	assert.Equal(t, "claude/dev-123-fix-login-bug", a)
}

func TestCreateDescriptiveBranchNameLowercasesIdentifier(t *testing.T) {
	got := CreateDescriptiveBranchName("DEV-1", "bug X")
	assert.True(t, strings.HasPrefix(got, "claude/dev-1-"))
}
