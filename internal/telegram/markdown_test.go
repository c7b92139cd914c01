package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortTextIsSinglePart(t *testing.T) {
	parts := SplitMessage("hello", 4096)
	assert.Equal(t, []string{"hello"}, parts)
}

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	line := strings.Repeat("a", 60)
	text := line + "\n" + line + "\n" + line

	parts := SplitMessage(text, 100)
	require.Greater(t, len(parts), 1)
	// First chunk ends at the newline inside the limit, not mid-line.
	assert.True(t, strings.HasSuffix(parts[0], "\n"))
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitMessageHardSplitWithoutNewlines(t *testing.T) {
	text := strings.Repeat("x", 250)

	parts := SplitMessage(text, 100)
	require.Len(t, parts, 3)
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestFixMarkdownClosesUnclosedCodeBlock(t *testing.T) {
	fixed := FixMarkdown("```go\nfmt.Println(1)")
	assert.Equal(t, 2, strings.Count(fixed, "```"))
}

func TestFixMarkdownClosesUnclosedInlineCode(t *testing.T) {
	fixed := FixMarkdown("use the `guard helper")
	assert.Equal(t, 2, strings.Count(fixed, "`"))
}

func TestFixMarkdownLeavesBalancedTextAlone(t *testing.T) {
	text := "all `good` here\n```\nblock\n```"
	assert.Equal(t, text, FixMarkdown(text))
}
