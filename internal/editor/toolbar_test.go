package editor

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/testutil"
)

// ============================================================================
// Markdown inline
// ============================================================================

func TestToolbar_MarkdownInlineWrapAndUnwrap(t *testing.T) {
	f := newFixture(t, withText("hello world"))
	f.selectRange(0, 5)

	f.ed.Toolbar(f.ctx, "bold", nil)
	require.Equal(t, "**hello** world\n", f.text())
	require.Equal(t, engine.Range{Index: 0, Length: 9}, f.sel())

	f.ed.Toolbar(f.ctx, "bold", nil)
	require.Equal(t, "hello world\n", f.text())
	require.Equal(t, engine.Range{Index: 0, Length: 5}, f.sel())
}

func TestToolbar_MarkdownInlineMarkers(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		index  int
		length int
		format string
		want   string
	}{
		{"italic", "word", 0, 4, "italic", "_word_\n"},
		{"code", "x = 1", 0, 5, "code", "`x = 1`\n"},
		{"strike", "old", 0, 3, "strike", "~~old~~\n"},
		{"per line, blank lines kept", "a\n\nb", 0, 4, "italic", "_a_\n\n_b_\n"},
		{"blank selection wrapped once", "x  y", 1, 2, "bold", "x**  y\n"},
		{"fenced block trimmed", "let x", 0, 5, "code-block", "```\nlet x\n```\n"},
		{"selection past the end is clamped", "ab", 0, 3, "bold", "**ab**\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, withText(tt.text))
			f.selectRange(tt.index, tt.length)
			f.ed.Toolbar(f.ctx, tt.format, nil)
			require.Equal(t, tt.want, f.text())
		})
	}
}

func TestToolbar_MarkdownInlineEmptySelectionInsertsPair(t *testing.T) {
	f := newFixture(t, withText("ab"))
	f.selectRange(1, 0)
	f.ed.Toolbar(f.ctx, "bold", nil)
	require.Equal(t, "a****b\n", f.text())
	require.Equal(t, engine.Range{Index: 3}, f.sel())

	f = newFixture(t, withText("ab"))
	f.selectRange(2, 0)
	f.ed.Toolbar(f.ctx, "code-block", nil)
	require.Equal(t, "ab```\n\n```\n", f.text())
	require.Equal(t, engine.Range{Index: 6}, f.sel())
}

func TestToolbar_MarkdownToggleForgetsAfterEdit(t *testing.T) {
	f := newFixture(t, withText("hi"))
	f.selectRange(0, 2)
	f.ed.Toolbar(f.ctx, "bold", nil)
	require.Equal(t, "**hi**\n", f.text())

	f.eng.InsertText(6, "!", nil, engine.SourceUser)
	f.selectRange(0, 6)
	f.ed.Toolbar(f.ctx, "bold", nil)
	require.Equal(t, "****hi****!\n", f.text(), "an edited document is wrapped again")
}

func TestToolbar_MarkdownWrapUnwrapIsInverse(t *testing.T) {
	formats := []string{"bold", "italic", "code", "strike", "code-block"}
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-z *_\n]{1,24}`).Draw(rt, "text")
		f := buildFixture(rt, withText(text))
		defer f.ed.Close()
		n := utf8.RuneCountInString(f.text()) - 1
		if n == 0 {
			return
		}
		index := rapid.IntRange(0, n-1).Draw(rt, "index")
		length := rapid.IntRange(1, n-index).Draw(rt, "length")
		format := rapid.SampledFrom(formats).Draw(rt, "format")

		before := f.text()
		f.selectRange(index, length)
		f.ed.Toolbar(f.ctx, format, nil)
		f.ed.Toolbar(f.ctx, format, nil)

		require.Equal(rt, before, f.text())
		require.Equal(rt, engine.Range{Index: index, Length: length}, f.sel())
	})
}

// ============================================================================
// Markdown blocks
// ============================================================================

func TestToolbar_MarkdownBlocks(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		index     int
		length    int
		format    string
		value     any
		want      string
		wantCaret int
	}{
		{"header at caret", "title\nbody", 2, 0, "header", 1, "# title\nbody\n", 7},
		{"header 2", "title", 0, 0, "header", 2, "## title\n", 8},
		{"blockquote empty line", "a\n\nb", 2, 0, "blockquote", nil, "a\n> \nb\n", 4},
		{"numbered lines", "a\nb", 0, 3, "list", "ordered", "1. a\n2. b\n", 9},
		{"bullet partial lines", "one\ntwo\nthree", 1, 4, "list", "bullet", "- one\n- two\nthree\n", 11},
		{"check becomes unchecked", "task", 0, 0, "list", "check", "- [ ] task\n", 10},
		{"trailing newline not a new line", "a\nb", 0, 2, "blockquote", nil, "> a\nb\n", 3},
		{"blank lines skipped", "a\n\nb", 0, 4, "blockquote", nil, "> a\n\n> b\n", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, withText(tt.text))
			f.selectRange(tt.index, tt.length)
			f.ed.Toolbar(f.ctx, tt.format, tt.value)
			require.Equal(t, tt.want, f.text())
			require.Equal(t, engine.Range{Index: tt.wantCaret}, f.sel())
		})
	}
}

func TestToolbar_MarkdownUnknownValueIgnored(t *testing.T) {
	f := newFixture(t, withText("x"))
	f.ed.Toolbar(f.ctx, "header", 5)
	f.ed.Toolbar(f.ctx, "align", "center")
	require.Equal(t, "x\n", f.text())
}

// ============================================================================
// Markdown links
// ============================================================================

func TestToolbar_MarkdownLinkFromSelection(t *testing.T) {
	f := newFixture(t, withText("see docs"))
	f.selectRange(4, 4)
	f.ed.Toolbar(f.ctx, "link", nil)
	require.Equal(t, "see [docs](https://)\n", f.text())
	require.Equal(t, engine.Range{Index: 11, Length: 8}, f.sel())

	f = newFixture(t, withText("https://x.io"))
	f.selectRange(0, 12)
	f.ed.Toolbar(f.ctx, "link", nil)
	require.Equal(t, "[https://x.io](https://x.io)\n", f.text())
	require.Equal(t, engine.Range{Index: 15, Length: 12}, f.sel())
	require.Empty(t, f.prompts.Messages)
}

func TestToolbar_MarkdownLinkMultilineIsNoop(t *testing.T) {
	f := newFixture(t, withText("a\nb"))
	f.selectRange(0, 3)
	f.ed.Toolbar(f.ctx, "link", nil)
	require.Equal(t, "a\nb\n", f.text())
}

func TestToolbar_MarkdownLinkPrompts(t *testing.T) {
	tests := []struct {
		name    string
		replies []testutil.Reply
		want    string
		prompts int
	}{
		{"text and href", []testutil.Reply{{Value: "site"}, {Value: "https://s.io"}}, "[site](https://s.io)\n", 2},
		{"url text is the href", []testutil.Reply{{Value: "https://s.io"}}, "[https://s.io](https://s.io)\n", 1},
		{"text cancelled", []testutil.Reply{{Cancel: true}}, "\n", 1},
		{"href cancelled uses placeholder", []testutil.Reply{{Value: "site"}, {Cancel: true}}, "[site](https://)\n", 2},
		{"empty href uses placeholder", []testutil.Reply{{Value: "site"}, {Value: ""}}, "[site](https://)\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *Options) { o.PreferredMode = ModeMarkdown })
			f.prompts.Replies = tt.replies

			f.ed.Toolbar(f.ctx, "link", nil)
			f.sched.Flush()

			require.Equal(t, tt.want, f.text())
			require.Len(t, f.prompts.Messages, tt.prompts)
			require.Equal(t, promptLinkText, f.prompts.Messages[0])
		})
	}
}

func TestToolbar_MarkdownLinkSelectsHref(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.PreferredMode = ModeMarkdown })
	f.prompts.Replies = []testutil.Reply{{Value: "site"}, {Value: "https://s.io"}}
	f.ed.Toolbar(f.ctx, "link", nil)
	f.sched.Flush()
	require.Equal(t, engine.Range{Index: 7, Length: 12}, f.sel())
	require.Equal(t, []string{"", linkPlaceholder}, f.prompts.Defaults)
}

// ============================================================================
// Rich text
// ============================================================================

func TestToolbar_RichInlineToggles(t *testing.T) {
	f := newFixture(t, withContents(delta.FromText("hello")))
	f.selectRange(0, 5)

	f.ed.Toolbar(f.ctx, "bold", nil)
	require.True(t, f.eng.FormatAt(0, 5).Has("bold"))
	require.Equal(t, "hello\n", f.text(), "rich formatting never writes markers")

	f.ed.Toolbar(f.ctx, "bold", nil)
	require.False(t, f.eng.FormatAt(0, 5).Has("bold"))
}

func TestToolbar_RichBlocks(t *testing.T) {
	f := newFixture(t, withContents(delta.FromText("title")))
	f.selectRange(1, 0)

	f.ed.Toolbar(f.ctx, "header", 2)
	assert.Equal(t, 2, f.eng.FormatAt(1, 0)["header"])

	f.ed.Toolbar(f.ctx, "header", 2)
	assert.False(t, f.eng.FormatAt(1, 0).Has("header"), "same value toggles off")

	f.ed.Toolbar(f.ctx, "list", "check")
	assert.Equal(t, "unchecked", f.eng.FormatAt(1, 0)["list"])
}

func TestToolbar_RichLinkSelection(t *testing.T) {
	f := newFixture(t, withContents(delta.FromText("docs")))
	f.selectRange(0, 4)
	f.prompts.Replies = []testutil.Reply{{Value: "https://d.io"}}

	f.ed.Toolbar(f.ctx, "link", nil)
	f.sched.Flush()
	require.Equal(t, "https://d.io", f.eng.FormatAt(0, 4)["link"])
	require.Equal(t, []string{linkPlaceholder}, f.prompts.Defaults)

	f.selectRange(0, 4)
	f.prompts.Replies = []testutil.Reply{{Value: ""}}
	f.ed.Toolbar(f.ctx, "link", nil)
	f.sched.Flush()
	require.False(t, f.eng.FormatAt(0, 4).Has("link"), "an empty href removes the link")
}

func TestToolbar_RichLinkInsert(t *testing.T) {
	f := newFixture(t)
	f.prompts.Replies = []testutil.Reply{{Value: "site"}, {Value: "https://s.io"}}

	f.ed.Toolbar(f.ctx, "link", nil)
	f.sched.Flush()

	require.Equal(t, "site\n", f.text())
	require.Equal(t, "https://s.io", f.eng.FormatAt(0, 4)["link"])
	require.Equal(t, engine.Range{Index: 4}, f.sel())
}

func TestToolbar_LinkAfterCloseDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.prompts.Replies = []testutil.Reply{{Value: "site"}, {Value: "https://s.io"}}
	f.ed.Toolbar(f.ctx, "link", nil)
	f.ed.Close()
	f.sched.Flush()
	require.Equal(t, "\n", f.text())
}

func TestToolbar_MarkdownLinkFollowsEditsDuringPrompt(t *testing.T) {
	f := newFixture(t, withText("intro\nend"))
	f.selectRange(9, 0)
	f.prompts.Replies = []testutil.Reply{{Value: "site"}, {Value: "https://s.io"}}

	f.ed.Toolbar(f.ctx, "link", nil)
	// a line above the caret goes away while the prompt is open
	f.eng.DeleteText(0, 6, engine.SourceUser)
	f.sched.Flush()

	require.Equal(t, "end[site](https://s.io)\n", f.text())
	require.Equal(t, engine.Range{Index: 10, Length: 12}, f.sel())
}

func TestToolbar_RichLinkFollowsEditsDuringPrompt(t *testing.T) {
	f := newFixture(t, withContents(delta.FromText("ab")))
	f.selectRange(2, 0)
	f.prompts.Replies = []testutil.Reply{{Value: "site"}, {Value: "https://s.io"}}

	f.ed.Toolbar(f.ctx, "link", nil)
	f.eng.InsertText(0, "xyz", nil, engine.SourceUser)
	f.sched.Flush()

	require.Equal(t, "xyzabsite\n", f.text())
	require.Equal(t, "https://s.io", f.eng.FormatAt(5, 4)["link"])
	require.False(t, f.eng.FormatAt(0, 5).Has("link"))
	require.Equal(t, engine.Range{Index: 9}, f.sel())
}

func TestToolbar_RichLinkSelectionFollowsEdits(t *testing.T) {
	f := newFixture(t, withContents(delta.FromText("see docs")))
	f.selectRange(4, 4)
	f.prompts.Replies = []testutil.Reply{{Value: "https://d.io"}}

	f.ed.Toolbar(f.ctx, "link", nil)
	f.eng.DeleteText(0, 4, engine.SourceUser)
	f.sched.Flush()

	require.Equal(t, "docs\n", f.text())
	require.Equal(t, "https://d.io", f.eng.FormatAt(0, 4)["link"])
}

func TestToolbar_RichLinkOnDeletedSelectionIsNoop(t *testing.T) {
	f := newFixture(t, withContents(delta.FromText("see docs")))
	f.selectRange(4, 4)
	f.prompts.Replies = []testutil.Reply{{Value: "https://d.io"}}

	f.ed.Toolbar(f.ctx, "link", nil)
	f.eng.DeleteText(4, 4, engine.SourceUser)
	f.sched.Flush()

	require.Equal(t, "see \n", f.text())
	require.False(t, f.eng.FormatAt(0, 4).Has("link"))
}
