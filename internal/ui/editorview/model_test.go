package editorview

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/draftpad/internal/editor"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/mention"
	"github.com/zjrosen/draftpad/internal/storage"
	"github.com/zjrosen/draftpad/internal/testutil"
)

const waitTimeout = 3 * time.Second

type session struct {
	t       *testing.T
	tm      *teatest.TestModel
	model   *Model
	store   storage.Store
	uploads *testutil.Uploader
	search  *testutil.Searcher
}

func newSession(t *testing.T, configure ...func(*Options)) *session {
	t.Helper()
	s := &session{
		t:       t,
		store:   storage.NewMemoryStore(),
		uploads: &testutil.Uploader{URL: "https://cdn.example.com/up.png"},
		search:  &testutil.Searcher{},
	}
	opts := Options{
		Editor: editor.Options{
			Store:     s.store,
			Scope:     testutil.DefaultScope,
			Namespace: "reply",
			Searcher:  s.search,
			Uploader:  s.uploads,
		},
		MarkdownStyle: "notty",
	}
	for _, c := range configure {
		c(&opts)
	}

	m, err := New(context.Background(), opts)
	require.NoError(t, err)
	s.model = m
	s.tm = teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	m.Scheduler().Attach(s.tm)
	return s
}

func inMarkdown(o *Options) { o.Editor.PreferredMode = editor.ModeMarkdown }

func (s *session) waitFor(text string) {
	s.t.Helper()
	teatest.WaitFor(s.t, s.tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte(text))
	}, teatest.WithDuration(waitTimeout), teatest.WithCheckInterval(10*time.Millisecond))
}

func (s *session) press(t tea.KeyType) { s.tm.Send(tea.KeyMsg{Type: t}) }

func (s *session) alt(r rune) {
	s.tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true})
}

func (s *session) finish() *Model {
	s.t.Helper()
	return s.tm.FinalModel(s.t, teatest.WithFinalTimeout(waitTimeout)).(*Model)
}

func (s *session) storedDraft() (string, bool) {
	s.t.Helper()
	v, ok, err := s.store.Get(context.Background(), s.model.Editor().DraftKey())
	require.NoError(s.t, err)
	return v, ok
}

func TestModel_TypeAndSubmit(t *testing.T) {
	s := newSession(t, inMarkdown)
	s.tm.Type("hello")
	s.waitFor("hello")
	s.press(tea.KeyCtrlS)

	m := s.finish()
	res := m.Result()
	require.True(t, res.Submitted)
	require.Equal(t, "hello", res.Document)
	require.Equal(t, editor.ModeMarkdown, res.Mode)
	_, ok := s.storedDraft()
	require.False(t, ok, "a submitted draft is cleared")
}

func TestModel_BlankSubmitIsRefused(t *testing.T) {
	s := newSession(t)
	s.tm.Type("   ")
	s.press(tea.KeyCtrlS)
	s.waitFor(blankMessage)
	s.press(tea.KeyCtrlC)

	res := s.finish().Result()
	require.False(t, res.Submitted)
	require.False(t, res.Cancelled)
}

func TestModel_QuitSavesDraft(t *testing.T) {
	s := newSession(t, inMarkdown)
	s.tm.Type("keep me")
	s.waitFor("keep me")
	s.press(tea.KeyCtrlC)
	s.finish()

	v, ok := s.storedDraft()
	require.True(t, ok)
	require.Contains(t, v, "keep me")
}

func TestModel_DoubleEscDiscards(t *testing.T) {
	s := newSession(t, inMarkdown)
	s.tm.Type("scratch")
	s.waitFor("scratch")
	s.press(tea.KeyEsc)
	s.waitFor(discardMessage)
	s.press(tea.KeyEsc)

	res := s.finish().Result()
	require.True(t, res.Cancelled)
	_, ok := s.storedDraft()
	require.False(t, ok)
}

func TestModel_LossySwitchAsksFirst(t *testing.T) {
	s := newSession(t)
	s.alt('b')
	s.tm.Type("loud")
	s.waitFor("loud")

	s.press(tea.KeyCtrlT)
	s.waitFor("All formatting and images will be lost")
	s.press(tea.KeyEnter)
	s.waitFor("Switched to Markdown")
	s.press(tea.KeyCtrlS)

	res := s.finish().Result()
	require.True(t, res.Submitted)
	require.Equal(t, editor.ModeMarkdown, res.Mode)
	require.Equal(t, "loud", res.Document)
}

func TestModel_DeclinedSwitchKeepsRichText(t *testing.T) {
	s := newSession(t)
	s.alt('i')
	s.tm.Type("soft")
	s.waitFor("soft")

	s.press(tea.KeyCtrlT)
	s.waitFor("All formatting and images will be lost")
	s.press(tea.KeyEsc)
	// the dialog closes through a command; give it a moment
	time.Sleep(100 * time.Millisecond)
	s.tm.Type("er")
	s.waitFor("softer")
	s.press(tea.KeyCtrlS)

	res := s.finish().Result()
	require.Equal(t, editor.ModeRichText, res.Mode)
	require.Contains(t, res.Document, `"italic":true`)
	require.Contains(t, res.Document, "softer")
}

func TestModel_LinkPrompts(t *testing.T) {
	s := newSession(t)
	s.alt('k')
	s.waitFor("Enter link text:")
	s.tm.Type("site")
	s.press(tea.KeyEnter)
	s.waitFor("Enter link:")
	s.tm.Type("example.com")
	s.press(tea.KeyEnter)
	s.waitFor("site")
	s.press(tea.KeyCtrlS)

	res := s.finish().Result()
	require.True(t, res.Submitted)
	require.Contains(t, res.Document, `"link":"https://example.com"`)
	require.Contains(t, res.Document, `"insert":"site"`)
}

func TestModel_PasteAutolinks(t *testing.T) {
	s := newSession(t)
	s.tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("see https://example.com now"), Paste: true})
	s.waitFor("now")
	s.press(tea.KeyCtrlS)

	res := s.finish().Result()
	require.Contains(t, res.Document, `"link":"https://example.com"`)
}

func TestModel_PasteImagePathUploads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	s := newSession(t)
	s.tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path), Paste: true})
	s.waitFor("[image https://cdn.example.com/up.png]")
	s.press(tea.KeyCtrlC)
	s.finish()

	require.Len(t, s.uploads.Files, 1)
	require.Equal(t, "shot.png", s.uploads.Files[0].Name)
	require.Equal(t, "image/png", s.uploads.Files[0].Type)
}

func TestModel_UploadFailureShowsToast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	s := newSession(t)
	s.uploads.Fail = true
	s.tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path), Paste: true})
	s.waitFor(editor.UploadFailedMessage)
	s.press(tea.KeyCtrlC)
	s.finish()
}

func TestModel_MentionPopup(t *testing.T) {
	s := newSession(t)
	s.search.Results = []mention.Candidate{{DisplayName: "Alice", Address: "0xabc", Chain: "eth"}}
	s.tm.Type("@al")
	s.waitFor("Alice")
	s.press(tea.KeyEnter)
	s.waitFor("@Alice")
	s.press(tea.KeyCtrlS)

	res := s.finish().Result()
	require.Contains(t, res.Document, "/eth/account/0xabc")
}

func TestModel_PreviewBlocksEditing(t *testing.T) {
	s := newSession(t, inMarkdown)
	s.tm.Type("- item")
	s.waitFor("- item")
	s.press(tea.KeyCtrlP)
	s.waitFor("Markdown · preview")
	s.tm.Type("zzz")
	s.press(tea.KeyEsc)
	s.press(tea.KeyCtrlS)

	res := s.finish().Result()
	require.False(t, res.Cancelled, "esc only closes the preview")
	require.Equal(t, "- item", res.Document)
}

func TestModel_ToolbarShowsActiveFormat(t *testing.T) {
	s := newSession(t, func(o *Options) { o.ShowToolbar = true })
	s.waitFor("Rich text")
	s.alt('1')
	s.tm.Type("Heading")
	s.waitFor("# Heading")
	s.press(tea.KeyCtrlC)

	m := s.finish()
	eng := m.Editor().Engine()
	require.Equal(t, 1, eng.FormatAt(0, 0)["header"])
}

func TestModel_DebugLogPane(t *testing.T) {
	log.InitWriter(io.Discard)
	t.Cleanup(func() { log.SetEnabled(false) })

	s := newSession(t, inMarkdown, func(o *Options) { o.Debug = true })
	require.NotNil(t, s.model.logs)

	s.tm.Send(tea.KeyMsg{Type: tea.KeyF12})
	s.waitFor("Debug log")
	log.Warn(log.CatUI, "disk nearly full")
	s.waitFor("disk nearly full")

	// keys go to the pane while it is open
	s.tm.Type("x")
	s.press(tea.KeyEsc)
	s.tm.Type("ok")
	s.press(tea.KeyCtrlC)

	m := s.finish()
	require.False(t, m.logPane.Visible())
	doc, err := m.Editor().Document()
	require.NoError(t, err)
	require.Equal(t, "ok", doc)
}

func TestModel_LogPaneNeedsDebug(t *testing.T) {
	log.InitWriter(io.Discard)
	t.Cleanup(func() { log.SetEnabled(false) })

	s := newSession(t, inMarkdown)
	require.Nil(t, s.model.logs)
	require.False(t, s.model.keys.Logs.Enabled())

	s.tm.Send(tea.KeyMsg{Type: tea.KeyF12})
	s.tm.Type("ok")
	s.press(tea.KeyCtrlC)

	m := s.finish()
	require.False(t, m.logPane.Visible())
}
