package editorview

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/draftpad/internal/editor"
	"github.com/zjrosen/draftpad/internal/keys"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/pubsub"
	"github.com/zjrosen/draftpad/internal/ui/logpane"
	"github.com/zjrosen/draftpad/internal/ui/markdown"
	"github.com/zjrosen/draftpad/internal/ui/modal"
	"github.com/zjrosen/draftpad/internal/ui/overlay"
	"github.com/zjrosen/draftpad/internal/ui/styles"
	"github.com/zjrosen/draftpad/internal/ui/toaster"
	"github.com/zjrosen/draftpad/internal/upload"
)

const (
	cancelWindow   = 2 * time.Second
	maxMentionRows = 6

	zoneMode         = "toolbar-mode"
	zoneFormatPrefix = "toolbar-format-"
	zoneMentionPref  = "mention-"

	blankMessage   = "Write something before submitting."
	discardMessage = "Press esc again to discard this draft."
	uploadingLabel = "Uploading image…"
)

// Result is how the session ended.
type Result struct {
	Submitted bool
	Cancelled bool
	Document  string
	Mode      editor.Mode
}

// Options configures the view.
type Options struct {
	// Editor is passed to editor.New with Scheduler, Confirmer, Prompter,
	// Notifier and Renderer replaced by the view's own.
	Editor        editor.Options
	MarkdownStyle string
	ShowToolbar   bool
	// Debug subscribes to the logger and enables the log pane.
	Debug bool
	Now   func() time.Time
}

// Model is the Bubble Tea model hosting one editor.
type Model struct {
	ctx     context.Context
	ed      *editor.Editor
	sched   *ProgramScheduler
	dialogs *Dialogs
	embeds  *embedView
	events  *pubsub.ContinuousListener[editor.Activity]
	logs    *log.LogListener
	done    chan struct{}
	now     func() time.Time

	keys        keys.EditorKeys
	help        help.Model
	showHelp    bool
	showToolbar bool

	preview       bool
	previewer     *markdown.Renderer
	markdownStyle string

	logPane  logpane.Model
	dialog   *modal.Model
	answer   chan dialogAnswer
	toast    toaster.Model
	lastEsc  time.Time
	saved    time.Time
	scroll   int
	width    int
	height   int
	cmds     []tea.Cmd
	result   Result
	quitting bool
}

// New creates the editor and the view around it.
func New(ctx context.Context, opts Options) (*Model, error) {
	m := &Model{
		ctx:           ctx,
		sched:         NewProgramScheduler(),
		embeds:        newEmbedView(),
		done:          make(chan struct{}),
		now:           opts.Now,
		keys:          keys.Editor,
		help:          help.New(),
		showToolbar:   opts.ShowToolbar,
		markdownStyle: opts.MarkdownStyle,
		toast:         toaster.New(),
		logPane:       logpane.New(logpane.DefaultCapacity),
		width:         80,
		height:        24,
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.dialogs = &Dialogs{sched: m.sched, done: m.done}
	if opts.Debug {
		// nil when logging was never initialised
		m.logs = log.NewListener(ctx)
		m.keys.Logs.SetEnabled(m.logs != nil)
	}

	eo := opts.Editor
	eo.Scheduler = m.sched
	eo.Confirmer = m.dialogs
	eo.Prompter = m.dialogs
	eo.Notifier = m
	eo.Renderer = m.embeds
	ed, err := editor.New(ctx, eo)
	if err != nil {
		m.sched.Close()
		return nil, err
	}
	m.ed = ed
	m.events = pubsub.NewContinuousListener(ctx, ed.Events(),
		pubsub.DraftSavedEvent, pubsub.DraftClearedEvent, pubsub.ModeChangedEvent)
	return m, nil
}

// Editor returns the hosted editor.
func (m *Model) Editor() *editor.Editor { return m.ed }

// Scheduler returns the scheduler the program must be attached to.
func (m *Model) Scheduler() *ProgramScheduler { return m.sched }

// Result reports how the session ended.
func (m *Model) Result() Result { return m.result }

// Close stops the editor and unblocks pending dialogs.
func (m *Model) Close() {
	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}
	m.ed.Close()
	m.sched.Close()
}

// Error implements editor.Notifier.
func (m *Model) Error(msg string) {
	var cmd tea.Cmd
	m.toast, cmd = m.toast.Show(msg, toaster.StyleError, toaster.DefaultDismiss)
	m.later(cmd)
}

// Loading implements editor.Notifier.
func (m *Model) Loading(on bool) {
	var cmd tea.Cmd
	m.toast, cmd = m.toast.SetBusy(on, uploadingLabel)
	m.later(cmd)
}

func (m *Model) later(cmd tea.Cmd) {
	if cmd != nil {
		m.cmds = append(m.cmds, cmd)
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.events.Listen(), func() tea.Msg { return drainMsg{} }}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.update(msg)
	// callbacks posted while handling msg run before the frame is drawn
	m.sched.Drain()
	if m.quitting {
		m.Close()
		m.cmds = append(m.cmds, tea.Quit)
	}
	cmds := m.cmds
	m.cmds = nil
	return m, tea.Batch(cmds...)
}

func (m *Model) update(msg tea.Msg) {
	switch msg := msg.(type) {
	case drainMsg:
		// drained by Update

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.logPane.SetSize(msg.Width, msg.Height)
		if m.dialog != nil {
			m.dialog.SetSize(msg.Width, msg.Height)
		}

	case dialogRequest:
		m.openDialog(msg)

	case modal.SubmitMsg:
		m.closeDialog(dialogAnswer{ok: true, value: msg.Value})

	case modal.CancelMsg:
		m.closeDialog(dialogAnswer{})

	case pubsub.Event[editor.Activity]:
		m.onActivity(msg)
		m.later(m.events.Listen())

	case log.LogEvent:
		m.logPane = m.logPane.Append(msg.Payload)
		m.later(m.logs.Listen())

	case logpane.CloseMsg:
		// pane already hidden

	case toaster.DismissMsg:
		m.toast, _ = m.toast.Update(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		if m.dialog != nil {
			var cmd tea.Cmd
			*m.dialog, cmd = m.dialog.Update(msg)
			m.later(cmd)
			return
		}
		if key.Matches(msg, m.keys.Logs) {
			m.logPane.Toggle()
			return
		}
		if m.logPane.Visible() && !key.Matches(msg, m.keys.Quit) {
			var cmd tea.Cmd
			m.logPane, cmd = m.logPane.Update(msg)
			m.later(cmd)
			return
		}
		m.handleKey(msg)

	default:
		// spinner ticks and dialog cursor blinks
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Update(msg)
		m.later(cmd)
		if m.dialog != nil {
			*m.dialog, cmd = m.dialog.Update(msg)
			m.later(cmd)
		}
	}
}

func (m *Model) openDialog(req dialogRequest) {
	if m.dialog != nil {
		// one dialog at a time; the editor never asks for two
		req.reply <- dialogAnswer{}
		return
	}
	d := modal.New(req.config)
	d.SetSize(m.width, m.height)
	m.dialog = &d
	m.answer = req.reply
	m.later(d.Init())
}

func (m *Model) closeDialog(a dialogAnswer) {
	if m.dialog == nil {
		return
	}
	m.answer <- a
	m.dialog, m.answer = nil, nil
}

func (m *Model) onActivity(ev pubsub.Event[editor.Activity]) {
	switch ev.Type {
	case pubsub.DraftSavedEvent:
		m.saved = ev.Timestamp
	case pubsub.DraftClearedEvent:
		m.saved = time.Time{}
	case pubsub.ModeChangedEvent:
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Show("Switched to "+modeLabel(ev.Payload.Mode), toaster.StyleInfo, toaster.DefaultDismiss)
		m.later(cmd)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	if msg.Paste {
		m.paste(string(msg.Runes))
		return
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.ed.SaveDraft(m.ctx); err != nil {
			log.ErrorErr(log.CatUI, "failed to save draft on quit", err)
		}
		m.quitting = true
		return
	case key.Matches(msg, m.keys.Submit):
		m.submit()
		return
	case key.Matches(msg, m.keys.ToggleMode):
		m.ed.SwitchMode(m.ctx, m.ed.Mode().Other())
		return
	case key.Matches(msg, m.keys.Preview):
		m.preview = !m.preview
		return
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return
	case key.Matches(msg, m.keys.Toolbar):
		m.showToolbar = !m.showToolbar
		return
	}
	for _, f := range keys.Formats {
		if key.Matches(msg, f.Binding) {
			if !m.preview {
				m.ed.Toolbar(m.ctx, f.Format, f.Value)
			}
			return
		}
	}
	if key.Matches(msg, m.keys.Cancel) && !m.ed.Mentions().Open() {
		m.cancel()
		return
	}
	if m.preview {
		return
	}
	if k, ok := toEditorKey(msg); ok {
		m.ed.HandleKey(m.ctx, k)
		m.lastEsc = time.Time{}
	}
}

// cancel closes the preview, or discards the draft on a second esc.
func (m *Model) cancel() {
	if m.preview {
		m.preview = false
		return
	}
	now := m.now()
	if !m.lastEsc.IsZero() && now.Sub(m.lastEsc) <= cancelWindow {
		if err := m.ed.ClearDraft(m.ctx); err != nil {
			log.ErrorErr(log.CatUI, "failed to clear draft", err)
		}
		m.result = Result{Cancelled: true, Mode: m.ed.Mode()}
		m.quitting = true
		return
	}
	m.lastEsc = now
	var cmd tea.Cmd
	m.toast, cmd = m.toast.Show(discardMessage, toaster.StyleInfo, cancelWindow)
	m.later(cmd)
}

func (m *Model) submit() {
	if err := m.ed.Validate(); err != nil {
		if errors.Is(err, editor.ErrBlankDocument) {
			m.Error(blankMessage)
			return
		}
		m.Error(err.Error())
		return
	}
	doc, err := m.ed.Document()
	if err != nil {
		log.ErrorErr(log.CatUI, "failed to encode document", err)
		m.Error(err.Error())
		return
	}
	if err := m.ed.ClearDraft(m.ctx); err != nil {
		log.ErrorErr(log.CatUI, "failed to clear draft after submit", err)
	}
	m.result = Result{Submitted: true, Document: doc, Mode: m.ed.Mode()}
	m.quitting = true
}

// paste routes bracketed paste content. Data URLs and paths to image files
// go through the upload pipeline; anything else is pasted as text.
func (m *Model) paste(text string) {
	if m.preview {
		return
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "data:image/") {
		m.ed.DropImage(m.ctx, trimmed, "")
		return
	}
	if mt := imageType(trimmed); mt != "" {
		path := trimmed
		m.sched.Go(func() {
			data, err := os.ReadFile(path) //nolint:gosec // G304: user pasted the path
			m.sched.Post(func() {
				if err != nil {
					// not a readable file after all
					m.ed.Paste(m.ctx, editor.Clipboard{Text: text})
					return
				}
				f := upload.File{Name: filepath.Base(path), Type: mt, Data: data}
				m.ed.Paste(m.ctx, editor.Clipboard{Files: []upload.File{f}})
			})
		})
		return
	}
	m.ed.Paste(m.ctx, editor.Clipboard{Text: text})
}

func imageType(path string) string {
	if strings.ContainsAny(path, "\n") {
		return ""
	}
	switch mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mt {
	case "image/png", "image/jpeg", "image/gif":
		return mt
	}
	return ""
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionRelease || m.dialog != nil {
		return
	}
	if z := zone.Get(zoneMode); z != nil && z.InBounds(msg) {
		m.ed.SwitchMode(m.ctx, m.ed.Mode().Other())
		return
	}
	for i, f := range keys.Formats {
		if z := zone.Get(fmt.Sprint(zoneFormatPrefix, i)); z != nil && z.InBounds(msg) {
			m.ed.Toolbar(m.ctx, f.Format, f.Value)
			return
		}
	}
	r := m.ed.Mentions()
	if !r.Open() {
		return
	}
	for i, item := range r.Items() {
		if z := zone.Get(fmt.Sprint(zoneMentionPref, i)); z != nil && z.InBounds(msg) && !item.Hint {
			m.ed.SelectMention(item)
			return
		}
	}
}

func modeLabel(mode editor.Mode) string {
	if mode == editor.ModeMarkdown {
		return "Markdown"
	}
	return "Rich text"
}

// ============================================================================
// View
// ============================================================================

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var sections []string
	if m.showToolbar {
		sections = append(sections, m.toolbarView())
	}
	chrome := len(sections) + 1
	if m.showHelp {
		chrome += len(m.keys.FullHelp()) + 1
	}
	bodyHeight := max(m.height-chrome, 1)

	body, caretRow, caretCol := m.bodyView(bodyHeight)
	sections = append(sections, body, m.statusView())
	if m.showHelp {
		sections = append(sections, m.help.FullHelpView(m.keys.FullHelp()))
	}
	out := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if popup := m.mentionView(); popup != "" {
		top := 0
		if m.showToolbar {
			top = 1
		}
		out = overlay.Place(overlay.Config{
			Width: m.width, Height: m.height, Position: overlay.Anchor,
			X: caretCol, Y: top + caretRow + 1,
		}, popup, out)
	}
	out = m.logPane.Overlay(out)
	out = m.toast.Overlay(out, m.width, m.height)
	if m.dialog != nil {
		out = m.dialog.Overlay(out)
	}
	return zone.Scan(out)
}

// bodyView renders the visible window of the document and the caret
// position within it.
func (m *Model) bodyView(height int) (string, int, int) {
	if m.preview {
		return m.previewView(height), 0, 0
	}
	eng := m.ed.Engine()
	sel, focused := eng.Selection()
	v := renderDocument(eng.Contents(), renderOptions{
		width:    m.width,
		sel:      sel,
		caret:    focused,
		rich:     m.ed.Mode() == editor.ModeRichText,
		disabled: !eng.Enabled(),
	})
	m.embeds.observe(v.embeds)

	if v.caretRow < m.scroll {
		m.scroll = v.caretRow
	}
	if v.caretRow >= m.scroll+height {
		m.scroll = v.caretRow - height + 1
	}
	m.scroll = min(m.scroll, max(len(v.rows)-height, 0))
	end := min(m.scroll+height, len(v.rows))
	rows := append([]string(nil), v.rows[m.scroll:end]...)
	for len(rows) < height {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n"), v.caretRow - m.scroll, v.caretCol
}

func (m *Model) previewView(height int) string {
	var err error
	if m.previewer == nil {
		m.previewer, err = markdown.New(m.width, m.markdownStyle)
	} else {
		m.previewer, err = m.previewer.Resize(m.width)
	}
	out := m.ed.PreviewMarkdown()
	if err == nil {
		out, err = m.previewer.Render(out)
	}
	if err != nil {
		log.ErrorErr(log.CatUI, "failed to render preview", err)
		out = m.ed.PreviewMarkdown()
	}
	rows := strings.Split(out, "\n")
	rows = rows[:min(len(rows), height)]
	for len(rows) < height {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m *Model) toolbarView() string {
	eng := m.ed.Engine()
	sel, _ := eng.Selection()
	active := eng.FormatAt(sel.Index, sel.Length)

	buttons := []string{zone.Mark(zoneMode, styles.ModeBadgeStyle.Render(modeLabel(m.ed.Mode())))}
	for i, f := range keys.Formats {
		style := styles.ToolbarButtonStyle
		if m.ed.Mode() == editor.ModeRichText && isActive(active[f.Format], f.Value) {
			style = styles.ToolbarButtonActiveStyle
		}
		buttons = append(buttons, zone.Mark(fmt.Sprint(zoneFormatPrefix, i), style.Render(f.Label)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

func isActive(current, want any) bool {
	if current == nil {
		return false
	}
	if want == nil {
		return current == true
	}
	if want == "check" {
		return current == "checked" || current == "unchecked"
	}
	return fmt.Sprint(current) == fmt.Sprint(want)
}

func (m *Model) statusView() string {
	parts := []string{modeLabel(m.ed.Mode())}
	if m.preview {
		parts = append(parts, "preview")
	}
	switch {
	case m.ed.HasUnsavedChanges():
		parts = append(parts, "unsaved changes")
	case !m.saved.IsZero():
		parts = append(parts, "saved "+humanize.RelTime(m.saved, m.now(), "ago", "from now"))
	}
	left := strings.Join(parts, " · ")
	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.StatusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) mentionView() string {
	r := m.ed.Mentions()
	if !r.Open() || m.preview || len(r.Items()) == 0 {
		return ""
	}
	items := r.Items()
	first := max(0, min(r.Highlight()-maxMentionRows+1, len(items)-maxMentionRows))
	var rows []string
	for i := first; i < min(first+maxMentionRows, len(items)); i++ {
		item := items[i]
		row := "  " + item.Name
		if item.Hint {
			row = "  " + styles.PlaceholderText.Render(item.Name)
		} else if item.LastActive != "" {
			row += "  " + lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render(item.LastActive)
		}
		if i == r.Highlight() && !item.Hint {
			row = styles.SelectionIndicatorStyle.Render(">") + row[1:]
		}
		rows = append(rows, zone.Mark(fmt.Sprint(zoneMentionPref, i), row))
	}
	return styles.Section{Title: "@" + r.Query(), Width: 36, Focused: true}.Render(rows...)
}

// Run starts a program for m and blocks until it exits.
func Run(m *Model, opts ...tea.ProgramOption) (Result, error) {
	p := tea.NewProgram(m, opts...)
	m.sched.Attach(p)
	defer m.Close()
	if _, err := p.Run(); err != nil {
		return m.result, fmt.Errorf("running editor: %w", err)
	}
	return m.result, nil
}
