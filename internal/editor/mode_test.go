package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/eventloop"
	"github.com/zjrosen/draftpad/internal/pubsub"
	"github.com/zjrosen/draftpad/internal/storage"
	"github.com/zjrosen/draftpad/internal/testutil"
)

type recordingPrefs struct{ saved []Mode }

func (p *recordingPrefs) SavePreferredMode(m Mode) error {
	p.saved = append(p.saved, m)
	return nil
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("markdown")
	require.NoError(t, err)
	require.Equal(t, ModeMarkdown, m)
	require.Equal(t, ModeRichText, m.Other())

	_, err = ParseMode("html")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestSwitchMode_PlainDocumentSwitchesWithoutAsking(t *testing.T) {
	prefs := &recordingPrefs{}
	f := newFixture(t, withContents(testutil.PlainDocument()), func(o *Options) { o.Preferences = prefs })
	events := f.ed.Events().Subscribe(f.ctx)

	f.ed.SwitchMode(f.ctx, ModeMarkdown)

	require.Equal(t, ModeMarkdown, f.ed.Mode())
	require.Empty(t, f.confirm.Prompts)
	require.Equal(t, "first line\nsecond line\n", f.text())
	require.Equal(t, f.eng.Length()-1, f.sel().Index)
	v, ok := f.stored(storage.ModeKey(testNamespace))
	require.True(t, ok)
	require.Equal(t, "markdown", v)
	require.Equal(t, []Mode{ModeMarkdown}, prefs.saved)

	ev := <-events
	require.Equal(t, pubsub.ModeChangedEvent, ev.Type)
	require.Equal(t, ModeMarkdown, ev.Payload.Mode)
}

func TestSwitchMode_LossyAccepted(t *testing.T) {
	f := newFixture(t, withContents(testutil.FormattedDocument()))

	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	require.Equal(t, ModeRichText, f.ed.Mode(), "waits for the answer")
	require.True(t, f.eng.Contents().Equal(testutil.FormattedDocument()), "trial strip is not visible")

	f.sched.Flush()
	require.Equal(t, []string{confirmStripPrompt}, f.confirm.Prompts)
	require.Equal(t, ModeMarkdown, f.ed.Mode())
	require.Equal(t, testutil.FormattedDocument().PlainText(), f.text())
	require.Len(t, f.eng.Contents().Ops, 1, "no attributes or embeds remain")
}

func TestSwitchMode_LossyDeclinedKeepsEverything(t *testing.T) {
	f := newFixture(t, withContents(testutil.FormattedDocument()))
	f.confirm.Answer = false

	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	f.sched.Flush()

	require.Equal(t, ModeRichText, f.ed.Mode())
	require.True(t, f.eng.Contents().Equal(testutil.FormattedDocument()))
	_, ok := f.stored(storage.ModeKey(testNamespace))
	require.False(t, ok)
	require.False(t, f.ed.HasUnsavedChanges())
}

func TestSwitchMode_ConfirmErrorDeclines(t *testing.T) {
	f := newFixture(t, withContents(testutil.FormattedDocument()))
	f.confirm.Err = errors.New("dialog crashed")

	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	f.sched.Flush()
	require.Equal(t, ModeRichText, f.ed.Mode())
}

func TestSwitchMode_NoConfirmerDeclines(t *testing.T) {
	f := newFixture(t, withContents(testutil.FormattedDocument()), func(o *Options) { o.Confirmer = nil })

	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	f.sched.Flush()
	require.Equal(t, ModeRichText, f.ed.Mode())
}

func TestSwitchMode_OnePromptAtATime(t *testing.T) {
	f := newFixture(t, withContents(testutil.FormattedDocument()))

	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	require.Len(t, f.confirm.Prompts, 1)

	f.sched.Flush()
	require.Equal(t, ModeMarkdown, f.ed.Mode())
}

func TestSwitchMode_ToRichTextKeepsText(t *testing.T) {
	f := newFixture(t, withText("**not bold**"))
	f.ed.SwitchMode(f.ctx, ModeRichText)

	require.Equal(t, ModeRichText, f.ed.Mode())
	require.Equal(t, "**not bold**\n", f.text())
	v, _ := f.stored(storage.ModeKey(testNamespace))
	require.Equal(t, "richText", v)
}

func TestSwitchMode_SameModeIsNoop(t *testing.T) {
	f := newFixture(t)
	f.ed.SwitchMode(f.ctx, ModeRichText)
	_, ok := f.stored(storage.ModeKey(testNamespace))
	require.False(t, ok)
}

func TestSwitchMode_DisabledEngineIgnored(t *testing.T) {
	f := newFixture(t)
	f.eng.Enable(false)
	f.ed.SwitchMode(f.ctx, ModeMarkdown)
	require.Equal(t, ModeRichText, f.ed.Mode())
}

// genDocument draws a document mixing formatted text, block formats and
// embeds.
func genDocument(t *rapid.T) delta.Delta {
	var d delta.Delta
	lines := rapid.IntRange(1, 4).Draw(t, "lines")
	for i := 0; i < lines; i++ {
		segments := rapid.IntRange(0, 3).Draw(t, "segments")
		for j := 0; j < segments; j++ {
			switch rapid.IntRange(0, 3).Draw(t, "kind") {
			case 0:
				d = d.InsertEmbed(delta.Embed{"image": "https://x/i.png"}, nil)
			case 1:
				d = d.Insert(rapid.StringMatching(`[a-z ]{1,6}`).Draw(t, "bold"), delta.Attributes{"bold": true})
			default:
				d = d.Insert(rapid.StringMatching(`[a-z ]{1,6}`).Draw(t, "text"), nil)
			}
		}
		var block delta.Attributes
		switch rapid.IntRange(0, 2).Draw(t, "block") {
		case 1:
			block = delta.Attributes{"header": rapid.IntRange(1, 2).Draw(t, "level")}
		case 2:
			block = delta.Attributes{"list": rapid.SampledFrom([]string{"ordered", "bullet"}).Draw(t, "list")}
		}
		d = d.Insert("\n", block)
	}
	return d
}

func TestSwitchMode_RoundTripKeepsPlainText(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := genDocument(rt)
		sched := eventloop.NewManual()
		eng := engine.NewMemory()
		ed, err := New(context.Background(), Options{
			Scheduler:       sched,
			Store:           storage.NewMemoryStore(),
			Engine:          eng,
			Namespace:       "round-trip",
			InitialContents: &doc,
			Confirmer:       &testutil.Confirmer{Answer: true},
		})
		require.NoError(rt, err)
		defer ed.Close()

		before := eng.Contents().PlainText()
		for _, m := range []Mode{ModeRichText, ModeMarkdown, ModeRichText} {
			ed.SwitchMode(context.Background(), m)
			sched.Flush()
		}
		require.Equal(rt, ModeRichText, ed.Mode())
		require.Equal(rt, before, eng.Contents().PlainText())
	})
}
