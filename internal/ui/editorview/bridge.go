package editorview

import (
	"context"
	"errors"

	"github.com/zjrosen/draftpad/internal/ui/modal"
)

// ErrNotRunning is returned by dialogs asked for while no program is
// attached or after the program quit.
var ErrNotRunning = errors.New("editor view is not running")

// dialogRequest asks the model to show a modal. The answer arrives on reply.
type dialogRequest struct {
	config modal.Config
	reply  chan dialogAnswer
}

type dialogAnswer struct {
	ok    bool
	value string
}

// Dialogs implements editor.Confirmer and editor.Prompter with modals. Its
// methods block and must run off the update loop, which the editor ensures
// by calling them from Scheduler.Go.
type Dialogs struct {
	sched *ProgramScheduler
	done  <-chan struct{}
}

func (d *Dialogs) ask(ctx context.Context, cfg modal.Config) (dialogAnswer, error) {
	req := dialogRequest{config: cfg, reply: make(chan dialogAnswer, 1)}
	if !d.sched.Send(req) {
		return dialogAnswer{}, ErrNotRunning
	}
	select {
	case a := <-req.reply:
		return a, nil
	case <-d.done:
		return dialogAnswer{}, ErrNotRunning
	case <-ctx.Done():
		return dialogAnswer{}, ctx.Err()
	}
}

func (d *Dialogs) Confirm(ctx context.Context, prompt, confirmLabel, cancelLabel string) (bool, error) {
	a, err := d.ask(ctx, modal.Config{
		Title:          "Confirm",
		Message:        prompt,
		ConfirmLabel:   confirmLabel,
		CancelLabel:    cancelLabel,
		ConfirmVariant: modal.ButtonDanger,
	})
	return a.ok, err
}

func (d *Dialogs) Prompt(ctx context.Context, message, defaultValue string) (string, bool, error) {
	a, err := d.ask(ctx, modal.Config{
		Title:  message,
		Prompt: true,
		Value:  defaultValue,
	})
	return a.value, a.ok, err
}

// embedView implements embed.Renderer for the terminal. A post counts as
// rendered once its script has loaded and the view has drawn its card.
type embedView struct {
	requested map[string]struct{}
	drawn     map[string]struct{}
}

func newEmbedView() *embedView {
	return &embedView{requested: make(map[string]struct{}), drawn: make(map[string]struct{})}
}

func (v *embedView) RenderPost(id string) { v.requested[id] = struct{}{} }

func (v *embedView) PostRendered(id string) bool {
	_, asked := v.requested[id]
	_, drawn := v.drawn[id]
	return asked && drawn
}

func (v *embedView) VideoFramePresent(url string) bool {
	_, drawn := v.drawn[url]
	return drawn
}

// observe records the embeds of the latest frame.
func (v *embedView) observe(values map[string]struct{}) { v.drawn = values }
