package testutil

import "github.com/zjrosen/draftpad/internal/delta"

// draftData is one draft to be stored.
type draftData struct {
	scope     string
	namespace string
	value     string
	mode      string
}

func defaultDraft(namespace string) draftData {
	return draftData{scope: DefaultScope, namespace: namespace}
}

// DraftOption configures a draft during builder setup.
type DraftOption func(*draftData)

// Scope overrides DefaultScope.
func Scope(scope string) DraftOption {
	return func(d *draftData) { d.scope = scope }
}

// Text stores a legacy plain-text draft.
func Text(text string) DraftOption {
	return func(d *draftData) { d.value = text }
}

// Contents stores a structured draft.
func Contents(doc delta.Delta) DraftOption {
	return func(d *draftData) { d.value = doc.String() }
}

// Mode records the namespace's last mode ("richText" or "markdown").
func Mode(mode string) DraftOption {
	return func(d *draftData) { d.mode = mode }
}
