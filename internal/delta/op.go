// Package delta models documents and changes as sequences of insert, retain
// and delete operations carrying formatting attributes.
//
// A document is a delta made only of inserts. Block formats (header, list,
// blockquote, code-block) are attributes of the newline that ends the line.
// Embeds (images, videos, posts) are inserts of a single-key map and occupy
// exactly one position.
package delta

import (
	"maps"
	"reflect"
	"unicode/utf8"
)

// EmbedRune stands in for an embed in the text projection of a document so
// that text offsets and delta offsets agree.
const EmbedRune = '\uFFFC'

// Attributes holds formatting keyed by name. A nil value in a change means
// "remove this attribute".
type Attributes map[string]any

// Clone returns a shallow copy, or nil for an empty set.
func (a Attributes) Clone() Attributes {
	if len(a) == 0 {
		return nil
	}
	return maps.Clone(a)
}

// Has reports whether key is set to a non-nil value.
func (a Attributes) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// Equal compares two attribute sets, treating nil and empty as equal.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

// Embed is a non-text insert such as {"image": "https://..."}.
type Embed map[string]any

// Kind returns the embed's single key.
func (e Embed) Kind() string {
	for k := range e {
		return k
	}
	return ""
}

// Value returns the embed payload for its kind.
func (e Embed) Value() any {
	return e[e.Kind()]
}

// Op is one delta operation. Exactly one of Insert, Embed, Delete or Retain
// is meaningful.
type Op struct {
	Insert     string
	Embed      Embed
	Delete     int
	Retain     int
	Attributes Attributes
}

// IsInsert reports whether the op inserts text or an embed.
func (o Op) IsInsert() bool { return o.Insert != "" || o.Embed != nil }

// IsDelete reports whether the op deletes.
func (o Op) IsDelete() bool { return o.Delete > 0 }

// IsRetain reports whether the op retains.
func (o Op) IsRetain() bool { return o.Retain > 0 }

// Len is the number of positions the op covers.
func (o Op) Len() int {
	switch {
	case o.Delete > 0:
		return o.Delete
	case o.Retain > 0:
		return o.Retain
	case o.Embed != nil:
		return 1
	default:
		return utf8.RuneCountInString(o.Insert)
	}
}

// Equal compares two ops structurally.
func (o Op) Equal(p Op) bool {
	if o.Insert != p.Insert || o.Delete != p.Delete || o.Retain != p.Retain {
		return false
	}
	if (o.Embed == nil) != (p.Embed == nil) {
		return false
	}
	if o.Embed != nil && !Attributes(o.Embed).Equal(Attributes(p.Embed)) {
		return false
	}
	return o.Attributes.Equal(p.Attributes)
}

// composeAttributes applies b over a. Nil values in b remove keys unless
// keepNull is set, which is how retains carry removals forward.
func composeAttributes(a, b Attributes, keepNull bool) Attributes {
	out := Attributes{}
	for k, v := range b {
		if v == nil && !keepNull {
			continue
		}
		out[k] = v
	}
	for k, v := range a {
		if _, ok := b[k]; !ok && v != nil {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
