package delta

import (
	"math"
	"strings"
)

// Delta is an ordered list of operations. A delta of only inserts is a
// document; anything else is a change to be composed onto a document.
type Delta struct {
	Ops []Op
}

// New builds a delta from ops, normalizing adjacent ops as they are pushed.
func New(ops ...Op) Delta {
	var d Delta
	for _, op := range ops {
		d = d.push(op)
	}
	return d
}

// FromText returns a document holding text without formatting. A trailing
// newline is added when missing.
func FromText(text string) Delta {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return Delta{}.Insert(text, nil)
}

// Insert appends a text insert.
func (d Delta) Insert(text string, attrs Attributes) Delta {
	if text == "" {
		return d
	}
	return d.push(Op{Insert: text, Attributes: attrs.Clone()})
}

// InsertEmbed appends an embed insert.
func (d Delta) InsertEmbed(e Embed, attrs Attributes) Delta {
	return d.push(Op{Embed: e, Attributes: attrs.Clone()})
}

// Retain appends a retain, optionally changing attributes over the span.
func (d Delta) Retain(n int, attrs Attributes) Delta {
	if n <= 0 {
		return d
	}
	return d.push(Op{Retain: n, Attributes: attrs.Clone()})
}

// Delete appends a delete.
func (d Delta) Delete(n int) Delta {
	if n <= 0 {
		return d
	}
	return d.push(Op{Delete: n})
}

func (d Delta) push(op Op) Delta {
	if op.Len() == 0 {
		return d
	}
	ops := make([]Op, len(d.Ops), len(d.Ops)+1)
	copy(ops, d.Ops)

	idx := len(ops)
	if idx > 0 {
		last := ops[idx-1]
		if op.IsDelete() && last.IsDelete() {
			ops[idx-1] = Op{Delete: last.Delete + op.Delete}
			return Delta{Ops: ops}
		}
		// Inserts sort before a trailing delete; the result is the same.
		if last.IsDelete() && op.IsInsert() {
			idx--
			if idx == 0 {
				return Delta{Ops: append([]Op{op}, ops...)}
			}
			last = ops[idx-1]
		}
		if op.Attributes.Equal(last.Attributes) {
			switch {
			case op.Insert != "" && last.Insert != "":
				merged := Op{Insert: last.Insert + op.Insert, Attributes: op.Attributes}
				ops[idx-1] = merged
				return Delta{Ops: ops}
			case op.IsRetain() && last.IsRetain():
				ops[idx-1] = Op{Retain: last.Retain + op.Retain, Attributes: op.Attributes}
				return Delta{Ops: ops}
			}
		}
	}
	if idx == len(ops) {
		return Delta{Ops: append(ops, op)}
	}
	ops = append(ops, Op{})
	copy(ops[idx+1:], ops[idx:])
	ops[idx] = op
	return Delta{Ops: ops}
}

// Chop drops a trailing attribute-free retain.
func (d Delta) Chop() Delta {
	if n := len(d.Ops); n > 0 {
		last := d.Ops[n-1]
		if last.IsRetain() && len(last.Attributes) == 0 {
			return Delta{Ops: d.Ops[:n-1]}
		}
	}
	return d
}

// Empty reports whether the delta has no ops.
func (d Delta) Empty() bool { return len(d.Ops) == 0 }

// Length is the number of positions a document delta covers.
func (d Delta) Length() int {
	n := 0
	for _, op := range d.Ops {
		if op.IsInsert() {
			n += op.Len()
		}
	}
	return n
}

// ChangeLength is the net length change a delta applies.
func (d Delta) ChangeLength() int {
	n := 0
	for _, op := range d.Ops {
		switch {
		case op.IsInsert():
			n += op.Len()
		case op.IsDelete():
			n -= op.Delete
		}
	}
	return n
}

// Equal reports whether both deltas have the same op count and the same ops.
func (d Delta) Equal(o Delta) bool {
	if len(d.Ops) != len(o.Ops) {
		return false
	}
	for i := range d.Ops {
		if !d.Ops[i].Equal(o.Ops[i]) {
			return false
		}
	}
	return true
}

// Text projects a document to text, embeds rendered as EmbedRune.
func (d Delta) Text() string {
	var b strings.Builder
	for _, op := range d.Ops {
		switch {
		case op.Embed != nil:
			b.WriteRune(EmbedRune)
		case op.Insert != "":
			b.WriteString(op.Insert)
		}
	}
	return b.String()
}

// PlainText projects a document to text with embeds dropped.
func (d Delta) PlainText() string {
	var b strings.Builder
	for _, op := range d.Ops {
		b.WriteString(op.Insert)
	}
	return b.String()
}

// Slice returns the document positions [start, end). end < 0 means to the end.
func (d Delta) Slice(start, end int) Delta {
	if end < 0 {
		end = math.MaxInt
	}
	var out Delta
	it := newIterator(d.Ops)
	pos := 0
	for pos < end && it.hasNext() {
		if pos < start {
			skipped := it.next(start - pos)
			pos += skipped.Len()
			continue
		}
		op := it.next(end - pos)
		pos += op.Len()
		out = out.push(op)
	}
	return out
}

// Compose returns the result of applying other after d.
func (d Delta) Compose(other Delta) Delta {
	a := newIterator(d.Ops)
	b := newIterator(other.Ops)
	var out Delta
	for a.hasNext() || b.hasNext() {
		switch {
		case b.peekInsert():
			out = out.push(b.next(math.MaxInt))
		case a.peekDelete():
			out = out.push(a.next(math.MaxInt))
		default:
			n := min(a.peekLength(), b.peekLength())
			ao := a.next(n)
			bo := b.next(n)
			switch {
			case bo.IsRetain():
				var op Op
				if ao.IsRetain() {
					op.Retain = n
				} else {
					op.Insert = ao.Insert
					op.Embed = ao.Embed
				}
				op.Attributes = composeAttributes(ao.Attributes, bo.Attributes, ao.IsRetain())
				out = out.push(op)
			case bo.IsDelete() && ao.IsRetain():
				out = out.push(bo)
			}
		}
	}
	return out.Chop()
}

// Line is one newline-terminated line of a document.
type Line struct {
	Content Delta
	Attrs   Attributes
	Index   int // document offset of the first position of the line
}

// Lines splits a document into its lines. Content that does not end with a
// newline is returned as a final line with no attributes.
func (d Delta) Lines() []Line {
	var (
		lines []Line
		cur   Delta
		start int
		pos   int
	)
	it := newIterator(d.Ops)
	for it.hasNext() {
		op := it.peek()
		if op.Insert == "" {
			o := it.next(math.MaxInt)
			cur = cur.push(o)
			pos++
			continue
		}
		text := []rune(op.Insert)[it.offset:]
		nl := -1
		for i, r := range text {
			if r == '\n' {
				nl = i
				break
			}
		}
		if nl < 0 {
			o := it.next(math.MaxInt)
			cur = cur.push(o)
			pos += o.Len()
			continue
		}
		if nl > 0 {
			cur = cur.push(it.next(nl))
			pos += nl
		}
		end := it.next(1)
		lines = append(lines, Line{Content: cur, Attrs: end.Attributes.Clone(), Index: start})
		pos++
		start = pos
		cur = Delta{}
	}
	if !cur.Empty() {
		lines = append(lines, Line{Content: cur, Index: start})
	}
	return lines
}

type iterator struct {
	ops    []Op
	index  int
	offset int
}

func newIterator(ops []Op) *iterator { return &iterator{ops: ops} }

func (it *iterator) hasNext() bool { return it.index < len(it.ops) }

func (it *iterator) peek() Op {
	if it.index < len(it.ops) {
		return it.ops[it.index]
	}
	return Op{Retain: math.MaxInt}
}

func (it *iterator) peekLength() int {
	if it.index < len(it.ops) {
		return it.ops[it.index].Len() - it.offset
	}
	return math.MaxInt
}

func (it *iterator) peekInsert() bool { return it.hasNext() && it.peek().IsInsert() }

func (it *iterator) peekDelete() bool { return it.hasNext() && it.peek().IsDelete() }

// next consumes up to n positions of the current op.
func (it *iterator) next(n int) Op {
	if it.index >= len(it.ops) {
		return Op{Retain: math.MaxInt}
	}
	op := it.ops[it.index]
	offset := it.offset
	remaining := op.Len() - offset
	if n >= remaining {
		n = remaining
		it.index++
		it.offset = 0
	} else {
		it.offset += n
	}

	switch {
	case op.IsDelete():
		return Op{Delete: n}
	case op.IsRetain():
		return Op{Retain: n, Attributes: op.Attributes}
	case op.Embed != nil:
		return Op{Embed: op.Embed, Attributes: op.Attributes}
	default:
		runes := []rune(op.Insert)
		return Op{Insert: string(runes[offset : offset+n]), Attributes: op.Attributes}
	}
}
