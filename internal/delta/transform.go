package delta

var blockFormats = map[string]bool{
	"header":     true,
	"blockquote": true,
	"code-block": true,
	"list":       true,
	"align":      true,
	"indent":     true,
	"direction":  true,
}

// IsBlockFormat reports whether name formats whole lines.
func IsBlockFormat(name string) bool { return blockFormats[name] }

// SplitAttributes separates inline formats from block formats.
func SplitAttributes(a Attributes) (inline, block Attributes) {
	for k, v := range a {
		if IsBlockFormat(k) {
			if block == nil {
				block = Attributes{}
			}
			block[k] = v
			continue
		}
		if inline == nil {
			inline = Attributes{}
		}
		inline[k] = v
	}
	return inline, block
}

// TransformPosition maps a document position across this change. With
// priority set, an insert exactly at index leaves it in place.
func (d Delta) TransformPosition(index int, priority bool) int {
	offset := 0
	for _, op := range d.Ops {
		if offset > index {
			break
		}
		length := op.Len()
		if op.IsDelete() {
			index -= min(length, index-offset)
			continue
		}
		if op.IsInsert() && (offset < index || !priority) {
			index += length
		}
		offset += length
	}
	return index
}

// Invert returns the change that undoes d when applied after d to base.
func (d Delta) Invert(base Delta) Delta {
	var out Delta
	baseIndex := 0
	for _, op := range d.Ops {
		switch {
		case op.IsInsert():
			out = out.Delete(op.Len())
		case op.IsRetain() && len(op.Attributes) == 0:
			out = out.Retain(op.Retain, nil)
			baseIndex += op.Retain
		default:
			length := op.Len()
			for _, b := range base.Slice(baseIndex, baseIndex+length).Ops {
				if op.IsDelete() {
					out = out.push(b)
				} else {
					out = out.Retain(b.Len(), invertAttributes(op.Attributes, b.Attributes))
				}
			}
			baseIndex += length
		}
	}
	return out.Chop()
}

func invertAttributes(attr, base Attributes) Attributes {
	out := Attributes{}
	for k, bv := range base {
		if av, ok := attr[k]; ok && !(Attributes{k: av}).Equal(Attributes{k: bv}) {
			out[k] = bv
		}
	}
	for k, av := range attr {
		if _, ok := base[k]; !ok && av != nil {
			out[k] = nil
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Concat appends other's ops without composing.
func (d Delta) Concat(other Delta) Delta {
	out := d
	for _, op := range other.Ops {
		out = out.push(op)
	}
	return out
}
