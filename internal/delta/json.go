package delta

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrNotDelta is returned by Parse when the input is not a delta document.
var ErrNotDelta = errors.New("not a delta document")

type wireOp struct {
	Insert     json.RawMessage `json:"insert,omitempty"`
	Delete     int             `json:"delete,omitempty"`
	Retain     int             `json:"retain,omitempty"`
	Attributes Attributes      `json:"attributes,omitempty"`
}

type wireDelta struct {
	Ops *[]Op `json:"ops"`
}

// MarshalJSON encodes the op in the {"insert"|"delete"|"retain", "attributes"} shape.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Delete: o.Delete, Retain: o.Retain, Attributes: o.Attributes}
	if o.IsInsert() {
		var (
			raw []byte
			err error
		)
		if o.Embed != nil {
			raw, err = json.Marshal(map[string]any(o.Embed))
		} else {
			raw, err = json.Marshal(o.Insert)
		}
		if err != nil {
			return nil, err
		}
		w.Insert = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an op, accepting string or object inserts.
func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Op{Delete: w.Delete, Retain: w.Retain, Attributes: normalize(w.Attributes)}
	if len(w.Insert) == 0 {
		if o.Delete <= 0 && o.Retain <= 0 {
			return fmt.Errorf("%w: op has no insert, delete or retain", ErrNotDelta)
		}
		return nil
	}
	if w.Insert[0] == '"' {
		return json.Unmarshal(w.Insert, &o.Insert)
	}
	var e map[string]any
	if err := json.Unmarshal(w.Insert, &e); err != nil {
		return fmt.Errorf("%w: insert must be a string or an object", ErrNotDelta)
	}
	if len(e) != 1 {
		return fmt.Errorf("%w: embed must have exactly one key", ErrNotDelta)
	}
	o.Embed = Embed(normalize(e))
	return nil
}

// MarshalJSON encodes the delta as {"ops":[...]}.
func (d Delta) MarshalJSON() ([]byte, error) {
	ops := d.Ops
	if ops == nil {
		ops = []Op{}
	}
	return json.Marshal(wireDelta{Ops: &ops})
}

// UnmarshalJSON decodes {"ops":[...]}. The ops key is required.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var w wireDelta
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrNotDelta, err)
	}
	if w.Ops == nil {
		return fmt.Errorf("%w: missing ops", ErrNotDelta)
	}
	d.Ops = *w.Ops
	return nil
}

// Parse decodes a stored document. Anything that is not a JSON object with an
// ops array yields an error wrapping ErrNotDelta.
func Parse(s string) (Delta, error) {
	var d Delta
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		if errors.Is(err, ErrNotDelta) {
			return Delta{}, err
		}
		return Delta{}, fmt.Errorf("%w: %v", ErrNotDelta, err)
	}
	return d, nil
}

// String returns the JSON encoding.
func (d Delta) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("delta(%d ops)", len(d.Ops))
	}
	return string(b)
}

// normalize turns whole JSON numbers into ints so decoded attributes compare
// equal to ones built in code.
func normalize[M ~map[string]any](m M) M {
	if len(m) == 0 {
		return nil
	}
	for k, v := range m {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			m[k] = int(f)
		}
	}
	return m
}
