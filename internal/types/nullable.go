package types

import (
	"encoding/json"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// NotApplicable is the textual form of an unset NullFloat in tabular output
const NotApplicable = "NA"

// NullFloat is a float64 that may be "not applicable". It is distinct from
// zero: a BCR with no project cost, or a damage fraction with no matching
// lookup row, is NA rather than 0.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float wraps v as an applicable value
func Float(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

func (n NullFloat) String() string {
	if !n.Valid {
		return NotApplicable
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

func (n NullFloat) ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (n *NullFloat) set(p *float64) {
	if p == nil {
		*n = NullFloat{}
		return
	}
	*n = Float(*p)
}

// MarshalJSON encodes NA as null
func (n NullFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ptr())
}

// UnmarshalJSON decodes null as NA
func (n *NullFloat) UnmarshalJSON(b []byte) error {
	var p *float64
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	n.set(p)
	return nil
}

// EncodeMsgpack encodes NA as nil
func (n NullFloat) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(n.ptr())
}

// DecodeMsgpack decodes nil as NA
func (n *NullFloat) DecodeMsgpack(dec *msgpack.Decoder) error {
	var p *float64
	if err := dec.Decode(&p); err != nil {
		return err
	}
	n.set(p)
	return nil
}
