package logic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OperandKind tags the variant of an Operand
type OperandKind string

const (
	OperandEmpty   OperandKind = ""
	OperandRef     OperandKind = "ref"
	OperandLiteral OperandKind = "literal"
)

// NodeOutput references one output port of another node
type NodeOutput struct {
	NodeID string `json:"nodeId"`
	Port   string `json:"port"`
}

func (r NodeOutput) String() string {
	return r.NodeID + "." + r.Port
}

// Operand is either a reference to another node's output or a literal.
// Numeric literals are kept as decimals so that thresholds like 0.1
// round-trip exactly.
type Operand struct {
	kind     OperandKind
	ref      NodeOutput
	number   decimal.Decimal
	text     string
	isNumber bool
}

// Ref builds a node-output reference operand
func Ref(nodeID, port string) Operand {
	return Operand{kind: OperandRef, ref: NodeOutput{NodeID: nodeID, Port: port}}
}

// Number builds a numeric literal operand
func Number(d decimal.Decimal) Operand {
	return Operand{kind: OperandLiteral, number: d, isNumber: true}
}

// NumberFromFloat builds a numeric literal from a float
func NumberFromFloat(f float64) Operand {
	return Number(decimal.NewFromFloat(f))
}

// Text builds a string literal operand. An empty string yields an empty operand.
func Text(s string) Operand {
	if s == "" {
		return Operand{}
	}
	return Operand{kind: OperandLiteral, text: s}
}

// ParseLiteral turns user input into a literal, preferring a number
func ParseLiteral(s string) Operand {
	if d, err := decimal.NewFromString(s); err == nil {
		return Number(d)
	}
	return Text(s)
}

// Kind returns the operand variant
func (o Operand) Kind() OperandKind { return o.kind }

// IsEmpty reports whether nothing has been chosen yet
func (o Operand) IsEmpty() bool {
	switch o.kind {
	case OperandRef:
		return o.ref.NodeID == ""
	case OperandLiteral:
		return !o.isNumber && o.text == ""
	}
	return true
}

// Ref returns the referenced node output, if this is a reference
func (o Operand) Ref() (NodeOutput, bool) {
	if o.kind != OperandRef {
		return NodeOutput{}, false
	}
	return o.ref, true
}

// Literal returns the literal value as either a decimal or a string
func (o Operand) Literal() (number decimal.Decimal, text string, isNumber bool, ok bool) {
	if o.kind != OperandLiteral {
		return decimal.Decimal{}, "", false, false
	}
	return o.number, o.text, o.isNumber, true
}

// Equal compares operands structurally
func (o Operand) Equal(other Operand) bool {
	if o.kind != other.kind {
		return false
	}
	switch o.kind {
	case OperandRef:
		return o.ref == other.ref
	case OperandLiteral:
		if o.isNumber != other.isNumber {
			return false
		}
		if o.isNumber {
			return o.number.Equal(other.number)
		}
		return o.text == other.text
	}
	return true
}

func (o Operand) String() string {
	switch o.kind {
	case OperandRef:
		return o.ref.String()
	case OperandLiteral:
		if o.isNumber {
			return o.number.String()
		}
		return fmt.Sprintf("%q", o.text)
	}
	return "?"
}

type operandJSON struct {
	Kind   OperandKind     `json:"kind"`
	NodeID string          `json:"nodeId,omitempty"`
	Port   string          `json:"port,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (o Operand) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case OperandRef:
		return json.Marshal(operandJSON{Kind: OperandRef, NodeID: o.ref.NodeID, Port: o.ref.Port})
	case OperandLiteral:
		var value json.RawMessage
		if o.isNumber {
			value = json.RawMessage(o.number.String())
		} else {
			raw, err := json.Marshal(o.text)
			if err != nil {
				return nil, err
			}
			value = raw
		}
		return json.Marshal(operandJSON{Kind: OperandLiteral, Value: value})
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler. Besides the tagged object form it
// accepts a bare number or string, which older saved strategies use.
func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = Operand{}
		return nil
	}

	switch data[0] {
	case '{':
		var raw operandJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		switch raw.Kind {
		case OperandRef:
			*o = Ref(raw.NodeID, raw.Port)
			return nil
		case OperandLiteral:
			return o.unmarshalLiteral(raw.Value)
		case OperandEmpty:
			*o = Operand{}
			return nil
		}
		return fmt.Errorf("unknown operand kind %q", raw.Kind)
	default:
		return o.unmarshalLiteral(data)
	}
}

func (o *Operand) unmarshalLiteral(data json.RawMessage) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = Operand{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Text(s)
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid literal %s: %w", data, err)
	}
	*o = Number(d)
	return nil
}
