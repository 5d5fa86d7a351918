package logic

import (
	"encoding/json"
	"fmt"
)

// exprJSON is the wire form shared by groups and conditions
type exprJSON struct {
	Type     Kind              `json:"type"`
	Children []json.RawMessage `json:"children,omitempty"`
	Left     *Operand          `json:"left,omitempty"`
	Operator Operator          `json:"operator,omitempty"`
	Right    *Operand          `json:"right,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (g Group) MarshalJSON() ([]byte, error) {
	children := make([]json.RawMessage, 0, len(g.Children))
	for _, child := range g.Children {
		raw, err := MarshalExpr(child)
		if err != nil {
			return nil, err
		}
		children = append(children, raw)
	}
	return json.Marshal(struct {
		Type     Kind              `json:"type"`
		Children []json.RawMessage `json:"children"`
	}{Type: g.Op, Children: children})
}

// MarshalJSON implements json.Marshaler
func (c Condition) MarshalJSON() ([]byte, error) {
	left, right := c.Left, c.Right
	return json.Marshal(exprJSON{Type: KindCondition, Left: &left, Operator: c.Operator, Right: &right})
}

// MarshalExpr encodes any expression, including nil as JSON null
func MarshalExpr(e Expr) ([]byte, error) {
	switch n := e.(type) {
	case nil:
		return []byte("null"), nil
	case Group:
		return n.MarshalJSON()
	case Condition:
		return n.MarshalJSON()
	}
	return nil, fmt.Errorf("unknown expression type %T", e)
}

// UnmarshalExpr decodes an expression tree. JSON null yields a nil Expr.
func UnmarshalExpr(data []byte) (Expr, error) {
	return unmarshalAt(data, 0)
}

func unmarshalAt(data []byte, depth int) (Expr, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("logic expression nests deeper than %d levels", MaxDepth)
	}
	if string(data) == "null" || len(data) == 0 {
		return nil, nil
	}
	var raw exprJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.Type {
	case KindAnd, KindOr:
		g := Group{Op: raw.Type}
		if len(raw.Children) > 0 {
			g.Children = make([]Expr, 0, len(raw.Children))
		}
		for i, child := range raw.Children {
			e, err := unmarshalAt(child, depth+1)
			if err != nil {
				return nil, err
			}
			if e == nil {
				return nil, fmt.Errorf("child %d of %s group is null", i, raw.Type)
			}
			g.Children = append(g.Children, e)
		}
		return g, nil
	case KindCondition:
		c := Condition{Operator: raw.Operator}
		if raw.Left != nil {
			c.Left = *raw.Left
		}
		if raw.Right != nil {
			c.Right = *raw.Right
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown logic expression type %q", raw.Type)
}

// Tree wraps an optional root so that it can sit in a struct field and
// round-trip through encoding/json.
type Tree struct {
	Root Expr
}

// NewTree wraps root
func NewTree(root Expr) Tree { return Tree{Root: root} }

// IsEmpty reports whether the tree has no root
func (t Tree) IsEmpty() bool { return t.Root == nil }

// Equal compares two trees structurally
func (t Tree) Equal(other Tree) bool { return Equal(t.Root, other.Root) }

// MarshalJSON implements json.Marshaler
func (t Tree) MarshalJSON() ([]byte, error) {
	return MarshalExpr(t.Root)
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Tree) UnmarshalJSON(data []byte) error {
	root, err := UnmarshalExpr(data)
	if err != nil {
		return err
	}
	t.Root = root
	return nil
}
