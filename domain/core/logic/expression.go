// Package logic models the nested boolean expressions attached to logic nodes.
//
// An expression is a tree: a Group combines ordered children with AND or OR,
// a Condition compares two operands. Trees are values; editing operations in
// edit.go return new trees and share every subtree they do not touch.
package logic

import (
	"fmt"
	"strings"

	pkgerrors "strategy-editor/pkg/errors"
)

// Kind tags the variant of an expression node
type Kind string

const (
	KindAnd       Kind = "AND"
	KindOr        Kind = "OR"
	KindCondition Kind = "CONDITION"
)

// MaxDepth bounds how deeply groups may nest
const MaxDepth = 32

// Operator is a comparison operator of a Condition
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

// Operators lists the supported comparison operators in display order
var Operators = []Operator{OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual}

// Valid reports whether o is one of the six supported operators
func (o Operator) Valid() bool {
	for _, op := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOperator validates an operator string
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.TrimSpace(s))
	if !op.Valid() {
		return "", pkgerrors.NewValidationErrorf("unsupported operator %q", s)
	}
	return op, nil
}

// Expr is a node of a logic tree. The set of implementations is closed:
// Group and Condition.
type Expr interface {
	Kind() Kind
	isExpr()
}

// Group combines its children with AND or OR
type Group struct {
	Op       Kind
	Children []Expr
}

// Condition compares two operands
type Condition struct {
	Left     Operand
	Operator Operator
	Right    Operand
}

// Kind implements Expr
func (g Group) Kind() Kind { return g.Op }

// Kind implements Expr
func (Condition) Kind() Kind { return KindCondition }

func (Group) isExpr()     {}
func (Condition) isExpr() {}

// And builds an AND group
func And(children ...Expr) Group {
	return Group{Op: KindAnd, Children: children}
}

// Or builds an OR group
func Or(children ...Expr) Group {
	return Group{Op: KindOr, Children: children}
}

// NewCondition builds a comparison leaf
func NewCondition(left Operand, op Operator, right Operand) Condition {
	return Condition{Left: left, Operator: op, Right: right}
}

// EmptyCondition is the leaf appended by "add condition"
func EmptyCondition() Condition {
	return Condition{Operator: OpEqual}
}

// IsGroupKind reports whether k names a group operator
func IsGroupKind(k Kind) bool {
	return k == KindAnd || k == KindOr
}

// Equal compares two trees structurally
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Group:
		y, ok := b.(Group)
		if !ok || x.Op != y.Op || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Children {
			if !Equal(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	case Condition:
		y, ok := b.(Condition)
		return ok && x.Operator == y.Operator && x.Left.Equal(y.Left) && x.Right.Equal(y.Right)
	}
	return false
}

// Validate checks the committed-tree invariants: known operators, bounded
// depth, and a non-empty left operand on every condition.
func Validate(root Expr) error {
	if root == nil {
		return pkgerrors.NewValidationError("logic expression is empty")
	}
	return validateAt(root, nil)
}

func validateAt(e Expr, path Path) error {
	if len(path) > MaxDepth {
		return pkgerrors.NewValidationErrorf("logic expression nests deeper than %d levels", MaxDepth)
	}
	switch n := e.(type) {
	case Group:
		if !IsGroupKind(n.Op) {
			return pkgerrors.NewValidationErrorf("group at %s has invalid operator %q", path, n.Op)
		}
		for i, child := range n.Children {
			if child == nil {
				return pkgerrors.NewValidationErrorf("group at %s has an empty child %d", path, i)
			}
			if err := validateAt(child, path.Child(i)); err != nil {
				return err
			}
		}
		return nil
	case Condition:
		if n.Left.IsEmpty() {
			return pkgerrors.NewValidationErrorf("condition at %s is missing its left operand", path)
		}
		if !n.Operator.Valid() {
			return pkgerrors.NewValidationErrorf("condition at %s has unsupported operator %q", path, n.Operator)
		}
		return nil
	default:
		return pkgerrors.NewValidationErrorf("unknown expression at %s", path)
	}
}

// References returns every node-output reference in the tree, depth first
func References(root Expr) []NodeOutput {
	var refs []NodeOutput
	var walk func(Expr, int)
	walk = func(e Expr, depth int) {
		if depth > MaxDepth {
			return
		}
		switch n := e.(type) {
		case Group:
			for _, child := range n.Children {
				walk(child, depth+1)
			}
		case Condition:
			if ref, ok := n.Left.Ref(); ok {
				refs = append(refs, ref)
			}
			if ref, ok := n.Right.Ref(); ok {
				refs = append(refs, ref)
			}
		}
	}
	walk(root, 0)
	return refs
}

// String renders the tree in infix form, e.g. (sma.result > 70 AND rsi.result < 30)
func String(root Expr) string {
	switch n := root.(type) {
	case Group:
		parts := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			parts = append(parts, String(child))
		}
		return "(" + strings.Join(parts, " "+string(n.Op)+" ") + ")"
	case Condition:
		return fmt.Sprintf("%s %s %s", n.Left, n.Operator, n.Right)
	}
	return "<nil>"
}
