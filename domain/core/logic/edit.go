package logic

import (
	"strconv"
	"strings"

	pkgerrors "strategy-editor/pkg/errors"
)

// Path addresses a node of a tree by child indices from the root.
// The empty path is the root itself.
type Path []int

// Child returns a new path one level below p
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// Parent returns the path of p's parent and p's index within it
func (p Path) Parent() (Path, int, bool) {
	if len(p) == 0 {
		return nil, 0, false
	}
	return p[:len(p)-1], p[len(p)-1], true
}

func (p Path) String() string {
	if len(p) == 0 {
		return "root"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return "root/" + strings.Join(parts, "/")
}

// ParsePath parses the form produced by String, and also accepts "" and "0/1"
func ParsePath(s string) (Path, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "root")
	s = strings.Trim(s, "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, pkgerrors.NewValidationErrorf("invalid logic path %q", s)
		}
		path = append(path, idx)
	}
	return path, nil
}

// At returns the expression at path
func At(root Expr, path Path) (Expr, error) {
	current := root
	for depth, idx := range path {
		g, ok := current.(Group)
		if !ok {
			return nil, pkgerrors.NewValidationErrorf("%s is not a group", path[:depth])
		}
		if idx < 0 || idx >= len(g.Children) {
			return nil, pkgerrors.NewNotFoundError("logic child " + path[:depth+1].String())
		}
		current = g.Children[idx]
	}
	if current == nil {
		return nil, pkgerrors.NewNotFoundError("logic expression")
	}
	return current, nil
}

// replaceAt rebuilds the ancestors along path, substituting fn's result for
// the addressed node. Every subtree off the path is shared with the input.
func replaceAt(node Expr, path Path, fn func(Expr) (Expr, error)) (Expr, error) {
	if len(path) == 0 {
		return fn(node)
	}
	g, ok := node.(Group)
	if !ok {
		return nil, pkgerrors.NewValidationError("cannot descend into a condition")
	}
	idx := path[0]
	if idx < 0 || idx >= len(g.Children) {
		return nil, pkgerrors.NewNotFoundError("logic child " + strconv.Itoa(idx))
	}
	replaced, err := replaceAt(g.Children[idx], path[1:], fn)
	if err != nil {
		return nil, err
	}
	children := make([]Expr, len(g.Children))
	copy(children, g.Children)
	children[idx] = replaced
	return Group{Op: g.Op, Children: children}, nil
}

func withGroup(root Expr, path Path, fn func(Group) (Group, error)) (Expr, error) {
	return replaceAt(root, path, func(e Expr) (Expr, error) {
		g, ok := e.(Group)
		if !ok {
			return nil, pkgerrors.NewValidationErrorf("%s is not a group", path)
		}
		return fn(g)
	})
}

func withCondition(root Expr, path Path, fn func(Condition) Condition) (Expr, error) {
	return replaceAt(root, path, func(e Expr) (Expr, error) {
		c, ok := e.(Condition)
		if !ok {
			return nil, pkgerrors.NewValidationErrorf("%s is not a condition", path)
		}
		return fn(c), nil
	})
}

func appendChild(g Group, child Expr) Group {
	children := make([]Expr, len(g.Children), len(g.Children)+1)
	copy(children, g.Children)
	return Group{Op: g.Op, Children: append(children, child)}
}

// AddCondition appends an empty condition to the group at path
func AddCondition(root Expr, path Path) (Expr, error) {
	return withGroup(root, path, func(g Group) (Group, error) {
		return appendChild(g, EmptyCondition()), nil
	})
}

// AddGroup appends an empty nested group to the group at path
func AddGroup(root Expr, path Path, op Kind) (Expr, error) {
	if !IsGroupKind(op) {
		return nil, pkgerrors.NewValidationErrorf("invalid group operator %q", op)
	}
	if len(path)+1 > MaxDepth {
		return nil, pkgerrors.NewValidationErrorf("logic expression nests deeper than %d levels", MaxDepth)
	}
	return withGroup(root, path, func(g Group) (Group, error) {
		return appendChild(g, Group{Op: op}), nil
	})
}

// RemoveChild removes the node at path from its parent group. Only the
// parent's child list changes; siblings keep their identity.
func RemoveChild(root Expr, path Path) (Expr, error) {
	parent, idx, ok := path.Parent()
	if !ok {
		return nil, pkgerrors.NewValidationError("cannot remove the root expression")
	}
	return withGroup(root, parent, func(g Group) (Group, error) {
		if idx < 0 || idx >= len(g.Children) {
			return Group{}, pkgerrors.NewNotFoundError("logic child " + path.String())
		}
		children := make([]Expr, 0, len(g.Children)-1)
		children = append(children, g.Children[:idx]...)
		children = append(children, g.Children[idx+1:]...)
		return Group{Op: g.Op, Children: children}, nil
	})
}

// SetGroupOp switches the group at path between AND and OR
func SetGroupOp(root Expr, path Path, op Kind) (Expr, error) {
	if !IsGroupKind(op) {
		return nil, pkgerrors.NewValidationErrorf("invalid group operator %q", op)
	}
	return withGroup(root, path, func(g Group) (Group, error) {
		return Group{Op: op, Children: g.Children}, nil
	})
}

// SetLeft replaces the left operand of the condition at path
func SetLeft(root Expr, path Path, operand Operand) (Expr, error) {
	return withCondition(root, path, func(c Condition) Condition {
		c.Left = operand
		return c
	})
}

// SetRight replaces the right operand of the condition at path
func SetRight(root Expr, path Path, operand Operand) (Expr, error) {
	return withCondition(root, path, func(c Condition) Condition {
		c.Right = operand
		return c
	})
}

// SetOperator replaces the comparison operator of the condition at path
func SetOperator(root Expr, path Path, op Operator) (Expr, error) {
	if !op.Valid() {
		return nil, pkgerrors.NewValidationErrorf("unsupported operator %q", op)
	}
	return withCondition(root, path, func(c Condition) Condition {
		c.Operator = op
		return c
	})
}

// Replace substitutes an arbitrary subtree at path
func Replace(root Expr, path Path, sub Expr) (Expr, error) {
	if sub == nil {
		return nil, pkgerrors.NewValidationError("replacement expression is empty")
	}
	return replaceAt(root, path, func(Expr) (Expr, error) { return sub, nil })
}
