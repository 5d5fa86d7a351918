package properties

import (
	"strategy-editor/domain/core/catalog"
	"strategy-editor/domain/core/logic"
)

// LogicEditor edits the expression tree of a logic gate's staged
// configuration. Edits address tree nodes by path and rebuild only the
// ancestors of the edited node.
type LogicEditor struct {
	editor *Editor
}

// Tree returns the staged expression tree
func (l *LogicEditor) Tree() logic.Tree {
	tree, _ := catalog.LogicTree(l.editor.staged)
	if tree.IsEmpty() {
		return logic.NewTree(l.emptyRoot())
	}
	return tree
}

func (l *LogicEditor) emptyRoot() logic.Group {
	if l.editor.nodeType == catalog.TypeOrLogic {
		return logic.Or()
	}
	return logic.And()
}

func (l *LogicEditor) apply(edit func(logic.Expr) (logic.Expr, error)) error {
	if err := l.editor.checkOpen(); err != nil {
		return err
	}
	next, err := edit(l.Tree().Root)
	if err != nil {
		return err
	}
	cfg, err := catalog.WithLogicTree(l.editor.staged, logic.NewTree(next))
	if err != nil {
		return err
	}
	l.editor.staged = cfg
	return nil
}

// AddCondition appends an empty condition to the group at path
func (l *LogicEditor) AddCondition(path logic.Path) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.AddCondition(root, path)
	})
}

// AddGroup appends an empty nested AND or OR group to the group at path
func (l *LogicEditor) AddGroup(path logic.Path, op logic.Kind) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.AddGroup(root, path, op)
	})
}

// RemoveChild removes the node at path from its parent
func (l *LogicEditor) RemoveChild(path logic.Path) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.RemoveChild(root, path)
	})
}

// SetGroupOp switches the group at path between AND and OR
func (l *LogicEditor) SetGroupOp(path logic.Path, op logic.Kind) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.SetGroupOp(root, path, op)
	})
}

// SetLeft sets the left operand of the condition at path
func (l *LogicEditor) SetLeft(path logic.Path, operand logic.Operand) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.SetLeft(root, path, operand)
	})
}

// SetRight sets the right operand of the condition at path
func (l *LogicEditor) SetRight(path logic.Path, operand logic.Operand) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.SetRight(root, path, operand)
	})
}

// SetOperator sets the comparison operator of the condition at path
func (l *LogicEditor) SetOperator(path logic.Path, op logic.Operator) error {
	return l.apply(func(root logic.Expr) (logic.Expr, error) {
		return logic.SetOperator(root, path, op)
	})
}
