package stage

import "github.com/TheBitDrifter/table"

// AccessibleComponent extends a base Component with table-based accessibility
// It provides methods to retrieve components using different access patterns
type AccessibleComponent[T any] struct {
	Component
	table.Accessor[T] // concrete.
}

// GetFromCursor retrieves a component value for the node at the cursor position
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.GetFromNode(cursor.Node())
}

// GetFromCursorSafe safely retrieves a component value, checking if the component exists
// Returns a boolean indicating success and the component pointer if found
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	v := c.GetFromCursor(cursor)
	return v != nil, v
}

// CheckCursor determines if the node at the cursor position carries the component
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.CheckNode(cursor.Node())
}

// GetFromNode retrieves a component value for the specified node.
// It returns nil when the node is stale or lacks the component.
func (c AccessibleComponent[T]) GetFromNode(n Node) *T {
	entry, ok := n.entry()
	if !ok {
		return nil
	}
	tbl := entry.Table()
	if !c.Accessor.Check(tbl) {
		return nil
	}
	return c.Get(entry.Index(), tbl)
}

func (c AccessibleComponent[T]) CheckNode(n Node) bool {
	entry, ok := n.entry()
	if !ok {
		return false
	}
	return c.Accessor.Check(entry.Table())
}
