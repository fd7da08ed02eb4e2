package stage

import (
	"iter"
)

// Cursor walks the nodes matching a query in creation order. Nodes marked for
// destruction are skipped. The scene holds the LockCursor bit while a walk is
// in progress, so destroy and component requests made during it are deferred.
type Cursor struct {
	query QueryNode
	scene *Scene

	position    int
	current     NodeRef
	initialized bool
	matched     map[archetypeID]bool
	snapshot    []uint32
}

func newCursor(query QueryNode, scene *Scene) *Cursor {
	return &Cursor{
		query: query,
		scene: scene,
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.scene.AddLock(LockCursor)
	c.matched = make(map[archetypeID]bool, c.scene.sto.archetypes.len())
	for _, arch := range c.scene.sto.archetypes.asSlice {
		c.matched[arch.id] = c.query.Evaluate(arch, c.scene)
	}
	c.snapshot = append(c.snapshot[:0], c.scene.sto.order...)
	c.position = 0
	c.initialized = true
}

func (c *Cursor) matches(idx uint32) bool {
	sl := &c.scene.sto.slots[idx]
	if !sl.alive || sl.pending {
		return false
	}
	arch, ok := c.scene.sto.archetypeOf(sl)
	return ok && c.matched[arch.id]
}

// Next advances to the next matching node. It returns false and releases the
// scene when the walk is over.
func (c *Cursor) Next() bool {
	c.initialize()
	for c.position < len(c.snapshot) {
		idx := c.snapshot[c.position]
		c.position++
		if c.matches(idx) {
			c.current = c.scene.sto.refOf(idx)
			return true
		}
	}
	c.Reset()
	return false
}

func (c *Cursor) Node() Node {
	return Node{ref: c.current, sto: c.scene.sto}
}

func (c *Cursor) Ref() NodeRef {
	return c.current
}

// Nodes yields every matching node with its position in the walk.
func (c *Cursor) Nodes() iter.Seq2[int, Node] {
	return func(yield func(int, Node) bool) {
		i := 0
		for c.Next() {
			if !yield(i, c.Node()) {
				c.Reset()
				return
			}
			i++
		}
	}
}

// Reset ends the walk and releases the scene lock.
func (c *Cursor) Reset() {
	if !c.initialized {
		return
	}
	c.position = 0
	c.current = NodeRef{}
	c.matched = nil
	c.snapshot = c.snapshot[:0]
	c.initialized = false
	if err := c.scene.RemoveLock(LockCursor); err != nil {
		Config.Logger().Error("failed to apply deferred node operations", "err", err)
	}
}

// TotalMatched counts the matching nodes without moving the cursor.
func (c *Cursor) TotalMatched() int {
	walking := c.initialized
	c.initialize()
	total := 0
	for _, idx := range c.snapshot {
		if c.matches(idx) {
			total++
		}
	}
	if !walking {
		c.Reset()
	}
	return total
}
