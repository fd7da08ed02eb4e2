package stage

import (
	"fmt"
	"slices"

	"github.com/TheBitDrifter/table"
)

// NodeRef identifies a node slot and the generation it was issued for. The
// zero NodeRef never resolves.
type NodeRef struct {
	Index      uint32
	Generation uint32
}

func (r NodeRef) IsValid() bool {
	return r.Generation != 0
}

func (r NodeRef) String() string {
	return fmt.Sprintf("node(%d:%d)", r.Index, r.Generation)
}

// Node is a view over one live node of a scene. It is obtained from
// Scene.GetNode or a Cursor and stops resolving once the node is reclaimed.
type Node struct {
	ref NodeRef
	sto *store
}

func (n Node) entry() (table.Entry, bool) {
	if n.sto == nil {
		return nil, false
	}
	sl, ok := n.sto.lookup(n.ref)
	if !ok {
		return nil, false
	}
	entry, err := n.sto.entryOf(sl)
	if err != nil {
		return nil, false
	}
	return entry, true
}

func (n Node) Ref() NodeRef {
	return n.ref
}

// Valid reports whether the node has not been reclaimed.
func (n Node) Valid() bool {
	_, ok := n.entry()
	return ok
}

// Pending reports whether the node is marked for destruction.
func (n Node) Pending() bool {
	if n.sto == nil {
		return false
	}
	sl, ok := n.sto.lookup(n.ref)
	return ok && sl.pending
}

func (n Node) Transform() *Transform {
	return TransformComponent.GetFromNode(n)
}

// Object returns a copy of the node's object component. Changes go through
// SetComponent so the scene keeps its resource references current.
func (n Node) Object() (Object, bool) {
	o := ObjectComponent.GetFromNode(n)
	if o == nil {
		return Object{}, false
	}
	return Object{Model: o.Model, Materials: slices.Clone(o.Materials)}, true
}

func (n Node) Light() (*Light, bool) {
	l := LightComponent.GetFromNode(n)
	return l, l != nil
}

func (n Node) Camera() (*Camera, bool) {
	c := CameraComponent.GetFromNode(n)
	return c, c != nil
}

func (n Node) Instance() (*Instance, bool) {
	i := InstanceComponent.GetFromNode(n)
	return i, i != nil
}

// Has reports whether the node carries component c.
func (n Node) Has(c Component) bool {
	e, ok := n.entry()
	return ok && e.Table().Contains(c)
}

// Components lists the components the node carries.
func (n Node) Components() []Component {
	e, ok := n.entry()
	if !ok {
		return nil
	}
	return n.sto.componentsOf(e.Table())
}

// AddComponent attaches c with its zero value. The node moves to the
// archetype of its new component set; existing component data is kept.
func (n Node) AddComponent(c Component) error {
	return n.sto.addComponent(n.ref, c)
}

// RemoveComponent detaches c. The transform cannot be removed.
func (n Node) RemoveComponent(c Component) error {
	return n.sto.removeComponent(n.ref, c)
}

// EnqueueAddComponent adds c now, or when the scene unlocks.
func (n Node) EnqueueAddComponent(c Component) error {
	if !n.sto.locked() {
		return n.AddComponent(c)
	}
	if !n.Valid() {
		return StaleReferenceError{Ref: n.ref}
	}
	n.sto.opQueue.enqueueComponentOp(opAddComponent, n.ref, c)
	return nil
}

func (n Node) EnqueueRemoveComponent(c Component) error {
	if !n.sto.locked() {
		return n.RemoveComponent(c)
	}
	if !n.Valid() {
		return StaleReferenceError{Ref: n.ref}
	}
	n.sto.opQueue.enqueueComponentOp(opRemoveComponent, n.ref, c)
	return nil
}

// SetParent makes the node's transform relative to parent. A zero parent
// detaches the node.
func (n Node) SetParent(parent NodeRef) error {
	t := n.Transform()
	if t == nil {
		return StaleReferenceError{Ref: n.ref}
	}
	if !parent.IsValid() {
		t.Parent = NodeRef{}
		return nil
	}
	if _, ok := n.sto.lookup(parent); !ok {
		return StaleReferenceError{Ref: parent}
	}
	for p := parent; p.IsValid(); {
		if p == n.ref {
			return NodeRelationError{Child: n.ref, Parent: parent}
		}
		pn := Node{ref: p, sto: n.sto}
		pt := pn.Transform()
		if pt == nil {
			break
		}
		p = pt.Parent
	}
	t.Parent = parent
	return nil
}

// SetComponent stores v in component c of the node, adding the component if
// it is missing.
func SetComponent[T any](n Node, c AccessibleComponent[T], v T) error {
	if !c.CheckNode(n) {
		if err := n.AddComponent(c); err != nil {
			return err
		}
	}
	p := c.GetFromNode(n)
	if p == nil {
		return StaleReferenceError{Ref: n.ref}
	}
	*p = v
	return n.sto.syncObject(n.ref)
}
