package stage

import (
	"fmt"
)

type operation struct {
	typ   operationType
	refs  []NodeRef
	comps []Component
}

type operationType int

const (
	opNone operationType = iota - 1
	opDestroy
	opAddComponent
	opRemoveComponent
)

type opKey struct {
	ref NodeRef
}

// opQueue holds node mutations requested while the scene is locked.
type opQueue struct {
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[opKey]struct{}
	pendingMods    map[opKey]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[opKey]struct{}),
		pendingMods:    make(map[opKey]int),
	}
}

func (q *opQueue) empty() bool {
	return len(q.componentOps) == 0 && len(q.destroyOps) == 0
}

// processOperationQueue applies queued component changes, then queued
// destroys.
func (s *store) processOperationQueue() error {
	if s.opQueue.empty() {
		return nil
	}
	componentOps := s.opQueue.componentOps
	destroyOps := s.opQueue.destroyOps
	s.opQueue.componentOps = nil
	s.opQueue.destroyOps = nil
	clear(s.opQueue.pendingDestroy)
	clear(s.opQueue.pendingMods)

	for _, op := range componentOps {
		ref := op.refs[0]
		// Skip nodes reclaimed since the request.
		if _, ok := s.lookup(ref); !ok {
			continue
		}
		switch op.typ {
		case opAddComponent:
			if err := s.addComponent(ref, op.comps[0]); err != nil {
				return fmt.Errorf("failed to add queued component: %w", err)
			}
		case opRemoveComponent:
			if err := s.removeComponent(ref, op.comps[0]); err != nil {
				return fmt.Errorf("failed to remove queued component: %w", err)
			}
		}
	}

	for _, op := range destroyOps {
		for _, ref := range op.refs {
			s.markPending(ref)
		}
	}
	return nil
}

func (q *opQueue) enqueueDestroy(refs []NodeRef) {
	var fresh []NodeRef
	for _, ref := range refs {
		key := opKey{ref: ref}
		if _, exists := q.pendingDestroy[key]; exists {
			continue
		}
		fresh = append(fresh, ref)
		q.pendingDestroy[key] = struct{}{}

		if idx, hasMods := q.pendingMods[key]; hasMods {
			q.componentOps[idx].typ = opNone
			delete(q.pendingMods, key)
		}
	}
	if len(fresh) > 0 {
		q.destroyOps = append(q.destroyOps, operation{
			typ:  opDestroy,
			refs: fresh,
		})
	}
}

// enqueueComponentOp records a component change. A later request for the
// same node replaces the earlier one; nodes queued for destruction are
// ignored.
func (q *opQueue) enqueueComponentOp(typ operationType, ref NodeRef, comp Component) {
	key := opKey{ref: ref}
	if _, isDestroyed := q.pendingDestroy[key]; isDestroyed {
		return
	}
	if existingIdx, exists := q.pendingMods[key]; exists {
		existingOp := &q.componentOps[existingIdx]
		existingOp.comps = []Component{comp}
		existingOp.typ = typ
		return
	}
	q.pendingMods[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, operation{
		typ:   typ,
		refs:  []NodeRef{ref},
		comps: []Component{comp},
	})
}
