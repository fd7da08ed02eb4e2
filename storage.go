package stage

import (
	"fmt"
	"slices"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
	iter_util "github.com/TheBitDrifter/util/iter"
)

type slot struct {
	// id names the node row in the shared entry index. Row positions move
	// when tables swap or transfer rows, so the entry is resolved on use.
	id         table.EntryID
	generation uint32
	seq        uint64
	alive      bool
	pending    bool

	// held is the object component as it was when its resource references
	// were acquired.
	held  Object
	holds bool
}

// store keeps node slots and the archetype tables holding their components.
// Slots are reused after garbage collection with a bumped generation.
type store struct {
	locks      mask.Mask
	schema     table.Schema
	entryIndex table.EntryIndex
	archetypes *archetypes
	opQueue    opQueue
	res        *Resources

	slots   []slot
	free    []uint32
	order   []uint32
	pending []uint32
	nextSeq uint64

	// generation counts garbage collection passes that reclaimed slots.
	generation uint64
}

func newStore(res *Resources) *store {
	return &store{
		schema:     table.Factory.NewSchema(),
		entryIndex: table.Factory.NewEntryIndex(),
		archetypes: newArchetypes(),
		opQueue:    newOpQueue(),
		res:        res,
	}
}

func (s *store) rowIndexFor(c Component) uint32 {
	s.schema.Register(c)
	return s.schema.RowIndexFor(c)
}

func (s *store) maskFor(components []Component) (mask.Mask, []Component) {
	var m mask.Mask
	unique := make([]Component, 0, len(components))
	seen := make(map[uint32]struct{}, len(components))
	for _, c := range components {
		bit := s.rowIndexFor(c)
		if _, dup := seen[bit]; dup {
			continue
		}
		seen[bit] = struct{}{}
		m.Mark(bit)
		unique = append(unique, c)
	}
	return m, unique
}

// lookup resolves ref to its slot. Pending slots resolve until they are
// reclaimed.
func (s *store) lookup(ref NodeRef) (*slot, bool) {
	if ref.Generation == 0 || int(ref.Index) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[ref.Index]
	if !sl.alive || sl.generation != ref.Generation {
		return nil, false
	}
	return sl, true
}

// entryOf resolves the current table and row of sl.
func (s *store) entryOf(sl *slot) (table.Entry, error) {
	if sl.id == 0 {
		return nil, fmt.Errorf("slot has no entry")
	}
	return s.entryIndex.Entry(int(sl.id) - 1)
}

func (s *store) refOf(idx uint32) NodeRef {
	return NodeRef{Index: idx, Generation: s.slots[idx].generation}
}

// create allocates a slot with one row in the archetype of components.
// The transform component is always part of the set.
func (s *store) create(components []Component) (NodeRef, error) {
	all := make([]Component, 0, len(components)+1)
	all = append(all, TransformComponent)
	all = append(all, components...)
	m, unique := s.maskFor(all)

	arch, err := s.archetypes.getOrCreate(s.schema, s.entryIndex, m, unique)
	if err != nil {
		return NodeRef{}, fmt.Errorf("failed to get/create archetype: %w", err)
	}
	entries, err := arch.table.NewEntries(1)
	if err != nil {
		return NodeRef{}, fmt.Errorf("failed to create entry: %w", err)
	}

	idx := s.allocSlot()
	sl := &s.slots[idx]
	sl.id = entries[0].ID()
	sl.alive = true
	sl.seq = s.nextSeq
	s.nextSeq++
	s.order = append(s.order, idx)
	return s.refOf(idx), nil
}

func (s *store) allocSlot() uint32 {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		return idx
	}
	s.slots = append(s.slots, slot{generation: 1})
	return uint32(len(s.slots) - 1)
}

// markPending flags the slot for reclamation by the next collection pass.
func (s *store) markPending(ref NodeRef) bool {
	sl, ok := s.lookup(ref)
	if !ok || sl.pending {
		return false
	}
	sl.pending = true
	s.pending = append(s.pending, ref.Index)
	return true
}

// reclaim deletes the component rows of the given slots and frees them.
// It returns the number of slots reclaimed.
func (s *store) reclaim(indices []uint32) (int, error) {
	tableGroups := make(map[table.Table][]int)
	var tables []table.Table
	reclaimed := make([]uint32, 0, len(indices))
	for _, idx := range indices {
		sl := &s.slots[idx]
		if !sl.alive {
			continue
		}
		entry, err := s.entryOf(sl)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve node %d: %w", idx, err)
		}
		tbl := entry.Table()
		if _, seen := tableGroups[tbl]; !seen {
			tables = append(tables, tbl)
		}
		tableGroups[tbl] = append(tableGroups[tbl], entry.Index())
		reclaimed = append(reclaimed, idx)
	}
	for _, tbl := range tables {
		if _, err := tbl.DeleteEntries(tableGroups[tbl]...); err != nil {
			return 0, fmt.Errorf("failed to delete entries: %w", err)
		}
	}

	for _, idx := range reclaimed {
		sl := &s.slots[idx]
		if sl.holds {
			s.res.releaseObject(sl.held)
		}
		gen := sl.generation + 1
		if gen == 0 {
			gen = 1
		}
		*sl = slot{generation: gen}
		s.free = append(s.free, idx)
	}
	if len(reclaimed) > 0 {
		s.order = slices.DeleteFunc(s.order, func(idx uint32) bool {
			return !s.slots[idx].alive
		})
		s.pending = slices.DeleteFunc(s.pending, func(idx uint32) bool {
			return !s.slots[idx].alive
		})
	}
	return len(reclaimed), nil
}

func (s *store) archetypeOf(sl *slot) (archetype, bool) {
	entry, err := s.entryOf(sl)
	if err != nil {
		return archetype{}, false
	}
	m := entry.Table().(mask.Maskable).Mask()
	id, ok := s.archetypes.idsGroupedByMask[m]
	if !ok {
		return archetype{}, false
	}
	return s.archetypes.byID(id), true
}

func (s *store) addComponent(ref NodeRef, c Component) error {
	if s.locked() {
		return LockedSceneError{}
	}
	sl, ok := s.lookup(ref)
	if !ok {
		return StaleReferenceError{Ref: ref}
	}
	entry, err := s.entryOf(sl)
	if err != nil {
		return err
	}
	originTable := entry.Table()
	if originTable.Contains(c) {
		return ComponentExistsError{Component: c}
	}
	destMask := originTable.(mask.Maskable).Mask()
	destMask.Mark(s.rowIndexFor(c))

	comps := s.componentsOf(originTable)
	comps = append(comps, c)
	dest, err := s.archetypes.getOrCreate(s.schema, s.entryIndex, destMask, comps)
	if err != nil {
		return fmt.Errorf("failed to get/create archetype: %w", err)
	}
	return s.transfer(sl, entry, dest.table)
}

func (s *store) removeComponent(ref NodeRef, c Component) error {
	if s.locked() {
		return LockedSceneError{}
	}
	sl, ok := s.lookup(ref)
	if !ok {
		return StaleReferenceError{Ref: ref}
	}
	entry, err := s.entryOf(sl)
	if err != nil {
		return err
	}
	originTable := entry.Table()
	if !originTable.Contains(c) {
		return ComponentNotFoundError{Component: c}
	}
	removed := s.rowIndexFor(c)
	if removed == s.rowIndexFor(TransformComponent) {
		return fmt.Errorf("transform component cannot be removed")
	}
	destMask := originTable.(mask.Maskable).Mask()
	destMask.Unmark(removed)

	comps := slices.DeleteFunc(s.componentsOf(originTable), func(comp Component) bool {
		return s.rowIndexFor(comp) == removed
	})
	dest, err := s.archetypes.getOrCreate(s.schema, s.entryIndex, destMask, comps)
	if err != nil {
		return fmt.Errorf("failed to get/create archetype: %w", err)
	}
	if removed == s.rowIndexFor(ObjectComponent) && sl.holds {
		s.res.releaseObject(sl.held)
		sl.held, sl.holds = Object{}, false
	}
	return s.transfer(sl, entry, dest.table)
}

// transfer moves the row of sl into dest and points sl at its new entry. The
// moved row may be given a different entry id.
func (s *store) transfer(sl *slot, entry table.Entry, dest table.Table) error {
	row := dest.Length()
	if err := entry.Table().TransferEntries(dest, entry.Index()); err != nil {
		return fmt.Errorf("failed to transfer node: %w", err)
	}
	moved, err := dest.Entry(row)
	if err != nil {
		return fmt.Errorf("failed to resolve transferred node: %w", err)
	}
	sl.id = moved.ID()
	return nil
}

func (s *store) componentsOf(tbl table.Table) []Component {
	elements := iter_util.Collect(tbl.ElementTypes())
	comps := make([]Component, len(elements))
	for i, et := range elements {
		comps[i] = et
	}
	return comps
}

// syncObject brings the resource references held by the slot in line with
// its current object component.
func (s *store) syncObject(ref NodeRef) error {
	sl, ok := s.lookup(ref)
	if !ok {
		return StaleReferenceError{Ref: ref}
	}
	entry, err := s.entryOf(sl)
	if err != nil {
		return err
	}
	var current Object
	has := false
	if ObjectComponent.Check(entry.Table()) {
		current = *ObjectComponent.Get(entry.Index(), entry.Table())
		has = true
	}
	if has == sl.holds && sameObject(current, sl.held) {
		return nil
	}
	if has {
		if err := s.res.acquireObject(current); err != nil {
			return err
		}
	}
	if sl.holds {
		s.res.releaseObject(sl.held)
	}
	sl.held = Object{Model: current.Model, Materials: slices.Clone(current.Materials)}
	sl.holds = has
	return nil
}

// resyncObjects picks up object components written without SetComponent.
// Live nodes are synced before any pending node is reclaimed so a resource
// moved between nodes is never released in between. A node naming a missing
// resource keeps its previous references.
func (s *store) resyncObjects() {
	for _, idx := range s.order {
		if s.slots[idx].pending {
			continue
		}
		ref := s.refOf(idx)
		if err := s.syncObject(ref); err != nil {
			Config.Logger().Warn("object resync failed", "node", ref, "err", err)
		}
	}
}

func sameObject(a, b Object) bool {
	return a.Model == b.Model && slices.Equal(a.Materials, b.Materials)
}

func (s *store) locked() bool {
	var none mask.Mask
	return s.locks != none
}

func (s *store) addLock(bit uint32) {
	s.locks.Mark(bit)
}

func (s *store) removeLock(bit uint32) error {
	s.locks.Unmark(bit)
	if s.locked() {
		return nil
	}
	return s.processOperationQueue()
}
