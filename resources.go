package stage

import "fmt"

// Handle is a generation-checked reference to an entry of a Table. The zero
// Handle never resolves.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// IsValid reports whether h was ever issued. It does not check that the entry
// is still live; use Table.Get for that.
func (h Handle[T]) IsValid() bool {
	return h.generation != 0
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("handle(%d:%d)", h.index, h.generation)
}

type (
	ModelRef    = Handle[Model]
	MaterialRef = Handle[Material]
	TextureRef  = Handle[Texture]
	ProgramRef  = Handle[Program]
)

// InvalidTextureRef clears a material texture slot.
var InvalidTextureRef = TextureRef{}

type tableEntry[T any] struct {
	name       string
	value      T
	generation uint32
	live       bool
	exclusive  bool
	refs       int
}

// Table owns named resources of one kind. Names are interned: adding under an
// existing name returns the existing handle and keeps the stored value.
// Entries leave the table only through Remove, or through the last Release of
// an entry added with AddExclusive.
type Table[T any] struct {
	kind    string
	entries []tableEntry[T]
	byName  map[string]uint32
	free    []uint32
}

func newTable[T any](kind string) *Table[T] {
	return &Table[T]{
		kind:   kind,
		byName: make(map[string]uint32),
	}
}

func (t *Table[T]) Add(name string, value T) Handle[T] {
	return t.add(name, value, false)
}

// AddExclusive adds a resource owned by the nodes referencing it: it is removed
// when garbage collection releases its last node reference.
func (t *Table[T]) AddExclusive(name string, value T) Handle[T] {
	return t.add(name, value, true)
}

func (t *Table[T]) add(name string, value T, exclusive bool) Handle[T] {
	if idx, ok := t.byName[name]; ok {
		return Handle[T]{index: idx, generation: t.entries[idx].generation}
	}
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.entries = append(t.entries, tableEntry[T]{generation: 1})
		idx = uint32(len(t.entries) - 1)
	}
	e := &t.entries[idx]
	e.name = name
	e.value = value
	e.live = true
	e.exclusive = exclusive
	e.refs = 0
	t.byName[name] = idx
	return Handle[T]{index: idx, generation: e.generation}
}

func (t *Table[T]) entry(h Handle[T]) (*tableEntry[T], error) {
	if h.generation == 0 || int(h.index) >= len(t.entries) {
		return nil, ResourceNotFoundError{Kind: t.kind}
	}
	e := &t.entries[h.index]
	if !e.live || e.generation != h.generation {
		return nil, ResourceNotFoundError{Kind: t.kind}
	}
	return e, nil
}

// Get returns the resource behind h. The pointer stays valid until the next
// Add to this table.
func (t *Table[T]) Get(h Handle[T]) (*T, error) {
	e, err := t.entry(h)
	if err != nil {
		return nil, err
	}
	return &e.value, nil
}

func (t *Table[T]) Lookup(name string) (Handle[T], bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Handle[T]{}, false
	}
	return Handle[T]{index: idx, generation: t.entries[idx].generation}, true
}

// Find is Lookup with a ResourceNotFoundError for unknown names.
func (t *Table[T]) Find(name string) (Handle[T], error) {
	h, ok := t.Lookup(name)
	if !ok {
		return h, ResourceNotFoundError{Kind: t.kind, Name: name}
	}
	return h, nil
}

func (t *Table[T]) Name(h Handle[T]) string {
	e, err := t.entry(h)
	if err != nil {
		return ""
	}
	return e.name
}

func (t *Table[T]) Has(h Handle[T]) bool {
	_, err := t.entry(h)
	return err == nil
}

// Acquire records one more node reference to h.
func (t *Table[T]) Acquire(h Handle[T]) error {
	e, err := t.entry(h)
	if err != nil {
		return err
	}
	e.refs++
	return nil
}

// Release drops one node reference to h and reports whether the entry was
// removed as a result.
func (t *Table[T]) Release(h Handle[T]) bool {
	e, err := t.entry(h)
	if err != nil {
		return false
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && e.exclusive {
		t.drop(h.index)
		return true
	}
	return false
}

func (t *Table[T]) Refs(h Handle[T]) int {
	e, err := t.entry(h)
	if err != nil {
		return 0
	}
	return e.refs
}

// Remove deletes the entry behind h regardless of its reference count. Every
// outstanding handle to it stops resolving.
func (t *Table[T]) Remove(h Handle[T]) error {
	if _, err := t.entry(h); err != nil {
		return err
	}
	t.drop(h.index)
	return nil
}

func (t *Table[T]) drop(idx uint32) {
	e := &t.entries[idx]
	delete(t.byName, e.name)
	var zero T
	e.value = zero
	e.name = ""
	e.live = false
	e.refs = 0
	e.generation++
	if e.generation == 0 {
		e.generation = 1
	}
	t.free = append(t.free, idx)
}

func (t *Table[T]) Len() int {
	return len(t.byName)
}

// Clear removes every entry.
func (t *Table[T]) Clear() {
	for idx := range t.entries {
		if t.entries[idx].live {
			t.drop(uint32(idx))
		}
	}
}

// Resources aggregates the render resource tables shared by scenes and
// pipelines.
type Resources struct {
	Models    *Table[Model]
	Materials *Table[Material]
	Textures  *Table[Texture]
	Programs  *Table[Program]
}

func newResources() *Resources {
	return &Resources{
		Models:    newTable[Model]("model"),
		Materials: newTable[Material]("material"),
		Textures:  newTable[Texture]("texture"),
		Programs:  newTable[Program]("program"),
	}
}

func (r *Resources) acquireObject(o Object) error {
	if o.Model.IsValid() {
		if err := r.Models.Acquire(o.Model); err != nil {
			return err
		}
	}
	for i, mat := range o.Materials {
		if !mat.IsValid() {
			continue
		}
		if err := r.Materials.Acquire(mat); err != nil {
			r.releaseObject(Object{Model: o.Model, Materials: o.Materials[:i]})
			return err
		}
	}
	return nil
}

// releaseObject drops the references held by o and returns how many exclusive
// entries were removed.
func (r *Resources) releaseObject(o Object) int {
	removed := 0
	if o.Model.IsValid() && r.Models.Release(o.Model) {
		removed++
	}
	for _, mat := range o.Materials {
		if mat.IsValid() && r.Materials.Release(mat) {
			removed++
		}
	}
	return removed
}
