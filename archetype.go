package stage

import (
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

type archetypeID uint32

// archetype holds the component rows of every node sharing one component set.
type archetype struct {
	id    archetypeID
	table table.Table
	mask  mask.Mask
}

func newArchetype(schema table.Schema, entryIndex table.EntryIndex, id archetypeID, m mask.Mask, components ...Component) (archetype, error) {
	elementTypes := make([]table.ElementType, len(components))
	for i, comp := range components {
		elementTypes[i] = comp
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(entryIndex).
		WithElementTypes(elementTypes...).
		WithEvents(Config.tableEvents).
		Build()
	if err != nil {
		return archetype{}, err
	}
	return archetype{
		table: tbl,
		id:    id,
		mask:  m,
	}, nil
}

func (a archetype) ID() uint32 {
	return uint32(a.id)
}

func (a archetype) Table() table.Table {
	return a.table
}

func (a archetype) Mask() mask.Mask {
	return a.mask
}

type archetypes struct {
	nextID           archetypeID
	asSlice          []archetype
	idsGroupedByMask map[mask.Mask]archetypeID
}

func newArchetypes() *archetypes {
	return &archetypes{
		nextID:           1,
		idsGroupedByMask: make(map[mask.Mask]archetypeID),
	}
}

// getOrCreate returns the archetype for m, building its table from components
// on first use.
func (a *archetypes) getOrCreate(schema table.Schema, entryIndex table.EntryIndex, m mask.Mask, components []Component) (archetype, error) {
	if id, found := a.idsGroupedByMask[m]; found {
		return a.asSlice[id-1], nil
	}
	created, err := newArchetype(schema, entryIndex, a.nextID, m, components...)
	if err != nil {
		return archetype{}, err
	}
	a.asSlice = append(a.asSlice, created)
	a.idsGroupedByMask[m] = a.nextID
	a.nextID++
	return created, nil
}

func (a *archetypes) byID(id archetypeID) archetype {
	return a.asSlice[id-1]
}

func (a *archetypes) len() int {
	return len(a.asSlice)
}
