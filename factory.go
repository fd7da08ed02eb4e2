package stage

import "github.com/TheBitDrifter/table"

type factory struct{}

var Factory factory

// NewScene creates an empty scene drawing from res. A nil res gets a fresh
// set of tables.
func (f factory) NewScene(res *Resources) *Scene {
	return newScene(res)
}

func (f factory) NewResources() *Resources {
	return newResources()
}

func (f factory) NewQuery() Query {
	return newQuery()
}

func (f factory) NewCursor(query QueryNode, scene *Scene) *Cursor {
	return newCursor(query, scene)
}

func (f factory) NewPipeline(backend Backend) *Pipeline {
	return newPipeline(backend)
}

func (f factory) NewLoop(cfg LoopConfig) *Loop {
	return newLoop(cfg)
}

func FactoryNewComponent[T any]() AccessibleComponent[T] {
	iden := table.FactoryNewElementType[T]()
	return AccessibleComponent[T]{
		Component: iden,
		Accessor:  table.FactoryNewAccessor[T](iden),
	}
}

// FactoryNewTable creates a standalone resource table for kinds not covered
// by Resources.
func FactoryNewTable[T any](kind string) *Table[T] {
	return newTable[T](kind)
}
