package stage

import (
	"time"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

type Archetype interface {
	ID() uint32
	Table() table.Table
	Mask() mask.Mask
}

type Query interface {
	QueryNode
	And(items ...any) QueryNode
	Or(items ...any) QueryNode
	Not(items ...any) QueryNode
}

type QueryNode interface {
	Evaluate(archetype Archetype, scene *Scene) bool
}

// Bridge connects an animation or physics system to a scene. Step runs once
// per tick before world transforms are recomputed; GarbageCollect runs after
// the scene reclaimed nodes and returns how many entries the bridge dropped.
type Bridge interface {
	Step(scene *Scene, dt time.Duration) error
	GarbageCollect(scene *Scene) int
}

// Backend consumes passes in submission order.
type Backend interface {
	Submit(pass Pass) error
}

// TemplateLoader reads a node hierarchy from path, registering the models and
// materials it needs in res.
type TemplateLoader interface {
	LoadTemplate(path string, res *Resources) (*Template, error)
}

type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyW
	KeyA
	KeyS
	KeyD
	KeyT
)

// InputState is the input snapshot polled at the start of a tick.
type InputState struct {
	Quit        bool
	Keys        map[Key]bool
	MouseX      float32
	MouseY      float32
	MouseDeltaX float32
	MouseDeltaY float32
	Width       int
	Height      int
}

func (in InputState) Down(k Key) bool {
	return in.Keys[k]
}

type Window interface {
	PollEvents() InputState
	IsOpen() bool
	Present() error
}

// Clock supplies the frame time.
type Clock interface {
	Now() time.Time
}
