package stage

import (
	"github.com/TheBitDrifter/table"
)

// Component represents a data attribute that can be attached to nodes.
// Components double as capabilities: queries select nodes by the set of
// components they carry.
type Component interface {
	table.ElementType
}

// Built-in node components. Every node carries a Transform; the others are
// optional.
var (
	TransformComponent = FactoryNewComponent[Transform]()
	ObjectComponent    = FactoryNewComponent[Object]()
	LightComponent     = FactoryNewComponent[Light]()
	CameraComponent    = FactoryNewComponent[Camera]()
	InstanceComponent  = FactoryNewComponent[Instance]()
)

// ComponentValue pairs a component with the value a new node starts with.
type ComponentValue interface {
	Component() Component
	assign(Node)
}

type componentValue[T any] struct {
	comp  AccessibleComponent[T]
	value T
}

func (v componentValue[T]) Component() Component {
	return v.comp
}

func (v componentValue[T]) assign(n Node) {
	if p := v.comp.GetFromNode(n); p != nil {
		*p = v.value
	}
}

// With attaches component c initialised to value when passed to CreateNode.
func With[T any](c AccessibleComponent[T], value T) ComponentValue {
	return componentValue[T]{comp: c, value: value}
}
