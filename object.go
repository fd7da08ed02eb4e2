package stage

// Object makes a node renderable: one model drawn with an ordered list of
// materials, one per display list of the model.
type Object struct {
	Model     ModelRef
	Materials []MaterialRef
}

// Material returns the material bound to display list i.
func (o *Object) Material(i int) (MaterialRef, bool) {
	if i < 0 || i >= len(o.Materials) {
		return MaterialRef{}, false
	}
	return o.Materials[i], true
}

// Instance marks the root of a sub-hierarchy created from a template. The
// children are owned by the instance and destroyed with it.
type Instance struct {
	Template string
	Children []NodeRef
}

type Camera struct {
	ZNear, ZFar float32
	Fov         float32
	Ortho       bool
	Size        float32
}
