package stage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type Position struct {
	X float64
	Y float64
}

type Velocity struct {
	X float64
	Y float64
}

type Health struct {
	Value int
}

var (
	posComp    = FactoryNewComponent[Position]()
	velComp    = FactoryNewComponent[Velocity]()
	healthComp = FactoryNewComponent[Health]()
)

func createNodes(t *testing.T, scene *Scene, count int, values ...ComponentValue) []NodeRef {
	t.Helper()
	refs := make([]NodeRef, count)
	for i := range refs {
		ref, err := scene.CreateNode(IdentityTransform(), values...)
		if err != nil {
			t.Fatalf("Failed to create node %d: %v", i, err)
		}
		refs[i] = ref
	}
	return refs
}

func mustNode(t *testing.T, scene *Scene, ref NodeRef) Node {
	t.Helper()
	n, err := scene.GetNode(ref)
	if err != nil {
		t.Fatalf("Failed to resolve %v: %v", ref, err)
	}
	return n
}

// near compares with an absolute tolerance, so values that should be zero
// accept float32 rounding noise.
func near(a, b float32) bool {
	return mgl32.Abs(a-b) <= 1e-4
}

func vecNear(a, b mgl32.Vec3) bool {
	return a.ApproxFuncEqual(b, near)
}

func matNear(a, b mgl32.Mat4) bool {
	return a.ApproxFuncEqual(b, near)
}
