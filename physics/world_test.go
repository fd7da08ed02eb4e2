package physics

import (
	"testing"
	"time"

	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldStepFallsAndBounces(t *testing.T) {
	scene := stage.Factory.NewScene(nil)
	world := NewWorld()
	scene.AddBridge(world)

	ref, err := scene.CreateNode(stage.TranslationTransform(mgl32.Vec3{0, 10, 0}))
	require.NoError(t, err)
	world.AddBody(ref, mgl32.Vec3{}, Shape{Radius: 0.5, Restitution: 0.5})

	require.NoError(t, scene.Update(500*time.Millisecond))
	n, err := scene.GetNode(ref)
	require.NoError(t, err)
	assert.Less(t, n.Transform().Pos[1], float32(10))
	assert.Equal(t, uint64(60), world.Steps())

	for i := 0; i < 20; i++ {
		require.NoError(t, scene.Update(100*time.Millisecond))
	}
	assert.GreaterOrEqual(t, n.Transform().Pos[1], float32(0.5), "body rests on the floor")
}

func TestWorldCarriesRemainder(t *testing.T) {
	scene := stage.Factory.NewScene(nil)
	world := NewWorld()
	world.Substep = 10 * time.Millisecond

	require.NoError(t, world.Step(scene, 15*time.Millisecond))
	assert.Equal(t, uint64(1), world.Steps())
	require.NoError(t, world.Step(scene, 5*time.Millisecond))
	assert.Equal(t, uint64(2), world.Steps())
}

func TestWorldGarbageCollectReconciles(t *testing.T) {
	scene := stage.Factory.NewScene(nil)
	world := NewWorld()
	scene.AddBridge(world)

	var refs []stage.NodeRef
	for i := 0; i < 6; i++ {
		ref, err := scene.CreateNode(stage.TranslationTransform(mgl32.Vec3{float32(i), 5, 0}))
		require.NoError(t, err)
		world.AddBody(ref, mgl32.Vec3{}, Shape{Radius: 1})
		refs = append(refs, ref)
	}
	scene.DestroyNode(refs[1])
	scene.DestroyNode(refs[4])

	assert.Equal(t, 0, world.GarbageCollect(scene), "pending nodes keep their bodies")

	report := scene.GarbageCollectAll()
	assert.Equal(t, 2, report.Nodes)
	assert.Equal(t, []int{2}, report.Bridges)
	assert.Equal(t, 4, world.Len())

	_, ok := world.Velocity(refs[1])
	assert.False(t, ok)
	_, ok = world.Velocity(refs[0])
	assert.True(t, ok)
}
