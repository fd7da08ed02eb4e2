package stage

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// TestArchetypeReuse tests that nodes with the same component set share an
// archetype regardless of component order
func TestArchetypeReuse(t *testing.T) {
	tests := []struct {
		name                string
		first               []ComponentValue
		second              []ComponentValue
		expectSameArchetype bool
	}{
		{
			name:                "Identical components",
			first:               []ComponentValue{With(posComp, Position{}), With(velComp, Velocity{})},
			second:              []ComponentValue{With(posComp, Position{}), With(velComp, Velocity{})},
			expectSameArchetype: true,
		},
		{
			name:                "Different order",
			first:               []ComponentValue{With(posComp, Position{}), With(velComp, Velocity{})},
			second:              []ComponentValue{With(velComp, Velocity{}), With(posComp, Position{})},
			expectSameArchetype: true,
		},
		{
			name:                "Duplicate component",
			first:               []ComponentValue{With(posComp, Position{})},
			second:              []ComponentValue{With(posComp, Position{}), With(posComp, Position{X: 1})},
			expectSameArchetype: true,
		},
		{
			name:                "Different components",
			first:               []ComponentValue{With(posComp, Position{})},
			second:              []ComponentValue{With(velComp, Velocity{})},
			expectSameArchetype: false,
		},
		{
			name:                "Superset components",
			first:               []ComponentValue{With(posComp, Position{})},
			second:              []ComponentValue{With(posComp, Position{}), With(velComp, Velocity{}), With(healthComp, Health{})},
			expectSameArchetype: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := Factory.NewScene(nil)
			a := createNodes(t, scene, 1, tt.first...)[0]
			b := createNodes(t, scene, 1, tt.second...)[0]

			archA, okA := scene.sto.archetypeOf(&scene.sto.slots[a.Index])
			archB, okB := scene.sto.archetypeOf(&scene.sto.slots[b.Index])
			if !okA || !okB {
				t.Fatalf("Archetype lookup failed: %v %v", okA, okB)
			}
			if same := archA.ID() == archB.ID(); same != tt.expectSameArchetype {
				t.Errorf("Archetypes same: %v, expected: %v", same, tt.expectSameArchetype)
			}
		})
	}
}

// TestDestroyAndCollect tests that destroyed nodes stay resolvable until
// collection, that collection reports how many were reclaimed and that
// survivors keep their component data
func TestDestroyAndCollect(t *testing.T) {
	tests := []struct {
		name    string
		destroy []int
	}{
		{name: "Prefix", destroy: []int{0, 1, 2}},
		{name: "Scattered", destroy: []int{1, 4, 6}},
		{name: "Suffix", destroy: []int{5, 6, 7}},
		{name: "Single", destroy: []int{3}},
		{name: "All", destroy: []int{0, 1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := Factory.NewScene(nil)
			refs := make([]NodeRef, 8)
			for i := range refs {
				f := float64(i)
				values := []ComponentValue{With(posComp, Position{X: f, Y: -f})}
				// Odd nodes live in a second archetype.
				if i%2 == 1 {
					values = append(values, With(velComp, Velocity{X: 10 * f}))
				}
				ref, err := scene.CreateNode(TranslationTransform(mgl32.Vec3{float32(i), 2 * float32(i), 0}), values...)
				if err != nil {
					t.Fatalf("CreateNode %d failed: %v", i, err)
				}
				refs[i] = ref
			}

			destroyed := make(map[int]bool, len(tt.destroy))
			for _, i := range tt.destroy {
				scene.DestroyNode(refs[i])
				destroyed[i] = true
			}
			// Destroying twice is a no-op.
			scene.DestroyNode(refs[tt.destroy[0]])

			live := len(refs) - len(tt.destroy)
			if got := scene.NodeCount(); got != live {
				t.Errorf("NodeCount before collection = %d, expected %d", got, live)
			}
			if got := scene.PendingCount(); got != len(tt.destroy) {
				t.Errorf("PendingCount = %d, expected %d", got, len(tt.destroy))
			}
			if n := mustNode(t, scene, refs[tt.destroy[0]]); !n.Pending() {
				t.Error("Destroyed node should report pending before collection")
			}

			generation := scene.Generation()
			if got := scene.GarbageCollect(); got != len(tt.destroy) {
				t.Errorf("GarbageCollect = %d, expected %d", got, len(tt.destroy))
			}
			if scene.Generation() != generation+1 {
				t.Errorf("Generation = %d, expected %d", scene.Generation(), generation+1)
			}
			if got := scene.GarbageCollect(); got != 0 {
				t.Errorf("Second GarbageCollect = %d, expected 0", got)
			}
			if scene.Generation() != generation+1 {
				t.Error("Empty collection should not advance the generation")
			}

			for i, ref := range refs {
				if destroyed[i] {
					if _, err := scene.GetNode(ref); !errors.As(err, &StaleReferenceError{}) {
						t.Errorf("Node %d: expected StaleReferenceError, got %v", i, err)
					}
					continue
				}
				n := mustNode(t, scene, ref)
				f := float64(i)
				if pos := posComp.GetFromNode(n); pos == nil || *pos != (Position{X: f, Y: -f}) {
					t.Errorf("Node %d position = %v, expected {%v %v}", i, pos, f, -f)
				}
				vel := velComp.GetFromNode(n)
				if i%2 == 1 && (vel == nil || vel.X != 10*f) {
					t.Errorf("Node %d velocity = %v, expected %v", i, vel, 10*f)
				}
				if i%2 == 0 && vel != nil {
					t.Errorf("Node %d gained a velocity", i)
				}
				want := mgl32.Vec3{float32(i), 2 * float32(i), 0}
				if got := n.Transform().Pos; got != want {
					t.Errorf("Node %d transform = %v, expected %v", i, got, want)
				}
			}
			if got := len(scene.Nodes()); got != live {
				t.Errorf("Nodes() = %d entries, expected %d", got, live)
			}
		})
	}
}

// TestSlotReuseBumpsGeneration tests that a reused slot never resolves an
// old reference
func TestSlotReuseBumpsGeneration(t *testing.T) {
	scene := Factory.NewScene(nil)
	old := createNodes(t, scene, 1)[0]
	scene.DestroyNode(old)
	scene.GarbageCollect()

	fresh := createNodes(t, scene, 1)[0]
	if fresh.Index != old.Index {
		t.Fatalf("Expected slot %d to be reused, got %d", old.Index, fresh.Index)
	}
	if fresh.Generation == old.Generation {
		t.Errorf("Reused slot kept generation %d", fresh.Generation)
	}
	if scene.IsValid(old) {
		t.Error("Old reference resolves after slot reuse")
	}
	if !scene.IsValid(fresh) {
		t.Error("New reference does not resolve")
	}
	if (NodeRef{}).IsValid() || scene.IsValid(NodeRef{}) {
		t.Error("Zero reference must never resolve")
	}
}

// TestCreationOrder tests that nodes are listed in creation order across
// collections
func TestCreationOrder(t *testing.T) {
	scene := Factory.NewScene(nil)
	refs := createNodes(t, scene, 4)
	scene.DestroyNode(refs[1])
	scene.GarbageCollect()
	extra := createNodes(t, scene, 1)[0]

	expected := []NodeRef{refs[0], refs[2], refs[3], extra}
	got := scene.Nodes()
	if len(got) != len(expected) {
		t.Fatalf("Nodes() = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Nodes()[%d] = %v, expected %v", i, got[i], expected[i])
		}
	}
}

// TestLockDefersDestroy tests that destroy requests made while locked are
// applied on unlock and that collection refuses to run while locked
func TestLockDefersDestroy(t *testing.T) {
	scene := Factory.NewScene(nil)
	refs := createNodes(t, scene, 3)

	scene.AddLock(LockUser)
	scene.DestroyNode(refs[0])
	if scene.PendingCount() != 0 {
		t.Error("Destroy while locked should be deferred")
	}
	if _, err := scene.Collect(); !errors.As(err, &LockedSceneError{}) {
		t.Errorf("Expected LockedSceneError, got %v", err)
	}

	scene.AddLock(LockSubmit)
	if err := scene.RemoveLock(LockUser); err != nil {
		t.Fatalf("RemoveLock failed: %v", err)
	}
	if scene.PendingCount() != 0 {
		t.Error("Deferred destroy applied while a lock is still held")
	}
	if err := scene.RemoveLock(LockSubmit); err != nil {
		t.Fatalf("RemoveLock failed: %v", err)
	}
	if scene.PendingCount() != 1 {
		t.Errorf("PendingCount = %d after unlock, expected 1", scene.PendingCount())
	}
	n, err := scene.Collect()
	if err != nil || n != 1 {
		t.Errorf("Collect = %d, %v; expected 1, nil", n, err)
	}
}

// TestLockDefersComponentChanges tests the queued component operations
func TestLockDefersComponentChanges(t *testing.T) {
	scene := Factory.NewScene(nil)
	refs := createNodes(t, scene, 2, With(posComp, Position{X: 4}))

	scene.AddLock(LockUser)
	a := mustNode(t, scene, refs[0])
	b := mustNode(t, scene, refs[1])

	if err := a.AddComponent(velComp); !errors.As(err, &LockedSceneError{}) {
		t.Errorf("Direct AddComponent while locked: expected LockedSceneError, got %v", err)
	}
	if err := a.EnqueueAddComponent(velComp); err != nil {
		t.Fatalf("EnqueueAddComponent failed: %v", err)
	}
	// A later request for the same node replaces the earlier one.
	if err := a.EnqueueAddComponent(healthComp); err != nil {
		t.Fatalf("EnqueueAddComponent failed: %v", err)
	}
	if err := b.EnqueueAddComponent(velComp); err != nil {
		t.Fatalf("EnqueueAddComponent failed: %v", err)
	}
	// Destroying b cancels its pending change.
	scene.DestroyNode(refs[1])

	if a.Has(healthComp) {
		t.Error("Queued component applied while locked")
	}
	if err := scene.RemoveLock(LockUser); err != nil {
		t.Fatalf("RemoveLock failed: %v", err)
	}

	if !a.Has(healthComp) || a.Has(velComp) {
		t.Errorf("Node components after unlock: health=%v velocity=%v", a.Has(healthComp), a.Has(velComp))
	}
	if posComp.GetFromNode(a).X != 4 {
		t.Error("Existing component data lost after archetype move")
	}
	if !b.Pending() || b.Has(velComp) {
		t.Error("Destroyed node should be pending without the cancelled component")
	}
}
