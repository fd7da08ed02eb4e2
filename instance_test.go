package stage

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type mapLoader map[string]*Template

func (l mapLoader) LoadTemplate(path string, _ *Resources) (*Template, error) {
	tpl, ok := l[path]
	if !ok {
		return nil, ResourceNotFoundError{Kind: "template", Name: path}
	}
	return tpl, nil
}

func lampTemplate(headModel string) *Template {
	lamp := MakePointLight(5, White, White)
	return &Template{
		Name: "lamp",
		Nodes: []TemplateNode{
			{Name: "body", Parent: -1, Transform: IdentityTransform(), Model: "cube", Materials: []string{"white"}},
			{Name: "head", Parent: 0, Transform: TranslationTransform(mgl32.Vec3{0, 1, 0}), Model: headModel, Materials: []string{"white"}},
			{Name: "bulb", Parent: 1, Transform: TranslationTransform(mgl32.Vec3{0, 0.5, 0}), Light: &lamp},
		},
	}
}

func newInstanceScene() (*Scene, *Resources, mapLoader) {
	res := Factory.NewResources()
	res.Models.Add("cube", CreateCubeModel(1, 1, 1))
	res.Materials.Add("white", CreateMaterial(ProgramRef{}))
	loader := mapLoader{
		"lamp.gltf":   lampTemplate("cube"),
		"broken.gltf": lampTemplate("missing"),
		"cycle.gltf": {Nodes: []TemplateNode{
			{Name: "a", Parent: 1},
			{Name: "b", Parent: -1},
		}},
	}
	return Factory.NewScene(res), res, loader
}

// TestCreateInstance tests the created hierarchy and its world transforms
func TestCreateInstance(t *testing.T) {
	scene, res, loader := newInstanceScene()

	root, err := scene.CreateInstance(TranslationTransform(mgl32.Vec3{10, 0, 0}), "lamp.gltf", loader, res)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if scene.NodeCount() != 4 {
		t.Errorf("NodeCount = %d, expected 4", scene.NodeCount())
	}

	inst, ok := mustNode(t, scene, root).Instance()
	if !ok {
		t.Fatal("Root does not carry an instance component")
	}
	if inst.Template != "lamp.gltf" || len(inst.Children) != 3 {
		t.Fatalf("Instance = %+v", inst)
	}
	if err := scene.Update(0); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	expected := []mgl32.Vec3{{10, 0, 0}, {10, 1, 0}, {10, 1.5, 0}}
	for i, ref := range inst.Children {
		got := mustNode(t, scene, ref).Transform().WorldPos()
		if !vecNear(got, expected[i]) {
			t.Errorf("Child %d world position = %v, expected %v", i, got, expected[i])
		}
	}
	if _, ok := mustNode(t, scene, inst.Children[2]).Light(); !ok {
		t.Error("Bulb should carry a light")
	}
	cube, _ := res.Models.Find("cube")
	if res.Models.Refs(cube) != 2 {
		t.Errorf("Cube refs = %d, expected 2", res.Models.Refs(cube))
	}
}

// TestDestroyInstanceCascades tests that destroying the root destroys every
// node of the instance
func TestDestroyInstanceCascades(t *testing.T) {
	scene, res, loader := newInstanceScene()
	keep, _ := scene.CreateNode(IdentityTransform())
	first, err := scene.CreateInstance(IdentityTransform(), "lamp.gltf", loader, res)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	second, err := scene.CreateInstance(IdentityTransform(), "lamp.gltf", loader, res)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	scene.DestroyNode(first)
	if scene.PendingCount() != 4 {
		t.Errorf("PendingCount = %d, expected 4", scene.PendingCount())
	}
	if n := scene.GarbageCollect(); n != 4 {
		t.Errorf("GarbageCollect = %d, expected 4", n)
	}
	if !scene.IsValid(keep) || !scene.IsValid(second) {
		t.Error("Unrelated nodes were reclaimed")
	}
	if scene.NodeCount() != 5 {
		t.Errorf("NodeCount = %d, expected 5", scene.NodeCount())
	}
}

// TestCreateInstanceRollback tests that failed instantiation leaves no node
// behind
func TestCreateInstanceRollback(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		expectCreated int
		expectCause   error
		emptyScene    bool
	}{
		{name: "Missing model", path: "broken.gltf", expectCreated: 2, expectCause: ResourceNotFoundError{}},
		{name: "Missing model in empty scene", path: "broken.gltf", expectCreated: 2, expectCause: ResourceNotFoundError{}, emptyScene: true},
		{name: "Missing template", path: "nope.gltf", expectCreated: 0, expectCause: ResourceNotFoundError{}},
		{name: "Forward parent", path: "cycle.gltf", expectCreated: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, res, loader := newInstanceScene()
			var before NodeRef
			if !tt.emptyScene {
				before, _ = scene.CreateNode(TranslationTransform(mgl32.Vec3{3, 0, 0}))
			}
			count := scene.NodeCount()
			generation := scene.Generation()

			ref, err := scene.CreateInstance(IdentityTransform(), tt.path, loader, res)
			var partial PartialInstantiationError
			if !errors.As(err, &partial) {
				t.Fatalf("Expected PartialInstantiationError, got %v", err)
			}
			if partial.Rollback != nil {
				t.Fatalf("Rollback failed: %v", partial.Rollback)
			}
			if partial.Created != tt.expectCreated {
				t.Errorf("Created = %d, expected %d", partial.Created, tt.expectCreated)
			}
			if tt.expectCause != nil && !errors.As(err, &ResourceNotFoundError{}) {
				t.Errorf("Cause = %v, expected a ResourceNotFoundError", partial.Err)
			}
			if ref.IsValid() {
				t.Error("Failed instantiation returned a valid reference")
			}
			if scene.NodeCount() != count || len(scene.Nodes()) != count {
				t.Errorf("NodeCount = %d after rollback, expected %d", scene.NodeCount(), count)
			}
			if !tt.emptyScene {
				if got := mustNode(t, scene, before).Transform().Pos; got != (mgl32.Vec3{3, 0, 0}) {
					t.Errorf("Surviving node moved to %v", got)
				}
			}
			if scene.Generation() != generation {
				t.Error("Rollback advanced the scene generation")
			}
			cube, _ := res.Models.Find("cube")
			if res.Models.Refs(cube) != 0 {
				t.Errorf("Cube refs = %d after rollback", res.Models.Refs(cube))
			}
		})
	}
}

// TestLoadScene tests loading a template without an instance root
func TestLoadScene(t *testing.T) {
	scene, res, loader := newInstanceScene()
	refs, err := scene.LoadScene("lamp.gltf", loader, res)
	if err != nil {
		t.Fatalf("LoadScene failed: %v", err)
	}
	if len(refs) != 3 || scene.NodeCount() != 3 {
		t.Fatalf("Got %d refs and %d nodes, expected 3", len(refs), scene.NodeCount())
	}
	if mustNode(t, scene, refs[0]).Transform().Parent.IsValid() {
		t.Error("Top-level template node should have no parent")
	}
	if p := mustNode(t, scene, refs[2]).Transform().Parent; p != refs[1] {
		t.Errorf("Bulb parent = %v, expected %v", p, refs[1])
	}

	// Without an instance root nothing cascades.
	scene.DestroyNode(refs[0])
	if scene.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, expected 1", scene.PendingCount())
	}
}
