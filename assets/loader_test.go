package assets

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "root", "translation": [1, 2, 3], "children": [1]},
    {"name": "tri", "mesh": 0, "scale": [2, 2, 2]}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"name": "glass", "alphaMode": "BLEND", "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 0.5]}}],
  "buffers": [{"byteLength": 44, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAAAAABAAIAAAA="}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`

func writeTriangle(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.gltf"), []byte(triangleGLTF), 0o644))
	return dir
}

func TestLoadTemplateGLTF(t *testing.T) {
	res := stage.Factory.NewResources()
	loader := NewLoader(writeTriangle(t))

	tpl, err := loader.LoadTemplate("tri.gltf", res)
	require.NoError(t, err)
	require.Len(t, tpl.Nodes, 2)

	root, tri := tpl.Nodes[0], tpl.Nodes[1]
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, -1, root.Parent)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, root.Transform.Pos)
	assert.Equal(t, 0, tri.Parent)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, tri.Transform.Scale)
	assert.Equal(t, mgl32.Vec3{}, tri.Transform.Pos)
	assert.Equal(t, "tri.gltf#mesh/0", tri.Model)
	assert.Equal(t, []string{"tri.gltf#material/0"}, tri.Materials)

	modelRef, ok := res.Models.Lookup("tri.gltf#mesh/0")
	require.True(t, ok)
	model, err := res.Models.Get(modelRef)
	require.NoError(t, err)
	assert.Equal(t, 3, model.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2}, model.Indices)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, model.Max)

	matRef, ok := res.Materials.Lookup("tri.gltf#material/0")
	require.True(t, ok)
	mat, err := res.Materials.Get(matRef)
	require.NoError(t, err)
	assert.True(t, mat.Transparent())
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0.5}, mat.Values["uDiffuseColor"])

	again, err := loader.LoadTemplate("tri.gltf", res)
	require.NoError(t, err)
	assert.Same(t, tpl, again, "templates are cached")
}

func TestNodeTransform(t *testing.T) {
	tests := []struct {
		name      string
		node      gltf.Node
		expectPos mgl32.Vec3
		expectRot mgl32.Quat
		expectScl mgl32.Vec3
	}{
		{
			name:      "Empty",
			node:      gltf.Node{},
			expectRot: mgl32.QuatIdent(),
			expectScl: mgl32.Vec3{1, 1, 1},
		},
		{
			name:      "Decoded defaults with translation",
			node:      gltf.Node{Matrix: gltf.DefaultMatrix, Rotation: gltf.DefaultRotation, Scale: gltf.DefaultScale, Translation: [3]float64{1, 2, 3}},
			expectPos: mgl32.Vec3{1, 2, 3},
			expectRot: mgl32.QuatIdent(),
			expectScl: mgl32.Vec3{1, 1, 1},
		},
		{
			name:      "Rotation and scale",
			node:      gltf.Node{Rotation: [4]float64{0, math.Sqrt2 / 2, 0, math.Sqrt2 / 2}, Scale: [3]float64{2, 3, 4}},
			expectRot: mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0}),
			expectScl: mgl32.Vec3{2, 3, 4},
		},
		{
			name:      "Matrix",
			node:      gltf.Node{Matrix: [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 4, 5, 6, 1}},
			expectPos: mgl32.Vec3{4, 5, 6},
			expectRot: mgl32.QuatIdent(),
			expectScl: mgl32.Vec3{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trs := nodeTransform(&tt.node)
			assert.InDeltaSlice(t, tt.expectPos[:], trs.Pos[:], 1e-5)
			assert.InDeltaSlice(t, tt.expectScl[:], trs.Scale[:], 1e-5)
			near := func(a, b float32) bool { return mgl32.Abs(a-b) < 1e-4 }
			assert.True(t, trs.Rot.ApproxEqualFunc(tt.expectRot, near), "rotation %v, expected %v", trs.Rot, tt.expectRot)
		})
	}
}

func TestLoadTemplateMissing(t *testing.T) {
	loader := NewLoader(t.TempDir())
	_, err := loader.LoadTemplate("absent.gltf", stage.Factory.NewResources())

	var notFound stage.ResourceNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "absent.gltf", notFound.Name)
}

func TestCreateInstanceFromFile(t *testing.T) {
	res := stage.Factory.NewResources()
	scene := stage.Factory.NewScene(res)
	loader := NewLoader(writeTriangle(t))

	root, err := scene.CreateInstance(stage.IdentityTransform(), "tri.gltf", loader, res)
	require.NoError(t, err)
	assert.Equal(t, 3, scene.NodeCount())

	n, err := scene.GetNode(root)
	require.NoError(t, err)
	inst, ok := n.Instance()
	require.True(t, ok)
	assert.Len(t, inst.Children, 2)

	scene.DestroyNode(root)
	assert.Equal(t, 3, scene.GarbageCollect())
	assert.Equal(t, 0, scene.NodeCount())
}

func TestCreateInstanceMissingMaterialRollsBack(t *testing.T) {
	res := stage.Factory.NewResources()
	scene := stage.Factory.NewScene(res)
	loader := NewLoader(t.TempDir())
	res.Models.Add("cube", stage.CreateCubeModel(1, 1, 1))
	loader.Register("broken", &stage.Template{
		Name: "broken",
		Nodes: []stage.TemplateNode{
			{Name: "a", Parent: -1},
			{Name: "b", Parent: 0, Model: "cube", Materials: []string{"missing"}},
		},
	})

	_, err := scene.CreateInstance(stage.IdentityTransform(), "broken", loader, res)
	var partial stage.PartialInstantiationError
	require.True(t, errors.As(err, &partial))
	assert.NoError(t, partial.Rollback)
	assert.Equal(t, 2, partial.Created)

	var notFound stage.ResourceNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, 0, scene.NodeCount())
	assert.Equal(t, 0, scene.PendingCount())
}
