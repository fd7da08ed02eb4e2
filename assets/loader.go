// Package assets loads node templates for stage scenes from glTF files.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Loader implements stage.TemplateLoader for .gltf and .glb files found under
// Dir, and for templates registered in memory.
type Loader struct {
	Dir string
	// Program is assigned to the materials created for loaded files.
	Program stage.ProgramRef

	templates map[string]*stage.Template
}

var _ stage.TemplateLoader = &Loader{}

func NewLoader(dir string) *Loader {
	return &Loader{
		Dir:       dir,
		templates: make(map[string]*stage.Template),
	}
}

// Register makes tpl available under path without touching the file system.
func (l *Loader) Register(path string, tpl *stage.Template) {
	l.templates[path] = tpl
}

// LoadTemplate returns the template at path, loading and caching it on first
// use. Meshes and materials of the file are added to res under names
// prefixed with path.
func (l *Loader) LoadTemplate(path string, res *stage.Resources) (*stage.Template, error) {
	if tpl, ok := l.templates[path]; ok {
		return tpl, nil
	}
	full := filepath.Join(l.Dir, path)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return nil, stage.ResourceNotFoundError{Kind: "template", Name: path}
		}
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
	default:
		return nil, errors.Errorf("unsupported template format %q", filepath.Ext(path))
	}

	doc, err := gltf.Open(full)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	tpl, err := convert(path, doc, res, l.Program)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s", path)
	}
	l.templates[path] = tpl
	stage.Config.Logger().Debug("template loaded", "path", path, "nodes", len(tpl.Nodes))
	return tpl, nil
}

func meshName(path string, i int) string {
	return fmt.Sprintf("%s#mesh/%d", path, i)
}

func materialName(path string, i int) string {
	return fmt.Sprintf("%s#material/%d", path, i)
}

func defaultMaterialName(path string) string {
	return path + "#material/default"
}

func convert(path string, doc *gltf.Document, res *stage.Resources, prg stage.ProgramRef) (*stage.Template, error) {
	for i, m := range doc.Materials {
		res.Materials.Add(materialName(path, i), convertMaterial(m, prg))
	}
	res.Materials.Add(defaultMaterialName(path), stage.CreateMaterial(prg, stage.MakeUniformSetValue("uDiffuseColor", stage.White.Vec4())))

	meshMaterials := make([][]string, len(doc.Meshes))
	for i, mesh := range doc.Meshes {
		model, materials, err := convertMesh(path, doc, mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", i)
		}
		res.Models.Add(meshName(path, i), model)
		meshMaterials[i] = materials
	}

	tpl := &stage.Template{Name: path}
	var visit func(idx int, parent int) error
	visit = func(idx int, parent int) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return errors.Errorf("node index %d out of range", idx)
		}
		node := doc.Nodes[idx]
		tn := stage.TemplateNode{
			Name:      node.Name,
			Parent:    parent,
			Transform: nodeTransform(node),
		}
		if node.Mesh != nil {
			mi := int(*node.Mesh)
			tn.Model = meshName(path, mi)
			tn.Materials = meshMaterials[mi]
		}
		if node.Camera != nil {
			if cam := convertCamera(doc.Cameras[int(*node.Camera)]); cam != nil {
				tn.Camera = cam
			}
		}
		self := len(tpl.Nodes)
		tpl.Nodes = append(tpl.Nodes, tn)
		for _, child := range node.Children {
			if err := visit(int(child), self); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range rootNodes(doc) {
		if err := visit(root, -1); err != nil {
			return nil, err
		}
	}
	return tpl, nil
}

// rootNodes returns the roots of the default scene, or every node that is
// nobody's child when the file has no scene.
func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = int(*doc.Scene)
		}
		var roots []int
		for _, n := range doc.Scenes[si].Nodes {
			roots = append(roots, int(n))
		}
		return roots
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[int(c)] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeTransform reads the node pose. The decoder fills absent fields with
// their glTF defaults, so an identity matrix means the TRS fields apply.
func nodeTransform(node *gltf.Node) stage.Transform {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var mat mgl32.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		return stage.TransformFromMat4(mat)
	}
	t, r, s := node.Translation, node.RotationOrDefault(), node.ScaleOrDefault()
	return stage.NewTransform(
		mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}},
		mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	)
}

// convertMesh merges the triangle primitives of mesh into one model with a
// display list per primitive.
func convertMesh(path string, doc *gltf.Document, mesh *gltf.Mesh) (stage.Model, []string, error) {
	var (
		vertices  []float32
		indices   []uint32
		lists     []stage.DisplayList
		materials []string
	)
	for pi, prim := range mesh.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			return stage.Model{}, nil, errors.Errorf("primitive %d has no positions", pi)
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return stage.Model{}, nil, errors.Wrapf(err, "primitive %d positions", pi)
		}
		var normals [][3]float32
		if nIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[nIdx], nil); err != nil {
				return stage.Model{}, nil, errors.Wrapf(err, "primitive %d normals", pi)
			}
		}
		var uvs [][2]float32
		if tIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[tIdx], nil); err != nil {
				return stage.Model{}, nil, errors.Wrapf(err, "primitive %d texture coordinates", pi)
			}
		}

		base := uint32(len(vertices) / stage.VertexStride)
		for i, p := range positions {
			var n [3]float32
			var uv [2]float32
			if i < len(normals) {
				n = normals[i]
			}
			if i < len(uvs) {
				uv = uvs[i]
			}
			vertices = append(vertices, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
		}

		var primIndices []uint32
		if prim.Indices != nil {
			if primIndices, err = modeler.ReadIndices(doc, doc.Accessors[int(*prim.Indices)], nil); err != nil {
				return stage.Model{}, nil, errors.Wrapf(err, "primitive %d indices", pi)
			}
		} else {
			for i := range positions {
				primIndices = append(primIndices, uint32(i))
			}
		}
		offset := len(indices)
		for _, idx := range primIndices {
			indices = append(indices, base+idx)
		}

		mat := defaultMaterialName(path)
		if prim.Material != nil {
			mat = materialName(path, int(*prim.Material))
		}
		lists = append(lists, stage.DisplayList{IndexOffset: offset, IndexCount: len(primIndices), Material: len(materials)})
		materials = append(materials, mat)
	}
	return stage.NewModel(vertices, indices, lists), materials, nil
}

func convertMaterial(m *gltf.Material, prg stage.ProgramRef) stage.Material {
	color := stage.White.Vec4()
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		f := pbr.BaseColorFactor
		color = mgl32.Vec4{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
	}
	mat := stage.CreateMaterial(prg, stage.MakeUniformSetValue("uDiffuseColor", color))
	if m.AlphaMode == gltf.AlphaBlend {
		mat.Blend = stage.BlendAlpha
		mat.CastShadow = false
	}
	if m.DoubleSided {
		mat.Culling = stage.CullDisabled
	}
	return mat
}

func convertCamera(c *gltf.Camera) *stage.Camera {
	switch {
	case c.Perspective != nil:
		cam := &stage.Camera{
			ZNear: float32(c.Perspective.Znear),
			ZFar:  1000,
			Fov:   float32(c.Perspective.Yfov),
		}
		if c.Perspective.Zfar != nil {
			cam.ZFar = float32(*c.Perspective.Zfar)
		}
		return cam
	case c.Orthographic != nil:
		return &stage.Camera{
			ZNear: float32(c.Orthographic.Znear),
			ZFar:  float32(c.Orthographic.Zfar),
			Ortho: true,
			Size:  float32(2 * c.Orthographic.Ymag),
		}
	}
	return nil
}
