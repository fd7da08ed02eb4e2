package stage

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the number of float32 per vertex in Model.Vertices:
// position (3), normal (3), texture coordinate (2).
const VertexStride = 8

// DisplayList is a range of a model's index buffer drawn with one material.
type DisplayList struct {
	IndexOffset int
	IndexCount  int
	Material    int
}

// Model is CPU-side geometry. Backends upload it on first use.
type Model struct {
	Vertices []float32
	Indices  []uint32
	Lists    []DisplayList
	Min, Max mgl32.Vec3
}

// VertexCount returns the number of vertices in m.
func (m *Model) VertexCount() int {
	return len(m.Vertices) / VertexStride
}

func (m *Model) BoundsCenter() mgl32.Vec3 {
	return m.Min.Add(m.Max).Mul(0.5)
}

func (m *Model) BoundsRadius() float32 {
	return m.Max.Sub(m.Min).Len() * 0.5
}

// DisplayLists returns m.Lists, or a single list spanning every index when the
// model does not define any.
func (m *Model) DisplayLists() []DisplayList {
	if len(m.Lists) > 0 {
		return m.Lists
	}
	return []DisplayList{{IndexCount: len(m.Indices)}}
}

// NewModel builds a model from interleaved vertices (see VertexStride) and
// computes its bounds.
func NewModel(vertices []float32, indices []uint32, lists []DisplayList) Model {
	m := Model{Vertices: vertices, Indices: indices, Lists: lists}
	m.computeBounds()
	return m
}

func (m *Model) addVertex(pos, normal mgl32.Vec3, u, v float32) uint32 {
	idx := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, pos[0], pos[1], pos[2], normal[0], normal[1], normal[2], u, v)
	return idx
}

func (m *Model) computeBounds() {
	if m.VertexCount() == 0 {
		return
	}
	m.Min = mgl32.Vec3{m.Vertices[0], m.Vertices[1], m.Vertices[2]}
	m.Max = m.Min
	for i := 0; i < len(m.Vertices); i += VertexStride {
		for a := 0; a < 3; a++ {
			m.Min[a] = math32.Min(m.Min[a], m.Vertices[i+a])
			m.Max[a] = math32.Max(m.Max[a], m.Vertices[i+a])
		}
	}
}

// CreateCubeModel builds an axis-aligned box centered on the origin.
func CreateCubeModel(x, y, z float32) Model {
	var m Model
	hx, hy, hz := x/2, y/2, z/2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	}
	half := mgl32.Vec3{hx, hy, hz}
	scale := func(v mgl32.Vec3) mgl32.Vec3 {
		return mgl32.Vec3{v[0] * half[0], v[1] * half[1], v[2] * half[2]}
	}
	for _, f := range faces {
		c := scale(f.normal)
		du, dv := scale(f.u), scale(f.v)
		i0 := m.addVertex(c.Sub(du).Sub(dv), f.normal, 0, 0)
		i1 := m.addVertex(c.Add(du).Sub(dv), f.normal, 1, 0)
		i2 := m.addVertex(c.Add(du).Add(dv), f.normal, 1, 1)
		i3 := m.addVertex(c.Sub(du).Add(dv), f.normal, 0, 1)
		m.Indices = append(m.Indices, i0, i1, i2, i0, i2, i3)
	}
	m.computeBounds()
	return m
}

// CreateSphereModel builds a UV sphere with subdivX meridians and subdivY
// parallels.
func CreateSphereModel(radius float32, subdivX, subdivY int) Model {
	var m Model
	subdivX = max(subdivX, 3)
	subdivY = max(subdivY, 2)
	for j := 0; j <= subdivY; j++ {
		phi := math32.Pi * float32(j) / float32(subdivY)
		for i := 0; i <= subdivX; i++ {
			theta := 2 * math32.Pi * float32(i) / float32(subdivX)
			n := mgl32.Vec3{
				math32.Sin(phi) * math32.Cos(theta),
				math32.Cos(phi),
				math32.Sin(phi) * math32.Sin(theta),
			}
			m.addVertex(n.Mul(radius), n, float32(i)/float32(subdivX), float32(j)/float32(subdivY))
		}
	}
	row := uint32(subdivX + 1)
	for j := 0; j < subdivY; j++ {
		for i := 0; i < subdivX; i++ {
			a := uint32(j)*row + uint32(i)
			b := a + row
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	m.computeBounds()
	return m
}

// CreatePlaneModel builds a plane in XZ facing +Y.
func CreatePlaneModel(width, depth float32) Model {
	var m Model
	hw, hd := width/2, depth/2
	up := mgl32.Vec3{0, 1, 0}
	i0 := m.addVertex(mgl32.Vec3{-hw, 0, -hd}, up, 0, 0)
	i1 := m.addVertex(mgl32.Vec3{hw, 0, -hd}, up, 1, 0)
	i2 := m.addVertex(mgl32.Vec3{hw, 0, hd}, up, 1, 1)
	i3 := m.addVertex(mgl32.Vec3{-hw, 0, hd}, up, 0, 1)
	m.Indices = append(m.Indices, i0, i2, i1, i0, i3, i2)
	m.computeBounds()
	return m
}
