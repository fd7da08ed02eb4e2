package stage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// TestCreateModels tests the generated geometry and its bounds
func TestCreateModels(t *testing.T) {
	tests := []struct {
		name          string
		model         Model
		expectVerts   int
		expectIndices int
		expectMin     mgl32.Vec3
		expectMax     mgl32.Vec3
	}{
		{
			name:          "Cube",
			model:         CreateCubeModel(2, 4, 6),
			expectVerts:   24,
			expectIndices: 36,
			expectMin:     mgl32.Vec3{-1, -2, -3},
			expectMax:     mgl32.Vec3{1, 2, 3},
		},
		{
			name:          "Sphere",
			model:         CreateSphereModel(0.5, 16, 8),
			expectVerts:   17 * 9,
			expectIndices: 16 * 8 * 6,
			expectMin:     mgl32.Vec3{-0.5, -0.5, -0.5},
			expectMax:     mgl32.Vec3{0.5, 0.5, 0.5},
		},
		{
			name:          "Plane",
			model:         CreatePlaneModel(10, 4),
			expectVerts:   4,
			expectIndices: 6,
			expectMin:     mgl32.Vec3{-5, 0, -2},
			expectMax:     mgl32.Vec3{5, 0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.model
			if m.VertexCount() != tt.expectVerts {
				t.Errorf("VertexCount = %d, expected %d", m.VertexCount(), tt.expectVerts)
			}
			if len(m.Indices) != tt.expectIndices {
				t.Errorf("Indices = %d, expected %d", len(m.Indices), tt.expectIndices)
			}
			if !vecNear(m.Min, tt.expectMin) || !vecNear(m.Max, tt.expectMax) {
				t.Errorf("Bounds = %v..%v, expected %v..%v", m.Min, m.Max, tt.expectMin, tt.expectMax)
			}
			for _, idx := range m.Indices {
				if int(idx) >= m.VertexCount() {
					t.Fatalf("Index %d out of range", idx)
				}
			}
			lists := m.DisplayLists()
			if len(lists) != 1 || lists[0].IndexCount != tt.expectIndices {
				t.Errorf("DisplayLists = %+v", lists)
			}
		})
	}
}

// TestNewModel tests explicit display lists and bounds
func TestNewModel(t *testing.T) {
	vertices := []float32{
		0, 0, 0, 0, 1, 0, 0, 0,
		2, 0, 0, 0, 1, 0, 1, 0,
		0, 0, 2, 0, 1, 0, 0, 1,
	}
	lists := []DisplayList{{IndexOffset: 0, IndexCount: 3, Material: 1}}
	m := NewModel(vertices, []uint32{0, 1, 2}, lists)

	if c := m.BoundsCenter(); !vecNear(c, mgl32.Vec3{1, 0, 1}) {
		t.Errorf("BoundsCenter = %v", c)
	}
	if r := m.BoundsRadius(); r < 1.41 || r > 1.42 {
		t.Errorf("BoundsRadius = %v", r)
	}
	if got := m.DisplayLists(); len(got) != 1 || got[0].Material != 1 {
		t.Errorf("DisplayLists = %+v", got)
	}
}
