package stage

import (
	"github.com/go-gl/mathgl/mgl32"
)

type PassKind int

const (
	PassShadow PassKind = iota
	PassColor
)

func (k PassKind) String() string {
	switch k {
	case PassShadow:
		return "shadow"
	case PassColor:
		return "color"
	}
	return "unknown"
}

// Draw is one display list of one object, resolved for drawing.
type Draw struct {
	Node        NodeRef
	Model       ModelRef
	Material    MaterialRef
	List        DisplayList
	World       mgl32.Mat4
	Center      mgl32.Vec3
	Radius      float32
	Transparent bool
	CastShadow  bool
	Seq         uint64
}

type LightData struct {
	Node  NodeRef
	Light Light
	World mgl32.Mat4
	// Shadow is the view id of the pass rendering this light's shadow map,
	// valid when HasShadow is set.
	Shadow    ViewID
	HasShadow bool
}

// Pass is one view handed to a Backend: a shadow map or a color target.
type Pass struct {
	View        ViewID
	Kind        PassKind
	Rect        Rect
	Target      FrameBuffer
	State       ViewState
	Clear       bool
	ClearColor  Color
	Environment Environment
	Draws       []Draw
	Lights      []LightData
	// Light is the node casting the shadow of a shadow pass.
	Light NodeRef
}

// ViewSpec describes one view of a multi-view submission.
type ViewSpec struct {
	Rect   Rect
	State  ViewState
	Target FrameBuffer
}

// RenderData carries what PrepareCommonRenderData collected for one frame.
// It is tied to the scene generation it was prepared for.
type RenderData struct {
	generation uint64
	prepared   bool

	draws        []Draw
	lights       []LightData
	shadowPasses []Pass
	shadowsSent  bool

	visible     []Draw
	viewShadows []Pass
	viewReady   bool
}

func (rd *RenderData) reset() {
	rd.prepared = false
	rd.draws = rd.draws[:0]
	rd.lights = rd.lights[:0]
	rd.shadowPasses = rd.shadowPasses[:0]
	rd.shadowsSent = false
	rd.resetView()
}

func (rd *RenderData) resetView() {
	rd.visible = rd.visible[:0]
	rd.viewShadows = rd.viewShadows[:0]
	rd.viewReady = false
}

// Draws returns the draws collected for the frame.
func (rd *RenderData) Draws() []Draw {
	return rd.draws
}

func (rd *RenderData) Lights() []LightData {
	return rd.lights
}

// Visible returns the draws kept by the last view-dependent preparation.
func (rd *RenderData) Visible() []Draw {
	return rd.visible
}

func (rd *RenderData) Generation() uint64 {
	return rd.generation
}

// RecordingBackend keeps submitted passes in memory.
type RecordingBackend struct {
	Passes []Pass
}

func (b *RecordingBackend) Submit(pass Pass) error {
	b.Passes = append(b.Passes, pass)
	return nil
}

func (b *RecordingBackend) Reset() {
	b.Passes = b.Passes[:0]
}
