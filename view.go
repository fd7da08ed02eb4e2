package stage

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ViewID orders passes: the backend executes them in increasing id order.
type ViewID uint16

// Rect is a viewport in pixels.
type Rect struct {
	X, Y, Width, Height int
}

func MakeRectFromWidthHeight(w, h int) Rect {
	return Rect{Width: w, Height: h}
}

// AspectRatio is width over height, 1 for degenerate rects.
func (r Rect) AspectRatio() float32 {
	if r.Height == 0 {
		return 1
	}
	return float32(r.Width) / float32(r.Height)
}

// FrameBuffer names a render target. The zero value is the backbuffer.
type FrameBuffer uint32

const Backbuffer FrameBuffer = 0

// Plane is ax + by + cz + d = 0 with a normalized (a, b, c) pointing inside.
type Plane mgl32.Vec4

func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p[0]*v[0] + p[1]*v[1] + p[2]*v[2] + p[3]
}

type Frustum [6]Plane

// FrustumFromMatrix extracts the clip planes of a view-projection matrix.
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)
	raw := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}
	var f Frustum
	for i, p := range raw {
		l := p.Vec3().Len()
		if l > 0 {
			p = p.Mul(1 / l)
		}
		f[i] = Plane(p)
	}
	return f
}

// ContainsSphere reports whether a sphere intersects the frustum.
func (f Frustum) ContainsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range f {
		if p.Distance(center) < -radius {
			return false
		}
	}
	return true
}

// ViewState holds the matrices of one point of view.
type ViewState struct {
	View    mgl32.Mat4
	Proj    mgl32.Mat4
	Frustum Frustum
}

func (v ViewState) ViewProj() mgl32.Mat4 {
	return v.Proj.Mul4(v.View)
}

// Position is the eye position in world space.
func (v ViewState) Position() mgl32.Vec3 {
	return v.View.Inv().Col(3).Vec3()
}

func newViewState(view, proj mgl32.Mat4) ViewState {
	return ViewState{View: view, Proj: proj, Frustum: FrustumFromMatrix(proj.Mul4(view))}
}

// ComputePerspectiveViewState builds a view from a camera world matrix and
// vertical field of view in radians.
func ComputePerspectiveViewState(world mgl32.Mat4, fov, aspect, zNear, zFar float32) ViewState {
	return newViewState(world.Inv(), mgl32.Perspective(fov, aspect, zNear, zFar))
}

// ComputeOrthographicViewState builds a view whose vertical extent is size.
func ComputeOrthographicViewState(world mgl32.Mat4, size, aspect, zNear, zFar float32) ViewState {
	h := size / 2
	w := h * aspect
	return newViewState(world.Inv(), mgl32.Ortho(-w, w, -h, h, zNear, zFar))
}

// ComputeCameraViewState builds the view of a camera node for aspect.
func ComputeCameraViewState(world mgl32.Mat4, cam Camera, aspect float32) ViewState {
	if cam.Ortho {
		return ComputeOrthographicViewState(world, cam.Size, aspect, cam.ZNear, cam.ZFar)
	}
	return ComputePerspectiveViewState(world, cam.Fov, aspect, cam.ZNear, cam.ZFar)
}

// ComputeAspectRatioX returns the aspect ratio of a w by h target.
func ComputeAspectRatioX(w, h float32) float32 {
	if h == 0 {
		return 1
	}
	return w / h
}

// Deg converts degrees to radians.
func Deg(d float32) float32 {
	return d * math32.Pi / 180
}

// ComputeStereoViewStates offsets a head view by half the interpupillary
// distance along its X axis for each eye.
func ComputeStereoViewStates(head mgl32.Mat4, ipd, fov, aspect, zNear, zFar float32) (left, right ViewState) {
	offset := head.Col(0).Vec3().Normalize().Mul(ipd / 2)
	l := mgl32.Translate3D(-offset[0], -offset[1], -offset[2]).Mul4(head)
	r := mgl32.Translate3D(offset[0], offset[1], offset[2]).Mul4(head)
	return ComputePerspectiveViewState(l, fov, aspect, zNear, zFar),
		ComputePerspectiveViewState(r, fov, aspect, zNear, zFar)
}
