package stage

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the local pose of a node relative to its parent. The world
// matrix is derived by Scene.Update and is consistent with the local pose as
// of the last update.
//
// The zero Transform is the identity: a zero quaternion reads as no rotation
// and a zero scale as unit scale.
type Transform struct {
	Pos    mgl32.Vec3
	Rot    mgl32.Quat
	Scale  mgl32.Vec3
	Parent NodeRef

	world mgl32.Mat4
	stamp uint64
}

func NewTransform(pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) Transform {
	t := Transform{Pos: pos, Rot: rot, Scale: scale}
	t.world = t.Local()
	return t
}

func IdentityTransform() Transform {
	return NewTransform(mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TranslationTransform(pos mgl32.Vec3) Transform {
	return NewTransform(pos, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

// EulerTransform builds a transform from a position and XYZ euler angles in
// radians.
func EulerTransform(pos, euler mgl32.Vec3) Transform {
	return NewTransform(pos, eulerToQuat(euler), mgl32.Vec3{1, 1, 1})
}

// TransformFromMat4 decomposes m into position, rotation and scale. Shear is
// discarded.
func TransformFromMat4(m mgl32.Mat4) Transform {
	pos, rot, scale := DecomposeMat4(m)
	return NewTransform(pos, rot, scale)
}

// LookAtTransform places a node at eye facing target, using the -Z forward
// convention of the view matrices built by this package.
func LookAtTransform(eye, target mgl32.Vec3) Transform {
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	return TransformFromMat4(view.Inv())
}

func DecomposeMat4(m mgl32.Mat4) (pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) {
	pos = m.Col(3).Vec3()
	x, y, z := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	scale = mgl32.Vec3{x.Len(), y.Len(), z.Len()}
	for i := range scale {
		if scale[i] == 0 {
			return pos, mgl32.QuatIdent(), scale
		}
	}
	x, y, z = x.Mul(1/scale[0]), y.Mul(1/scale[1]), z.Mul(1/scale[2])
	r := mgl32.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl32.Vec4{0, 0, 0, 1})
	rot = mgl32.Mat4ToQuat(r).Normalize()
	return pos, rot, scale
}

func eulerToQuat(euler mgl32.Vec3) mgl32.Quat {
	return mgl32.AnglesToQuat(euler[0], euler[1], euler[2], mgl32.XYZ)
}

func (t Transform) rotation() mgl32.Quat {
	if t.Rot.W == 0 && t.Rot.V == (mgl32.Vec3{}) {
		return mgl32.QuatIdent()
	}
	return t.Rot
}

func (t Transform) scale() mgl32.Vec3 {
	if t.Scale == (mgl32.Vec3{}) {
		return mgl32.Vec3{1, 1, 1}
	}
	return t.Scale
}

// Local returns the local matrix: translation * rotation * scale.
func (t Transform) Local() mgl32.Mat4 {
	s := t.scale()
	return mgl32.Translate3D(t.Pos[0], t.Pos[1], t.Pos[2]).
		Mul4(t.rotation().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// World returns the world matrix computed by the last Scene.Update.
func (t *Transform) World() mgl32.Mat4 {
	if t.world == (mgl32.Mat4{}) {
		return t.Local()
	}
	return t.world
}

// WorldPos is the translation part of the world matrix.
func (t *Transform) WorldPos() mgl32.Vec3 {
	return t.World().Col(3).Vec3()
}

// Forward is the normalized world Z axis of the node.
func (t *Transform) Forward() mgl32.Vec3 {
	return t.World().Col(2).Vec3().Normalize()
}

func (t *Transform) SetPos(pos mgl32.Vec3) {
	t.Pos = pos
}

func (t *Transform) SetRot(rot mgl32.Quat) {
	t.Rot = rot
}

// SetEuler sets the rotation from XYZ euler angles in radians.
func (t *Transform) SetEuler(euler mgl32.Vec3) {
	t.Rot = eulerToQuat(euler)
}

func (t *Transform) SetScale(scale mgl32.Vec3) {
	t.Scale = scale
}

func (t *Transform) SetPosRot(pos mgl32.Vec3, rot mgl32.Quat) {
	t.Pos = pos
	t.Rot = rot
}

// SetFromMat4 replaces the local pose with the decomposition of m.
func (t *Transform) SetFromMat4(m mgl32.Mat4) {
	t.Pos, t.Rot, t.Scale = DecomposeMat4(m)
}
