package stage

import (
	"slices"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MotionFunc animates one node. elapsed is the time since the bridge started.
type MotionFunc func(scene *Scene, n Node, elapsed, dt time.Duration)

type motion struct {
	ref NodeRef
	fn  MotionFunc
}

// MotionBridge runs per-node animation callbacks every scene update.
type MotionBridge struct {
	motions []motion
	elapsed time.Duration
}

var _ Bridge = &MotionBridge{}

func NewMotionBridge() *MotionBridge {
	return &MotionBridge{}
}

// Attach animates ref with fn. A node may carry several motions; they run in
// attach order.
func (b *MotionBridge) Attach(ref NodeRef, fn MotionFunc) {
	b.motions = append(b.motions, motion{ref: ref, fn: fn})
}

func (b *MotionBridge) Detach(ref NodeRef) {
	b.motions = slices.DeleteFunc(b.motions, func(m motion) bool {
		return m.ref == ref
	})
}

func (b *MotionBridge) Len() int {
	return len(b.motions)
}

func (b *MotionBridge) Step(scene *Scene, dt time.Duration) error {
	b.elapsed += dt
	for _, m := range b.motions {
		n, err := scene.GetNode(m.ref)
		if err != nil || n.Pending() {
			continue
		}
		m.fn(scene, n, b.elapsed, dt)
	}
	return nil
}

// GarbageCollect drops the motions of reclaimed nodes.
func (b *MotionBridge) GarbageCollect(scene *Scene) int {
	before := len(b.motions)
	b.motions = slices.DeleteFunc(b.motions, func(m motion) bool {
		return !scene.IsValid(m.ref)
	})
	return before - len(b.motions)
}

// WaveMotion bobs a node around base along Y.
func WaveMotion(base mgl32.Vec3, amplitude, frequency, phase float32) MotionFunc {
	return func(_ *Scene, n Node, elapsed, _ time.Duration) {
		t := float32(elapsed.Seconds())
		pos := base
		pos[1] += amplitude * math32.Sin(t*frequency+phase)
		n.Transform().SetPos(pos)
	}
}

// SpinMotion rotates a node around axis at speed radians per second.
func SpinMotion(axis mgl32.Vec3, speed float32) MotionFunc {
	axis = axis.Normalize()
	return func(_ *Scene, n Node, _, dt time.Duration) {
		t := n.Transform()
		step := mgl32.QuatRotate(speed*float32(dt.Seconds()), axis)
		t.SetRot(step.Mul(t.rotation()).Normalize())
	}
}

// ChaseMotion moves a camera node towards offset behind target, expressed
// in the target frame, and keeps it looking at the target.
func ChaseMotion(target NodeRef, offset mgl32.Vec3, stiffness float32) MotionFunc {
	return func(scene *Scene, n Node, _, dt time.Duration) {
		tn, err := scene.GetNode(target)
		if err != nil {
			return
		}
		world := tn.Transform().World()
		goal := world.Mul4x1(offset.Vec4(1)).Vec3()
		focus := world.Col(3).Vec3()

		t := n.Transform()
		k := math32.Min(1, stiffness*float32(dt.Seconds()))
		pos := t.Pos.Add(goal.Sub(t.Pos).Mul(k))
		look := LookAtTransform(pos, focus)
		t.SetPosRot(pos, look.Rot)
	}
}
