// Package physics moves scene nodes with a small fixed-step rigid body
// simulation. Bodies are stored in an arche ECS world, keyed by the node they
// drive.
package physics

import (
	"time"

	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

// Body links a simulated entity to the node it moves.
type Body struct {
	Node stage.NodeRef
}

type Velocity struct {
	V mgl32.Vec3
}

// Shape is a sphere colliding with the floor plane.
type Shape struct {
	Radius      float32
	Restitution float32
}

type World struct {
	Gravity mgl32.Vec3
	FloorY  float32
	Substep time.Duration

	world   ecs.World
	bodyID  ecs.ID
	velID   ecs.ID
	shapeID ecs.ID
	byNode  map[stage.NodeRef]ecs.Entity
	accum   time.Duration
	steps   uint64
}

var _ stage.Bridge = &World{}

func NewWorld() *World {
	w := &World{
		Gravity: mgl32.Vec3{0, -9.81, 0},
		Substep: time.Second / 120,
		world:   ecs.NewWorld(ecs.NewConfig().WithCapacityIncrement(256)),
		byNode:  make(map[stage.NodeRef]ecs.Entity),
	}
	w.bodyID = ecs.ComponentID[Body](&w.world)
	w.velID = ecs.ComponentID[Velocity](&w.world)
	w.shapeID = ecs.ComponentID[Shape](&w.world)
	return w
}

// AddBody starts simulating ref. Adding a node twice replaces its body.
func (w *World) AddBody(ref stage.NodeRef, velocity mgl32.Vec3, shape Shape) {
	w.RemoveBody(ref)
	e := ecs.NewBuilder(&w.world, w.bodyID, w.velID, w.shapeID).New()
	(*Body)(w.world.Get(e, w.bodyID)).Node = ref
	(*Velocity)(w.world.Get(e, w.velID)).V = velocity
	*(*Shape)(w.world.Get(e, w.shapeID)) = shape
	w.byNode[ref] = e
}

func (w *World) RemoveBody(ref stage.NodeRef) bool {
	e, ok := w.byNode[ref]
	if !ok {
		return false
	}
	w.world.RemoveEntity(e)
	delete(w.byNode, ref)
	return true
}

func (w *World) Len() int {
	return len(w.byNode)
}

// Steps is the number of fixed substeps simulated so far.
func (w *World) Steps() uint64 {
	return w.steps
}

func (w *World) Velocity(ref stage.NodeRef) (mgl32.Vec3, bool) {
	e, ok := w.byNode[ref]
	if !ok || !w.world.Alive(e) {
		return mgl32.Vec3{}, false
	}
	return (*Velocity)(w.world.Get(e, w.velID)).V, true
}

// Step advances the simulation by dt in fixed substeps. Time left over is
// carried to the next call.
func (w *World) Step(scene *stage.Scene, dt time.Duration) error {
	if w.Substep <= 0 {
		return nil
	}
	w.accum += dt
	for w.accum >= w.Substep {
		w.integrate(scene, float32(w.Substep.Seconds()))
		w.accum -= w.Substep
		w.steps++
	}
	return nil
}

func (w *World) integrate(scene *stage.Scene, h float32) {
	query := w.world.Query(ecs.All(w.bodyID, w.velID, w.shapeID))
	for query.Next() {
		body := (*Body)(query.Get(w.bodyID))
		n, err := scene.GetNode(body.Node)
		if err != nil || n.Pending() {
			continue
		}
		vel := (*Velocity)(query.Get(w.velID))
		shape := (*Shape)(query.Get(w.shapeID))

		t := n.Transform()
		vel.V = vel.V.Add(w.Gravity.Mul(h))
		pos := t.Pos.Add(vel.V.Mul(h))
		if floor := w.FloorY + shape.Radius; pos[1] < floor {
			pos[1] = floor
			if vel.V[1] < 0 {
				vel.V[1] = -vel.V[1] * shape.Restitution
			}
		}
		t.SetPos(pos)
	}
}

// GarbageCollect removes the bodies of nodes the scene reclaimed and returns
// how many were removed.
func (w *World) GarbageCollect(scene *stage.Scene) int {
	var stale []stage.NodeRef
	query := w.world.Query(ecs.All(w.bodyID))
	for query.Next() {
		ref := (*Body)(query.Get(w.bodyID)).Node
		if !scene.IsValid(ref) {
			stale = append(stale, ref)
		}
	}
	for _, ref := range stale {
		w.RemoveBody(ref)
	}
	return len(stale)
}
