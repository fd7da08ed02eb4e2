// Command physics_pool drops cubes and spheres onto a walled board. Hold S to
// spawn objects and D to destroy the oldest ones.
package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/internal/demo"
	"github.com/TheBitDrifter/stage/physics"
	"github.com/go-gl/mathgl/mgl32"
)

const batch = 8

type pool struct {
	app     *demo.App
	world   *physics.World
	cube    stage.ModelRef
	sphere  stage.ModelRef
	objects []stage.NodeRef
	spawned int

	// collected is set after a destroy batch so the next tick can report
	// what the loop reclaimed.
	collected bool
}

func main() {
	app, err := demo.New("stage - physics pool")
	if err != nil {
		demo.Exit(err)
	}
	p, err := newPool(app)
	if err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{Update: p.update}))
}

func newPool(app *demo.App) (*pool, error) {
	res, scene := app.Resources, app.Scene

	scene.Canvas.ClearColor = stage.ColorI(22, 56, 76)
	scene.Environment.FogColor = scene.Canvas.ClearColor
	scene.Environment.FogNear = 20
	scene.Environment.FogFar = 80

	cam, err := scene.CreateCamera(
		stage.EulerTransform(mgl32.Vec3{0, 20, -30}, mgl32.Vec3{stage.Deg(30), 0, 0}),
		stage.Camera{ZNear: 0.01, ZFar: 5000, Fov: stage.Deg(45)},
	)
	if err != nil {
		return nil, err
	}
	if err := scene.SetCurrentCamera(cam); err != nil {
		return nil, err
	}

	warm := stage.Color{R: 1, G: 0.8, B: 0.7, A: 1}
	_, err = scene.CreateLinearLight(
		stage.EulerTransform(mgl32.Vec3{}, mgl32.Vec3{stage.Deg(30), stage.Deg(59), 0}),
		warm, warm, stage.ShadowMap, 0.002, mgl32.Vec4{50, 100, 200, 400},
	)
	if err != nil {
		return nil, err
	}
	if _, err := scene.CreatePointLight(mgl32.Vec3{0, 10, 10}, 100, stage.ColorI(94, 155, 228), stage.ColorI(94, 255, 228)); err != nil {
		return nil, err
	}

	grey := res.Materials.Add("board", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{0.5, 0.5, 0.5, 1}),
	))
	board := []struct {
		name string
		size mgl32.Vec3
		pos  []mgl32.Vec3
	}{
		{"ground", mgl32.Vec3{100, 1, 100}, []mgl32.Vec3{{0, -0.5, 0}}},
		{"wall_lr", mgl32.Vec3{1, 11, 32}, []mgl32.Vec3{{-15.5, -0.5, 0}, {15.5, -0.5, 0}}},
		{"wall_tb", mgl32.Vec3{32, 11, 1}, []mgl32.Vec3{{0, -0.5, -15.5}, {0, -0.5, 15.5}}},
	}
	for _, part := range board {
		mdl := res.Models.Add(part.name, stage.CreateCubeModel(part.size[0], part.size[1], part.size[2]))
		for _, pos := range part.pos {
			if _, err := scene.CreateObject(stage.TranslationTransform(pos), mdl, grey); err != nil {
				return nil, err
			}
		}
	}

	world := physics.NewWorld()
	scene.AddBridge(world)

	return &pool{
		app:    app,
		world:  world,
		cube:   res.Models.Add("cube", stage.CreateCubeModel(1, 1, 1)),
		sphere: res.Models.Add("sphere", stage.CreateSphereModel(0.5, 12, 24)),
	}, nil
}

func (p *pool) update(app *demo.App, t *stage.Tick) error {
	if p.collected {
		report := t.Loop.LastGC()
		stage.Config.Logger().Info("destroyed", "nodes", report.Nodes, "physics", report.Bridges)
		p.collected = false
	}
	switch {
	case t.Input.Down(stage.S):
		return p.spawn()
	case t.Input.Down(stage.D):
		p.destroy(t.Loop)
	}
	return nil
}

func (p *pool) spawn() error {
	res, scene := p.app.Resources, p.app.Scene
	for range batch {
		// Each object owns its material so the colors stay distinct.
		p.spawned++
		mat := res.Materials.AddExclusive(fmt.Sprintf("object/%d", p.spawned), stage.CreateMaterial(p.app.Program,
			stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{rand.Float32(), rand.Float32(), rand.Float32(), 1}),
		))
		pos := mgl32.Vec3{rand.Float32()*20 - 10, 18, rand.Float32()*20 - 10}
		mdl := p.sphere
		if rand.IntN(2) == 0 {
			mdl = p.cube
		}
		ref, err := scene.CreateObject(stage.TranslationTransform(pos), mdl, mat)
		if err != nil {
			return err
		}
		p.world.AddBody(ref, mgl32.Vec3{}, physics.Shape{Radius: 0.5, Restitution: 0.4})
		p.objects = append(p.objects, ref)
	}
	stage.Config.Logger().Info("spawned", "nodes", scene.NodeCount())
	return nil
}

func (p *pool) destroy(loop *stage.Loop) {
	n := min(batch, len(p.objects))
	for _, ref := range p.objects[:n] {
		p.app.Scene.DestroyNode(ref)
	}
	p.objects = p.objects[n:]
	loop.RequestGC()
	p.collected = true
}
