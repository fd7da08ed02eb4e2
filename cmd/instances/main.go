// Command instances places many copies of a glTF model in the scene. Each
// copy wanders on its own; S adds a row of copies and D removes the oldest.
package main

import (
	"math/rand/v2"
	"time"

	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/assets"
	"github.com/TheBitDrifter/stage/internal/demo"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	model   = "biped.gltf"
	rowSize = 10
)

type crowd struct {
	loader *assets.Loader
	motion *stage.MotionBridge
	actors []stage.NodeRef
	rows   int
	held   bool
}

func main() {
	app, err := demo.New("stage - instances")
	if err != nil {
		demo.Exit(err)
	}
	c, err := newCrowd(app)
	if err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{Update: c.update}))
}

func newCrowd(app *demo.App) (*crowd, error) {
	scene := app.Scene
	loader := assets.NewLoader(app.Settings.Assets.Dir)
	loader.Program = app.Program

	ground := app.Resources.Models.Add("ground", stage.CreatePlaneModel(100, 100))
	grey := app.Resources.Materials.Add("ground", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{0.4, 0.4, 0.4, 1}),
	))
	if _, err := scene.CreateObject(stage.IdentityTransform(), ground, grey); err != nil {
		return nil, err
	}
	cam, err := scene.CreateCamera(
		stage.LookAtTransform(mgl32.Vec3{0, 8, -14}, mgl32.Vec3{0, 0, 4}),
		stage.Camera{ZNear: 0.1, ZFar: 200, Fov: stage.Deg(50)},
	)
	if err != nil {
		return nil, err
	}
	if err := scene.SetCurrentCamera(cam); err != nil {
		return nil, err
	}
	_, err = scene.CreateSpotLight(
		stage.LookAtTransform(mgl32.Vec3{-6, 12, -6}, mgl32.Vec3{0, 0, 4}),
		60, stage.Deg(10), stage.Deg(40), stage.White, stage.White, stage.ShadowMap, 0.0005,
	)
	if err != nil {
		return nil, err
	}

	c := &crowd{loader: loader, motion: stage.NewMotionBridge()}
	scene.AddBridge(c.motion)
	for range 3 {
		if err := c.addRow(scene, app.Resources); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *crowd) addRow(scene *stage.Scene, res *stage.Resources) error {
	z := float32(c.rows) * 2
	for i := range rowSize {
		pos := mgl32.Vec3{float32(i-rowSize/2) * 2, 0, z}
		trs := stage.EulerTransform(pos, mgl32.Vec3{0, rand.Float32() * stage.Deg(360), 0})
		ref, err := scene.CreateInstance(trs, model, c.loader, res)
		if err != nil {
			return err
		}
		c.motion.Attach(ref, wander(rand.Float32()*1.5))
		c.actors = append(c.actors, ref)
	}
	c.rows++
	return nil
}

func (c *crowd) update(app *demo.App, t *stage.Tick) error {
	s, d := t.Input.Down(stage.S), t.Input.Down(stage.D)
	defer func() { c.held = s || d }()
	if c.held {
		return nil
	}
	switch {
	case s:
		if err := c.addRow(t.Scene, app.Resources); err != nil {
			return err
		}
	case d:
		n := min(rowSize, len(c.actors))
		for _, ref := range c.actors[:n] {
			t.Scene.DestroyNode(ref)
		}
		c.actors = c.actors[n:]
		t.Loop.RequestGC()
	default:
		return nil
	}
	stage.Config.Logger().Info("crowd", "instances", len(c.actors), "nodes", t.Scene.NodeCount())
	return nil
}

// wander walks an instance root forward while turning at a constant rate.
func wander(speed float32) stage.MotionFunc {
	return func(_ *stage.Scene, n stage.Node, _, dt time.Duration) {
		h := float32(dt.Seconds())
		t := n.Transform()
		turn := mgl32.QuatRotate(stage.Deg(50)*h, mgl32.Vec3{0, 1, 0})
		rot := turn.Mul(t.Rot).Normalize()
		forward := rot.Rotate(mgl32.Vec3{0, 0, -1})
		t.SetPosRot(t.Pos.Add(forward.Mul(speed*h)), rot)
	}
}
