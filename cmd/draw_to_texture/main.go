// Command draw_to_texture renders a scene into a 512x512 offscreen target and
// shows that target on a rotating cube drawn to the backbuffer.
package main

import (
	"fmt"
	"math"
	"time"

	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/internal/demo"
	"github.com/go-gl/mathgl/mgl32"
)

const targetSize = 512

type drawToTexture struct {
	target  stage.FrameBuffer
	display *stage.Scene
}

func main() {
	app, err := demo.New("stage - draw scene to texture")
	if err != nil {
		demo.Exit(err)
	}
	d := &drawToTexture{}
	if err := d.build(app); err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{Setup: d.setup, Update: d.update, Render: d.render}))
}

// build fills the scene drawn into the texture. Its camera swings back and
// forth along Z.
func (d *drawToTexture) build(app *demo.App) error {
	res, scene := app.Resources, app.Scene

	sphere := res.Models.Add("sphere", stage.CreateSphereModel(0.5, 24, 12))
	ground := res.Models.Add("ground", stage.CreateCubeModel(6, 0.01, 6))
	grey := res.Materials.Add("ground", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{0.5, 0.5, 0.5, 1}),
	))
	for i, c := range []stage.Color{stage.ColorI(230, 60, 60), stage.ColorI(60, 200, 90), stage.ColorI(70, 110, 240)} {
		mat := res.Materials.Add(fmt.Sprintf("sphere_%d", i), stage.CreateMaterial(app.Program,
			stage.MakeUniformSetValue("uDiffuseColor", c.Vec4()),
		))
		if _, err := scene.CreateObject(stage.TranslationTransform(mgl32.Vec3{float32(i-1) * 1.2, 0.5, 0}), sphere, mat); err != nil {
			return err
		}
	}
	if _, err := scene.CreateObject(stage.IdentityTransform(), ground, grey); err != nil {
		return err
	}
	if _, err := scene.CreatePointLight(mgl32.Vec3{1, 3, -2}, 15, stage.White, stage.White); err != nil {
		return err
	}

	cam, err := scene.CreateCamera(
		stage.TranslationTransform(mgl32.Vec3{0, 0.5, -4}),
		stage.Camera{ZNear: 0.01, ZFar: 100, Fov: stage.Deg(45)},
	)
	if err != nil {
		return err
	}
	motion := stage.NewMotionBridge()
	scene.AddBridge(motion)
	motion.Attach(cam, func(_ *stage.Scene, n stage.Node, elapsed, _ time.Duration) {
		z := float32(math.Sin(elapsed.Seconds()))*3 + 4
		n.Transform().SetPos(mgl32.Vec3{0, 0.5, -z})
	})
	return scene.SetCurrentCamera(cam)
}

// setup creates the offscreen target and the display scene sampling it.
func (d *drawToTexture) setup(app *demo.App) error {
	res := app.Resources
	fb, tex, err := app.Backend.CreateFrameBuffer("scene_texture", targetSize, targetSize)
	if err != nil {
		return err
	}
	d.target = fb

	d.display = stage.Factory.NewScene(res)
	d.display.Canvas.ClearColor = stage.ColorI(32, 32, 40)
	d.display.Environment.Ambient = stage.White

	mat := stage.CreateMaterial(app.Program, stage.MakeUniformSetValue("uDiffuseColor", stage.White.Vec4()))
	mat.CastShadow = false
	stage.SetMaterialTexture(&mat, "uDiffuseMap", tex, 0)
	if err := stage.UpdateMaterialProgramVariant(&mat, res); err != nil {
		return err
	}
	cube, err := d.display.CreateObject(stage.IdentityTransform(),
		res.Models.Add("display_cube", stage.CreateCubeModel(1, 1, 1)),
		res.Materials.Add("scene_texture", mat),
	)
	if err != nil {
		return err
	}
	spin := stage.NewMotionBridge()
	d.display.AddBridge(spin)
	spin.Attach(cube, stage.SpinMotion(mgl32.Vec3{0.1, 0.05, 0.2}, 0.22))

	cam, err := d.display.CreateCamera(
		stage.LookAtTransform(mgl32.Vec3{0, 0, -1.8}, mgl32.Vec3{}),
		stage.Camera{ZNear: 0.01, ZFar: 10, Fov: stage.Deg(60)},
	)
	if err != nil {
		return err
	}
	if err := d.display.SetCurrentCamera(cam); err != nil {
		return err
	}
	return d.display.Update(0)
}

func (d *drawToTexture) update(_ *demo.App, t *stage.Tick) error {
	return d.display.Update(t.Delta)
}

func (d *drawToTexture) render(app *demo.App, t *stage.Tick) error {
	var vid stage.ViewID
	rect := stage.MakeRectFromWidthHeight(targetSize, targetSize)
	if err := app.Pipeline.SubmitScene(&vid, t.Scene, rect, rect.AspectRatio(), app.Resources, d.target); err != nil {
		return err
	}

	w, h := app.Platform.FramebufferSize()
	screen := stage.MakeRectFromWidthHeight(w, h)
	return app.Pipeline.SubmitScene(&vid, d.display, screen, screen.AspectRatio(), app.Resources, stage.Backbuffer)
}
