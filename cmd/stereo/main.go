// Command stereo renders a scene once per eye into offscreen targets and
// shows both targets side by side.
package main

import (
	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/internal/demo"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	eyeSize = 1024
	ipd     = 0.065
)

type stereo struct {
	head   stage.NodeRef
	mirror *stage.Scene
	eyes   [2]stage.FrameBuffer
}

func main() {
	app, err := demo.New("stage - stereo")
	if err != nil {
		demo.Exit(err)
	}
	s := &stereo{}
	if err := s.build(app); err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{Setup: s.setup, Render: s.render}))
}

func (s *stereo) build(app *demo.App) error {
	res, scene := app.Resources, app.Scene

	cube := res.Models.Add("cube", stage.CreateCubeModel(1, 1, 1))
	ground := res.Models.Add("ground", stage.CreateCubeModel(10, 0.01, 10))
	orange := res.Materials.Add("orange", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", stage.ColorI(255, 140, 40).Vec4()),
	))
	grey := res.Materials.Add("grey", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{0.6, 0.6, 0.6, 1}),
	))

	motion := stage.NewMotionBridge()
	scene.AddBridge(motion)
	for i := range 3 {
		ref, err := scene.CreateObject(stage.TranslationTransform(mgl32.Vec3{float32(i-1) * 1.5, 0.5, 0}), cube, orange)
		if err != nil {
			return err
		}
		motion.Attach(ref, stage.SpinMotion(mgl32.Vec3{0, 1, 0}, float32(i+1)*0.5))
	}
	if _, err := scene.CreateObject(stage.IdentityTransform(), ground, grey); err != nil {
		return err
	}
	if _, err := scene.CreatePointLight(mgl32.Vec3{2, 4, 3}, 20, stage.White, stage.White); err != nil {
		return err
	}

	var err error
	s.head, err = scene.CreateCamera(
		stage.LookAtTransform(mgl32.Vec3{0, 1.6, 4}, mgl32.Vec3{0, 0.5, 0}),
		stage.Camera{ZNear: 0.01, ZFar: 100, Fov: stage.Deg(60)},
	)
	if err != nil {
		return err
	}
	return scene.SetCurrentCamera(s.head)
}

// setup creates the eye targets and a mirror scene showing them on two quads
// in front of an orthographic camera.
func (s *stereo) setup(app *demo.App) error {
	res := app.Resources
	s.mirror = stage.Factory.NewScene(res)
	s.mirror.Canvas.ClearColor = stage.Black

	quad := res.Models.Add("eye_quad", stage.CreatePlaneModel(2, 2))
	for i, name := range []string{"eye_left", "eye_right"} {
		fb, tex, err := app.Backend.CreateFrameBuffer(name, eyeSize, eyeSize)
		if err != nil {
			return err
		}
		s.eyes[i] = fb

		mat := stage.CreateMaterial(app.Program, stage.MakeUniformSetValue("uDiffuseColor", stage.White.Vec4()))
		mat.CastShadow = false
		mat.Culling = stage.CullDisabled
		stage.SetMaterialTexture(&mat, "uDiffuseMap", tex, 0)
		if err := stage.UpdateMaterialProgramVariant(&mat, res); err != nil {
			return err
		}
		ref := res.Materials.Add(name, mat)

		pos := mgl32.Vec3{float32(2*i - 1), 0, 0}
		if _, err := s.mirror.CreateObject(stage.EulerTransform(pos, mgl32.Vec3{stage.Deg(90), 0, 0}), quad, ref); err != nil {
			return err
		}
	}
	s.mirror.Environment.Ambient = stage.White

	cam, err := s.mirror.CreateCamera(
		stage.TranslationTransform(mgl32.Vec3{0, 0, 5}),
		stage.Camera{ZNear: 0.1, ZFar: 10, Ortho: true, Size: 2},
	)
	if err != nil {
		return err
	}
	if err := s.mirror.SetCurrentCamera(cam); err != nil {
		return err
	}
	return s.mirror.Update(0)
}

func (s *stereo) render(app *demo.App, t *stage.Tick) error {
	head, err := t.Scene.GetNode(s.head)
	if err != nil {
		return err
	}
	left, right := stage.ComputeStereoViewStates(head.Transform().World(), ipd, stage.Deg(60), 1, 0.01, 100)
	rect := stage.MakeRectFromWidthHeight(eyeSize, eyeSize)

	var vid stage.ViewID
	err = app.Pipeline.SubmitStereo(&vid, t.Scene,
		stage.ViewSpec{Rect: rect, State: left, Target: s.eyes[0]},
		stage.ViewSpec{Rect: rect, State: right, Target: s.eyes[1]},
		app.Resources,
	)
	if err != nil {
		return err
	}

	w, h := app.Platform.FramebufferSize()
	screen := stage.MakeRectFromWidthHeight(w, h)
	return app.Pipeline.SubmitScene(&vid, s.mirror, screen, screen.AspectRatio(), app.Resources, stage.Backbuffer)
}
