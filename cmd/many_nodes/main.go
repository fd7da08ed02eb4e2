// Command many_nodes animates a large grid of spheres lit by a shadow
// casting spot light.
package main

import (
	"time"

	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/internal/demo"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const gridSize = 100

func main() {
	app, err := demo.New("stage - many nodes")
	if err != nil {
		demo.Exit(err)
	}
	if err := build(app); err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{
		Update: func(app *demo.App, t *stage.Tick) error {
			if t.Frame%120 == 0 {
				stage.Config.Logger().Info("frame", "nodes", app.Scene.NodeCount(), "dt", t.Delta)
			}
			return nil
		},
	}))
}

func build(app *demo.App) error {
	res, scene := app.Resources, app.Scene

	sphere := res.Models.Add("sphere", stage.CreateSphereModel(0.1, 8, 16))
	ground := res.Models.Add("ground", stage.CreateCubeModel(60, 0.001, 60))
	mat := res.Materials.Add("white", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{1, 1, 1, 1}),
	))

	if _, err := scene.CreateObject(stage.IdentityTransform(), ground, mat); err != nil {
		return err
	}

	cam, err := scene.CreateCamera(
		stage.EulerTransform(mgl32.Vec3{15.5, 5, -6}, mgl32.Vec3{0.4, -1.2, 0}),
		stage.Camera{ZNear: 0.01, ZFar: 100, Fov: stage.Deg(45)},
	)
	if err != nil {
		return err
	}
	if err := scene.SetCurrentCamera(cam); err != nil {
		return err
	}

	_, err = scene.CreateSpotLight(
		stage.EulerTransform(mgl32.Vec3{-8.8, 21.7, -8.8}, mgl32.Vec3{stage.Deg(60), stage.Deg(45), 0}),
		0, stage.Deg(5), stage.Deg(30), stage.White, stage.White, stage.ShadowMap, 0.000005,
	)
	if err != nil {
		return err
	}

	motion := stage.NewMotionBridge()
	scene.AddBridge(motion)
	for j := 0; j < gridSize; j++ {
		for i := 0; i < gridSize; i++ {
			pos := mgl32.Vec3{float32(i-gridSize/2) * 0.3, 0, float32(j-gridSize/2) * 0.3}
			ref, err := scene.CreateObject(stage.TranslationTransform(pos), sphere, mat)
			if err != nil {
				return err
			}
			motion.Attach(ref, ripple(pos, float32(i), float32(j)))
		}
	}
	return nil
}

// ripple lifts a sphere of the grid cell (i, j) along an interference
// pattern travelling across the grid.
func ripple(base mgl32.Vec3, i, j float32) stage.MotionFunc {
	return func(_ *stage.Scene, n stage.Node, elapsed, _ time.Duration) {
		angle := float32(elapsed.Seconds()) * 0.5
		pos := base
		pos[1] = 0.1 * (math32.Cos(angle+j*0.1)*math32.Sin(angle+i*0.1)*6 + 6.5)
		n.Transform().SetPos(pos)
	}
}
