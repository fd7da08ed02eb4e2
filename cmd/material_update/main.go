// Command material_update toggles the diffuse texture of a cube every second,
// or when T is pressed, and switches its program variant to match.
package main

import (
	"time"

	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/internal/demo"
	"github.com/go-gl/mathgl/mgl32"
)

type toggler struct {
	cube     stage.NodeRef
	checker  stage.TextureRef
	textured bool
	delay    time.Duration
	held     bool
}

func main() {
	app, err := demo.New("stage - material update")
	if err != nil {
		demo.Exit(err)
	}
	tg, err := build(app)
	if err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{Update: tg.update}))
}

func build(app *demo.App) (*toggler, error) {
	res, scene := app.Resources, app.Scene

	cube := res.Models.Add("cube", stage.CreateCubeModel(1, 1, 1))
	ground := res.Models.Add("ground", stage.CreateCubeModel(100, 0.01, 100))
	cubeMat := res.Materials.Add("cube", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{1, 1, 1, 1}),
	))
	groundMat := res.Materials.Add("ground", stage.CreateMaterial(app.Program,
		stage.MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{1, 1, 1, 1}),
	))

	cam, err := scene.CreateCamera(
		stage.LookAtTransform(mgl32.Vec3{-1.3, 0.27, -2.47}, mgl32.Vec3{0, 0.5, 0}),
		stage.Camera{ZNear: 0.01, ZFar: 1000, Fov: stage.Deg(45)},
	)
	if err != nil {
		return nil, err
	}
	if err := scene.SetCurrentCamera(cam); err != nil {
		return nil, err
	}

	dim := stage.ColorI(64, 64, 64)
	_, err = scene.CreateLinearLight(
		stage.EulerTransform(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{stage.Deg(27.5), stage.Deg(-97.6), stage.Deg(16.6)}),
		dim, dim, stage.ShadowNone, 0, mgl32.Vec4{},
	)
	if err != nil {
		return nil, err
	}
	_, err = scene.CreateSpotLight(
		stage.EulerTransform(mgl32.Vec3{5, 4, -5}, mgl32.Vec3{stage.Deg(19), stage.Deg(-45), 0}),
		0, stage.Deg(5), stage.Deg(30), stage.White, stage.White, stage.ShadowMap, 0.0001,
	)
	if err != nil {
		return nil, err
	}

	ref, err := scene.CreateObject(stage.TranslationTransform(mgl32.Vec3{0, 0.5, 0}), cube, cubeMat)
	if err != nil {
		return nil, err
	}
	if _, err := scene.CreateObject(stage.IdentityTransform(), ground, groundMat); err != nil {
		return nil, err
	}

	return &toggler{
		cube:    ref,
		checker: res.Textures.Add("checker", checkerTexture(64, 8)),
	}, nil
}

func (tg *toggler) update(app *demo.App, t *stage.Tick) error {
	tg.delay -= t.Delta
	pressed := t.Input.Down(stage.T) && !tg.held
	tg.held = t.Input.Down(stage.T)
	if tg.delay > 0 && !pressed {
		return nil
	}
	tg.delay += time.Second
	if tg.delay < 0 {
		tg.delay = time.Second
	}

	n, err := t.Scene.GetNode(tg.cube)
	if err != nil {
		return err
	}
	obj, ok := n.Object()
	if !ok {
		return stage.ComponentNotFoundError{Component: stage.ObjectComponent}
	}
	ref, _ := obj.Material(0)
	mat, err := app.Resources.Materials.Get(ref)
	if err != nil {
		return err
	}

	tex := tg.checker
	if tg.textured {
		tex = stage.InvalidTextureRef
	}
	stage.SetMaterialTexture(mat, "uDiffuseMap", tex, 0)
	if err := stage.UpdateMaterialProgramVariant(mat, app.Resources); err != nil {
		return err
	}
	tg.textured = !tg.textured

	prg, _ := app.Resources.Programs.Get(mat.Program)
	stage.Config.Logger().Debug("material variant", "variant", prg.VariantName(mat.Variant()))
	return nil
}

// checkerTexture builds a size by size RGBA checker board of cells pixels
// wide squares.
func checkerTexture(size, cells int) stage.Texture {
	pixels := make([]uint8, 0, size*size*4)
	for y := range size {
		for x := range size {
			v := uint8(40)
			if (x/cells+y/cells)%2 == 0 {
				v = 230
			}
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return stage.Texture{Width: size, Height: size, Pixels: pixels}
}
