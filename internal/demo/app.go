// Package demo wires settings, logging, the desktop platform and the GL
// backend into a stage loop for the programs under cmd.
package demo

import (
	"errors"
	"flag"
	"os"
	"runtime"

	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/config"
	"github.com/TheBitDrifter/stage/glrender"
	"github.com/TheBitDrifter/stage/platform/desktop"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

// App is the state shared by every demo: its resources, its scene and,
// once the loop is initialized, the renderer.
type App struct {
	Settings  config.Settings
	Platform  *desktop.Platform
	Resources *stage.Resources
	Scene     *stage.Scene
	Pipeline  *stage.Pipeline
	Backend   *glrender.Backend

	// Program is the default program, registered before the renderer exists
	// so materials can reference it during scene setup.
	Program stage.ProgramRef
	Loop    *stage.Loop
}

// New reads the -config flag, installs the configured logger and prepares
// an empty scene. title overrides the configured window title.
func New(title string) (*App, error) {
	path := flag.String("config", "stage.toml", "settings file (.toml or .yaml)")
	flag.Parse()

	settings, err := config.Load(*path)
	if err != nil {
		return nil, err
	}
	if title != "" {
		settings.Window.Title = title
	}
	stage.Config.SetLogger(settings.Logger(os.Stderr))
	maxDelta, _ := settings.MaxDelta()
	stage.Config.SetMaxDelta(maxDelta)

	res := stage.Factory.NewResources()
	scene := stage.Factory.NewScene(res)
	c := settings.Pipeline.ClearColor
	scene.Canvas.ClearColor = stage.Color{R: c[0], G: c[1], B: c[2], A: c[3]}

	return &App{
		Settings: settings,
		Platform: desktop.New(desktop.Options{
			Title:      settings.Window.Title,
			Width:      settings.Window.Width,
			Height:     settings.Window.Height,
			VSync:      settings.Window.VSync,
			Fullscreen: settings.Window.Fullscreen,
		}),
		Resources: res,
		Scene:     scene,
		Program:   res.Programs.Add("default", glrender.DefaultProgram()),
	}, nil
}

func (a *App) rendererSubsystem() stage.Subsystem {
	return stage.Subsystem{
		Name: "renderer",
		Acquire: func() error {
			backend, err := glrender.New(a.Resources)
			if err != nil {
				return err
			}
			a.Backend = backend
			a.Pipeline = stage.Factory.NewPipeline(backend)
			a.Pipeline.ShadowMapSize = a.Settings.Pipeline.ShadowMapSize
			return nil
		},
		Release: func() error {
			if a.Backend == nil {
				return nil
			}
			err := a.Backend.Release()
			a.Backend, a.Pipeline = nil, nil
			return err
		},
	}
}

// Hooks customizes a demo run. A nil Render draws the current camera into the
// backbuffer. Setup runs once the renderer exists and before the first tick.
type Hooks struct {
	Setup  func(*App) error
	Update func(*App, *stage.Tick) error
	Render func(*App, *stage.Tick) error
}

// Run acquires the platform and the renderer, runs the loop until the window
// closes and releases everything in reverse order.
func (a *App) Run(hooks Hooks) error {
	gcEvery := uint64(a.Settings.Frame.GCEvery)
	cfg := stage.LoopConfig{
		Subsystems: append(a.Platform.Subsystems(), a.rendererSubsystem()),
		Window:     a.Platform.Window,
		Scene:      a.Scene,
		Update: func(t *stage.Tick) error {
			if gcEvery > 0 && t.Frame%gcEvery == 0 {
				t.Loop.RequestGC()
			}
			if hooks.Update == nil {
				return nil
			}
			return hooks.Update(a, t)
		},
		Render: func(t *stage.Tick) error {
			if hooks.Render != nil {
				return hooks.Render(a, t)
			}
			return a.RenderCurrentCamera()
		},
	}
	a.Loop = stage.Factory.NewLoop(cfg)
	if err := a.Loop.Init(); err != nil {
		return err
	}
	if hooks.Setup != nil {
		if err := hooks.Setup(a); err != nil {
			return errors.Join(err, a.Loop.Shutdown())
		}
	}
	return a.Loop.Run()
}

// RenderCurrentCamera submits the scene from its current camera to the full
// backbuffer.
func (a *App) RenderCurrentCamera() error {
	w, h := a.Platform.FramebufferSize()
	rect := stage.MakeRectFromWidthHeight(w, h)
	var vid stage.ViewID
	return a.Pipeline.SubmitScene(&vid, a.Scene, rect, rect.AspectRatio(), a.Resources, stage.Backbuffer)
}

// Exit logs err and terminates the process. Initialization failures exit with
// status 2, other failures with status 1.
func Exit(err error) {
	if err == nil {
		return
	}
	var fatal stage.FatalInitError
	if errors.As(err, &fatal) {
		stage.Config.Logger().Error("initialization failed", "subsystem", fatal.Subsystem, "err", fatal.Err)
		os.Exit(2)
	}
	stage.Config.Logger().Error("demo failed", "err", err)
	os.Exit(1)
}
