// Package desktop provides the GLFW window and input subsystems of the demo
// programs.
package desktop

import (
	"fmt"

	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Options struct {
	Title      string
	Width      int
	Height     int
	VSync      bool
	Fullscreen bool
}

// Platform owns the GLFW library and one window with an OpenGL 4.1 core
// context. GLFW requires every call to come from the main thread.
type Platform struct {
	Options Options
	window  *Window
}

func New(opts Options) *Platform {
	return &Platform{Options: opts}
}

// Subsystems returns the input and window subsystems in acquisition order.
func (p *Platform) Subsystems() []stage.Subsystem {
	return []stage.Subsystem{
		{
			Name: "input",
			Acquire: func() error {
				return glfw.Init()
			},
			Release: func() error {
				glfw.Terminate()
				return nil
			},
		},
		{
			Name:    "window",
			Acquire: p.openWindow,
			Release: func() error {
				if p.window != nil {
					p.window.win.Destroy()
					p.window = nil
				}
				return nil
			},
		},
	}
}

func (p *Platform) openWindow() error {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	var monitor *glfw.Monitor
	if p.Options.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}
	win, err := glfw.CreateWindow(p.Options.Width, p.Options.Height, p.Options.Title, monitor, nil)
	if err != nil {
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.MakeContextCurrent()
	if p.Options.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	p.window = newWindow(win)
	return nil
}

// Window returns the open window, or nil before the window subsystem is
// acquired.
func (p *Platform) Window() stage.Window {
	if p.window == nil {
		return nil
	}
	return p.window
}

// FramebufferSize is the drawable size in pixels.
func (p *Platform) FramebufferSize() (int, int) {
	if p.window == nil {
		return p.Options.Width, p.Options.Height
	}
	return p.window.win.GetFramebufferSize()
}
