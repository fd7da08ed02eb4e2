package desktop

import (
	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var keyMap = map[glfw.Key]stage.Key{
	glfw.KeyEscape: stage.KeyEscape,
	glfw.KeySpace:  stage.KeySpace,
	glfw.KeyUp:     stage.KeyUp,
	glfw.KeyDown:   stage.KeyDown,
	glfw.KeyLeft:   stage.KeyLeft,
	glfw.KeyRight:  stage.KeyRight,
	glfw.KeyW:      stage.KeyW,
	glfw.KeyA:      stage.KeyA,
	glfw.KeyS:      stage.KeyS,
	glfw.KeyD:      stage.KeyD,
	glfw.KeyT:      stage.KeyT,
}

// Window adapts a GLFW window to stage.Window.
type Window struct {
	win          *glfw.Window
	lastX, lastY float64
	firstMouse   bool
}

var _ stage.Window = &Window{}

func newWindow(win *glfw.Window) *Window {
	return &Window{win: win, firstMouse: true}
}

func (w *Window) PollEvents() stage.InputState {
	glfw.PollEvents()
	in := stage.InputState{Keys: make(map[stage.Key]bool, len(keyMap))}
	for gk, sk := range keyMap {
		if w.win.GetKey(gk) == glfw.Press {
			in.Keys[sk] = true
		}
	}
	x, y := w.win.GetCursorPos()
	if w.firstMouse {
		w.lastX, w.lastY = x, y
		w.firstMouse = false
	}
	in.MouseX, in.MouseY = float32(x), float32(y)
	in.MouseDeltaX, in.MouseDeltaY = float32(x-w.lastX), float32(y-w.lastY)
	w.lastX, w.lastY = x, y
	in.Width, in.Height = w.win.GetFramebufferSize()
	in.Quit = w.win.ShouldClose() || in.Keys[stage.KeyEscape]
	return in
}

func (w *Window) IsOpen() bool {
	return !w.win.ShouldClose()
}

func (w *Window) Present() error {
	w.win.SwapBuffers()
	return nil
}
