package stage

import (
	"errors"
	"fmt"
	"time"
)

type LoopState int

const (
	LoopInit LoopState = iota
	LoopRunning
	LoopShuttingDown
	LoopTerminated
)

func (s LoopState) String() string {
	switch s {
	case LoopInit:
		return "init"
	case LoopRunning:
		return "running"
	case LoopShuttingDown:
		return "shutting down"
	case LoopTerminated:
		return "terminated"
	}
	return fmt.Sprintf("LoopState(%d)", int(s))
}

// Subsystem is one platform service acquired by Init and released by
// Shutdown, such as input, the window or the renderer.
type Subsystem struct {
	Name    string
	Acquire func() error
	Release func() error
}

// Tick is passed to the per-tick hooks.
type Tick struct {
	Frame uint64
	// Delta is the clamped frame time, Raw the measured one.
	Delta time.Duration
	Raw   time.Duration
	Input InputState
	Scene *Scene
	Loop  *Loop
}

type LoopConfig struct {
	Subsystems []Subsystem
	// Window is called once every subsystem is acquired.
	Window   func() Window
	Scene    *Scene
	Clock    Clock
	MaxDelta time.Duration
	Update   func(*Tick) error
	Render   func(*Tick) error
}

// Loop drives a scene through Init, Running, ShuttingDown and Terminated.
//
// Each tick polls input, runs the Update hook, updates the scene, collects
// garbage when requested, runs the Render hook and presents. Quit requests
// take effect between ticks.
type Loop struct {
	cfg      LoopConfig
	state    LoopState
	acquired []Subsystem
	window   Window
	last     time.Time
	frame    uint64

	gcRequested bool
	stop        bool
	lastGC      GCReport
}

func newLoop(cfg LoopConfig) *Loop {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.MaxDelta == 0 {
		cfg.MaxDelta = Config.MaxDelta()
	}
	if cfg.Scene == nil {
		cfg.Scene = newScene(nil)
	}
	return &Loop{cfg: cfg}
}

func (l *Loop) State() LoopState {
	return l.state
}

func (l *Loop) Scene() *Scene {
	return l.cfg.Scene
}

func (l *Loop) Frame() uint64 {
	return l.frame
}

// LastGC reports the most recent collection run by the loop.
func (l *Loop) LastGC() GCReport {
	return l.lastGC
}

func (l *Loop) setState(s LoopState) {
	Config.Logger().Debug("loop state", "from", l.state, "to", s)
	l.state = s
}

// Init acquires the subsystems in order. On failure the ones already acquired
// are released in reverse order, the loop terminates and a FatalInitError
// is returned.
func (l *Loop) Init() error {
	if l.state != LoopInit {
		return fmt.Errorf("loop cannot init in state %s", l.state)
	}
	for _, sub := range l.cfg.Subsystems {
		if sub.Acquire != nil {
			if err := sub.Acquire(); err != nil {
				if rerr := l.releaseAll(); rerr != nil {
					Config.Logger().Error("release after failed init", "err", rerr)
				}
				l.setState(LoopTerminated)
				return FatalInitError{Subsystem: sub.Name, Err: err}
			}
		}
		l.acquired = append(l.acquired, sub)
	}
	if l.cfg.Window != nil {
		l.window = l.cfg.Window()
	}
	l.last = l.cfg.Clock.Now()
	l.setState(LoopRunning)
	return nil
}

// RequestGC asks for a reconciled garbage collection after the next scene
// update.
func (l *Loop) RequestGC() {
	l.gcRequested = true
}

// Stop ends the loop after the current tick.
func (l *Loop) Stop() {
	l.stop = true
}

func (l *Loop) delta() (clamped, raw time.Duration) {
	now := l.cfg.Clock.Now()
	raw = now.Sub(l.last)
	l.last = now
	clamped = raw
	if clamped < 0 {
		clamped = 0
	}
	if l.cfg.MaxDelta > 0 && clamped > l.cfg.MaxDelta {
		clamped = l.cfg.MaxDelta
	}
	return clamped, raw
}

// Step runs one tick and reports whether the loop should keep running.
func (l *Loop) Step() (bool, error) {
	if l.state != LoopRunning {
		return false, nil
	}
	tick := &Tick{Frame: l.frame, Scene: l.cfg.Scene, Loop: l}
	if l.window != nil {
		tick.Input = l.window.PollEvents()
	}
	tick.Delta, tick.Raw = l.delta()

	if l.cfg.Update != nil {
		if err := l.cfg.Update(tick); err != nil {
			return false, fmt.Errorf("update hook: %w", err)
		}
	}
	if err := l.cfg.Scene.Update(tick.Delta); err != nil {
		return false, fmt.Errorf("scene update: %w", err)
	}
	if l.gcRequested {
		l.lastGC = l.cfg.Scene.GarbageCollectAll()
		l.gcRequested = false
	}
	if l.cfg.Render != nil {
		if err := l.cfg.Render(tick); err != nil {
			return false, fmt.Errorf("render hook: %w", err)
		}
	}
	if l.window != nil {
		if err := l.window.Present(); err != nil {
			return false, fmt.Errorf("present: %w", err)
		}
	}
	l.frame++

	if l.stop || tick.Input.Quit || (l.window != nil && !l.window.IsOpen()) {
		return false, nil
	}
	return true, nil
}

// Run initializes the loop if needed, ticks until quit and shuts down.
func (l *Loop) Run() error {
	if l.state == LoopInit {
		if err := l.Init(); err != nil {
			return err
		}
	}
	var runErr error
	for {
		running, err := l.Step()
		if err != nil {
			runErr = err
			break
		}
		if !running {
			break
		}
	}
	return errors.Join(runErr, l.Shutdown())
}

// Shutdown releases the acquired subsystems in reverse acquisition order.
func (l *Loop) Shutdown() error {
	if l.state == LoopTerminated {
		return nil
	}
	l.setState(LoopShuttingDown)
	err := l.releaseAll()
	l.setState(LoopTerminated)
	Config.Logger().Info("loop terminated", "frames", l.frame)
	return err
}

func (l *Loop) releaseAll() error {
	var errs []error
	for i := len(l.acquired) - 1; i >= 0; i-- {
		sub := l.acquired[i]
		if sub.Release == nil {
			continue
		}
		if err := sub.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", sub.Name, err))
		}
	}
	l.acquired = nil
	return errors.Join(errs...)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock advances by Step on every reading.
type FixedClock struct {
	Current time.Time
	Step    time.Duration
}

func (c *FixedClock) Now() time.Time {
	now := c.Current
	c.Current = c.Current.Add(c.Step)
	return now
}
