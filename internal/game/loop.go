package game

import (
	"errors"
	"time"

	"glwindow/internal/gpu"
	"glwindow/internal/graphics"
	"glwindow/internal/input"
	"glwindow/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Window is what the frame loop needs from the windowing layer.
type Window interface {
	// PollEvents drains pending window events without blocking and appends
	// them to dst.
	PollEvents(dst []input.Event) []input.Event
	// SwapBuffers presents the back buffer.
	SwapBuffers()
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
}

// Options configures a Loop.
type Options struct {
	ClearColor mgl32.Vec4
	// FPSLimit caps the frame rate; 0 means uncapped.
	FPSLimit int
	// SlowFrame is the frame time above which the slowest phases are
	// logged. 0 disables the report.
	SlowFrame time.Duration
}

// Loop draws one program and one geometry every frame until a quit signal
// is polled. It reads the program and geometry but never changes them.
type Loop struct {
	rc       *gpu.RenderContext
	window   Window
	input    *input.Manager
	program  *graphics.Program
	geometry *graphics.Geometry
	draw     graphics.DrawCall

	clear     mgl32.Vec4
	limiter   *FPSLimiter
	slowFrame time.Duration

	state  input.State
	events []input.Event
	frames uint64
}

// NewLoop creates a loop in the Running state.
func NewLoop(rc *gpu.RenderContext, w Window, im *input.Manager, prog *graphics.Program, geom *graphics.Geometry, opts Options) (*Loop, error) {
	if !prog.Valid() {
		return nil, errors.New("frame loop needs a linked program")
	}
	if geom == nil || geom.VAO == 0 {
		return nil, errors.New("frame loop needs uploaded geometry")
	}
	if im == nil {
		im = input.NewManager()
	}
	return &Loop{
		rc:        rc,
		window:    w,
		input:     im,
		program:   prog,
		geometry:  geom,
		draw:      geom.DrawCall(),
		clear:     opts.ClearColor,
		limiter:   NewFPSLimiter(opts.FPSLimit),
		slowFrame: opts.SlowFrame,
		state:     input.Running,
	}, nil
}

// State returns the current loop state.
func (l *Loop) State() input.State { return l.state }

// Frames returns the number of frames presented.
func (l *Loop) Frames() uint64 { return l.frames }

// Run steps the loop until it stops.
func (l *Loop) Run() {
	gpu.Logger().Info("frame loop started", "draw", l.draw.String(), "fps_limit", l.limiter.Limit())
	for l.state == input.Running {
		l.Step()
	}
	gpu.Logger().Info("frame loop stopped", "frames", l.frames)
}

// Step runs one iteration: poll, pre-draw, draw, present. Once a quit is
// polled the loop is Stopped and the rest of the iteration is skipped; a
// Stopped loop does nothing.
func (l *Loop) Step() input.State {
	if l.state == input.Stopped {
		return l.state
	}
	profiling.ResetFrame()
	start := time.Now()

	if l.state = l.Poll(); l.state == input.Stopped {
		return l.state
	}
	l.PreDraw()
	l.Draw()
	l.Present()
	l.frames++

	if d := time.Since(start); l.slowFrame > 0 && d > l.slowFrame {
		gpu.Logger().Warn("slow frame", "duration", d, "top", profiling.TopN(3))
	}
	l.limiter.Wait()
	return l.state
}

// Poll drains pending window events and returns the state they lead to.
func (l *Loop) Poll() input.State {
	defer profiling.Track("game.Poll")()
	l.events = l.window.PollEvents(l.events[:0])
	return l.input.Poll(l.events)
}

// PreDraw resets the viewport to the framebuffer, clears color and depth to
// the configured background and selects the program.
//
// Mutates: viewport, clearColor, program.
func (l *Loop) PreDraw() {
	defer profiling.Track("game.PreDraw")()
	rc := l.rc
	w, h := l.window.FramebufferSize()
	rc.Do("Viewport", func() { rc.SetViewport(0, 0, int32(w), int32(h)) })
	rc.Do("ClearColor", func() { rc.SetClearColor(l.clear) })
	rc.Do("Clear", func() { rc.Device().Clear(gpu.ColorBufferBit | gpu.DepthBufferBit) })
	rc.Do("UseProgram", func() { l.program.Use(rc) })
}

// Draw binds the geometry's vertex array, submits its draw call, then
// unbinds the vertex array and deselects the program.
//
// Reads: program. Mutates: vertexArray, program.
func (l *Loop) Draw() {
	defer profiling.Track("game.Draw")()
	rc := l.rc
	var unbind func()
	rc.Do("BindVertexArray", func() { unbind = rc.WithVertexArray(l.geometry.VAO) })
	rc.Do(l.draw.String(), func() { l.draw.Submit(rc) })
	rc.Do("UnbindVertexArray", unbind)
	rc.Do("UnuseProgram", func() { rc.UseProgram(0) })
}

// Present swaps the back buffer to the front.
func (l *Loop) Present() {
	defer profiling.Track("game.Present")()
	l.window.SwapBuffers()
}
