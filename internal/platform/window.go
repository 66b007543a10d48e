// Package platform creates the window and OpenGL context with GLFW and
// turns GLFW callbacks into input events.
package platform

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"glwindow/internal/config"
	"glwindow/internal/gpu/gldriver"
	"glwindow/internal/input"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

// Window is a GLFW window with a current OpenGL 4.1 core context.
type Window struct {
	Handle *glfw.Window
	Driver gldriver.Driver

	queue       []input.Event
	interrupted atomic.Bool
}

// NewWindow initializes GLFW, opens a window per cfg, makes its context
// current and loads the OpenGL entry points.
func NewWindow(cfg config.Window) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.Resizable, boolHint(cfg.Resizable))

	handle, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()

	drv, err := gldriver.Init()
	if err != nil {
		handle.Destroy()
		glfw.Terminate()
		return nil, err
	}

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &Window{Handle: handle, Driver: drv}
	w.installCallbacks()
	return w, nil
}

func (w *Window) installCallbacks() {
	w.Handle.SetCloseCallback(func(_ *glfw.Window) {
		w.queue = append(w.queue, input.Event{Kind: input.EventQuit})
	})
	w.Handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		w.queue = append(w.queue, input.Event{
			Kind:   input.EventKey,
			Key:    input.Key(key),
			Action: keyAction(action),
		})
	})
	w.Handle.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := w.Handle.GetCursorPos()
		w.queue = append(w.queue, input.Event{
			Kind:   input.EventMouse,
			Button: int(button),
			Action: keyAction(action),
			X:      x,
			Y:      y,
		})
	})
	w.Handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.queue = append(w.queue, input.Event{Kind: input.EventMouse, Button: -1, X: x, Y: y})
	})
}

// Interrupt asks the frame loop to stop: the next PollEvents reports a quit
// event. Safe to call from any goroutine.
func (w *Window) Interrupt() {
	w.interrupted.Store(true)
}

// PollEvents processes pending GLFW events and appends the queued input
// events to dst.
func (w *Window) PollEvents(dst []input.Event) []input.Event {
	glfw.PollEvents()
	dst = append(dst, w.queue...)
	w.queue = w.queue[:0]
	if w.interrupted.Load() {
		dst = append(dst, input.Event{Kind: input.EventQuit})
	}
	return dst
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

// FramebufferSize returns the drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

// Destroy closes the window and terminates GLFW.
func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func keyAction(a glfw.Action) input.KeyAction {
	switch a {
	case glfw.Press:
		return input.Press
	case glfw.Repeat:
		return input.Repeat
	}
	return input.Release
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
