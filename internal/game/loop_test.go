package game

import (
	"bytes"
	"log/slog"
	"testing"

	"glwindow/internal/gpu"
	"glwindow/internal/gpu/gputest"
	"glwindow/internal/graphics"
	"glwindow/internal/input"
	"glwindow/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedWindow hands out one batch of events per PollEvents call.
type scriptedWindow struct {
	batches [][]input.Event
	polls   int
	swaps   int
	width   int
	height  int
}

func (w *scriptedWindow) PollEvents(dst []input.Event) []input.Event {
	w.polls++
	if len(w.batches) == 0 {
		return dst
	}
	next := w.batches[0]
	w.batches = w.batches[1:]
	return append(dst, next...)
}

func (w *scriptedWindow) SwapBuffers() { w.swaps++ }

func (w *scriptedWindow) FramebufferSize() (int, int) { return w.width, w.height }

type fixture struct {
	dev    *gputest.Device
	rc     *gpu.RenderContext
	prog   *graphics.Program
	geom   *graphics.Geometry
	window *scriptedWindow
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	s, err := scene.Lookup(name)
	require.NoError(t, err)

	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)
	geom, err := graphics.Upload(rc, s.Vertices, s.Indices, s.Format)
	require.NoError(t, err)
	prog, err := graphics.BuildProgram(rc, s.Sources, geom)
	require.NoError(t, err)
	require.True(t, prog.Validated)
	dev.ResetCalls()

	return &fixture{
		dev:    dev,
		rc:     rc,
		prog:   prog,
		geom:   geom,
		window: &scriptedWindow{width: 640, height: 480},
	}
}

func (f *fixture) loop(t *testing.T, opts Options) *Loop {
	t.Helper()
	l, err := NewLoop(f.rc, f.window, input.NewManager(), f.prog, f.geom, opts)
	require.NoError(t, err)
	return l
}

func quitEvent() input.Event { return input.Event{Kind: input.EventQuit} }

func escapeEvent() input.Event {
	return input.Event{Kind: input.EventKey, Key: input.KeyEscape, Action: input.Press}
}

func TestTriangleFrame(t *testing.T) {
	f := newFixture(t, "triangle")
	l := f.loop(t, Options{ClearColor: mgl32.Vec4{1, 0, 0, 1}})

	assert.Equal(t, input.Running, l.Step())

	require.Len(t, f.dev.Draws, 1)
	d := f.dev.Draws[0]
	assert.False(t, d.Indexed)
	assert.Equal(t, gpu.Triangles, d.Mode)
	assert.Equal(t, int32(3), d.Count)
	assert.Equal(t, [][3]uint32{{0, 1, 2}}, d.Triangles())
	assert.Equal(t, f.prog.ID, d.Program)
	assert.Equal(t, f.geom.VAO, d.VAO)

	assert.Equal(t, 1, f.window.swaps)
	assert.Equal(t, uint64(1), l.Frames())
	assert.Zero(t, f.dev.PendingErrors())
}

func TestQuadFrame(t *testing.T) {
	f := newFixture(t, "quad")
	l := f.loop(t, Options{})

	l.Step()

	require.Len(t, f.dev.Draws, 1)
	d := f.dev.Draws[0]
	assert.True(t, d.Indexed)
	assert.Equal(t, gpu.UnsignedInt, d.IndexType)
	assert.Equal(t, int32(6), d.Count)
	tris := d.Triangles()
	assert.Equal(t, [][3]uint32{{2, 0, 1}, {3, 2, 1}}, tris)

	// the two triangles share the 1-2 edge
	shared := 0
	for _, v := range tris[0] {
		for _, w := range tris[1] {
			if v == w {
				shared++
			}
		}
	}
	assert.Equal(t, 2, shared)
	assert.Zero(t, f.dev.PendingErrors())
}

func TestFrameLeavesNothingBound(t *testing.T) {
	f := newFixture(t, "quad")
	l := f.loop(t, Options{})

	l.Step()
	assert.Zero(t, f.rc.BoundVertexArray())
	assert.Zero(t, f.rc.CurrentProgram())
	assert.Zero(t, f.dev.BoundVertexArray())
	assert.Zero(t, f.dev.CurrentProgram())
}

func TestPreDrawIsIdempotent(t *testing.T) {
	f := newFixture(t, "triangle")
	l := f.loop(t, Options{ClearColor: mgl32.Vec4{0.2, 0.3, 0.4, 1}})

	l.PreDraw()
	first := f.dev.CallNames()
	color, viewport, prog := f.dev.ClearColorValue(), f.dev.ViewportValue(), f.dev.CurrentProgram()
	f.dev.ResetCalls()

	l.PreDraw()
	assert.Equal(t, first, f.dev.CallNames())
	assert.Equal(t, color, f.dev.ClearColorValue())
	assert.Equal(t, viewport, f.dev.ViewportValue())
	assert.Equal(t, prog, f.dev.CurrentProgram())

	assert.Equal(t, [4]float32{0.2, 0.3, 0.4, 1}, color)
	assert.Equal(t, [4]int32{0, 0, 640, 480}, viewport)
	assert.Equal(t, []gpu.ClearMask{gpu.ColorBufferBit | gpu.DepthBufferBit}, f.dev.Clears())
}

func TestPreDrawFollowsFramebufferSize(t *testing.T) {
	f := newFixture(t, "triangle")
	l := f.loop(t, Options{})

	l.PreDraw()
	f.window.width, f.window.height = 1280, 720
	l.PreDraw()
	assert.Equal(t, [4]int32{0, 0, 1280, 720}, f.dev.ViewportValue())
	assert.Equal(t, [4]int32{0, 0, 1280, 720}, f.rc.Viewport())
}

func TestQuitStopsWithinOneIteration(t *testing.T) {
	noise := []input.Event{
		{Kind: input.EventMouse, Button: -1, X: 10, Y: 20},
		{Kind: input.EventMouse, Button: 0, Action: input.Press},
		{Kind: input.EventKey, Key: input.KeyLeft, Action: input.Press},
		{Kind: input.EventKey, Key: input.KeyLeft, Action: input.Release},
		{Kind: input.EventOther},
	}
	quits := []input.Event{quitEvent(), escapeEvent()}

	for _, q := range quits {
		for before := 0; before <= len(noise); before++ {
			for after := 0; after <= 2; after++ {
				f := newFixture(t, "triangle")
				batch := append([]input.Event(nil), noise[:before]...)
				batch = append(batch, q)
				batch = append(batch, noise[:after]...)
				f.window.batches = [][]input.Event{nil, batch}
				l := f.loop(t, Options{})

				require.Equal(t, input.Running, l.Step())
				require.Len(t, f.dev.Draws, 1)
				require.Equal(t, 1, f.window.swaps)

				assert.Equal(t, input.Stopped, l.Step(), "%s after %d events", q.Kind, before)
				assert.Len(t, f.dev.Draws, 1, "no draw after quit")
				assert.Equal(t, 1, f.window.swaps, "no present after quit")
				assert.Equal(t, uint64(1), l.Frames())

				// a stopped loop stays stopped and stops polling
				polls := f.window.polls
				assert.Equal(t, input.Stopped, l.Step())
				assert.Equal(t, polls, f.window.polls)
			}
		}
	}
}

func TestRunUntilQuit(t *testing.T) {
	f := newFixture(t, "quad")
	f.window.batches = [][]input.Event{nil, nil, nil, {escapeEvent()}}
	l := f.loop(t, Options{})

	l.Run()
	assert.Equal(t, input.Stopped, l.State())
	assert.Equal(t, uint64(3), l.Frames())
	assert.Len(t, f.dev.Draws, 3)
	assert.Equal(t, 3, f.window.swaps)
	assert.Equal(t, 4, f.window.polls)
}

func TestHeldEscapeQuitsOnce(t *testing.T) {
	im := input.NewManager()
	assert.Equal(t, input.Stopped, im.Poll([]input.Event{escapeEvent()}))
	assert.True(t, im.IsActive(input.ActionQuit))
	// auto-repeat of a held key is not a new request
	assert.Equal(t, input.Running, im.Poll([]input.Event{
		{Kind: input.EventKey, Key: input.KeyEscape, Action: input.Repeat},
	}))
}

func TestNewLoopRejectsIncompleteInputs(t *testing.T) {
	f := newFixture(t, "triangle")

	_, err := NewLoop(f.rc, f.window, nil, nil, f.geom, Options{})
	assert.Error(t, err)
	_, err = NewLoop(f.rc, f.window, nil, &graphics.Program{ID: 9}, f.geom, Options{})
	assert.Error(t, err, "unlinked program")
	_, err = NewLoop(f.rc, f.window, nil, f.prog, nil, Options{})
	assert.Error(t, err)
	_, err = NewLoop(f.rc, f.window, nil, f.prog, &graphics.Geometry{}, Options{})
	assert.Error(t, err)

	l, err := NewLoop(f.rc, f.window, nil, f.prog, f.geom, Options{})
	require.NoError(t, err)
	assert.Equal(t, input.Running, l.State())
}

func TestCheckCallsReportsDriverErrors(t *testing.T) {
	var buf bytes.Buffer
	gpu.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { gpu.SetLogger(nil) })

	f := newFixture(t, "triangle")
	f.rc.SetCheckCalls(true)
	l := f.loop(t, Options{})

	// a negative framebuffer size is rejected by the driver
	f.window.width, f.window.height = -1, -1
	l.Step()

	assert.Contains(t, buf.String(), "driver call failed")
	assert.Contains(t, buf.String(), "call=Viewport")
	assert.Contains(t, buf.String(), "GL_INVALID_VALUE")
	assert.Zero(t, f.dev.PendingErrors())
	assert.Len(t, f.dev.Draws, 1, "the frame still draws")
}

func TestSlowFrameWarning(t *testing.T) {
	var buf bytes.Buffer
	gpu.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { gpu.SetLogger(nil) })

	f := newFixture(t, "triangle")
	l := f.loop(t, Options{SlowFrame: 1})

	l.Step()
	assert.Contains(t, buf.String(), "slow frame")
}

func TestDrawScopesVertexArray(t *testing.T) {
	f := newFixture(t, "triangle")
	l := f.loop(t, Options{})
	l.PreDraw()
	f.dev.ResetCalls()

	l.Draw()
	calls := make([]string, len(f.dev.Calls))
	for i, c := range f.dev.Calls {
		calls[i] = c.String()
	}
	assert.Equal(t, []string{
		"BindVertexArray(1)",
		"DrawArrays(4, 0, 3)",
		"BindVertexArray(0)",
		"UseProgram(0)",
	}, calls)
}

func TestRunLogsFrameCap(t *testing.T) {
	var buf bytes.Buffer
	gpu.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { gpu.SetLogger(nil) })

	f := newFixture(t, "triangle")
	f.window.batches = [][]input.Event{{quitEvent()}}
	l := f.loop(t, Options{FPSLimit: 120})

	l.Run()
	assert.Contains(t, buf.String(), "fps_limit=120")
	assert.Zero(t, l.Frames())
}
