package gpu_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"glwindow/internal/gpu"
	"glwindow/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderContextMirrorsBindings(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)

	vao := dev.GenVertexArray()
	vbo := dev.GenBuffer()
	ebo := dev.GenBuffer()

	rc.BindVertexArray(vao)
	rc.BindBuffer(gpu.ArrayBuffer, vbo)
	rc.BindBuffer(gpu.ElementArrayBuffer, ebo)
	rc.EnableAttribute(1)
	rc.EnableAttribute(0)

	assert.Equal(t, vao, rc.BoundVertexArray())
	assert.Equal(t, vbo, rc.BoundArrayBuffer())
	assert.Equal(t, ebo, rc.BoundElementBuffer())
	assert.Equal(t, []uint32{0, 1}, rc.LiveAttributes())
	assert.Equal(t, dev.EnabledSlots(vao), rc.LiveAttributes())

	rc.BindVertexArray(0)
	assert.Empty(t, rc.LiveAttributes())
	assert.Zero(t, rc.BoundElementBuffer())
	assert.Equal(t, []uint32{0, 1}, rc.EnabledAttributes(vao), "slots stay recorded in the vertex array")

	rc.BindVertexArray(vao)
	assert.Equal(t, ebo, rc.BoundElementBuffer())
	assert.Zero(t, dev.PendingErrors())
}

func TestWithVertexArrayUnbinds(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)
	vao := dev.GenVertexArray()

	unbind := rc.WithVertexArray(vao)
	assert.Equal(t, vao, dev.BoundVertexArray())
	assert.Equal(t, vao, rc.BoundVertexArray())
	unbind()
	assert.Zero(t, dev.BoundVertexArray())
	assert.Zero(t, rc.BoundVertexArray())
	assert.Empty(t, rc.LiveAttributes())
}

func TestWithVertexArrayUnbindsOnPanic(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)
	vao := dev.GenVertexArray()

	assert.Panics(t, func() {
		defer rc.WithVertexArray(vao)()
		panic("setup failed")
	})
	assert.Zero(t, dev.BoundVertexArray())
}

func TestDeleteVertexArrayUnbinds(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)
	vao := dev.GenVertexArray()
	rc.BindVertexArray(vao)
	rc.EnableAttribute(0)

	rc.DeleteVertexArray(vao)

	assert.Zero(t, rc.BoundVertexArray())
	assert.Empty(t, rc.EnabledAttributes(vao))
	assert.Zero(t, dev.LiveVertexArrays())
}

func TestClearColorAndViewport(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)

	rc.SetClearColor(mgl32.Vec4{0.1, 0.2, 0.3, 1})
	rc.SetViewport(0, 0, 640, 480)

	assert.Equal(t, mgl32.Vec4{0.1, 0.2, 0.3, 1}, rc.ClearColor())
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, dev.ClearColorValue())
	assert.Equal(t, [4]int32{0, 0, 640, 480}, rc.Viewport())
	assert.Equal(t, [4]int32{0, 0, 640, 480}, dev.ViewportValue())
}

func TestCheckedReportsDriverError(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)

	// a stale error from an earlier call must not be blamed on op
	dev.FlagError(gpu.InvalidEnum)
	err := gpu.Checked(rc, "noop", func() {})
	require.NoError(t, err)

	err = gpu.Checked(rc, "EnableVertexAttribArray", func() {
		rc.EnableAttribute(0) // no vertex array bound
	})
	var de *gpu.DriverError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, gpu.InvalidOperation, de.Code)
	assert.Equal(t, "EnableVertexAttribArray", de.Label)
	assert.Contains(t, err.Error(), "GL_INVALID_OPERATION")
}

func TestCheckedValueKeepsValue(t *testing.T) {
	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)

	h, err := gpu.CheckedValue(rc, "GenBuffer", dev.GenBuffer)
	require.NoError(t, err)
	assert.NotZero(t, h)

	dev.FailAllocations = true
	h, err = gpu.CheckedValue(rc, "GenBuffer", dev.GenBuffer)
	assert.Zero(t, h)
	var de *gpu.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, gpu.OutOfMemory, de.Code)
}

func TestClearErrorsIsBounded(t *testing.T) {
	dev := gputest.New()
	for i := 0; i < 40; i++ {
		dev.FlagError(gpu.InvalidValue)
	}
	assert.Equal(t, 16, gpu.ClearErrors(dev))
	assert.Equal(t, 24, dev.PendingErrors())
}

func TestDoChecksOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	gpu.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { gpu.SetLogger(nil) })

	dev := gputest.New()
	rc := gpu.NewRenderContext(dev)
	bad := func() { rc.EnableAttribute(3) }

	assert.NoError(t, rc.Do("EnableVertexAttribArray", bad))
	assert.Equal(t, 1, dev.PendingErrors(), "unchecked call leaves the error flag set")
	assert.Empty(t, buf.String())

	rc.SetCheckCalls(true)
	require.True(t, rc.CheckCalls())
	assert.Error(t, rc.Do("EnableVertexAttribArray", bad))
	assert.Contains(t, buf.String(), "driver call failed")
	assert.Contains(t, buf.String(), "call=EnableVertexAttribArray")
}

func TestQueryInfo(t *testing.T) {
	rc := gpu.NewRenderContext(gputest.New())
	info := gpu.QueryInfo(rc)
	assert.Equal(t, "4.1 gputest", info.Version)
	assert.Equal(t, "4.10", info.GLSL)
	assert.NotEmpty(t, info.Vendor)
	assert.NotEmpty(t, info.Renderer)
}

func TestLoggerDefaultSilent(t *testing.T) {
	gpu.SetLogger(nil)
	l := gpu.Logger()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
