package gpu

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderContext mirrors the driver's single-slot binding state next to the
// Device that owns it. Pipeline operations take it explicitly instead of
// relying on whatever happens to be current, and each documents which
// fields it reads and mutates.
//
// A RenderContext is not safe for concurrent use; like the context it wraps
// it belongs to one thread.
type RenderContext struct {
	dev        Device
	checkCalls bool

	program     Handle
	vertexArray Handle
	arrayBuffer Handle

	// element buffer bindings and enabled attribute slots are per vertex
	// array state in the driver
	elementBuffers map[Handle]Handle
	enabled        map[Handle]map[uint32]bool

	clearColor mgl32.Vec4
	viewport   [4]int32
}

// NewRenderContext wraps dev with nothing bound.
func NewRenderContext(dev Device) *RenderContext {
	return &RenderContext{
		dev:            dev,
		elementBuffers: make(map[Handle]Handle),
		enabled:        make(map[Handle]map[uint32]bool),
	}
}

// Device returns the wrapped device.
func (rc *RenderContext) Device() Device { return rc.dev }

// SetCheckCalls turns per-call error checking for Do on or off.
func (rc *RenderContext) SetCheckCalls(on bool) { rc.checkCalls = on }

// CheckCalls reports whether Do checks the error state around each call.
func (rc *RenderContext) CheckCalls() bool { return rc.checkCalls }

// CurrentProgram returns the program selected by UseProgram, or 0.
func (rc *RenderContext) CurrentProgram() Handle { return rc.program }

// BoundVertexArray returns the bound vertex array, or 0.
func (rc *RenderContext) BoundVertexArray() Handle { return rc.vertexArray }

// BoundArrayBuffer returns the buffer bound to ArrayBuffer, or 0.
func (rc *RenderContext) BoundArrayBuffer() Handle { return rc.arrayBuffer }

// BoundElementBuffer returns the element buffer recorded in the bound
// vertex array, or 0 when no vertex array is bound.
func (rc *RenderContext) BoundElementBuffer() Handle {
	if rc.vertexArray == 0 {
		return 0
	}
	return rc.elementBuffers[rc.vertexArray]
}

// LiveAttributes returns the enabled attribute slots that currently feed
// draw calls, in ascending order. With no vertex array bound there are none.
func (rc *RenderContext) LiveAttributes() []uint32 {
	if rc.vertexArray == 0 {
		return nil
	}
	return sortedSlots(rc.enabled[rc.vertexArray])
}

// EnabledAttributes returns the slots enabled in vao whether or not it is
// bound.
func (rc *RenderContext) EnabledAttributes(vao Handle) []uint32 {
	return sortedSlots(rc.enabled[vao])
}

// ClearColor returns the configured clear color.
func (rc *RenderContext) ClearColor() mgl32.Vec4 { return rc.clearColor }

// Viewport returns the configured viewport as x, y, width, height.
func (rc *RenderContext) Viewport() [4]int32 { return rc.viewport }

// UseProgram selects program as current. Mutates: program.
func (rc *RenderContext) UseProgram(program Handle) {
	rc.dev.UseProgram(program)
	rc.program = program
}

// BindVertexArray binds vao. Mutates: vertexArray.
func (rc *RenderContext) BindVertexArray(vao Handle) {
	rc.dev.BindVertexArray(vao)
	rc.vertexArray = vao
}

// BindBuffer binds buffer to target. Binding ElementArrayBuffer records the
// buffer in the bound vertex array. Mutates: arrayBuffer or elementBuffers.
func (rc *RenderContext) BindBuffer(target BufferTarget, buffer Handle) {
	rc.dev.BindBuffer(target, buffer)
	switch target {
	case ArrayBuffer:
		rc.arrayBuffer = buffer
	case ElementArrayBuffer:
		if rc.vertexArray != 0 {
			rc.elementBuffers[rc.vertexArray] = buffer
		}
	}
}

// EnableAttribute enables slot in the bound vertex array. Reads: vertexArray.
func (rc *RenderContext) EnableAttribute(slot uint32) {
	rc.dev.EnableVertexAttribArray(slot)
	if rc.vertexArray == 0 {
		return
	}
	set := rc.enabled[rc.vertexArray]
	if set == nil {
		set = make(map[uint32]bool)
		rc.enabled[rc.vertexArray] = set
	}
	set[slot] = true
}

// SetClearColor configures the color used by Clear. Mutates: clearColor.
func (rc *RenderContext) SetClearColor(c mgl32.Vec4) {
	rc.dev.ClearColor(c[0], c[1], c[2], c[3])
	rc.clearColor = c
}

// SetViewport configures the viewport rectangle. Mutates: viewport.
func (rc *RenderContext) SetViewport(x, y, width, height int32) {
	rc.dev.Viewport(x, y, width, height)
	rc.viewport = [4]int32{x, y, width, height}
}

// WithVertexArray binds vao and returns a func that leaves no vertex array
// bound. Use it with defer so the unbind runs on every exit path.
//
// Mutates: vertexArray.
func (rc *RenderContext) WithVertexArray(vao Handle) (unbind func()) {
	rc.BindVertexArray(vao)
	return func() { rc.BindVertexArray(0) }
}

// DeleteVertexArray deletes vao. The driver unbinds a deleted vertex array,
// so the mirror drops it too.
func (rc *RenderContext) DeleteVertexArray(vao Handle) {
	if vao == 0 {
		return
	}
	rc.dev.DeleteVertexArray(vao)
	if rc.vertexArray == vao {
		rc.vertexArray = 0
	}
	delete(rc.elementBuffers, vao)
	delete(rc.enabled, vao)
}

// DeleteBuffer deletes buffer and drops it from every binding that names it.
func (rc *RenderContext) DeleteBuffer(buffer Handle) {
	if buffer == 0 {
		return
	}
	rc.dev.DeleteBuffer(buffer)
	if rc.arrayBuffer == buffer {
		rc.arrayBuffer = 0
	}
	for vao, ebo := range rc.elementBuffers {
		if ebo == buffer {
			delete(rc.elementBuffers, vao)
		}
	}
}

// DeleteProgram deletes program. A current program stays in use until
// another one is selected, so the mirror keeps it.
func (rc *RenderContext) DeleteProgram(program Handle) {
	if program == 0 {
		return
	}
	rc.dev.DeleteProgram(program)
}

func sortedSlots(set map[uint32]bool) []uint32 {
	if len(set) == 0 {
		return nil
	}
	out := make([]uint32, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
