// Package gldriver implements gpu.Device on top of OpenGL 4.1 core.
package gldriver

import (
	"fmt"

	"glwindow/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Driver forwards gpu.Device calls to the OpenGL context current on the
// calling thread.
type Driver struct{}

var _ gpu.Device = Driver{}

// Init loads the OpenGL entry points. Call it once, after the context has
// been made current, on the thread that owns the context.
func Init() (Driver, error) {
	if err := gl.Init(); err != nil {
		return Driver{}, fmt.Errorf("could not initialize OpenGL: %w", err)
	}
	return Driver{}, nil
}

func (Driver) CreateShader(stage gpu.ShaderStage) gpu.Handle {
	return gpu.Handle(gl.CreateShader(uint32(stage)))
}

func (Driver) ShaderSource(shader gpu.Handle, source string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(uint32(shader), 1, csources, nil)
	free()
}

func (Driver) CompileShader(shader gpu.Handle) { gl.CompileShader(uint32(shader)) }

func (Driver) GetShaderiv(shader gpu.Handle, param gpu.Param) int32 {
	var v int32
	gl.GetShaderiv(uint32(shader), uint32(param), &v)
	return v
}

func (d Driver) GetShaderInfoLog(shader gpu.Handle, limit int) string {
	n := clampLog(d.GetShaderiv(shader, gpu.InfoLogLength), limit)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n+1)
	var written int32
	gl.GetShaderInfoLog(uint32(shader), int32(len(buf)), &written, &buf[0])
	return string(buf[:written])
}

func (Driver) DeleteShader(shader gpu.Handle) { gl.DeleteShader(uint32(shader)) }

func (Driver) CreateProgram() gpu.Handle { return gpu.Handle(gl.CreateProgram()) }

func (Driver) AttachShader(program, shader gpu.Handle) {
	gl.AttachShader(uint32(program), uint32(shader))
}

func (Driver) DetachShader(program, shader gpu.Handle) {
	gl.DetachShader(uint32(program), uint32(shader))
}

func (Driver) LinkProgram(program gpu.Handle)     { gl.LinkProgram(uint32(program)) }
func (Driver) ValidateProgram(program gpu.Handle) { gl.ValidateProgram(uint32(program)) }

func (Driver) GetProgramiv(program gpu.Handle, param gpu.Param) int32 {
	var v int32
	gl.GetProgramiv(uint32(program), uint32(param), &v)
	return v
}

func (d Driver) GetProgramInfoLog(program gpu.Handle, limit int) string {
	n := clampLog(d.GetProgramiv(program, gpu.InfoLogLength), limit)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n+1)
	var written int32
	gl.GetProgramInfoLog(uint32(program), int32(len(buf)), &written, &buf[0])
	return string(buf[:written])
}

func (Driver) UseProgram(program gpu.Handle)    { gl.UseProgram(uint32(program)) }
func (Driver) DeleteProgram(program gpu.Handle) { gl.DeleteProgram(uint32(program)) }

func (Driver) GenVertexArray() gpu.Handle {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return gpu.Handle(vao)
}

func (Driver) BindVertexArray(vao gpu.Handle) { gl.BindVertexArray(uint32(vao)) }

func (Driver) DeleteVertexArray(vao gpu.Handle) {
	id := uint32(vao)
	gl.DeleteVertexArrays(1, &id)
}

func (Driver) GenBuffer() gpu.Handle {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return gpu.Handle(buf)
}

func (Driver) BindBuffer(target gpu.BufferTarget, buffer gpu.Handle) {
	gl.BindBuffer(uint32(target), uint32(buffer))
}

func (Driver) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	if len(data) == 0 {
		gl.BufferData(uint32(target), 0, nil, uint32(usage))
		return
	}
	gl.BufferData(uint32(target), len(data), gl.Ptr(data), uint32(usage))
}

func (Driver) DeleteBuffer(buffer gpu.Handle) {
	id := uint32(buffer)
	gl.DeleteBuffers(1, &id)
}

func (Driver) VertexAttribPointer(slot uint32, size int32, typ gpu.DataType, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(slot, size, uint32(typ), normalized, stride, uintptr(offset))
}

func (Driver) EnableVertexAttribArray(slot uint32) { gl.EnableVertexAttribArray(slot) }

func (Driver) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }
func (Driver) ClearColor(r, g, b, a float32)      { gl.ClearColor(r, g, b, a) }
func (Driver) Clear(mask gpu.ClearMask)           { gl.Clear(uint32(mask)) }

func (Driver) DrawArrays(mode gpu.Primitive, first, count int32) {
	gl.DrawArrays(uint32(mode), first, count)
}

func (Driver) DrawElements(mode gpu.Primitive, count int32, typ gpu.DataType, offset int) {
	gl.DrawElementsWithOffset(uint32(mode), count, uint32(typ), uintptr(offset))
}

func (Driver) GetError() uint32 { return gl.GetError() }

func (Driver) GetString(name gpu.StringName) string {
	s := gl.GetString(uint32(name))
	if s == nil {
		return ""
	}
	return gl.GoStr(s)
}

// clampLog turns a reported log length (which counts the terminating NUL)
// into the number of text bytes to fetch.
func clampLog(length int32, limit int) int {
	n := int(length) - 1
	if n <= 0 || limit <= 0 {
		return 0
	}
	if n > limit {
		n = limit
	}
	return n
}
