package graphics

import (
	"strings"

	"glwindow/internal/gpu"
)

// DefaultLogLimit caps how many bytes of compiler or linker output are
// fetched for a single diagnostic.
const DefaultLogLimit = 1024

// ShaderInfoLog returns up to limit bytes of the compiler output pending on
// shader, or "" when there is none. It only queries; the shader is left
// untouched. Callers fetch it after observing a failed compile status.
func ShaderInfoLog(rc *gpu.RenderContext, shader gpu.Handle, limit int) string {
	dev := rc.Device()
	if limit <= 0 || dev.GetShaderiv(shader, gpu.InfoLogLength) == 0 {
		return ""
	}
	return strings.TrimRight(dev.GetShaderInfoLog(shader, limit), "\x00")
}

// ProgramInfoLog returns up to limit bytes of the linker or validator output
// pending on program, or "".
func ProgramInfoLog(rc *gpu.RenderContext, program gpu.Handle, limit int) string {
	dev := rc.Device()
	if limit <= 0 || dev.GetProgramiv(program, gpu.InfoLogLength) == 0 {
		return ""
	}
	return strings.TrimRight(dev.GetProgramInfoLog(program, limit), "\x00")
}
