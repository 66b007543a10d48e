package graphics

import (
	"errors"
	"fmt"
	"strings"

	"glwindow/internal/gpu"
)

// ErrEmptySource is returned when a shader stage is given no source text.
var ErrEmptySource = errors.New("graphics: empty shader source")

// CompileError reports a shader stage that failed to compile.
type CompileError struct {
	Stage gpu.ShaderStage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, strings.TrimSpace(e.Log))
}

// ShaderUnit is a compiled, not yet linked, shader stage.
type ShaderUnit struct {
	ID    gpu.Handle
	Stage gpu.ShaderStage
}

// Release deletes the unit. Safe to call on a nil unit.
func (u *ShaderUnit) Release(rc *gpu.RenderContext) {
	if u == nil || u.ID == 0 {
		return
	}
	rc.Device().DeleteShader(u.ID)
	u.ID = 0
}

// Builder compiles and links shaders. The zero value fetches no diagnostic
// text; use DefaultBuilder or set LogLimit.
type Builder struct {
	// LogLimit caps the bytes of compiler/linker output fetched per failure.
	LogLimit int
}

// DefaultBuilder fetches up to DefaultLogLimit bytes of diagnostics.
var DefaultBuilder = Builder{LogLimit: DefaultLogLimit}

// CompileShader compiles source with DefaultBuilder.
func CompileShader(rc *gpu.RenderContext, stage gpu.ShaderStage, source string) (*ShaderUnit, error) {
	return DefaultBuilder.CompileShader(rc, stage, source)
}

// CompileShader compiles source as a stage shader. It never returns a unit
// in a failed state: on failure the object is deleted, the compiler output is
// logged and returned inside a *CompileError.
//
// Reads and mutates no RenderContext binding state.
func (b Builder) CompileShader(rc *gpu.RenderContext, stage gpu.ShaderStage, source string) (*ShaderUnit, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%s shader: %w", stage, ErrEmptySource)
	}

	dev := rc.Device()
	id := dev.CreateShader(stage)
	if id == 0 {
		return nil, fmt.Errorf("could not create %s shader object", stage)
	}
	dev.ShaderSource(id, source)
	dev.CompileShader(id)

	if dev.GetShaderiv(id, gpu.CompileStatus) == gpu.False {
		log := ShaderInfoLog(rc, id, b.LogLimit)
		dev.DeleteShader(id)
		gpu.Logger().Error("shader compilation failed", "stage", stage.String(), "log", strings.TrimSpace(log))
		return nil, &CompileError{Stage: stage, Log: log}
	}
	return &ShaderUnit{ID: id, Stage: stage}, nil
}
