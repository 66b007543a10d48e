package graphics

import (
	"errors"
	"fmt"
	"strings"

	"glwindow/internal/gpu"
)

// ErrNoLayout is returned by BuildProgram when no uploaded geometry is given
// to validate the program against.
var ErrNoLayout = errors.New("graphics: program validation needs an uploaded vertex layout")

// LinkError reports a program that failed to link.
type LinkError struct {
	Program gpu.Handle
	Log     string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link program %d: %s", e.Program, strings.TrimSpace(e.Log))
}

// ProgramSource holds the source text of the two stages of a program.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// Program is a linked shader program.
type Program struct {
	ID gpu.Handle

	// Linked is the validity flag: false means the program object exists
	// but cannot be used for drawing.
	Linked bool

	// Validated and ValidationLog hold the advisory validator result
	// against the layout the program was built with.
	Validated     bool
	ValidationLog string
}

// Valid reports whether p can be selected for drawing.
func (p *Program) Valid() bool {
	return p != nil && p.ID != 0 && p.Linked
}

// Use selects p as the current program. Mutates: RenderContext program.
func (p *Program) Use(rc *gpu.RenderContext) {
	rc.UseProgram(p.ID)
}

// Release deletes the program object. Safe to call on a nil program.
func (p *Program) Release(rc *gpu.RenderContext) {
	if p == nil || p.ID == 0 {
		return
	}
	if rc.CurrentProgram() == p.ID {
		rc.UseProgram(0)
	}
	rc.DeleteProgram(p.ID)
	p.ID = 0
	p.Linked = false
}

// BuildProgram builds src with DefaultBuilder.
func BuildProgram(rc *gpu.RenderContext, src ProgramSource, layout *Geometry) (*Program, error) {
	return DefaultBuilder.BuildProgram(rc, src, layout)
}

// BuildProgram compiles both stages of src, links them and validates the
// result against layout's vertex array.
//
// A stage that fails to compile fails the whole build: nothing is linked
// and every object created so far is deleted. A link failure is logged and
// returned as a *LinkError together with the unlinked program, which the
// caller owns and must Release. Validation failures are logged as warnings
// and recorded on the program; they are not errors. The intermediate shader
// units are detached and deleted on every path.
//
// Reads: none. Mutates: vertexArray, bound for validation and left unbound.
func (b Builder) BuildProgram(rc *gpu.RenderContext, src ProgramSource, layout *Geometry) (*Program, error) {
	if layout == nil || layout.VAO == 0 {
		return nil, ErrNoLayout
	}

	dev := rc.Device()
	id := dev.CreateProgram()
	if id == 0 {
		return nil, errors.New("could not create program object")
	}

	var units, attached []*ShaderUnit
	defer func() {
		for _, u := range attached {
			dev.DetachShader(id, u.ID)
		}
		for _, u := range units {
			u.Release(rc)
		}
	}()

	for _, stage := range []struct {
		kind   gpu.ShaderStage
		source string
	}{
		{gpu.VertexStage, src.Vertex},
		{gpu.FragmentStage, src.Fragment},
	} {
		u, err := b.CompileShader(rc, stage.kind, stage.source)
		if err != nil {
			rc.DeleteProgram(id)
			return nil, err
		}
		units = append(units, u)
	}

	for _, u := range units {
		dev.AttachShader(id, u.ID)
		attached = append(attached, u)
	}
	dev.LinkProgram(id)

	prog := &Program{ID: id}
	if dev.GetProgramiv(id, gpu.LinkStatus) == gpu.False {
		log := ProgramInfoLog(rc, id, b.LogLimit)
		gpu.Logger().Error("program link failed", "program", uint32(id), "log", strings.TrimSpace(log))
		return prog, &LinkError{Program: id, Log: log}
	}
	prog.Linked = true
	prog.Validated, prog.ValidationLog = b.validate(rc, id, layout.VAO)
	return prog, nil
}

// validate runs the driver validator with vao bound and unbinds it again
// whatever the outcome.
func (b Builder) validate(rc *gpu.RenderContext, program, vao gpu.Handle) (bool, string) {
	defer rc.WithVertexArray(vao)()

	dev := rc.Device()
	dev.ValidateProgram(program)
	if dev.GetProgramiv(program, gpu.ValidateStatus) != gpu.False {
		return true, ""
	}
	log := ProgramInfoLog(rc, program, b.LogLimit)
	gpu.Logger().Warn("program validation failed", "program", uint32(program), "log", strings.TrimSpace(log))
	return false, log
}
