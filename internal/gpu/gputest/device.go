// Package gputest provides an in-memory gpu.Device for tests.
//
// The device keeps enough state to behave like a strict OpenGL 4.1 core
// context: object lifetimes, per vertex array attribute state, buffer
// contents and error flags. Its shader compiler only understands the small
// GLSL subset used by the built-in scenes.
package gputest

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"glwindow/internal/gpu"
)

// Call is one recorded driver call.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Draw is one recorded draw submission.
type Draw struct {
	Mode      gpu.Primitive
	First     int32
	Count     int32
	Indexed   bool
	IndexType gpu.DataType
	Offset    int
	Program   gpu.Handle
	VAO       gpu.Handle
	// Indices holds the vertex indices the draw consumed, resolved through
	// the element buffer for indexed draws.
	Indices []uint32
}

// Triangles groups d's resolved indices into triangles. Only meaningful for
// Triangles draws.
func (d Draw) Triangles() [][3]uint32 {
	out := make([][3]uint32, 0, len(d.Indices)/3)
	for i := 0; i+2 < len(d.Indices); i += 3 {
		out = append(out, [3]uint32{d.Indices[i], d.Indices[i+1], d.Indices[i+2]})
	}
	return out
}

// Attrib is the recorded layout of one attribute slot.
type Attrib struct {
	Size       int32
	Type       gpu.DataType
	Normalized bool
	Stride     int32
	Offset     int
	Buffer     gpu.Handle
}

type shader struct {
	stage         gpu.ShaderStage
	source        string
	compiled      bool
	log           string
	pendingDelete bool
	attachedTo    map[gpu.Handle]bool
}

type program struct {
	attached  []gpu.Handle
	linked    bool
	validated bool
	log       string
	inputs    []uint32
}

type vertexArray struct {
	attribs map[uint32]Attrib
	enabled map[uint32]bool
	ebo     gpu.Handle
}

// Device is a software gpu.Device. The zero value is not usable; call New.
type Device struct {
	// FailAllocations makes every Create/Gen call return 0 and flag
	// GL_OUT_OF_MEMORY.
	FailAllocations bool

	Calls []Call
	Draws []Draw

	next       gpu.Handle
	shaders    map[gpu.Handle]*shader
	programs   map[gpu.Handle]*program
	vaos       map[gpu.Handle]*vertexArray
	buffers    map[gpu.Handle][]byte
	errs       []uint32
	current    gpu.Handle
	boundVAO   gpu.Handle
	arrayBuf   gpu.Handle
	clearColor [4]float32
	viewport   [4]int32
	clears     []gpu.ClearMask
}

var _ gpu.Device = (*Device)(nil)

// New returns an empty device.
func New() *Device {
	return &Device{
		shaders:  make(map[gpu.Handle]*shader),
		programs: make(map[gpu.Handle]*program),
		vaos:     make(map[gpu.Handle]*vertexArray),
		buffers:  make(map[gpu.Handle][]byte),
	}
}

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) flag(code uint32) {
	d.errs = append(d.errs, code)
}

func (d *Device) alloc() gpu.Handle {
	if d.FailAllocations {
		d.flag(gpu.OutOfMemory)
		return 0
	}
	d.next++
	return d.next
}

// CallNames returns the names of every recorded call, in order.
func (d *Device) CallNames() []string {
	out := make([]string, len(d.Calls))
	for i, c := range d.Calls {
		out[i] = c.Name
	}
	return out
}

// ResetCalls forgets recorded calls and draws; object state is kept.
func (d *Device) ResetCalls() {
	d.Calls = nil
	d.Draws = nil
	d.clears = nil
}

// PendingErrors returns the number of unread error flags.
func (d *Device) PendingErrors() int { return len(d.errs) }

// FlagError queues code as if a driver call had raised it.
func (d *Device) FlagError(code uint32) { d.flag(code) }

// LiveShaders counts shader objects not yet deleted.
func (d *Device) LiveShaders() int { return len(d.shaders) }

// LivePrograms counts program objects not yet deleted.
func (d *Device) LivePrograms() int { return len(d.programs) }

// LiveBuffers counts buffer objects not yet deleted.
func (d *Device) LiveBuffers() int { return len(d.buffers) }

// LiveVertexArrays counts vertex arrays not yet deleted.
func (d *Device) LiveVertexArrays() int { return len(d.vaos) }

// Buffer returns a copy of buffer's contents and whether it exists.
func (d *Device) Buffer(buffer gpu.Handle) ([]byte, bool) {
	b, ok := d.buffers[buffer]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Attribs returns the attribute layout recorded in vao.
func (d *Device) Attribs(vao gpu.Handle) map[uint32]Attrib {
	v, ok := d.vaos[vao]
	if !ok {
		return nil
	}
	out := make(map[uint32]Attrib, len(v.attribs))
	for k, a := range v.attribs {
		out[k] = a
	}
	return out
}

// EnabledSlots returns the enabled attribute slots of vao.
func (d *Device) EnabledSlots(vao gpu.Handle) []uint32 {
	v, ok := d.vaos[vao]
	if !ok {
		return nil
	}
	var out []uint32
	for s, on := range v.enabled {
		if on {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ElementBuffer returns the element buffer recorded in vao.
func (d *Device) ElementBuffer(vao gpu.Handle) gpu.Handle {
	if v, ok := d.vaos[vao]; ok {
		return v.ebo
	}
	return 0
}

// Attached returns the shaders attached to program.
func (d *Device) Attached(prog gpu.Handle) []gpu.Handle {
	if p, ok := d.programs[prog]; ok {
		return append([]gpu.Handle(nil), p.attached...)
	}
	return nil
}

// CurrentProgram returns the program selected with UseProgram.
func (d *Device) CurrentProgram() gpu.Handle { return d.current }

// BoundVertexArray returns the bound vertex array.
func (d *Device) BoundVertexArray() gpu.Handle { return d.boundVAO }

// BoundArrayBuffer returns the buffer bound to ArrayBuffer.
func (d *Device) BoundArrayBuffer() gpu.Handle { return d.arrayBuf }

// ClearColorValue returns the last clear color.
func (d *Device) ClearColorValue() [4]float32 { return d.clearColor }

// ViewportValue returns the last viewport.
func (d *Device) ViewportValue() [4]int32 { return d.viewport }

// Clears returns the masks passed to Clear since the last ResetCalls.
func (d *Device) Clears() []gpu.ClearMask { return append([]gpu.ClearMask(nil), d.clears...) }

func (d *Device) CreateShader(stage gpu.ShaderStage) gpu.Handle {
	d.record("CreateShader", stage)
	if stage != gpu.VertexStage && stage != gpu.FragmentStage {
		d.flag(gpu.InvalidEnum)
		return 0
	}
	h := d.alloc()
	if h != 0 {
		d.shaders[h] = &shader{stage: stage, attachedTo: make(map[gpu.Handle]bool)}
	}
	return h
}

func (d *Device) ShaderSource(sh gpu.Handle, source string) {
	d.record("ShaderSource", sh)
	s, ok := d.shaders[sh]
	if !ok {
		d.flag(gpu.InvalidValue)
		return
	}
	s.source = source
}

func (d *Device) CompileShader(sh gpu.Handle) {
	d.record("CompileShader", sh)
	s, ok := d.shaders[sh]
	if !ok {
		d.flag(gpu.InvalidValue)
		return
	}
	s.log = compileLog(s.source)
	s.compiled = s.log == ""
}

func (d *Device) GetShaderiv(sh gpu.Handle, param gpu.Param) int32 {
	d.record("GetShaderiv", sh, param)
	s, ok := d.shaders[sh]
	if !ok {
		d.flag(gpu.InvalidValue)
		return 0
	}
	switch param {
	case gpu.CompileStatus:
		return boolStatus(s.compiled)
	case gpu.InfoLogLength:
		return logLength(s.log)
	}
	d.flag(gpu.InvalidEnum)
	return 0
}

func (d *Device) GetShaderInfoLog(sh gpu.Handle, limit int) string {
	d.record("GetShaderInfoLog", sh, limit)
	s, ok := d.shaders[sh]
	if !ok {
		d.flag(gpu.InvalidValue)
		return ""
	}
	return truncate(s.log, limit)
}

func (d *Device) DeleteShader(sh gpu.Handle) {
	d.record("DeleteShader", sh)
	if sh == 0 {
		return
	}
	s, ok := d.shaders[sh]
	if !ok {
		d.flag(gpu.InvalidValue)
		return
	}
	if len(s.attachedTo) > 0 {
		s.pendingDelete = true
		return
	}
	delete(d.shaders, sh)
}

func (d *Device) CreateProgram() gpu.Handle {
	d.record("CreateProgram")
	h := d.alloc()
	if h != 0 {
		d.programs[h] = &program{}
	}
	return h
}

func (d *Device) AttachShader(prog, sh gpu.Handle) {
	d.record("AttachShader", prog, sh)
	p, pok := d.programs[prog]
	s, sok := d.shaders[sh]
	if !pok || !sok {
		d.flag(gpu.InvalidValue)
		return
	}
	if s.attachedTo[prog] {
		d.flag(gpu.InvalidOperation)
		return
	}
	s.attachedTo[prog] = true
	p.attached = append(p.attached, sh)
}

func (d *Device) DetachShader(prog, sh gpu.Handle) {
	d.record("DetachShader", prog, sh)
	p, pok := d.programs[prog]
	s, sok := d.shaders[sh]
	if !pok || !sok {
		d.flag(gpu.InvalidValue)
		return
	}
	if !s.attachedTo[prog] {
		d.flag(gpu.InvalidOperation)
		return
	}
	delete(s.attachedTo, prog)
	for i, a := range p.attached {
		if a == sh {
			p.attached = append(p.attached[:i], p.attached[i+1:]...)
			break
		}
	}
	if s.pendingDelete && len(s.attachedTo) == 0 {
		delete(d.shaders, sh)
	}
}

func (d *Device) LinkProgram(prog gpu.Handle) {
	d.record("LinkProgram", prog)
	p, ok := d.programs[prog]
	if !ok {
		d.flag(gpu.InvalidValue)
		return
	}
	p.validated = false
	p.inputs = nil
	var vert, frag *shader
	for _, h := range p.attached {
		s := d.shaders[h]
		switch s.stage {
		case gpu.VertexStage:
			vert = s
		case gpu.FragmentStage:
			frag = s
		}
	}
	p.log = linkLog(vert, frag)
	p.linked = p.log == ""
	if p.linked {
		p.inputs = vertexInputs(vert.source)
	}
}

func (d *Device) ValidateProgram(prog gpu.Handle) {
	d.record("ValidateProgram", prog)
	p, ok := d.programs[prog]
	if !ok {
		d.flag(gpu.InvalidValue)
		return
	}
	p.log = d.validateLog(p)
	p.validated = p.log == ""
}

func (d *Device) validateLog(p *program) string {
	if !p.linked {
		return "Validation Failed: Program is not successfully linked.\n"
	}
	v, ok := d.vaos[d.boundVAO]
	if d.boundVAO == 0 || !ok {
		return "Validation Failed: No vertex array object bound.\n"
	}
	for _, slot := range p.inputs {
		if _, declared := v.attribs[slot]; !declared || !v.enabled[slot] {
			return fmt.Sprintf("Validation Failed: Vertex attribute %d is not enabled with a buffer.\n", slot)
		}
	}
	return ""
}

func (d *Device) GetProgramiv(prog gpu.Handle, param gpu.Param) int32 {
	d.record("GetProgramiv", prog, param)
	p, ok := d.programs[prog]
	if !ok {
		d.flag(gpu.InvalidValue)
		return 0
	}
	switch param {
	case gpu.LinkStatus:
		return boolStatus(p.linked)
	case gpu.ValidateStatus:
		return boolStatus(p.validated)
	case gpu.InfoLogLength:
		return logLength(p.log)
	case gpu.AttachedShaders:
		return int32(len(p.attached))
	}
	d.flag(gpu.InvalidEnum)
	return 0
}

func (d *Device) GetProgramInfoLog(prog gpu.Handle, limit int) string {
	d.record("GetProgramInfoLog", prog, limit)
	p, ok := d.programs[prog]
	if !ok {
		d.flag(gpu.InvalidValue)
		return ""
	}
	return truncate(p.log, limit)
}

func (d *Device) UseProgram(prog gpu.Handle) {
	d.record("UseProgram", prog)
	if prog != 0 {
		p, ok := d.programs[prog]
		if !ok {
			d.flag(gpu.InvalidValue)
			return
		}
		if !p.linked {
			d.flag(gpu.InvalidOperation)
			return
		}
	}
	d.current = prog
}

func (d *Device) DeleteProgram(prog gpu.Handle) {
	d.record("DeleteProgram", prog)
	if prog == 0 {
		return
	}
	p, ok := d.programs[prog]
	if !ok {
		d.flag(gpu.InvalidValue)
		return
	}
	for _, sh := range p.attached {
		if s, ok := d.shaders[sh]; ok {
			delete(s.attachedTo, prog)
			if s.pendingDelete && len(s.attachedTo) == 0 {
				delete(d.shaders, sh)
			}
		}
	}
	delete(d.programs, prog)
}

func (d *Device) GenVertexArray() gpu.Handle {
	d.record("GenVertexArray")
	h := d.alloc()
	if h != 0 {
		d.vaos[h] = &vertexArray{attribs: make(map[uint32]Attrib), enabled: make(map[uint32]bool)}
	}
	return h
}

func (d *Device) BindVertexArray(vao gpu.Handle) {
	d.record("BindVertexArray", vao)
	if vao != 0 {
		if _, ok := d.vaos[vao]; !ok {
			d.flag(gpu.InvalidOperation)
			return
		}
	}
	d.boundVAO = vao
}

func (d *Device) DeleteVertexArray(vao gpu.Handle) {
	d.record("DeleteVertexArray", vao)
	if _, ok := d.vaos[vao]; !ok {
		return
	}
	delete(d.vaos, vao)
	if d.boundVAO == vao {
		d.boundVAO = 0
	}
}

func (d *Device) GenBuffer() gpu.Handle {
	d.record("GenBuffer")
	h := d.alloc()
	if h != 0 {
		d.buffers[h] = nil
	}
	return h
}

func (d *Device) BindBuffer(target gpu.BufferTarget, buffer gpu.Handle) {
	d.record("BindBuffer", target, buffer)
	if buffer != 0 {
		if _, ok := d.buffers[buffer]; !ok {
			d.flag(gpu.InvalidValue)
			return
		}
	}
	switch target {
	case gpu.ArrayBuffer:
		d.arrayBuf = buffer
	case gpu.ElementArrayBuffer:
		if v, ok := d.vaos[d.boundVAO]; ok {
			v.ebo = buffer
		}
	default:
		d.flag(gpu.InvalidEnum)
	}
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	d.record("BufferData", target, len(data), usage)
	var buf gpu.Handle
	switch target {
	case gpu.ArrayBuffer:
		buf = d.arrayBuf
	case gpu.ElementArrayBuffer:
		if v, ok := d.vaos[d.boundVAO]; ok {
			buf = v.ebo
		}
	default:
		d.flag(gpu.InvalidEnum)
		return
	}
	if buf == 0 {
		d.flag(gpu.InvalidOperation)
		return
	}
	d.buffers[buf] = append([]byte(nil), data...)
}

func (d *Device) DeleteBuffer(buffer gpu.Handle) {
	d.record("DeleteBuffer", buffer)
	if _, ok := d.buffers[buffer]; !ok {
		return
	}
	delete(d.buffers, buffer)
	if d.arrayBuf == buffer {
		d.arrayBuf = 0
	}
	for _, v := range d.vaos {
		if v.ebo == buffer {
			v.ebo = 0
		}
	}
}

func (d *Device) VertexAttribPointer(slot uint32, size int32, typ gpu.DataType, normalized bool, stride int32, offset int) {
	d.record("VertexAttribPointer", slot, size, typ, normalized, stride, offset)
	v, ok := d.vaos[d.boundVAO]
	if d.boundVAO == 0 || !ok || d.arrayBuf == 0 {
		d.flag(gpu.InvalidOperation)
		return
	}
	if size < 1 || size > 4 || stride < 0 || offset < 0 {
		d.flag(gpu.InvalidValue)
		return
	}
	v.attribs[slot] = Attrib{
		Size:       size,
		Type:       typ,
		Normalized: normalized,
		Stride:     stride,
		Offset:     offset,
		Buffer:     d.arrayBuf,
	}
}

func (d *Device) EnableVertexAttribArray(slot uint32) {
	d.record("EnableVertexAttribArray", slot)
	v, ok := d.vaos[d.boundVAO]
	if d.boundVAO == 0 || !ok {
		d.flag(gpu.InvalidOperation)
		return
	}
	v.enabled[slot] = true
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.record("Viewport", x, y, width, height)
	if width < 0 || height < 0 {
		d.flag(gpu.InvalidValue)
		return
	}
	d.viewport = [4]int32{x, y, width, height}
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.record("ClearColor", r, g, b, a)
	d.clearColor = [4]float32{r, g, b, a}
}

func (d *Device) Clear(mask gpu.ClearMask) {
	d.record("Clear", mask)
	d.clears = append(d.clears, mask)
}

func (d *Device) drawable() (*vertexArray, bool) {
	p, ok := d.programs[d.current]
	if d.current == 0 || !ok || !p.linked {
		d.flag(gpu.InvalidOperation)
		return nil, false
	}
	v, ok := d.vaos[d.boundVAO]
	if d.boundVAO == 0 || !ok {
		d.flag(gpu.InvalidOperation)
		return nil, false
	}
	return v, true
}

func (d *Device) DrawArrays(mode gpu.Primitive, first, count int32) {
	d.record("DrawArrays", mode, first, count)
	if first < 0 || count < 0 {
		d.flag(gpu.InvalidValue)
		return
	}
	if _, ok := d.drawable(); !ok {
		return
	}
	indices := make([]uint32, count)
	for i := range indices {
		indices[i] = uint32(first) + uint32(i)
	}
	d.Draws = append(d.Draws, Draw{
		Mode:    mode,
		First:   first,
		Count:   count,
		Program: d.current,
		VAO:     d.boundVAO,
		Indices: indices,
	})
}

func (d *Device) DrawElements(mode gpu.Primitive, count int32, typ gpu.DataType, offset int) {
	d.record("DrawElements", mode, count, typ, offset)
	if count < 0 {
		d.flag(gpu.InvalidValue)
		return
	}
	size := 0
	switch typ {
	case gpu.UnsignedByte, gpu.UnsignedShort, gpu.UnsignedInt:
		size = typ.Size()
	default:
		d.flag(gpu.InvalidEnum)
		return
	}
	v, ok := d.drawable()
	if !ok {
		return
	}
	data, ok := d.buffers[v.ebo]
	if v.ebo == 0 || !ok || offset+int(count)*size > len(data) {
		d.flag(gpu.InvalidOperation)
		return
	}
	indices := make([]uint32, count)
	for i := range indices {
		at := offset + i*size
		switch size {
		case 1:
			indices[i] = uint32(data[at])
		case 2:
			indices[i] = uint32(binary.NativeEndian.Uint16(data[at:]))
		case 4:
			indices[i] = binary.NativeEndian.Uint32(data[at:])
		}
	}
	d.Draws = append(d.Draws, Draw{
		Mode:      mode,
		Count:     count,
		Indexed:   true,
		IndexType: typ,
		Offset:    offset,
		Program:   d.current,
		VAO:       d.boundVAO,
		Indices:   indices,
	})
}

func (d *Device) GetError() uint32 {
	if len(d.errs) == 0 {
		return gpu.NoError
	}
	code := d.errs[0]
	d.errs = d.errs[1:]
	return code
}

func (d *Device) GetString(name gpu.StringName) string {
	switch name {
	case gpu.Vendor:
		return "glwindow"
	case gpu.Renderer:
		return "gputest software device"
	case gpu.Version:
		return "4.1 gputest"
	case gpu.ShadingLanguageVersion:
		return "4.10"
	}
	d.flag(gpu.InvalidEnum)
	return ""
}

func boolStatus(b bool) int32 {
	if b {
		return gpu.True
	}
	return gpu.False
}

// logLength reports the log size including the terminating NUL, or 0.
func logLength(log string) int32 {
	if log == "" {
		return 0
	}
	return int32(len(log) + 1)
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

var (
	locationInRe = regexp.MustCompile(`^layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*in\s+\w+\s+\w+\s*;`)
	outRe        = regexp.MustCompile(`^(?:layout\s*\([^)]*\)\s*)?out\s+\w+\s+(\w+)\s*;`)
	plainInRe    = regexp.MustCompile(`^in\s+\w+\s+(\w+)\s*;`)
	mainRe       = regexp.MustCompile(`\bvoid\s+main\s*\(`)
)

// compileLog returns the compiler log for source, empty when it compiles.
// Every non-preprocessor line must end a statement or open/close a block,
// unless the following line opens a block.
func compileLog(source string) string {
	if strings.TrimSpace(source) == "" {
		return "ERROR: 0:0: '' : empty shader source\n"
	}
	lines := strings.Split(source, "\n")
	code := make([]string, len(lines))
	for i, l := range lines {
		if at := strings.Index(l, "//"); at >= 0 {
			l = l[:at]
		}
		code[i] = strings.TrimSpace(l)
	}
	for i, l := range code {
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		last := l[len(l)-1]
		if last == ';' || last == '{' || last == '}' {
			continue
		}
		next, nextLine := nextCode(code, i+1)
		if strings.HasPrefix(next, "{") {
			continue
		}
		token := next
		if f := strings.Fields(next); len(f) > 0 {
			token = f[0]
		}
		return fmt.Sprintf("ERROR: 0:%d: '%s' : syntax error: missing ';' before '%s'\n", nextLine, token, token)
	}
	if !mainRe.MatchString(source) {
		return "ERROR: 0:1: 'main' : function not defined\n"
	}
	return ""
}

func nextCode(code []string, from int) (string, int) {
	for i := from; i < len(code); i++ {
		if code[i] != "" {
			return code[i], i + 1
		}
	}
	return "", len(code)
}

func linkLog(vert, frag *shader) string {
	switch {
	case vert == nil:
		return "ERROR: Linking failed: no vertex shader attached.\n"
	case frag == nil:
		return "ERROR: Linking failed: no fragment shader attached.\n"
	case !vert.compiled || !frag.compiled:
		return "ERROR: Linking failed: attached shader is not compiled.\n"
	}
	written := make(map[string]bool)
	for _, name := range matches(vert.source, outRe) {
		written[name] = true
	}
	for _, name := range matches(frag.source, plainInRe) {
		if !written[name] {
			return fmt.Sprintf("ERROR: Input of fragment shader '%s' not written by vertex shader\n", name)
		}
	}
	return ""
}

func vertexInputs(source string) []uint32 {
	var out []uint32
	for _, line := range strings.Split(source, "\n") {
		m := locationInRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		var slot uint32
		fmt.Sscanf(m[1], "%d", &slot)
		out = append(out, slot)
	}
	return out
}

func matches(source string, re *regexp.Regexp) []string {
	var out []string
	for _, line := range strings.Split(source, "\n") {
		if m := re.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}
