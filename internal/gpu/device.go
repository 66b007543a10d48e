package gpu

// Device is the driver surface used by the pipeline. All calls operate on
// the rendering context current on the calling thread; binding calls change
// single-slot global selections, which RenderContext mirrors.
type Device interface {
	CreateShader(stage ShaderStage) Handle
	ShaderSource(shader Handle, source string)
	CompileShader(shader Handle)
	GetShaderiv(shader Handle, param Param) int32
	// GetShaderInfoLog returns at most limit bytes of the shader's info log.
	GetShaderInfoLog(shader Handle, limit int) string
	DeleteShader(shader Handle)

	CreateProgram() Handle
	AttachShader(program, shader Handle)
	DetachShader(program, shader Handle)
	LinkProgram(program Handle)
	ValidateProgram(program Handle)
	GetProgramiv(program Handle, param Param) int32
	// GetProgramInfoLog returns at most limit bytes of the program's info log.
	GetProgramInfoLog(program Handle, limit int) string
	UseProgram(program Handle)
	DeleteProgram(program Handle)

	GenVertexArray() Handle
	BindVertexArray(vao Handle)
	DeleteVertexArray(vao Handle)
	GenBuffer() Handle
	BindBuffer(target BufferTarget, buffer Handle)
	BufferData(target BufferTarget, data []byte, usage Usage)
	DeleteBuffer(buffer Handle)
	VertexAttribPointer(slot uint32, size int32, typ DataType, normalized bool, stride int32, offset int)
	EnableVertexAttribArray(slot uint32)

	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	DrawArrays(mode Primitive, first, count int32)
	DrawElements(mode Primitive, count int32, typ DataType, offset int)

	GetError() uint32
	GetString(name StringName) string
}
