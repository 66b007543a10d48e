package gpu

// Handle names a driver-side object (shader, program, buffer, vertex array).
// The zero Handle never names a live object.
type Handle uint32

// The enum values below mirror the OpenGL 4.1 core constants so a Device
// implementation can pass them through unchanged.

// ShaderStage is the kind of a shader unit.
type ShaderStage uint32

const (
	VertexStage   ShaderStage = 0x8B31
	FragmentStage ShaderStage = 0x8B30
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "unknown"
}

// BufferTarget selects a buffer binding slot.
type BufferTarget uint32

const (
	ArrayBuffer        BufferTarget = 0x8892
	ElementArrayBuffer BufferTarget = 0x8893
)

// Usage is a buffer data usage hint.
type Usage uint32

const StaticDraw Usage = 0x88E4

// DataType is the numeric type of attribute components or indices.
type DataType uint32

const (
	Byte          DataType = 0x1400
	UnsignedByte  DataType = 0x1401
	Short         DataType = 0x1402
	UnsignedShort DataType = 0x1403
	Int           DataType = 0x1404
	UnsignedInt   DataType = 0x1405
	Float         DataType = 0x1406
)

// Size returns the byte size of a single value of type t.
func (t DataType) Size() int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case Int, UnsignedInt, Float:
		return 4
	}
	return 0
}

// Primitive is the topology used by draw calls.
type Primitive uint32

const (
	Points        Primitive = 0x0000
	Lines         Primitive = 0x0001
	Triangles     Primitive = 0x0004
	TriangleStrip Primitive = 0x0005
)

// ClearMask selects which render targets Clear resets.
type ClearMask uint32

const (
	DepthBufferBit ClearMask = 0x0100
	ColorBufferBit ClearMask = 0x4000
)

// Param is an object parameter queried with GetShaderiv/GetProgramiv.
type Param uint32

const (
	CompileStatus   Param = 0x8B81
	LinkStatus      Param = 0x8B82
	ValidateStatus  Param = 0x8B83
	InfoLogLength   Param = 0x8B84
	AttachedShaders Param = 0x8B85
)

// StringName is a connection string queried with GetString.
type StringName uint32

const (
	Vendor                 StringName = 0x1F00
	Renderer               StringName = 0x1F01
	Version                StringName = 0x1F02
	ShadingLanguageVersion StringName = 0x8B8C
)

// Error codes returned by Device.GetError.
const (
	NoError                     uint32 = 0
	InvalidEnum                 uint32 = 0x0500
	InvalidValue                uint32 = 0x0501
	InvalidOperation            uint32 = 0x0502
	OutOfMemory                 uint32 = 0x0505
	InvalidFramebufferOperation uint32 = 0x0506
)

// True and False are the status values reported by the status params.
const (
	False int32 = 0
	True  int32 = 1
)
