package graphics

import (
	"fmt"
	"slices"
	"unsafe"

	"glwindow/internal/gpu"
)

// Attribute describes where one shader input finds its data inside a
// vertex record. Slot must match the input's layout location in the vertex
// shader.
type Attribute struct {
	Slot       uint32
	Components int32
	Type       gpu.DataType
	Normalized bool
	// Offset is the byte offset of the attribute inside a vertex record.
	Offset int
}

// Size returns the byte size of the attribute.
func (a Attribute) Size() int {
	return int(a.Components) * a.Type.Size()
}

// VertexFormat is the attribute layout of an interleaved vertex buffer.
type VertexFormat struct {
	// Stride is the byte distance between consecutive vertex records.
	Stride     int
	Attributes []Attribute
}

// PositionFormat is three floats of position at slot 0.
var PositionFormat = VertexFormat{
	Stride: 3 * 4,
	Attributes: []Attribute{
		{Slot: 0, Components: 3, Type: gpu.Float},
	},
}

// PositionColorFormat is three floats of position at slot 0 followed by
// three floats of color at slot 1.
var PositionColorFormat = VertexFormat{
	Stride: 6 * 4,
	Attributes: []Attribute{
		{Slot: 0, Components: 3, Type: gpu.Float},
		{Slot: 1, Components: 3, Type: gpu.Float, Offset: 3 * 4},
	},
}

// ContractError reports caller data that breaks an upload precondition.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return "graphics: " + e.Reason
}

func contractf(format string, args ...any) error {
	return &ContractError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that slots are numbered 0..n-1 in order and that every
// attribute fits inside the stride.
func (f VertexFormat) Validate() error {
	if f.Stride <= 0 {
		return contractf("vertex stride must be positive, got %d", f.Stride)
	}
	if len(f.Attributes) == 0 {
		return contractf("vertex format declares no attributes")
	}
	for i, a := range f.Attributes {
		if a.Slot != uint32(i) {
			return contractf("attribute %d has slot %d, slots must be contiguous from 0", i, a.Slot)
		}
		if a.Components < 1 || a.Components > 4 {
			return contractf("attribute slot %d has %d components, want 1..4", a.Slot, a.Components)
		}
		if a.Type.Size() == 0 {
			return contractf("attribute slot %d has unknown type 0x%X", a.Slot, uint32(a.Type))
		}
		if a.Offset < 0 || a.Offset+a.Size() > f.Stride {
			return contractf("attribute slot %d spans bytes [%d,%d) outside stride %d", a.Slot, a.Offset, a.Offset+a.Size(), f.Stride)
		}
	}
	return nil
}

// Geometry is vertex data uploaded to the GPU together with the vertex
// array recording its attribute layout. It is immutable once uploaded and
// owns its copy of Format.
type Geometry struct {
	VAO gpu.Handle
	VBO gpu.Handle
	// EBO is 0 when the geometry was uploaded without indices.
	EBO gpu.Handle

	Format      VertexFormat
	VertexCount int32
	IndexCount  int32
	IndexType   gpu.DataType
}

// Indexed reports whether g draws through an index buffer.
func (g *Geometry) Indexed() bool { return g.EBO != 0 }

// Upload copies vertices, and indices when non-empty, into new GPU buffers
// and records format in a new vertex array. vertices is interleaved float32
// data; its byte length must be a multiple of format.Stride, and every index
// must name an existing vertex.
//
// On return, successful or not, no vertex array and no array buffer are
// bound, so no attribute slot is live outside the returned geometry.
//
// Mutates: vertexArray, arrayBuffer, elementBuffers (of the new vertex array).
func Upload(rc *gpu.RenderContext, vertices []float32, indices []uint32, format VertexFormat) (*Geometry, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if format.Stride%4 != 0 {
		return nil, contractf("stride %d is not a whole number of float32 components", format.Stride)
	}
	perVertex := format.Stride / 4
	if len(vertices) == 0 || len(vertices)%perVertex != 0 {
		return nil, contractf("%d vertex components is not a positive multiple of %d per vertex", len(vertices), perVertex)
	}
	vertexCount := len(vertices) / perVertex
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return nil, contractf("index %d at position %d out of range for %d vertices", idx, i, vertexCount)
		}
	}

	dev := rc.Device()
	format.Attributes = slices.Clone(format.Attributes)
	g := &Geometry{Format: format, VertexCount: int32(vertexCount)}
	uploaded := false
	defer func() {
		rc.BindBuffer(gpu.ArrayBuffer, 0)
		rc.BindVertexArray(0)
		if !uploaded {
			g.Release(rc)
		}
	}()

	if g.VAO = dev.GenVertexArray(); g.VAO == 0 {
		return nil, fmt.Errorf("could not create vertex array")
	}
	rc.BindVertexArray(g.VAO)

	if g.VBO = dev.GenBuffer(); g.VBO == 0 {
		return nil, fmt.Errorf("could not create vertex buffer")
	}
	rc.BindBuffer(gpu.ArrayBuffer, g.VBO)
	dev.BufferData(gpu.ArrayBuffer, float32Bytes(vertices), gpu.StaticDraw)

	if len(indices) > 0 {
		if g.EBO = dev.GenBuffer(); g.EBO == 0 {
			return nil, fmt.Errorf("could not create index buffer")
		}
		rc.BindBuffer(gpu.ElementArrayBuffer, g.EBO)
		dev.BufferData(gpu.ElementArrayBuffer, uint32Bytes(indices), gpu.StaticDraw)
		g.IndexCount = int32(len(indices))
		g.IndexType = gpu.UnsignedInt
	}

	for _, a := range format.Attributes {
		dev.VertexAttribPointer(a.Slot, a.Components, a.Type, a.Normalized, int32(format.Stride), a.Offset)
	}
	for _, a := range format.Attributes {
		rc.EnableAttribute(a.Slot)
	}

	uploaded = true
	gpu.Logger().Debug("geometry uploaded",
		"vertices", vertexCount,
		"indices", len(indices),
		"stride", format.Stride,
		"slots", len(format.Attributes))
	return g, nil
}

// Release deletes the buffers and vertex array. Safe to call more than once.
func (g *Geometry) Release(rc *gpu.RenderContext) {
	if g == nil {
		return
	}
	rc.DeleteBuffer(g.EBO)
	rc.DeleteBuffer(g.VBO)
	rc.DeleteVertexArray(g.VAO)
	g.EBO, g.VBO, g.VAO = 0, 0, 0
}

// DrawCall is a single draw submission.
type DrawCall struct {
	Mode    gpu.Primitive
	Count   int32
	Indexed bool
	// IndexType is only meaningful for indexed calls.
	IndexType gpu.DataType
}

// DrawCall returns the call that draws all of g as triangles: indexed when
// g has an index buffer, otherwise VertexCount consecutive vertices.
func (g *Geometry) DrawCall() DrawCall {
	if g.Indexed() {
		return DrawCall{Mode: gpu.Triangles, Count: g.IndexCount, Indexed: true, IndexType: g.IndexType}
	}
	return DrawCall{Mode: gpu.Triangles, Count: g.VertexCount}
}

// Submit issues c against whatever vertex array and program are current.
func (c DrawCall) Submit(rc *gpu.RenderContext) {
	if c.Indexed {
		rc.Device().DrawElements(c.Mode, c.Count, c.IndexType, 0)
		return
	}
	rc.Device().DrawArrays(c.Mode, 0, c.Count)
}

func (c DrawCall) String() string {
	if c.Indexed {
		return fmt.Sprintf("indexed=%d", c.Count)
	}
	return fmt.Sprintf("vertex-count=%d", c.Count)
}

func float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

func uint32Bytes(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
