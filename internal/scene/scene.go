// Package scene provides the built-in geometry and the shader sources that
// draw it.
package scene

import (
	"embed"
	"fmt"
	"os"
	"sort"

	"glwindow/internal/graphics"
)

//go:embed shaders
var shaderFS embed.FS

// Scene is one piece of geometry together with the program that draws it.
type Scene struct {
	Name     string
	Vertices []float32
	Indices  []uint32
	Format   graphics.VertexFormat
	Sources  graphics.ProgramSource
}

var builtins = map[string]func() Scene{
	"triangle": Triangle,
	"quad":     Quad,
}

// Names returns the built-in scene names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the built-in scene called name.
func Lookup(name string) (Scene, error) {
	mk, ok := builtins[name]
	if !ok {
		return Scene{}, fmt.Errorf("unknown scene %q (have %v)", name, Names())
	}
	return mk(), nil
}

// Triangle is a single position-only triangle drawn from three consecutive
// vertices.
func Triangle() Scene {
	return Scene{
		Name: "triangle",
		Vertices: []float32{
			-0.5, -0.5, 0.0,
			0.5, -0.5, 0.0,
			0.0, 0.5, 0.0,
		},
		Format:  graphics.PositionFormat,
		Sources: mustSources("shaders/position.vert", "shaders/position.frag"),
	}
}

// Quad is two colored triangles sharing the edge between vertices 1 and 2.
func Quad() Scene {
	return Scene{
		Name: "quad",
		Vertices: []float32{
			// x, y, z, r, g, b
			-0.5, -0.5, 0.0, 1.0, 0.0, 0.0,
			0.5, -0.5, 0.0, 0.0, 1.0, 0.0,
			-0.5, 0.5, 0.0, 0.0, 0.0, 1.0,
			0.5, 0.5, 0.0, 1.0, 0.0, 0.0,
		},
		Indices: []uint32{2, 0, 1, 3, 2, 1},
		Format:  graphics.PositionColorFormat,
		Sources: mustSources("shaders/color.vert", "shaders/color.frag"),
	}
}

func mustSources(vert, frag string) graphics.ProgramSource {
	v, err := shaderFS.ReadFile(vert)
	if err != nil {
		panic(err)
	}
	f, err := shaderFS.ReadFile(frag)
	if err != nil {
		panic(err)
	}
	return graphics.ProgramSource{Vertex: string(v), Fragment: string(f)}
}

// LoadSources reads shader sources from disk. An empty path keeps the
// matching stage of fallback.
func LoadSources(vertexPath, fragmentPath string, fallback graphics.ProgramSource) (graphics.ProgramSource, error) {
	src := fallback
	if vertexPath != "" {
		b, err := os.ReadFile(vertexPath)
		if err != nil {
			return src, fmt.Errorf("could not read vertex shader file: %w", err)
		}
		src.Vertex = string(b)
	}
	if fragmentPath != "" {
		b, err := os.ReadFile(fragmentPath)
		if err != nil {
			return src, fmt.Errorf("could not read fragment shader file: %w", err)
		}
		src.Fragment = string(b)
	}
	return src, nil
}
