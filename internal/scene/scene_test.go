package scene

import (
	"os"
	"path/filepath"
	"testing"

	"glwindow/internal/gpu"
	"glwindow/internal/gpu/gputest"
	"glwindow/internal/graphics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"quad", "triangle"}, Names())
}

func TestLookup(t *testing.T) {
	s, err := Lookup("triangle")
	require.NoError(t, err)
	assert.Equal(t, "triangle", s.Name)
	assert.Len(t, s.Vertices, 9)
	assert.Empty(t, s.Indices)

	s, err = Lookup("quad")
	require.NoError(t, err)
	assert.Len(t, s.Vertices, 24)
	assert.Equal(t, []uint32{2, 0, 1, 3, 2, 1}, s.Indices)

	_, err = Lookup("cube")
	assert.ErrorContains(t, err, "unknown scene")
}

func TestLookupReturnsFreshCopies(t *testing.T) {
	a, _ := Lookup("triangle")
	a.Vertices[0] = 99
	b, _ := Lookup("triangle")
	assert.NotEqual(t, float32(99), b.Vertices[0])
}

// Every built-in scene must upload and build into a validated program.
func TestBuiltinsBuild(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := Lookup(name)
			require.NoError(t, err)

			dev := gputest.New()
			rc := gpu.NewRenderContext(dev)
			g, err := graphics.Upload(rc, s.Vertices, s.Indices, s.Format)
			require.NoError(t, err)
			p, err := graphics.BuildProgram(rc, s.Sources, g)
			require.NoError(t, err)
			assert.True(t, p.Validated, p.ValidationLog)

			p.Release(rc)
			g.Release(rc)
			assert.Zero(t, dev.LivePrograms())
			assert.Zero(t, dev.LiveBuffers())
			assert.Zero(t, dev.PendingErrors())
		})
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	vert := filepath.Join(dir, "custom.vert")
	require.NoError(t, os.WriteFile(vert, []byte("custom vertex"), 0o644))

	fallback := graphics.ProgramSource{Vertex: "v", Fragment: "f"}
	src, err := LoadSources(vert, "", fallback)
	require.NoError(t, err)
	assert.Equal(t, "custom vertex", src.Vertex)
	assert.Equal(t, "f", src.Fragment)

	src, err = LoadSources("", "", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, src)

	_, err = LoadSources("", filepath.Join(dir, "missing.frag"), fallback)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "fragment shader")
}
