package warp

import (
	"fmt"

	"github.com/dudu/facewarp/internal/geom"
)

// Engine warps images through a triangulated mesh. It holds only the
// render options, so one instance is safe to share across goroutines
// and multiple engines can coexist in the same process.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given render options
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Warp renders src into a fresh buffer through the mesh, with vertices
// moved to the deformed positions. deformed must carry exactly one
// point per mesh vertex.
func (e *Engine) Warp(src *RasterBuffer, mesh *geom.TriangleMesh, deformed []geom.Point) (*RasterBuffer, Stats, error) {
	pairs, err := BuildPairs(mesh, deformed)
	if err != nil {
		return nil, Stats{}, err
	}

	dst := NewRasterBuffer(src.Width, src.Height)
	stats, err := Render(src, dst, pairs, e.opts)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("rendering warp: %w", err)
	}
	return dst, stats, nil
}
