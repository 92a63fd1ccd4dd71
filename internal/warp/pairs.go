package warp

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dudu/facewarp/internal/geom"
)

// ErrTopologyMismatch reports a deformed vertex set whose length
// differs from the source mesh. The engine refuses to pad or truncate:
// a mismatch means an upstream deformer produced the wrong number of
// points, and masking that corrupts the warp silently.
var ErrTopologyMismatch = errors.New("warp: deformed vertex count differs from source mesh")

// BuildPairs matches each source triangle with its deformed counterpart
// (same vertex indices, moved positions) and solves the affine map
// between them. Degenerate source triangles get the identity transform
// and are counted rather than failing the pass.
func BuildPairs(mesh *geom.TriangleMesh, deformed []geom.Point) ([]geom.DeformedTrianglePair, error) {
	if len(deformed) != len(mesh.Vertices) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrTopologyMismatch, len(deformed), len(mesh.Vertices))
	}

	pairs := make([]geom.DeformedTrianglePair, 0, len(mesh.Triangles))
	degenerate := 0
	for _, src := range mesh.Triangles {
		target := geom.Triangle{
			P: [3]geom.Point{deformed[src.I[0]], deformed[src.I[1]], deformed[src.I[2]]},
			I: src.I,
		}
		m, ok := geom.SolveAffine(src, target)
		if !ok {
			degenerate++
		}
		pairs = append(pairs, geom.DeformedTrianglePair{
			Source:    src,
			Target:    target,
			Transform: m,
		})
	}
	if degenerate > 0 {
		slog.Debug("degenerate source triangles mapped to identity",
			"count", degenerate, "total", len(pairs))
	}
	return pairs, nil
}
