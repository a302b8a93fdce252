package heal

import (
	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// weld merges every vertex into the nearest earlier vertex within tol.
// Survivors keep their original coordinates, so a second pass finds
// nothing to merge.
func weld(m kernel.Mesh, tol float64) (kernel.Mesh, int) {
	tree := kernel.NewIndex(nil)
	remap := make([]int, len(m.Vertices))
	out := kernel.Mesh{Name: m.Name}
	merged := 0

	for i, v := range m.Vertices {
		best, bestDist := -1, 0.0
		for _, id := range kernel.Hits(tree, kernel.PointRect(v, tol)) {
			diff := vec3.Sub(&v, &out.Vertices[id])
			d := diff.Length()
			if d > tol {
				continue
			}
			if best < 0 || d < bestDist || (d == bestDist && id < best) {
				best, bestDist = id, d
			}
		}
		if best >= 0 {
			remap[i] = best
			merged++
			continue
		}
		id := len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
		tree.Insert(&kernel.Item{ID: id, Rect: kernel.PointRect(v, tol)})
		remap[i] = id
	}

	out.Faces = make([][3]int, len(m.Faces))
	for i, f := range m.Faces {
		out.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	return out, merged
}
