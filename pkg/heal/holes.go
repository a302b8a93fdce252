package heal

import (
	"sort"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// fillHoles closes boundary loops no larger than the configured limits
// with a fan of triangles over the loop's own vertices. It returns the new
// mesh and the number of loops filled and skipped.
func (h *Healer) fillHoles(m kernel.Mesh) (kernel.Mesh, int, int) {
	edges := kernel.EdgeMap(m)

	// Directed boundary half-edges, in the direction their face walks them.
	next := make(map[int][]int)
	total := 0
	for e, uses := range edges {
		if len(uses) != 1 {
			continue
		}
		u, v := e.A, e.B
		if !uses[0].Forward {
			u, v = v, u
		}
		next[u] = append(next[u], v)
		total++
	}
	if total == 0 {
		return m, 0, 0
	}

	starts := make([]int, 0, len(next))
	for u, vs := range next {
		sort.Ints(vs)
		starts = append(starts, u)
	}
	sort.Ints(starts)

	pop := func(u int) int {
		vs := next[u]
		if len(vs) == 0 {
			return -1
		}
		v := vs[0]
		next[u] = vs[1:]
		return v
	}

	faces := make(map[faceKey]bool, len(m.Faces))
	for _, f := range m.Faces {
		faces[keyOf(f)] = true
	}

	out := kernel.Mesh{Vertices: m.Vertices, Name: m.Name, Faces: append([][3]int(nil), m.Faces...)}
	filled, skipped := 0, 0

	for _, start := range starts {
		for len(next[start]) > 0 {
			loop := []int{start}
			cur := pop(start)
			for cur >= 0 && cur != start && len(loop) <= total {
				loop = append(loop, cur)
				cur = pop(cur)
			}
			if cur != start {
				skipped++
				continue
			}

			if len(loop) < 3 || len(loop) > h.opts.MaxHoleEdges || perimeter(m, loop) > h.opts.MaxHolePerimeter {
				skipped++
				continue
			}
			fan := h.fanPatch(m, loop, edges, faces)
			if fan == nil {
				skipped++
				continue
			}
			for _, f := range fan {
				faces[keyOf(f)] = true
				for j := 0; j < 3; j++ {
					e := kernel.MakeEdge(f[j], f[(j+1)%3])
					edges[e] = append(edges[e], kernel.EdgeUse{Face: -1})
				}
			}
			out.Faces = append(out.Faces, fan...)
			filled++
		}
	}
	return out, filled, skipped
}

func perimeter(m kernel.Mesh, loop []int) float64 {
	var sum float64
	for i := range loop {
		a, b := m.Vertices[loop[i]], m.Vertices[loop[(i+1)%len(loop)]]
		d := vec3.Sub(&b, &a)
		sum += d.Length()
	}
	return sum
}

// fanPatch triangulates a loop, walked in its faces' direction, with the
// opposite winding. It tries every loop vertex as the fan apex and takes
// the first one that creates no degenerate triangle, no duplicate face and
// no edge that already exists. It returns nil when no apex works.
func (h *Healer) fanPatch(m kernel.Mesh, loop []int, edges map[kernel.Edge][]kernel.EdgeUse, faces map[faceKey]bool) [][3]int {
	k := len(loop)
	for s := 0; s < k; s++ {
		apex := loop[s]
		fan := make([][3]int, 0, k-2)
		own := make(map[faceKey]bool, k-2)
		ok := true
		for i := 1; i <= k-2 && ok; i++ {
			b, c := loop[(s+i+1)%k], loop[(s+i)%k]
			f := [3]int{apex, b, c}
			t := [3]vec3.T{m.Vertices[apex], m.Vertices[b], m.Vertices[c]}
			switch {
			case kernel.TriangleArea(t) < h.opts.AreaTolerance:
				ok = false
			case faces[keyOf(f)] || own[keyOf(f)]:
				ok = false
			case i >= 2 && len(edges[kernel.MakeEdge(apex, c)]) > 0:
				// Interior diagonal of the fan.
				ok = false
			}
			own[keyOf(f)] = true
			fan = append(fan, f)
		}
		if ok {
			return fan
		}
	}
	return nil
}
