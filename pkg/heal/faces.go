package heal

import (
	"sort"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// faceKey identifies a face by its vertex set, ignoring winding.
type faceKey [3]int

func keyOf(f [3]int) faceKey {
	k := faceKey(f)
	sort.Ints(k[:])
	return k
}

// cleanFaces drops faces that repeat an index or whose area is below
// areaTol, then drops faces that repeat an earlier face's vertex set.
func cleanFaces(m kernel.Mesh, areaTol float64) (kernel.Mesh, int, int) {
	out := kernel.Mesh{Vertices: m.Vertices, Name: m.Name, Faces: make([][3]int, 0, len(m.Faces))}
	seen := make(map[faceKey]bool, len(m.Faces))
	degenerate, duplicate := 0, 0

	for i, f := range m.Faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] || kernel.TriangleArea(m.Triangle(i)) < areaTol {
			degenerate++
			continue
		}
		k := keyOf(f)
		if seen[k] {
			duplicate++
			continue
		}
		seen[k] = true
		out.Faces = append(out.Faces, f)
	}
	return out, degenerate, duplicate
}

// stitchTJunctions splits faces whose boundary edge passes through a
// boundary vertex of another face. Each face is split along at most one
// edge per call; the caller repeats until nothing changes. A split that
// would repeat an existing face is not made.
func stitchTJunctions(m kernel.Mesh, tol, areaTol float64) (kernel.Mesh, int) {
	edges := kernel.EdgeMap(m)
	keys := make(map[faceKey]bool, len(m.Faces))
	for _, f := range m.Faces {
		keys[keyOf(f)] = true
	}

	type halfEdge struct {
		face, corner int
	}
	var boundary []halfEdge
	onBoundary := make(map[int]bool)
	for e, uses := range edges {
		if len(uses) != 1 {
			continue
		}
		f := m.Faces[uses[0].Face]
		for j := 0; j < 3; j++ {
			if kernel.MakeEdge(f[j], f[(j+1)%3]) == e {
				boundary = append(boundary, halfEdge{uses[0].Face, j})
				break
			}
		}
		onBoundary[e.A], onBoundary[e.B] = true, true
	}
	if len(boundary) == 0 {
		return m, 0
	}
	// Map iteration order is random; splits must not depend on it.
	sort.Slice(boundary, func(i, j int) bool {
		if boundary[i].face != boundary[j].face {
			return boundary[i].face < boundary[j].face
		}
		return boundary[i].corner < boundary[j].corner
	})

	items := make([]*kernel.Item, 0, len(onBoundary))
	for v := range onBoundary {
		items = append(items, &kernel.Item{ID: v, Rect: kernel.PointRect(m.Vertices[v], tol)})
	}
	tree := kernel.NewIndex(items)

	type cut struct {
		t float64
		v int
	}
	replaced := make(map[int][][3]int)
	splits := 0

	for _, he := range boundary {
		if _, done := replaced[he.face]; done {
			continue
		}
		f := m.Faces[he.face]
		u, v, x := f[he.corner], f[(he.corner+1)%3], f[(he.corner+2)%3]
		pu, pv := m.Vertices[u], m.Vertices[v]

		d := vec3.Sub(&pv, &pu)
		lenSq := vec3.Dot(&d, &d)
		if lenSq == 0 {
			continue
		}
		bounds := kernel.NewBox(pu, pu).Extend(pv)

		var cuts []cut
		for _, w := range kernel.Hits(tree, bounds.Rect(tol)) {
			if w == u || w == v || w == x {
				continue
			}
			pw := m.Vertices[w]
			rel := vec3.Sub(&pw, &pu)
			t := vec3.Dot(&rel, &d) / lenSq
			if t <= 0 || t >= 1 {
				continue
			}
			foot := vec3.T{pu[0] + d[0]*t, pu[1] + d[1]*t, pu[2] + d[2]*t}
			off := vec3.Sub(&pw, &foot)
			if off.Length() > tol {
				continue
			}
			cuts = append(cuts, cut{t, w})
		}
		if len(cuts) == 0 {
			continue
		}
		sort.Slice(cuts, func(i, j int) bool {
			if cuts[i].t != cuts[j].t {
				return cuts[i].t < cuts[j].t
			}
			return cuts[i].v < cuts[j].v
		})

		chain := make([]int, 0, len(cuts)+2)
		chain = append(chain, u)
		for _, c := range cuts {
			chain = append(chain, c.v)
		}
		chain = append(chain, v)

		fan := make([][3]int, 0, len(chain)-1)
		ok := true
		for i := 0; i+1 < len(chain) && ok; i++ {
			nf := [3]int{chain[i], chain[i+1], x}
			t := [3]vec3.T{m.Vertices[nf[0]], m.Vertices[nf[1]], m.Vertices[nf[2]]}
			ok = kernel.TriangleArea(t) >= areaTol && !keys[keyOf(nf)]
			fan = append(fan, nf)
		}
		if !ok {
			continue
		}
		for _, nf := range fan {
			keys[keyOf(nf)] = true
		}
		replaced[he.face] = fan
		splits += len(cuts)
	}

	if splits == 0 {
		return m, 0
	}
	out := kernel.Mesh{Vertices: m.Vertices, Name: m.Name, Faces: make([][3]int, 0, len(m.Faces)+splits)}
	for i, f := range m.Faces {
		if fan, ok := replaced[i]; ok {
			out.Faces = append(out.Faces, fan...)
			continue
		}
		out.Faces = append(out.Faces, f)
	}
	return out, splits
}
