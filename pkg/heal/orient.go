package heal

import (
	"math"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// walks reports whether face f traverses e from A to B.
func walks(f [3]int, e kernel.Edge) bool {
	for j := 0; j < 3; j++ {
		if f[j] == e.A && f[(j+1)%3] == e.B {
			return true
		}
	}
	return false
}

func flip(f [3]int) [3]int {
	return [3]int{f[0], f[2], f[1]}
}

// orientConsistently propagates winding breadth-first across manifold
// edges so that neighbouring faces walk their shared edge in opposite
// directions. The lowest-numbered face of each component keeps its
// winding. Edges are visited in vertex order, not winding order, so the
// traversal is the same whichever way the faces currently point.
func orientConsistently(m kernel.Mesh) (kernel.Mesh, int) {
	edges := kernel.EdgeMap(m)
	faces := append([][3]int(nil), m.Faces...)
	visited := make([]bool, len(faces))
	flipped := 0

	for seed := range faces {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue := []int{seed}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			k := keyOf(faces[f])
			for _, e := range [3]kernel.Edge{{A: k[0], B: k[1]}, {A: k[1], B: k[2]}, {A: k[0], B: k[2]}} {
				uses := edges[e]
				if len(uses) != 2 {
					continue
				}
				g := uses[0].Face
				if g == f {
					g = uses[1].Face
				}
				if visited[g] {
					continue
				}
				if walks(faces[f], e) == walks(faces[g], e) {
					faces[g] = flip(faces[g])
					flipped++
				}
				visited[g] = true
				queue = append(queue, g)
			}
		}
	}

	return kernel.Mesh{Vertices: m.Vertices, Faces: faces, Name: m.Name}, flipped
}

// component is a set of edge-connected faces.
type component struct {
	faces  []int
	bounds kernel.Box
	volume float64
	closed bool
}

func components(m kernel.Mesh) []*component {
	edges := kernel.EdgeMap(m)
	parent := make([]int, len(m.Faces))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, uses := range edges {
		for _, u := range uses[1:] {
			a, b := find(uses[0].Face), find(u.Face)
			if a != b {
				if a < b {
					parent[b] = a
				} else {
					parent[a] = b
				}
			}
		}
	}

	byRoot := make(map[int]*component)
	var out []*component
	for fi, f := range m.Faces {
		r := find(fi)
		c, ok := byRoot[r]
		if !ok {
			c = &component{closed: true}
			byRoot[r] = c
			out = append(out, c)
		}
		c.faces = append(c.faces, fi)
		a, b, d := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		c.bounds = c.bounds.Extend(a).Extend(b).Extend(d)
		bd := vec3.Cross(&b, &d)
		c.volume += vec3.Dot(&a, &bd) / 6
		for j := 0; j < 3; j++ {
			if len(edges[kernel.MakeEdge(f[j], f[(j+1)%3])]) != 2 {
				c.closed = false
			}
		}
	}
	return out
}

// orientOutward flips closed components whose normals point the wrong
// way. Outer shells get positive volume; a shell lying inside another
// closed shell (a cavity) gets negative volume, alternating with depth.
func orientOutward(m kernel.Mesh) (kernel.Mesh, int) {
	comps := components(m)
	faces := append([][3]int(nil), m.Faces...)
	flipped := 0

	for i, c := range comps {
		if !c.closed || math.Abs(c.volume) < kernel.EmptyVolume {
			continue
		}
		p := faceCentroid(m, c.faces[0])
		depth := 0
		for j, o := range comps {
			if j == i || !o.closed || !o.bounds.Contains(c.bounds) || c.bounds.Contains(o.bounds) {
				continue
			}
			if encloses(m, o.faces, p) {
				depth++
			}
		}
		wantPositive := depth%2 == 0
		if (c.volume > 0) == wantPositive {
			continue
		}
		for _, fi := range c.faces {
			faces[fi] = flip(faces[fi])
		}
		flipped += len(c.faces)
	}

	return kernel.Mesh{Vertices: m.Vertices, Faces: faces, Name: m.Name}, flipped
}

func faceCentroid(m kernel.Mesh, fi int) vec3.T {
	t := m.Triangle(fi)
	return vec3.T{
		(t[0][0] + t[1][0] + t[2][0]) / 3,
		(t[0][1] + t[1][1] + t[2][1]) / 3,
		(t[0][2] + t[1][2] + t[2][2]) / 3,
	}
}

// rayDir is skewed off the axes so rays from grid-aligned points do not
// graze edges of axis-aligned meshes.
var rayDir = vec3.T{0.3713906763541037, 0.5570860145311556, 0.7427813527082074}

// encloses reports whether p lies inside the closed shell made of faces,
// by the parity of ray crossings. Winding is ignored.
func encloses(m kernel.Mesh, faces []int, p vec3.T) bool {
	crossings := 0
	for _, fi := range faces {
		if rayHits(p, rayDir, m.Triangle(fi)) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// rayHits is the Moller-Trumbore ray/triangle test for t > 0.
func rayHits(orig, dir vec3.T, t [3]vec3.T) bool {
	const eps = 1e-12
	e1 := vec3.Sub(&t[1], &t[0])
	e2 := vec3.Sub(&t[2], &t[0])
	pv := vec3.Cross(&dir, &e2)
	det := vec3.Dot(&e1, &pv)
	if math.Abs(det) < eps {
		return false
	}
	inv := 1 / det
	tv := vec3.Sub(&orig, &t[0])
	u := vec3.Dot(&tv, &pv) * inv
	if u < 0 || u > 1 {
		return false
	}
	qv := vec3.Cross(&tv, &e1)
	v := vec3.Dot(&dir, &qv) * inv
	if v < 0 || u+v > 1 {
		return false
	}
	return vec3.Dot(&e2, &qv)*inv > eps
}
