package bsp

import (
	"github.com/ungerik/go3d/float64/vec3"
)

// Vertex classes relative to a plane. spanning is front|back.
const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

// vertex is a polygon corner. Exact vertices are input coordinates and are
// classified with the exact predicate; vertices created by splitting carry
// rounding error and are classified with the epsilon band.
type vertex struct {
	pos   vec3.T
	exact bool
}

// plane is an oriented splitting plane. It keeps the three input points
// that define it so input vertices can be tested exactly.
type plane struct {
	pts    [3]vec3.T
	normal vec3.T // unit length
	w      float64
}

func newPlane(a, b, c vec3.T) (plane, bool) {
	e1 := vec3.Sub(&b, &a)
	e2 := vec3.Sub(&c, &a)
	n := vec3.Cross(&e1, &e2)
	l := n.Length()
	if l == 0 {
		return plane{}, false
	}
	n = n.Scaled(1 / l)
	return plane{pts: [3]vec3.T{a, b, c}, normal: n, w: vec3.Dot(&n, &a)}, true
}

func (p plane) flipped() plane {
	return plane{
		pts:    [3]vec3.T{p.pts[0], p.pts[2], p.pts[1]},
		normal: p.normal.Scaled(-1),
		w:      -p.w,
	}
}

func (p *plane) classify(v vertex, eps float64) int {
	if v.exact {
		switch orient(p.pts[0], p.pts[1], p.pts[2], v.pos) {
		case 1:
			return front
		case -1:
			return back
		}
		return coplanar
	}
	t := vec3.Dot(&p.normal, &v.pos) - p.w
	switch {
	case t < -eps:
		return back
	case t > eps:
		return front
	}
	return coplanar
}

// intersect returns the point where edge ab crosses the plane. The
// endpoints are put in lexicographic order first so that the two polygons
// sharing an edge compute bit-identical split points.
func (p *plane) intersect(a, b vertex) vertex {
	if lexLess(b.pos, a.pos) {
		a, b = b, a
	}
	d := vec3.Sub(&b.pos, &a.pos)
	den := vec3.Dot(&p.normal, &d)
	t := 0.5
	if den != 0 {
		t = (p.w - vec3.Dot(&p.normal, &a.pos)) / den
	}
	switch {
	case !(t > snapT):
		return a
	case !(t < 1-snapT):
		return b
	}
	return vertex{pos: vec3.T{
		a.pos[0] + d[0]*t,
		a.pos[1] + d[1]*t,
		a.pos[2] + d[2]*t,
	}}
}

func lexLess(a, b vec3.T) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// polygon is a convex planar polygon. Its plane is inherited from the
// input triangle it was cut from.
type polygon struct {
	verts []vertex
	plane plane
}

func (p polygon) flipped() polygon {
	n := len(p.verts)
	out := make([]vertex, n)
	for i, v := range p.verts {
		out[n-1-i] = v
	}
	return polygon{verts: out, plane: p.plane.flipped()}
}

func (p polygon) bounds() (lo, hi vec3.T) {
	lo, hi = p.verts[0].pos, p.verts[0].pos
	for _, v := range p.verts[1:] {
		for i := 0; i < 3; i++ {
			if v.pos[i] < lo[i] {
				lo[i] = v.pos[i]
			}
			if v.pos[i] > hi[i] {
				hi[i] = v.pos[i]
			}
		}
	}
	return lo, hi
}

func flipAll(polys []polygon) []polygon {
	out := make([]polygon, len(polys))
	for i, p := range polys {
		out[i] = p.flipped()
	}
	return out
}

// split sorts poly into the four buckets relative to the plane, cutting it
// in two when it spans the plane.
func (ev *evaluator) split(pl *plane, poly polygon, coFront, coBack, fr, bk *[]polygon) {
	ev.step()

	kind := coplanar
	types := make([]int, len(poly.verts))
	for i, v := range poly.verts {
		t := pl.classify(v, ev.eps)
		kind |= t
		types[i] = t
	}

	switch kind {
	case coplanar:
		if vec3.Dot(&pl.normal, &poly.plane.normal) > 0 {
			*coFront = append(*coFront, poly)
		} else {
			*coBack = append(*coBack, poly)
		}
	case front:
		*fr = append(*fr, poly)
	case back:
		*bk = append(*bk, poly)
	case spanning:
		n := len(poly.verts)
		f := make([]vertex, 0, n+1)
		b := make([]vertex, 0, n+1)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.verts[i], poly.verts[j]
			if ti != back {
				f = appendVertex(f, vi)
			}
			if ti != front {
				b = appendVertex(b, vi)
			}
			if ti|tj == spanning {
				v := pl.intersect(vi, vj)
				f = appendVertex(f, v)
				b = appendVertex(b, v)
			}
		}
		f = trimClosing(f)
		b = trimClosing(b)
		if len(f) >= 3 {
			*fr = append(*fr, polygon{verts: f, plane: poly.plane})
		}
		if len(b) >= 3 {
			*bk = append(*bk, polygon{verts: b, plane: poly.plane})
		}
		ev.produced(2)
	}
}

// appendVertex skips a vertex equal to the previous one, which happens when
// a split point snaps onto an endpoint.
func appendVertex(vs []vertex, v vertex) []vertex {
	if n := len(vs); n > 0 && vs[n-1].pos == v.pos {
		return vs
	}
	return append(vs, v)
}

func trimClosing(vs []vertex) []vertex {
	for len(vs) > 1 && vs[len(vs)-1].pos == vs[0].pos {
		vs = vs[:len(vs)-1]
	}
	return vs
}
