// Package bsp implements the primary boolean kernel: constructive solid
// geometry on binary space partitioning trees (clip, invert, build).
//
// Splitting planes keep the input points that define them, so input
// vertices are classified with an exact orientation predicate and coplanar
// faces are detected exactly. Only vertices produced by splitting fall back
// to an epsilon band. Operands must be closed 2-manifolds.
package bsp

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/dhconnelly/rtreego"
	"github.com/ungerik/go3d/float64/vec3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

const (
	// DefaultMaxPolygons caps the polygons produced by splitting.
	DefaultMaxPolygons = 4_000_000

	// DefaultEpsilon is the coplanarity band for split vertices.
	DefaultEpsilon = 1e-5

	// snapT snaps split points this close to an edge endpoint onto it.
	snapT = 1e-9

	// ctxCheckEvery is the number of split steps between context checks.
	ctxCheckEvery = 4096
)

// ErrBudgetExceeded is reported when splitting exceeds Options.MaxPolygons.
var ErrBudgetExceeded = errors.New("polygon budget exceeded")

// Options configures the BSP kernel.
type Options struct {
	MaxPolygons int
	Epsilon     float64
}

// Kernel is the BSP boolean kernel.
type Kernel struct {
	opts Options
}

// New returns a BSP kernel. Zero option fields take their defaults.
func New(opts Options) *Kernel {
	if opts.MaxPolygons <= 0 {
		opts.MaxPolygons = DefaultMaxPolygons
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	return &Kernel{opts: opts}
}

// Name implements kernel.Kernel.
func (k *Kernel) Name() string { return "bsp" }

// abort carries an error out of the recursive evaluation.
type abort struct{ err error }

// evaluator holds the per-call state: budget, cancellation and tolerance.
type evaluator struct {
	ctx    context.Context
	eps    float64
	budget int
	polys  int
	steps  int
}

func (ev *evaluator) step() {
	ev.steps++
	if ev.steps%ctxCheckEvery == 0 {
		if err := ev.ctx.Err(); err != nil {
			panic(abort{err})
		}
	}
}

func (ev *evaluator) produced(n int) {
	ev.polys += n
	if ev.polys > ev.budget {
		panic(abort{fmt.Errorf("%w (%d)", ErrBudgetExceeded, ev.budget)})
	}
}

// Boolean implements kernel.Kernel.
func (k *Kernel) Boolean(ctx context.Context, a, b kernel.Mesh, op kernel.Op) (res kernel.Result) {
	defer func() {
		if r := recover(); r != nil {
			if ab, ok := r.(abort); ok {
				res = kernel.Failure("bsp: %v", ab.err)
				return
			}
			res = kernel.Failure("bsp: internal error: %v", r)
		}
	}()

	if op != kernel.OpIntersection && op != kernel.OpDifference && op != kernel.OpUnion {
		return kernel.Failure("bsp: unsupported operation %v", op)
	}

	switch {
	case a.IsEmpty() && b.IsEmpty():
		return kernel.Empty("both operands are empty")
	case a.IsEmpty():
		if op == kernel.OpUnion {
			return kernel.Classify(b.Clone())
		}
		return kernel.Empty("first operand is empty")
	case b.IsEmpty():
		if op == kernel.OpIntersection {
			return kernel.Empty("second operand is empty")
		}
		return kernel.Classify(a.Clone())
	}

	for _, operand := range []struct {
		label string
		m     kernel.Mesh
	}{{"first", a}, {"second", b}} {
		if err := checkOperand(operand.m); err != nil {
			return kernel.Failure("bsp: %s operand: %v", operand.label, err)
		}
	}

	ev := &evaluator{ctx: ctx, eps: k.opts.Epsilon, budget: k.opts.MaxPolygons}

	if !a.Bounds().Overlaps(b.Bounds()) {
		switch op {
		case kernel.OpIntersection:
			return kernel.Empty("operand bounding boxes are disjoint")
		case kernel.OpDifference:
			return kernel.Classify(a.Clone())
		default:
			return kernel.Classify(concat(a, b))
		}
	}

	pa, pb := toPolygons(a), toPolygons(b)
	ta, tb := ev.build(pa), ev.build(pb)
	nearA, farA := partition(pa, kernel.FaceIndex(b, ev.eps))
	nearB, farB := partition(pb, kernel.FaceIndex(a, ev.eps))

	var out []polygon
	switch op {
	case kernel.OpDifference:
		// A outside B, plus B inside A turned inside out.
		ra := flipAll(ev.clip(tb, flipAll(nearA), false))
		rb := ev.clip(ta, nearB, true)
		rb = ev.clip(ta, flipAll(rb), true)
		out = append(ra, rb...)
		out = append(out, ev.keep(farA, tb, false)...)
		out = append(out, flipAll(ev.keep(farB, ta, true))...)
	case kernel.OpIntersection:
		rb := ev.clip(ta, nearB, true)
		ra := ev.clip(tb, flipAll(nearA), true)
		rb = ev.clip(ta, flipAll(rb), true)
		out = append(flipAll(ra), flipAll(rb)...)
		out = append(out, ev.keep(farA, tb, true)...)
		out = append(out, ev.keep(farB, ta, true)...)
	case kernel.OpUnion:
		ra := ev.clip(tb, nearA, false)
		rb := ev.clip(ta, nearB, false)
		rb = flipAll(ev.clip(ta, flipAll(rb), false))
		out = append(ra, rb...)
		out = append(out, ev.keep(farA, tb, false)...)
		out = append(out, ev.keep(farB, ta, false)...)
	}

	if err := ctx.Err(); err != nil {
		return kernel.Failure("bsp: %v", err)
	}
	return kernel.Classify(triangulate(out))
}

// keep returns the polygons whose side of the other solid matches want.
// They do not touch the other surface, so one exact vertex decides.
func (ev *evaluator) keep(polys []polygon, tree *node, wantInside bool) []polygon {
	var out []polygon
	for _, p := range polys {
		if ev.inside(tree, p.verts[0]) == wantInside {
			out = append(out, p)
		}
	}
	return out
}

func checkOperand(m kernel.Mesh) error {
	if err := m.CheckStructure(); err != nil {
		return err
	}
	rep := kernel.Topology(m)
	if !rep.Watertight() {
		return fmt.Errorf("not a closed manifold (%d boundary, %d non-manifold edges)",
			rep.BoundaryEdges, rep.NonManifoldEdges)
	}
	return nil
}

func toPolygons(m kernel.Mesh) []polygon {
	polys := make([]polygon, 0, len(m.Faces))
	for i := range m.Faces {
		t := m.Triangle(i)
		pl, ok := newPlane(t[0], t[1], t[2])
		if !ok {
			continue
		}
		polys = append(polys, polygon{
			verts: []vertex{{pos: t[0], exact: true}, {pos: t[1], exact: true}, {pos: t[2], exact: true}},
			plane: pl,
		})
	}
	return polys
}

// partition separates polygons that may touch the other operand's surface
// from those that cannot.
func partition(polys []polygon, other *rtreego.Rtree) (near, far []polygon) {
	for _, p := range polys {
		lo, hi := p.bounds()
		if kernel.AnyHit(other, kernel.NewBox(lo, hi).Rect(DefaultEpsilon)) {
			near = append(near, p)
		} else {
			far = append(far, p)
		}
	}
	return near, far
}

// triangulate fans every convex polygon into triangles and welds vertices
// with identical coordinates.
func triangulate(polys []polygon) kernel.Mesh {
	tris := make([][3]vec3.T, 0, len(polys)*2)
	for _, p := range polys {
		n := len(p.verts)
		apex := fanApex(p.verts)
		for i := 1; i < n-1; i++ {
			tris = append(tris, [3]vec3.T{
				p.verts[apex].pos,
				p.verts[(apex+i)%n].pos,
				p.verts[(apex+i+1)%n].pos,
			})
		}
	}
	return kernel.FromTriangles(tris)
}

// fanApex picks a fan origin that yields no zero-area triangle when one
// exists. Split points on straight edges make some origins degenerate.
func fanApex(vs []vertex) int {
	n := len(vs)
	if n == 3 {
		return 0
	}
	for s := 0; s < n; s++ {
		ok := true
		for i := 1; i < n-1 && ok; i++ {
			t := [3]vec3.T{vs[s].pos, vs[(s+i)%n].pos, vs[(s+i+1)%n].pos}
			ok = kernel.TriangleArea(t) > 0
		}
		if ok {
			return s
		}
	}
	return 0
}

func concat(a, b kernel.Mesh) kernel.Mesh {
	out := a.Clone()
	off := len(out.Vertices)
	out.Vertices = append(out.Vertices, b.Vertices...)
	for _, f := range b.Faces {
		out.Faces = append(out.Faces, [3]int{f[0] + off, f[1] + off, f[2] + off})
	}
	return out
}
