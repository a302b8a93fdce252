// Package heal repairs triangle meshes toward closed, consistently wound
// 2-manifolds: it welds near-coincident vertices, drops degenerate and
// duplicate faces, stitches T-junctions, fills small holes and fixes the
// winding.
//
// Repair never mutates its input. Running it on its own output leaves the
// vertex and face counts unchanged.
package heal

import (
	"errors"
	"fmt"

	"github.com/chazu/meshbool/pkg/kernel"
)

// ErrHealingFailed wraps any internal error during repair. It is not
// fatal: the caller keeps the unrepaired mesh.
var ErrHealingFailed = errors.New("healing failed")

// Options configures a Healer.
type Options struct {
	// MergeTolerance is the distance below which vertices are welded and
	// below which a vertex counts as lying on an edge.
	MergeTolerance float64
	// AreaTolerance is the area below which a face is degenerate.
	AreaTolerance float64
	// MaxHolePerimeter is the largest boundary loop length that is filled.
	MaxHolePerimeter float64
	// MaxHoleEdges is the largest boundary loop edge count that is filled.
	MaxHoleEdges int
	// MaxIterations bounds the T-junction stitching passes.
	MaxIterations int
}

// DefaultOptions returns the default repair settings.
func DefaultOptions() Options {
	return Options{
		MergeTolerance:   1e-6,
		AreaTolerance:    1e-12,
		MaxHolePerimeter: 100,
		MaxHoleEdges:     500,
		MaxIterations:    10,
	}
}

// Report summarizes one repair.
type Report struct {
	VerticesBefore, VerticesAfter int
	FacesBefore, FacesAfter       int

	MergedVertices  int
	DegenerateFaces int
	DuplicateFaces  int
	TJunctions      int
	HolesFilled     int
	HolesSkipped    int
	FlippedFaces    int

	Topology kernel.TopologyReport
	Failed   bool
}

// Watertight reports whether the repaired mesh is closed.
func (r Report) Watertight() bool {
	return r.Topology.Watertight()
}

// Healer repairs meshes.
type Healer struct {
	opts Options
}

// New returns a Healer. Zero option fields take their defaults.
func New(opts Options) *Healer {
	def := DefaultOptions()
	if opts.MergeTolerance <= 0 {
		opts.MergeTolerance = def.MergeTolerance
	}
	if opts.AreaTolerance <= 0 {
		opts.AreaTolerance = def.AreaTolerance
	}
	if opts.MaxHolePerimeter <= 0 {
		opts.MaxHolePerimeter = def.MaxHolePerimeter
	}
	if opts.MaxHoleEdges <= 0 {
		opts.MaxHoleEdges = def.MaxHoleEdges
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	return &Healer{opts: opts}
}

// Options returns the effective settings.
func (h *Healer) Options() Options { return h.opts }

// Repair returns a repaired copy of m.
//
// Return semantics:
//   - success: the repaired mesh, its report and nil
//   - internal failure: m itself, a report with Failed set and an error
//     wrapping ErrHealingFailed
//   - empty input: m and a report with zero counts
func (h *Healer) Repair(m kernel.Mesh) (out kernel.Mesh, rep Report, err error) {
	rep.VerticesBefore = m.VertexCount()
	rep.FacesBefore = m.TriangleCount()

	defer func() {
		if r := recover(); r != nil {
			out = m
			rep = failedReport(m)
			err = fmt.Errorf("%w: panic: %v", ErrHealingFailed, r)
		}
	}()

	if m.IsEmpty() {
		rep.VerticesAfter, rep.FacesAfter = rep.VerticesBefore, rep.FacesBefore
		return m, rep, nil
	}
	if verr := m.CheckStructure(); verr != nil {
		return m, failedReport(m), fmt.Errorf("%w: %v", ErrHealingFailed, verr)
	}

	cur := m
	for i := 0; i < maxPasses; i++ {
		var changes int
		if cur, changes = h.pass(cur, &rep); changes == 0 {
			break
		}
	}

	cur.Name = m.Name

	rep.VerticesAfter = cur.VertexCount()
	rep.FacesAfter = cur.TriangleCount()
	rep.Topology = kernel.Topology(cur)
	return cur, rep, nil
}

// maxPasses bounds the full repair passes run while looking for a mesh
// that a pass leaves unchanged.
const maxPasses = 16

// pass runs every repair step once, adding its counts to rep. It returns
// the number of edits made; zero means the output equals the input.
func (h *Healer) pass(m kernel.Mesh, rep *Report) (kernel.Mesh, int) {
	cur, merged := weld(m, h.opts.MergeTolerance)
	changes := merged

	cur, deg, dup := cleanFaces(cur, h.opts.AreaTolerance)
	changes += deg + dup

	stitched := 0
	for i := 0; i < h.opts.MaxIterations; i++ {
		var n int
		cur, n = stitchTJunctions(cur, h.opts.MergeTolerance, h.opts.AreaTolerance)
		if n == 0 {
			break
		}
		stitched += n
	}
	changes += stitched

	cur, flipped := orientConsistently(cur)
	changes += flipped

	cur, filled, skipped := h.fillHoles(cur)
	changes += filled

	// Stitched and filled faces must not survive as duplicates.
	var deg2, dup2 int
	cur, deg2, dup2 = cleanFaces(cur, h.opts.AreaTolerance)
	changes += deg2 + dup2

	var outward int
	cur, outward = orientOutward(cur)
	changes += outward

	before := cur.VertexCount()
	cur = compact(cur)
	changes += before - cur.VertexCount()

	rep.MergedVertices += merged
	rep.DegenerateFaces += deg + deg2
	rep.DuplicateFaces += dup + dup2
	rep.TJunctions += stitched
	rep.HolesFilled += filled
	rep.HolesSkipped = skipped
	rep.FlippedFaces += flipped + outward
	return cur, changes
}

func failedReport(m kernel.Mesh) Report {
	return Report{
		VerticesBefore: m.VertexCount(),
		VerticesAfter:  m.VertexCount(),
		FacesBefore:    m.TriangleCount(),
		FacesAfter:     m.TriangleCount(),
		Topology:       kernel.Topology(m),
		Failed:         true,
	}
}

// compact drops unreferenced vertices and renumbers the rest in order.
func compact(m kernel.Mesh) kernel.Mesh {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}
	remap := make([]int, len(m.Vertices))
	out := kernel.Mesh{Name: m.Name}
	for i, v := range m.Vertices {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
	}
	out.Faces = make([][3]int, len(m.Faces))
	for i, f := range m.Faces {
		out.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
	return out
}
