// Package sdfx implements the fallback boolean kernel using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Each operand is turned into a signed distance field, the fields are
// combined with the sdfx CSG operators and the result is re-tessellated
// with marching cubes. This tolerates imperfect input (small holes, bad
// winding, self-touching shells) at the cost of approximation error of
// about one grid cell near the surfaces.
package sdfx

import (
	"context"
	"fmt"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/deadsy/sdfx/obj"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/ungerik/go3d/float64/vec3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest axis of the result's bounding box.
const DefaultMeshCells = 96

// Mesh field tuning. Each sample looks at the nearest maxNeighbors
// triangles by bounding box; the R-tree fan-out follows obj.ImportTriMesh.
const (
	maxNeighbors = 32
	minChildren  = 3
	maxChildren  = 5
)

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel rendering with the given number of cells;
// zero or negative selects DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Name implements kernel.Kernel.
func (k *SdfxKernel) Name() string { return "sdfx" }

// Cells returns the marching cubes resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

// Boolean implements kernel.Kernel.
func (k *SdfxKernel) Boolean(ctx context.Context, a, b kernel.Mesh, op kernel.Op) (res kernel.Result) {
	// sdfx reports some failures by panicking.
	defer func() {
		if r := recover(); r != nil {
			res = kernel.Failure("sdfx: %v", r)
		}
	}()

	if a.IsEmpty() || b.IsEmpty() {
		return kernel.Failure("sdfx: operand has no faces")
	}
	for _, m := range []kernel.Mesh{a, b} {
		if err := m.CheckStructure(); err != nil {
			return kernel.Failure("sdfx: %v", err)
		}
	}
	if op == kernel.OpIntersection && !a.Bounds().Overlaps(b.Bounds()) {
		return kernel.Empty("operand bounding boxes are disjoint")
	}

	sa, err := ToSDF(a)
	if err != nil {
		return kernel.Failure("sdfx: first operand: %v", err)
	}
	sb, err := ToSDF(b)
	if err != nil {
		return kernel.Failure("sdfx: second operand: %v", err)
	}

	var s sdf.SDF3
	switch op {
	case kernel.OpIntersection:
		s = sdf.Intersect3D(sa, sb)
	case kernel.OpDifference:
		s = sdf.Difference3D(sa, sb)
	case kernel.OpUnion:
		s = sdf.Union3D(sa, sb)
	default:
		return kernel.Failure("sdfx: unsupported operation %v", op)
	}

	if err := ctx.Err(); err != nil {
		return kernel.Failure("sdfx: %v", err)
	}
	m := k.ToMesh(s)
	if err := ctx.Err(); err != nil {
		return kernel.Failure("sdfx: %v", err)
	}
	return kernel.Classify(m)
}

// ToSDF converts a closed, outward-wound triangle mesh to an sdfx signed
// distance field. The sign at a point comes from the plane of the nearest
// triangle.
func ToSDF(m kernel.Mesh) (sdf.SDF3, error) {
	tris := make([]*sdf.Triangle3, 0, len(m.Faces))
	for i := range m.Faces {
		t := m.Triangle(i)
		if kernel.TriangleArea(t) == 0 {
			continue
		}
		tris = append(tris, &sdf.Triangle3{toVec(t[0]), toVec(t[1]), toVec(t[2])})
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("mesh has no non-degenerate faces")
	}
	return obj.ImportTriMesh(tris, min(len(tris), maxNeighbors), minChildren, maxChildren), nil
}

// ToMesh tessellates a signed distance field with marching cubes.
func (k *SdfxKernel) ToMesh(s sdf.SDF3) kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(s, renderer)

	soup := make([][3]vec3.T, 0, len(triangles))
	for _, tri := range triangles {
		soup = append(soup, [3]vec3.T{fromVec(tri[0]), fromVec(tri[1]), fromVec(tri[2])})
	}
	return kernel.FromTriangles(soup)
}

// Triangles converts a mesh into the sdfx triangle representation used by
// the sdfx renderers and STL writer.
func Triangles(m kernel.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, len(m.Faces))
	for i := range m.Faces {
		t := m.Triangle(i)
		out[i] = &sdf.Triangle3{toVec(t[0]), toVec(t[1]), toVec(t[2])}
	}
	return out
}

func toVec(v vec3.T) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func fromVec(v v3.Vec) vec3.T {
	return vec3.T{v.X, v.Y, v.Z}
}
