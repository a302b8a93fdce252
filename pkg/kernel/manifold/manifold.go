//go:build manifold

// Package manifold provides a CGo-based boolean kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold
// guarantees manifold output for manifold input, which makes it a strong
// primary engine when the native library is installed.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"context"
	"runtime"
	"unsafe"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*ManifoldKernel)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Name implements kernel.Kernel.
func (k *ManifoldKernel) Name() string { return "manifold" }

// Boolean implements kernel.Kernel. The C call cannot be interrupted, so
// ctx is only checked before and after it.
func (k *ManifoldKernel) Boolean(ctx context.Context, a, b kernel.Mesh, op kernel.Op) kernel.Result {
	if a.IsEmpty() || b.IsEmpty() {
		return kernel.Failure("manifold: operand has no faces")
	}
	sa, err := fromMesh(a)
	if err != "" {
		return kernel.Failure("manifold: first operand: %s", err)
	}
	sb, err := fromMesh(b)
	if err != "" {
		return kernel.Failure("manifold: second operand: %s", err)
	}
	if e := ctx.Err(); e != nil {
		return kernel.Failure("manifold: %v", e)
	}

	alloc := C.manifold_alloc_manifold()
	var ptr *C.ManifoldManifold
	switch op {
	case kernel.OpUnion:
		ptr = C.manifold_union(alloc, sa.ptr, sb.ptr)
	case kernel.OpDifference:
		ptr = C.manifold_difference(alloc, sa.ptr, sb.ptr)
	case kernel.OpIntersection:
		ptr = C.manifold_intersection(alloc, sa.ptr, sb.ptr)
	default:
		C.free(unsafe.Pointer(alloc))
		return kernel.Failure("manifold: unsupported operation %v", op)
	}
	out := newSolid(ptr)
	if status := C.manifold_status(out.ptr); status != 0 {
		return kernel.Failure("manifold: boolean failed with status %d", int(status))
	}
	if e := ctx.Err(); e != nil {
		return kernel.Failure("manifold: %v", e)
	}
	return kernel.Classify(toMesh(out))
}

// fromMesh uploads a mesh as MeshGL and builds a manifold from it. It
// returns a non-empty reason when Manifold rejects the input.
func fromMesh(m kernel.Mesh) (*manifoldSolid, string) {
	props := make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		props = append(props, float32(v[0]), float32(v[1]), float32(v[2]))
	}
	tris := make([]uint32, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		tris = append(tris, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	meshGL := C.manifold_meshgl(C.manifold_alloc_meshgl(),
		(*C.float)(unsafe.Pointer(&props[0])), C.size_t(len(m.Vertices)), C.size_t(3),
		(*C.uint32_t)(unsafe.Pointer(&tris[0])), C.size_t(len(m.Faces)),
	)
	defer C.manifold_delete_meshgl(meshGL)

	s := newSolid(C.manifold_of_meshgl(C.manifold_alloc_manifold(), meshGL))
	if status := C.manifold_status(s.ptr); status != 0 {
		return nil, "input is not manifold"
	}
	return s, ""
}

// toMesh extracts the triangle mesh of a solid through MeshGL. Positions
// are the first three vertex properties.
func toMesh(s *manifoldSolid) kernel.Mesh {
	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), s.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return kernel.Mesh{}
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&propData[0])), meshGL)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), meshGL)

	out := kernel.Mesh{
		Vertices: make([]vec3.T, numVert),
		Faces:    make([][3]int, numTri),
	}
	for i := range out.Vertices {
		base := i * numProp
		out.Vertices[i] = vec3.T{
			float64(propData[base]),
			float64(propData[base+1]),
			float64(propData[base+2]),
		}
	}
	for i := range out.Faces {
		out.Faces[i] = [3]int{int(indices[i*3]), int(indices[i*3+1]), int(indices[i*3+2])}
	}
	return out
}
