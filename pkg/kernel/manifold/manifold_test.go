//go:build manifold

package manifold

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

func mustNew(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func TestBooleanOverlappingCubes(t *testing.T) {
	k := mustNew(t)
	a := kernel.BoxMesh(1, 1, 1)
	b := kernel.BoxMesh(1, 1, 1).Translate(vec3.T{0.5, 0.5, 0.5})

	tests := []struct {
		op   kernel.Op
		want float64
	}{
		{kernel.OpIntersection, 0.125},
		{kernel.OpDifference, 0.875},
		{kernel.OpUnion, 1.875},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			res := k.Boolean(context.Background(), a, b, tt.op)
			if res.Status != kernel.StatusSuccess {
				t.Fatalf("status = %v (%s)", res.Status, res.Reason)
			}
			if got := res.Mesh.Volume(); math.Abs(got-tt.want) > 1e-5 {
				t.Errorf("volume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBooleanDisjointIsEmpty(t *testing.T) {
	k := mustNew(t)
	a := kernel.BoxMesh(1, 1, 1)
	b := kernel.BoxMesh(1, 1, 1).Translate(vec3.T{4, 0, 0})
	if res := k.Boolean(context.Background(), a, b, kernel.OpIntersection); res.Status != kernel.StatusEmpty {
		t.Errorf("status = %v, want empty", res.Status)
	}
}
