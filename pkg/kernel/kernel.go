// Package kernel defines the mesh value type and the abstract boolean
// kernel interface. Implementations (bsp, sdfx, manifold) evaluate boolean
// operations behind this interface, which lets the pipeline order them as
// primary and fallback engines without knowing how they work.
package kernel

import (
	"context"
	"fmt"
	"math"
)

// Op is a boolean set operation.
type Op int

const (
	OpIntersection Op = iota
	OpDifference
	OpUnion
)

func (o Op) String() string {
	switch o {
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	case OpUnion:
		return "union"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Status tags the outcome of a kernel evaluation.
type Status int

const (
	// StatusSuccess means the kernel produced a non-empty solid.
	StatusSuccess Status = iota
	// StatusEmpty means the computation completed but enclosed no volume.
	StatusEmpty
	// StatusFailure means the computation could not complete.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the tagged outcome of Kernel.Boolean. Mesh is set only for
// StatusSuccess; Reason explains Empty and Failure outcomes.
type Result struct {
	Status Status
	Mesh   Mesh
	Reason string
}

// Success wraps a non-empty result mesh.
func Success(m Mesh) Result {
	return Result{Status: StatusSuccess, Mesh: m}
}

// Empty reports a completed computation with no volume.
func Empty(reason string) Result {
	return Result{Status: StatusEmpty, Reason: reason}
}

// Failure reports a computation that could not complete.
func Failure(format string, args ...any) Result {
	return Result{Status: StatusFailure, Reason: fmt.Sprintf(format, args...)}
}

// OK reports whether the result carries a usable mesh.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// EmptyVolume is the enclosed volume below which a result counts as empty.
const EmptyVolume = 1e-9

// Classify turns a raw kernel output into Success or Empty. A mesh with no
// faces or with |volume| below EmptyVolume is Empty.
func Classify(m Mesh) Result {
	if m.IsEmpty() {
		return Empty("result has no faces")
	}
	if v := m.SignedVolume(); math.Abs(v) < EmptyVolume {
		return Empty(fmt.Sprintf("result encloses no volume (%.3g)", v))
	}
	return Success(m)
}

// Kernel is the abstract boolean engine interface. Implementations must not
// mutate their operands and should return promptly once ctx is done.
type Kernel interface {
	// Name identifies the kernel in logs, metrics and configuration.
	Name() string

	// Boolean evaluates op on the solids bounded by a and b.
	Boolean(ctx context.Context, a, b Mesh, op Op) Result
}
