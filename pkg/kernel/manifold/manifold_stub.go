//go:build !manifold

// Package manifold wraps the Manifold C library as a boolean kernel. This
// file is the fallback compiled without the "manifold" build tag: New
// always fails and engine.Build drops the engine from the chain.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/meshbool/pkg/kernel"
)

// ErrUnavailable is returned by New when the binding is not compiled in.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New reports that the native kernel is missing from this binary.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
