package kernel

import (
	"fmt"
	"math"
)

// Validation codes reported by Mesh.Validate.
const (
	CodeIndexOutOfRange = "index_out_of_range"
	CodeNonFinite       = "non_finite_vertex"
	CodeRepeatedIndex   = "repeated_index"
)

// ValidationError describes one structural problem in a mesh.
type ValidationError struct {
	Code    string
	Message string
	Face    int // -1 when the problem is not tied to a face
	Vertex  int // -1 when the problem is not tied to a vertex
}

func (e ValidationError) Error() string {
	context := ""
	if e.Face >= 0 {
		context = fmt.Sprintf(" (face: %d)", e.Face)
	}
	if e.Vertex >= 0 {
		context = fmt.Sprintf(" (vertex: %d)", e.Vertex)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

// Validate checks the structural invariants of a mesh: every face index
// is within vertex bounds and every coordinate is finite. Faces that repeat
// an index are reported too; they are legal input but degenerate.
func (m Mesh) Validate() []ValidationError {
	var errs []ValidationError

	for vi, v := range m.Vertices {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				errs = append(errs, ValidationError{
					Code:    CodeNonFinite,
					Message: fmt.Sprintf("coordinate %v is not finite", v),
					Face:    -1,
					Vertex:  vi,
				})
				break
			}
		}
	}

	n := len(m.Vertices)
	for fi, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				errs = append(errs, ValidationError{
					Code:    CodeIndexOutOfRange,
					Message: fmt.Sprintf("index %d outside [0, %d)", idx, n),
					Face:    fi,
					Vertex:  -1,
				})
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			errs = append(errs, ValidationError{
				Code:    CodeRepeatedIndex,
				Message: fmt.Sprintf("face %v repeats a vertex", f),
				Face:    fi,
				Vertex:  -1,
			})
		}
	}

	return errs
}

// CheckStructure returns the first validation error that makes the mesh
// unusable (out-of-range index or non-finite coordinate), or nil.
func (m Mesh) CheckStructure() error {
	for _, e := range m.Validate() {
		if e.Code != CodeRepeatedIndex {
			return e
		}
	}
	return nil
}
