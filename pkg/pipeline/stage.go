package pipeline

import (
	"fmt"
	"strings"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// Stage is a step of a pipeline run.
type Stage string

const (
	StageLoad            Stage = "LOAD"
	StageHealInputs      Stage = "HEAL_INPUTS"
	StagePerturbTool     Stage = "PERTURB_TOOL"
	StageBooleanPrimary  Stage = "BOOLEAN_PRIMARY"
	StageBooleanFallback Stage = "BOOLEAN_FALLBACK"
	StageHealResult      Stage = "HEAL_RESULT"
	StageValidate        Stage = "VALIDATE"
	StageExport          Stage = "EXPORT"
	StageDone            Stage = "DONE"
	StageAbort           Stage = "ABORT"
)

// Op is a pipeline request type.
type Op string

const (
	OpRepair           Op = "repair"
	OpDifference       Op = "difference"
	OpIntersection     Op = "intersection"
	OpThinIntersection Op = "thin_intersection"
	OpUnion            Op = "union"
)

// ParseOp accepts the request names and the command aliases.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "repair":
		return OpRepair, nil
	case "difference", "subtract":
		return OpDifference, nil
	case "intersection", "intersect":
		return OpIntersection, nil
	case "thin_intersection", "thin_intersect", "thin-intersect":
		return OpThinIntersection, nil
	case "union":
		return OpUnion, nil
	default:
		return "", fmt.Errorf("%w: unknown operation %q", ErrInvalidRequest, s)
	}
}

// Boolean reports whether op needs a tool mesh.
func (o Op) Boolean() bool {
	return o != OpRepair
}

// kernelOp maps a request onto the boolean run by the engine chain.
func (o Op) kernelOp() kernel.Op {
	switch o {
	case OpDifference:
		return kernel.OpDifference
	case OpUnion:
		return kernel.OpUnion
	default:
		return kernel.OpIntersection
	}
}

// Axis is the direction along which a thin intersection offsets the model.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis accepts x, y or z.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z", "":
		return AxisZ, nil
	default:
		return AxisZ, fmt.Errorf("%w: unknown axis %q", ErrInvalidRequest, s)
	}
}

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// Offset returns the vector of length d along a.
func (a Axis) Offset(d float64) vec3.T {
	var v vec3.T
	v[a] = d
	return v
}
