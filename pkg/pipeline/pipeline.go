// Package pipeline runs a mesh request end to end: load the inputs, heal
// them, perturb the tool, evaluate the boolean through the engine chain,
// heal and validate the result, then export it.
//
// Stages are logged and recorded in the Outcome trace as they are entered.
// Any terminal failure is returned as a *StageError naming the stage that
// aborted; nothing is written unless every stage succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/meshbool/pkg/engine"
	"github.com/chazu/meshbool/pkg/heal"
	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/chazu/meshbool/pkg/meshio"
	"github.com/chazu/meshbool/pkg/metrics"
	"github.com/chazu/meshbool/pkg/perturb"
	"github.com/rs/zerolog"
)

// Loader reads an input mesh.
type Loader interface {
	Load(path string) (kernel.Mesh, error)
}

// Exporter writes the final mesh.
type Exporter interface {
	Export(path string, m kernel.Mesh) error
}

// Request describes one run.
type Request struct {
	Op Op
	// Model is the input path for every op; for repair it is the only input.
	Model string
	Tool  string
	// Output is the destination path.
	Output string
	// Thickness is the offset distance of a thin intersection.
	Thickness float64
}

// Validate checks that the request names every input its op needs.
func (r Request) Validate() error {
	if _, err := ParseOp(string(r.Op)); err != nil {
		return err
	}
	switch {
	case r.Model == "":
		return fmt.Errorf("%w: no model input", ErrInvalidRequest)
	case r.Op.Boolean() && r.Tool == "":
		return fmt.Errorf("%w: %s needs a tool input", ErrInvalidRequest, r.Op)
	case r.Output == "":
		return fmt.Errorf("%w: no output path", ErrInvalidRequest)
	case r.Op == OpThinIntersection && r.Thickness <= 0:
		return fmt.Errorf("%w: thickness must be positive, got %g", ErrInvalidRequest, r.Thickness)
	}
	return nil
}

// HealRecord is the repair report for one mesh of a run.
type HealRecord struct {
	Mesh   string
	Report heal.Report
	Err    error
}

// Outcome describes a run, successful or not.
type Outcome struct {
	Op       Op
	Mesh     kernel.Mesh
	Attempts []engine.Attempt
	Jitter   perturb.Jitter
	Trace    []Stage
	Heals    []HealRecord
	Duration time.Duration
}

// Pipeline executes requests. A Pipeline holds no per-run state but its
// perturber is not safe for concurrent use, so runs must not overlap.
type Pipeline struct {
	healer    *heal.Healer
	perturber *perturb.Perturber
	chain     *engine.Chain
	loader    Loader
	exporter  Exporter
	log       zerolog.Logger
	metrics   *metrics.Metrics
	axis      Axis
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHealer sets the healer used for inputs and results.
func WithHealer(h *heal.Healer) Option {
	return func(p *Pipeline) { p.healer = h }
}

// WithPerturber sets the tool perturber. nil disables perturbation.
func WithPerturber(pt *perturb.Perturber) Option {
	return func(p *Pipeline) { p.perturber = pt }
}

// WithChain sets the boolean engine chain.
func WithChain(c *engine.Chain) Option {
	return func(p *Pipeline) { p.chain = c }
}

// WithLoader sets how inputs are read.
func WithLoader(l Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithExporter sets how the result is written.
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics records runs and repairs in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithAxis sets the thin intersection offset axis.
func WithAxis(a Axis) Option {
	return func(p *Pipeline) { p.axis = a }
}

// New returns a Pipeline. Unset parts get defaults: default healing, a
// clock-seeded perturber, the bsp and sdfx engines, file I/O and the +Z
// offset axis.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		healer:    heal.New(heal.DefaultOptions()),
		perturber: perturb.NewSeeded(0, perturb.DefaultOptions()),
		loader:    meshio.Files{},
		exporter:  meshio.Files{},
		log:       zerolog.Nop(),
		axis:      AxisZ,
	}
	for _, o := range opts {
		o(p)
	}
	if p.chain == nil {
		// The default engine names always resolve.
		kernels, _ := engine.Build(engine.DefaultOrder, engine.Options{}, p.log)
		p.chain = engine.NewChain(kernels, engine.WithLogger(p.log), engine.WithMetrics(p.metrics))
	}
	return p
}

// Run executes req from LOAD to DONE.
func (p *Pipeline) Run(ctx context.Context, req Request) (out *Outcome, err error) {
	start := time.Now()
	out = &Outcome{Op: req.Op}
	defer func() {
		out.Duration = time.Since(start)
		result := "ok"
		if err != nil {
			result = "failed"
		}
		p.metrics.RecordRun(string(req.Op), result)
	}()

	p.enter(out, StageLoad)
	if err := req.Validate(); err != nil {
		return out, p.abort(out, StageLoad, req.Op, err)
	}
	model, err := p.loader.Load(req.Model)
	if err != nil {
		return out, p.abort(out, StageLoad, req.Op, err)
	}
	var tool kernel.Mesh
	if req.Op.Boolean() {
		if tool, err = p.loader.Load(req.Tool); err != nil {
			return out, p.abort(out, StageLoad, req.Op, err)
		}
	}
	p.log.Info().
		Str("op", string(req.Op)).
		Int("model_faces", model.TriangleCount()).
		Int("tool_faces", tool.TriangleCount()).
		Msg("inputs loaded")

	m, err := p.evaluate(ctx, req.Op, model, tool, req.Thickness, out)
	if err != nil {
		return out, err
	}

	p.enter(out, StageExport)
	if err := p.exporter.Export(req.Output, m); err != nil {
		if !errors.Is(err, ErrExportFailure) {
			err = fmt.Errorf("%w: %w", ErrExportFailure, err)
		}
		return out, p.abort(out, StageExport, req.Op, err)
	}
	p.metrics.SetOutputTriangles(m.TriangleCount())

	p.enter(out, StageDone)
	p.log.Info().
		Str("op", string(req.Op)).
		Str("output", req.Output).
		Int("vertices", m.VertexCount()).
		Int("faces", m.TriangleCount()).
		Dur("duration", time.Since(start)).
		Msg("run complete")
	return out, nil
}

// Evaluate runs the in-memory stages, HEAL_INPUTS through VALIDATE, of op
// on already loaded meshes. tool is ignored for repair and delta is only
// used by thin intersection.
func (p *Pipeline) Evaluate(ctx context.Context, op Op, model, tool kernel.Mesh, delta float64) (kernel.Mesh, error) {
	return p.evaluate(ctx, op, model, tool, delta, &Outcome{Op: op})
}

func (p *Pipeline) evaluate(ctx context.Context, op Op, model, tool kernel.Mesh, delta float64, out *Outcome) (kernel.Mesh, error) {
	if _, err := ParseOp(string(op)); err != nil {
		return kernel.Mesh{}, p.abort(out, StageHealInputs, op, err)
	}
	if op == OpThinIntersection && delta <= 0 {
		err := fmt.Errorf("%w: thickness must be positive, got %g", ErrInvalidRequest, delta)
		return kernel.Mesh{}, p.abort(out, StageHealInputs, op, err)
	}

	p.enter(out, StageHealInputs)
	model = p.heal(out, model.WithName("model"))
	if !op.Boolean() {
		return p.validate(out, op, model)
	}
	tool = p.heal(out, tool.WithName("tool"))

	p.enter(out, StagePerturbTool)
	if p.perturber != nil {
		tool, out.Jitter = p.perturber.Perturb(tool)
		p.log.Info().
			Floats64("translation", out.Jitter.Translation[:]).
			Float64("scale", out.Jitter.Scale).
			Msg("tool perturbed")
	} else {
		out.Jitter = perturb.Jitter{Scale: 1}
	}

	res, stage, err := p.boolean(ctx, out, model, tool, op.kernelOp())
	if err != nil {
		return kernel.Mesh{}, p.abort(out, stage, op, err)
	}
	p.enter(out, StageHealResult)
	res = p.heal(out, res.WithName("result"))

	if op == OpThinIntersection {
		// The offset copy intersects the stage-1 result; no fallback to
		// stage 1 when that fails.
		offset := model.Translate(p.axis.Offset(delta)).WithName("offset")
		offset = p.heal(out, offset)

		thin, stage, err := p.boolean(ctx, out, res, offset, kernel.OpIntersection)
		if err != nil {
			return kernel.Mesh{}, p.abort(out, stage, op, fmt.Errorf("%w: %w", ErrThinStageFailed, err))
		}
		p.enter(out, StageHealResult)
		res = p.heal(out, thin.WithName("thin"))
	}

	return p.validate(out, op, res)
}

// boolean evaluates one operation through the chain and returns the stage
// it ended in.
func (p *Pipeline) boolean(ctx context.Context, out *Outcome, a, b kernel.Mesh, op kernel.Op) (kernel.Mesh, Stage, error) {
	p.enter(out, StageBooleanPrimary)
	m, attempts, err := p.chain.Evaluate(ctx, a, b, op)
	out.Attempts = append(out.Attempts, attempts...)

	stage := StageBooleanPrimary
	if len(attempts) > 1 {
		stage = StageBooleanFallback
		p.enter(out, stage)
	}
	if err != nil {
		if engine.AllEmpty(attempts) {
			err = fmt.Errorf("%w: %w", ErrEmptyFinalResult, err)
		}
		return kernel.Mesh{}, stage, err
	}
	return m, stage, nil
}

func (p *Pipeline) validate(out *Outcome, op Op, m kernel.Mesh) (kernel.Mesh, error) {
	p.enter(out, StageValidate)
	if m.IsEmpty() {
		return kernel.Mesh{}, p.abort(out, StageValidate, op, ErrEmptyFinalResult)
	}
	out.Mesh = m
	return m, nil
}

// heal repairs m and records the report. A failed repair is logged and the
// unrepaired mesh is kept.
func (p *Pipeline) heal(out *Outcome, m kernel.Mesh) kernel.Mesh {
	healed, rep, err := p.healer.Repair(m)
	out.Heals = append(out.Heals, HealRecord{Mesh: m.Name, Report: rep, Err: err})
	if err != nil {
		p.metrics.RecordHeal("failed")
		p.log.Warn().Err(err).Str("mesh", m.Name).Msg("healing failed, keeping unrepaired mesh")
		return m
	}
	p.metrics.RecordHeal("ok")
	p.log.Info().
		Str("mesh", m.Name).
		Int("faces_before", rep.FacesBefore).
		Int("faces_after", rep.FacesAfter).
		Int("vertices_before", rep.VerticesBefore).
		Int("vertices_after", rep.VerticesAfter).
		Int("merged", rep.MergedVertices).
		Int("holes_filled", rep.HolesFilled).
		Int("flipped", rep.FlippedFaces).
		Bool("watertight", rep.Watertight()).
		Msg("healed")
	return healed
}

func (p *Pipeline) enter(out *Outcome, s Stage) {
	out.Trace = append(out.Trace, s)
	p.log.Debug().Str("stage", string(s)).Str("op", string(out.Op)).Msg("stage")
}

func (p *Pipeline) abort(out *Outcome, s Stage, op Op, err error) error {
	out.Trace = append(out.Trace, StageAbort)
	p.log.Error().Err(err).Str("stage", string(s)).Str("op", string(op)).Msg("run aborted")
	return &StageError{Stage: s, Op: op, Err: err}
}
