// Package cli implements the meshbool command line: argument parsing,
// assembly of the pipeline from configuration and flags, and exit codes.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chazu/meshbool/pkg/config"
	"github.com/chazu/meshbool/pkg/engine"
	"github.com/chazu/meshbool/pkg/heal"
	"github.com/chazu/meshbool/pkg/logging"
	"github.com/chazu/meshbool/pkg/meshio"
	"github.com/chazu/meshbool/pkg/metrics"
	"github.com/chazu/meshbool/pkg/perturb"
	"github.com/chazu/meshbool/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

// Exit codes. ExitUsage is kept for command lines that do not parse:
// unknown commands, unknown flags and stray arguments. A command line
// that parses but names a bad value or an incomplete request fails with
// ExitFailure like any other failed run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError carries the process exit code for a failed invocation.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string { return e.Message }

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// Invocation is a parsed command line.
type Invocation struct {
	Request pipeline.Request
	Config  config.Config
	Format  meshio.Format
}

const usage = `meshbool - robust boolean operations on triangle meshes

Usage:
  meshbool repair         -o OUT -i IN
  meshbool subtract       -o OUT -model M -tool T
  meshbool intersect      -o OUT -model M -tool T
  meshbool thin_intersect -o OUT -model M -tool T [-thickness 1.0]
  meshbool union          -o OUT -model M -tool T

Run 'meshbool COMMAND -h' for the options of a command.
`

// Parse turns args (without the program name) into an Invocation. The
// boolean result is true when the caller should exit without running,
// for example after printing help.
func Parse(args []string, out io.Writer) (*Invocation, bool, error) {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil, true, nil
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(out, usage)
		return nil, true, nil
	}

	op, err := pipeline.ParseOp(args[0])
	if err != nil {
		return nil, false, usageError("unknown command %q\n%s", args[0], usage)
	}

	def := config.Default()
	fs := flag.NewFlagSet("meshbool "+args[0], flag.ContinueOnError)
	fs.SetOutput(out)

	output := fs.String("o", "", "Output mesh path (.stl or .obj).")
	input := fs.String("i", "", "Input mesh path (repair).")
	model := fs.String("model", "", "Model mesh path.")
	tool := fs.String("tool", "", "Tool mesh path.")
	thickness := fs.Float64("thickness", def.Thin.Thickness, "Offset distance for thin_intersect.")
	axis := fs.String("axis", def.Thin.Axis, "Offset axis for thin_intersect: x, y or z.")
	configPath := fs.String("config", "", "TOML configuration file.")
	seed := fs.Uint64("seed", 0, "Perturbation seed; 0 seeds from the clock.")
	noPerturb := fs.Bool("no-perturb", false, "Disable tool perturbation.")
	engines := fs.String("engines", strings.Join(def.Engines.Order, ","), "Engine preference order (bsp, sdfx, manifold).")
	timeout := fs.Duration("timeout", def.Engines.Timeout, "Time limit for each engine call; 0 disables it.")
	logLevel := fs.String("log-level", def.Log.Level, "Log level: trace, debug, info, warn, error or off.")
	logFormat := fs.String("log-format", def.Log.Format, "Log format: console or json.")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this file after the run.")
	format := fs.String("format", "", "Output format: stl, stl-binary or obj (default from extension).")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
	}
	if fs.NArg() > 0 {
		return nil, false, usageError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := def
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, false, &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
		}
	}

	lc := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	logging.ApplyEnv(&lc)
	cfg.Log.Level, cfg.Log.Format = lc.Level, lc.Format

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["thickness"] {
		cfg.Thin.Thickness = *thickness
	}
	if set["axis"] {
		cfg.Thin.Axis = *axis
	}
	if set["seed"] {
		cfg.Perturb.Seed = *seed
	}
	if *noPerturb {
		cfg.Perturb.Enabled = false
	}
	if set["engines"] {
		cfg.Engines.Order = strings.Split(*engines, ",")
	}
	if set["timeout"] {
		cfg.Engines.Timeout = *timeout
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["log-format"] {
		cfg.Log.Format = strings.ToLower(*logFormat)
	}
	if set["metrics-file"] {
		cfg.Metrics.File = *metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
	}

	f, err := meshio.ParseFormat(*format)
	if err != nil {
		return nil, false, &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
	}

	req := pipeline.Request{
		Op:        op,
		Model:     *model,
		Tool:      *tool,
		Output:    *output,
		Thickness: cfg.Thin.Thickness,
	}
	if op == pipeline.OpRepair {
		req.Model = *input
		if req.Model == "" {
			req.Model = *model
		}
	}
	if err := req.Validate(); err != nil {
		return nil, false, &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%v (see 'meshbool %s -h')", err, args[0]), Err: err}
	}

	return &Invocation{Request: req, Config: cfg, Format: f}, false, nil
}

// Run parses args and executes the request. Results are reported on
// stdout, logs go to stderr. Every failure is an *ExitError.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	inv, exit, err := Parse(args, stdout)
	if err != nil || exit {
		return err
	}
	cfg := inv.Config

	log := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Timestamp: true,
		NoColor:   logNoColor(),
		Out:       stderr,
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	kernels, err := engine.Build(cfg.Engines.Order, cfg.EngineOptions(), log)
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
	}
	chain := engine.NewChain(kernels,
		engine.WithTimeout(cfg.Engines.Timeout),
		engine.WithLogger(log),
		engine.WithMetrics(m),
	)

	var pt *perturb.Perturber
	if cfg.Perturb.Enabled {
		pt = perturb.NewSeeded(cfg.Perturb.Seed, cfg.PerturbOptions())
	}
	axis, _ := pipeline.ParseAxis(cfg.Thin.Axis)

	p := pipeline.New(
		pipeline.WithHealer(heal.New(cfg.Heal)),
		pipeline.WithPerturber(pt),
		pipeline.WithChain(chain),
		pipeline.WithExporter(meshio.Files{Format: inv.Format}),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
		pipeline.WithAxis(axis),
	)

	log.Info().
		Str("op", string(inv.Request.Op)).
		Strs("engines", chain.Names()).
		Dur("timeout", cfg.Engines.Timeout).
		Bool("perturb", pt != nil).
		Msg("starting")

	out, runErr := p.Run(ctx, inv.Request)

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File, reg); err != nil {
			log.Warn().Err(err).Msg("metrics not written")
		}
	}
	if runErr != nil {
		return &ExitError{Code: ExitFailure, Message: runErr.Error(), Err: runErr}
	}

	engineName := ""
	if n := len(out.Attempts); n > 0 {
		engineName = out.Attempts[n-1].Engine
	}
	fmt.Fprintf(stdout, "%s: wrote %s (%d vertices, %d faces", inv.Request.Op, inv.Request.Output,
		out.Mesh.VertexCount(), out.Mesh.TriangleCount())
	if engineName != "" {
		fmt.Fprintf(stdout, ", engine %s", engineName)
	}
	fmt.Fprintf(stdout, ", %s)\n", out.Duration.Round(time.Millisecond))
	return nil
}

// logNoColor honours MESHBOOL_LOG_NOCOLOR.
func logNoColor() bool {
	lc := logging.Config{}
	logging.ApplyEnv(&lc)
	return lc.NoColor
}
