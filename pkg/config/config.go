// Package config loads meshbool settings from a TOML file layered over
// built-in defaults. Keys absent from the file keep their default value.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chazu/meshbool/pkg/engine"
	"github.com/chazu/meshbool/pkg/heal"
	"github.com/chazu/meshbool/pkg/kernel/bsp"
	"github.com/chazu/meshbool/pkg/kernel/sdfx"
	"github.com/chazu/meshbool/pkg/logging"
	"github.com/chazu/meshbool/pkg/perturb"
	"github.com/chazu/meshbool/pkg/pipeline"
)

// ErrInvalidConfig is returned by Validate and Load for out-of-range values.
var ErrInvalidConfig = errors.New("invalid config")

type PerturbConfig struct {
	Enabled        bool
	MaxTranslation float64
	ScaleDelta     float64
	// Seed fixes the random draws; zero seeds from the clock.
	Seed uint64
}

type EnginesConfig struct {
	Order          []string
	Timeout        time.Duration
	SdfxCells      int
	BSPMaxPolygons int
}

type ThinConfig struct {
	Thickness float64
	Axis      string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	File string
}

// Config holds every tunable of a run.
type Config struct {
	Heal    heal.Options
	Perturb PerturbConfig
	Engines EnginesConfig
	Thin    ThinConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// Default returns the built-in settings.
func Default() Config {
	po := perturb.DefaultOptions()
	return Config{
		Heal: heal.DefaultOptions(),
		Perturb: PerturbConfig{
			Enabled:        po.Enabled,
			MaxTranslation: po.MaxTranslation,
			ScaleDelta:     po.ScaleDelta,
		},
		Engines: EnginesConfig{
			Order:          append([]string(nil), engine.DefaultOrder...),
			Timeout:        engine.EvalTimeout,
			SdfxCells:      sdfx.DefaultMeshCells,
			BSPMaxPolygons: bsp.DefaultMaxPolygons,
		},
		Thin: ThinConfig{Thickness: 1.0, Axis: "z"},
		Log:  LogConfig{Level: "info", Format: logging.FormatConsole},
	}
}

type fileConfig struct {
	Heal struct {
		MergeTolerance   float64 `toml:"merge_tolerance"`
		AreaTolerance    float64 `toml:"area_tolerance"`
		MaxHolePerimeter float64 `toml:"max_hole_perimeter"`
		MaxHoleEdges     int     `toml:"max_hole_edges"`
		MaxIterations    int     `toml:"max_iterations"`
	} `toml:"heal"`
	Perturb struct {
		Enabled        bool    `toml:"enabled"`
		MaxTranslation float64 `toml:"max_translation"`
		ScaleDelta     float64 `toml:"scale_delta"`
		Seed           int64   `toml:"seed"`
	} `toml:"perturb"`
	Engines struct {
		Order          []string `toml:"order"`
		Timeout        string   `toml:"timeout"`
		SdfxCells      int      `toml:"sdfx_cells"`
		BSPMaxPolygons int      `toml:"bsp_max_polygons"`
	} `toml:"engines"`
	Thin struct {
		Thickness float64 `toml:"thickness"`
		Axis      string  `toml:"axis"`
	} `toml:"thin"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Metrics struct {
		File string `toml:"file"`
	} `toml:"metrics"`
}

// Load reads path over Default and validates the result. Unknown keys are
// an error so that typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	if meta.IsDefined("heal", "merge_tolerance") {
		cfg.Heal.MergeTolerance = raw.Heal.MergeTolerance
	}
	if meta.IsDefined("heal", "area_tolerance") {
		cfg.Heal.AreaTolerance = raw.Heal.AreaTolerance
	}
	if meta.IsDefined("heal", "max_hole_perimeter") {
		cfg.Heal.MaxHolePerimeter = raw.Heal.MaxHolePerimeter
	}
	if meta.IsDefined("heal", "max_hole_edges") {
		cfg.Heal.MaxHoleEdges = raw.Heal.MaxHoleEdges
	}
	if meta.IsDefined("heal", "max_iterations") {
		cfg.Heal.MaxIterations = raw.Heal.MaxIterations
	}

	if meta.IsDefined("perturb", "enabled") {
		cfg.Perturb.Enabled = raw.Perturb.Enabled
	}
	if meta.IsDefined("perturb", "max_translation") {
		cfg.Perturb.MaxTranslation = raw.Perturb.MaxTranslation
	}
	if meta.IsDefined("perturb", "scale_delta") {
		cfg.Perturb.ScaleDelta = raw.Perturb.ScaleDelta
	}
	if meta.IsDefined("perturb", "seed") {
		if raw.Perturb.Seed < 0 {
			return Config{}, fmt.Errorf("%w: perturb.seed must not be negative", ErrInvalidConfig)
		}
		cfg.Perturb.Seed = uint64(raw.Perturb.Seed)
	}

	if meta.IsDefined("engines", "order") {
		cfg.Engines.Order = normalizeNames(raw.Engines.Order)
	}
	if meta.IsDefined("engines", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Engines.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse engines.timeout: %w", err)
		}
		cfg.Engines.Timeout = d
	}
	if meta.IsDefined("engines", "sdfx_cells") {
		cfg.Engines.SdfxCells = raw.Engines.SdfxCells
	}
	if meta.IsDefined("engines", "bsp_max_polygons") {
		cfg.Engines.BSPMaxPolygons = raw.Engines.BSPMaxPolygons
	}

	if meta.IsDefined("thin", "thickness") {
		cfg.Thin.Thickness = raw.Thin.Thickness
	}
	if meta.IsDefined("thin", "axis") {
		cfg.Thin.Axis = strings.TrimSpace(raw.Thin.Axis)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(raw.Log.Format))
	}
	if meta.IsDefined("metrics", "file") {
		cfg.Metrics.File = strings.TrimSpace(raw.Metrics.File)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}
	switch {
	case c.Heal.MergeTolerance <= 0:
		return bad("heal.merge_tolerance must be positive")
	case c.Heal.AreaTolerance <= 0:
		return bad("heal.area_tolerance must be positive")
	case c.Heal.MaxHolePerimeter <= 0:
		return bad("heal.max_hole_perimeter must be positive")
	case c.Heal.MaxHoleEdges < 3:
		return bad("heal.max_hole_edges must be at least 3")
	case c.Heal.MaxIterations < 1:
		return bad("heal.max_iterations must be at least 1")
	case c.Perturb.MaxTranslation < 0:
		return bad("perturb.max_translation must not be negative")
	case c.Perturb.ScaleDelta < 0 || c.Perturb.ScaleDelta >= 0.5:
		return bad("perturb.scale_delta must be in [0, 0.5), got %g", c.Perturb.ScaleDelta)
	case len(c.Engines.Order) == 0:
		return bad("engines.order is empty")
	case c.Engines.Timeout < 0:
		return bad("engines.timeout must not be negative")
	case c.Engines.SdfxCells < 8:
		return bad("engines.sdfx_cells must be at least 8, got %d", c.Engines.SdfxCells)
	case c.Engines.BSPMaxPolygons < 0:
		return bad("engines.bsp_max_polygons must not be negative")
	case c.Thin.Thickness <= 0:
		return bad("thin.thickness must be positive")
	}
	if _, err := pipeline.ParseAxis(c.Thin.Axis); err != nil {
		return bad("thin.axis: %v", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return bad("log.level: %v", err)
	}
	if c.Log.Format != logging.FormatConsole && c.Log.Format != logging.FormatJSON {
		return bad("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// PerturbOptions converts the perturb section.
func (c Config) PerturbOptions() perturb.Options {
	return perturb.Options{
		Enabled:        c.Perturb.Enabled,
		MaxTranslation: c.Perturb.MaxTranslation,
		ScaleDelta:     c.Perturb.ScaleDelta,
	}
}

// EngineOptions converts the engines section.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		BSP:       bsp.Options{MaxPolygons: c.Engines.BSPMaxPolygons},
		SdfxCells: c.Engines.SdfxCells,
	}
}

func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
