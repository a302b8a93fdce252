package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/chazu/meshbool/pkg/kernel/bsp"
	"github.com/chazu/meshbool/pkg/kernel/manifold"
	"github.com/chazu/meshbool/pkg/kernel/sdfx"
	"github.com/rs/zerolog"
)

// DefaultOrder is the engine preference order: the exact BSP kernel first,
// the volumetric kernel as fallback.
var DefaultOrder = []string{"bsp", "sdfx"}

// ErrUnknownEngine is returned by Build for a name it cannot resolve.
var ErrUnknownEngine = errors.New("unknown engine")

// Options holds per-kernel settings used by Build.
type Options struct {
	BSP       bsp.Options
	SdfxCells int
}

// Build resolves engine names into kernels, in order. Kernels that are not
// compiled into this binary are skipped with a warning; unknown names are
// an error.
func Build(names []string, opts Options, log zerolog.Logger) ([]kernel.Kernel, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}

	var (
		kernels []kernel.Kernel
		seen    = make(map[string]bool)
	)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "bsp":
			kernels = append(kernels, bsp.New(opts.BSP))
		case "sdfx":
			kernels = append(kernels, sdfx.New(opts.SdfxCells))
		case "manifold":
			k, err := manifold.New()
			if err != nil {
				log.Warn().Err(err).Str("engine", name).Msg("engine unavailable, skipping")
				continue
			}
			kernels = append(kernels, k)
		default:
			return nil, fmt.Errorf("%w %q (known: bsp, sdfx, manifold)", ErrUnknownEngine, raw)
		}
	}

	if len(kernels) == 0 {
		return nil, ErrNoEngines
	}
	return kernels, nil
}
