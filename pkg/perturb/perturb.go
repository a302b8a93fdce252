// Package perturb nudges the tool operand by a tiny random scale and
// translation before a boolean, so that coincident faces between model and
// tool stop being exactly coplanar.
package perturb

import (
	"math/rand/v2"
	"time"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// Source yields uniform draws in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Options bounds the perturbation.
type Options struct {
	// Enabled turns perturbation on. A disabled Perturber returns the mesh
	// unchanged.
	Enabled bool
	// MaxTranslation bounds each translation component.
	MaxTranslation float64
	// ScaleDelta bounds the relative scale change.
	ScaleDelta float64
}

// DefaultOptions returns ±0.005 translation and ±0.05% scale.
func DefaultOptions() Options {
	return Options{
		Enabled:        true,
		MaxTranslation: 0.005,
		ScaleDelta:     0.0005,
	}
}

// Jitter records one draw.
type Jitter struct {
	Translation vec3.T
	Scale       float64
}

// Identity reports whether the jitter leaves geometry unchanged.
func (j Jitter) Identity() bool {
	return j.Translation == (vec3.T{}) && j.Scale == 1
}

// Perturber applies seeded jitter to meshes. It is not safe for
// concurrent use.
type Perturber struct {
	src  Source
	opts Options
}

// New returns a Perturber drawing from src.
func New(src Source, opts Options) *Perturber {
	return &Perturber{src: src, opts: opts}
}

// NewSeeded returns a Perturber backed by a PCG generator. A zero seed
// is replaced by one taken from the clock.
func NewSeeded(seed uint64, opts Options) *Perturber {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts)
}

// Options returns the bounds in use.
func (p *Perturber) Options() Options { return p.opts }

// symmetric maps a [0, 1) draw onto [-a, a).
func (p *Perturber) symmetric(a float64) float64 {
	return (2*p.src.Float64() - 1) * a
}

// Perturb returns m scaled about its bounding-box centre and then
// translated. Faces are copied unchanged.
func (p *Perturber) Perturb(m kernel.Mesh) (kernel.Mesh, Jitter) {
	j := Jitter{Scale: 1}
	if !p.opts.Enabled || m.IsEmpty() {
		return m, j
	}

	j.Scale = 1 + p.symmetric(p.opts.ScaleDelta)
	for i := range j.Translation {
		j.Translation[i] = p.symmetric(p.opts.MaxTranslation)
	}

	c := m.Bounds().Center()
	out := m.Transform(func(v vec3.T) vec3.T {
		d := vec3.Sub(&v, &c)
		d = d.Scaled(j.Scale)
		r := vec3.Add(&c, &d)
		return vec3.Add(&r, &j.Translation)
	})
	return out, j
}
