package kernel

import (
	"math"

	"github.com/ungerik/go3d/float64/vec3"
)

// Box is an axis-aligned bounding box. The zero value is empty.
type Box struct {
	Min, Max vec3.T
	valid    bool
}

// NewBox returns the box spanning min and max.
func NewBox(min, max vec3.T) Box {
	return Box{Min: min, Max: max, valid: true}
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return !b.valid
}

// Extend returns the smallest box containing b and p.
func (b Box) Extend(p vec3.T) Box {
	if !b.valid {
		return Box{Min: p, Max: p, valid: true}
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Size returns the extent along each axis.
func (b Box) Size() vec3.T {
	if !b.valid {
		return vec3.T{}
	}
	return vec3.Sub(&b.Max, &b.Min)
}

// Center returns the midpoint of the box.
func (b Box) Center() vec3.T {
	return vec3.T{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Enlarge returns the box grown by d on every side.
func (b Box) Enlarge(d float64) Box {
	if !b.valid {
		return b
	}
	for i := 0; i < 3; i++ {
		b.Min[i] -= d
		b.Max[i] += d
	}
	return b
}

// Overlaps reports whether the two boxes share any volume or touch.
func (b Box) Overlaps(o Box) bool {
	if !b.valid || !o.valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Contains reports whether o lies entirely inside b.
func (b Box) Contains(o Box) bool {
	if !b.valid || !o.valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}
