package bsp

import (
	"math"
	"math/big"

	"github.com/ungerik/go3d/float64/vec3"
)

// Machine epsilon for round-to-nearest float64 arithmetic (2^-53).
const machEpsilon = 1.0 / (1 << 53)

// o3dErrBound bounds the rounding error of the floating-point orientation
// determinant relative to its permanent (Shewchuk, "Adaptive Precision
// Floating-Point Arithmetic and Fast Robust Geometric Predicates").
const o3dErrBound = (7 + 56*machEpsilon) * machEpsilon

// orient returns the sign of ((b-a) x (c-a)) . (d-a): +1 when d lies on the
// side the right-hand normal of triangle abc points to, -1 on the other
// side and 0 when the four points are coplanar. The result is exact for
// any finite input.
func orient(a, b, c, d vec3.T) int {
	adx, ady, adz := a[0]-d[0], a[1]-d[1], a[2]-d[2]
	bdx, bdy, bdz := b[0]-d[0], b[1]-d[1], b[2]-d[2]
	cdx, cdy, cdz := c[0]-d[0], c[1]-d[1], c[2]-d[2]

	bdxcdy, cdxbdy := bdx*cdy, cdx*bdy
	cdxady, adxcdy := cdx*ady, adx*cdy
	adxbdy, bdxady := adx*bdy, bdx*ady

	det := adz*(bdxcdy-cdxbdy) + bdz*(cdxady-adxcdy) + cdz*(adxbdy-bdxady)
	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*math.Abs(adz) +
		(math.Abs(cdxady)+math.Abs(adxcdy))*math.Abs(bdz) +
		(math.Abs(adxbdy)+math.Abs(bdxady))*math.Abs(cdz)
	bound := o3dErrBound * permanent

	// det has the opposite sign convention.
	switch {
	case det > bound:
		return -1
	case -det > bound:
		return 1
	}
	return orientExact(a, b, c, d)
}

// orientExact evaluates the orientation determinant in rational arithmetic.
func orientExact(a, b, c, d vec3.T) int {
	var u, v, w [3]big.Rat
	for i := 0; i < 3; i++ {
		diff(&u[i], b[i], a[i])
		diff(&v[i], c[i], a[i])
		diff(&w[i], d[i], a[i])
	}

	var det, t1, t2 big.Rat
	// (u x v) . w, one component at a time.
	for i := 0; i < 3; i++ {
		j, k := (i+1)%3, (i+2)%3
		t1.Mul(&u[j], &v[k])
		t2.Mul(&u[k], &v[j])
		t1.Sub(&t1, &t2)
		t1.Mul(&t1, &w[i])
		det.Add(&det, &t1)
	}
	return det.Sign()
}

func diff(z *big.Rat, x, y float64) {
	var ry big.Rat
	z.SetFloat64(x)
	ry.SetFloat64(y)
	z.Sub(z, &ry)
}
