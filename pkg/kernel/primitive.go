package kernel

import (
	"math"

	"github.com/ungerik/go3d/float64/vec3"
)

// BoxMesh returns a closed box mesh with the given dimensions. The resulting
// solid has its minimum corner at the origin, so a translation places the
// corner directly. Faces wind counter-clockwise seen from outside.
func BoxMesh(x, y, z float64) Mesh {
	verts := make([]vec3.T, 8)
	for i := range verts {
		verts[i] = vec3.T{
			float64(i&1) * x,
			float64((i>>1)&1) * y,
			float64((i>>2)&1) * z,
		}
	}
	return Mesh{
		Vertices: verts,
		Faces: [][3]int{
			{0, 2, 3}, {0, 3, 1}, // z = 0
			{4, 5, 7}, {4, 7, 6}, // z = max
			{0, 1, 5}, {0, 5, 4}, // y = 0
			{2, 6, 7}, {2, 7, 3}, // y = max
			{0, 4, 6}, {0, 6, 2}, // x = 0
			{1, 3, 7}, {1, 7, 5}, // x = max
		},
		Name: "box",
	}
}

// CylinderMesh returns a closed cylinder along the Z axis centered at the
// origin, approximated with the given number of segments (minimum 3).
func CylinderMesh(height, radius float64, segments int) Mesh {
	if segments < 3 {
		segments = 3
	}
	n := segments
	verts := make([]vec3.T, 0, 2*n+2)
	for ring := 0; ring < 2; ring++ {
		z := -height / 2
		if ring == 1 {
			z = height / 2
		}
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			verts = append(verts, vec3.T{radius * math.Cos(a), radius * math.Sin(a), z})
		}
	}
	bottom, top := 2*n, 2*n+1
	verts = append(verts, vec3.T{0, 0, -height / 2}, vec3.T{0, 0, height / 2})

	faces := make([][3]int, 0, 4*n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		bi, bj, ti, tj := i, j, n+i, n+j
		faces = append(faces,
			[3]int{bi, bj, tj},
			[3]int{bi, tj, ti},
			[3]int{bottom, bj, bi},
			[3]int{top, ti, tj},
		)
	}
	return Mesh{Vertices: verts, Faces: faces, Name: "cylinder"}
}
