package kernel

import (
	"math"

	"github.com/ungerik/go3d/float64/vec3"
)

// Mesh is an indexed triangle mesh. Faces hold three indices into Vertices.
//
// Mesh values are treated as immutable: every method that changes geometry
// returns a new Mesh and leaves the receiver untouched, so stages that reuse
// an operand never alias each other's buffers.
type Mesh struct {
	Vertices []vec3.T
	Faces    [][3]int
	Name     string // label used in logs ("model", "tool", "stage1", ...)
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m Mesh) TriangleCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no vertices or no faces.
func (m Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Clone returns a deep copy of the mesh.
func (m Mesh) Clone() Mesh {
	out := Mesh{
		Vertices: make([]vec3.T, len(m.Vertices)),
		Faces:    make([][3]int, len(m.Faces)),
		Name:     m.Name,
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// WithName returns a copy of the mesh header carrying a new name. Vertex and
// face buffers are shared, which is safe because meshes are never mutated.
func (m Mesh) WithName(name string) Mesh {
	m.Name = name
	return m
}

// Transform returns a copy of the mesh with fn applied to every vertex.
// Topology is copied unchanged.
func (m Mesh) Transform(fn func(v vec3.T) vec3.T) Mesh {
	out := m.Clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = fn(v)
	}
	return out
}

// Translate returns a copy of the mesh moved by d.
func (m Mesh) Translate(d vec3.T) Mesh {
	return m.Transform(func(v vec3.T) vec3.T {
		return vec3.Add(&v, &d)
	})
}

// Triangle returns the three corner positions of face i.
func (m Mesh) Triangle(i int) [3]vec3.T {
	f := m.Faces[i]
	return [3]vec3.T{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Bounds returns the axis-aligned bounding box of all vertices. An empty
// mesh yields an empty Box.
func (m Mesh) Bounds() Box {
	var b Box
	for i := range m.Vertices {
		b = b.Extend(m.Vertices[i])
	}
	return b
}

// SignedVolume returns the enclosed volume computed with the divergence
// theorem. It is positive for closed meshes with outward-facing winding.
func (m Mesh) SignedVolume() float64 {
	var sum float64
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		bc := vec3.Cross(&b, &c)
		sum += vec3.Dot(&a, &bc)
	}
	return sum / 6
}

// Volume returns the absolute enclosed volume.
func (m Mesh) Volume() float64 {
	return math.Abs(m.SignedVolume())
}

// SurfaceArea returns the summed area of all faces.
func (m Mesh) SurfaceArea() float64 {
	var sum float64
	for i := range m.Faces {
		sum += TriangleArea(m.Triangle(i))
	}
	return sum
}

// TriangleArea returns the area of a triangle.
func TriangleArea(t [3]vec3.T) float64 {
	n := triangleCross(t)
	return n.Length() / 2
}

// TriangleNormal returns the unit normal of a triangle following the
// right-hand rule. Degenerate triangles yield the zero vector.
func TriangleNormal(t [3]vec3.T) vec3.T {
	n := triangleCross(t)
	l := n.Length()
	if l == 0 {
		return vec3.T{}
	}
	return n.Scaled(1 / l)
}

func triangleCross(t [3]vec3.T) vec3.T {
	e1 := vec3.Sub(&t[1], &t[0])
	e2 := vec3.Sub(&t[2], &t[0])
	return vec3.Cross(&e1, &e2)
}

// FlipWinding returns a copy of the mesh with every face reversed.
func (m Mesh) FlipWinding() Mesh {
	out := m.Clone()
	for i, f := range out.Faces {
		out.Faces[i] = [3]int{f[0], f[2], f[1]}
	}
	return out
}

// FromTriangles builds an indexed mesh from a triangle soup, sharing
// vertices whose coordinates are bit-for-bit identical.
func FromTriangles(tris [][3]vec3.T) Mesh {
	index := make(map[vec3.T]int, len(tris))
	m := Mesh{Faces: make([][3]int, 0, len(tris))}
	for _, t := range tris {
		var f [3]int
		for j, v := range t {
			idx, ok := index[v]
			if !ok {
				idx = len(m.Vertices)
				index[v] = idx
				m.Vertices = append(m.Vertices, v)
			}
			f[j] = idx
		}
		m.Faces = append(m.Faces, f)
	}
	return m
}

// Triangles expands the mesh into a triangle soup.
func (m Mesh) Triangles() [][3]vec3.T {
	out := make([][3]vec3.T, len(m.Faces))
	for i := range m.Faces {
		out[i] = m.Triangle(i)
	}
	return out
}
