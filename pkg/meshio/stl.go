package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/chazu/meshbool/pkg/kernel/sdfx"
	"github.com/deadsy/sdfx/render"
	"github.com/ungerik/go3d/float64/vec3"
)

// LoadSTL reads an ASCII or binary STL file. Shared corners are welded
// exactly.
func LoadSTL(path string) (m kernel.Mesh, err error) {
	// The sdfx ASCII reader indexes vertices in threes unchecked.
	defer func() {
		if r := recover(); r != nil {
			m, err = kernel.Mesh{}, fmt.Errorf("malformed STL: %v", r)
		}
	}()

	tris, err := render.LoadSTL(path)
	if err != nil {
		return kernel.Mesh{}, err
	}
	soup := make([][3]vec3.T, len(tris))
	for i, t := range tris {
		for c := 0; c < 3; c++ {
			soup[i][c] = vec3.T{t[c].X, t[c].Y, t[c].Z}
		}
	}
	return kernel.FromTriangles(soup), nil
}

// WriteSTL writes m as ASCII STL.
func WriteSTL(w io.Writer, m kernel.Mesh) error {
	name := m.Name
	if name == "" {
		name = "mesh"
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for i := range m.Faces {
		t := m.Triangle(i)
		n := kernel.TriangleNormal(t)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n[0], n[1], n[2])
		fmt.Fprintln(bw, "    outer loop")
		for _, p := range t {
			fmt.Fprintf(bw, "      vertex %.17g %.17g %.17g\n", p[0], p[1], p[2])
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

func writeBinarySTL(path string, m kernel.Mesh) error {
	return render.SaveSTL(path, sdfx.Triangles(m))
}

// writeFile creates path and streams m into it with enc.
func writeFile(path string, m kernel.Mesh, enc func(io.Writer, kernel.Mesh) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := enc(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
