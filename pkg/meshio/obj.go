package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// ReadOBJ parses the vertex and face records of a Wavefront OBJ stream.
// Polygons are fanned into triangles; texture and normal indices are
// ignored, as are all other record types.
func ReadOBJ(r io.Reader) (kernel.Mesh, error) {
	var m kernel.Mesh
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return kernel.Mesh{}, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var p vec3.T
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return kernel.Mesh{}, fmt.Errorf("line %d: %w", line, err)
				}
				p[k] = v
			}
			m.Vertices = append(m.Vertices, p)
		case "f":
			if len(fields) < 4 {
				return kernel.Mesh{}, fmt.Errorf("line %d: face needs at least 3 vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, s := range fields[1:] {
				// v, v/vt, v//vn or v/vt/vn
				pos, _, _ := strings.Cut(s, "/")
				i, err := strconv.Atoi(pos)
				if err != nil {
					return kernel.Mesh{}, fmt.Errorf("line %d: %w", line, err)
				}
				switch {
				case i > 0:
					i--
				case i < 0:
					// Relative to the vertices read so far.
					i += len(m.Vertices)
				default:
					return kernel.Mesh{}, fmt.Errorf("line %d: vertex index 0", line)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				m.Faces = append(m.Faces, [3]int{idx[0], idx[k], idx[k+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return kernel.Mesh{}, err
	}
	return m, nil
}

// WriteOBJ writes m as a Wavefront OBJ with one-based indices.
func WriteOBJ(w io.Writer, m kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	if m.Name != "" {
		fmt.Fprintf(bw, "o %s\n", m.Name)
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %.17g %.17g %.17g\n", v[0], v[1], v[2])
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return bw.Flush()
}
