package heal

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/ungerik/go3d/float64/vec3"
)

// soup returns m with every face given its own three vertices, nudged by
// less than the default merge tolerance.
func soup(m kernel.Mesh) kernel.Mesh {
	out := kernel.Mesh{Name: m.Name}
	for i := range m.Faces {
		tri := m.Triangle(i)
		base := len(out.Vertices)
		for j, p := range tri {
			n := 1e-8 * float64((i+j)%3)
			out.Vertices = append(out.Vertices, vec3.T{p[0] + n, p[1] - n, p[2] + n})
		}
		out.Faces = append(out.Faces, [3]int{base, base + 1, base + 2})
	}
	return out
}

func withoutFaces(m kernel.Mesh, drop ...int) kernel.Mesh {
	skip := make(map[int]bool)
	for _, d := range drop {
		skip[d] = true
	}
	out := kernel.Mesh{Vertices: m.Vertices, Name: m.Name}
	for i, f := range m.Faces {
		if !skip[i] {
			out.Faces = append(out.Faces, f)
		}
	}
	return out
}

// tJunctionCube is a unit cube whose top face has an extra vertex on the
// edge it shares with the y = 0 side, which is left unsplit.
func tJunctionCube() kernel.Mesh {
	m := kernel.BoxMesh(1, 1, 1)
	m = withoutFaces(m, 2, 3)
	m.Vertices = append(append([]vec3.T(nil), m.Vertices...), vec3.T{0.5, 0, 1})
	m.Faces = append(m.Faces, [3]int{4, 8, 6}, [3]int{8, 5, 7}, [3]int{8, 7, 6})
	return m
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name       string
		mesh       kernel.Mesh
		wantVerts  int
		wantFaces  int
		wantVolume float64
		check      func(t *testing.T, rep Report)
	}{
		{
			name:       "clean cube",
			mesh:       kernel.BoxMesh(1, 1, 1),
			wantVerts:  8,
			wantFaces:  12,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.MergedVertices != 0 || rep.FlippedFaces != 0 || rep.HolesFilled != 0 {
					t.Errorf("clean cube changed: %+v", rep)
				}
			},
		},
		{
			name:       "triangle soup",
			mesh:       soup(kernel.BoxMesh(1, 1, 1)),
			wantVerts:  8,
			wantFaces:  12,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.MergedVertices != 28 {
					t.Errorf("MergedVertices = %d, want 28", rep.MergedVertices)
				}
			},
		},
		{
			name:       "missing triangle",
			mesh:       withoutFaces(kernel.BoxMesh(1, 1, 1), 4),
			wantVerts:  8,
			wantFaces:  12,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.HolesFilled != 1 {
					t.Errorf("HolesFilled = %d, want 1", rep.HolesFilled)
				}
			},
		},
		{
			name:       "missing square",
			mesh:       withoutFaces(kernel.BoxMesh(1, 1, 1), 2, 3),
			wantVerts:  8,
			wantFaces:  12,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.HolesFilled != 1 || rep.HolesSkipped != 0 {
					t.Errorf("holes filled/skipped = %d/%d, want 1/0", rep.HolesFilled, rep.HolesSkipped)
				}
			},
		},
		{
			name: "one flipped face",
			mesh: func() kernel.Mesh {
				m := kernel.BoxMesh(1, 1, 1).Clone()
				f := m.Faces[5]
				m.Faces[5] = [3]int{f[0], f[2], f[1]}
				return m
			}(),
			wantVerts:  8,
			wantFaces:  12,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.FlippedFaces != 1 {
					t.Errorf("FlippedFaces = %d, want 1", rep.FlippedFaces)
				}
			},
		},
		{
			name:       "inside out",
			mesh:       kernel.BoxMesh(1, 1, 1).FlipWinding(),
			wantVerts:  8,
			wantFaces:  12,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.FlippedFaces != 12 {
					t.Errorf("FlippedFaces = %d, want 12", rep.FlippedFaces)
				}
			},
		},
		{
			name:       "t-junction",
			mesh:       tJunctionCube(),
			wantVerts:  9,
			wantFaces:  14,
			wantVolume: 1,
			check: func(t *testing.T, rep Report) {
				if rep.TJunctions != 1 {
					t.Errorf("TJunctions = %d, want 1", rep.TJunctions)
				}
			},
		},
		{
			name: "cavity",
			mesh: func() kernel.Mesh {
				outer := kernel.BoxMesh(3, 3, 3)
				inner := kernel.BoxMesh(1, 1, 1).Translate(vec3.T{1, 1, 1})
				m := outer.Clone()
				for _, f := range inner.Faces {
					m.Faces = append(m.Faces, [3]int{f[0] + 8, f[1] + 8, f[2] + 8})
				}
				m.Vertices = append(m.Vertices, inner.Vertices...)
				return m
			}(),
			wantVerts:  16,
			wantFaces:  24,
			wantVolume: 26,
			check: func(t *testing.T, rep Report) {
				if rep.FlippedFaces != 12 {
					t.Errorf("FlippedFaces = %d, want 12", rep.FlippedFaces)
				}
			},
		},
	}

	h := New(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.mesh.Clone()
			out, rep, err := h.Repair(tt.mesh)
			if err != nil {
				t.Fatalf("Repair() error = %v", err)
			}
			if out.VertexCount() != tt.wantVerts || out.TriangleCount() != tt.wantFaces {
				t.Errorf("got %d vertices / %d faces, want %d / %d",
					out.VertexCount(), out.TriangleCount(), tt.wantVerts, tt.wantFaces)
			}
			if !rep.Watertight() || rep.Topology.InconsistentEdges != 0 {
				t.Errorf("result not a closed manifold: %+v", rep.Topology)
			}
			if got := out.SignedVolume(); math.Abs(got-tt.wantVolume) > 1e-6 {
				t.Errorf("SignedVolume() = %v, want %v", got, tt.wantVolume)
			}
			if rep.VerticesAfter != out.VertexCount() || rep.FacesAfter != out.TriangleCount() {
				t.Errorf("report counts %d/%d disagree with mesh", rep.VerticesAfter, rep.FacesAfter)
			}
			if tt.check != nil {
				tt.check(t, rep)
			}

			if len(tt.mesh.Faces) != len(before.Faces) || len(tt.mesh.Vertices) != len(before.Vertices) {
				t.Fatal("Repair() mutated its input")
			}
			for i := range before.Faces {
				if tt.mesh.Faces[i] != before.Faces[i] {
					t.Fatal("Repair() mutated its input faces")
				}
			}

			again, _, err := h.Repair(out)
			if err != nil {
				t.Fatalf("second Repair() error = %v", err)
			}
			if again.VertexCount() != out.VertexCount() || again.TriangleCount() != out.TriangleCount() {
				t.Errorf("Repair() not idempotent: %d/%d then %d/%d",
					out.VertexCount(), out.TriangleCount(), again.VertexCount(), again.TriangleCount())
			}
		})
	}
}

func TestRepairSkipsLargeHoles(t *testing.T) {
	h := New(Options{MaxHolePerimeter: 0.5})
	out, rep, err := h.Repair(withoutFaces(kernel.BoxMesh(1, 1, 1), 2, 3))
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if rep.HolesSkipped != 1 || rep.HolesFilled != 0 {
		t.Errorf("holes filled/skipped = %d/%d, want 0/1", rep.HolesFilled, rep.HolesSkipped)
	}
	if out.TriangleCount() != 10 {
		t.Errorf("TriangleCount() = %d, want 10", out.TriangleCount())
	}
	if rep.Watertight() {
		t.Error("mesh with a skipped hole reported watertight")
	}
}

func TestRepairDropsDegenerateAndDuplicateFaces(t *testing.T) {
	m := kernel.BoxMesh(1, 1, 1).Clone()
	m.Faces = append(m.Faces,
		[3]int{0, 0, 1},
		[3]int{0, 1, 1},
		m.Faces[0],
		[3]int{m.Faces[1][0], m.Faces[1][2], m.Faces[1][1]},
	)
	out, rep, err := New(DefaultOptions()).Repair(m)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if rep.DegenerateFaces != 2 || rep.DuplicateFaces != 2 {
		t.Errorf("degenerate/duplicate = %d/%d, want 2/2", rep.DegenerateFaces, rep.DuplicateFaces)
	}
	if out.TriangleCount() != 12 || !rep.Watertight() {
		t.Errorf("got %d faces watertight=%v, want closed 12", out.TriangleCount(), rep.Watertight())
	}
}

func TestRepairFailureKeepsInput(t *testing.T) {
	m := kernel.BoxMesh(1, 1, 1).Clone()
	m.Faces = append(m.Faces, [3]int{0, 1, 99})

	out, rep, err := New(DefaultOptions()).Repair(m)
	if !errors.Is(err, ErrHealingFailed) {
		t.Fatalf("Repair() error = %v, want ErrHealingFailed", err)
	}
	if !rep.Failed {
		t.Error("report not marked failed")
	}
	if out.TriangleCount() != m.TriangleCount() || out.VertexCount() != m.VertexCount() {
		t.Error("failed repair did not return the input mesh")
	}
}

func TestRepairEmpty(t *testing.T) {
	out, rep, err := New(DefaultOptions()).Repair(kernel.Mesh{})
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if !out.IsEmpty() || rep.Failed || rep.FacesAfter != 0 {
		t.Errorf("empty repair = %+v", rep)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	got := New(Options{MergeTolerance: 1e-3}).Options()
	def := DefaultOptions()
	if got.MergeTolerance != 1e-3 {
		t.Errorf("MergeTolerance = %v, want 1e-3", got.MergeTolerance)
	}
	if got.AreaTolerance != def.AreaTolerance || got.MaxHoleEdges != def.MaxHoleEdges ||
		got.MaxHolePerimeter != def.MaxHolePerimeter || got.MaxIterations != def.MaxIterations {
		t.Errorf("Options() = %+v, want defaults besides MergeTolerance", got)
	}
}

func TestWeldKeepsFirstRepresentative(t *testing.T) {
	m := kernel.Mesh{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5e-7, 0, 0}},
		Faces:    [][3]int{{0, 1, 2}, {3, 1, 2}},
	}
	out, merged := weld(m, 1e-6)
	if merged != 1 || out.VertexCount() != 3 {
		t.Fatalf("weld merged %d into %d vertices, want 1 into 3", merged, out.VertexCount())
	}
	if out.Vertices[0] != (vec3.T{0, 0, 0}) || out.Faces[1] != [3]int{0, 1, 2} {
		t.Errorf("weld = %v %v", out.Vertices, out.Faces)
	}
}

// lPrism is an L-shaped prism over (0,0) (2,0) (2,1) (1,1) (1,2) (0,2),
// from z = 0 to z = 1, wound outward. Its volume is 3.
func lPrism() kernel.Mesh {
	outline := []vec3.T{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}
	m := kernel.Mesh{Name: "l"}
	for _, z := range []float64{0, 1} {
		for _, p := range outline {
			m.Vertices = append(m.Vertices, vec3.T{p[0], p[1], z})
		}
	}
	// Fan from the reflex corner 3.
	for _, f := range [][3]int{{3, 4, 5}, {3, 5, 0}, {3, 0, 1}, {3, 1, 2}} {
		m.Faces = append(m.Faces, [3]int{f[0] + 6, f[1] + 6, f[2] + 6}, [3]int{f[0], f[2], f[1]})
	}
	for i := 0; i < 6; i++ {
		j := (i + 1) % 6
		m.Faces = append(m.Faces, [3]int{i, j, j + 6}, [3]int{i, j + 6, i + 6})
	}
	return m
}

func TestRepairKeepsShellInConcaveNotch(t *testing.T) {
	l := lPrism()
	cube := kernel.BoxMesh(0.2, 0.2, 0.2).Translate(vec3.T{1.4, 1.4, 0.4})
	m := l.Clone()
	for _, f := range cube.Faces {
		m.Faces = append(m.Faces, [3]int{f[0] + 12, f[1] + 12, f[2] + 12})
	}
	m.Vertices = append(m.Vertices, cube.Vertices...)

	if got := l.SignedVolume(); math.Abs(got-3) > 1e-9 {
		t.Fatalf("L prism volume = %v, want 3", got)
	}

	out, rep, err := New(DefaultOptions()).Repair(m)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if rep.FlippedFaces != 0 {
		t.Errorf("FlippedFaces = %d, want 0", rep.FlippedFaces)
	}
	if got := out.SignedVolume(); math.Abs(got-3.008) > 1e-9 {
		t.Errorf("SignedVolume() = %v, want 3.008", got)
	}
	if !rep.Watertight() {
		t.Errorf("result not closed: %+v", rep.Topology)
	}
}

func TestRepairRandomSoupsIdempotent(t *testing.T) {
	h := New(DefaultOptions())
	for seed := uint64(1); seed <= 300; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		m := kernel.Mesh{}
		for i := 0; i < 8; i++ {
			m.Vertices = append(m.Vertices, vec3.T{rng.Float64(), rng.Float64(), rng.Float64()})
		}
		for i := 0; i < 12; i++ {
			m.Faces = append(m.Faces, [3]int{rng.IntN(8), rng.IntN(8), rng.IntN(8)})
		}

		once, _, err := h.Repair(m)
		if err != nil {
			t.Fatalf("seed %d: Repair() error = %v", seed, err)
		}
		twice, rep, err := h.Repair(once)
		if err != nil {
			t.Fatalf("seed %d: second Repair() error = %v", seed, err)
		}
		if once.VertexCount() != twice.VertexCount() || once.TriangleCount() != twice.TriangleCount() {
			t.Errorf("seed %d: %d/%d then %d/%d", seed,
				once.VertexCount(), once.TriangleCount(), twice.VertexCount(), twice.TriangleCount())
		}
		if rep.DuplicateFaces != 0 || rep.DegenerateFaces != 0 {
			t.Errorf("seed %d: repaired mesh still had %d duplicate and %d degenerate faces",
				seed, rep.DuplicateFaces, rep.DegenerateFaces)
		}
	}
}
