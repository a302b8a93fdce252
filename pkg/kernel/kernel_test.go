package kernel

import (
	"math"
	"testing"

	"github.com/ungerik/go3d/float64/vec3"
)

// --- Mesh helper method tests ---

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      Mesh
		wantVerts int
		wantTris  int
		wantEmpty bool
	}{
		{"zero value", Mesh{}, 0, 0, true},
		{"vertices only", Mesh{Vertices: []vec3.T{{1, 2, 3}}}, 1, 0, true},
		{"box", BoxMesh(1, 1, 1), 8, 12, false},
		{"cylinder", CylinderMesh(2, 1, 16), 34, 64, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.wantVerts {
				t.Errorf("VertexCount() = %d, want %d", got, tt.wantVerts)
			}
			if got := tt.mesh.TriangleCount(); got != tt.wantTris {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.wantTris)
			}
			if got := tt.mesh.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
		})
	}
}

func TestBoxMeshVolume(t *testing.T) {
	m := BoxMesh(2, 3, 4)
	if got := m.SignedVolume(); math.Abs(got-24) > 1e-12 {
		t.Errorf("SignedVolume() = %v, want 24", got)
	}
	if got := m.SurfaceArea(); math.Abs(got-52) > 1e-12 {
		t.Errorf("SurfaceArea() = %v, want 52", got)
	}
	b := m.Bounds()
	if b.Min != (vec3.T{0, 0, 0}) || b.Max != (vec3.T{2, 3, 4}) {
		t.Errorf("Bounds() = %v..%v, want origin..(2,3,4)", b.Min, b.Max)
	}
}

func TestCylinderMeshVolume(t *testing.T) {
	const segs = 64
	m := CylinderMesh(2, 1, segs)
	// Inscribed polygon area times height.
	want := 2 * 0.5 * segs * math.Sin(2*math.Pi/segs)
	if got := m.SignedVolume(); math.Abs(got-want) > 1e-9 {
		t.Errorf("SignedVolume() = %v, want %v", got, want)
	}
	if rep := Topology(m); !rep.Manifold() {
		t.Errorf("cylinder topology = %+v, want closed manifold", rep)
	}
}

func TestFlipWindingNegatesVolume(t *testing.T) {
	m := BoxMesh(1, 1, 1)
	flipped := m.FlipWinding()
	if got := flipped.SignedVolume(); math.Abs(got+1) > 1e-12 {
		t.Errorf("flipped SignedVolume() = %v, want -1", got)
	}
	if m.SignedVolume() <= 0 {
		t.Error("FlipWinding mutated the receiver")
	}
}

func TestTranslateDoesNotAlias(t *testing.T) {
	m := BoxMesh(1, 1, 1)
	moved := m.Translate(vec3.T{5, 0, 0})
	if m.Vertices[0] != (vec3.T{0, 0, 0}) {
		t.Errorf("receiver vertex changed to %v", m.Vertices[0])
	}
	if moved.Vertices[0] != (vec3.T{5, 0, 0}) {
		t.Errorf("moved vertex = %v, want (5,0,0)", moved.Vertices[0])
	}
	if got := moved.SignedVolume(); math.Abs(got-1) > 1e-12 {
		t.Errorf("moved SignedVolume() = %v, want 1", got)
	}
}

func TestFromTrianglesWelds(t *testing.T) {
	src := BoxMesh(1, 2, 3)
	m := FromTriangles(src.Triangles())
	if m.VertexCount() != 8 {
		t.Errorf("VertexCount() = %d, want 8", m.VertexCount())
	}
	if m.TriangleCount() != 12 {
		t.Errorf("TriangleCount() = %d, want 12", m.TriangleCount())
	}
	if !Topology(m).Manifold() {
		t.Error("welded box is not manifold")
	}
}

func TestTriangleNormal(t *testing.T) {
	tri := [3]vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	if got := TriangleNormal(tri); got != (vec3.T{0, 0, 1}) {
		t.Errorf("TriangleNormal() = %v, want (0,0,1)", got)
	}
	degenerate := [3]vec3.T{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	if got := TriangleNormal(degenerate); got != (vec3.T{}) {
		t.Errorf("TriangleNormal(degenerate) = %v, want zero", got)
	}
	if got := TriangleArea(tri); got != 0.5 {
		t.Errorf("TriangleArea() = %v, want 0.5", got)
	}
}

// --- Box tests ---

func TestBox(t *testing.T) {
	var empty Box
	if !empty.IsEmpty() {
		t.Fatal("zero Box should be empty")
	}
	a := NewBox(vec3.T{0, 0, 0}, vec3.T{1, 1, 1})
	tests := []struct {
		name     string
		other    Box
		overlaps bool
		contains bool
	}{
		{"empty", empty, false, false},
		{"inside", NewBox(vec3.T{0.25, 0.25, 0.25}, vec3.T{0.5, 0.5, 0.5}), true, true},
		{"touching face", NewBox(vec3.T{1, 0, 0}, vec3.T{2, 1, 1}), true, false},
		{"disjoint", NewBox(vec3.T{1.5, 0, 0}, vec3.T{2, 1, 1}), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.overlaps {
				t.Errorf("Overlaps() = %v, want %v", got, tt.overlaps)
			}
			if got := a.Contains(tt.other); got != tt.contains {
				t.Errorf("Contains() = %v, want %v", got, tt.contains)
			}
		})
	}
	if got := a.Enlarge(1).Size(); got != (vec3.T{3, 3, 3}) {
		t.Errorf("Enlarge(1).Size() = %v, want (3,3,3)", got)
	}
	if got := a.Center(); got != (vec3.T{0.5, 0.5, 0.5}) {
		t.Errorf("Center() = %v", got)
	}
}

// --- Topology tests ---

func TestTopology(t *testing.T) {
	open := BoxMesh(1, 1, 1)
	open.Faces = open.Faces[:10]

	inconsistent := BoxMesh(1, 1, 1).Clone()
	f := inconsistent.Faces[0]
	inconsistent.Faces[0] = [3]int{f[0], f[2], f[1]}

	tests := []struct {
		name           string
		mesh           Mesh
		wantWatertight bool
		wantManifold   bool
	}{
		{"closed box", BoxMesh(1, 1, 1), true, true},
		{"missing face", open, false, false},
		{"flipped face", inconsistent, true, false},
		{"empty", Mesh{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Topology(tt.mesh)
			if got := rep.Watertight(); got != tt.wantWatertight {
				t.Errorf("Watertight() = %v, want %v (%+v)", got, tt.wantWatertight, rep)
			}
			if got := rep.Manifold(); got != tt.wantManifold {
				t.Errorf("Manifold() = %v, want %v (%+v)", got, tt.wantManifold, rep)
			}
		})
	}
}

// --- Validation tests ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mesh     Mesh
		wantCode string
		fatal    bool
	}{
		{"valid box", BoxMesh(1, 1, 1), "", false},
		{
			"index out of range",
			Mesh{Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Faces: [][3]int{{0, 1, 3}}},
			CodeIndexOutOfRange, true,
		},
		{
			"non finite",
			Mesh{Vertices: []vec3.T{{math.NaN(), 0, 0}, {1, 0, 0}, {0, 1, 0}}, Faces: [][3]int{{0, 1, 2}}},
			CodeNonFinite, true,
		},
		{
			"repeated index",
			Mesh{Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}}, Faces: [][3]int{{0, 1, 1}}},
			CodeRepeatedIndex, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.mesh.Validate()
			if tt.wantCode == "" {
				if len(errs) != 0 {
					t.Fatalf("Validate() = %v, want none", errs)
				}
			} else {
				found := false
				for _, e := range errs {
					if e.Code == tt.wantCode {
						found = true
					}
				}
				if !found {
					t.Errorf("Validate() = %v, want code %q", errs, tt.wantCode)
				}
			}
			if err := tt.mesh.CheckStructure(); (err != nil) != tt.fatal {
				t.Errorf("CheckStructure() = %v, want fatal=%v", err, tt.fatal)
			}
		})
	}
}

// --- Result and Op tests ---

func TestClassify(t *testing.T) {
	if r := Classify(BoxMesh(1, 1, 1)); r.Status != StatusSuccess || !r.OK() {
		t.Errorf("Classify(box) = %v, want success", r.Status)
	}
	if r := Classify(Mesh{}); r.Status != StatusEmpty {
		t.Errorf("Classify(empty) = %v, want empty", r.Status)
	}
	flat := BoxMesh(1, 1, 0)
	if r := Classify(flat); r.Status != StatusEmpty {
		t.Errorf("Classify(flat) = %v, want empty", r.Status)
	}
}

func TestResultConstructors(t *testing.T) {
	r := Failure("engine %s crashed", "bsp")
	if r.Status != StatusFailure || r.Reason != "engine bsp crashed" {
		t.Errorf("Failure() = %+v", r)
	}
	if r.OK() {
		t.Error("failure result reports OK")
	}
	if got := Empty("nothing").Status.String(); got != "empty" {
		t.Errorf("Status.String() = %q, want empty", got)
	}
}
