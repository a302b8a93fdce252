package kernel

// Edge is an undirected edge key with A < B.
type Edge struct {
	A, B int
}

// MakeEdge returns the canonical key for the edge between u and v.
func MakeEdge(u, v int) Edge {
	if u < v {
		return Edge{A: u, B: v}
	}
	return Edge{A: v, B: u}
}

// EdgeUse records one face using an edge and the direction it walks it.
type EdgeUse struct {
	Face    int
	Forward bool // true when the face traverses the edge A -> B
}

// EdgeMap indexes every edge of a mesh by the faces that use it.
func EdgeMap(m Mesh) map[Edge][]EdgeUse {
	edges := make(map[Edge][]EdgeUse, len(m.Faces)*3/2)
	for fi, f := range m.Faces {
		for j := 0; j < 3; j++ {
			u, v := f[j], f[(j+1)%3]
			e := MakeEdge(u, v)
			edges[e] = append(edges[e], EdgeUse{Face: fi, Forward: u == e.A})
		}
	}
	return edges
}

// TopologyReport summarizes the manifold properties of a mesh.
type TopologyReport struct {
	Edges             int
	BoundaryEdges     int // used by exactly one face
	NonManifoldEdges  int // used by more than two faces
	InconsistentEdges int // two faces walking the edge in the same direction
}

// Watertight reports whether every edge is shared by exactly two faces.
func (t TopologyReport) Watertight() bool {
	return t.Edges > 0 && t.BoundaryEdges == 0 && t.NonManifoldEdges == 0
}

// Manifold reports whether the mesh is a closed, consistently wound
// 2-manifold surface.
func (t TopologyReport) Manifold() bool {
	return t.Watertight() && t.InconsistentEdges == 0
}

// Topology computes the edge statistics of a mesh.
func Topology(m Mesh) TopologyReport {
	var rep TopologyReport
	for _, uses := range EdgeMap(m) {
		rep.Edges++
		switch {
		case len(uses) == 1:
			rep.BoundaryEdges++
		case len(uses) > 2:
			rep.NonManifoldEdges++
		case uses[0].Forward == uses[1].Forward:
			rep.InconsistentEdges++
		}
	}
	return rep
}
