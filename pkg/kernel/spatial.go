package kernel

import (
	"github.com/dhconnelly/rtreego"
	"github.com/ungerik/go3d/float64/vec3"
)

// R-tree fan-out used by every spatial index in the module.
const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// Rect converts the box to an R-tree rectangle grown by pad on every side.
// rtreego treats touching rectangles as disjoint, so pad should be positive.
func (b Box) Rect(pad float64) rtreego.Rect {
	r, _ := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min[0] - pad, b.Min[1] - pad, b.Min[2] - pad},
		rtreego.Point{b.Max[0] + pad, b.Max[1] + pad, b.Max[2] + pad},
	)
	return r
}

// PointRect returns the cube of half-size tol around p.
func PointRect(p vec3.T, tol float64) rtreego.Rect {
	return rtreego.Point{p[0], p[1], p[2]}.ToRect(tol)
}

// Item is an R-tree entry carrying an integer payload (a face or vertex
// index).
type Item struct {
	ID   int
	Rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (it *Item) Bounds() rtreego.Rect {
	return it.Rect
}

// NewIndex bulk-loads a 3D R-tree from items.
func NewIndex(items []*Item) *rtreego.Rtree {
	objs := make([]rtreego.Spatial, len(items))
	for i, it := range items {
		objs[i] = it
	}
	return rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren, objs...)
}

// FaceIndex returns an R-tree over the bounding boxes of every face, each
// grown by pad.
func FaceIndex(m Mesh, pad float64) *rtreego.Rtree {
	items := make([]*Item, len(m.Faces))
	for i := range m.Faces {
		var b Box
		for _, v := range m.Triangle(i) {
			b = b.Extend(v)
		}
		items[i] = &Item{ID: i, Rect: b.Rect(pad)}
	}
	return NewIndex(items)
}

// Hits returns the IDs of the items intersecting r.
func Hits(tree *rtreego.Rtree, r rtreego.Rect) []int {
	found := tree.SearchIntersect(r)
	ids := make([]int, len(found))
	for i, s := range found {
		ids[i] = s.(*Item).ID
	}
	return ids
}

// AnyHit reports whether any item intersects r.
func AnyHit(tree *rtreego.Rtree, r rtreego.Rect) bool {
	return len(tree.SearchIntersect(r, rtreego.LimitFilter(1))) > 0
}
