package bsp

// node is a BSP tree used purely as a solid classifier: it stores splitting
// planes only. Space in front of a leaf is outside the solid, space behind
// it is inside.
type node struct {
	plane       plane
	front, back *node
}

// build inserts polygons into the tree, choosing the first polygon's plane
// as the splitter of every new node.
func (ev *evaluator) build(polys []polygon) *node {
	if len(polys) == 0 {
		return nil
	}
	n := &node{plane: polys[0].plane}
	ev.insert(n, polys[1:])
	return n
}

func (ev *evaluator) insert(n *node, polys []polygon) {
	var f, b, discard []polygon
	for _, p := range polys {
		ev.split(&n.plane, p, &discard, &discard, &f, &b)
		discard = discard[:0]
	}
	if len(f) > 0 {
		if n.front == nil {
			n.front = ev.build(f)
		} else {
			ev.insert(n.front, f)
		}
	}
	if len(b) > 0 {
		if n.back == nil {
			n.back = ev.build(b)
		} else {
			ev.insert(n.back, b)
		}
	}
}

// clip removes the parts of polys that lie inside the solid. When inverted
// is set the tree is read as the complement solid: every plane is flipped
// and the children swap roles. Coplanar polygons follow the side their
// normal faces.
func (ev *evaluator) clip(n *node, polys []polygon, inverted bool) []polygon {
	if n == nil || len(polys) == 0 {
		return polys
	}
	pl := n.plane
	fc, bc := n.front, n.back
	if inverted {
		pl = pl.flipped()
		fc, bc = bc, fc
	}

	var f, b []polygon
	for _, p := range polys {
		ev.split(&pl, p, &f, &b, &f, &b)
	}
	if fc != nil {
		f = ev.clip(fc, f, inverted)
	}
	if bc == nil {
		return f
	}
	return append(f, ev.clip(bc, b, inverted)...)
}

// inside locates an exact input vertex. Points on a splitting plane are
// sent to the front side.
func (ev *evaluator) inside(n *node, v vertex) bool {
	for n != nil {
		if n.plane.classify(v, ev.eps) == back {
			if n.back == nil {
				return true
			}
			n = n.back
			continue
		}
		if n.front == nil {
			return false
		}
		n = n.front
	}
	return false
}
