package planeta

import "fmt"

// SkeletonTriangle is one triangle of the subdivision skeleton. Edge e runs
// between Vertices[e] and Vertices[(e+1)%3]; Neighbors[e] is the same-depth
// triangle across that edge, or SkTriNone. Children is the group created by
// subdividing this triangle, or SkTriGroupNone.
type SkeletonTriangle struct {
	Vertices  [3]SkVrtxId
	Neighbors [3]SkTriId
	Children  SkTriGroupId
}

// FindNeighborIndex reports which edge of the triangle borders other.
func (t *SkeletonTriangle) FindNeighborIndex(other SkTriId) int {
	for e := 0; e < 3; e++ {
		if t.Neighbors[e] == other {
			return e
		}
	}
	panic(fmt.Sprintf("planeta: triangle %d is not a neighbor", other))
}

// SkTriGroup owns the four sibling triangles produced by one subdivision.
// Siblings 0..2 sit at the parent's corners 0..2; sibling 3 is the center.
// The parent's edge e is covered by siblings e and (e+1)%3, in that order,
// and each of those touches it through its own edge e — a corner child's
// edge indices align with its parent's. The neighbor linking, the rule
// checks, and the parent-neighbor lookups all index by this alignment, so
// the layout is load-bearing.
type SkTriGroup struct {
	Triangles [4]SkeletonTriangle
	Parent    SkTriId // SkTriNone for the seed groups
	Depth     uint8
}

// Skeleton is the triangle/vertex store plus the vertex subdivision tree:
// every non-root vertex is the midpoint of an ordered vertex pair, and the
// pair-to-midpoint mapping deduplicates midpoints between the two triangles
// sharing an edge.
type Skeleton struct {
	vrtxIds  IdRegistry
	groupIds IdRegistry
	groups   []SkTriGroup

	midToVrtx   map[uint64]SkVrtxId
	vrtxParents []uint64 // pair key per vertex; vrtxRoot for seed vertices
	vrtxRefs    []int32
}

const vrtxRoot = ^uint64(0)

func pairKey(a, b SkVrtxId) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

func NewSkeleton() Skeleton {
	return Skeleton{midToVrtx: make(map[uint64]SkVrtxId)}
}

func (s *Skeleton) VrtxCapacity() uint32 { return s.vrtxIds.Capacity() }

func (s *Skeleton) VrtxExists(v SkVrtxId) bool { return s.vrtxIds.Exists(uint32(v)) }

func (s *Skeleton) VrtxCount() uint { return s.vrtxIds.Count() }

func (s *Skeleton) TriGroupCapacity() uint32 { return s.groupIds.Capacity() }

func (s *Skeleton) TriGroupExists(g SkTriGroupId) bool { return s.groupIds.Exists(uint32(g)) }

func (s *Skeleton) TriGroupCount() uint { return s.groupIds.Count() }

// TriCapacity bounds the triangle id space; four triangles per group slot.
func (s *Skeleton) TriCapacity() uint32 { return s.groupIds.Capacity() * 4 }

func (s *Skeleton) TriExists(t SkTriId) bool { return s.TriGroupExists(TriGroupIdOf(t)) }

func (s *Skeleton) TriAt(t SkTriId) *SkeletonTriangle {
	return &s.groups[TriGroupIdOf(t)].Triangles[TriSiblingIndex(t)]
}

func (s *Skeleton) TriGroupAt(g SkTriGroupId) *SkTriGroup {
	return &s.groups[g]
}

// VrtxCreateRoot creates a vertex that is not the midpoint of anything;
// the twelve icosahedron corners are these.
func (s *Skeleton) VrtxCreateRoot() SkVrtxId {
	id := SkVrtxId(s.vrtxIds.Create())
	s.vrtxGrow(id)
	s.vrtxParents[id] = vrtxRoot
	s.vrtxRefs[id] = 1
	return id
}

// VrtxCreateMiddles acquires the midpoints of edges (a,b), (b,c), (c,a),
// creating them if the subdivision tree does not know them yet. Each call
// counts one reference per midpoint; TriUnsubdiv gives them back.
func (s *Skeleton) VrtxCreateMiddles(corners [3]SkVrtxId) [3]MaybeNewId {
	return [3]MaybeNewId{
		s.vrtxAcquireMiddle(corners[0], corners[1]),
		s.vrtxAcquireMiddle(corners[1], corners[2]),
		s.vrtxAcquireMiddle(corners[2], corners[0]),
	}
}

func (s *Skeleton) vrtxAcquireMiddle(a, b SkVrtxId) MaybeNewId {
	key := pairKey(a, b)
	if id, ok := s.midToVrtx[key]; ok {
		s.vrtxRefs[id]++
		return MaybeNewId{Id: id}
	}
	id := SkVrtxId(s.vrtxIds.Create())
	s.vrtxGrow(id)
	s.midToVrtx[key] = id
	s.vrtxParents[id] = key
	s.vrtxRefs[id] = 1
	return MaybeNewId{Id: id, IsNew: true}
}

func (s *Skeleton) vrtxReleaseMiddle(id SkVrtxId) {
	if s.vrtxParents[id] == vrtxRoot {
		panic(fmt.Sprintf("planeta: releasing root vertex %d", id))
	}
	s.vrtxRefs[id]--
	if s.vrtxRefs[id] == 0 {
		delete(s.midToVrtx, s.vrtxParents[id])
		s.vrtxIds.Remove(uint32(id))
	}
}

func (s *Skeleton) vrtxGrow(id SkVrtxId) {
	for uint32(len(s.vrtxParents)) <= uint32(id) {
		s.vrtxParents = append(s.vrtxParents, vrtxRoot)
		s.vrtxRefs = append(s.vrtxRefs, 0)
	}
}

// VrtxParents reports the vertex pair a midpoint was created from, lower id
// first, or (SkVrtxNone, SkVrtxNone) for a root vertex.
func (s *Skeleton) VrtxParents(id SkVrtxId) (SkVrtxId, SkVrtxId) {
	key := s.vrtxParents[id]
	if key == vrtxRoot {
		return SkVrtxNone, SkVrtxNone
	}
	return SkVrtxId(key >> 32), SkVrtxId(key & 0xffffffff)
}

// triGroupCreate allocates a group slot, growing the arena to capacity.
func (s *Skeleton) triGroupCreate() SkTriGroupId {
	id := SkTriGroupId(s.groupIds.Create())
	for uint32(len(s.groups)) <= uint32(id) {
		s.groups = append(s.groups, SkTriGroup{})
	}
	return id
}

// TriSubdiv subdivides a triangle into a group of four children with the
// canonical sibling layout. middles must be the triangle's three edge
// midpoints, in edge order.
func (s *Skeleton) TriSubdiv(tri SkTriId, middles [3]SkVrtxId) (SkTriGroupId, *SkTriGroup) {
	parent := s.TriAt(tri)
	if parent.Children != SkTriGroupNone {
		panic(fmt.Sprintf("planeta: triangle %d is already subdivided", tri))
	}

	depth := s.groups[TriGroupIdOf(tri)].Depth + 1
	corners := parent.Vertices

	groupId := s.triGroupCreate()
	group := &s.groups[groupId]
	group.Parent = tri
	group.Depth = depth

	center := TriIdOf(groupId, 3)

	// Corner child i keeps parent vertex i in its own slot i, so each of
	// its outward edges has the same index as the parent edge it lies on;
	// the remaining edge faces the center.
	group.Triangles[0] = SkeletonTriangle{
		Vertices:  [3]SkVrtxId{corners[0], middles[0], middles[2]},
		Neighbors: [3]SkTriId{SkTriNone, center, SkTriNone},
		Children:  SkTriGroupNone,
	}
	group.Triangles[1] = SkeletonTriangle{
		Vertices:  [3]SkVrtxId{middles[0], corners[1], middles[1]},
		Neighbors: [3]SkTriId{SkTriNone, SkTriNone, center},
		Children:  SkTriGroupNone,
	}
	group.Triangles[2] = SkeletonTriangle{
		Vertices:  [3]SkVrtxId{middles[2], middles[1], corners[2]},
		Neighbors: [3]SkTriId{center, SkTriNone, SkTriNone},
		Children:  SkTriGroupNone,
	}
	group.Triangles[3] = SkeletonTriangle{
		Vertices: [3]SkVrtxId{middles[1], middles[2], middles[0]},
		Neighbors: [3]SkTriId{
			TriIdOf(groupId, 2),
			TriIdOf(groupId, 0),
			TriIdOf(groupId, 1),
		},
		Children: SkTriGroupNone,
	}

	// arena may have been reallocated by triGroupCreate
	s.TriAt(tri).Children = groupId

	return groupId, group
}

// GroupEdgeDesc names one edge of a subdivided triangle's child group.
type GroupEdgeDesc struct {
	Id   SkTriGroupId
	Edge int
}

// GroupEdge is the two children along one parent edge, ordered from the
// edge's first vertex to its second.
type GroupEdge struct {
	ChildA SkTriId
	ChildB SkTriId
}

// TriGroupSetNeighboring links the children of two freshly subdivided
// adjacent triangles across their shared edge, both directions. ChildA of
// either side faces ChildB of the other, since the shared edge runs in
// opposite vertex order in the two parents.
func (s *Skeleton) TriGroupSetNeighboring(self, neighbor GroupEdgeDesc) (GroupEdge, GroupEdge) {
	selfEdge := GroupEdge{
		ChildA: TriIdOf(self.Id, self.Edge),
		ChildB: TriIdOf(self.Id, (self.Edge+1)%3),
	}
	neighborEdge := GroupEdge{
		ChildA: TriIdOf(neighbor.Id, neighbor.Edge),
		ChildB: TriIdOf(neighbor.Id, (neighbor.Edge+1)%3),
	}

	// Both children along a parent edge touch it through their own edge of
	// the same index, so the slot is just the edge index on either side.
	s.TriAt(selfEdge.ChildA).Neighbors[self.Edge] = neighborEdge.ChildB
	s.TriAt(neighborEdge.ChildB).Neighbors[neighbor.Edge] = selfEdge.ChildA

	s.TriAt(selfEdge.ChildB).Neighbors[self.Edge] = neighborEdge.ChildA
	s.TriAt(neighborEdge.ChildA).Neighbors[neighbor.Edge] = selfEdge.ChildB

	return selfEdge, neighborEdge
}

// TriUnsubdiv deletes a triangle's child group. None of the four children
// may themselves be subdivided. Neighbor links from adjacent subdivided
// triangles' children are cleared, and the three midpoint vertices give
// back one reference each.
func (s *Skeleton) TriUnsubdiv(tri SkTriId) {
	parent := s.TriAt(tri)
	groupId := parent.Children
	if groupId == SkTriGroupNone {
		panic(fmt.Sprintf("planeta: triangle %d is not subdivided", tri))
	}
	group := &s.groups[groupId]
	for i := 0; i < 4; i++ {
		if group.Triangles[i].Children != SkTriGroupNone {
			panic(fmt.Sprintf("planeta: un-subdividing triangle %d with subdivided children", tri))
		}
	}

	// detach from adjacent subdivided triangles' children
	for e := 0; e < 3; e++ {
		neighborId := parent.Neighbors[e]
		if neighborId == SkTriNone {
			continue
		}
		neighbor := s.TriAt(neighborId)
		if neighbor.Children == SkTriGroupNone {
			continue
		}
		neighborEdge := neighbor.FindNeighborIndex(tri)
		s.TriAt(TriIdOf(neighbor.Children, neighborEdge)).Neighbors[neighborEdge] = SkTriNone
		s.TriAt(TriIdOf(neighbor.Children, (neighborEdge+1)%3)).Neighbors[neighborEdge] = SkTriNone
	}

	// the center child's vertices are exactly the three edge midpoints
	for _, mid := range group.Triangles[3].Vertices {
		s.vrtxReleaseMiddle(mid)
	}

	parent.Children = SkTriGroupNone
	s.groupIds.Remove(uint32(groupId))
}
