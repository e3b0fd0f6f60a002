package planeta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seedIcosahedron(t *testing.T, radius float64, scale int) (Skeleton, []Vector3l, []Vector3, [20]SkTriId) {
	t.Helper()
	var positions []Vector3l
	var normals []Vector3
	skel, _, _, tris := CreateSkeletonIcosahedron(radius, scale, &positions, &normals)
	return skel, positions, normals, tris
}

func TestIcosahedronSeed(t *testing.T) {
	skel, positions, normals, tris := seedIcosahedron(t, 50.0, 10)

	assert.Equal(t, uint(12), skel.VrtxCount())
	assert.Equal(t, uint(5), skel.TriGroupCount())

	r := 50.0 * float64(Pow2(10))
	for v := uint32(0); v < skel.VrtxCapacity(); v++ {
		assert.True(t, skel.VrtxExists(SkVrtxId(v)))
		length := positions[v].Float().Length()
		assert.InDelta(t, r, length, 2.0, "vertex %d not on the sphere", v)
		assert.InDelta(t, 1.0, normals[v].Length(), 1e-6)
	}

	for _, tri := range tris {
		sktri := skel.TriAt(tri)
		assert.Equal(t, SkTriGroupNone, sktri.Children)
		assert.Equal(t, uint8(0), skel.TriGroupAt(TriGroupIdOf(tri)).Depth)
		assert.Equal(t, SkTriNone, skel.TriGroupAt(TriGroupIdOf(tri)).Parent)

		for edge := 0; edge < 3; edge++ {
			neighbor := sktri.Neighbors[edge]
			assert.NotEqual(t, SkTriNone, neighbor, "root triangle missing neighbor")

			// symmetry: the neighbor links back through some edge
			back := skel.TriAt(neighbor)
			assert.Equal(t, tri, back.Neighbors[back.FindNeighborIndex(tri)])

			// the shared edge is the same vertex pair, in opposite order
			va := sktri.Vertices[edge]
			vb := sktri.Vertices[(edge+1)%3]
			be := back.FindNeighborIndex(tri)
			assert.Equal(t, vb, back.Vertices[be])
			assert.Equal(t, va, back.Vertices[(be+1)%3])
		}
	}
}

func TestIcosahedronEdgeLength(t *testing.T) {
	skel, positions, _, tris := seedIcosahedron(t, 1.0, 20)

	// all thirty edges have the canonical icosahedron length
	want := 4.0 / math.Sqrt(10.0+2.0*math.Sqrt(5.0)) * float64(Pow2(20))
	for _, tri := range tris {
		sktri := skel.TriAt(tri)
		for edge := 0; edge < 3; edge++ {
			a := positions[sktri.Vertices[edge]].Float()
			b := positions[sktri.Vertices[(edge+1)%3]].Float()
			got := a.Add(b.Mul(-1)).Length()
			assert.InDelta(t, want, got, want*1e-5)
		}
	}
}

// subdivTestTri subdivides one triangle the way the controller does, without
// any rule enforcement.
func subdivTestTri(skel *Skeleton, tri SkTriId) (SkTriGroupId, [3]MaybeNewId) {
	corners := skel.TriAt(tri).Vertices
	middles := skel.VrtxCreateMiddles(corners)
	groupId, _ := skel.TriSubdiv(tri, [3]SkVrtxId{middles[0].Id, middles[1].Id, middles[2].Id})
	return groupId, middles
}

func TestMidpointDedup(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	triA := tris[0]
	edge := 1
	triB := skel.TriAt(triA).Neighbors[edge]

	_, middlesA := subdivTestTri(&skel, triA)
	edgeB := skel.TriAt(triB).FindNeighborIndex(triA)
	_, middlesB := subdivTestTri(&skel, triB)

	assert.True(t, middlesA[edge].IsNew)
	assert.False(t, middlesB[edgeB].IsNew, "shared midpoint must be deduplicated")
	assert.Equal(t, middlesA[edge].Id, middlesB[edgeB].Id)
}

func TestGroupLayout(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	tri := tris[4]
	corners := skel.TriAt(tri).Vertices
	groupId, middles := subdivTestTri(&skel, tri)
	group := skel.TriGroupAt(groupId)

	assert.Equal(t, tri, group.Parent)
	assert.Equal(t, uint8(1), group.Depth)

	// corner child i carries parent vertex i in its own slot i
	for i := 0; i < 3; i++ {
		assert.Equal(t, corners[i], group.Triangles[i].Vertices[i])
	}
	// the center child is the three midpoints and neighbors all three corners
	center := group.Triangles[3]
	assert.ElementsMatch(t,
		[]SkVrtxId{middles[0].Id, middles[1].Id, middles[2].Id},
		center.Vertices[:])
	assert.ElementsMatch(t,
		[]SkTriId{TriIdOf(groupId, 0), TriIdOf(groupId, 1), TriIdOf(groupId, 2)},
		center.Neighbors[:])

	// internal links are symmetric
	for i := 0; i < 4; i++ {
		child := TriIdOf(groupId, i)
		sktri := skel.TriAt(child)
		for e := 0; e < 3; e++ {
			n := sktri.Neighbors[e]
			if n == SkTriNone {
				continue
			}
			back := skel.TriAt(n)
			assert.Equal(t, child, back.Neighbors[back.FindNeighborIndex(child)])
		}
	}
}

func TestGroupSetNeighboring(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	triA := tris[0]
	triB := skel.TriAt(triA).Neighbors[0]
	edgeA := 0
	edgeB := skel.TriAt(triB).FindNeighborIndex(triA)

	groupA, _ := subdivTestTri(&skel, triA)
	groupB, _ := subdivTestTri(&skel, triB)

	selfEdge, neighborEdge := skel.TriGroupSetNeighboring(
		GroupEdgeDesc{Id: groupA, Edge: edgeA},
		GroupEdgeDesc{Id: groupB, Edge: edgeB},
	)

	// A's first child along the edge faces B's second, and vice versa
	assert.Equal(t, neighborEdge.ChildB, skel.TriAt(selfEdge.ChildA).Neighbors[edgeA])
	assert.Equal(t, neighborEdge.ChildA, skel.TriAt(selfEdge.ChildB).Neighbors[edgeA])
	assert.Equal(t, selfEdge.ChildB, skel.TriAt(neighborEdge.ChildA).Neighbors[edgeB])
	assert.Equal(t, selfEdge.ChildA, skel.TriAt(neighborEdge.ChildB).Neighbors[edgeB])

	// the paired children really share two vertices
	a := skel.TriAt(selfEdge.ChildA)
	b := skel.TriAt(neighborEdge.ChildB)
	shared := 0
	for _, va := range a.Vertices {
		for _, vb := range b.Vertices {
			if va == vb {
				shared++
			}
		}
	}
	assert.Equal(t, 2, shared)
}

func TestUnsubdivReleasesVertices(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	triA := tris[0]
	triB := skel.TriAt(triA).Neighbors[0]

	_, middlesA := subdivTestTri(&skel, triA)
	subdivTestTri(&skel, triB)

	shared := middlesA[0].Id
	assert.True(t, skel.VrtxExists(shared))

	skel.TriUnsubdiv(triA)
	// still referenced by B's subdivision
	assert.True(t, skel.VrtxExists(shared))

	skel.TriUnsubdiv(triB)
	assert.False(t, skel.VrtxExists(shared))

	assert.Equal(t, uint(12), skel.VrtxCount())
	assert.Equal(t, uint(5), skel.TriGroupCount())
}

func TestUnsubdivClearsNeighborLinks(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	triA := tris[0]
	edgeA := 2
	triB := skel.TriAt(triA).Neighbors[edgeA]
	edgeB := skel.TriAt(triB).FindNeighborIndex(triA)

	groupA, _ := subdivTestTri(&skel, triA)
	groupB, _ := subdivTestTri(&skel, triB)
	skel.TriGroupSetNeighboring(
		GroupEdgeDesc{Id: groupA, Edge: edgeA},
		GroupEdgeDesc{Id: groupB, Edge: edgeB},
	)

	skel.TriUnsubdiv(triA)

	// B's children along the shared edge no longer point into the dead group
	assert.Equal(t, SkTriNone, skel.TriAt(TriIdOf(groupB, edgeB)).Neighbors[edgeB])
	assert.Equal(t, SkTriNone, skel.TriAt(TriIdOf(groupB, (edgeB+1)%3)).Neighbors[edgeB])
}

func TestUnsubdivWithSubdividedChildrenPanics(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	tri := tris[0]
	groupId, _ := subdivTestTri(&skel, tri)
	subdivTestTri(&skel, TriIdOf(groupId, 3))

	assert.Panics(t, func() { skel.TriUnsubdiv(tri) })
}

func TestDoubleSubdivPanics(t *testing.T) {
	skel, _, _, tris := seedIcosahedron(t, 50.0, 10)

	subdivTestTri(&skel, tris[0])
	assert.Panics(t, func() { subdivTestTri(&skel, tris[0]) })
}
