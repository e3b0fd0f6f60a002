package planeta

import "math"

// MaxSubdivLevels is how many subdivision levels the terrain tracks;
// triangle depth runs 0 through MaxSubdivLevels-1.
const MaxSubdivLevels = 9

// Icosahedron vertices, Blender style: a vertex directly on top and bottom,
// sandwiching two pentagons each 1/sqrt(5) from the origin and rotated 36
// degrees apart. The pentagon 'radius' is (2/5)*sqrt(5) of the sphere's so
// the corners still sit at distance 1.
//
// Indices viewed from above (+Z):
//
//	        4
//	 3
//	       0      5
//	 2
//	        1
//
// Constants follow from the regular-pentagon relations
// c1 = (sqrt(5)-1)/4, c2 = (sqrt(5)+1)/4, s1 = sqrt(10+2 sqrt 5)/4,
// s2 = sqrt(10-2 sqrt 5)/4, all scaled by (2/5)*sqrt(5).
var icoVrtxPos [12]Vector3

// Twenty faces as vertex triples, grouped four per seed group. Shared edges
// appear in opposite vertex order in the two faces touching them, which is
// what the neighbor wiring below keys on.
var icoFaces = [20][3]uint8{
	{0, 2, 1}, {0, 3, 2}, {0, 4, 3}, {0, 5, 4},
	{0, 1, 5}, {8, 1, 2}, {2, 7, 8}, {7, 2, 3},
	{3, 6, 7}, {6, 3, 4}, {4, 10, 6}, {10, 4, 5},
	{5, 9, 10}, {9, 5, 1}, {1, 8, 9}, {11, 7, 6},
	{11, 8, 7}, {11, 9, 8}, {11, 10, 9}, {11, 6, 10},
}

// Largest edge length per subdivision level, as a fraction of the sphere
// radius. Levels halve the edge arc, so chords follow 2 sin(theta/2).
var maxEdgeVsLevel [MaxSubdivLevels]float64

// How far the sphere surface rises over a level's chord midpoint (the
// sagitta), as a fraction of the radius, indexed by group depth. Triangle
// centers are lifted by the terrain height budget scaled with this.
var towerOverHorizonVsLevel [MaxSubdivLevels]float64

func init() {
	pnt := 2.0 / 5.0 * math.Sqrt(5.0)
	hei := 1.0 / math.Sqrt(5.0)
	cxA := 1.0/2.0 - math.Sqrt(5.0)/10.0
	cxB := 1.0/2.0 + math.Sqrt(5.0)/10.0
	syA := 1.0 / 10.0 * math.Sqrt(10.0*(5.0+math.Sqrt(5.0)))
	syB := 1.0 / 10.0 * math.Sqrt(10.0*(5.0-math.Sqrt(5.0)))

	icoVrtxPos = [12]Vector3{
		{0.0, 0.0, 1.0}, // top point

		{pnt, 0.0, hei}, // 1: top pentagon
		{cxA, -syA, hei},
		{-cxB, -syB, hei},
		{-cxB, syB, hei},
		{cxA, syA, hei},

		{-pnt, 0.0, -hei}, // 6: bottom pentagon
		{-cxA, -syA, -hei},
		{cxB, -syB, -hei},
		{cxB, syB, -hei},
		{-cxA, syA, -hei},

		{0.0, 0.0, -1.0}, // 11: bottom point
	}

	edge := icoVrtxPos[0].Add(icoVrtxPos[1].Mul(-1)).Length()
	arc := 2.0 * math.Asin(edge/2.0)
	for level := 0; level < MaxSubdivLevels; level++ {
		maxEdgeVsLevel[level] = 2.0 * math.Sin(arc/2.0)
		towerOverHorizonVsLevel[level] = 1.0 - math.Cos(arc/2.0)
		arc /= 2.0
	}
}

// CreateSkeletonIcosahedron seeds a skeleton with the twelve corners and
// twenty faces, wiring every neighbor link. Positions land in the
// fixed-point frame of the given scale; normals point outward.
func CreateSkeletonIcosahedron(
	radius float64, scale int,
	positions *[]Vector3l, normals *[]Vector3,
) (skel Skeleton, vrtxs [12]SkVrtxId, groups [5]SkTriGroupId, tris [20]SkTriId) {

	skel = NewSkeleton()

	r := radius * float64(Pow2(scale))
	for i := 0; i < 12; i++ {
		vrtxs[i] = skel.VrtxCreateRoot()
	}
	resizePositions(positions, normals, skel.VrtxCapacity())
	for i := 0; i < 12; i++ {
		(*positions)[vrtxs[i]] = Vector3lFrom(icoVrtxPos[i].Mul(r))
		(*normals)[vrtxs[i]] = icoVrtxPos[i]
	}

	for gi := 0; gi < 5; gi++ {
		groups[gi] = skel.triGroupCreate()
		group := skel.TriGroupAt(groups[gi])
		group.Parent = SkTriNone
		group.Depth = 0
		for si := 0; si < 4; si++ {
			face := icoFaces[gi*4+si]
			tri := TriIdOf(groups[gi], si)
			tris[gi*4+si] = tri
			group.Triangles[si] = SkeletonTriangle{
				Vertices: [3]SkVrtxId{
					vrtxs[face[0]], vrtxs[face[1]], vrtxs[face[2]],
				},
				Neighbors: [3]SkTriId{SkTriNone, SkTriNone, SkTriNone},
				Children:  SkTriGroupNone,
			}
		}
	}

	// wire neighbors by matching directed edges; face winding guarantees
	// the reverse edge exists exactly once
	type triEdge struct {
		tri  SkTriId
		edge int
	}
	edges := make(map[uint64]triEdge, 60)
	for fi, face := range icoFaces {
		for e := 0; e < 3; e++ {
			a, b := uint64(face[e]), uint64(face[(e+1)%3])
			edges[a<<32|b] = triEdge{tri: tris[fi], edge: e}
		}
	}
	for fi, face := range icoFaces {
		for e := 0; e < 3; e++ {
			a, b := uint64(face[e]), uint64(face[(e+1)%3])
			other, ok := edges[b<<32|a]
			if !ok {
				panic("planeta: icosahedron face list has an unpaired edge")
			}
			skel.TriAt(tris[fi]).Neighbors[e] = other.tri
		}
	}

	return skel, vrtxs, groups, tris
}

func resizePositions(positions *[]Vector3l, normals *[]Vector3, capacity uint32) {
	for uint32(len(*positions)) < capacity {
		*positions = append(*positions, Vector3l{})
		*normals = append(*normals, Vector3{})
	}
}

// icoCalcMiddles projects freshly created edge midpoints onto the sphere
// and assigns their outward normals. Midpoints the subdivision tree already
// knew keep their values.
func icoCalcMiddles(
	radius float64, scale int,
	corners [3]SkVrtxId, middles [3]MaybeNewId,
	positions []Vector3l, normals []Vector3,
) {
	r := radius * float64(Pow2(scale))
	pairs := [3][2]int{{0, 1}, {1, 2}, {2, 0}}

	for i, pair := range pairs {
		if !middles[i].IsNew {
			continue
		}
		a := positions[corners[pair[0]]]
		b := positions[corners[pair[1]]]
		avg := Vector3l{a.X/2 + b.X/2, a.Y/2 + b.Y/2, a.Z/2 + b.Z/2}.Float()
		length := avg.Length()

		positions[middles[i].Id] = Vector3lFrom(avg.Mul(r / length))
		normals[middles[i].Id] = avg.Mul(1.0 / length)
	}
}
