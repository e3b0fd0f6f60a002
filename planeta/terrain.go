package planeta

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/Ben-Bingham/osp-magnum/utils"
)

// SubdivLevel is the per-depth bookkeeping the controller keeps between
// updates: which subdivided triangles border a non-subdivided one (the
// contraction candidates' seed set), which leaves border a subdivided one,
// and the level's two distance-test work queues.
type SubdivLevel struct {
	HasSubdivedNeighbor    *bitset.BitSet
	HasNonSubdivedNeighbor *bitset.BitSet

	DistanceTestProcessing []SkTriId
	DistanceTestNext       []SkTriId
}

type TerrainStats struct {
	DistanceChecks uint64
	Subdivs        uint64
	Unsubdivs      uint64
	Updates        uint64
}

// Terrain is the whole LOD state for one planet: the skeleton, its
// fixed-point geometry arrays, and the per-level controller bookkeeping.
type Terrain struct {
	Skeleton  Skeleton
	Positions []Vector3l // indexed by SkVrtxId
	Normals   []Vector3  // indexed by SkVrtxId
	TriCenter []Vector3l // indexed by SkTriId

	Levels           [MaxSubdivLevels]SubdivLevel
	LevelNeedProcess int

	// power-of-two fixed-point shift for Positions/TriCenter
	Scale int

	Stats TerrainStats
}

type TerrainIco struct {
	Radius float64
	Height float64

	IcoVrtx   [12]SkVrtxId
	IcoGroups [5]SkTriGroupId
	IcoTri    [20]SkTriId
}

// SurfaceFrame is the observer in the planet's fixed-point frame.
type SurfaceFrame struct {
	Position Vector3l
	Active   bool
}

// InitIcoTerrain seeds a terrain with the icosahedron skeleton and computes
// the twenty root triangle centers.
func InitIcoTerrain(t *Terrain, ico *TerrainIco, radius, height float64, scale int) {
	ico.Radius = radius
	ico.Height = height
	t.Scale = scale

	t.Skeleton, ico.IcoVrtx, ico.IcoGroups, ico.IcoTri =
		CreateSkeletonIcosahedron(radius, scale, &t.Positions, &t.Normals)

	t.resizeTriData()
	for level := range t.Levels {
		t.Levels[level].HasSubdivedNeighbor = bitset.New(uint(t.Skeleton.TriCapacity()))
		t.Levels[level].HasNonSubdivedNeighbor = bitset.New(uint(t.Skeleton.TriCapacity()))
	}

	for _, groupId := range ico.IcoGroups {
		calculateCenters(groupId, t, radius+height, height)
	}
}

func (t *Terrain) resizeTriData() {
	for uint32(len(t.TriCenter)) < t.Skeleton.TriCapacity() {
		t.TriCenter = append(t.TriCenter, Vector3l{})
	}
}

// calculateCenters computes the bounding centers of a group's four
// triangles: the integer average of the corners plus a rise towards where
// terrain would poke over the flat face.
func calculateCenters(groupId SkTriGroupId, t *Terrain, maxRadius, height float64) {
	group := t.Skeleton.TriGroupAt(groupId)

	for i := 0; i < 4; i++ {
		sktriId := TriIdOf(groupId, i)
		tri := &group.Triangles[i]

		va := tri.Vertices[0]
		vb := tri.Vertices[1]
		vc := tri.Vertices[2]

		// average without overflow
		pa, pb, pc := t.Positions[va], t.Positions[vb], t.Positions[vc]
		posAvg := Vector3l{
			pa.X/3 + pb.X/3 + pc.X/3,
			pa.Y/3 + pb.Y/3 + pc.Y/3,
			pa.Z/3 + pb.Z/3 + pc.Z/3,
		}

		nrmSum := t.Normals[va].Add(t.Normals[vb]).Add(t.Normals[vc])

		terrainMaxHeight := height + maxRadius*towerOverHorizonVsLevel[group.Depth]

		// 0.5 * terrainMaxHeight : halve for middle
		// Pow2(t.Scale)          : fixed-point conversion factor
		// / 3.0                  : average from sum of 3 normals
		riseToMid := Vector3lFrom(nrmSum.Mul(0.5 * terrainMaxHeight * float64(Pow2(t.Scale)) / 3.0))

		t.TriCenter[sktriId] = posAvg.Add(riseToMid)
	}
}

type subdivCtx struct {
	t     *Terrain
	ico   *TerrainIco
	frame *SurfaceFrame

	distanceTestDone *bitset.BitSet
	log              utils.Logger
}

// Update runs one full LOD pass for the current observer position:
// contraction top-down (deepest level first), then expansion bottom-up from
// the twenty roots. Afterwards every distance-test queue is empty and the
// leaf set is a valid T-junction-free mesh (see CheckRules).
func Update(t *Terrain, ico *TerrainIco, frame *SurfaceFrame, log utils.Logger) {
	if log == nil {
		log = utils.NopLogger{}
	}
	t.Stats.Updates++

	triCap := uint(t.Skeleton.TriCapacity())
	tryUnsubdiv := bitset.New(triCap)
	cantUnsubdiv := bitset.New(triCap)
	distanceTestDone := bitset.New(triCap)

	for level := MaxSubdivLevels - 1; level >= 0; level-- {
		contractLevel(t, ico, frame, level, tryUnsubdiv, cantUnsubdiv, distanceTestDone, log)
		tryUnsubdiv.ClearAll()
		cantUnsubdiv.ClearAll()
	}

	distanceTestDone.ClearAll()

	ctx := &subdivCtx{t: t, ico: ico, frame: frame, distanceTestDone: distanceTestDone, log: log}

	rootLevel := &t.Levels[0]
	for _, sktriId := range ico.IcoTri {
		rootLevel.DistanceTestNext = append(rootLevel.DistanceTestNext, sktriId)
		distanceTestDone.Set(uint(sktriId))
	}
	t.LevelNeedProcess = 0

	for level := 0; level < MaxSubdivLevels-1; level++ {
		subdivideLevel(ctx, level)
	}

	for level := range t.Levels {
		if len(t.Levels[level].DistanceTestNext) != 0 {
			panic(fmt.Sprintf("planeta: level %d still has queued distance tests", level))
		}
	}

	log.Debug("terrain update",
		"distanceChecks", t.Stats.DistanceChecks,
		"triangles", t.Skeleton.TriGroupCount()*4,
		"vertices", t.Skeleton.VrtxCount())
}

// contractLevel un-subdivides every triangle of one level that moved out of
// range, so far as rule A and rule B allow.
func contractLevel(
	t *Terrain, ico *TerrainIco, frame *SurfaceFrame, level int,
	tryUnsubdiv, cantUnsubdiv, distanceTestDone *bitset.BitSet,
	log utils.Logger,
) {
	// Good-enough bounding sphere is ~75% of the edge length; un-subdivide
	// thresholds are 50% wider so triangles don't flicker at the boundary.
	boundRadiusF := maxEdgeVsLevel[level] * ico.Radius * 0.75 * 1.5
	boundRadius := uint64(boundRadiusF * float64(Pow2(t.Scale)))

	rLevel := &t.Levels[level]

	if len(rLevel.DistanceTestNext) != 0 {
		panic("planeta: distance test queue not drained by previous update")
	}

	// Step 1: populate tryUnsubdiv. Floodfill-select all triangles in this
	// level that might be unsubdivided.
	maybeDistanceCheck := func(sktriId SkTriId) {
		if distanceTestDone.Test(uint(sktriId)) {
			return
		}
		childrenId := t.Skeleton.TriAt(sktriId).Children
		if childrenId == SkTriGroupNone {
			return // must be subdivided to be considered for unsubdivision
		}
		children := t.Skeleton.TriGroupAt(childrenId)
		if children.Triangles[0].Children != SkTriGroupNone ||
			children.Triangles[1].Children != SkTriGroupNone ||
			children.Triangles[2].Children != SkTriGroupNone ||
			children.Triangles[3].Children != SkTriGroupNone {
			return // parents unsubdivide only after all their children
		}
		rLevel.DistanceTestNext = append(rLevel.DistanceTestNext, sktriId)
		distanceTestDone.Set(uint(sktriId))
	}

	for i, ok := rLevel.HasNonSubdivedNeighbor.NextSet(0); ok; i, ok = rLevel.HasNonSubdivedNeighbor.NextSet(i + 1) {
		maybeDistanceCheck(SkTriId(i))
	}

	for len(rLevel.DistanceTestNext) != 0 {
		rLevel.DistanceTestProcessing, rLevel.DistanceTestNext =
			rLevel.DistanceTestNext, rLevel.DistanceTestProcessing[:0]

		for _, sktriId := range rLevel.DistanceTestProcessing {
			center := t.TriCenter[sktriId]
			tooFar := !IsDistanceNear(frame.Position, center, boundRadius)
			t.Stats.DistanceChecks++

			if !tooFar {
				continue
			}

			tryUnsubdiv.Set(uint(sktriId))

			// floodfill into subdivided neighbors
			sktri := t.Skeleton.TriAt(sktriId)
			for edge := 0; edge < 3; edge++ {
				if neighbor := sktri.Neighbors[edge]; neighbor != SkTriNone {
					maybeDistanceCheck(neighbor)
				}
			}
		}
	}

	// Step 2: populate cantUnsubdiv considering rule A and rule B.
	//
	// Strategy: pretend tris in tryUnsubdiv are all deleted, then 're-add'
	// the ones whose absence would break a rule, by putting them in
	// cantUnsubdiv. Re-adding one means its tryUnsubdiv neighbors have to be
	// rechecked.
	violatesRules := func(sktriId SkTriId, sktri *SkeletonTriangle) bool {
		subdivedNeighbors := 0
		for edge := 0; edge < 3; edge++ {
			neighbor := sktri.Neighbors[edge]
			if neighbor == SkTriNone {
				continue
			}
			rNeighbor := t.Skeleton.TriAt(neighbor)
			// neighbor counts as unsubdivided while in tryUnsubdiv, unless
			// overridden by cantUnsubdiv
			if rNeighbor.Children == SkTriGroupNone ||
				(tryUnsubdiv.Test(uint(neighbor)) && !cantUnsubdiv.Test(uint(neighbor))) {
				continue
			}

			subdivedNeighbors++

			// rule B: the neighbor's two children along the shared edge
			// must not be subdivided
			neighborEdge := rNeighbor.FindNeighborIndex(sktriId)
			neighborGroup := t.Skeleton.TriGroupAt(rNeighbor.Children)
			if neighborGroup.Triangles[neighborEdge].Children != SkTriGroupNone {
				return true
			}
			if neighborGroup.Triangles[(neighborEdge+1)%3].Children != SkTriGroupNone {
				return true
			}
		}

		// rule A
		return subdivedNeighbors >= 2
	}

	var checkRecurse func(sktriId SkTriId)
	checkRecurse = func(sktriId SkTriId) {
		sktri := t.Skeleton.TriAt(sktriId)

		if !violatesRules(sktriId, sktri) {
			return
		}

		cantUnsubdiv.Set(uint(sktriId))

		// neighbors that were going to unsubdivide may no longer be able to
		for edge := 0; edge < 3; edge++ {
			neighbor := sktri.Neighbors[edge]
			if neighbor == SkTriNone {
				continue
			}
			if tryUnsubdiv.Test(uint(neighbor)) && !cantUnsubdiv.Test(uint(neighbor)) {
				checkRecurse(neighbor)
			}
		}
	}

	for i, ok := tryUnsubdiv.NextSet(0); ok; i, ok = tryUnsubdiv.NextSet(i + 1) {
		if !cantUnsubdiv.Test(i) {
			checkRecurse(SkTriId(i))
		}
	}

	log.Debug("contract level",
		"level", level,
		"selected", tryUnsubdiv.Count(),
		"reAdded", cantUnsubdiv.Count())

	// Step 3: apply
	var unsubdivided []SkTriId
	for i, ok := tryUnsubdiv.NextSet(0); ok; i, ok = tryUnsubdiv.NextSet(i + 1) {
		if cantUnsubdiv.Test(i) {
			continue
		}
		sktriId := SkTriId(i)

		// the children stop existing; drop their bookkeeping first
		if level+1 < MaxSubdivLevels {
			childGroup := t.Skeleton.TriAt(sktriId).Children
			rNextLevel := &t.Levels[level+1]
			for sibling := 0; sibling < 4; sibling++ {
				child := uint(TriIdOf(childGroup, sibling))
				rNextLevel.HasSubdivedNeighbor.Clear(child)
				rNextLevel.HasNonSubdivedNeighbor.Clear(child)
			}
		}

		t.Skeleton.TriUnsubdiv(sktriId)
		t.Stats.Unsubdivs++
		rLevel.HasNonSubdivedNeighbor.Clear(uint(sktriId))
		unsubdivided = append(unsubdivided, sktriId)
	}

	// batch removal settled; rebuild the neighborhood bits around it
	for _, sktriId := range unsubdivided {
		t.refreshLevelBits(level, sktriId)
		sktri := t.Skeleton.TriAt(sktriId)
		for edge := 0; edge < 3; edge++ {
			if neighbor := sktri.Neighbors[edge]; neighbor != SkTriNone {
				t.refreshLevelBits(level, neighbor)
			}
		}
	}
}

// refreshLevelBits recomputes one triangle's per-level bookkeeping from its
// actual neighborhood. Needed after contraction; expansion maintains the
// bits incrementally.
func (t *Terrain) refreshLevelBits(level int, sktriId SkTriId) {
	sktri := t.Skeleton.TriAt(sktriId)
	rLevel := &t.Levels[level]

	if sktri.Children != SkTriGroupNone {
		hasNonSubdived := false
		for edge := 0; edge < 3; edge++ {
			if n := sktri.Neighbors[edge]; n != SkTriNone && t.Skeleton.TriAt(n).Children == SkTriGroupNone {
				hasNonSubdived = true
				break
			}
		}
		rLevel.HasNonSubdivedNeighbor.SetTo(uint(sktriId), hasNonSubdived)
		rLevel.HasSubdivedNeighbor.Clear(uint(sktriId))
	} else {
		hasSubdived := false
		for edge := 0; edge < 3; edge++ {
			if n := sktri.Neighbors[edge]; n != SkTriNone && t.Skeleton.TriAt(n).Children != SkTriGroupNone {
				hasSubdived = true
				break
			}
		}
		rLevel.HasSubdivedNeighbor.SetTo(uint(sktriId), hasSubdived)
		rLevel.HasNonSubdivedNeighbor.Clear(uint(sktriId))
	}
}

// subdivideLevel drains one level's distance-test queue, subdividing every
// triangle the observer is near. Rule fix-ups may re-open lower levels;
// those are re-run before continuing, keyed by LevelNeedProcess.
func subdivideLevel(ctx *subdivCtx, level int) {
	t := ctx.t

	if level != t.LevelNeedProcess {
		panic(fmt.Sprintf("planeta: processing level %d while level %d needs work", level, t.LevelNeedProcess))
	}

	// Good-enough bounding sphere is ~75% of the edge length.
	boundRadiusF := maxEdgeVsLevel[level] * ctx.ico.Radius * 0.75
	boundRadius := uint64(boundRadiusF * float64(Pow2(t.Scale)))

	rLevel := &t.Levels[level]

	for len(rLevel.DistanceTestNext) != 0 {
		rLevel.DistanceTestProcessing, rLevel.DistanceTestNext =
			rLevel.DistanceTestNext, rLevel.DistanceTestProcessing[:0]

		for _, sktriId := range rLevel.DistanceTestProcessing {
			if !ctx.distanceTestDone.Test(uint(sktriId)) {
				panic("planeta: distance-testing a triangle that was never marked")
			}

			center := t.TriCenter[sktriId]
			distanceNear := IsDistanceNear(ctx.frame.Position, center, boundRadius)
			t.Stats.DistanceChecks++

			if distanceNear {
				if t.Skeleton.TriAt(sktriId).Children == SkTriGroupNone {
					subdivide(ctx, sktriId, level)
				}

				// descend into the children, unless the level cap stops
				// further expansion
				if level < 7 {
					childGroup := t.Skeleton.TriAt(sktriId).Children
					rNextLevel := &t.Levels[level+1]
					for sibling := 0; sibling < 4; sibling++ {
						child := TriIdOf(childGroup, sibling)
						rNextLevel.DistanceTestNext = append(rNextLevel.DistanceTestNext, child)
						ctx.distanceTestDone.Set(uint(child))
					}
				}
			}

			// rule B fix-ups re-opened a lower level; settle it before the
			// next triangle
			for t.LevelNeedProcess != level {
				subdivideLevel(ctx, t.LevelNeedProcess)
			}
		}
	}

	if level != t.LevelNeedProcess {
		panic("planeta: level processing interleaved incorrectly")
	}
	t.LevelNeedProcess++
}

// subdivide splits one triangle and restores rule A and rule B around it,
// which may recursively subdivide neighbors on this level or the one above.
func subdivide(ctx *subdivCtx, sktriId SkTriId, level int) {
	t := ctx.t

	if !t.Skeleton.TriExists(sktriId) {
		panic(fmt.Sprintf("planeta: subdividing dead triangle %d", sktriId))
	}

	rTri := t.Skeleton.TriAt(sktriId)
	if rTri.Children != SkTriGroupNone {
		panic(fmt.Sprintf("planeta: triangle %d already subdivided", sktriId))
	}

	rLevel := &t.Levels[level]
	rNextLevel := &t.Levels[level+1]

	neighbors := rTri.Neighbors
	corners := rTri.Vertices

	middles := t.Skeleton.VrtxCreateMiddles(corners)
	groupId, _ := t.Skeleton.TriSubdiv(sktriId,
		[3]SkVrtxId{middles[0].Id, middles[1].Id, middles[2].Id})
	// rTri is invalid from here on; the arena may have moved

	resizePositions(&t.Positions, &t.Normals, t.Skeleton.VrtxCapacity())
	t.resizeTriData()

	icoCalcMiddles(ctx.ico.Radius, t.Scale, corners, middles, t.Positions, t.Normals)
	calculateCenters(groupId, t, ctx.ico.Radius+ctx.ico.Height, ctx.ico.Height)

	t.Stats.Subdivs++
	rLevel.HasSubdivedNeighbor.Clear(uint(sktriId))

	hasNonSubdivNeighbor := false

	// check neighbors along all 3 edges
	for selfEdge := 0; selfEdge < 3; selfEdge++ {
		neighborId := neighbors[selfEdge]
		if neighborId == SkTriNone {
			continue
		}
		rNeighbor := t.Skeleton.TriAt(neighborId)
		if rNeighbor.Children != SkTriGroupNone {
			// assign the bi-directional connection between child rows
			neighborEdge := rNeighbor.FindNeighborIndex(sktriId)

			selfEdgeChildren, neighborEdgeChildren := t.Skeleton.TriGroupSetNeighboring(
				GroupEdgeDesc{Id: groupId, Edge: selfEdge},
				GroupEdgeDesc{Id: rNeighbor.Children, Edge: neighborEdge},
			)

			if t.Skeleton.TriAt(neighborEdgeChildren.ChildB).Children != SkTriGroupNone {
				rNextLevel.HasSubdivedNeighbor.Set(uint(selfEdgeChildren.ChildA))
			}
			if t.Skeleton.TriAt(neighborEdgeChildren.ChildA).Children != SkTriGroupNone {
				rNextLevel.HasSubdivedNeighbor.Set(uint(selfEdgeChildren.ChildB))
			}
		} else {
			hasNonSubdivNeighbor = true
			rLevel.HasSubdivedNeighbor.Set(uint(neighborId))
		}
	}

	rLevel.HasNonSubdivedNeighbor.SetTo(uint(sktriId), hasNonSubdivNeighbor)

	// Check for rule A and rule B violations. This can immediately
	// subdivide other triangles recursively.
	// Rule A: if a neighbor has 2 subdivided neighbors, subdivide it too.
	// Rule B: for corner children, the parent's neighbors must be subdivided.
	for selfEdge := 0; selfEdge < 3; selfEdge++ {
		// re-read; recursion below may have filled in missing neighbors
		neighborId := t.Skeleton.TriAt(sktriId).Neighbors[selfEdge]
		if neighborId != SkTriNone {
			rNeighbor := t.Skeleton.TriAt(neighborId)
			if rNeighbor.Children != SkTriGroupNone {
				continue
			}

			isOtherSubdivided := func(other SkTriId) bool {
				return other != sktriId &&
					other != SkTriNone &&
					t.Skeleton.TriAt(other).Children != SkTriGroupNone
			}

			if isOtherSubdivided(rNeighbor.Neighbors[0]) ||
				isOtherSubdivided(rNeighbor.Neighbors[1]) ||
				isOtherSubdivided(rNeighbor.Neighbors[2]) {
				// rule A
				subdivide(ctx, neighborId, level)
				ctx.distanceTestDone.Set(uint(neighborId))
			} else if !ctx.distanceTestDone.Test(uint(neighborId)) {
				rLevel.DistanceTestNext = append(rLevel.DistanceTestNext, neighborId)
				ctx.distanceTestDone.Set(uint(neighborId))
			}
		} else {
			// Neighbor doesn't exist: its parent is not subdivided. Rule B.
			if TriSiblingIndex(sktriId) == 3 {
				panic("planeta: center triangles are always surrounded by their siblings")
			}
			if level == 0 {
				panic("planeta: no level above level 0")
			}

			parent := t.Skeleton.TriGroupAt(TriGroupIdOf(sktriId)).Parent
			if parent == SkTriNone {
				panic("planeta: non-root triangle missing its parent")
			}

			neighborParent := t.Skeleton.TriAt(parent).Neighbors[selfEdge]
			if neighborParent == SkTriNone {
				panic("planeta: parent's neighborhood already violates rule B")
			}

			// adds to the level below's distance-test queue
			subdivide(ctx, neighborParent, level-1)
			ctx.distanceTestDone.Set(uint(neighborParent))

			if level-1 < t.LevelNeedProcess {
				t.LevelNeedProcess = level - 1
			}
		}
	}
}

// CheckRules validates the whole skeleton: rule A, rule B, and neighbor
// symmetry. Nil means the mesh is a valid T-junction-free subdivision.
func CheckRules(t *Terrain) error {
	capacity := t.Skeleton.TriCapacity()
	for i := uint32(0); i < capacity; i++ {
		sktriId := SkTriId(i)
		if !t.Skeleton.TriExists(sktriId) {
			continue
		}
		sktri := t.Skeleton.TriAt(sktriId)
		depth := t.Skeleton.TriGroupAt(TriGroupIdOf(sktriId)).Depth

		// neighbor symmetry
		for edge := 0; edge < 3; edge++ {
			neighbor := sktri.Neighbors[edge]
			if neighbor == SkTriNone {
				continue
			}
			if !t.Skeleton.TriExists(neighbor) {
				return fmt.Errorf("triangle %d: neighbor %d does not exist", sktriId, neighbor)
			}
			if d := t.Skeleton.TriGroupAt(TriGroupIdOf(neighbor)).Depth; d != depth {
				return fmt.Errorf("triangle %d: neighbor %d at depth %d, not %d", sktriId, neighbor, d, depth)
			}
			back := t.Skeleton.TriAt(neighbor)
			found := false
			for be := 0; be < 3; be++ {
				if back.Neighbors[be] == sktriId {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("triangle %d: neighbor %d does not link back", sktriId, neighbor)
			}
		}

		if sktri.Children != SkTriGroupNone {
			continue
		}

		// leaf triangle: rule A and rule B
		subdivedNeighbors := 0
		for edge := 0; edge < 3; edge++ {
			neighbor := sktri.Neighbors[edge]
			if neighbor != SkTriNone {
				if t.Skeleton.TriAt(neighbor).Children != SkTriGroupNone {
					subdivedNeighbors++
				}
				continue
			}

			// neighbor doesn't exist; the parent must have one there
			parent := t.Skeleton.TriGroupAt(TriGroupIdOf(sktriId)).Parent
			if parent == SkTriNone {
				return fmt.Errorf("seed triangle %d is missing a neighbor", sktriId)
			}
			parentNeighbor := t.Skeleton.TriAt(parent).Neighbors[edge]
			if parentNeighbor == SkTriNone {
				return fmt.Errorf("triangle %d: rule B violation on edge %d", sktriId, edge)
			}
			if t.Skeleton.TriAt(parentNeighbor).Children != SkTriGroupNone {
				return fmt.Errorf("triangle %d: neighbor links incorrectly unset on edge %d", sktriId, edge)
			}
		}

		if subdivedNeighbors >= 2 {
			return fmt.Errorf("triangle %d: rule A violation (%d subdivided neighbors)", sktriId, subdivedNeighbors)
		}
	}
	return nil
}

// MaxDepth reports the deepest live subdivision group.
func MaxDepth(t *Terrain) int {
	deepest := 0
	for g := uint32(0); g < t.Skeleton.TriGroupCapacity(); g++ {
		if t.Skeleton.TriGroupExists(SkTriGroupId(g)) {
			if d := int(t.Skeleton.TriGroupAt(SkTriGroupId(g)).Depth); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}
