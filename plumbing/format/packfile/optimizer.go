package packfile

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vcsobj/gitcore/plumbing"
)

// MaxDeltaChainDepth bounds how many delta hops a single object may sit
// behind its ultimate non-delta base, per spec.md §4.7's "chain-depth
// bound" invariant: deep chains trade pack size for reconstruction cost,
// and an unbounded chain would make a single object's read cost
// proportional to the whole pack's history.
const MaxDeltaChainDepth = 50

// deltaWindow bounds how many same-type, similarly-sized candidates are
// scored as possible bases for each object: scoring against every other
// object in a large batch is quadratic, so only a bounded neighborhood
// (after sorting by size) is considered, the same fixed-window tradeoff
// real packers make.
const deltaWindow = 16

// Candidate is one object the Optimizer may choose to store as a delta.
type Candidate struct {
	Id      plumbing.Id
	Type    plumbing.ObjectType
	Content []byte
}

// Plan is the Optimizer's decision for one candidate: either store it
// literally (Base == nil) or as a delta against Base, with Depth giving
// its resolved position in the delta chain.
type Plan struct {
	Id    plumbing.Id
	Base  *plumbing.Id
	Delta []byte
	Depth int
}

// Optimizer selects delta bases for a batch of candidate objects,
// implementing spec.md §4.7: objects are grouped by type (a delta's base
// must share it - the wire format never encodes a type change across a
// delta), and within each group every candidate is scored in parallel via
// errgroup against a bounded window of similarly-sized neighbors, picking
// whichever yields the smallest delta. Chain depth is only known once every
// candidate's best base has been chosen, so it is resolved in a second,
// sequential pass afterward; any candidate whose resolved chain would
// exceed MaxDeltaChainDepth falls back to being stored literally.
type Optimizer struct {
	// MaxWorkers caps how many scoring goroutines run concurrently; zero
	// means errgroup.Group's default of unlimited (one per candidate).
	MaxWorkers int
}

// Plan scores candidates and returns one Plan per candidate, in the same
// order as the input. Candidates are only ever considered as bases for
// other candidates in the same Plan call, not against any pack's existing
// contents - matching spec.md §4.7's scope ("the optimizer operates over a
// batch of new objects being added").
func (o *Optimizer) Plan(candidates []Candidate) ([]Plan, error) {
	plans := make([]Plan, len(candidates))
	for i, c := range candidates {
		plans[i] = Plan{Id: c.Id}
	}

	byType := make(map[plumbing.ObjectType][]int)
	for i, c := range candidates {
		byType[c.Type] = append(byType[c.Type], i)
	}

	for _, idxs := range byType {
		sort.Slice(idxs, func(a, b int) bool {
			return len(candidates[idxs[a]].Content) < len(candidates[idxs[b]].Content)
		})

		type scored struct {
			baseIdx int
			delta   []byte
		}
		results := make([]scored, len(idxs))

		g := new(errgroup.Group)
		if o.MaxWorkers > 0 {
			g.SetLimit(o.MaxWorkers)
		}

		for rank, i := range idxs {
			rank, i := rank, i
			g.Go(func() error {
				best := scored{baseIdx: -1}
				lo := rank - deltaWindow
				if lo < 0 {
					lo = 0
				}
				for _, baseRank := range idxs[lo:rank] {
					delta := DiffDelta(candidates[baseRank].Content, candidates[i].Content)
					if best.baseIdx == -1 || len(delta) < len(best.delta) {
						best = scored{baseIdx: baseRank, delta: delta}
					}
				}
				results[rank] = best
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for rank, i := range idxs {
			r := results[rank]
			if r.baseIdx == -1 || len(r.delta) >= len(candidates[i].Content) {
				continue
			}
			baseId := candidates[r.baseIdx].Id
			plans[i].Base = &baseId
			plans[i].Delta = r.delta
		}

		resolveDepths(plans, idxs)
	}

	return plans, nil
}

// resolveDepths walks each candidate's chosen Base pointer (within idxs,
// the same type group) to compute its real chain depth, since a base
// itself might be a delta. Any candidate whose chain would exceed
// MaxDeltaChainDepth is reverted to a literal entry.
func resolveDepths(plans []Plan, idxs []int) {
	byId := make(map[plumbing.Id]int, len(idxs))
	for _, i := range idxs {
		byId[plans[i].Id] = i
	}

	var depthOf func(i int, seen map[int]bool) int
	depthOf = func(i int, seen map[int]bool) int {
		if plans[i].Base == nil {
			return 0
		}
		if seen[i] {
			// A cycle can only arise from a bug in base selection
			// (bases are always drawn from lower-ranked, smaller-or-equal
			// candidates); treat defensively as a literal rather than
			// looping forever.
			return MaxDeltaChainDepth + 1
		}
		seen[i] = true
		baseIdx, ok := byId[*plans[i].Base]
		if !ok {
			return 1
		}
		return 1 + depthOf(baseIdx, seen)
	}

	for _, i := range idxs {
		if plans[i].Base == nil {
			continue
		}
		d := depthOf(i, map[int]bool{})
		if d > MaxDeltaChainDepth {
			plans[i].Base = nil
			plans[i].Delta = nil
			plans[i].Depth = 0
			continue
		}
		plans[i].Depth = d
	}
}
