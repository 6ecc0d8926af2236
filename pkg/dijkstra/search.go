// Package dijkstra implements a generic bounded single-source search
// kernel, used by the contraction builder's witness search (the
// bidirectional CH query in pkg/chquery keeps its own heap). Bounding by heap
// size, hop count, and cost ceiling is what keeps a witness search from
// degenerating into a full graph traversal.
package dijkstra

import "math"

// Key is the node-identifier type the kernel is generic over. The
// contraction builder searches over chgraph.NodeIdx; a future caller
// could reuse the kernel over any comparable key.
type Key interface {
	comparable
}

// HeapEntry is a single slot in the search's binary heap. Its memory
// layout tracks the node key, its best known cost, and the hop count
// that produced it, so the heap can also enforce a hop limit without a
// second lookup.
type HeapEntry[K Key] struct {
	Cost uint32
	Hop  uint16
	Key  K
}

// CostRecord is the per-node bookkeeping the kernel keeps in its
// min-cost table: the best cost seen so far, the predecessor used to
// reach it, and whether the node has been finalized (popped as a
// minimum).
type CostRecord[K Key] struct {
	Cost    uint32
	Hop     uint16
	Prev    K
	Visited bool
	set     bool
}

// Search is a bounded Dijkstra instance. Create one with New, seed it
// with one or more sources via AddSource, then drive it with Next until
// it returns ok=false.
type Search[K Key] struct {
	heap      []HeapEntry[K]
	costs     map[K]*CostRecord[K]
	costLimit uint32
	heapLimit int
	hopLimit  uint16
	added     int
}

// New creates a Search bounded by costLimit (no path costing more is
// ever returned), heapLimit (the search aborts accepting new entries
// once this many have been pushed), and hopLimit (paths longer than
// this many edges are rejected). A zero limit means "no limit" for
// heapLimit and hopLimit; costLimit of math.MaxUint32 means unbounded.
func New[K Key](costLimit uint32, heapLimit int, hopLimit uint16) *Search[K] {
	return &Search[K]{
		costs:     make(map[K]*CostRecord[K]),
		costLimit: costLimit,
		heapLimit: heapLimit,
		hopLimit:  hopLimit,
	}
}

// AddSource seeds the search at key with the given starting cost (0 for
// the usual single-source case). The source is its own predecessor,
// which Decode uses as the walk-back terminator.
func (s *Search[K]) AddSource(key K, cost uint32) {
	s.costs[key] = &CostRecord[K]{Cost: cost, Prev: key, set: true}
	s.push(HeapEntry[K]{Cost: cost, Hop: 0, Key: key})
	s.added++
}

// Next pops and returns the next node to settle, along with the hop
// count it was reached at, or ok=false once the heap is exhausted or
// every remaining entry exceeds the cost limit. Stale heap entries —
// ones superseded by a cheaper Update after being pushed — are skipped
// transparently.
func (s *Search[K]) Next() (key K, cost uint32, hop uint16, ok bool) {
	for len(s.heap) > 0 {
		if s.heap[0].Cost >= s.costLimit {
			return key, 0, 0, false
		}
		top := s.popMin()
		rec := s.costs[top.Key]
		if rec.Visited || top.Cost > rec.Cost {
			continue // stale
		}
		rec.Visited = true
		rec.Hop = top.Hop
		return top.Key, top.Cost, top.Hop, true
	}
	return key, 0, 0, false
}

// Update relaxes the edge (from, from's cost, hop) -> (to, edgeCost). It is
// rejected outright (no relaxation attempted) if hop+1 exceeds the hop
// limit or if the heap has already accepted heapLimit entries. The
// candidate cost is also rejected if it meets or exceeds the current
// cost limit.
func (s *Search[K]) Update(from K, fromCost uint32, fromHop uint16, to K, edgeCost uint32) {
	hop := fromHop + 1
	if s.hopLimit > 0 && hop > s.hopLimit {
		return
	}
	if s.heapLimit > 0 && s.added >= s.heapLimit {
		return
	}
	cand := fromCost + edgeCost
	if cand >= s.costLimit {
		return
	}
	rec, exists := s.costs[to]
	if !exists {
		rec = &CostRecord[K]{set: true}
		s.costs[to] = rec
	}
	if exists && rec.Visited {
		return
	}
	if exists && rec.set && cand >= rec.Cost {
		return
	}
	rec.Cost = cand
	rec.Prev = from
	rec.set = true
	s.push(HeapEntry[K]{Cost: cand, Hop: hop, Key: to})
	s.added++
}

// Cost returns the best known cost to key and whether key has been
// reached at all.
func (s *Search[K]) Cost(key K) (uint32, bool) {
	rec, ok := s.costs[key]
	if !ok {
		return 0, false
	}
	return rec.Cost, true
}

// Decode walks predecessor pointers from key back to a self-referencing
// source, returning the path in source-to-key order. Returns nil if key
// was never reached.
func (s *Search[K]) Decode(key K) []K {
	rec, ok := s.costs[key]
	if !ok {
		return nil
	}
	var path []K
	cur := key
	for {
		path = append(path, cur)
		r := s.costs[cur]
		if r.Prev == cur {
			break
		}
		cur = r.Prev
	}
	_ = rec
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// VisitedLen returns how many distinct nodes have been finalized
// (popped via Next) so far.
func (s *Search[K]) VisitedLen() int {
	n := 0
	for _, r := range s.costs {
		if r.Visited {
			n++
		}
	}
	return n
}

// Unbounded is the cost-limit value meaning "no ceiling".
const Unbounded = math.MaxUint32

func (s *Search[K]) push(e HeapEntry[K]) {
	s.heap = append(s.heap, e)
	i := len(s.heap) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if s.heap[parent].Cost <= s.heap[i].Cost {
			break
		}
		s.heap[parent], s.heap[i] = s.heap[i], s.heap[parent]
		i = parent
	}
}

func (s *Search[K]) popMin() HeapEntry[K] {
	top := s.heap[0]
	n := len(s.heap) - 1
	s.heap[0] = s.heap[n]
	s.heap = s.heap[:n]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && s.heap[left].Cost < s.heap[smallest].Cost {
			smallest = left
		}
		if right < n && s.heap[right].Cost < s.heap[smallest].Cost {
			smallest = right
		}
		if smallest == i {
			break
		}
		s.heap[i], s.heap[smallest] = s.heap[smallest], s.heap[i]
		i = smallest
	}
	return top
}
