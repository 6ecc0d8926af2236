package ch

import "chway/pkg/chgraph"

// pqEntry is one slot of the contraction order priority queue: a
// candidate node and the score it had when it was last pushed. Scores
// drift as neighbors get contracted, so a popped entry is always
// re-scored before being trusted (see contractor.go's pop loop).
type pqEntry struct {
	node  chgraph.NodeIdx
	score int32
}

// priorityQueue is a plain array-backed binary min-heap on score,
// matching the concrete-heap style the rest of this module's search
// kernels use rather than reaching for container/heap.
type priorityQueue struct {
	items []pqEntry
}

func (q *priorityQueue) Len() int { return len(q.items) }

func (q *priorityQueue) Push(node chgraph.NodeIdx, score int32) {
	q.items = append(q.items, pqEntry{node: node, score: score})
	i := len(q.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if q.items[parent].score <= q.items[i].score {
			break
		}
		q.items[parent], q.items[i] = q.items[i], q.items[parent]
		i = parent
	}
}

func (q *priorityQueue) Pop() (pqEntry, bool) {
	if len(q.items) == 0 {
		return pqEntry{}, false
	}
	top := q.items[0]
	n := len(q.items) - 1
	q.items[0] = q.items[n]
	q.items = q.items[:n]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && q.items[left].score < q.items[smallest].score {
			smallest = left
		}
		if right < n && q.items[right].score < q.items[smallest].score {
			smallest = right
		}
		if smallest == i {
			break
		}
		q.items[i], q.items[smallest] = q.items[smallest], q.items[i]
		i = smallest
	}
	return top, true
}

func (q *priorityQueue) PeekScore() (int32, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].score, true
}
