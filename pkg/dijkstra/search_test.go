package dijkstra

import "testing"

func TestSearchShortestPath(t *testing.T) {
	// 0 --1--> 1 --1--> 2
	// 0 --5--> 2
	adj := map[int][]struct {
		to   int
		cost uint32
	}{
		0: {{1, 1}, {2, 5}},
		1: {{2, 1}},
	}

	s := New[int](Unbounded, 0, 0)
	s.AddSource(0, 0)
	for {
		cur, cost, hop, ok := s.Next()
		if !ok {
			break
		}
		for _, e := range adj[cur] {
			s.Update(cur, cost, hop, e.to, e.cost)
		}
	}

	if got, ok := s.Cost(2); !ok || got != 2 {
		t.Errorf("Cost(2) = %d, %v, want 2, true", got, ok)
	}
	path := s.Decode(2)
	want := []int{0, 1, 2}
	if len(path) != len(want) {
		t.Fatalf("Decode(2) = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("Decode(2)[%d] = %d, want %d", i, path[i], want[i])
		}
	}
}

func TestSearchHopLimit(t *testing.T) {
	adj := map[int][]struct {
		to   int
		cost uint32
	}{
		0: {{1, 1}},
		1: {{2, 1}},
		2: {{3, 1}},
	}

	s := New[int](Unbounded, 0, 2)
	s.AddSource(0, 0)
	for {
		cur, cost, hop, ok := s.Next()
		if !ok {
			break
		}
		for _, e := range adj[cur] {
			s.Update(cur, cost, hop, e.to, e.cost)
		}
	}

	if _, ok := s.Cost(2); !ok {
		t.Errorf("expected node 2 reachable within hop limit 2")
	}
	if _, ok := s.Cost(3); ok {
		t.Errorf("expected node 3 unreachable: requires 3 hops, limit is 2")
	}
}

func TestSearchCostLimit(t *testing.T) {
	adj := map[int][]struct {
		to   int
		cost uint32
	}{
		0: {{1, 10}, {2, 3}},
	}

	s := New[int](5, 0, 0)
	s.AddSource(0, 0)
	for {
		cur, cost, hop, ok := s.Next()
		if !ok {
			break
		}
		for _, e := range adj[cur] {
			s.Update(cur, cost, hop, e.to, e.cost)
		}
	}

	if _, ok := s.Cost(1); ok {
		t.Errorf("expected node 1 rejected: cost 10 exceeds limit 5")
	}
	if got, ok := s.Cost(2); !ok || got != 3 {
		t.Errorf("Cost(2) = %d, %v, want 3, true", got, ok)
	}
}

func TestSearchStaleEntrySkipped(t *testing.T) {
	s := New[int](Unbounded, 0, 0)
	s.AddSource(0, 0)
	s.Update(0, 0, 0, 1, 10)
	s.Update(0, 0, 0, 1, 3) // cheaper update should win

	_, cost, _, ok := s.Next()
	if !ok {
		t.Fatalf("expected source to be settled first")
	}
	if cost != 0 {
		t.Fatalf("expected source first, got cost %d", cost)
	}
	_, cost, _, ok = s.Next()
	if !ok || cost != 3 {
		t.Errorf("Next() after relax = %d, %v, want 3, true", cost, ok)
	}
	if _, _, _, ok := s.Next(); ok {
		t.Errorf("expected the stale cost-10 entry to be skipped, not settled again")
	}
}
