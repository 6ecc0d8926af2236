package artifact

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chway/pkg/ch"
	"chway/pkg/chgraph"
)

func sampleArtifact() *CHArtifact {
	return &CHArtifact{
		NumNodes: 4,
		Rank:     []chgraph.NodeIdx{2, 0, 3, 1},
		Order:    []chgraph.NodeIdx{1, 3, 0, 2},
		Shortcuts: []ch.Contraction{
			{U: 1, W: 2, Via: 0, CostUVia: 100, CostViaW: 200},
			{U: 0, W: 3, Via: 1, CostUVia: 50, CostViaW: 75},
		},
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleArtifact()

	if err := Write(dir, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff(want.NumNodes, got.NumNodes); diff != "" {
		t.Errorf("NumNodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Rank, got.Rank); diff != "" {
		t.Errorf("Rank mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Order, got.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Shortcuts, got.Shortcuts, cmp.Comparer(func(a, b ch.Contraction) bool {
		return a.U == b.U && a.W == b.W && a.Via == b.Via && a.CostUVia == b.CostUVia && a.CostViaW == b.CostViaW
	})); diff != "" {
		t.Errorf("Shortcuts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsDuplicateRank(t *testing.T) {
	dir := t.TempDir()
	a := &CHArtifact{
		NumNodes: 2,
		Rank:     []chgraph.NodeIdx{0, 0},
	}
	if err := Write(dir, a); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Errorf("expected Load to reject a duplicate rank assignment")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := Load(dir); err == nil {
		t.Errorf("expected Load to fail for a missing directory")
	}
}
