// Package artifact reads and writes the on-disk form of a contracted
// graph: an order.csv file recording the contraction rank of every
// node, and a shortcuts.csv file recording every inserted shortcut.
// This mirrors the original Rust implementation's use of the csv
// crate for its network's serialized form — encoding/csv is the direct
// Go analog, so no third-party CSV library is reached for here.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"chway/pkg/ch"
	"chway/pkg/chgraph"
)

// CHArtifact is a loaded (or about-to-be-written) contraction
// hierarchy, as it travels to and from disk.
type CHArtifact struct {
	NumNodes  chgraph.NodeIdx
	Rank      []chgraph.NodeIdx
	Order     []chgraph.NodeIdx
	Shortcuts []ch.Contraction
}

// FromResult converts a freshly built ch.Result into its on-disk form.
func FromResult(res *ch.Result) *CHArtifact {
	return &CHArtifact{
		NumNodes:  res.NumNodes,
		Rank:      res.Rank,
		Order:     res.Order,
		Shortcuts: res.Shortcuts,
	}
}

// orderHeader and shortcutsHeader document the exact column layout
// written to order.csv and shortcuts.csv, matching the external
// interface contract.
var (
	orderHeader     = []string{"node", "rank"}
	shortcutsHeader = []string{"u", "w", "via", "cost_u_via", "cost_via_w"}
)

// Write persists the artifact as order.csv and shortcuts.csv under dir.
// Each file is written to a temporary sibling and atomically renamed
// into place, the same crash-safety pattern the binary artifact writer
// this package is grounded on uses, adapted from a single binary blob
// to a pair of text files.
func Write(dir string, a *CHArtifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create output dir: %w", err)
	}
	if err := writeOrder(filepath.Join(dir, "order.csv"), a); err != nil {
		return err
	}
	if err := writeShortcuts(filepath.Join(dir, "shortcuts.csv"), a); err != nil {
		return err
	}
	return nil
}

func writeOrder(path string, a *CHArtifact) error {
	return atomicWriteCSV(path, orderHeader, int(a.NumNodes), func(w *csv.Writer, i int) error {
		return w.Write([]string{
			strconv.FormatUint(uint64(i), 10),
			strconv.FormatUint(uint64(a.Rank[i]), 10),
		})
	})
}

func writeShortcuts(path string, a *CHArtifact) error {
	return atomicWriteCSV(path, shortcutsHeader, len(a.Shortcuts), func(w *csv.Writer, i int) error {
		sc := a.Shortcuts[i]
		return w.Write([]string{
			strconv.FormatUint(uint64(sc.U), 10),
			strconv.FormatUint(uint64(sc.W), 10),
			strconv.FormatUint(uint64(sc.Via), 10),
			strconv.FormatUint(uint64(sc.CostUVia), 10),
			strconv.FormatUint(uint64(sc.CostViaW), 10),
		})
	})
}

func atomicWriteCSV(path string, header []string, n int, writeRow func(w *csv.Writer, i int) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("artifact: write header to %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := writeRow(w, i); err != nil {
			return fmt.Errorf("artifact: write row %d to %s: %w", i, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("artifact: flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("artifact: rename into place %s: %w", path, err)
	}
	success = true
	return nil
}

// Load reads order.csv and shortcuts.csv from dir and validates their
// internal consistency: the rank column must be a permutation of
// [0, NumNodes), and every shortcut's Via must itself be a valid node.
func Load(dir string) (*CHArtifact, error) {
	rank, err := readOrder(filepath.Join(dir, "order.csv"))
	if err != nil {
		return nil, err
	}
	shortcuts, err := readShortcuts(filepath.Join(dir, "shortcuts.csv"))
	if err != nil {
		return nil, err
	}

	a := &CHArtifact{
		NumNodes:  chgraph.NodeIdx(len(rank)),
		Rank:      rank,
		Shortcuts: shortcuts,
	}
	a.Order = make([]chgraph.NodeIdx, len(rank))
	seen := make([]bool, len(rank))
	for node, r := range rank {
		if int(r) >= len(rank) {
			return nil, fmt.Errorf("artifact: rank %d for node %d exceeds node count %d", r, node, len(rank))
		}
		if seen[r] {
			return nil, fmt.Errorf("artifact: rank %d assigned to more than one node", r)
		}
		seen[r] = true
		a.Order[r] = chgraph.NodeIdx(node)
	}
	for _, sc := range shortcuts {
		if int(sc.Via) >= len(rank) {
			return nil, fmt.Errorf("artifact: shortcut via-node %d exceeds node count %d", sc.Via, len(rank))
		}
	}

	return a, nil
}

func readOrder(path string) ([]chgraph.NodeIdx, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	if len(rows) == 0 || !sameHeader(rows[0], orderHeader) {
		return nil, fmt.Errorf("artifact: %s missing expected header %v", path, orderHeader)
	}
	rows = rows[1:]

	rank := make([]chgraph.NodeIdx, len(rows))
	for _, row := range rows {
		node, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid node column %q: %w", path, row[0], err)
		}
		r, err := strconv.ParseUint(row[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid rank column %q: %w", path, row[1], err)
		}
		if int(node) >= len(rank) {
			return nil, fmt.Errorf("artifact: %s: node %d out of range for %d rows", path, node, len(rank))
		}
		rank[node] = chgraph.NodeIdx(r)
	}
	return rank, nil
}

func readShortcuts(path string) ([]ch.Contraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	if len(rows) == 0 || !sameHeader(rows[0], shortcutsHeader) {
		return nil, fmt.Errorf("artifact: %s missing expected header %v", path, shortcutsHeader)
	}
	rows = rows[1:]

	out := make([]ch.Contraction, 0, len(rows))
	for _, row := range rows {
		u, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid u column %q: %w", path, row[0], err)
		}
		w, err := strconv.ParseUint(row[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid w column %q: %w", path, row[1], err)
		}
		via, err := strconv.ParseUint(row[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid via column %q: %w", path, row[2], err)
		}
		costUVia, err := strconv.ParseUint(row[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid cost_u_via column %q: %w", path, row[3], err)
		}
		costViaW, err := strconv.ParseUint(row[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("artifact: %s: invalid cost_via_w column %q: %w", path, row[4], err)
		}
		out = append(out, ch.Contraction{
			U:        chgraph.NodeIdx(u),
			W:        chgraph.NodeIdx(w),
			Via:      chgraph.NodeIdx(via),
			CostUVia: uint32(costUVia),
			CostViaW: uint32(costViaW),
		})
	}
	return out, nil
}

func sameHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
