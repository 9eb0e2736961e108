package jit

import "github.com/google/btree"

// BlockIndex is the sorted set of basic-block start PCs shared by the
// Register Classifier (§4.3, "binary search over sorted starts") and the
// Lowerer's block scaffolding (§4.6). It is backed by a generic B-tree
// rather than a plain sorted slice + sort.Search so that Insert can add a
// start after the initial jump-target scan in O(log n). Grounded directly on
// `storage/index.go`'s `btree.NewG[indexPair](8, less)` usage in the
// teacher.
type BlockIndex struct {
	tree   *btree.BTreeG[int]
	sorted []int // cache, invalidated by Insert
}

// NewBlockIndex builds an index from a set of block-start PCs.
func NewBlockIndex(starts map[int]struct{}) *BlockIndex {
	bi := &BlockIndex{tree: btree.NewG[int](8, func(a, b int) bool { return a < b })}
	for pc := range starts {
		bi.tree.ReplaceOrInsert(pc)
	}
	return bi
}

// Insert adds one more block-start PC after the initial scan. The Lowerer's
// self-TCO loop header is a label in the prologue and does not call it.
func (bi *BlockIndex) Insert(pc int) {
	bi.tree.ReplaceOrInsert(pc)
	bi.sorted = nil
}

// Sorted returns every block-start PC in ascending order.
func (bi *BlockIndex) Sorted() []int {
	if bi.sorted == nil {
		bi.sorted = make([]int, 0, bi.tree.Len())
		bi.tree.Ascend(func(pc int) bool {
			bi.sorted = append(bi.sorted, pc)
			return true
		})
	}
	return bi.sorted
}

// BlockOf returns the id (its rank among sorted starts) of the block
// containing pc: the greatest block-start PC that is <= pc, found by binary
// search over the cached sorted starts (spec.md §4.3 "binary search over
// sorted starts").
func (bi *BlockIndex) BlockOf(pc int) int {
	starts := bi.Sorted()
	lo, hi := 0, len(starts)-1
	id := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if starts[mid] <= pc {
			id = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return id
}

// Len returns the number of distinct block starts.
func (bi *BlockIndex) Len() int { return bi.tree.Len() }
