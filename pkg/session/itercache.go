package session

import (
	"slices"

	"lsmdb/pkg/bytes"
)

// iteratorState records, for one key known to the iterator cache, whether
// its immediate successor/predecessor in the logical (parent+cache) key
// space is also already known, and whether the key itself is a tombstone.
// It never holds a value — only enough to walk between cached keys without
// re-deriving bounds on every step.
type iteratorState struct {
	nextInCache     bool
	previousInCache bool
	deleted         bool
}

// icNode is one entry of the iterator cache: a doubly linked, key-ordered
// node. The linked pointers give O(1) Next/Prev that survive insertions
// elsewhere in the cache (a SessionIterator holds a *icNode, not an index),
// mirroring the iterator-stability guarantee of an ordered tree map.
type icNode struct {
	key   bytes.Bytes
	state iteratorState
	prevN *icNode
	nextN *icNode
}

func (n *icNode) next() *icNode {
	if n == nil {
		return nil
	}
	return n.nextN
}

func (n *icNode) prev() *icNode {
	if n == nil {
		return nil
	}
	return n.prevN
}

// iteratorCache is the sorted index of icNodes. index is kept sorted by key
// and searched with binary search; inserting shifts pointers within index,
// never the nodes themselves, so outstanding *icNode references stay valid.
type iteratorCache struct {
	index []*icNode
}

func newIteratorCache() *iteratorCache {
	return &iteratorCache{}
}

func (ic *iteratorCache) clear() {
	ic.index = nil
}

func (ic *iteratorCache) search(key bytes.Bytes) (int, bool) {
	return slices.BinarySearchFunc(ic.index, key, func(n *icNode, k bytes.Bytes) int {
		return n.key.Compare(k)
	})
}

// find returns the node for key, or nil if key has never been primed.
func (ic *iteratorCache) find(key bytes.Bytes) *icNode {
	i, ok := ic.search(key)
	if !ok {
		return nil
	}
	return ic.index[i]
}

// getOrInsert returns the existing node for key, inserting a fresh
// zero-state node (linked into the surrounding list) if absent.
func (ic *iteratorCache) getOrInsert(key bytes.Bytes) *icNode {
	i, ok := ic.search(key)
	if ok {
		return ic.index[i]
	}

	node := &icNode{key: key}
	if i > 0 {
		prev := ic.index[i-1]
		node.prevN = prev
		prev.nextN = node
	}
	if i < len(ic.index) {
		next := ic.index[i]
		node.nextN = next
		next.prevN = node
	}
	ic.index = slices.Insert(ic.index, i, node)
	return node
}

func (ic *iteratorCache) first() *icNode {
	if len(ic.index) == 0 {
		return nil
	}
	return ic.index[0]
}

func (ic *iteratorCache) last() *icNode {
	if len(ic.index) == 0 {
		return nil
	}
	return ic.index[len(ic.index)-1]
}

func (ic *iteratorCache) isBegin(n *icNode) bool {
	return n != nil && len(ic.index) > 0 && ic.index[0] == n
}

// icParams controls updateIteratorCache's behavior, mirroring the source's
// update_iterator_cache_ parameter pack.
type icParams struct {
	// primeOnly inserts key (if absent) and returns immediately, without
	// recomputing bounds. Used by bounds itself to avoid reentering bounds.
	primeOnly bool
	// recalculate forces bounds recomputation even if both hint flags are
	// already set.
	recalculate bool
	// overwrite, when true, sets the node's deleted flag to markDeleted.
	overwrite   bool
	markDeleted bool
}

// updateIteratorCache ensures key has a node in the iterator cache and,
// unless primeOnly, that its next/previous hints point at real neighbors
// by consulting bounds. See spec for the exact sequencing this preserves.
func (s *Session) updateIteratorCache(key bytes.Bytes, params icParams) {
	node := s.iterCache.getOrInsert(key)
	if params.primeOnly {
		return
	}

	if params.overwrite {
		node.state.deleted = params.markDeleted
	}

	if !params.recalculate && node.state.nextInCache && node.state.previousInCache {
		return
	}

	lower, upper := s.bounds(key)

	if lower.IsValid() {
		lowerNode := s.iterCache.getOrInsert(lower)
		lowerNode.state.nextInCache = true
		node.state.previousInCache = true
	}
	if upper.IsValid() {
		upperNode := s.iterCache.getOrInsert(upper)
		upperNode.state.previousInCache = true
		node.state.nextInCache = true
	}
}
