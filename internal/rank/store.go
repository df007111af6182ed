package rank

import (
	"fmt"
	"sort"
)

// Store is the in-memory working set of one editing session. It is not safe
// for concurrent use; callers serialize access.
type Store struct {
	scheme Scheme
	items  []Item
	keys   []PartitionKey
	index  map[string]int
	groups map[PartitionKey][]int // member indices in load order
}

// NewStore creates an empty store partitioned by scheme.
func NewStore(scheme Scheme) *Store {
	return &Store{
		scheme: scheme,
		index:  make(map[string]int),
		groups: make(map[PartitionKey][]int),
	}
}

// Scheme returns the partitioning scheme of the store.
func (s *Store) Scheme() Scheme { return s.scheme }

// Load replaces the working set with items. Partitions whose ranks are not a
// permutation of 1..N are normalized: sorted by existing rank, ties kept in
// input order, then renumbered 1..N. The repaired partitions are reported as
// ValidationErrors, but the set is loaded either way.
//
// Duplicate ids are rejected and leave the previous working set in place.
func (s *Store) Load(items []Item) error {
	working := make([]Item, len(items))
	keys := make([]PartitionKey, len(items))
	index := make(map[string]int, len(items))
	groups := make(map[PartitionKey][]int)

	for i, it := range items {
		if _, dup := index[it.ID]; dup {
			return fmt.Errorf("load %q: %w", it.ID, ErrDuplicateItem)
		}
		index[it.ID] = i
		working[i] = it.clone()
		keys[i] = s.scheme.KeyOf(it.Attributes)
		groups[keys[i]] = append(groups[keys[i]], i)
	}

	var repaired ValidationErrors
	for key, members := range groups {
		ranks := make([]int, len(members))
		for j, m := range members {
			ranks[j] = working[m].Rank
		}
		if detail := checkRanks(ranks); detail != "" {
			repaired = append(repaired, ValidationError{Key: key, Ranks: ranks, Detail: detail})
			normalize(working, members)
		}
	}

	s.items = working
	s.keys = keys
	s.index = index
	s.groups = groups

	if len(repaired) == 0 {
		return nil
	}
	sort.Slice(repaired, func(i, j int) bool { return repaired[i].Key < repaired[j].Key })
	return repaired
}

// Len returns the number of items in the working set.
func (s *Store) Len() int { return len(s.items) }

// Lookup returns a copy of the item with the given id.
func (s *Store) Lookup(id string) (Item, bool) {
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i].clone(), true
}

// KeyOf returns the partition key of the item with the given id.
func (s *Store) KeyOf(id string) (PartitionKey, bool) {
	i, ok := s.index[id]
	if !ok {
		return "", false
	}
	return s.keys[i], true
}

// Partitions returns every partition key in the working set, sorted.
func (s *Store) Partitions() []PartitionKey {
	keys := make([]PartitionKey, 0, len(s.groups))
	for k := range s.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// PartitionOf returns copies of the partition's items sorted by rank.
// An unknown key yields an empty slice.
func (s *Store) PartitionOf(key PartitionKey) []Item {
	members := s.sortedMembers(key)
	out := make([]Item, len(members))
	for i, m := range members {
		out[i] = s.items[m].clone()
	}
	return out
}

// AllItems returns copies of the full working set in load order.
func (s *Store) AllItems() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

// setRank overwrites one item's rank without touching its siblings.
func (s *Store) setRank(id string, rank int) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("set rank %q: %w", id, ErrItemNotFound)
	}
	s.items[i].Rank = rank
	return nil
}

// sortedMembers returns the partition's member indices ordered by rank,
// ties kept in load order.
func (s *Store) sortedMembers(key PartitionKey) []int {
	members := append([]int(nil), s.groups[key]...)
	sort.SliceStable(members, func(a, b int) bool {
		return s.items[members[a]].Rank < s.items[members[b]].Rank
	})
	return members
}

func normalize(items []Item, members []int) {
	ordered := append([]int(nil), members...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return items[ordered[a]].Rank < items[ordered[b]].Rank
	})
	for r, m := range ordered {
		items[m].Rank = r + 1
	}
}
