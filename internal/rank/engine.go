package rank

import "fmt"

// Engine applies reorder requests to a Store. It performs no I/O; persisting
// the result is the caller's job.
type Engine struct {
	store *Store
}

// NewEngine creates an Engine over store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Move relocates the item to desired within its partition and renumbers the
// whole partition 1..N. Out-of-range ranks are clamped to [1, N]. The only
// error is ErrItemNotFound, in which case nothing changes.
func (e *Engine) Move(id string, desired int) error {
	key, ok := e.store.KeyOf(id)
	if !ok {
		return fmt.Errorf("move %q: %w", id, ErrItemNotFound)
	}

	members := e.store.sortedMembers(key)
	n := len(members)
	if n == 0 {
		return nil
	}
	desired = clamp(desired, 1, n)

	ids := make([]string, 0, n)
	for _, m := range members {
		if e.store.items[m].ID != id {
			ids = append(ids, e.store.items[m].ID)
		}
	}
	ids = append(ids[:desired-1], append([]string{id}, ids[desired-1:]...)...)

	return e.assign(ids)
}

// Reorder applies an explicit order to one partition. ids must name every
// member of the partition exactly once, otherwise ErrOrderMismatch is
// returned and nothing changes.
func (e *Engine) Reorder(key PartitionKey, ids []string) error {
	members := e.store.groups[key]
	if len(ids) != len(members) {
		return fmt.Errorf("reorder %s: got %d ids for %d items: %w", key, len(ids), len(members), ErrOrderMismatch)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		k, ok := e.store.KeyOf(id)
		if !ok {
			return fmt.Errorf("reorder %s: %q: %w", key, id, ErrItemNotFound)
		}
		if k != key || seen[id] {
			return fmt.Errorf("reorder %s: %q: %w", key, id, ErrOrderMismatch)
		}
		seen[id] = true
	}

	return e.assign(ids)
}

func (e *Engine) assign(ids []string) error {
	for i, id := range ids {
		if err := e.store.setRank(id, i+1); err != nil {
			return err
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
