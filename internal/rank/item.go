package rank

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the rank store and engine.
var (
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateItem = errors.New("duplicate item id")
	ErrOrderMismatch = errors.New("order does not match partition members")
)

// Item is an orderable catalog entry. Rank is 1-based within the item's
// partition. Payload carries display fields the engine never reads.
type Item struct {
	ID         string
	Attributes Attributes
	Rank       int
	Payload    any
}

func (it Item) clone() Item {
	attrs := make(Attributes, len(it.Attributes))
	for k, v := range it.Attributes {
		attrs[k] = v
	}
	it.Attributes = attrs
	return it
}

// ValidationError describes one partition whose ranks are not exactly 1..N.
type ValidationError struct {
	Key    PartitionKey `json:"partition"`
	Ranks  []int        `json:"ranks"`
	Detail string       `json:"detail"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("partition %s: %s (ranks %v)", e.Key, e.Detail, e.Ranks)
}

// ValidationErrors collects one ValidationError per offending partition.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%d partitions invalid: %s", len(e), strings.Join(parts, "; "))
}
