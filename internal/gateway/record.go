package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/rank"
	"github.com/shopspring/decimal"
)

// Display holds the fields the console shows next to a ranked record.
// RawID keeps the id exactly as the API sent it (number or string) so the
// persist payload echoes the same JSON type back.
type Display struct {
	RawID json.RawMessage `json:"-"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func decodeRecord(scheme config.Scheme, raw json.RawMessage) (rank.Item, error) {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rank.Item{}, fmt.Errorf("decode record: %w", err)
	}

	rawID, ok := rec[scheme.IDField]
	if !ok {
		return rank.Item{}, fmt.Errorf("missing %q", scheme.IDField)
	}
	id, err := scalarString(rawID)
	if err != nil || id == "" {
		return rank.Item{}, fmt.Errorf("invalid %q: %s", scheme.IDField, rawID)
	}

	position := 0
	if rawPos, ok := rec[scheme.PositionField]; ok {
		s, err := scalarString(rawPos)
		if err != nil {
			return rank.Item{}, fmt.Errorf("item %s: invalid %q: %s", id, scheme.PositionField, rawPos)
		}
		if s != "" {
			position, err = ParsePosition(s)
			if err != nil {
				return rank.Item{}, fmt.Errorf("item %s: invalid %q: %w", id, scheme.PositionField, err)
			}
		}
	}

	attrs := make(rank.Attributes, len(scheme.Fields))
	for _, f := range scheme.Fields {
		v, err := scalarString(rec[f])
		if err != nil {
			return rank.Item{}, fmt.Errorf("item %s: field %q: %w", id, f, err)
		}
		attrs[f] = v
	}

	display := Display{RawID: append(json.RawMessage(nil), rawID...)}
	if n, err := scalarString(rec["name"]); err == nil {
		display.Name = n
	}
	price, _ := scalarString(rec["price"])
	display.Price = ParsePrice(id, price)

	return rank.Item{
		ID:         id,
		Attributes: attrs,
		Rank:       position,
		Payload:    display,
	}, nil
}

func encodeRecords(scheme config.Scheme, items []rank.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		rec := make(map[string]any, len(scheme.Fields)+2)
		rec[scheme.IDField] = rawIDOf(it)
		rec[scheme.PositionField] = it.Rank
		for _, f := range scheme.Fields {
			if v := it.Attributes[f]; v != rank.Unset {
				rec[f] = v
			}
		}
		out[i] = rec
	}
	return out
}

func rawIDOf(it rank.Item) any {
	if d, ok := it.Payload.(Display); ok && len(d.RawID) > 0 {
		return d.RawID
	}
	return it.ID
}

// scalarString renders a JSON scalar the way the PHP API compares values:
// strings as-is, numbers by their literal, booleans as "1"/"0", null or
// absent as "".
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case 't':
		return "1", nil
	case 'f':
		return "0", nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", raw)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// ParsePosition reads a stored position. Float columns come back as "3.0"
// or "3.00"; those are accepted when they hold a whole number.
func ParsePosition(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("position %s is not a whole number", s)
	}
	return int(d.IntPart()), nil
}

// ParsePrice reads a display price. Price is shown but never ranked on, so
// an unreadable value becomes zero instead of failing the record.
func ParsePrice(id, s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		log.Printf("WARNING: item %s: unreadable price %q, showing 0", id, s)
		return decimal.Zero
	}
	return price
}
