// Package rank keeps catalog items in a strict 1..N ordering within each
// partition and relocates items inside a partition on request.
package rank

import (
	"sort"
	"strings"
)

// Unset is the attribute value of a classification field an item does not
// carry. Missing and empty fields are both unset; unset items share a
// partition, and its key can never equal the key of any carried value.
const Unset = ""

// Attributes holds an item's classification fields by name.
type Attributes map[string]string

// PartitionKey identifies a partition. Keys compare by value.
type PartitionKey string

// Scheme names the classification fields that make up a partition key,
// e.g. superfast/cp_type/meal_time/veg_non_veg for food packages.
type Scheme struct {
	Name   string
	Fields []string
}

// KeyOf derives the partition key for a set of attributes. Fields are encoded
// in sorted order, so the order they are declared in never changes the key.
func (s Scheme) KeyOf(attrs Attributes) PartitionKey {
	fields := make([]string, len(s.Fields))
	copy(fields, s.Fields)
	sort.Strings(fields)

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(escapeKeyPart(f))
		// Unset fields are written bare, set ones as f=v.
		if v := attrs[f]; v != Unset {
			b.WriteByte('=')
			b.WriteString(escapeKeyPart(v))
		}
	}
	return PartitionKey(b.String())
}

// Select keeps only the scheme's fields from attrs, filling the rest with
// Unset. Used to turn a filter selection into a full attribute set.
func (s Scheme) Select(attrs Attributes) Attributes {
	out := make(Attributes, len(s.Fields))
	for _, f := range s.Fields {
		out[f] = attrs[f]
	}
	return out
}

// escapeKeyPart keeps separator characters inside values from colliding with
// the key's own separators.
func escapeKeyPart(v string) string {
	if !strings.ContainsAny(v, `|=\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `|`, `\|`, `=`, `\=`)
	return r.Replace(v)
}
