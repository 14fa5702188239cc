package lineage

import (
	"fmt"
	"strings"
)

// None is the stored form of a revision without parents.
const None = "none"

// Lineage lists the parents of a revision: none, one, or two (a merge).
type Lineage struct {
	Parents []Hash
}

// From returns the lineage naming the given parents.
func From(parents ...Hash) Lineage {
	if len(parents) == 0 {
		return Lineage{}
	}
	return Lineage{Parents: append([]Hash(nil), parents...)}
}

// IsNone returns true if no parent is recorded.
func (l Lineage) IsNone() bool {
	return len(l.Parents) == 0
}

// IsMerge returns true for a two-parent lineage.
func (l Lineage) IsMerge() bool {
	return len(l.Parents) == 2
}

// Value returns the marker payload, "h" or "h1,h2".
func (l Lineage) Value() string {
	parts := make([]string, len(l.Parents))
	for i, p := range l.Parents {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

// String returns the stored form: "none", "h" or "h1,h2".
func (l Lineage) String() string {
	if l.IsNone() {
		return None
	}
	return l.Value()
}

// ParseLineage parses the stored form produced by String.
func ParseLineage(s string) (Lineage, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == None {
		return Lineage{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return Lineage{}, fmt.Errorf("invalid lineage %q: at most two parents", s)
	}
	var l Lineage
	for _, p := range parts {
		h, err := ParseHash(strings.TrimSpace(p))
		if err != nil {
			return Lineage{}, fmt.Errorf("invalid lineage %q: %w", s, err)
		}
		l.Parents = append(l.Parents, h)
	}
	return l, nil
}
