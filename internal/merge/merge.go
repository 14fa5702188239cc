// Package merge reconciles a common ancestor with two derived versions.
//
// Three rules are applied bottom-up: Atom for single values, Dict for
// attribute maps and Set for the unordered items of a layer. None of them
// reports conflicts. When both sides change a value differently, side a
// wins.
package merge

// Atom merges a single value. If a did not change it, b's value is taken;
// otherwise a's value is taken, including when both changed it.
func Atom[T comparable](root, a, b T) T {
	if a == root {
		return b
	}
	return a
}

type optional struct {
	value string
	ok    bool
}

func lookup(m map[string]string, k string) optional {
	v, ok := m[k]
	return optional{value: v, ok: ok}
}

// Dict merges attribute maps key by key. A key whose merged value is
// absent is left out, which is how deletions come through.
func Dict(root, a, b map[string]string) map[string]string {
	out := make(map[string]string, len(root))
	for _, m := range []map[string]string{root, a, b} {
		for k := range m {
			if _, done := out[k]; done {
				continue
			}
			v := Atom(lookup(root, k), lookup(a, k), lookup(b, k))
			if v.ok {
				out[k] = v.value
			}
		}
	}
	return out
}

// Set merges collections as sets. An element of root survives unless both
// a and b dropped it; an element added on either side is kept. The result
// holds no duplicates. Its order is: surviving root elements in root
// order, then additions from a, then additions only b made.
func Set[T comparable](root, a, b []T) []T {
	inRoot := toSet(root)
	inA := toSet(a)
	inB := toSet(b)

	seen := make(map[T]struct{}, len(root)+len(a)+len(b))
	out := make([]T, 0, len(root)+len(a)+len(b))
	add := func(x T) {
		if _, dup := seen[x]; dup {
			return
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}

	for _, x := range root {
		_, keptA := inA[x]
		_, keptB := inB[x]
		if keptA || keptB {
			add(x)
		}
	}
	for _, side := range [][]T{a, b} {
		for _, x := range side {
			if _, old := inRoot[x]; !old {
				add(x)
			}
		}
	}
	return out
}

func toSet[T comparable](xs []T) map[T]struct{} {
	set := make(map[T]struct{}, len(xs))
	for _, x := range xs {
		set[x] = struct{}{}
	}
	return set
}
