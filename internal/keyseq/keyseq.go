package keyseq

import (
	"fmt"
	"strconv"
	"strings"
)

// Seq is an ordered sequence of line keys. Unlike a set it keeps the
// original order and repeated keys, since it records how a file is
// composed line by line. It serializes to compact notation like
// "5,7-8,12,7", where "a-b" stands for the ascending run a, a+1, ..., b.
type Seq struct {
	keys []int64
}

// New creates a Seq from keys in the given order.
func New(keys ...int64) Seq {
	if len(keys) == 0 {
		return Seq{}
	}
	return Seq{keys: append([]int64(nil), keys...)}
}

// FromString parses compact notation like "5", "5-7", or "5,7-8,12".
func FromString(s string) (Seq, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Seq{}, nil
	}

	var keys []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Seq{}, fmt.Errorf("empty element in %q", s)
		}
		if idx := strings.Index(part, "-"); idx >= 0 {
			start, err := strconv.ParseInt(strings.TrimSpace(part[:idx]), 10, 64)
			if err != nil {
				return Seq{}, fmt.Errorf("invalid run start %q: %w", part[:idx], err)
			}
			end, err := strconv.ParseInt(strings.TrimSpace(part[idx+1:]), 10, 64)
			if err != nil {
				return Seq{}, fmt.Errorf("invalid run end %q: %w", part[idx+1:], err)
			}
			if end < start {
				return Seq{}, fmt.Errorf("invalid run %d-%d", start, end)
			}
			for k := start; k <= end; k++ {
				keys = append(keys, k)
			}
		} else {
			k, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return Seq{}, fmt.Errorf("invalid key %q: %w", part, err)
			}
			keys = append(keys, k)
		}
	}

	return Seq{keys: keys}, nil
}

// String returns the compact notation. Only runs of three or more
// consecutive keys are collapsed; "4,5" stays as written.
func (s Seq) String() string {
	if len(s.keys) == 0 {
		return ""
	}

	var b strings.Builder
	i := 0
	for i < len(s.keys) {
		start := s.keys[i]
		j := i
		for j+1 < len(s.keys) && s.keys[j+1] == s.keys[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		switch j - i {
		case 0:
			b.WriteString(strconv.FormatInt(start, 10))
		case 1:
			fmt.Fprintf(&b, "%d,%d", start, s.keys[j])
		default:
			fmt.Fprintf(&b, "%d-%d", start, s.keys[j])
		}
		i = j + 1
	}
	return b.String()
}

// Keys returns the keys in order.
func (s Seq) Keys() []int64 {
	return s.keys
}

// Len returns the number of keys, counting repeats.
func (s Seq) Len() int {
	return len(s.keys)
}

// IsEmpty returns true if the sequence holds no keys.
func (s Seq) IsEmpty() bool {
	return len(s.keys) == 0
}

// Append adds keys to the end of the sequence.
func (s Seq) Append(keys ...int64) Seq {
	out := make([]int64, 0, len(s.keys)+len(keys))
	out = append(out, s.keys...)
	out = append(out, keys...)
	return Seq{keys: out}
}

// Set returns the distinct keys of the sequence.
func (s Seq) Set() map[int64]struct{} {
	set := make(map[int64]struct{}, len(s.keys))
	for _, k := range s.keys {
		set[k] = struct{}{}
	}
	return set
}
