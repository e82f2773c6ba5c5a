package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChunkID is returned when a chunk identifier cannot be parsed.
var ErrInvalidChunkID = errors.New("invalid chunk id")

// ChunkID is a hierarchical chunk key. A top-level chunk has one segment;
// each retry sub-chunk appends one, so "3.1" is the first retry of "3".
type ChunkID []int

// ParseChunkID parses a dot-delimited chunk identifier such as "3" or "3.1".
func ParseChunkID(s string) (ChunkID, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidChunkID)
	}
	parts := strings.Split(s, ".")
	id := make(ChunkID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChunkID, s)
		}
		id = append(id, n)
	}
	return id, nil
}

func (c ChunkID) String() string {
	parts := make([]string, len(c))
	for i, n := range c {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Child returns the n-th sub-chunk of c.
func (c ChunkID) Child(n int) ChunkID {
	out := make(ChunkID, len(c), len(c)+1)
	copy(out, c)
	return append(out, n)
}

// Parent returns the enclosing chunk, or nil for a top-level chunk.
func (c ChunkID) Parent() ChunkID {
	if len(c) <= 1 {
		return nil
	}
	return c[:len(c)-1]
}

// IsAncestorOf reports whether other lies strictly below c in the hierarchy.
func (c ChunkID) IsAncestorOf(other ChunkID) bool {
	if len(c) == 0 || len(c) >= len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both identifiers name the same chunk.
func (c ChunkID) Equal(other ChunkID) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Partition splits items into consecutive slices of at most size elements.
func Partition[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
