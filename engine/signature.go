package engine

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// Signature fingerprints the cost profile of a call: array shapes,
// dtype and the scalar parameters that affect work done. Two calls with
// an identical signature are assumed to have statistically similar
// cost, which is what justifies reusing selection decisions. Matching
// is exact: there is no fuzzy bucketing by size class.
type Signature struct {
	Shapes [][]int
	DType  string
	Params []Param
}

// Param is one named scalar parameter, kept in declaration order so
// the fingerprint is deterministic.
type Param struct {
	Name  string
	Value float64
}

// Fingerprint returns a stable hash of the signature, usable as a
// history key across processes.
func (s Signature) Fingerprint() string {
	h := fnv.New64a()
	var buf [8]byte

	for _, shape := range s.Shapes {
		for _, dim := range shape {
			binary.LittleEndian.PutUint64(buf[:], uint64(dim))
			h.Write(buf[:])
		}
		h.Write([]byte{'/'})
	}
	h.Write([]byte(s.DType))
	for _, p := range s.Params {
		h.Write([]byte(p.Name))
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Value))
		h.Write(buf[:])
	}

	return fmt.Sprintf("%016x", h.Sum64())
}

// String renders the signature for logs.
func (s Signature) String() string {
	var sb strings.Builder
	for i, shape := range s.Shapes {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%v", shape)
	}
	fmt.Fprintf(&sb, " %s", s.DType)
	for _, p := range s.Params {
		fmt.Fprintf(&sb, " %s=%g", p.Name, p.Value)
	}
	return sb.String()
}
