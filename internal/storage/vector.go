package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector converts a float64 slice to its binary representation.
// Uses little-endian byte order for consistency across backends.
func EncodeVector(vec []float64) []byte {
	if len(vec) == 0 {
		return []byte{}
	}

	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeVector converts a binary representation back to a float64 slice.
// Returns nil for an empty buffer (absent vector).
func DecodeVector(buf []byte) ([]float64, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("vector buffer length %d is not a multiple of 8", len(buf))
	}

	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec, nil
}
