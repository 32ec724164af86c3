package db

import (
	"encoding/binary"
	"math"
)

// EncodeVector serializes a float32 vector to the little-endian binary
// form RediSearch expects for VECTOR hash fields and query BLOB params.
func EncodeVector(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
