package search

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// vectorMagic prefixes every encoded vector so foreign blobs are rejected.
const vectorMagic = "RV32"

const headerSize = len(vectorMagic) + 4

var (
	// ErrCorruptVector matches every DecodeError via errors.Is.
	ErrCorruptVector = errors.New("corrupt vector blob")
	// ErrDimensionMismatch is returned when two vectors of different length are compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// DecodeError describes why a stored blob is not a valid vector.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode vector: " + e.Reason
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrCorruptVector
}

// EncodeVector serializes v as magic, little-endian uint32 dimension, then
// little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, headerSize+len(v)*4)
	copy(buf, vectorMagic)
	binary.LittleEndian.PutUint32(buf[len(vectorMagic):], uint32(len(v)))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector parses a blob produced by EncodeVector. Anything else,
// including non-finite values, is rejected with a *DecodeError.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) < headerSize {
		return nil, &DecodeError{Reason: fmt.Sprintf("blob too short (%d bytes)", len(b))}
	}
	if string(b[:len(vectorMagic)]) != vectorMagic {
		return nil, &DecodeError{Reason: "unknown format"}
	}
	dim := int(binary.LittleEndian.Uint32(b[len(vectorMagic):headerSize]))
	if dim == 0 {
		return nil, &DecodeError{Reason: "zero dimension"}
	}
	payload := b[headerSize:]
	if len(payload) != dim*4 {
		return nil, &DecodeError{Reason: fmt.Sprintf("expected %d values, payload holds %d bytes", dim, len(payload))}
	}

	v := make([]float32, dim)
	for i := range v {
		f := math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, &DecodeError{Reason: fmt.Sprintf("non-finite value at index %d", i)}
		}
		v[i] = f
	}
	return v, nil
}

// Cosine computes the cosine similarity between two vectors of equal length.
// A zero-norm vector has similarity 0 with anything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dotProduct += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dotProduct / math.Sqrt(normA*normB), nil
}
