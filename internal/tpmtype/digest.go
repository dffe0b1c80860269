// Package tpmtype holds the core TPM data model shared by the decoder, the
// quote verifier, and the event-log replay: algorithm-tagged digests, PCR
// selections and banks, and the parsed AK/EK public areas.
package tpmtype

import (
	"crypto/subtle"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"
)

// Digest is a fixed-width hash value tagged with the algorithm that produced
// it. Its length must always equal Alg's digest size.
type Digest struct {
	Alg   tpm2.Algorithm
	Value []byte
}

// digestSizes mirrors the TPM 2.0 hash algorithm registry for the
// algorithms this server supports.
var digestSizes = map[tpm2.Algorithm]int{
	tpm2.AlgSHA1:   20,
	tpm2.AlgSHA256: 32,
	tpm2.AlgSHA384: 48,
	tpm2.AlgSHA512: 64,
}

// NewDigest validates value's length against alg's expected digest size.
func NewDigest(alg tpm2.Algorithm, value []byte) (Digest, error) {
	size, ok := digestSizes[alg]
	if !ok {
		return Digest{}, fmt.Errorf("tpmtype: unsupported digest algorithm %v", alg)
	}
	if len(value) != size {
		return Digest{}, fmt.Errorf("tpmtype: digest for %v must be %d bytes, got %d", alg, size, len(value))
	}
	return Digest{Alg: alg, Value: value}, nil
}

// DigestSize returns the byte length of alg's digests, or 0 if unsupported.
func DigestSize(alg tpm2.Algorithm) int {
	return digestSizes[alg]
}

// ZeroDigest returns the all-zero initial accumulator for alg.
func ZeroDigest(alg tpm2.Algorithm) Digest {
	return Digest{Alg: alg, Value: make([]byte, digestSizes[alg])}
}

// Equal reports whether d and other hold the same algorithm and the same
// digest bytes, compared in constant time.
func (d Digest) Equal(other Digest) bool {
	if d.Alg != other.Alg || len(d.Value) != len(other.Value) {
		return false
	}
	return subtle.ConstantTimeCompare(d.Value, other.Value) == 1
}

func (d Digest) String() string {
	return fmt.Sprintf("%v:%x", d.Alg, d.Value)
}
