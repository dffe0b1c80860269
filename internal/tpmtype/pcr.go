package tpmtype

import (
	"fmt"
	"sort"

	"github.com/google/go-tpm/legacy/tpm2"
)

// MaxPCRIndex is the highest valid PCR index on a TPM 2.0 PC-Client
// platform (PCRs 0-23).
const MaxPCRIndex = 23

// PCRSelection maps a hash algorithm to the set of PCR indices selected
// under it.
type PCRSelection map[tpm2.Algorithm]map[int]bool

// NewPCRSelection builds a PCRSelection from a slice of tpm2.PCRSelection,
// the shape returned by decoding a TPMS_ATTEST's selection field.
func NewPCRSelection(sels []tpm2.PCRSelection) (PCRSelection, error) {
	out := make(PCRSelection)
	for _, sel := range sels {
		indices, ok := out[sel.Hash]
		if !ok {
			indices = make(map[int]bool)
			out[sel.Hash] = indices
		}
		for _, pcr := range sel.PCRs {
			if pcr < 0 || pcr > MaxPCRIndex {
				return nil, fmt.Errorf("tpmtype: PCR index %d out of range [0,%d]", pcr, MaxPCRIndex)
			}
			indices[pcr] = true
		}
	}
	return out, nil
}

// Algs returns the selection's algorithms in ascending numeric order, the
// canonical ordering spec.md §4.3 requires when recomputing a quote digest.
func (s PCRSelection) Algs() []tpm2.Algorithm {
	algs := make([]tpm2.Algorithm, 0, len(s))
	for alg := range s {
		algs = append(algs, alg)
	}
	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })
	return algs
}

// Indices returns the selected PCR indices for alg in ascending order.
func (s PCRSelection) Indices(alg tpm2.Algorithm) []int {
	set := s[alg]
	out := make([]int, 0, len(set))
	for pcr := range set {
		out = append(out, pcr)
	}
	sort.Ints(out)
	return out
}

// Equal reports whether s and other select exactly the same (alg, pcr)
// pairs.
func (s PCRSelection) Equal(other PCRSelection) bool {
	if len(s) != len(other) {
		return false
	}
	for alg, indices := range s {
		oIndices, ok := other[alg]
		if !ok || len(indices) != len(oIndices) {
			return false
		}
		for pcr := range indices {
			if !oIndices[pcr] {
				return false
			}
		}
	}
	return true
}

// PCRBank holds concrete digest values for a set of (alg, pcr) pairs.
type PCRBank map[tpm2.Algorithm]map[int]Digest

// NewPCRBank returns an empty bank. Digest lengths are validated by
// NewDigest; Set checks the digest's algorithm and the PCR index.
func NewPCRBank() PCRBank {
	return make(PCRBank)
}

// Set stores d at (alg, pcr), validating d.Alg == alg.
func (b PCRBank) Set(alg tpm2.Algorithm, pcr int, d Digest) error {
	if d.Alg != alg {
		return fmt.Errorf("tpmtype: digest algorithm %v does not match bank algorithm %v", d.Alg, alg)
	}
	if pcr < 0 || pcr > MaxPCRIndex {
		return fmt.Errorf("tpmtype: PCR index %d out of range [0,%d]", pcr, MaxPCRIndex)
	}
	m, ok := b[alg]
	if !ok {
		m = make(map[int]Digest)
		b[alg] = m
	}
	m[pcr] = d
	return nil
}

// Get returns the digest for (alg, pcr) and whether it was present.
func (b PCRBank) Get(alg tpm2.Algorithm, pcr int) (Digest, bool) {
	m, ok := b[alg]
	if !ok {
		return Digest{}, false
	}
	d, ok := m[pcr]
	return d, ok
}

// Selection returns the PCRSelection implied by the bank's contents.
func (b PCRBank) Selection() PCRSelection {
	sel := make(PCRSelection, len(b))
	for alg, indices := range b {
		set := make(map[int]bool, len(indices))
		for pcr := range indices {
			set[pcr] = true
		}
		sel[alg] = set
	}
	return sel
}

// ConcatSelected returns the selected PCR values concatenated in canonical
// order (ascending by algorithm id then by index), the byte string
// spec.md §4.3 step 4 hashes to recompute a quote's pcrDigest.
func (b PCRBank) ConcatSelected(sel PCRSelection) ([]byte, error) {
	var out []byte
	for _, alg := range sel.Algs() {
		for _, pcr := range sel.Indices(alg) {
			d, ok := b.Get(alg, pcr)
			if !ok {
				return nil, fmt.Errorf("tpmtype: no PCR value supplied for alg %v pcr %d", alg, pcr)
			}
			out = append(out, d.Value...)
		}
	}
	return out, nil
}
