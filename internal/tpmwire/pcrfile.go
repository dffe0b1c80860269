package tpmwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/go-tpm/legacy/tpm2"

	"github.com/attestd/attestd/internal/tpmtype"
)

// ParsePCRFile decodes the tpm2-tools ".pcr" wire format: a TPML_PCR_SELECTION
// header (selection count, then per-selection hash alg / sizeofSelect /
// PCR bitmap) immediately followed by the concatenated raw digest bytes for
// every selected (alg, pcr) pair, in selection order then ascending PCR
// index. No generated-code library in the retrieved pack parses this
// tool-specific format, so it is hand-rolled here per spec.md §4.1's
// "multi-byte integers are big-endian" rule.
func ParsePCRFile(raw []byte) (tpmtype.PCRBank, error) {
	r := bytes.NewReader(raw)

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, malformed("pcr", fmt.Errorf("reading selection count: %w", err))
	}
	const maxSelections = 8 // one per supported hash alg, generously bounded
	if count == 0 || count > maxSelections {
		return nil, malformed("pcr", fmt.Errorf("selection count %d out of range", count))
	}

	type selEntry struct {
		alg  tpm2.Algorithm
		pcrs []int
	}
	sels := make([]selEntry, 0, count)

	for i := uint32(0); i < count; i++ {
		var algID uint16
		if err := binary.Read(r, binary.BigEndian, &algID); err != nil {
			return nil, malformed("pcr", fmt.Errorf("reading selection %d hash alg: %w", i, err))
		}
		alg := tpm2.Algorithm(algID)
		if tpmtype.DigestSize(alg) == 0 {
			return nil, malformed("pcr", fmt.Errorf("selection %d: unsupported hash algorithm %v", i, alg))
		}

		sizeOfSelect, err := r.ReadByte()
		if err != nil {
			return nil, malformed("pcr", fmt.Errorf("reading selection %d sizeofSelect: %w", i, err))
		}
		if sizeOfSelect == 0 || int(sizeOfSelect) > (tpmtype.MaxPCRIndex/8+1) {
			return nil, malformed("pcr", fmt.Errorf("selection %d: sizeofSelect %d out of range", i, sizeOfSelect))
		}

		bitmap := make([]byte, sizeOfSelect)
		if _, err := io.ReadFull(r, bitmap); err != nil {
			return nil, malformed("pcr", fmt.Errorf("reading selection %d bitmap: %w", i, err))
		}

		var pcrs []int
		for byteIdx, b := range bitmap {
			for bit := 0; bit < 8; bit++ {
				if b&(1<<uint(bit)) == 0 {
					continue
				}
				pcr := byteIdx*8 + bit
				if pcr > tpmtype.MaxPCRIndex {
					return nil, malformed("pcr", fmt.Errorf("selection %d: PCR index %d out of range", i, pcr))
				}
				pcrs = append(pcrs, pcr)
			}
		}
		sels = append(sels, selEntry{alg: alg, pcrs: pcrs})
	}

	bank := tpmtype.NewPCRBank()
	for _, sel := range sels {
		size := tpmtype.DigestSize(sel.alg)
		for _, pcr := range sel.pcrs {
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, malformed("pcr", fmt.Errorf("reading digest for alg %v pcr %d: %w", sel.alg, pcr, err))
			}
			d, err := tpmtype.NewDigest(sel.alg, buf)
			if err != nil {
				return nil, malformed("pcr", err)
			}
			if err := bank.Set(sel.alg, pcr, d); err != nil {
				return nil, malformed("pcr", err)
			}
		}
	}

	if r.Len() != 0 {
		return nil, malformed("pcr", fmt.Errorf("%d trailing bytes after PCR values", r.Len()))
	}

	return bank, nil
}
