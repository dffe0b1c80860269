package eventlog

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"

	"github.com/attestd/attestd/internal/tpmtype"
)

// DefaultIMAPCR is the PCR the Linux IMA subsystem extends by convention.
const DefaultIMAPCR = 10

// imaFields is the minimum column count of an IMA ascii_pcrs template line:
// pcr, template-hash, template-name, file-hash, file-path.
const imaFields = 5

// ReplayIMA implements spec.md §4.4's IMA log handling: each line of the
// text log carries a template digest that is fold-extended into a fixed PCR
// (DefaultIMAPCR, unless the line's own PCR column says otherwise), fully
// independent of the TCG binary log replay. Parsing follows the
// whitespace-column IMA ascii_pcrs runtime format; grounded on the defensive,
// line-oriented scanning shape of other_examples' eventlog_filter.go (skip
// malformed lines defensively rather than aborting the whole log) adapted
// here to fail closed, since an unparsable line in an attestation input
// cannot be silently ignored.
func ReplayIMA(raw []byte, quoted tpmtype.PCRBank) error {
	accum := map[int][]byte{}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		fields := bytes.Fields(line)
		if len(fields) < imaFields {
			return fmt.Errorf("eventlog: BAD_EVENTLOG: ima line %d: expected at least %d fields, got %d", lineNo, imaFields, len(fields))
		}

		pcr := DefaultIMAPCR
		if n, err := parsePCRColumn(fields[0]); err == nil {
			pcr = n
		}

		digest, err := decodeTemplateHash(fields[1])
		if err != nil {
			return fmt.Errorf("eventlog: BAD_EVENTLOG: ima line %d: %w", lineNo, err)
		}

		prev := accum[pcr]
		if prev == nil {
			prev = tpmtype.ZeroDigest(tpm2.AlgSHA1).Value
		}
		h := extendSHA1(prev, digest)
		accum[pcr] = h
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("eventlog: BAD_EVENTLOG: scanning ima log: %w", err)
	}

	for pcr, replayed := range accum {
		quotedDigest, ok := quoted.Get(tpm2.AlgSHA1, pcr)
		if !ok {
			continue // quote did not select a SHA1 bank for this PCR
		}
		if !bytes.Equal(replayed, quotedDigest.Value) {
			return &BadEventLogError{Alg: tpm2.AlgSHA1, PCR: pcr}
		}
	}
	return nil
}

func parsePCRColumn(b []byte) (int, error) {
	var n int
	if _, err := fmt.Sscanf(string(b), "%d", &n); err != nil {
		return 0, err
	}
	if n < 0 || n > tpmtype.MaxPCRIndex {
		return 0, fmt.Errorf("pcr %d out of range", n)
	}
	return n, nil
}

func decodeTemplateHash(b []byte) ([]byte, error) {
	s := string(b)
	// Some IMA templates prefix the hash with an algorithm name, e.g. "sha1:abcd...".
	if idx := bytes.IndexByte(b, ':'); idx >= 0 {
		s = string(b[idx+1:])
	}
	digest, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding template hash: %w", err)
	}
	if len(digest) != 20 {
		return nil, fmt.Errorf("template hash length %d, want 20 (sha1)", len(digest))
	}
	return digest, nil
}

func extendSHA1(prev, event []byte) []byte {
	h, _ := tpm2.AlgSHA1.Hash()
	hf := h.New()
	hf.Write(prev)
	hf.Write(event)
	return hf.Sum(nil)
}
