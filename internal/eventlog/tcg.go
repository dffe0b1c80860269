package eventlog

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"

	"github.com/attestd/attestd/internal/tpmtype"
)

// rawEvent is one crypto-agile TCG_PCR_EVENT2 record: a PCR index, an event
// type, one digest per hash bank the log was built with, and opaque event
// data. Parsing here mirrors the teacher's wel/tcg.go ParseTaggedEventData
// in spirit (length-prefixed sub-structures, no trust placed in EventType),
// generalized from a single TaggedEvent wrapper to the full TPML_DIGEST_VALUES
// shape TCG_PCR_EVENT2 actually carries.
type rawEvent struct {
	PCRIndex int
	Type     EventType
	Digests  map[tpm2.Algorithm][]byte
	Data     []byte
}

// parseLog splits a raw TCG binary event log into its legacy SpecID header
// record (always present, always SHA1-only, per the TCG PC Client Platform
// Firmware Profile) and the crypto-agile TCG_PCR_EVENT2 records that follow
// it. Event-log byte order is little-endian, matching the firmware that
// produces these logs and the teacher's own use of binary.LittleEndian for
// this format.
func parseLog(raw []byte) ([]rawEvent, error) {
	r := bytes.NewReader(raw)

	if _, err := readHeaderEvent(r); err != nil {
		return nil, fmt.Errorf("reading log header event: %w", err)
	}

	var events []rawEvent
	for r.Len() > 0 {
		ev, err := readEvent2(r)
		if err != nil {
			return nil, fmt.Errorf("reading event %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// readHeaderEvent consumes the first, legacy-format TCG_PCR_EVENT record
// (PCRIndex, EventType, a fixed 20-byte SHA1 digest, EventSize, Event). Its
// payload (the TCG_EfiSpecIDEvent) is not needed for replay, only its
// length, so the bytes are discarded once skipped.
func readHeaderEvent(r *bytes.Reader) ([]byte, error) {
	var pcrIndex, eventType uint32
	if err := binary.Read(r, binary.LittleEndian, &pcrIndex); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &eventType); err != nil {
		return nil, err
	}
	digest := make([]byte, 20)
	if _, err := readFull(r, digest); err != nil {
		return nil, fmt.Errorf("reading header digest: %w", err)
	}
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if _, err := readFull(r, data); err != nil {
		return nil, fmt.Errorf("reading header event data: %w", err)
	}
	return data, nil
}

// readEvent2 consumes one TCG_PCR_EVENT2 record.
func readEvent2(r *bytes.Reader) (rawEvent, error) {
	var pcrIndex, eventType, digestCount uint32
	if err := binary.Read(r, binary.LittleEndian, &pcrIndex); err != nil {
		return rawEvent{}, fmt.Errorf("reading pcrIndex: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &eventType); err != nil {
		return rawEvent{}, fmt.Errorf("reading eventType: %w", err)
	}
	if pcrIndex > uint32(tpmtype.MaxPCRIndex) {
		return rawEvent{}, fmt.Errorf("pcrIndex %d out of range", pcrIndex)
	}
	if err := binary.Read(r, binary.LittleEndian, &digestCount); err != nil {
		return rawEvent{}, fmt.Errorf("reading digest count: %w", err)
	}
	const maxDigests = 8
	if digestCount == 0 || digestCount > maxDigests {
		return rawEvent{}, fmt.Errorf("digest count %d out of range", digestCount)
	}

	digests := make(map[tpm2.Algorithm][]byte, digestCount)
	for i := uint32(0); i < digestCount; i++ {
		var algID uint16
		if err := binary.Read(r, binary.LittleEndian, &algID); err != nil {
			return rawEvent{}, fmt.Errorf("reading digest %d alg: %w", i, err)
		}
		alg := tpm2.Algorithm(algID)
		size := tpmtype.DigestSize(alg)
		if size == 0 {
			return rawEvent{}, fmt.Errorf("%w: %v", errUnsupportedAlg, alg)
		}
		buf := make([]byte, size)
		if _, err := readFull(r, buf); err != nil {
			return rawEvent{}, fmt.Errorf("reading digest %d value: %w", i, err)
		}
		digests[alg] = buf
	}

	var dataSize uint32
	if err := binary.Read(r, binary.LittleEndian, &dataSize); err != nil {
		return rawEvent{}, fmt.Errorf("reading event size: %w", err)
	}
	const maxEventData = 16 << 20
	if dataSize > maxEventData {
		return rawEvent{}, fmt.Errorf("event data size %d exceeds limit", dataSize)
	}
	data := make([]byte, dataSize)
	if _, err := readFull(r, data); err != nil {
		return rawEvent{}, fmt.Errorf("reading event data: %w", err)
	}

	return rawEvent{
		PCRIndex: int(pcrIndex),
		Type:     EventType(eventType),
		Digests:  digests,
		Data:     data,
	}, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err == nil && n != len(buf) {
		err = fmt.Errorf("short read: got %d of %d bytes", n, len(buf))
	}
	return n, err
}
