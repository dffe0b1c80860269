package tpmwire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/stretchr/testify/require"
)

// buildPCRFile constructs a minimal valid tpm2-tools .pcr file with a single
// SHA-256 selection over the given PCR indices, each holding a distinct,
// deterministic digest.
func buildPCRFile(t *testing.T, pcrs []int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(1)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(tpm2.AlgSHA256)))

	sizeOfSelect := byte(3)
	buf.WriteByte(sizeOfSelect)
	bitmap := make([]byte, sizeOfSelect)
	for _, pcr := range pcrs {
		bitmap[pcr/8] |= 1 << uint(pcr%8)
	}
	buf.Write(bitmap)

	for i, pcr := range pcrs {
		digest := make([]byte, 32)
		digest[0] = byte(pcr)
		digest[1] = byte(i)
		buf.Write(digest)
	}
	return buf.Bytes()
}

func TestParsePCRFileRoundTrip(t *testing.T) {
	raw := buildPCRFile(t, []int{0, 1, 7})
	bank, err := ParsePCRFile(raw)
	require.NoError(t, err)

	for _, pcr := range []int{0, 1, 7} {
		_, ok := bank.Get(tpm2.AlgSHA256, pcr)
		require.True(t, ok, "pcr %d", pcr)
	}
	_, ok := bank.Get(tpm2.AlgSHA256, 2)
	require.False(t, ok)
}

func TestParsePCRFileRejectsTrailingBytes(t *testing.T) {
	raw := append(buildPCRFile(t, []int{0}), 0x00)
	_, err := ParsePCRFile(raw)
	require.Error(t, err)
}

func TestParsePCRFileRejectsUnsupportedAlg(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(1)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(tpm2.AlgNull)))
	buf.WriteByte(1)
	buf.WriteByte(0)
	_, err := ParsePCRFile(buf.Bytes())
	require.Error(t, err)
}

func TestParsePCRFileRejectsZeroSelections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(0)))
	_, err := ParsePCRFile(buf.Bytes())
	require.Error(t, err)
}
