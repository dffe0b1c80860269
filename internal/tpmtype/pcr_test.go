package tpmtype

import (
	"testing"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/stretchr/testify/require"
)

func TestPCRSelectionEqual(t *testing.T) {
	a, err := NewPCRSelection([]tpm2.PCRSelection{{Hash: tpm2.AlgSHA256, PCRs: []int{0, 1, 7}}})
	require.NoError(t, err)
	b, err := NewPCRSelection([]tpm2.PCRSelection{{Hash: tpm2.AlgSHA256, PCRs: []int{7, 1, 0}}})
	require.NoError(t, err)
	require.True(t, a.Equal(b))

	c, err := NewPCRSelection([]tpm2.PCRSelection{{Hash: tpm2.AlgSHA256, PCRs: []int{0, 1}}})
	require.NoError(t, err)
	require.False(t, a.Equal(c))
}

func TestPCRSelectionOutOfRange(t *testing.T) {
	_, err := NewPCRSelection([]tpm2.PCRSelection{{Hash: tpm2.AlgSHA256, PCRs: []int{24}}})
	require.Error(t, err)
}

func TestPCRBankConcatSelectedCanonicalOrder(t *testing.T) {
	bank := NewPCRBank()
	d0, _ := NewDigest(tpm2.AlgSHA256, bytesOf(32, 0xAA))
	d1, _ := NewDigest(tpm2.AlgSHA256, bytesOf(32, 0xBB))
	require.NoError(t, bank.Set(tpm2.AlgSHA256, 1, d1))
	require.NoError(t, bank.Set(tpm2.AlgSHA256, 0, d0))

	sel := bank.Selection()
	got, err := bank.ConcatSelected(sel)
	require.NoError(t, err)
	want := append(append([]byte{}, d0.Value...), d1.Value...)
	require.Equal(t, want, got)
}

func TestPCRBankConcatSelectedMissingValue(t *testing.T) {
	bank := NewPCRBank()
	sel, err := NewPCRSelection([]tpm2.PCRSelection{{Hash: tpm2.AlgSHA256, PCRs: []int{3}}})
	require.NoError(t, err)
	_, err = bank.ConcatSelected(sel)
	require.Error(t, err)
}

func bytesOf(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
