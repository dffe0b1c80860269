package tpmtype

import (
	"testing"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/stretchr/testify/require"
)

func TestNewDigestValidatesSize(t *testing.T) {
	tests := []struct {
		name    string
		alg     tpm2.Algorithm
		value   []byte
		wantErr bool
	}{
		{"sha256 exact", tpm2.AlgSHA256, make([]byte, 32), false},
		{"sha256 too short", tpm2.AlgSHA256, make([]byte, 31), true},
		{"sha1 exact", tpm2.AlgSHA1, make([]byte, 20), false},
		{"unsupported alg", tpm2.AlgNull, make([]byte, 32), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDigest(tt.alg, tt.value)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDigestEqualConstantTime(t *testing.T) {
	a, err := NewDigest(tpm2.AlgSHA256, make([]byte, 32))
	require.NoError(t, err)
	b, err := NewDigest(tpm2.AlgSHA256, make([]byte, 32))
	require.NoError(t, err)
	require.True(t, a.Equal(b))

	other := make([]byte, 32)
	other[0] = 0xff
	c, err := NewDigest(tpm2.AlgSHA256, other)
	require.NoError(t, err)
	require.False(t, a.Equal(c))
}

func TestZeroDigest(t *testing.T) {
	z := ZeroDigest(tpm2.AlgSHA256)
	require.Len(t, z.Value, 32)
	for _, b := range z.Value {
		require.Zero(t, b)
	}
}
