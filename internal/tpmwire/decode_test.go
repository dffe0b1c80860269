package tpmwire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAKPublicMalformed(t *testing.T) {
	_, err := DecodeAKPublic([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)
	var merr *MalformedError
	require.True(t, errors.As(err, &merr))
	require.Equal(t, "ak.pub", merr.Field)
}

func TestDecodeEKPublicMalformed(t *testing.T) {
	_, err := DecodeEKPublic(nil)
	require.Error(t, err)
}

func TestDecodeQuoteMalformed(t *testing.T) {
	_, err := DecodeQuote([]byte("not a tpms_attest"))
	require.Error(t, err)
	var merr *MalformedError
	require.True(t, errors.As(err, &merr))
	require.Equal(t, "quote", merr.Field)
}

func TestDecodeSignatureMalformed(t *testing.T) {
	_, err := DecodeSignature([]byte{0xff, 0xff})
	require.Error(t, err)
}
