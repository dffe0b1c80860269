package sealer

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/stretchr/testify/require"

	"github.com/attestd/attestd/internal/tpmtype"
)

func testAKPublic(t *testing.T) tpmtype.AKPublic {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pub := tpm2.Public{
		Type:    tpm2.AlgRSA,
		NameAlg: tpm2.AlgSHA256,
		RSAParameters: &tpm2.RSAParams{
			KeyBits:     2048,
			ModulusRaw:  key.PublicKey.N.Bytes(),
			ExponentRaw: uint32(key.PublicKey.E),
		},
	}
	return tpmtype.AKPublic{Public: pub, Raw: []byte("ak-public-area")}
}

func testEKPublic(t *testing.T, bits int) tpmtype.EKPublic {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	pub := tpm2.Public{
		Type:    tpm2.AlgRSA,
		NameAlg: tpm2.AlgSHA256,
		RSAParameters: &tpm2.RSAParams{
			KeyBits:     uint16(bits),
			ModulusRaw:  key.PublicKey.N.Bytes(),
			ExponentRaw: uint32(key.PublicKey.E),
		},
	}
	return tpmtype.EKPublic{Public: pub, Raw: []byte("ek-public-area")}
}

func TestSealRejectsNonRSA2048EK(t *testing.T) {
	ak := testAKPublic(t)
	ek := testEKPublic(t, 1024)
	_, err := Seal([]byte("payload"), ak, ek)
	require.Error(t, err)
	var badEK *BadEKError
	require.ErrorAs(t, err, &badEK)
}

func TestSealProducesEnvelope(t *testing.T) {
	ak := testAKPublic(t)
	ek := testEKPublic(t, 2048)

	resp, err := Seal([]byte("approved payload"), ak, ek)
	require.NoError(t, err)
	require.NotEmpty(t, resp.CredentialBlob)
	require.NotZero(t, resp.Tag)
	require.NotEmpty(t, resp.Ciphertext)

	marshaled := resp.Marshal()
	require.Equal(t, len(resp.CredentialBlob)+len(resp.Tag)+len(resp.Ciphertext), len(marshaled))
}

func TestSealEmptyPayloadProducesOneBlock(t *testing.T) {
	ak := testAKPublic(t)
	ek := testEKPublic(t, 2048)

	resp, err := Seal(nil, ak, ek)
	require.NoError(t, err)
	require.Len(t, resp.Ciphertext, 16) // one full PKCS#7 padding block
}
