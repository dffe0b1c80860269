package tpmtype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequiredAKTemplatesMatchRequiredAttributes(t *testing.T) {
	rsa := RequiredAKTemplateRSA()
	require.Equal(t, RequiredAKAttributes, rsa.Attributes)

	ecc := RequiredAKTemplateECC()
	require.Equal(t, RequiredAKAttributes, ecc.Attributes)
}

func TestExpectedEKTemplateIsRSA2048(t *testing.T) {
	ek := ExpectedEKTemplateRSA()
	ekPub := EKPublic{Public: ek}
	require.True(t, ekPub.IsRSA2048())
}
