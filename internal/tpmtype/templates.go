package tpmtype

import "github.com/google/go-tpm/legacy/tpm2"

// RequiredAKTemplateRSA describes the RSA AK shape this server accepts:
// restricted RSASSA signing key with the exact attribute set spec.md §3
// mandates. It is not used to create keys (this server never talks to a
// TPM directly) — it documents, and is exercised by tests for, the
// attribute/type combination AKPublic.HasRequiredAttributes and
// AKPublic.IsSigningKey check against.
//
// Adapted from the teacher's client/template.go AKTemplateRSA, which built
// the same shape for a client that creates the AK; here it is reference
// data for validating one supplied by a client.
func RequiredAKTemplateRSA() tpm2.Public {
	return tpm2.Public{
		Type:       tpm2.AlgRSA,
		NameAlg:    tpm2.AlgSHA256,
		Attributes: RequiredAKAttributes,
		RSAParameters: &tpm2.RSAParams{
			Sign: &tpm2.SigScheme{
				Alg:  tpm2.AlgRSASSA,
				Hash: tpm2.AlgSHA256,
			},
			KeyBits: 2048,
		},
	}
}

// RequiredAKTemplateECC is the ECDSA analog of RequiredAKTemplateRSA.
func RequiredAKTemplateECC() tpm2.Public {
	return tpm2.Public{
		Type:       tpm2.AlgECC,
		NameAlg:    tpm2.AlgSHA256,
		Attributes: RequiredAKAttributes,
		ECCParameters: &tpm2.ECCParams{
			CurveID: tpm2.CurveNISTP256,
			Sign: &tpm2.SigScheme{
				Alg:  tpm2.AlgECDSA,
				Hash: tpm2.AlgSHA256,
			},
		},
	}
}

// defaultEKAttributes mirrors the teacher's client/template.go: the EK is a
// storage/decrypt key that must use session-based authorization.
func defaultEKAttributes() tpm2.KeyProp {
	return (tpm2.FlagFixedTPM | tpm2.FlagFixedParent | tpm2.FlagSensitiveDataOrigin |
		tpm2.FlagAdminWithPolicy | tpm2.FlagRestricted | tpm2.FlagDecrypt) &^ tpm2.FlagUserWithAuth
}

// ExpectedEKTemplateRSA is the standard EK shape from Credential_Profile_EK_V2.0
// §2.1.5.1, kept for documentation/tests; the sealer itself only requires
// RSA-2048 (EKPublic.IsRSA2048), matching spec.md §3's "EK, RSA-2048".
func ExpectedEKTemplateRSA() tpm2.Public {
	return tpm2.Public{
		Type:       tpm2.AlgRSA,
		NameAlg:    tpm2.AlgSHA256,
		Attributes: defaultEKAttributes(),
		RSAParameters: &tpm2.RSAParams{
			KeyBits:    2048,
			ModulusRaw: make([]byte, 256),
		},
	}
}
