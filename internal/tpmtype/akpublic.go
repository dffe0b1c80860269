package tpmtype

import (
	"bytes"
	"crypto"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"
)

// RequiredAKAttributes is the exact TPMA_OBJECT bit combination spec.md §3
// mandates for an Attestation Key: fixedTPM, stClear, fixedParent,
// sensitiveDataOrigin, userWithAuth, restricted, sign. Nothing more,
// nothing less.
const RequiredAKAttributes = tpm2.FlagFixedTPM | tpm2.FlagStClear | tpm2.FlagFixedParent |
	tpm2.FlagSensitiveDataOrigin | tpm2.FlagUserWithAuth | tpm2.FlagRestricted | tpm2.FlagSign

// AKPublic is the parsed TPMT_PUBLIC of an Attestation Key, plus the raw
// bytes it was decoded from (needed to compute its TPM "name"). The name is
// recomputed on each call to Name or NameHash; it is not cached.
type AKPublic struct {
	Public tpm2.Public
	Raw    []byte
}

// Key returns the AK's crypto.PublicKey.
func (a AKPublic) Key() (crypto.PublicKey, error) {
	return a.Public.Key()
}

// Attributes returns the object attribute bitfield.
func (a AKPublic) Attributes() tpm2.KeyProp {
	return a.Public.Attributes
}

// HasRequiredAttributes reports whether the AK's attribute set is exactly
// RequiredAKAttributes, per spec.md §4.2.
func (a AKPublic) HasRequiredAttributes() bool {
	return a.Public.Attributes == RequiredAKAttributes
}

// IsSigningKey reports whether the AK's object type is a signing key
// (RSA-SSA/PSS or ECDSA), never a storage/decrypt key.
func (a AKPublic) IsSigningKey() bool {
	switch a.Public.Type {
	case tpm2.AlgRSA:
		return a.Public.RSAParameters != nil && a.Public.RSAParameters.Sign != nil &&
			a.Public.RSAParameters.Sign.Alg != tpm2.AlgNull
	case tpm2.AlgECC:
		return a.Public.ECCParameters != nil && a.Public.ECCParameters.Sign != nil &&
			a.Public.ECCParameters.Sign.Alg != tpm2.AlgNull
	default:
		return false
	}
}

// SigningScheme returns the AK's declared signature algorithm and hash.
func (a AKPublic) SigningScheme() (sigAlg, hashAlg tpm2.Algorithm, err error) {
	switch a.Public.Type {
	case tpm2.AlgRSA:
		if a.Public.RSAParameters == nil || a.Public.RSAParameters.Sign == nil {
			return 0, 0, fmt.Errorf("tpmtype: RSA AK has no signing scheme")
		}
		return a.Public.RSAParameters.Sign.Alg, a.Public.RSAParameters.Sign.Hash, nil
	case tpm2.AlgECC:
		if a.Public.ECCParameters == nil || a.Public.ECCParameters.Sign == nil {
			return 0, 0, fmt.Errorf("tpmtype: ECC AK has no signing scheme")
		}
		return a.Public.ECCParameters.Sign.Alg, a.Public.ECCParameters.Sign.Hash, nil
	default:
		return 0, 0, fmt.Errorf("tpmtype: unsupported AK object type %v", a.Public.Type)
	}
}

// Name computes the TPM "name" of the public area: nameAlg || H_nameAlg(raw
// marshalled TPMT_PUBLIC), per spec.md §3.
func (a AKPublic) Name() ([]byte, error) {
	return publicName(a.Public.NameAlg, a.Raw)
}

// NameHash returns the AK's name as a *tpm2.HashValue (alg tag plus the bare
// digest, with no nameAlg prefix byte string) — the shape
// credactivation.Generate takes for the object being activated, per
// makesoftwaresafe-go-attestation/attest/activation.go's
// att.AttestedCreationInfo.Name.Digest.
func (a AKPublic) NameHash() (*tpm2.HashValue, error) {
	h, err := a.Public.NameAlg.Hash()
	if err != nil {
		return nil, fmt.Errorf("tpmtype: unsupported name algorithm %v: %w", a.Public.NameAlg, err)
	}
	hf := h.New()
	hf.Write(a.Raw)
	return &tpm2.HashValue{Alg: a.Public.NameAlg, Value: hf.Sum(nil)}, nil
}

// EKPublic is the parsed TPMT_PUBLIC of an Endorsement Key. This server only
// accepts RSA-2048 EKs, per spec.md §3.
type EKPublic struct {
	Public tpm2.Public
	Raw    []byte
}

// Key returns the EK's crypto.PublicKey.
func (e EKPublic) Key() (crypto.PublicKey, error) {
	return e.Public.Key()
}

// IsRSA2048 reports whether the EK is an RSA key with a 2048-bit modulus.
func (e EKPublic) IsRSA2048() bool {
	return e.Public.Type == tpm2.AlgRSA &&
		e.Public.RSAParameters != nil &&
		e.Public.RSAParameters.KeyBits == 2048
}

// Hash returns SHA-256(marshalled EkPublic), the stable identity used to key
// the policy database, per spec.md §3.
func (e EKPublic) Hash() ([]byte, error) {
	h, err := tpm2.AlgSHA256.Hash()
	if err != nil {
		return nil, err
	}
	hf := h.New()
	hf.Write(e.Raw)
	return hf.Sum(nil), nil
}

func publicName(nameAlg tpm2.Algorithm, raw []byte) ([]byte, error) {
	h, err := nameAlg.Hash()
	if err != nil {
		return nil, fmt.Errorf("tpmtype: unsupported name algorithm %v: %w", nameAlg, err)
	}
	hf := h.New()
	hf.Write(raw)

	var algID bytes.Buffer
	if err := writeUint16(&algID, uint16(nameAlg)); err != nil {
		return nil, err
	}
	return append(algID.Bytes(), hf.Sum(nil)...), nil
}
