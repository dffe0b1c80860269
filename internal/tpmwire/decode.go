// Package tpmwire decodes the TPM-defined binary structures carried on the
// attestation wire: TPMT_PUBLIC (AK/EK), TPMS_ATTEST (quote body), and
// TPMT_SIGNATURE. It is a thin, explicitly-erroring wrapper around
// github.com/google/go-tpm/legacy/tpm2's unmarshalling, generalized from the
// teacher's server/verify.go ("tpm2.DecodePublic(attestation.GetAkPub())")
// and makesoftwaresafe-go-attestation/attest/activation.go
// ("tpm2.DecodeAttestationData", "tpm2.DecodeSignature").
//
// Any malformed input here maps to the MALFORMED error kind (spec.md §4.1).
package tpmwire

import (
	"bytes"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"

	"github.com/attestd/attestd/internal/tpmtype"
)

// MalformedError wraps a decode failure so the orchestrator can map it to
// the MALFORMED error kind without string-matching.
type MalformedError struct {
	Field string
	Err   error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("tpmwire: malformed %s: %v", e.Field, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func malformed(field string, err error) error {
	if err == nil {
		return nil
	}
	return &MalformedError{Field: field, Err: err}
}

// DecodeAKPublic decodes a marshalled TPMT_PUBLIC for the Attestation Key.
func DecodeAKPublic(raw []byte) (tpmtype.AKPublic, error) {
	pub, err := tpm2.DecodePublic(raw)
	if err != nil {
		return tpmtype.AKPublic{}, malformed("ak.pub", err)
	}
	return tpmtype.AKPublic{Public: pub, Raw: raw}, nil
}

// DecodeEKPublic decodes a marshalled TPMT_PUBLIC for the Endorsement Key.
func DecodeEKPublic(raw []byte) (tpmtype.EKPublic, error) {
	pub, err := tpm2.DecodePublic(raw)
	if err != nil {
		return tpmtype.EKPublic{}, malformed("ek.pub", err)
	}
	return tpmtype.EKPublic{Public: pub, Raw: raw}, nil
}

// DecodeQuote decodes a marshalled TPMS_ATTEST (the body signed by the AK).
func DecodeQuote(raw []byte) (tpmtype.Quote, error) {
	att, err := tpm2.DecodeAttestationData(raw)
	if err != nil {
		return tpmtype.Quote{}, malformed("quote", err)
	}
	q := tpmtype.Quote{Attest: *att, Raw: raw}
	if err := q.Validate(); err != nil {
		return tpmtype.Quote{}, malformed("quote", err)
	}
	return q, nil
}

// DecodeSignature decodes a marshalled TPMT_SIGNATURE. Trailing bytes after
// the structure are rejected per spec.md §4.1.
func DecodeSignature(raw []byte) (tpmtype.Signature, error) {
	r := bytes.NewReader(raw)
	sig, err := tpm2.DecodeSignature(r)
	if err != nil {
		return tpmtype.Signature{}, malformed("sig", err)
	}
	if r.Len() != 0 {
		return tpmtype.Signature{}, malformed("sig", fmt.Errorf("%d trailing bytes after signature", r.Len()))
	}
	return tpmtype.Signature{Sig: *sig}, nil
}
