package tpmtype

import (
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"
)

// tpmGeneratedMagic is TPM_GENERATED_VALUE, required to prefix any
// TPM-generated attestation structure.
const tpmGeneratedMagic = 0xff544347

// Quote is the decoded TPMS_ATTEST body of a client's attestation, plus the
// raw bytes it was decoded from (the signature is verified over these raw
// bytes, not a re-marshalling of the struct).
type Quote struct {
	Attest tpm2.AttestationData
	Raw    []byte
}

// Validate asserts the structural invariants spec.md §4.3 step 1 requires:
// TPM-generated magic and the QUOTE attestation type.
func (q Quote) Validate() error {
	if q.Attest.Magic != tpmGeneratedMagic {
		return fmt.Errorf("tpmtype: quote magic %#x != TPM_GENERATED_VALUE", q.Attest.Magic)
	}
	if q.Attest.Type != tpm2.TagAttestQuote {
		return fmt.Errorf("tpmtype: attestation type %v != TPM_ST_ATTEST_QUOTE", q.Attest.Type)
	}
	if q.Attest.AttestedQuoteInfo == nil {
		return fmt.Errorf("tpmtype: attestation has no quote info")
	}
	return nil
}

// ExtraData returns the quote's externally supplied data field, which
// carries the server-chosen nonce.
func (q Quote) ExtraData() []byte {
	return q.Attest.ExtraData
}

// Selection returns the PCRSelection the quote was taken over. A
// TPMS_QUOTE_INFO carries exactly one TPMS_PCR_SELECTION (one hash bank);
// NewPCRSelection's multi-selection shape is reused here for a single
// element so PCRBank and Quote share one equality/ordering implementation.
func (q Quote) Selection() (PCRSelection, error) {
	return NewPCRSelection([]tpm2.PCRSelection{q.Attest.AttestedQuoteInfo.PCRSelection})
}

// PCRDigest returns the quote's internal digest over the selected PCRs.
func (q Quote) PCRDigest() []byte {
	return q.Attest.AttestedQuoteInfo.PCRDigest
}

// Signature is the decoded TPMT_SIGNATURE over a Quote's raw bytes.
type Signature struct {
	Sig tpm2.Signature
}

// Alg returns the signature's algorithm (e.g. RSASSA, RSAPSS, ECDSA).
func (s Signature) Alg() tpm2.Algorithm {
	return s.Sig.Alg
}
