// Package quoteverify implements spec.md §4.3: recompute the digest over
// supplied PCRs, verify the signature with the AK public key, and bind the
// quote to the server-chosen nonce. No step is optional and no step is
// skipped on the others' success — any failure yields a single BAD_QUOTE
// error.
//
// Grounded on the teacher's server/verify.go (VerifyAttestation's call into
// internal.VerifyQuote, and its ordering of nonce/PCR/signature checks) and
// makesoftwaresafe-go-attestation/attest/activation.go's
// verifyRSASignature/verifyECDSASignature for the raw RSA/ECDSA
// verification shape.
package quoteverify

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/subtle"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"

	"github.com/attestd/attestd/internal/tpmtype"
)

// BadQuoteError reports any quote-verification failure; the orchestrator
// maps it to the BAD_QUOTE error kind. No sub-kind is exposed to the wire
// response (spec.md §7: reason phrases are for operators, not clients) but
// Reason is available to the structured logger.
type BadQuoteError struct {
	Reason string
}

func (e *BadQuoteError) Error() string { return fmt.Sprintf("quoteverify: %s", e.Reason) }

func fail(format string, args ...interface{}) error {
	return &BadQuoteError{Reason: fmt.Sprintf(format, args...)}
}

// Verify runs all five steps of spec.md §4.3 against quote/sig, and returns
// the verified PCRBank (the client-supplied values, now proven to be what
// the AK actually quoted) for the event-log replay stage to consume.
func Verify(nonce []byte, quote tpmtype.Quote, sig tpmtype.Signature, clientPCRs tpmtype.PCRBank, ak tpmtype.AKPublic) (tpmtype.PCRBank, error) {
	// Step 1 (magic/type) already enforced by tpmwire.DecodeQuote.

	// Step 2: extraData must equal the nonce, constant-time.
	if subtle.ConstantTimeCompare(quote.ExtraData(), nonce) != 1 {
		return nil, fail("extraData does not match submitted nonce")
	}

	// Step 3: the quote's PCRSelection must equal the selection implied by
	// the client-supplied PCR file.
	quoteSel, err := quote.Selection()
	if err != nil {
		return nil, fail("decoding quote PCR selection: %v", err)
	}
	clientSel := clientPCRs.Selection()
	if !quoteSel.Equal(clientSel) {
		return nil, fail("client PCR selection does not match quote's PCR selection")
	}

	// Step 4: recompute pcrDigest over the client-supplied PCR values in
	// canonical order and compare to the quote's internal digest. This is
	// the explicit check spec.md §9 calls out as missing from the
	// reference implementation.
	quoteAlg, err := quoteHashAlg(quote)
	if err != nil {
		return nil, fail("determining quote digest algorithm: %v", err)
	}
	concatenated, err := clientPCRs.ConcatSelected(quoteSel)
	if err != nil {
		return nil, fail("concatenating client PCR values: %v", err)
	}
	h, err := quoteAlg.Hash()
	if err != nil {
		return nil, fail("unsupported quote digest algorithm %v: %v", quoteAlg, err)
	}
	hf := h.New()
	hf.Write(concatenated)
	recomputed := hf.Sum(nil)
	if subtle.ConstantTimeCompare(recomputed, quote.PCRDigest()) != 1 {
		return nil, fail("recomputed PCR digest does not match quote's pcrDigest")
	}

	// Step 5: verify the signature over the raw quote bytes with the AK's
	// declared scheme.
	if err := verifySignature(ak, quote.Raw, sig); err != nil {
		return nil, fail("signature verification failed: %v", err)
	}

	return clientPCRs, nil
}

// quoteHashAlg determines H_quoteAlg: the hash algorithm used to produce
// the quote's internal PCRDigest. TPMS_QUOTE_INFO carries exactly one
// TPMS_PCR_SELECTION, so the bank it names is authoritative.
func quoteHashAlg(q tpmtype.Quote) (tpm2.Algorithm, error) {
	sel, err := q.Selection()
	if err != nil {
		return 0, err
	}
	algs := sel.Algs()
	if len(algs) != 1 {
		return 0, fmt.Errorf("quote selects %d PCR banks, want exactly 1", len(algs))
	}
	return algs[0], nil
}

func verifySignature(ak tpmtype.AKPublic, signedBytes []byte, sig tpmtype.Signature) error {
	key, err := ak.Key()
	if err != nil {
		return fmt.Errorf("decoding AK public key: %w", err)
	}

	switch sig.Sig.Alg {
	case tpm2.AlgRSASSA, tpm2.AlgRSAPSS:
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("AK declares RSA signature but key is %T", key)
		}
		if sig.Sig.RSA == nil {
			return fmt.Errorf("signature missing RSA fields")
		}
		hashAlg := sig.Sig.RSA.HashAlg
		h, err := hashAlg.Hash()
		if err != nil {
			return fmt.Errorf("unsupported signature hash %v: %w", hashAlg, err)
		}
		hf := h.New()
		hf.Write(signedBytes)
		digest := hf.Sum(nil)
		if sig.Sig.Alg == tpm2.AlgRSAPSS {
			return rsa.VerifyPSS(pub, h, digest, sig.Sig.RSA.Signature, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
		}
		return rsa.VerifyPKCS1v15(pub, h, digest, sig.Sig.RSA.Signature)

	case tpm2.AlgECDSA:
		pub, ok := key.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("AK declares ECDSA signature but key is %T", key)
		}
		if sig.Sig.ECC == nil {
			return fmt.Errorf("signature missing ECC fields")
		}
		h, err := sig.Sig.ECC.HashAlg.Hash()
		if err != nil {
			return fmt.Errorf("unsupported signature hash %v: %w", sig.Sig.ECC.HashAlg, err)
		}
		hf := h.New()
		hf.Write(signedBytes)
		if !ecdsa.Verify(pub, hf.Sum(nil), sig.Sig.ECC.R, sig.Sig.ECC.S) {
			return fmt.Errorf("ecdsa signature did not verify")
		}
		return nil

	default:
		return fmt.Errorf("unsupported signature algorithm %v", sig.Sig.Alg)
	}
}
