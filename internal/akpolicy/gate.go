// Package akpolicy enforces that an Attestation Key is restricted to
// signing TPM-internal structures, per spec.md §4.2. Generalized from the
// teacher's server/verify.go (which checked a trust relationship via
// TrustedAKs/TrustedRootCerts) and
// makesoftwaresafe-go-attestation/attest/activation.go's
// checkTPM20AKParameters attribute checks, narrowed to exactly the
// attribute-bitset gate spec.md requires.
package akpolicy

import (
	"fmt"

	"github.com/attestd/attestd/internal/tpmtype"
)

// BadAKError reports an AK that fails the policy gate; the orchestrator
// maps it to the BAD_AK error kind.
type BadAKError struct {
	Reason string
}

func (e *BadAKError) Error() string { return fmt.Sprintf("akpolicy: %s", e.Reason) }

// Check enforces spec.md §4.2: the AK's attribute set must equal the
// required seven-bit combination exactly, and the key's declared algorithm
// must be a restricted signing key.
func Check(ak tpmtype.AKPublic) error {
	if !ak.HasRequiredAttributes() {
		return &BadAKError{Reason: fmt.Sprintf(
			"attributes %#x do not equal required set %#x",
			uint32(ak.Attributes()), uint32(tpmtype.RequiredAKAttributes))}
	}
	if !ak.IsSigningKey() {
		return &BadAKError{Reason: fmt.Sprintf("object type %v is not a signing key", ak.Public.Type)}
	}
	return nil
}
