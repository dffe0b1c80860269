// Package sealer implements spec.md §4.5: it wraps an approved payload in an
// envelope only the TPM holding the EK private key can unwrap. The
// TPM2_MakeCredential-equivalent blob (seed/OAEP/KDFa/outerHmac) is delegated
// to github.com/google/go-tpm/legacy/tpm2/credactivation, exactly as the
// teacher-adjacent makesoftwaresafe-go-attestation/attest/activation.go's
// generateChallengeTPM20 does for AK activation; the AES-CBC+HMAC envelope
// around the payload itself has no analog in the retrieved pack and is
// built directly on crypto/aes, crypto/cipher and crypto/hmac, the same
// stdlib layer the teacher reaches for in its own low-level RSA/ECDSA
// verification code.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2/credactivation"

	"github.com/attestd/attestd/internal/tpmtype"
)

const (
	aesKeySize        = 32
	ivSize            = 16
	hmacKeySize       = 16
	sessionSecretSize = aesKeySize + ivSize + hmacKeySize
	hmacTagSize       = sha256.Size
	credActivationSym = 16 // AES-128 symmetric block size for credactivation.Generate
)

// BadEKError reports that the EK public key is unusable for sealing
// (anything other than a well-formed RSA-2048 key, per spec.md §4.5).
type BadEKError struct {
	Reason string
}

func (e *BadEKError) Error() string { return fmt.Sprintf("sealer: BAD_EK: %s", e.Reason) }

// SealingFailedError reports RNG exhaustion or a crypto primitive failure
// while building the envelope; the orchestrator maps it to SEALING_FAILED.
type SealingFailedError struct {
	Err error
}

func (e *SealingFailedError) Error() string { return fmt.Sprintf("sealer: sealing failed: %v", e.Err) }
func (e *SealingFailedError) Unwrap() error { return e.Err }

// SealedResponse is the byte-exact wire layout of spec.md §6:
// credentialBlob || tag (32B) || ciphertext. CredentialBlob's length is a
// function of the EK's RSA modulus size and the AK name algorithm's digest
// size (credactivation.Generate computes it); for the expected RSA-2048 /
// SHA-256 case it is the documented 368 bytes.
type SealedResponse struct {
	CredentialBlob []byte
	Tag            [hmacTagSize]byte
	Ciphertext     []byte
}

// Marshal emits credentialBlob || tag || ciphertext with no length prefixes,
// the layout the client interop contract in spec.md §6 requires.
func (r *SealedResponse) Marshal() []byte {
	out := make([]byte, 0, len(r.CredentialBlob)+len(r.Tag)+len(r.Ciphertext))
	out = append(out, r.CredentialBlob...)
	out = append(out, r.Tag[:]...)
	out = append(out, r.Ciphertext...)
	return out
}

// Seal implements spec.md §4.5 end to end: draw a session secret, build the
// MakeCredential-equivalent blob against the EK, envelope payload under
// AES-256-CBC, and tag the ciphertext with HMAC-SHA256.
func Seal(payload []byte, ak tpmtype.AKPublic, ek tpmtype.EKPublic) (*SealedResponse, error) {
	if !ek.IsRSA2048() {
		return nil, &BadEKError{Reason: "endorsement key is not a 2048-bit RSA key"}
	}
	ekKey, err := ek.Key()
	if err != nil {
		return nil, &BadEKError{Reason: fmt.Sprintf("decoding EK public key: %v", err)}
	}
	ekPub, ok := ekKey.(*rsa.PublicKey)
	if !ok {
		return nil, &BadEKError{Reason: fmt.Sprintf("EK key is %T, want *rsa.PublicKey", ekKey)}
	}

	akName, err := ak.NameHash()
	if err != nil {
		return nil, &SealingFailedError{Err: fmt.Errorf("computing AK name: %w", err)}
	}

	sessionSecret := make([]byte, sessionSecretSize)
	if _, err := rand.Read(sessionSecret); err != nil {
		return nil, &SealingFailedError{Err: fmt.Errorf("drawing session secret: %w", err)}
	}
	defer zero(sessionSecret)

	aesKey := sessionSecret[:aesKeySize]
	iv := sessionSecret[aesKeySize : aesKeySize+ivSize]
	hmacKey := sessionSecret[aesKeySize+ivSize:]

	credBlob, encSecret, err := credactivation.Generate(akName, ekPub, credActivationSym, sessionSecret)
	if err != nil {
		return nil, &BadEKError{Reason: fmt.Sprintf("credactivation.Generate: %v", err)}
	}

	ciphertext, err := encryptCBC(aesKey, iv, payload)
	if err != nil {
		return nil, &SealingFailedError{Err: err}
	}

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)
	var tag [hmacTagSize]byte
	copy(tag[:], mac.Sum(nil))

	return &SealedResponse{
		CredentialBlob: append(credBlob, encSecret...),
		Tag:            tag,
		Ciphertext:     ciphertext,
	}, nil
}

// encryptCBC implements spec.md §4.5 step 3: AES-256-CBC over PKCS#7-padded
// plaintext.
func encryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("constructing AES cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// zero best-effort clears secret material on drop per spec.md §5.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
