package eventlog

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/stretchr/testify/require"

	"github.com/attestd/attestd/internal/tpmtype"
)

func foldExtendSHA256(prev, event []byte) []byte {
	h := sha256.New()
	h.Write(prev)
	h.Write(event)
	return h.Sum(nil)
}

func buildLog(t *testing.T, events []rawEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	appendHeaderEvent(&buf)
	for _, ev := range events {
		appendEvent2(&buf, ev.PCRIndex, ev.Type, ev.Digests, ev.Data)
	}
	return buf.Bytes()
}

func TestReplayMatchesQuotedBank(t *testing.T) {
	eventData := []byte("measured-component")
	digest := sha256.Sum256(eventData)
	log := buildLog(t, []rawEvent{
		{PCRIndex: 0, Type: Action, Digests: map[tpm2.Algorithm][]byte{tpm2.AlgSHA256: digest[:]}, Data: eventData},
	})

	zero := tpmtype.ZeroDigest(tpm2.AlgSHA256).Value
	want := foldExtendSHA256(zero, digest[:])

	bank := tpmtype.NewPCRBank()
	d, err := tpmtype.NewDigest(tpm2.AlgSHA256, want)
	require.NoError(t, err)
	require.NoError(t, bank.Set(tpm2.AlgSHA256, 0, d))

	require.NoError(t, Replay(log, bank, nil))
}

func TestReplayDetectsTamperedPCR(t *testing.T) {
	eventData := []byte("measured-component")
	digest := sha256.Sum256(eventData)
	log := buildLog(t, []rawEvent{
		{PCRIndex: 0, Type: Action, Digests: map[tpm2.Algorithm][]byte{tpm2.AlgSHA256: digest[:]}, Data: eventData},
	})

	bank := tpmtype.NewPCRBank()
	wrong, err := tpmtype.NewDigest(tpm2.AlgSHA256, make([]byte, 32))
	require.NoError(t, err)
	require.NoError(t, bank.Set(tpm2.AlgSHA256, 0, wrong))

	err = Replay(log, bank, nil)
	require.Error(t, err)
	var badLog *BadEventLogError
	require.ErrorAs(t, err, &badLog)
}

func TestReplayRejectsQuotedAlgAbsentFromLog(t *testing.T) {
	log := buildLog(t, nil)

	bank := tpmtype.NewPCRBank()
	d, err := tpmtype.NewDigest(tpm2.AlgSHA256, make([]byte, 32))
	require.NoError(t, err)
	require.NoError(t, bank.Set(tpm2.AlgSHA256, 0, d))

	err = Replay(log, bank, nil)
	require.Error(t, err) // quote selects SHA256 but log never mentions it
	var invalidAlg *InvalidAlgError
	require.ErrorAs(t, err, &invalidAlg)
}

func TestReplaySeedsStartupLocality(t *testing.T) {
	localityEvent := append([]byte(startupLocalitySignature), byte(3))
	log := buildLog(t, []rawEvent{
		{PCRIndex: 17, Type: NoAction, Digests: map[tpm2.Algorithm][]byte{tpm2.AlgSHA256: make([]byte, 32)}, Data: localityEvent},
	})

	bank := tpmtype.NewPCRBank()
	seed := make([]byte, 32)
	seed[31] = 3
	d, err := tpmtype.NewDigest(tpm2.AlgSHA256, seed)
	require.NoError(t, err)
	require.NoError(t, bank.Set(tpm2.AlgSHA256, 17, d))

	require.NoError(t, Replay(log, bank, nil))
}
