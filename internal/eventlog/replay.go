package eventlog

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/sirupsen/logrus"

	"github.com/attestd/attestd/internal/tpmtype"
)

// errUnsupportedAlg marks a log digest whose algorithm this server cannot
// size. It surfaces from parseLog, and Replay reports that parse failure as a
// BAD_EVENTLOG error, not as an InvalidAlgError.
var errUnsupportedAlg = errors.New("unsupported event log hash algorithm")

// InvalidAlgError reports that the quote selects a PCR bank for which the
// event log carries no digests, or whose hash function is unavailable.
type InvalidAlgError struct {
	Alg tpm2.Algorithm
}

func (e *InvalidAlgError) Error() string {
	return fmt.Sprintf("eventlog: INVALID_EVENTLOG_ALG:%v", e.Alg)
}

// BadEventLogError reports that the log replayed to a different PCR value
// than the quote attests, for some (alg, pcr) pair present in both.
type BadEventLogError struct {
	Alg tpm2.Algorithm
	PCR int
}

func (e *BadEventLogError) Error() string {
	return fmt.Sprintf("eventlog: replayed PCR%d (%v) does not match quoted value", e.PCR, e.Alg)
}

// Replay implements spec.md §4.4: fold-extend every event in the binary log
// into a per-(alg,pcr) accumulator, seeding PCRs 17-22 from any
// StartupLocality pseudo-event, and compare the result against the quoted
// PCR bank for every (alg,pcr) pair the log actually touches. PCR entries the
// quote selected but the log never mentions are accepted unchanged (the log
// makes no claim about them), and log digests for a bank the quote did not
// select are ignored. A bank the quote selects but that no log event carries
// a digest for is an INVALID_EVENTLOG_ALG failure. log receives one Debug
// record per event, classified by EventType.String(); a nil log is replaced
// with logrus's standard logger.
func Replay(raw []byte, quoted tpmtype.PCRBank, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	events, err := parseLog(raw)
	if err != nil {
		return fmt.Errorf("eventlog: BAD_EVENTLOG: %w", err)
	}

	sel := quoted.Selection()
	wanted := map[tpm2.Algorithm]bool{}
	for _, alg := range sel.Algs() {
		wanted[alg] = true
	}

	acc := map[tpm2.Algorithm]map[int][]byte{}
	seenAlgs := map[tpm2.Algorithm]bool{}

	for _, ev := range events {
		log.WithFields(logrus.Fields{
			"pcr":  ev.PCRIndex,
			"type": ev.Type.String(),
		}).Debug("replaying event")

		for alg := range ev.Digests {
			if wanted[alg] {
				seenAlgs[alg] = true
			}
		}

		if ev.Type == NoAction {
			// EV_NO_ACTION events are informational (SpecID, StartupLocality,
			// NonHost markers) and are never extended into a PCR, per the TCG
			// PC Client Platform Firmware Profile.
			seedStartupLocality(ev, sel, acc)
			continue
		}
		for alg, digest := range ev.Digests {
			if !wanted[alg] {
				// A crypto-agile log commonly carries banks (e.g. SHA1) the
				// quote never selected; those are not replayed.
				continue
			}
			seenAlgs[alg] = true
			if acc[alg] == nil {
				acc[alg] = map[int][]byte{}
			}
			prev, ok := acc[alg][ev.PCRIndex]
			if !ok {
				prev = tpmtype.ZeroDigest(alg).Value
			}
			h, herr := alg.Hash()
			if herr != nil {
				return &InvalidAlgError{Alg: alg}
			}
			hf := h.New()
			hf.Write(prev)
			hf.Write(digest)
			acc[alg][ev.PCRIndex] = hf.Sum(nil)
		}
	}

	for alg := range wanted {
		if !seenAlgs[alg] {
			return &InvalidAlgError{Alg: alg}
		}
	}

	for _, alg := range sel.Algs() {
		for _, pcr := range sel.Indices(alg) {
			replayed, touched := acc[alg][pcr]
			if !touched {
				continue // log silent on this PCR: accepted per spec.md §4.4
			}
			quotedDigest, ok := quoted.Get(alg, pcr)
			if !ok {
				continue
			}
			if !bytes.Equal(replayed, quotedDigest.Value) {
				return &BadEventLogError{Alg: alg, PCR: pcr}
			}
		}
	}
	return nil
}

// seedStartupLocality sets the initial accumulator for PCRs 17-22 to
// 0x00...0N (N = locality, as the final byte) per spec.md §3, when a
// StartupLocality pseudo-event names the locality the S-RTM was started at.
func seedStartupLocality(ev rawEvent, sel tpmtype.PCRSelection, acc map[tpm2.Algorithm]map[int][]byte) {
	if len(ev.Data) < len(startupLocalitySignature)+1 {
		return
	}
	if string(ev.Data[:len(startupLocalitySignature)]) != startupLocalitySignature {
		return
	}
	locality := ev.Data[len(startupLocalitySignature)]
	for _, alg := range sel.Algs() {
		size := tpmtype.DigestSize(alg)
		if size == 0 {
			continue
		}
		seed := make([]byte, size)
		seed[size-1] = locality
		for pcr := 17; pcr <= 22; pcr++ {
			if !sel[alg][pcr] {
				continue
			}
			if acc[alg] == nil {
				acc[alg] = map[int][]byte{}
			}
			acc[alg][pcr] = seed
		}
	}
}
