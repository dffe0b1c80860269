// Package orchestrator implements spec.md §4.6's request state machine:
// Receive → ValidateInputs → ParseAK → ValidateAK → ValidateQuote →
// ValidateEventLog → InvokePolicy → Seal → Respond. Every transition is
// forward-only; the first failure terminates the machine with one of the
// nine error kinds in error.go. Rewritten from the reference's
// exception-as-control-flow style (spec.md §9) into explicit result values,
// in the same vein as the teacher's server/verify.go returning
// (bool, error) rather than panicking.
package orchestrator

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/sirupsen/logrus"

	"github.com/attestd/attestd/internal/akpolicy"
	"github.com/attestd/attestd/internal/eventlog"
	"github.com/attestd/attestd/internal/metrics"
	"github.com/attestd/attestd/internal/policyrunner"
	"github.com/attestd/attestd/internal/quoteverify"
	"github.com/attestd/attestd/internal/sealer"
	"github.com/attestd/attestd/internal/tpmwire"
	"github.com/attestd/attestd/internal/workspace"
)

// Request is the parsed multipart body of spec.md §6: the six required
// parts plus the two optional logs.
type Request struct {
	Quote  []byte
	Sig    []byte
	PCR    []byte
	Nonce  []byte
	AKPub  []byte
	EKPub  []byte

	EventLog []byte // optional
	IMALog   []byte // optional
}

// missingField returns the name of the first empty mandatory part for the
// MISSING_FIELD check, in the order spec.md §6 lists them, or "" if none.
func (r *Request) missingField() string {
	switch {
	case len(r.Quote) == 0:
		return "quote"
	case len(r.Sig) == 0:
		return "sig"
	case len(r.PCR) == 0:
		return "pcr"
	case len(r.Nonce) == 0:
		return "nonce"
	case len(r.AKPub) == 0:
		return "ak.pub"
	case len(r.EKPub) == 0:
		return "ek.pub"
	}
	return ""
}

// NonceValidator optionally checks server-issued nonce freshness, per
// spec.md §9's deferred-but-hooked design note. Nil preserves the
// client-nonce path: nonce bytes in, equality check in quoteverify, out.
type NonceValidator func(nonce []byte) error

// Options configures an Orchestrator.
type Options struct {
	WorkspaceBaseDir string
	PolicyBinPath    string
	PolicyTimeout    time.Duration
	AllowSHA1        bool
	RequireEventLog  bool
	NonceValidator   NonceValidator
	Log              logrus.FieldLogger
}

// Orchestrator runs spec.md §4.6's state machine for one request at a time;
// it holds no mutable state of its own (Options is read-only), so a single
// value is safe to share across concurrent goroutines per spec.md §5.
type Orchestrator struct {
	opts Options
}

func New(opts Options) *Orchestrator {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Orchestrator{opts: opts}
}

// Handle runs one request through the full pipeline, returning the sealed
// response on success or a single *Error otherwise.
func (o *Orchestrator) Handle(ctx context.Context, req *Request) (*sealer.SealedResponse, error) {
	// ValidateInputs
	if field := req.missingField(); field != "" {
		return nil, newErr(KindMissingField, field, nil)
	}
	if len(req.Nonce) < 8 {
		return nil, newErr(KindMalformed, "nonce shorter than 8 bytes", nil)
	}
	if o.opts.RequireEventLog && len(req.EventLog) == 0 {
		return nil, newErr(KindMissingField, "eventlog", nil)
	}

	// ParseAK (and every other wire structure)
	ak, err := tpmwire.DecodeAKPublic(req.AKPub)
	if err != nil {
		return nil, newErr(KindMalformed, "ak.pub", err)
	}
	ek, err := tpmwire.DecodeEKPublic(req.EKPub)
	if err != nil {
		return nil, newErr(KindMalformed, "ek.pub", err)
	}
	quote, err := tpmwire.DecodeQuote(req.Quote)
	if err != nil {
		return nil, newErr(KindMalformed, "quote", err)
	}
	sig, err := tpmwire.DecodeSignature(req.Sig)
	if err != nil {
		return nil, newErr(KindMalformed, "sig", err)
	}
	clientPCRs, err := tpmwire.ParsePCRFile(req.PCR)
	if err != nil {
		return nil, newErr(KindMalformed, "pcr", err)
	}

	// ValidateAK
	if err := akpolicy.Check(ak); err != nil {
		return nil, newErr(KindBadAK, err.Error(), err)
	}

	if !o.opts.AllowSHA1 {
		for _, alg := range clientPCRs.Selection().Algs() {
			if alg == tpm2.AlgSHA1 {
				return nil, newErr(KindBadQuote, "SHA-1 PCR bank not permitted", nil)
			}
		}
	}

	if o.opts.NonceValidator != nil {
		if err := o.opts.NonceValidator(req.Nonce); err != nil {
			return nil, newErr(KindBadQuote, "nonce freshness check failed", err)
		}
	}

	// ValidateQuote
	verifiedPCRs, err := quoteverify.Verify(req.Nonce, quote, sig, clientPCRs, ak)
	if err != nil {
		return nil, newErr(KindBadQuote, err.Error(), err)
	}

	// ValidateEventLog
	if len(req.EventLog) > 0 {
		if err := eventlog.Replay(req.EventLog, verifiedPCRs, o.opts.Log); err != nil {
			switch e := err.(type) {
			case *eventlog.InvalidAlgError:
				return nil, newErr(KindInvalidEventLogAlg, e.Alg.String(), err)
			case *eventlog.BadEventLogError:
				return nil, newErr(KindBadEventLog, err.Error(), err)
			default:
				return nil, newErr(KindBadEventLog, err.Error(), err)
			}
		}
	}
	if len(req.IMALog) > 0 {
		if err := eventlog.ReplayIMA(req.IMALog, verifiedPCRs); err != nil {
			return nil, newErr(KindBadEventLog, err.Error(), err)
		}
	}

	// InvokePolicy
	ws, err := workspace.New(o.opts.WorkspaceBaseDir)
	if err != nil {
		return nil, newErr(KindSealingFailed, "creating workspace", err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			o.opts.Log.WithError(cerr).Warn("failed to clean up request workspace")
		}
	}()

	if err := writeWorkspace(ws, req); err != nil {
		return nil, newErr(KindSealingFailed, "staging workspace", err)
	}

	ekHash, err := ek.Hash()
	if err != nil {
		return nil, newErr(KindBadEK, "hashing ek.pub", err)
	}

	policyCtx := ctx
	if o.opts.PolicyTimeout > 0 {
		var policyCancel context.CancelFunc
		policyCtx, policyCancel = context.WithTimeout(ctx, o.opts.PolicyTimeout)
		defer policyCancel()
	}

	runner := &policyrunner.Runner{BinPath: o.opts.PolicyBinPath, Log: o.opts.Log}
	start := time.Now()
	payload, err := runner.Run(policyCtx, hex.EncodeToString(ekHash), ws.Dir())
	metrics.PolicyVerifierDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, newErr(KindVerifyFailed, err.Error(), err)
	}

	// Seal
	resp, err := sealer.Seal(payload, ak, ek)
	if err != nil {
		var badEK *sealer.BadEKError
		if errors.As(err, &badEK) {
			return nil, newErr(KindBadEK, badEK.Reason, err)
		}
		return nil, newErr(KindSealingFailed, err.Error(), err)
	}

	// Respond
	return resp, nil
}

func writeWorkspace(ws *workspace.Workspace, req *Request) error {
	fields := map[string][]byte{
		"quote":  req.Quote,
		"sig":    req.Sig,
		"pcr":    req.PCR,
		"nonce":  req.Nonce,
		"ak.pub": req.AKPub,
		"ek.pub": req.EKPub,
	}
	if len(req.EventLog) > 0 {
		fields["eventlog"] = req.EventLog
	}
	if len(req.IMALog) > 0 {
		fields["imalog"] = req.IMALog
	}
	for name, data := range fields {
		if _, err := ws.WriteFile(name, data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
