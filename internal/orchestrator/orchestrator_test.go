package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullRequest() *Request {
	return &Request{
		Quote: []byte("quote"),
		Sig:   []byte("sig"),
		PCR:   []byte("pcr"),
		Nonce: []byte("12345678"),
		AKPub: []byte("ak.pub"),
		EKPub: []byte("ek.pub"),
	}
}

func TestHandleRejectsMissingField(t *testing.T) {
	o := New(Options{})
	req := fullRequest()
	req.Quote = nil

	_, err := o.Handle(context.Background(), req)
	require.Error(t, err)
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	require.Equal(t, KindMissingField, oerr.Kind)
	require.Equal(t, "quote", oerr.Detail)
}

func TestHandleRejectsShortNonce(t *testing.T) {
	o := New(Options{})
	req := fullRequest()
	req.Nonce = []byte("short")

	_, err := o.Handle(context.Background(), req)
	require.Error(t, err)
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	require.Equal(t, KindMalformed, oerr.Kind)
}

func TestHandleRequiresEventLogWhenConfigured(t *testing.T) {
	o := New(Options{RequireEventLog: true})
	req := fullRequest()

	_, err := o.Handle(context.Background(), req)
	require.Error(t, err)
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	require.Equal(t, KindMissingField, oerr.Kind)
	require.Equal(t, "eventlog", oerr.Detail)
}

func TestHandleRejectsMalformedAKPub(t *testing.T) {
	o := New(Options{})
	req := fullRequest()

	_, err := o.Handle(context.Background(), req)
	require.Error(t, err)
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	require.Equal(t, KindMalformed, oerr.Kind)
	require.Equal(t, "ak.pub", oerr.Detail)
}

func TestErrorStatusMapping(t *testing.T) {
	require.Equal(t, 403, newErr(KindBadAK, "", nil).Status())
	require.Equal(t, 500, newErr(KindSealingFailed, "", nil).Status())
}

func TestErrorReasonPhraseIncludesAlgForInvalidEventLogAlg(t *testing.T) {
	e := newErr(KindInvalidEventLogAlg, "sha1", nil)
	require.Equal(t, "INVALID_EVENTLOG_ALG:sha1", e.ReasonPhrase())
}
