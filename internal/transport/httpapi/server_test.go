package httpapi

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/attestd/attestd/internal/orchestrator"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestHandleAttestRejectsMissingFields(t *testing.T) {
	orch := orchestrator.New(orchestrator.Options{})
	handler := New(orch, discardLogger(), 1<<20, 1<<20)

	body := newMultipartPost(t, map[string][]byte{
		"quote": []byte("q"),
	})
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundaryOf(t, body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, 403, rec.Code)
}

func TestHandleAttestRejectsWrongMethod(t *testing.T) {
	orch := orchestrator.New(orchestrator.Options{})
	handler := New(orch, discardLogger(), 1<<20, 1<<20)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, 405, rec.Code)
}
