package httpapi

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newMultipartPost(t *testing.T, parts map[string][]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range parts {
		fw, err := w.CreateFormField(name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf
}

func TestParseMultipartReadsKnownFields(t *testing.T) {
	body := newMultipartPost(t, map[string][]byte{
		"quote":  []byte("quote-bytes"),
		"sig":    []byte("sig-bytes"),
		"pcr":    []byte("pcr-bytes"),
		"nonce":  []byte("nonce-bytes"),
		"ak.pub": []byte("ak-bytes"),
		"ek.pub": []byte("ek-bytes"),
		"extra":  []byte("ignored"),
	})

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundaryOf(t, body))

	parsed, err := parseMultipart(req, 1<<20)
	require.NoError(t, err)
	require.Equal(t, []byte("quote-bytes"), parsed.Quote)
	require.Equal(t, []byte("ak-bytes"), parsed.AKPub)
}

func TestParseMultipartRejectsNonMultipart(t *testing.T) {
	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte("plain")))
	req.Header.Set("Content-Type", "text/plain")

	_, err := parseMultipart(req, 1<<20)
	require.Error(t, err)
}

func TestParseMultipartEnforcesPartSizeLimit(t *testing.T) {
	body := newMultipartPost(t, map[string][]byte{
		"quote": bytes.Repeat([]byte{0x01}, 100),
	})
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundaryOf(t, body))

	_, err := parseMultipart(req, 10)
	require.Error(t, err)
}

// boundaryOf re-derives the boundary used by newMultipartPost by re-reading
// the buffer's first line, since multipart.Writer does not expose a way to
// recover it after Close without capturing it at creation time.
func boundaryOf(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	data := buf.Bytes()
	i := bytes.IndexByte(data, '\n')
	require.Greater(t, i, 2)
	line := bytes.TrimRight(data[:i], "\r\n")
	require.True(t, bytes.HasPrefix(line, []byte("--")))
	return string(line[2:])
}
