package httpapi

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/attestd/attestd/internal/orchestrator"
)

// fieldSetters maps a multipart part's field name to where its bytes land
// in an orchestrator.Request.
func fieldSetters(req *orchestrator.Request) map[string]*[]byte {
	return map[string]*[]byte{
		"quote":    &req.Quote,
		"sig":      &req.Sig,
		"pcr":      &req.PCR,
		"nonce":    &req.Nonce,
		"ak.pub":   &req.AKPub,
		"ek.pub":   &req.EKPub,
		"eventlog": &req.EventLog,
		"imalog":   &req.IMALog,
	}
}

// parseMultipart reads the POST / body per spec.md §6: required parts named
// quote/sig/pcr/nonce/ak.pub/ek.pub, optional eventlog/imalog. GET requests
// (and any other method chi would route here) never reach this function;
// the router only registers POST.
func parseMultipart(r *http.Request, maxPartBytes int64) (*orchestrator.Request, error) {
	if r.Method != http.MethodPost {
		return nil, &orchestrator.Error{Kind: orchestrator.KindMalformed, Detail: "method not allowed"}
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, &orchestrator.Error{Kind: orchestrator.KindMalformed, Detail: "expected multipart/form-data"}
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, &orchestrator.Error{Kind: orchestrator.KindMalformed, Detail: "multipart boundary missing"}
	}

	req := &orchestrator.Request{}
	setters := fieldSetters(req)

	mr := multipart.NewReader(r.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &orchestrator.Error{Kind: orchestrator.KindMalformed, Detail: "reading multipart body", Cause: err}
		}

		name := part.FormName()
		dst, known := setters[name]
		if !known {
			continue // ignore unrecognized parts rather than fail closed on client noise
		}

		data, err := readAllLimited(part, maxPartBytes)
		if err != nil {
			return nil, &orchestrator.Error{Kind: orchestrator.KindMalformed, Detail: fmt.Sprintf("reading part %q", name), Cause: err}
		}
		if int64(len(data)) > maxPartBytes {
			return nil, &orchestrator.Error{Kind: orchestrator.KindMalformed, Detail: fmt.Sprintf("part %q exceeds size limit", name)}
		}
		*dst = data
	}

	return req, nil
}
