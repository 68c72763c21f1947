package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"formsync/internal/schema"
	"formsync/internal/service"

	"go.uber.org/zap"
)

const submitContentType = "text/plain"

func (d Dependencies) submit(w http.ResponseWriter, r *http.Request) {
	if !isTextPlain(r.Header.Get("Content-Type")) {
		d.Log.Debug("Rejected submission content type", zap.String("content_type", r.Header.Get("Content-Type")))
		Reject(w)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.MaxBodyBytes))
	if err != nil {
		d.Log.Debug("Rejected submission body", zap.Error(err))
		Reject(w)
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		Reject(w)
		return
	}
	if err := d.Schemas.Validate(r.Context(), schema.SubmitBody, raw); err != nil {
		d.Log.Debug("Rejected submission shape", zap.Error(err))
		Reject(w)
		return
	}

	res, err := d.Pipeline.Submit(r.Context(), service.SubmitInput{
		Raw:    raw,
		Origin: r.Header.Get("Origin"),
		Meta: service.RequestMeta{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		},
	})

	var perr *service.PipelineError
	switch {
	case errors.Is(err, service.ErrRejected):
		Reject(w)
		return
	case errors.As(err, &perr):
		setAllowOrigin(w, perr.AllowOrigin)
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSubmitDisabled) {
			status = http.StatusForbidden
		}
		WriteError(w, status, perr.Messages.Error, d.Log)
		return
	case err != nil:
		WriteError(w, http.StatusInternalServerError, "", d.Log)
		return
	}

	setAllowOrigin(w, res.AllowOrigin)
	data := map[string]string{"message": res.Messages.Success}
	if res.Redirect != "" {
		data = map[string]string{"redirect": res.Redirect}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"data": data}, d.Log)
}

// isTextPlain reports whether the content type is exactly text/plain,
// ignoring case and surrounding whitespace.
func isTextPlain(contentType string) bool {
	return strings.EqualFold(strings.TrimSpace(contentType), submitContentType)
}

func setAllowOrigin(w http.ResponseWriter, origin string) {
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	if origin != service.AnyOrigin {
		w.Header().Add("Vary", "Origin")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
