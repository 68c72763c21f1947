package api

import (
	"errors"
	"net/http"

	"formsync/internal/auth"
	"formsync/internal/docstore"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (d Dependencies) resyncSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := d.Pipeline.Resync(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Submission not found", d.Log)
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), d.Log)
		return
	}

	d.Log.Info("Sheet resync requested",
		zap.String("submission_id", id),
		zap.String("subject", auth.GetSubject(r.Context())),
	)
	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"submissionId": id,
		"status":       "queued",
	}, d.Log)
}

func (d Dependencies) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (d Dependencies) readyz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(d.Ready))
	for name, check := range d.Ready {
		if err := check(r.Context()); err != nil {
			d.Log.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	WriteJSON(w, status, checks, d.Log)
}
