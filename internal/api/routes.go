package api

import (
	"context"
	"net/http"

	"formsync/internal/auth"
	"formsync/internal/schema"
	"formsync/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Checker reports whether a backing service is reachable
type Checker func(ctx context.Context) error

type Dependencies struct {
	Pipeline     *service.Pipeline
	Schemas      *schema.Compiler
	JWT          *auth.JWTConfig
	Ready        map[string]Checker
	MaxBodyBytes int64
	Log          *zap.Logger
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	// Add request logging middleware
	r.Use(RequestLogger(d.Log))

	// Public form endpoint
	r.Post("/submit", d.submit)

	// Operator endpoints
	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(d.JWT.RequireRole(auth.RoleAdmin))
		r.Post("/submissions/{id}/sync", d.resyncSubmission)
	})

	// Health checks
	r.Get("/healthz", d.healthz)
	r.Get("/readyz", d.readyz)

	return r
}
