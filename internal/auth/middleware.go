package auth

import (
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

// Middleware authenticates bearer tokens and stores the actor on the request.
type Middleware struct {
	*transport.BaseHandler
	verifier Verifier
}

func NewMiddleware(baseHandler *transport.BaseHandler, verifier Verifier) *Middleware {
	return &Middleware{BaseHandler: baseHandler, verifier: verifier}
}

func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			m.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		actor, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithActor(r.Context(), actor)
		ctx = logger.With(ctx, "email", actor.NormalizedEmail())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
