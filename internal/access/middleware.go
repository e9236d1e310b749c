package access

import (
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

// Authorization guards routes with admin and area checks against the
// authenticated actor.
type Authorization struct {
	*transport.BaseHandler
	checker Checker
}

func NewAuthorization(baseHandler *transport.BaseHandler, checker Checker) *Authorization {
	return &Authorization{
		BaseHandler: baseHandler,
		checker:     checker,
	}
}

func (a *Authorization) guard(name string, allowed func(r *http.Request, actor *internal.Actor) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				a.Logger.Warn("authorization check failed: actor not found in context")
				a.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ok, err := allowed(r, actor)
			if err != nil {
				a.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "email", actor.NormalizedEmail(), "check", name)
				a.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !ok {
				a.Logger.WarnContext(r.Context(), "access denied", "email", actor.NormalizedEmail(), "check", name)
				a.HandleServiceError(w, internal.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authorization) RequireAdmin() func(http.Handler) http.Handler {
	return a.guard("admin", func(r *http.Request, actor *internal.Actor) (bool, error) {
		return a.checker.HasAdminAccess(r.Context(), actor.Email)
	})
}

func (a *Authorization) RequireArea(area Area) func(http.Handler) http.Handler {
	return a.guard("area:"+string(area), func(r *http.Request, actor *internal.Actor) (bool, error) {
		return a.checker.HasAreaAccess(r.Context(), actor.Email, area)
	})
}

// RequireAnyArea admits admins and holders of at least one area.
func (a *Authorization) RequireAnyArea() func(http.Handler) http.Handler {
	return a.guard("any-area", func(r *http.Request, actor *internal.Actor) (bool, error) {
		rights, err := a.checker.Rights(r.Context(), actor.Email)
		if err != nil {
			return false, err
		}
		return rights.CanSeeAll(), nil
	})
}
