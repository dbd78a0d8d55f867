package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"mercator-hq/sentinel/pkg/authz"
)

// SubjectExtractor resolves the authenticated subject for a request. It is
// supplied by the surrounding authentication layer; returning nil means
// the caller holds no roles.
type SubjectExtractor func(r *http.Request) authz.Subject

// Authorization returns middleware enforcing the engine's decisions.
// Denied requests receive 403 Forbidden. Only the request's path component
// and method participate in the decision; the query string does not.
//
// A nil engine or extractor is a wiring error by the caller and is
// rejected at construction rather than silently denying traffic.
func Authorization(engine *authz.Engine, extract SubjectExtractor) (func(http.Handler) http.Handler, error) {
	if engine == nil {
		return nil, fmt.Errorf("authorization engine cannot be nil")
	}
	if extract == nil {
		return nil, fmt.Errorf("subject extractor cannot be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := extract(r)

			if !engine.IsAllowed(r.Context(), r.URL.Path, r.Method, subject) {
				slog.Debug("request denied by authorization policy",
					"path", r.URL.Path,
					"method", r.Method,
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
