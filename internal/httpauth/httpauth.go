// Package httpauth implements the ticket-then-basic authentication chain
// for the bridge's REST API, validated against the source repository.
package httpauth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	Username string
	Roles    []string
}

const roleUser = "ROLE_USER"

type contextKey int

const principalKey contextKey = 0

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// CurrentPrincipal returns the request's authenticated principal, if any.
func CurrentPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// TicketValidator validates a ticket against the source repository's
// "-me-" endpoint and resolves the true username.
type TicketValidator interface {
	ValidateTicket(ctx context.Context, ticket string) (username string, ok bool, err error)
}

// BasicValidator validates a username/password pair against the source
// repository's ticket-issue endpoint.
type BasicValidator interface {
	ValidateBasic(ctx context.Context, username, password string) (ok bool, err error)
}

// extractTicket returns the ticket from the alf_ticket query parameter or,
// failing that, from a bare Authorization: Basic header whose decoded
// value starts with TICKET_ and contains no colon.
func extractTicket(r *http.Request) (string, bool) {
	if t := r.URL.Query().Get("alf_ticket"); strings.HasPrefix(t, "TICKET_") {
		return t, true
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Basic ") {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", false
	}
	value := string(decoded)
	if strings.Contains(value, ":") || !strings.HasPrefix(value, "TICKET_") {
		return "", false
	}
	return value, true
}

func extractBasicCredentials(r *http.Request) (username, password string, ok bool) {
	return r.BasicAuth()
}

// Middleware authenticates each request via the ticket-first-then-basic
// chain, attaching a Principal with ROLE_USER to the context on success.
// Unauthenticated requests receive 401 with a standard challenge.
func Middleware(tickets TicketValidator, basic BasicValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ticket, found := extractTicket(r); found {
				username, ok, err := tickets.ValidateTicket(r.Context(), ticket)
				if err == nil && ok {
					r.Header.Del("Authorization")
					ctx := WithPrincipal(r.Context(), Principal{Username: username, Roles: []string{roleUser}})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			if username, password, found := extractBasicCredentials(r); found {
				ok, err := basic.ValidateBasic(r.Context(), username, password)
				if err == nil && ok {
					ctx := WithPrincipal(r.Context(), Principal{Username: username, Roles: []string{roleUser}})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="alfresco-lake-bridge"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}
