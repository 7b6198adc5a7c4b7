// Package api implements HTTP handlers and helpers for the RateDesk service.
package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	Carrier string
	Role    string // admin, dispatcher, user
}

// getPrincipal extracts carrier and role from JWT or headers.
// - If Authorization: Bearer is present, uses the configured verifier (dev/hmac).
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{Carrier: pr.Carrier, Role: pr.Role}
		}
	}
	carrier := r.Header.Get("X-Carrier-Id")
	role := r.Header.Get("X-Role")
	if carrier == "" {
		carrier = "c_demo"
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Carrier: carrier, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }
