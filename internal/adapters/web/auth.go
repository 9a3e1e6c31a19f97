package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smeaudit/internal/ai"
	"smeaudit/internal/core"
)

type authClaimsKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID    int
	CompanyID int
	Role      string
}

// Scope is the tenant the claims grant access to.
func (c *AuthClaims) Scope() ai.Scope {
	return ai.Scope{CompanyID: c.CompanyID, UserID: c.UserID}
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID    int    `json:"user_id"`
	CompanyID int    `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken signs an HS256 token for u that expires after h.tokenTTL.
func (h *Handler) issueToken(u *core.User) (string, time.Time, error) {
	now := h.now()
	expires := now.Add(h.tokenTTL)
	claims := &jwtClaims{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		Role:      u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (h *Handler) parseToken(raw string) (*AuthClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &AuthClaims{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}

// bearerToken returns the token from "Authorization: Bearer <token>", or "".
func bearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// RequireAuth validates the bearer token and injects AuthClaims into the request context.
// Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return h.requireAuth(next, false)
}

// RequireStreamAuth is RequireAuth that also accepts the token in the "token" query
// parameter, since EventSource clients cannot set headers.
func (h *Handler) RequireStreamAuth(next http.Handler) http.Handler {
	return h.requireAuth(next, true)
}

func (h *Handler) requireAuth(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" && allowQuery {
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		claims, err := h.parseToken(raw)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), authClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, "username and password are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	user, err := h.svc.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	token, expires, err := h.issueToken(user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: *user})
}

// logout handles POST /api/auth/logout. Tokens are stateless, so the client discards its
// copy and the server only acknowledges.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	user, err := h.svc.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
