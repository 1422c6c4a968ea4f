package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ClinicID *int64 `json:"clinic_id,omitempty"`
	IsOwner  bool   `json:"is_owner"`
}

func genericLoginError(w http.ResponseWriter) {
	jsonError(w, http.StatusUnauthorized, "invalid credentials")
}

// Login authenticates any role through a single endpoint. Failures are
// counted per username; past the window limit the account answers 429
// until the window expires. The limiter only runs in production.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	blocked, err := h.Limiter.Blocked(r.Context(), req.Username)
	if err != nil {
		// Limiter backend trouble must not lock everyone out.
		log.Warn().Err(err).Msg("login limiter unavailable")
	}
	if blocked {
		jsonError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	u, err := repo.UserByUsername(r.Context(), h.Pool, req.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			_, _ = h.Limiter.Fail(r.Context(), req.Username)
			genericLoginError(w)
			return
		}
		h.repoError(w, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		_, _ = h.Limiter.Fail(r.Context(), req.Username)
		genericLoginError(w)
		return
	}
	_ = h.Limiter.Reset(r.Context(), req.Username)

	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, u.ID, u.Username, u.Name, u.Role, u.ClinicID, u.IsOwner)
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tok,
		ExpiresAt: time.Now().Add(auth.TokenTTL),
		User: UserInfo{
			ID:       u.ID,
			Username: u.Username,
			Name:     u.Name,
			Role:     u.Role,
			ClinicID: u.ClinicID,
			IsOwner:  u.IsOwner,
		},
	})
}

// Me returns the authenticated user's claims, mostly for the frontend to
// rehydrate its session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c := auth.ClaimsFrom(r.Context())
	if c == nil {
		jsonError(w, http.StatusUnauthorized, "authentication token not provided")
		return
	}
	writeJSON(w, http.StatusOK, UserInfo{
		ID:       c.UserID,
		Username: c.Username,
		Name:     c.Name,
		Role:     c.Role,
		ClinicID: c.ClinicID,
		IsOwner:  c.IsOwner,
	})
}
