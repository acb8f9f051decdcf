package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/middleware"
	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/pkg/utils"
)

// AccountService is the account store used by AuthHandler.
type AccountService interface {
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// SessionManager issues and revokes session tokens.
type SessionManager interface {
	CreateSession(ctx context.Context, userID uuid.UUID) (string, error)
	InvalidateSession(ctx context.Context, token string) error
}

type AuthHandler struct {
	accounts AccountService
	sessions SessionManager
	logger   *zap.Logger
}

func NewAuthHandler(accounts AccountService, sessions SessionManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type checkUsernameRequest struct {
	Username string `json:"username"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

// CheckUsername reports whether a username can still be registered.
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req checkUsernameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	available, err := h.accounts.UsernameAvailable(r.Context(), req.Username)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	message := "Username is already taken"
	if available {
		message = "Username is available"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"available": available,
		"username":  utils.NormalizeUsername(req.Username),
		"message":   message,
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.Info("account created", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "Account created successfully",
		User:    user,
	})
}

// Signin verifies the credentials and opens a session.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	token, err := h.sessions.CreateSession(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

// Signout revokes the bearer token of the request.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing session token")
		return
	}
	if err := h.sessions.InvalidateSession(r.Context(), token); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, errorResponse{Success: true, Message: "Signed out"})
}
