package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/middleware"
	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
	"github.com/AnshRaj112/macrolog-backend/internal/services"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
	"github.com/AnshRaj112/macrolog-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// respondError maps a service error to a status code. Only 5xx responses are
// logged; their messages never carry the underlying error.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var validation *utils.ValidationError

	switch {
	case errors.Is(err, nutrition.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username is already taken")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, services.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "Account is inactive")
	case errors.Is(err, services.ErrStoreUnavailable):
		logger.Error("storage unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a JSON body of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}
