package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
	"github.com/AnshRaj112/macrolog-backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

type manualTargetsRequest struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fats    float64 `json:"fats"`
}

type targetsResponse struct {
	Success bool                   `json:"success"`
	Targets nutrition.MacroTargets `json:"targets"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profile,
	})
}

// Onboarding stores the biometric profile and returns the computed targets.
func (h *ProfileHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var p nutrition.Profile
	if !decodeJSON(w, r, &p) {
		return
	}

	targets, err := h.profiles.CompleteOnboarding(r.Context(), userID, p)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, targetsResponse{Success: true, Targets: targets})
}

func (h *ProfileHandler) SetTargets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req manualTargetsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	targets, err := h.profiles.SetManualTargets(r.Context(), userID, req.Protein, req.Carbs, req.Fats)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, targetsResponse{Success: true, Targets: targets})
}

func (h *ProfileHandler) GetTargets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	targets, err := h.profiles.GetTargets(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, targetsResponse{Success: true, Targets: targets})
}

// Calculate previews the targets for a profile without storing anything.
func (h *ProfileHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var p nutrition.Profile
	if !decodeJSON(w, r, &p) {
		return
	}

	targets, err := nutrition.CalculateTargets(p)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, targetsResponse{Success: true, Targets: targets})
}
