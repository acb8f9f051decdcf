package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/services"
)

type FoodHandler struct {
	foods  *services.FoodLogService
	logger *zap.Logger
}

func NewFoodHandler(foods *services.FoodLogService, logger *zap.Logger) *FoodHandler {
	return &FoodHandler{foods: foods, logger: logger}
}

type foodResponse struct {
	Success bool                     `json:"success"`
	Entry   *models.FoodLogEntry     `json:"entry,omitempty"`
	Record  *models.DailyMacroRecord `json:"record"`
}

// List returns the foods logged on ?date= (default today).
func (h *FoodHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.foods.ListFoods(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": entries,
	})
}

func (h *FoodHandler) Log(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in services.FoodInput
	if !decodeJSON(w, r, &in) {
		return
	}

	entry, rec, err := h.foods.LogFood(r.Context(), userID, in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, foodResponse{Success: true, Entry: entry, Record: rec})
}

func (h *FoodHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in services.FoodInput
	if !decodeJSON(w, r, &in) {
		return
	}

	entry, rec, err := h.foods.UpdateFood(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, foodResponse{Success: true, Entry: entry, Record: rec})
}

func (h *FoodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rec, err := h.foods.DeleteFood(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, foodResponse{Success: true, Record: rec})
}
