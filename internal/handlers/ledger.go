package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/services"
)

type LedgerHandler struct {
	ledger *services.Ledger
	logger *zap.Logger
}

func NewLedgerHandler(ledger *services.Ledger, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// ledgerDeltaRequest is a raw delta against one day. An empty date is today.
type ledgerDeltaRequest struct {
	Date string `json:"date"`
	models.MacroDelta
}

type recordResponse struct {
	Success bool                     `json:"success"`
	Record  *models.DailyMacroRecord `json:"record"`
}

// Get returns the totals for ?date= (default today) and the current streak.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rec, err := h.ledger.GetRecord(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	streak, err := h.ledger.Streak(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"record":  rec,
		"streak":  streak,
	})
}

// Range returns the existing records between ?start= and ?end= inclusive.
func (h *LedgerHandler) Range(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	records, err := h.ledger.GetRange(r.Context(), userID, q.Get("start"), q.Get("end"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"records": records,
	})
}

func (h *LedgerHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ledgerDeltaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.ledger.AddToRecord(r.Context(), userID, req.MacroDelta, req.Date)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Record: rec})
}

func (h *LedgerHandler) Subtract(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ledgerDeltaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.ledger.SubtractFromRecord(r.Context(), userID, req.MacroDelta, req.Date)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Record: rec})
}
