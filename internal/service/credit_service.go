package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/credit"
)

// The mutating credit routes exist for out-of-band reporters (settlement
// reconciliation jobs, support tooling). The caller is the authenticated
// principal; the engine enforces the allow-list.

func (s *Service) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UniqueID string `json:"unique_id"`
		CircleID string `json:"circle_id"`
		Round    int    `json:"round"`
		Amount   int64  `json:"amount"`
		OnTime   bool   `json:"on_time"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}

	caller := auth.PrincipalFromContext(r.Context())
	score, err := s.credit.RecordPayment(r.Context(), caller, req.UniqueID, req.CircleID, req.Round, req.Amount, req.OnTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (s *Service) handleRecordMissed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UniqueID string `json:"unique_id"`
		CircleID string `json:"circle_id"`
		Round    int    `json:"round"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}

	caller := auth.PrincipalFromContext(r.Context())
	score, err := s.credit.RecordMissedPayment(r.Context(), caller, req.UniqueID, req.CircleID, req.Round)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (s *Service) handleRecordCompletion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UniqueID string `json:"unique_id"`
		CircleID string `json:"circle_id"`
		Success  bool   `json:"success"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}

	caller := auth.PrincipalFromContext(r.Context())
	score, err := s.credit.RecordCircleCompletion(r.Context(), caller, req.UniqueID, req.CircleID, req.Success)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (s *Service) handleDecay(w http.ResponseWriter, r *http.Request) {
	score, err := s.credit.ApplyDecay(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (s *Service) handleAuthorizeCaller(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.credit.AuthorizeCaller(r.Context(), req.Caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "authorized"})
}

func (s *Service) handleRevokeCaller(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.credit.RevokeCaller(r.Context(), req.Caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Service) handleListCallers(w http.ResponseWriter, r *http.Request) {
	callers, err := s.credit.AuthorizedCallers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"callers": callers})
}

func (s *Service) handleScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.credit.Score(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"score": score,
		"tier":  credit.TierForScore(score),
	})
}

func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.credit.Profile(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Service) handleTier(w http.ResponseWriter, r *http.Request) {
	tier, err := s.credit.Tier(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tier": tier})
}

func (s *Service) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.credit.Breakdown(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.credit.PaymentHistory(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": history})
}

func (s *Service) handleOnTimeRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.credit.OnTimeRate(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"on_time_rate": rate})
}

func (s *Service) handleUserCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.credit.UserCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}
