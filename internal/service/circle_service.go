package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/models"
)

func (s *Service) handleCreateCircle(w http.ResponseWriter, r *http.Request) {
	var config models.CircleConfig
	if err := readJSON(w, r, &config); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}

	creator := auth.PrincipalFromContext(r.Context())
	id, err := s.circles.Create(r.Context(), creator, config)
	if err != nil {
		writeError(w, err)
		return
	}

	circle, err := s.circles.GetCircle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, circle)
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	member := auth.PrincipalFromContext(r.Context())
	position, err := s.circles.Join(r.Context(), member, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"position": position})
}

func (s *Service) handleJoinByInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}

	member := auth.PrincipalFromContext(r.Context())
	position, err := s.circles.JoinByInvite(r.Context(), member, req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"position": position})
}

func (s *Service) handleContribute(w http.ResponseWriter, r *http.Request) {
	member := auth.PrincipalFromContext(r.Context())
	record, err := s.circles.Contribute(r.Context(), member, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Service) handlePayout(w http.ResponseWriter, r *http.Request) {
	record, err := s.circles.Payout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	caller := auth.PrincipalFromContext(r.Context())
	if err := s.circles.Start(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (s *Service) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller := auth.PrincipalFromContext(r.Context())
	if err := s.circles.Cancel(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Service) handleGetCircle(w http.ResponseWriter, r *http.Request) {
	circle, err := s.circles.GetCircle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, circle)
}

func (s *Service) handleGetCircleByInvite(w http.ResponseWriter, r *http.Request) {
	circle, err := s.circles.GetCircleByInvite(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, circle)
}

func (s *Service) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.circles.GetMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "principal"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *Service) handleProgress(w http.ResponseWriter, r *http.Request) {
	count, total, err := s.circles.ContributionStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contributed": count,
		"total":       total,
	})
}

func (s *Service) handleCircleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.circles.CircleCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Balance(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}
