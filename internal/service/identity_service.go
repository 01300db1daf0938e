package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Service) handleBind(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UniqueID  string `json:"unique_id"`
		Principal string `json:"principal"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeCode(w, http.StatusBadRequest, "BAD_JSON")
		return
	}
	if err := s.identities.Bind(r.Context(), req.UniqueID, req.Principal); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"unique_id": req.UniqueID,
		"principal": req.Principal,
	})
}

func (s *Service) handleResolveID(w http.ResponseWriter, r *http.Request) {
	principal := chi.URLParam(r, "principal")
	uniqueID, err := s.identities.Resolve(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"principal": principal,
		"unique_id": uniqueID,
	})
}

func (s *Service) handleResolveWallet(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uid")
	principal, err := s.identities.ResolveWallet(r.Context(), uniqueID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"unique_id": uniqueID,
		"principal": principal,
	})
}

func (s *Service) handleBindingCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.identities.BindingCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *Service) handleExtendBinding(w http.ResponseWriter, r *http.Request) {
	if err := s.identities.ExtendBindingTTL(r.Context(), chi.URLParam(r, "principal")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}
