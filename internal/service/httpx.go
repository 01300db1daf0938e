package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/circle"
	"github.com/kweku/susu/internal/credit"
	"github.com/kweku/susu/internal/identity"
	"github.com/kweku/susu/internal/ledger"
)

// maxBodyBytes caps request bodies; no legitimate request comes close.
const maxBodyBytes = 1 << 20

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"code": code})
}

// writeError maps engine sentinels to one stable code each; anything
// unrecognized is a 500 with the detail kept out of the response.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeCode(w, status, code)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, circle.ErrCircleNotFound):
		return http.StatusNotFound, "CIRCLE_NOT_FOUND"
	case errors.Is(err, circle.ErrInviteNotFound):
		return http.StatusNotFound, "INVITE_NOT_FOUND"
	case errors.Is(err, circle.ErrInvalidConfig):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, circle.ErrCircleNotForming):
		return http.StatusConflict, "CIRCLE_NOT_FORMING"
	case errors.Is(err, circle.ErrCircleNotActive):
		return http.StatusConflict, "CIRCLE_NOT_ACTIVE"
	case errors.Is(err, circle.ErrCircleFull):
		return http.StatusConflict, "CIRCLE_FULL"
	case errors.Is(err, circle.ErrAlreadyMember):
		return http.StatusConflict, "ALREADY_MEMBER"
	case errors.Is(err, circle.ErrNotMember):
		return http.StatusNotFound, "NOT_MEMBER"
	case errors.Is(err, circle.ErrAlreadyContributed):
		return http.StatusConflict, "ALREADY_CONTRIBUTED"
	case errors.Is(err, circle.ErrRoundIncomplete):
		return http.StatusConflict, "ROUND_INCOMPLETE"
	case errors.Is(err, circle.ErrNotEnoughMembers):
		return http.StatusConflict, "NOT_ENOUGH_MEMBERS"
	case errors.Is(err, circle.ErrUnauthorized),
		errors.Is(err, credit.ErrUnauthorized),
		errors.Is(err, auth.ErrNotApproved):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, credit.ErrUserNotFound):
		return http.StatusNotFound, "PROFILE_NOT_FOUND"
	case errors.Is(err, credit.ErrCallerAlreadyAuthorized):
		return http.StatusConflict, "CALLER_EXISTS"
	case errors.Is(err, identity.ErrIDAlreadyBound):
		return http.StatusConflict, "ID_ALREADY_BOUND"
	case errors.Is(err, identity.ErrWalletAlreadyBound):
		return http.StatusConflict, "WALLET_ALREADY_BOUND"
	case errors.Is(err, identity.ErrWalletNotBound),
		errors.Is(err, identity.ErrIDNotBound):
		return http.StatusNotFound, "BINDING_NOT_FOUND"
	case errors.Is(err, identity.ErrInvalidID):
		return http.StatusBadRequest, "INVALID_ID"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict, "INSUFFICIENT_BALANCE"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "WEAK_PASSWORD"
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict, "EMAIL_EXISTS"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
