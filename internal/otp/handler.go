package otp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/auth"
	"github.com/frahmantamala/identity-service/internal/principal"
	"github.com/frahmantamala/identity-service/internal/transport"
	"github.com/frahmantamala/identity-service/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// SendOTP returns the code-request handler for one scope. Unlike many
// recovery flows this one reports an unknown email as 404 rather than a
// blind 200.
func (h *Handler) SendOTP(scope Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto SendOTPDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := h.Service.Request(r.Context(), scope, dto)
		if err != nil {
			h.Logger.Error("recovery code request failed", "scope", scope, "error", err)
			h.writeServiceError(w, err)
			return
		}

		h.WriteData(w, http.StatusOK, result)
	}
}

// VerifyOTP trades a correct code for a reset token.
func (h *Handler) VerifyOTP(scope Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto VerifyOTPDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resetToken, err := h.Service.Verify(r.Context(), scope, dto)
		if err != nil {
			h.Logger.Warn("recovery code verification failed", "scope", scope, "error", err)
			h.writeServiceError(w, err)
			return
		}

		h.WriteData(w, http.StatusOK, map[string]string{"reset_token": resetToken})
	}
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.Reset(r.Context(), dto); err != nil {
		h.Logger.Warn("password reset failed", "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteError(w, appErr.StatusCode, appErr.GetDetailedMessage())
		return
	}

	switch {
	case errors.Is(err, principal.ErrNotFound):
		h.WriteError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ErrCodeInvalid):
		h.WriteError(w, http.StatusUnauthorized, "recovery code is invalid or expired")
	case errors.Is(err, ErrResetTokenInvalid):
		h.WriteError(w, http.StatusUnauthorized, "reset token is invalid or expired")
	case errors.Is(err, ErrPasswordMismatch):
		h.WriteError(w, http.StatusBadRequest, "password confirmation does not match")
	case errors.Is(err, auth.ErrPasswordUnchanged):
		h.WriteError(w, http.StatusBadRequest, "new password must differ from the current password")
	default:
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
