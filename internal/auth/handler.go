package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/identity-service/internal"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
	"github.com/frahmantamala/identity-service/internal/transport"
	"github.com/frahmantamala/identity-service/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Tokens  TokenResolver
	Cookies *CookieWriter
}

func NewHandler(svc ServiceAPI, tokens TokenResolver, cookies *CookieWriter) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Tokens:      tokens,
		Cookies:     cookies,
	}
}

// Login returns the login handler for one principal kind. Each kind's
// endpoint only consults that kind's credential store.
func (h *Handler) Login(kind datamodel.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto LoginDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, token, err := h.Service.Login(r.Context(), kind, dto)
		if err != nil {
			h.Logger.Error("login failed", "kind", kind, "error", err)
			h.writeServiceError(w, err)
			return
		}

		h.Cookies.Attach(w, token)
		h.WriteAuth(w, http.StatusOK, NewPrincipalView(p), token)
	}
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var dto RegisterUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, token, err := h.Service.RegisterUser(r.Context(), dto)
	if err != nil {
		h.Logger.Error("user registration failed", "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.Cookies.Attach(w, token)
	h.WriteAuth(w, http.StatusCreated, NewPrincipalView(p), token)
}

func (h *Handler) RegisterOperator(w http.ResponseWriter, r *http.Request) {
	var dto RegisterOperatorDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, token, err := h.Service.RegisterOperator(r.Context(), dto)
	if err != nil {
		h.Logger.Error("operator registration failed", "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.Cookies.Attach(w, token)
	h.WriteAuth(w, http.StatusCreated, NewPrincipalView(p), token)
}

func (h *Handler) RegisterRootOperator(w http.ResponseWriter, r *http.Request) {
	var dto RegisterRootOperatorDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, token, err := h.Service.RegisterRootOperator(r.Context(), dto)
	if err != nil {
		h.Logger.Error("root operator registration failed", "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.Cookies.Attach(w, token)
	h.WriteAuth(w, http.StatusCreated, NewPrincipalView(p), token)
}

// Me returns the authenticated principal loaded by AuthMiddleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.WriteData(w, http.StatusOK, NewPrincipalView(p))
}

// Logout clears the session cookie. Tokens are stateless so there is nothing
// to revoke server-side; an already-expired session logs out fine.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.Detach(w)
	h.WriteData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var dto ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.ChangePassword(r.Context(), p, dto); err != nil {
		h.Logger.Error("password change failed", "principal_id", p.Base().ID, "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		h.Logger.Error("list users failed", "error", err)
		h.writeServiceError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, NewPrincipalViews(users))
}

func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := h.Service.ListOperators(r.Context())
	if err != nil {
		h.Logger.Error("list operators failed", "error", err)
		h.writeServiceError(w, err)
		return
	}
	h.WriteData(w, http.StatusOK, NewPrincipalViews(operators))
}

func (h *Handler) SetOperatorActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto SetActiveDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.GetDetailedMessage())
		return
	}

	if err := h.Service.SetOperatorActive(r.Context(), id, *dto.IsActive); err != nil {
		h.Logger.Error("set operator active failed", "operator_id", id, "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]interface{}{"id": id, "is_active": *dto.IsActive})
}

func (h *Handler) SetOperatorPermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto SetPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.SetOperatorPermissions(r.Context(), id, dto.Permissions); err != nil {
		h.Logger.Error("set operator permissions failed", "operator_id", id, "error", err)
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]interface{}{"id": id, "permissions": dto.Permissions})
}

// AuthMiddleware resolves the session token, reloads the principal from the
// store named by the token's role claim and places it on the request
// context. Any failure is one undifferentiated 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Tokens.Resolve(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		kind, err := datamodel.KindForRole(datamodel.Role(claims.Role))
		if err != nil {
			h.Logger.Warn("token carries unknown role", "role", claims.Role)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		p, err := h.Service.GetByID(r.Context(), kind, claims.Subject)
		if err != nil {
			h.Logger.Warn("token principal not found", "principal_id", claims.Subject, "kind", kind)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(internal.ContextWithPrincipal(r.Context(), p)))
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteError(w, appErr.StatusCode, appErr.GetDetailedMessage())
		return
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, ErrAccountDeactivated):
		h.WriteError(w, http.StatusForbidden, "account is deactivated")
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		h.WriteError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, ErrWrongPassword):
		h.WriteError(w, http.StatusBadRequest, "current password is incorrect")
	case errors.Is(err, ErrPasswordUnchanged):
		h.WriteError(w, http.StatusBadRequest, "new password must differ from the current password")
	case errors.Is(err, principal.ErrEmailTaken):
		h.WriteError(w, http.StatusBadRequest, "email is already in use")
	case errors.Is(err, principal.ErrPhoneTaken):
		h.WriteError(w, http.StatusBadRequest, "phone number is already in use")
	case errors.Is(err, principal.ErrNotFound):
		h.WriteError(w, http.StatusNotFound, "account not found")
	default:
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
