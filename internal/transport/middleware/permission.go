package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/identity-service/internal"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
)

// RequireRoles admits only principals whose role is in the given set.
// Missing principal is a 401, wrong role a 403.
func RequireRoles(roles ...datamodel.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := internal.PrincipalFromContext(r.Context())
			if !ok || p == nil {
				writeDenied(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			role := principal.RoleOf(p)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("access denied: role not permitted",
				"principal_id", p.Base().ID,
				"role", role,
				"required_roles", roles)
			writeDenied(w, http.StatusForbidden, "insufficient role")
		})
	}
}

// RequirePermissions admits a principal holding at least one of the listed
// capabilities. Only the admin role carries a capability set; every other
// role passes through, since its access is decided by role alone. An admin
// with an empty or unset capability list holds nothing and is denied.
func RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := internal.PrincipalFromContext(r.Context())
			if !ok || p == nil {
				writeDenied(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if principal.RoleOf(p) != datamodel.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			held := principal.Permissions(p)
			if !held.ContainsAny(permissions) {
				slog.Warn("access denied: missing capability",
					"principal_id", p.Base().ID,
					"required_permissions", permissions,
					"held_permissions", held)
				writeDenied(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success": false, "message": "` + message + `"}`))
}
