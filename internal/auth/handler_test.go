package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/identity-service/internal/auth"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/transport/middleware"
)

var _ = Describe("Auth Handler", func() {
	var (
		service  *auth.Service
		sessions *auth.SessionIssuer
		handler  *auth.Handler
		router   *chi.Mux
	)

	BeforeEach(func() {
		service, _, sessions = newTestService()
		handler = auth.NewHandler(service, sessions, auth.NewCookieWriter(false))

		router = chi.NewRouter()
		router.Route("/api/v1", func(r chi.Router) {
			r.Route("/users", func(ur chi.Router) {
				ur.Post("/register", handler.RegisterUser)
				ur.Post("/login", handler.Login(datamodel.KindUser))
				ur.Post("/logout", handler.Logout)
				ur.Group(func(pr chi.Router) {
					pr.Use(handler.AuthMiddleware)
					pr.Get("/me", handler.Me)
					pr.Put("/change-password", handler.ChangePassword)
					pr.Group(func(lr chi.Router) {
						lr.Use(middleware.RequireRoles(datamodel.RoleAdmin, datamodel.RoleSuperAdmin))
						lr.Use(middleware.RequirePermissions(datamodel.CapabilityUsers))
						lr.Get("/", handler.ListUsers)
					})
				})
			})
			r.Route("/admins", func(ar chi.Router) {
				ar.Post("/login", handler.Login(datamodel.KindOperator))
				ar.Group(func(pr chi.Router) {
					pr.Use(handler.AuthMiddleware)
					pr.Group(func(mr chi.Router) {
						mr.Use(middleware.RequireRoles(datamodel.RoleSuperAdmin))
						mr.Post("/register", handler.RegisterOperator)
					})
				})
			})
			r.Route("/superadmins", func(sr chi.Router) {
				sr.Post("/register", handler.RegisterRootOperator)
				sr.Post("/login", handler.Login(datamodel.KindRootOperator))
			})
		})
	})

	do := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).NotTo(HaveOccurred())
		}
		req := httptest.NewRequest(method, path, &buf)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var out map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&out)).NotTo(HaveOccurred())
		return out
	}

	registerUserReq := map[string]string{
		"name":         "Alice",
		"email":        "alice@example.com",
		"password":     "correct-horse",
		"phone_number": "+6281111111111",
	}

	registerRootReq := map[string]string{
		"name":     "Root",
		"email":    "root@example.com",
		"password": "correct-horse",
	}

	Describe("registration", func() {
		It("should return 201 with the envelope, a token and a session cookie", func() {
			w := do(http.MethodPost, "/api/v1/users/register", "", registerUserReq)
			Expect(w.Code).To(Equal(http.StatusCreated))

			body := decode(w)
			Expect(body["success"]).To(BeTrue())
			Expect(body["token"]).NotTo(BeEmpty())

			data := body["data"].(map[string]any)
			Expect(data["email"]).To(Equal("alice@example.com"))
			Expect(data["role"]).To(Equal("user"))
			Expect(data).NotTo(HaveKey("password_hash"))

			cookies := w.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Name).To(Equal(auth.SessionCookieName))
		})

		It("should return 400 for a duplicate email", func() {
			Expect(do(http.MethodPost, "/api/v1/users/register", "", registerUserReq).Code).To(Equal(http.StatusCreated))

			w := do(http.MethodPost, "/api/v1/users/register", "", registerUserReq)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			body := decode(w)
			Expect(body["success"]).To(BeFalse())
			Expect(body["message"]).To(Equal("email is already in use"))
		})

		It("should return 400 for an invalid body", func() {
			w := do(http.MethodPost, "/api/v1/users/register", "", map[string]string{"email": "nope"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("login and session", func() {
		BeforeEach(func() {
			Expect(do(http.MethodPost, "/api/v1/users/register", "", registerUserReq).Code).To(Equal(http.StatusCreated))
		})

		It("should log in and serve /me with the returned token", func() {
			w := do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
				"email":    "alice@example.com",
				"password": "correct-horse",
			})
			Expect(w.Code).To(Equal(http.StatusOK))
			token := decode(w)["token"].(string)

			me := do(http.MethodGet, "/api/v1/users/me", token, nil)
			Expect(me.Code).To(Equal(http.StatusOK))
			data := decode(me)["data"].(map[string]any)
			Expect(data["email"]).To(Equal("alice@example.com"))
		})

		It("should serve /me from the session cookie as well", func() {
			login := do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
				"email":    "alice@example.com",
				"password": "correct-horse",
			})
			cookie := login.Result().Cookies()[0]

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should return 401 on bad credentials without detail", func() {
			w := do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
				"email":    "alice@example.com",
				"password": "wrong",
			})
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decode(w)["message"]).To(Equal("invalid credentials"))
		})

		It("should return 401 for a missing or mangled token", func() {
			Expect(do(http.MethodGet, "/api/v1/users/me", "", nil).Code).To(Equal(http.StatusUnauthorized))
			Expect(do(http.MethodGet, "/api/v1/users/me", "garbage", nil).Code).To(Equal(http.StatusUnauthorized))
		})

		It("should clear the cookie on logout", func() {
			w := do(http.MethodPost, "/api/v1/users/logout", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			cookies := w.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Value).To(BeEmpty())
			Expect(cookies[0].MaxAge).To(Equal(-1))
		})
	})

	Describe("role and capability gates", func() {
		var rootToken string

		BeforeEach(func() {
			w := do(http.MethodPost, "/api/v1/superadmins/register", "", registerRootReq)
			Expect(w.Code).To(Equal(http.StatusCreated))
			rootToken = decode(w)["token"].(string)

			Expect(do(http.MethodPost, "/api/v1/users/register", "", registerUserReq).Code).To(Equal(http.StatusCreated))
		})

		newOperator := func(perms []string) string {
			w := do(http.MethodPost, "/api/v1/admins/register", rootToken, map[string]any{
				"name":         "Opal",
				"email":        "opal@example.com",
				"password":     "correct-horse",
				"phone_number": "081234567890",
				"permissions":  perms,
			})
			Expect(w.Code).To(Equal(http.StatusCreated))

			login := do(http.MethodPost, "/api/v1/admins/login", "", map[string]string{
				"email":    "opal@example.com",
				"password": "correct-horse",
			})
			Expect(login.Code).To(Equal(http.StatusOK))
			return decode(login)["token"].(string)
		}

		It("should let a root operator register operators and deny users", func() {
			userLogin := do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
				"email":    "alice@example.com",
				"password": "correct-horse",
			})
			userToken := decode(userLogin)["token"].(string)

			w := do(http.MethodPost, "/api/v1/admins/register", userToken, map[string]any{
				"name":         "Opal",
				"email":        "opal@example.com",
				"password":     "correct-horse",
				"phone_number": "081234567890",
				"permissions":  []string{datamodel.CapabilityUsers},
			})
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("should admit an operator holding the Users capability to the user list", func() {
			opToken := newOperator([]string{datamodel.CapabilityUsers, datamodel.CapabilityPosts})

			w := do(http.MethodGet, "/api/v1/users/", opToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should reject an operator without the Users capability", func() {
			opToken := newOperator([]string{datamodel.CapabilityPosts})

			w := do(http.MethodGet, "/api/v1/users/", opToken, nil)
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("should admit a root operator without any capability check", func() {
			w := do(http.MethodGet, "/api/v1/users/", rootToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should reject a plain user by role before capabilities matter", func() {
			userLogin := do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
				"email":    "alice@example.com",
				"password": "correct-horse",
			})
			userToken := decode(userLogin)["token"].(string)

			w := do(http.MethodGet, "/api/v1/users/", userToken, nil)
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("change password over HTTP", func() {
		It("should map service errors onto the status taxonomy", func() {
			Expect(do(http.MethodPost, "/api/v1/users/register", "", registerUserReq).Code).To(Equal(http.StatusCreated))
			login := do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
				"email":    "alice@example.com",
				"password": "correct-horse",
			})
			token := decode(login)["token"].(string)

			wrong := do(http.MethodPut, "/api/v1/users/change-password", token, map[string]string{
				"current_password": "nope",
				"new_password":     "battery-staple",
			})
			Expect(wrong.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(wrong)["message"]).To(Equal("current password is incorrect"))

			same := do(http.MethodPut, "/api/v1/users/change-password", token, map[string]string{
				"current_password": "correct-horse",
				"new_password":     "correct-horse",
			})
			Expect(same.Code).To(Equal(http.StatusBadRequest))

			ok := do(http.MethodPut, "/api/v1/users/change-password", token, map[string]string{
				"current_password": "correct-horse",
				"new_password":     "battery-staple",
			})
			Expect(ok.Code).To(Equal(http.StatusOK))
		})
	})
})
