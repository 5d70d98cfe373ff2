package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/identity-service/internal"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
	"github.com/frahmantamala/identity-service/internal/transport/middleware"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("RequirePermissions", func() {
	var next http.Handler

	BeforeEach(func() {
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	serve := func(p principal.Principal, caps ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p != nil {
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), p))
		}
		w := httptest.NewRecorder()
		middleware.RequirePermissions(caps...)(next).ServeHTTP(w, req)
		return w
	}

	It("should return 401 without a principal", func() {
		w := serve(nil, datamodel.CapabilityUsers)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should admit an operator holding one of the listed capabilities", func() {
		op := &datamodel.Operator{
			Account:     datamodel.Account{ID: "o1"},
			Permissions: datamodel.PermissionList{datamodel.CapabilityUsers},
		}
		Expect(serve(op, datamodel.CapabilityUsers, datamodel.CapabilityPosts).Code).To(Equal(http.StatusOK))
	})

	It("should deny an operator without any listed capability", func() {
		op := &datamodel.Operator{
			Account:     datamodel.Account{ID: "o1"},
			Permissions: datamodel.PermissionList{datamodel.CapabilityGallery},
		}
		Expect(serve(op, datamodel.CapabilityUsers).Code).To(Equal(http.StatusForbidden))
	})

	It("should deny an operator whose capability column scanned as null", func() {
		op := &datamodel.Operator{Account: datamodel.Account{ID: "o1"}}
		Expect(op.Permissions).To(BeNil())
		Expect(serve(op, datamodel.CapabilityUsers).Code).To(Equal(http.StatusForbidden))
	})

	It("should pass root operators and users through to the role gate", func() {
		root := &datamodel.RootOperator{Account: datamodel.Account{ID: "r1"}}
		Expect(serve(root, datamodel.CapabilityUsers).Code).To(Equal(http.StatusOK))

		user := &datamodel.User{Account: datamodel.Account{ID: "u1"}}
		Expect(serve(user, datamodel.CapabilityUsers).Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("should redact credential fields from request and response bodies", func() {
		var logged bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logged, nil))

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"token":"issued-session-token"}`))
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
			strings.NewReader(`{"email":"alice@example.com","password":"hunter2","otp":"123456"}`))
		w := httptest.NewRecorder()
		middleware.LoggingMiddleware(logger)(next).ServeHTTP(w, req)

		out := logged.String()
		Expect(out).To(ContainSubstring("alice@example.com"))
		Expect(out).To(ContainSubstring("[REDACTED]"))
		Expect(out).NotTo(ContainSubstring("hunter2"))
		Expect(out).NotTo(ContainSubstring("123456"))
		Expect(out).NotTo(ContainSubstring("issued-session-token"))

		// the client still receives the real body
		Expect(w.Body.String()).To(ContainSubstring("issued-session-token"))
	})
})
