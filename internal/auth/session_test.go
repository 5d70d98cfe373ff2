package auth_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/identity-service/internal/auth"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
)

var _ = Describe("SessionIssuer", func() {
	const secret = "test-secret-test-secret-test-secret"

	It("should round-trip subject and role", func() {
		issuer := auth.NewSessionIssuer(secret, time.Hour)

		token, err := issuer.Issue("p-1", datamodel.RoleSuperAdmin)
		Expect(err).NotTo(HaveOccurred())

		claims, err := issuer.Resolve(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal("p-1"))
		Expect(claims.Role).To(Equal("superadmin"))
	})

	It("should reject an expired token", func() {
		issuer := auth.NewSessionIssuer(secret, -time.Minute)

		token, err := issuer.Issue("p-1", datamodel.RoleUser)
		Expect(err).NotTo(HaveOccurred())

		_, err = issuer.Resolve(token)
		Expect(err).To(MatchError(auth.ErrTokenExpired))
	})

	It("should reject a token signed with a different secret", func() {
		issuer := auth.NewSessionIssuer(secret, time.Hour)
		other := auth.NewSessionIssuer("another-secret-another-secret-xx", time.Hour)

		token, err := other.Issue("p-1", datamodel.RoleUser)
		Expect(err).NotTo(HaveOccurred())

		_, err = issuer.Resolve(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("should reject garbage", func() {
		issuer := auth.NewSessionIssuer(secret, time.Hour)
		_, err := issuer.Resolve("not-a-token")
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})
})

var _ = Describe("CookieWriter", func() {
	getCookie := func(w *httptest.ResponseRecorder) *http.Cookie {
		res := w.Result()
		cookies := res.Cookies()
		Expect(cookies).To(HaveLen(1))
		return cookies[0]
	}

	It("should attach an HttpOnly session cookie", func() {
		w := httptest.NewRecorder()
		auth.NewCookieWriter(false).Attach(w, "token-value")

		cookie := getCookie(w)
		Expect(cookie.Name).To(Equal(auth.SessionCookieName))
		Expect(cookie.Value).To(Equal("token-value"))
		Expect(cookie.HttpOnly).To(BeTrue())
		Expect(cookie.Path).To(Equal("/"))
		Expect(cookie.Secure).To(BeFalse())
		Expect(cookie.SameSite).To(Equal(http.SameSiteLaxMode))
	})

	It("should harden attributes in production", func() {
		w := httptest.NewRecorder()
		auth.NewCookieWriter(true).Attach(w, "token-value")

		cookie := getCookie(w)
		Expect(cookie.Secure).To(BeTrue())
		Expect(cookie.SameSite).To(Equal(http.SameSiteStrictMode))
	})

	It("should detach with attributes matching the attach", func() {
		attach := httptest.NewRecorder()
		detach := httptest.NewRecorder()
		writer := auth.NewCookieWriter(true)

		writer.Attach(attach, "token-value")
		writer.Detach(detach)

		set := getCookie(attach)
		cleared := getCookie(detach)
		Expect(cleared.Name).To(Equal(set.Name))
		Expect(cleared.Path).To(Equal(set.Path))
		Expect(cleared.Secure).To(Equal(set.Secure))
		Expect(cleared.SameSite).To(Equal(set.SameSite))
		Expect(cleared.Value).To(BeEmpty())
		Expect(cleared.MaxAge).To(Equal(-1))
	})
})

var _ = Describe("ExtractToken", func() {
	It("should prefer the cookie", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")

		Expect(auth.ExtractToken(r)).To(Equal("from-cookie"))
	})

	It("should fall back to the bearer header", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer from-header")

		Expect(auth.ExtractToken(r)).To(Equal("from-header"))
	})

	It("should return empty when neither is present", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		Expect(auth.ExtractToken(r)).To(BeEmpty())
	})
})
