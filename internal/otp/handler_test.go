package otp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/identity-service/internal/auth"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/otp"
	"github.com/frahmantamala/identity-service/internal/principal"
	principalPostgres "github.com/frahmantamala/identity-service/internal/principal/postgres"
)

var _ = Describe("OTP Handler", func() {
	var (
		directory *principal.Directory
		router    *chi.Mux
	)

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(
			&datamodel.User{},
			&datamodel.Operator{},
			&datamodel.RootOperator{},
			&datamodel.IdentityClaim{},
		)).NotTo(HaveOccurred())

		users, operators, rootOperators := principalPostgres.NewStores(db)
		directory = principal.NewDirectory(users, operators, rootOperators)

		hash, err := auth.HashPassword("old-password", bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(context.Background(), &datamodel.User{Account: datamodel.Account{
			ID: "u1", Name: "Alice", Email: "alice@example.com",
			PasswordHash: hash, IsActive: true,
		}})).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resetTokens := otp.NewResetTokenIssuer("test-secret-test-secret-test-secret", 10*time.Minute)
		service := otp.NewService(directory, nil, resetTokens, bcrypt.MinCost, slogger)
		handler := otp.NewHandler(service)

		router = chi.NewRouter()
		router.Put("/users/send-otp", handler.SendOTP(otp.ScopeUser))
		router.Post("/users/verify-otp", handler.VerifyOTP(otp.ScopeUser))
		router.Put("/users/reset-password", handler.ResetPassword)
	})

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		Expect(json.NewEncoder(&buf).Encode(body)).NotTo(HaveOccurred())
		req := httptest.NewRequest(method, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var out map[string]any
		Expect(json.NewDecoder(w.Body).Decode(&out)).NotTo(HaveOccurred())
		return out
	}

	code := func() string {
		p, err := directory.Store(datamodel.KindUser).GetByID(context.Background(), "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Base().OTP).NotTo(BeNil())
		return *p.Base().OTP
	}

	It("should return 200 with delivered=false when mail is disabled", func() {
		w := do(http.MethodPut, "/users/send-otp", map[string]string{"email": "alice@example.com"})
		Expect(w.Code).To(Equal(http.StatusOK))

		data := decode(w)["data"].(map[string]any)
		Expect(data["delivered"]).To(BeFalse())
	})

	It("should return 404 for an unknown email", func() {
		w := do(http.MethodPut, "/users/send-otp", map[string]string{"email": "nobody@example.com"})
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(decode(w)["success"]).To(BeFalse())
	})

	It("should return 404 when verifying a code for an unknown email", func() {
		w := do(http.MethodPost, "/users/verify-otp", map[string]string{"email": "nobody@example.com", "otp": "123456"})
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(decode(w)["success"]).To(BeFalse())
	})

	It("should return the reset token on a correct code and 401 on a wrong one", func() {
		Expect(do(http.MethodPut, "/users/send-otp", map[string]string{"email": "alice@example.com"}).Code).To(Equal(http.StatusOK))
		stored := code()

		wrong := "000000"
		if wrong == stored {
			wrong = "000001"
		}
		w := do(http.MethodPost, "/users/verify-otp", map[string]string{"email": "alice@example.com", "otp": wrong})
		Expect(w.Code).To(Equal(http.StatusUnauthorized))

		w = do(http.MethodPost, "/users/verify-otp", map[string]string{"email": "alice@example.com", "otp": stored})
		Expect(w.Code).To(Equal(http.StatusOK))
		data := decode(w)["data"].(map[string]any)
		Expect(data["reset_token"]).NotTo(BeEmpty())
	})

	It("should run the full recovery flow over HTTP", func() {
		Expect(do(http.MethodPut, "/users/send-otp", map[string]string{"email": "alice@example.com"}).Code).To(Equal(http.StatusOK))

		verify := do(http.MethodPost, "/users/verify-otp", map[string]string{"email": "alice@example.com", "otp": code()})
		Expect(verify.Code).To(Equal(http.StatusOK))
		resetToken := decode(verify)["data"].(map[string]any)["reset_token"].(string)

		mismatch := do(http.MethodPut, "/users/reset-password", map[string]string{
			"reset_token":      resetToken,
			"new_password":     "brand-new-password",
			"confirm_password": "different",
		})
		Expect(mismatch.Code).To(Equal(http.StatusBadRequest))

		ok := do(http.MethodPut, "/users/reset-password", map[string]string{
			"reset_token":      resetToken,
			"new_password":     "brand-new-password",
			"confirm_password": "brand-new-password",
		})
		Expect(ok.Code).To(Equal(http.StatusOK))

		replay := do(http.MethodPut, "/users/reset-password", map[string]string{
			"reset_token":      resetToken,
			"new_password":     "yet-another-password",
			"confirm_password": "yet-another-password",
		})
		Expect(replay.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reject reset without a reset token", func() {
		Expect(do(http.MethodPut, "/users/send-otp", map[string]string{"email": "alice@example.com"}).Code).To(Equal(http.StatusOK))

		w := do(http.MethodPut, "/users/reset-password", map[string]string{
			"reset_token":      "",
			"new_password":     "brand-new-password",
			"confirm_password": "brand-new-password",
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
