package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Health endpoints", func() {
	var handler *HealthHandler

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		handler = NewHealthHandler(sqlDB)
	})

	It("should answer liveness without touching the database", func() {
		w := httptest.NewRecorder()
		handler.ping(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var body map[string]string
		Expect(json.NewDecoder(w.Body).Decode(&body)).NotTo(HaveOccurred())
		Expect(body["status"]).To(Equal("OK"))
	})

	It("should report the principal database component on readiness", func() {
		w := httptest.NewRecorder()
		handler.readiness(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp HealthResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(HealthOK))
		Expect(resp.Components).To(HaveKey("principal_db"))
	})

	It("should answer 503 when the database is unreachable", func() {
		Expect(handler.db.Close()).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		handler.readiness(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))

		var resp HealthResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(HealthDegraded))
		Expect(resp.Components["principal_db"].Error).NotTo(BeEmpty())
	})
})
