package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/xaenox/daily-summarizer/internal/metrics"
	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/server"
	"github.com/xaenox/daily-summarizer/internal/storage"
	"github.com/xaenox/daily-summarizer/internal/workflow"
)

type mockRunner struct {
	events [][]byte
	resp   workflow.Response
}

func (m *mockRunner) Handle(_ context.Context, event []byte) workflow.Response {
	m.events = append(m.events, event)
	return m.resp
}

var _ = Describe("SummaryHandler", func() {
	var (
		router *gin.Engine
		runner *mockRunner
		store  *storage.MemoryStorage
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		runner = &mockRunner{resp: workflow.Response{StatusCode: http.StatusOK, Body: `{"day":"2024-01-01"}`}}
		store = storage.NewMemoryStorage()
		h := server.NewSummaryHandler(runner, store, zap.NewNop())
		router = server.NewRouter(h, zap.NewNop())
	})

	It("passes the request body to the workflow", func() {
		body := []byte(`{"detail":{"day":"2024-01-01"}}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/summaries", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(runner.events).To(HaveLen(1))
		Expect(runner.events[0]).To(MatchJSON(body))
		Expect(w.Body.String()).To(MatchJSON(`{"day":"2024-01-01"}`))
	})

	It("returns the workflow status on failure", func() {
		runner.resp = workflow.Response{
			StatusCode: http.StatusBadRequest,
			Body:       `{"error":"invalid_input","detail":"day \"x\" is not a YYYY-MM-DD date"}`,
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/summaries", bytes.NewBufferString(`{"day":"x"}`))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var resp map[string]string
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["error"]).To(Equal("invalid_input"))
	})

	It("returns a stored summary", func() {
		Expect(store.SaveSummary(context.Background(), &models.DailySummary{Day: "2024-01-01", Summary: "Shipped."})).To(Succeed())

		req := httptest.NewRequest(http.MethodGet, "/v1/summaries/2024-01-01", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp models.DailySummary
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Summary).To(Equal("Shipped."))
	})

	It("returns 404 for a day without summary", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/summaries/2024-01-02", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("returns 400 for a malformed day", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/summaries/yesterday", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("serves health and metrics", func() {
		metrics.WorkflowAttempts.Inc()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("daily_summarizer_workflow_attempts_total"))
	})
})
