package webhook_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pawel-modine/AsanaBot/internal/http/handler/webhook"
	"github.com/pawel-modine/AsanaBot/internal/model"
)

var _ = Describe("GitLabWebhookHandler", func() {
	var (
		router *gin.Engine
		ingest *fakeEventIngestService
		body   []byte
	)

	newRequest := func(event, token string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/gitlab", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if event != "" {
			req.Header.Set("X-Gitlab-Event", event)
		}
		if token != "" {
			req.Header.Set("X-Gitlab-Token", token)
		}
		return req
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		ingest = &fakeEventIngestService{}
		h := webhook.NewGitLabWebhookHandler(ingest, "secret", "X-Trace-Id")
		router.POST("/webhooks/gitlab", h.HandleEvent)

		body = []byte(`{"object_kind":"issue","object_attributes":{"iid":5,"title":"Bug","state":"opened"}}`)
	})

	It("accepts a valid token and ingests issue hooks", func() {
		req := newRequest("Issue Hook", "secret")
		req.Header.Set("X-Gitlab-Event-UUID", "uuid-1")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(ingest.calls).To(HaveLen(1))
		call := ingest.calls[0]
		Expect(call.Source).To(Equal(model.ProviderGitLab))
		Expect(call.EventType).To(Equal("Issue Hook"))
		Expect(call.DeliveryID).To(Equal("uuid-1"))
		Expect(string(call.Payload)).To(Equal(string(body)))
	})

	It("accepts merge request hooks", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Merge Request Hook", "secret"))

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(ingest.calls[0].EventType).To(Equal("Merge Request Hook"))
	})

	It("leaves the delivery id empty when GitLab sends none", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Issue Hook", "secret"))

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(ingest.calls[0].DeliveryID).To(BeEmpty())
	})

	It("rejects an invalid token", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Issue Hook", "wrong"))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("rejects a missing token", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Issue Hook", ""))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("ignores other hook types", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Wiki Page Hook", "secret"))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"status":"ignored"`))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("returns 500 when ingest fails", func() {
		ingest.err = errIngest
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Issue Hook", "secret"))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})

	It("returns 400 when ingest rejects the event", func() {
		ingest.err = errInvalidEvent
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("Issue Hook", "secret"))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("invalid event"))
	})
})
