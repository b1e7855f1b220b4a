package webhook_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pawel-modine/AsanaBot/internal/http/dto"
	"github.com/pawel-modine/AsanaBot/internal/http/handler/webhook"
	"github.com/pawel-modine/AsanaBot/internal/model"
)

const githubSecret = "s3cret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("GitHubWebhookHandler", func() {
	var (
		router *gin.Engine
		ingest *fakeEventIngestService
		body   []byte
	)

	newRequest := func(event string, payload []byte, signature string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Event", event)
		req.Header.Set("X-GitHub-Delivery", "72d3162e-cc78-11e3-81ab-4c9367dc0958")
		if signature != "" {
			req.Header.Set("X-Hub-Signature-256", signature)
		}
		return req
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		ingest = &fakeEventIngestService{}
		h := webhook.NewGitHubWebhookHandler(ingest, githubSecret, "X-Trace-Id")
		router.POST("/webhooks/github", h.HandleEvent)

		body = []byte(`{"action":"opened","issue":{"number":7}}`)
	})

	It("accepts a signed issues event and ingests the raw payload", func() {
		req := newRequest("issues", body, sign(githubSecret, body))
		req.Header.Set("X-Trace-Id", "trace-1")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(ingest.calls).To(HaveLen(1))
		call := ingest.calls[0]
		Expect(call.Source).To(Equal(model.ProviderGitHub))
		Expect(call.EventType).To(Equal("issues"))
		Expect(call.DeliveryID).To(Equal("72d3162e-cc78-11e3-81ab-4c9367dc0958"))
		Expect(string(call.Payload)).To(Equal(string(body)))
		Expect(call.TraceID).NotTo(BeNil())
		Expect(*call.TraceID).To(Equal("trace-1"))

		var resp dto.WebhookAcceptedResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.LedgerID).To(Equal(int64(12345)))
		Expect(resp.Enqueued).To(BeTrue())
	})

	It("accepts pull_request events", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("pull_request", body, sign(githubSecret, body)))

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(ingest.calls[0].EventType).To(Equal("pull_request"))
	})

	It("rejects a bad signature", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("issues", body, sign("other", body)))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("rejects a missing signature", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("issues", body, ""))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("answers ping without ingesting", func() {
		ping := []byte(`{"zen":"Keep it logically awesome."}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("ping", ping, sign(githubSecret, ping)))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("pong"))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("ignores events that carry no issue", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("push", body, sign(githubSecret, body)))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"status":"ignored"`))
		Expect(ingest.calls).To(BeEmpty())
	})

	It("returns 500 when ingest fails", func() {
		ingest.err = errIngest
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("issues", body, sign(githubSecret, body)))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})

	It("returns 400 when ingest rejects the event", func() {
		ingest.err = errInvalidEvent
		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("issues", body, sign(githubSecret, body)))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("invalid event"))
	})
})
