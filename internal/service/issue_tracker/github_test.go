package issue_tracker_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pawel-modine/AsanaBot/internal/mapper"
	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/service/issue_tracker"
)

var _ = Describe("GitHubTracker", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		mux     *http.ServeMux
		tracker *issue_tracker.GitHubTracker
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)

		var err error
		tracker, err = issue_tracker.NewGitHubTracker(issue_tracker.GitHubOptions{
			Token:        "gh-token",
			APIBaseURL:   server.URL + "/api/v3/",
			AcceptHeader: "application/vnd.github.machine-man-preview",
			HTTPClient:   server.Client(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("HasMilestones", func() {
		It("strips the url template and requests a single milestone", func() {
			mux.HandleFunc("/repos/acme/widgets/milestones", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("per_page")).To(Equal("1"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer gh-token"))
				Expect(r.Header.Get("Accept")).To(Equal("application/vnd.github.machine-man-preview"))
				_, _ = w.Write([]byte(`[{"number":1,"title":"v1.0"}]`))
			})

			has, err := tracker.HasMilestones(ctx, server.URL+"/repos/acme/widgets/milestones{/number}")

			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeTrue())
		})

		It("returns false for an empty listing", func() {
			mux.HandleFunc("/repos/acme/widgets/milestones", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			})

			has, err := tracker.HasMilestones(ctx, server.URL+"/repos/acme/widgets/milestones")

			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeFalse())
		})

		It("rejects a missing url as malformed", func() {
			_, err := tracker.HasMilestones(ctx, "{/number}")

			Expect(err).To(MatchError(model.ErrMalformedEvent))
		})

		It("wraps server errors as remote unavailable", func() {
			mux.HandleFunc("/repos/acme/widgets/milestones", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})

			_, err := tracker.HasMilestones(ctx, server.URL+"/repos/acme/widgets/milestones")

			Expect(err).To(MatchError(model.ErrRemoteUnavailable))
		})
	})

	Describe("UserDisplayName", func() {
		It("returns the profile name", func() {
			mux.HandleFunc("/users/alice", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"login":"alice","name":"Alice Liddell"}`))
			})

			name, err := tracker.UserDisplayName(ctx, server.URL+"/users/alice")

			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("Alice Liddell"))
		})

		It("returns an empty name when none is set", func() {
			mux.HandleFunc("/users/bob", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"login":"bob","name":null}`))
			})

			name, err := tracker.UserDisplayName(ctx, server.URL+"/users/bob")

			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(BeEmpty())
		})

		It("maps a deleted user to ErrSourceNotFound", func() {
			mux.HandleFunc("/users/ghost", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			})

			_, err := tracker.UserDisplayName(ctx, server.URL+"/users/ghost")

			Expect(err).To(MatchError(model.ErrSourceNotFound))
			Expect(err).NotTo(MatchError(model.ErrNotFound))
		})
	})

	Describe("ListEventPayloads", func() {
		It("builds webhook-shaped payloads and attaches pull requests", func() {
			mux.HandleFunc("/api/v3/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"login":"acme"}`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"name":"widgets","milestones_url":"https://x/milestones{/number}"}`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("state")).To(Equal("all"))
				Expect(r.URL.Query().Get("since")).To(HavePrefix("2019-10-01"))
				_, _ = w.Write([]byte(`[
					{"number":1,"title":"Bug","state":"open"},
					{"number":2,"title":"Fix","state":"open","pull_request":{"url":"https://x/pulls/2"}}
				]`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/2", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"number":2,"title":"Fix","state":"open"}`))
			})

			payloads, err := tracker.ListEventPayloads(ctx, issue_tracker.BackfillParams{
				Organization: "acme",
				Repository:   "widgets",
				Since:        time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(HaveLen(2))

			var first, second map[string]json.RawMessage
			Expect(json.Unmarshal(payloads[0], &first)).To(Succeed())
			Expect(json.Unmarshal(payloads[1], &second)).To(Succeed())
			Expect(first).To(HaveKey("issue"))
			Expect(first).NotTo(HaveKey("pull_request"))
			Expect(second).To(HaveKey("pull_request"))
			Expect(strings.Contains(string(first["organization"]), `"login":"acme"`)).To(BeTrue())
		})

		It("writes unset milestone, assignee and body as null", func() {
			mux.HandleFunc("/api/v3/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"login":"acme"}`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"name":"widgets","milestones_url":"` + server.URL + `/api/v3/repos/acme/widgets/milestones{/number}"}`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets/milestones", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[
					{"number":1,"title":"Bug","state":"open","html_url":"https://github.com/acme/widgets/issues/1"},
					{"number":2,"title":"Fix","state":"closed","html_url":"https://github.com/acme/widgets/pull/2","pull_request":{"url":"https://x/pulls/2"}}
				]`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets/pulls/2", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"number":2,"title":"Fix","state":"closed","html_url":"https://github.com/acme/widgets/pull/2"}`))
			})

			payloads, err := tracker.ListEventPayloads(ctx, issue_tracker.BackfillParams{
				Organization: "acme",
				Repository:   "widgets",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(HaveLen(2))

			var first struct {
				Issue map[string]json.RawMessage `json:"issue"`
			}
			Expect(json.Unmarshal(payloads[0], &first)).To(Succeed())
			Expect(first.Issue).To(HaveKeyWithValue("milestone", json.RawMessage("null")))
			Expect(first.Issue).To(HaveKeyWithValue("assignee", json.RawMessage("null")))
			Expect(first.Issue).To(HaveKeyWithValue("body", json.RawMessage("null")))

			m := mapper.NewGitHubIssueMapper(tracker)

			issue, err := m.Map(ctx, payloads[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(issue.Number).To(Equal(1))
			Expect(issue.IsPR).To(BeFalse())
			Expect(issue.Milestoned).To(BeFalse())
			Expect(issue.RepoHasMilestones).To(BeFalse())
			Expect(issue.Body).To(BeEmpty())
			Expect(issue.Assignee).To(BeNil())

			pr, err := m.Map(ctx, payloads[1])
			Expect(err).NotTo(HaveOccurred())
			Expect(pr.Number).To(Equal(2))
			Expect(pr.IsPR).To(BeTrue())
			Expect(pr.IsClosed()).To(BeTrue())
		})

		It("follows the next page link", func() {
			mux.HandleFunc("/api/v3/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"login":"acme"}`))
			})
			mux.HandleFunc("/api/v3/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"name":"widgets","milestones_url":"https://x/milestones{/number}"}`))
			})
			var pages []string
			mux.HandleFunc("/api/v3/repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
				page := r.URL.Query().Get("page")
				pages = append(pages, page)
				if page == "" {
					w.Header().Set("Link", `<`+server.URL+`/api/v3/repos/acme/widgets/issues?page=2>; rel="next"`)
					_, _ = w.Write([]byte(`[{"number":1,"title":"Bug","state":"open"}]`))
					return
				}
				_, _ = w.Write([]byte(`[{"number":3,"title":"Other","state":"open"}]`))
			})

			payloads, err := tracker.ListEventPayloads(ctx, issue_tracker.BackfillParams{
				Organization: "acme",
				Repository:   "widgets",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(HaveLen(2))
			Expect(pages).To(Equal([]string{"", "2"}))
		})
	})
})
