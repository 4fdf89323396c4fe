package github_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
)

const apiBase = "https://api.github.com"

var _ = Describe("Gateway", func() {
	var (
		ctx       context.Context
		transport *httpmock.MockTransport
		gw        github.Gateway
		repo      domain.Repository
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = httpmock.NewMockTransport()
		repo = domain.Repository{Owner: "acme-org", Name: "widget-api"}

		var err error
		gw, err = github.NewGateway(github.Config{
			BaseURL:    apiBase,
			APIVersion: "2022-11-28",
			Timeout:    5 * time.Second,
			UserAgent:  "gh-dispatch-relay/test",
		}, transport)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewGateway", func() {
		It("rejects relative base URLs", func() {
			_, err := github.NewGateway(github.Config{BaseURL: "api.github.com"}, transport)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CreateInstallationToken", func() {
		It("mints a token with the app JWT and the pinned API version", func() {
			transport.RegisterResponder(http.MethodPost, apiBase+"/app/installations/42/access_tokens",
				func(req *http.Request) (*http.Response, error) {
					Expect(req.Header.Get("Authorization")).To(Equal("Bearer app-jwt"))
					Expect(req.Header.Get("X-GitHub-Api-Version")).To(Equal("2022-11-28"))
					Expect(req.Header.Get("User-Agent")).To(Equal("gh-dispatch-relay/test"))
					return httpmock.NewStringResponse(http.StatusCreated,
						`{"token":"ghs_minted","expires_at":"2026-03-01T13:00:00Z"}`), nil
				})

			tok, err := gw.CreateInstallationToken(ctx, "app-jwt", 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok.Value).To(Equal("ghs_minted"))
			Expect(tok.InstallationID).To(Equal(int64(42)))
			Expect(tok.ExpiresAt).To(BeTemporally("==", time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)))
		})

		It("reports GitHub's status and message on rejection", func() {
			transport.RegisterResponder(http.MethodPost, apiBase+"/app/installations/42/access_tokens",
				httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"A JSON web token could not be decoded"}`))

			_, err := gw.CreateInstallationToken(ctx, "bad-jwt", 42)
			Expect(err).To(HaveOccurred())

			var apiErr *github.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(apiErr.Message).To(Equal("A JSON web token could not be decoded"))
		})

		It("returns a plain error when no response arrives", func() {
			transport.RegisterResponder(http.MethodPost, apiBase+"/app/installations/42/access_tokens",
				httpmock.NewErrorResponder(errors.New("connection refused")))

			_, err := gw.CreateInstallationToken(ctx, "app-jwt", 42)
			Expect(err).To(MatchError(ContainSubstring("connection refused")))
			Expect(github.StatusCode(err)).To(Equal(0))
		})
	})

	Describe("FindRepositoryInstallation", func() {
		It("returns the installation covering the repository", func() {
			transport.RegisterResponder(http.MethodGet, apiBase+"/repos/acme-org/widget-api/installation",
				httpmock.NewStringResponder(http.StatusOK, `{"id":7,"account":{"login":"acme-org"}}`))

			inst, err := gw.FindRepositoryInstallation(ctx, "app-jwt", repo)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst).To(Equal(github.Installation{ID: 7, AccountLogin: "acme-org"}))
		})

		It("reports not found for repositories outside the app", func() {
			transport.RegisterResponder(http.MethodGet, apiBase+"/repos/acme-org/widget-api/installation",
				httpmock.NewStringResponder(http.StatusNotFound, `{"message":"Not Found"}`))

			_, err := gw.FindRepositoryInstallation(ctx, "app-jwt", repo)
			Expect(github.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("ListInstallations", func() {
		It("follows pagination links", func() {
			transport.RegisterResponder(http.MethodGet, apiBase+"/app/installations",
				func(req *http.Request) (*http.Response, error) {
					resp := httpmock.NewStringResponse(http.StatusOK, `[{"id":1,"account":{"login":"someone-else"}}]`)
					resp.Header.Set("Link", `<`+apiBase+`/app/installations?page=2&per_page=100>; rel="next"`)
					return resp, nil
				})
			transport.RegisterResponderWithQuery(http.MethodGet, apiBase+"/app/installations", "page=2&per_page=100",
				httpmock.NewStringResponder(http.StatusOK, `[{"id":2,"account":{"login":"acme-org"}}]`))

			installations, err := gw.ListInstallations(ctx, "app-jwt")
			Expect(err).NotTo(HaveOccurred())
			Expect(installations).To(Equal([]github.Installation{
				{ID: 1, AccountLogin: "someone-else"},
				{ID: 2, AccountLogin: "acme-org"},
			}))
		})
	})

	Describe("ListTopics", func() {
		It("returns topic names", func() {
			transport.RegisterResponder(http.MethodGet, apiBase+"/repos/acme-org/widget-api/topics",
				func(req *http.Request) (*http.Response, error) {
					Expect(req.Header.Get("Authorization")).To(Equal("Bearer ghs_token"))
					return httpmock.NewStringResponse(http.StatusOK, `{"names":["prod","copa"]}`), nil
				})

			topics, err := gw.ListTopics(ctx, "ghs_token", repo)
			Expect(err).NotTo(HaveOccurred())
			Expect(topics).To(ConsistOf("prod", "copa"))
		})

		It("revalidates with the cached ETag", func() {
			etag := `W/"5f36d139db088e04"`
			transport.RegisterResponder(http.MethodGet, apiBase+"/repos/acme-org/widget-api/topics",
				func(req *http.Request) (*http.Response, error) {
					if req.Header.Get("If-None-Match") == etag {
						return githubTopicsResponse(http.StatusNotModified, "", etag), nil
					}
					return githubTopicsResponse(http.StatusOK, `{"names":["prod"]}`, etag), nil
				})

			first, err := gw.ListTopics(ctx, "ghs_token", repo)
			Expect(err).NotTo(HaveOccurred())
			second, err := gw.ListTopics(ctx, "ghs_token", repo)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			Expect(transport.GetTotalCallCount()).To(Equal(2))
		})

		It("sees a removed topic on the next lookup despite max-age", func() {
			topics := []string{`{"names":["prod"]}`, `{"names":[]}`}
			etags := []string{`"v1"`, `"v2"`}
			calls := 0
			transport.RegisterResponder(http.MethodGet, apiBase+"/repos/acme-org/widget-api/topics",
				func(req *http.Request) (*http.Response, error) {
					if calls > 0 {
						Expect(req.Header.Get("If-None-Match")).To(Equal(etags[0]))
					}
					resp := githubTopicsResponse(http.StatusOK, topics[calls], etags[calls])
					calls++
					return resp, nil
				})

			first, err := gw.ListTopics(ctx, "ghs_token", repo)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(ConsistOf("prod"))

			second, err := gw.ListTopics(ctx, "ghs_token", repo)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeEmpty())
			Expect(transport.GetTotalCallCount()).To(Equal(2))
		})

		It("bounds the number of stored responses", func() {
			transport.RegisterRegexpResponder(http.MethodGet, regexp.MustCompile(`/repos/acme-org/[^/]+/topics$`),
				func(req *http.Request) (*http.Response, error) {
					return githubTopicsResponse(http.StatusOK, `{"names":[]}`, `"v1"`), nil
				})

			for i := range 1100 {
				_, err := gw.ListTopics(ctx, "ghs_token", domain.Repository{Owner: "acme-org", Name: fmt.Sprintf("image-%d", i)})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(github.ResponseCacheLen(gw)).To(Equal(1024))
		})

		It("surfaces upstream failures with their status", func() {
			transport.RegisterResponder(http.MethodGet, apiBase+"/repos/acme-org/widget-api/topics",
				httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"message":"unavailable"}`))

			_, err := gw.ListTopics(ctx, "ghs_token", repo)
			Expect(github.StatusCode(err)).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("Dispatch", func() {
		var request domain.DispatchRequest

		BeforeEach(func() {
			request = domain.DispatchRequest{
				EventType:     "stackrox_copa",
				ClientPayload: json.RawMessage(`{"alert":{"policy":{"name":"Fixable CVE"}}}`),
			}
		})

		It("posts the event and reports 204", func() {
			transport.RegisterResponder(http.MethodPost, apiBase+"/repos/acme-org/widget-api/dispatches",
				func(req *http.Request) (*http.Response, error) {
					Expect(req.Header.Get("Authorization")).To(Equal("Bearer ghp_static"))
					body, err := io.ReadAll(req.Body)
					Expect(err).NotTo(HaveOccurred())
					Expect(body).To(MatchJSON(`{"event_type":"stackrox_copa","client_payload":{"alert":{"policy":{"name":"Fixable CVE"}}}}`))
					return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
				})

			resp, err := gw.Dispatch(ctx, "ghp_static", repo, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Body).To(BeEmpty())
		})

		DescribeTable("returns error responses verbatim",
			func(status int, body string) {
				transport.RegisterResponder(http.MethodPost, apiBase+"/repos/acme-org/widget-api/dispatches",
					httpmock.NewStringResponder(status, body))

				resp, err := gw.Dispatch(ctx, "ghp_static", repo, request)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(status))
				Expect(string(resp.Body)).To(Equal(body))
			},
			Entry("not found", http.StatusNotFound, `{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`),
			Entry("validation failed", http.StatusUnprocessableEntity, `{"message":"Validation Failed"}`),
			Entry("non-JSON body", http.StatusBadGateway, "upstream hiccup"),
		)

		It("returns an error when GitHub cannot be reached", func() {
			transport.RegisterResponder(http.MethodPost, apiBase+"/repos/acme-org/widget-api/dispatches",
				httpmock.NewErrorResponder(errors.New("dial tcp: i/o timeout")))

			_, err := gw.Dispatch(ctx, "ghp_static", repo, request)
			Expect(err).To(MatchError(ContainSubstring("i/o timeout")))
		})
	})
})

// githubTopicsResponse carries the caching headers GitHub sends on /topics.
func githubTopicsResponse(status int, body, etag string) *http.Response {
	resp := httpmock.NewStringResponse(status, body)
	resp.Header.Set("Cache-Control", "private, max-age=60, s-maxage=60")
	resp.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	resp.Header.Set("Vary", "Accept, Authorization, Cookie, X-GitHub-OTP")
	resp.Header.Set("ETag", etag)
	return resp
}
