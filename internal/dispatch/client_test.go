package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forma22-agency/gh-dispatch-relay/internal/dispatch"
	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
)

const dispatchURL = "https://api.github.com/repos/acme-org/widget-api/dispatches"

var _ = Describe("Client", func() {
	var (
		ctx       context.Context
		transport *httpmock.MockTransport
		client    dispatch.Client
		repo      domain.Repository
		cred      domain.Credential
		request   domain.DispatchRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = httpmock.NewMockTransport()
		gw, err := github.NewGateway(github.Config{Timeout: time.Second}, transport)
		Expect(err).NotTo(HaveOccurred())

		client = dispatch.NewClient(gw)
		repo = domain.Repository{Owner: "acme-org", Name: "widget-api"}
		cred = domain.StaticToken{Value: "ghp_static"}
		request = domain.DispatchRequest{
			EventType:     "stackrox_copa",
			ClientPayload: json.RawMessage(`{"alert":{"id":"a1"}}`),
		}
	})

	It("reports success on 204", func() {
		transport.RegisterResponder(http.MethodPost, dispatchURL, httpmock.NewStringResponder(http.StatusNoContent, ""))

		outcome, err := client.Dispatch(ctx, repo, cred, request)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(domain.DispatchSuccess{Repository: repo}))
	})

	It("passes GitHub's rejection through untouched", func() {
		body := `{"message":"Not Found","documentation_url":"https://docs.github.com/rest/repos/repos#create-a-repository-dispatch-event"}`
		transport.RegisterResponder(http.MethodPost, dispatchURL, httpmock.NewStringResponder(http.StatusNotFound, body))

		outcome, err := client.Dispatch(ctx, repo, cred, request)
		Expect(err).NotTo(HaveOccurred())

		failure, ok := outcome.(*domain.DispatchFailure)
		Expect(ok).To(BeTrue())
		Expect(failure.StatusCode).To(Equal(http.StatusNotFound))
		Expect(string(failure.Body)).To(Equal(body))
	})

	It("treats unexpected 2xx answers as failures", func() {
		transport.RegisterResponder(http.MethodPost, dispatchURL, httpmock.NewStringResponder(http.StatusOK, `{}`))

		outcome, err := client.Dispatch(ctx, repo, cred, request)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(&domain.DispatchFailure{StatusCode: http.StatusOK, Body: []byte(`{}`)}))
	})

	It("forwards repeated identical events every time", func() {
		transport.RegisterResponder(http.MethodPost, dispatchURL, httpmock.NewStringResponder(http.StatusNoContent, ""))

		for range 3 {
			_, err := client.Dispatch(ctx, repo, cred, request)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(transport.GetCallCountInfo()["POST "+dispatchURL]).To(Equal(3))
	})

	It("returns an upstream error when GitHub is unreachable", func() {
		transport.RegisterResponder(http.MethodPost, dispatchURL, httpmock.NewErrorResponder(errors.New("connection reset by peer")))

		outcome, err := client.Dispatch(ctx, repo, cred, request)
		Expect(outcome).To(BeNil())

		var upstream *domain.UpstreamError
		Expect(errors.As(err, &upstream)).To(BeTrue())
		Expect(upstream.StatusCode).To(BeZero())
	})
})
