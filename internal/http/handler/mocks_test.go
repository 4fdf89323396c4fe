package handler_test

import (
	"context"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/service"
)

type mockRelayService struct {
	relayFn  func(ctx context.Context, params service.RelayParams) (*service.RelayResult, error)
	captured service.RelayParams
	calls    int
}

func (m *mockRelayService) Relay(ctx context.Context, params service.RelayParams) (*service.RelayResult, error) {
	m.calls++
	m.captured = params
	if m.relayFn != nil {
		return m.relayFn(ctx, params)
	}
	return &service.RelayResult{
		DeliveryID: params.DeliveryID,
		Repository: domain.Repository{Owner: "acme-org", Name: "widget-api"},
		EventType:  "stackrox_copa",
	}, nil
}
