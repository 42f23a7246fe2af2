package pipeline_test

import (
	"context"
	"sync"

	"github.com/novinrelay/lead-relay/internal/dedup"
	"github.com/novinrelay/lead-relay/internal/gateway"
	"github.com/novinrelay/lead-relay/internal/model"
)

type mockStore struct {
	CheckAndReserveFunc func(ctx context.Context, phone string) (dedup.Result, error)
	Phones              []string
}

func (m *mockStore) CheckAndReserve(ctx context.Context, phone string) (dedup.Result, error) {
	m.Phones = append(m.Phones, phone)
	if m.CheckAndReserveFunc != nil {
		return m.CheckAndReserveFunc(ctx, phone)
	}
	return dedup.Allowed, nil
}

type mockGateway struct {
	SendFunc func(ctx context.Context, req gateway.Request) gateway.Outcome
	Disabled bool
	Requests []gateway.Request
}

func (m *mockGateway) Enabled() bool { return !m.Disabled }

func (m *mockGateway) Send(ctx context.Context, req gateway.Request) gateway.Outcome {
	m.Requests = append(m.Requests, req)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return gateway.Outcome{Accepted: true, ProviderStatus: 200, MessageID: 1}
}

type mockAdmins struct {
	mu    sync.Mutex
	Texts []string
}

func (m *mockAdmins) NotifyAll(_ context.Context, text string) {
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.mu.Unlock()
}

func (m *mockAdmins) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Texts))
	copy(out, m.Texts)
	return out
}

type mockDeliveryLog struct {
	InsertFunc func(ctx context.Context, d model.Delivery) error
	Rows       []model.Delivery
}

func (m *mockDeliveryLog) Insert(ctx context.Context, d model.Delivery) error {
	m.Rows = append(m.Rows, d)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, d)
	}
	return nil
}
