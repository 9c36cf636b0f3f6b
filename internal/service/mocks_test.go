package service_test

import (
	"context"
	"sync"

	"fulfillment-service/internal/service"
)

// MockProcessor запоминает успешно созданные возвраты и по умолчанию
// отдаёт историю из них, как это делает провайдер.
type MockProcessor struct {
	PaymentAmountFunc func(ctx context.Context, pi string) (int64, error)
	RefundHistoryFunc func(ctx context.Context, pi, returnID string) (service.RefundHistory, error)
	RefundFunc        func(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error)

	mu      sync.Mutex
	refunds []service.RefundRequest
	issued  []issuedRefund
}

type issuedRefund struct {
	req service.RefundRequest
	res service.RefundResult
}

func (m *MockProcessor) PaymentAmount(ctx context.Context, pi string) (int64, error) {
	if m.PaymentAmountFunc != nil {
		return m.PaymentAmountFunc(ctx, pi)
	}
	return 0, nil
}

func (m *MockProcessor) RefundHistory(ctx context.Context, pi, returnID string) (service.RefundHistory, error) {
	if m.RefundHistoryFunc != nil {
		return m.RefundHistoryFunc(ctx, pi, returnID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var h service.RefundHistory
	for _, r := range m.issued {
		if r.req.PaymentIntentID != pi {
			continue
		}
		if r.req.Metadata["return_request_id"] == returnID {
			res := r.res
			h.Existing = &res
			continue
		}
		h.RefundedCents += r.res.AmountCents
	}
	return h, nil
}

func (m *MockProcessor) Refund(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error) {
	m.mu.Lock()
	m.refunds = append(m.refunds, req)
	m.mu.Unlock()

	res := &service.RefundResult{ID: "re_test", AmountCents: req.AmountCents, Status: "succeeded"}
	if m.RefundFunc != nil {
		var err error
		if res, err = m.RefundFunc(ctx, req); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.issued = append(m.issued, issuedRefund{req: req, res: *res})
	m.mu.Unlock()
	return res, nil
}

func (m *MockProcessor) Refunds() []service.RefundRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.RefundRequest(nil), m.refunds...)
}

// MockShipper
type MockShipper struct {
	CreateShipmentFunc func(ctx context.Context, req service.ShipmentRequest) (string, error)

	mu       sync.Mutex
	requests []service.ShipmentRequest
}

func (m *MockShipper) CreateShipment(ctx context.Context, req service.ShipmentRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CreateShipmentFunc != nil {
		return m.CreateShipmentFunc(ctx, req)
	}
	return "TRK-TEST", nil
}

func (m *MockShipper) Requests() []service.ShipmentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.ShipmentRequest(nil), m.requests...)
}

// MockEvents
type MockEvents struct {
	mu        sync.Mutex
	confirmed []service.OrderConfirmedEvent
	refunded  []service.ReturnRefundedEvent
	rejected  []service.ReturnRejectedEvent
}

func (m *MockEvents) PublishOrderConfirmed(ctx context.Context, e service.OrderConfirmedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = append(m.confirmed, e)
	return nil
}

func (m *MockEvents) PublishReturnRefunded(ctx context.Context, e service.ReturnRefundedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunded = append(m.refunded, e)
	return nil
}

func (m *MockEvents) PublishReturnRejected(ctx context.Context, e service.ReturnRejectedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, e)
	return nil
}
