package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fulfillment-service/internal/service"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// StripeGateway проверяет вебхуки и выполняет возвраты. Реализует service.PaymentProcessor.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	log           *zap.Logger
}

var _ service.PaymentProcessor = (*StripeGateway)(nil)

func NewStripeGateway(cfg Config, log *zap.Logger) *StripeGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, stripe.NewBackends(httpClient)),
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

// VerifyEvent проверяет подпись Stripe-Signature по сырому телу запроса.
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return VerifyEvent(payload, sigHeader, g.webhookSecret)
}

func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", service.ErrInvalidSignature, err)
	}
	return ev, nil
}

// ParseCheckoutCompleted возвращает nil без ошибки для событий другого типа.
func (g *StripeGateway) ParseCheckoutCompleted(payload []byte, sigHeader string) (*service.PaymentCompleted, error) {
	ev, err := g.VerifyEvent(payload, sigHeader)
	if err != nil {
		return nil, err
	}
	return ParseEvent(ev)
}

func ParseEvent(ev stripe.Event) (*service.PaymentCompleted, error) {
	if string(ev.Type) != service.EventCheckoutCompleted {
		return nil, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: empty event data", service.ErrInvalidEvent)
	}
	var cs CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidEvent, err)
	}
	return cs.ToPaymentCompleted(ev.ID)
}

func (g *StripeGateway) PaymentAmount(ctx context.Context, paymentIntentID string) (int64, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return 0, err
	}
	return pi.Amount, nil
}

// RefundHistory проходит по всем возвратам платежа. Возврат с metadata
// return_request_id этой заявки не входит в сумму и отдаётся как Existing.
func (g *StripeGateway) RefundHistory(ctx context.Context, paymentIntentID, returnRequestID string) (service.RefundHistory, error) {
	params := &stripe.RefundListParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	var h service.RefundHistory
	it := g.api.Refunds.List(params)
	for it.Next() {
		h = addRefund(h, it.Refund(), returnRequestID)
	}
	if err := it.Err(); err != nil {
		return service.RefundHistory{}, err
	}
	return h, nil
}

func addRefund(h service.RefundHistory, r *stripe.Refund, returnRequestID string) service.RefundHistory {
	if r == nil {
		return h
	}
	if returnRequestID != "" && r.Metadata["return_request_id"] == returnRequestID {
		switch r.Status {
		case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
			// неуспешная попытка, заявку можно вернуть заново
		default:
			if h.Existing == nil {
				h.Existing = &service.RefundResult{ID: r.ID, AmountCents: r.Amount, Status: string(r.Status)}
			}
		}
		return h
	}
	if r.Status == stripe.RefundStatusSucceeded {
		h.RefundedCents += r.Amount
	}
	return h
}

func (g *StripeGateway) Refund(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(req.AmountCents),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			return nil, fmt.Errorf("%w: %s", service.ErrChargeAlreadyRefunded, se.Msg)
		}
		return nil, err
	}

	g.log.Info("stripe refund created",
		zap.String("refund_id", r.ID),
		zap.String("payment_intent", req.PaymentIntentID),
		zap.Int64("amount", r.Amount),
		zap.String("status", string(r.Status)))
	return &service.RefundResult{ID: r.ID, AmountCents: r.Amount, Status: string(r.Status)}, nil
}
