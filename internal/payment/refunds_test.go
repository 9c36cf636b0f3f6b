package payment

import (
	"testing"

	"fulfillment-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestAddRefund(t *testing.T) {
	const returnID = "0b7e6a52-4f43-4c43-9a53-3f3c0f1d2a10"

	refunds := []*stripe.Refund{
		{ID: "re_other", Amount: 2000, Status: stripe.RefundStatusSucceeded, Metadata: map[string]string{"return_request_id": "another"}},
		{ID: "re_manual", Amount: 500, Status: stripe.RefundStatusSucceeded},
		{ID: "re_failed_other", Amount: 700, Status: stripe.RefundStatusFailed},
		{ID: "re_failed_own", Amount: 5150, Status: stripe.RefundStatusFailed, Metadata: map[string]string{"return_request_id": returnID}},
		{ID: "re_own", Amount: 5150, Status: stripe.RefundStatusSucceeded, Metadata: map[string]string{"return_request_id": returnID}},
		nil,
	}

	var h service.RefundHistory
	for _, r := range refunds {
		h = addRefund(h, r, returnID)
	}

	// свой возврат не уменьшает остаток, неуспешные не считаются
	assert.Equal(t, int64(2500), h.RefundedCents)
	require.NotNil(t, h.Existing)
	assert.Equal(t, "re_own", h.Existing.ID)
	assert.Equal(t, int64(5150), h.Existing.AmountCents)
}

func TestAddRefund_PendingOwnRefundIsExisting(t *testing.T) {
	h := addRefund(service.RefundHistory{}, &stripe.Refund{
		ID: "re_pending", Amount: 1000, Status: stripe.RefundStatusPending,
		Metadata: map[string]string{"return_request_id": "r1"},
	}, "r1")
	require.NotNil(t, h.Existing)
	assert.Equal(t, "pending", h.Existing.Status)
	assert.Zero(t, h.RefundedCents)

	// без id заявки metadata не сопоставляется
	h = addRefund(service.RefundHistory{}, &stripe.Refund{ID: "re_1", Amount: 300, Status: stripe.RefundStatusSucceeded}, "")
	assert.Nil(t, h.Existing)
	assert.Equal(t, int64(300), h.RefundedCents)
}
