package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fulfillment-service/internal/cache"
	"fulfillment-service/internal/migrate"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/service"
	"fulfillment-service/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	repo      *repository.Repository
	inventory *service.InventoryService
	payments  *service.PaymentService
	returns   *service.ReturnService
	orders    *service.OrderService
	processor *MockProcessor
	shipper   *MockShipper
	events    *MockEvents
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateFulfillmentDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.New(db)
	log := zap.NewNop()

	e := &env{
		repo:      repo,
		processor: &MockProcessor{},
		shipper:   &MockShipper{},
		events:    &MockEvents{},
	}
	e.inventory = service.NewInventoryService(repo, 15*time.Minute, log)
	e.payments = service.NewPaymentService(repo, e.inventory, e.shipper, e.events, log)
	e.returns = service.NewReturnService(repo, e.processor, e.shipper, cache.NewLocalLocker(), e.events, log)
	e.orders = service.NewOrderService(repo)
	return e
}

func customerCtx(uid uuid.UUID) context.Context {
	return service.WithRole(service.WithUserID(context.Background(), uid), service.RoleCustomer)
}

func adminCtx() context.Context {
	return service.WithRole(service.WithUserID(context.Background(), uuid.New()), service.RoleAdmin)
}

type catalog struct {
	shirt, hat uuid.UUID
}

func seedCatalog(t *testing.T, e *env) catalog {
	t.Helper()
	ctx := context.Background()
	shirt := &models.Product{Title: "Shirt", Price: dec("45"), Variants: []models.Variant{{Size: "M", Color: "Black", Quantity: 5}}}
	hat := &models.Product{Title: "Hat", Price: dec("45"), Variants: []models.Variant{{Size: "OS", Color: "Red", Quantity: 5}}}
	require.NoError(t, e.repo.Products.Create(ctx, shirt))
	require.NoError(t, e.repo.Products.Create(ctx, hat))
	return catalog{shirt: shirt.ID, hat: hat.ID}
}

// checkout на 113: два товара по 45, доставка 10, налог 13
func checkout(c catalog, session string, uid uuid.UUID) service.PaymentCompleted {
	return service.PaymentCompleted{
		EventID:         "evt_" + session,
		SessionID:       session,
		PaymentIntentID: "pi_" + session,
		CustomerEmail:   "buyer@example.com",
		AmountTotal:     11300,
		Currency:        "cad",
		UserID:          &uid,
		Shipping: models.ShippingInfo{
			FirstName: "Jane", LastName: "Doe", Address: "1 Main St", City: "Toronto",
			State: "ON", ZipCode: "M5V 1A1", Country: "CA",
		},
		Items: []service.CheckoutItem{
			{ProductID: c.shirt, Title: "Shirt", Size: "M", Color: "Black", Quantity: 1, Price: dec("45")},
			{ProductID: c.hat, Title: "Hat", Size: "OS", Color: "Red", Quantity: 1, Price: dec("45")},
		},
		Tax:          dec("13"),
		TaxRate:      dec("0.13"),
		ShippingCost: dec("10"),
	}
}

func variant(t *testing.T, e *env, productID uuid.UUID) models.Variant {
	t.Helper()
	list, err := e.repo.Variants.ListByProduct(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestHandleCheckoutCompleted_Idempotent(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)
	uid := uuid.New()

	_, err := e.inventory.Reserve(customerCtx(uid), service.ReserveInput{ProductID: c.shirt, Size: "M", Color: "Black", Quantity: 1})
	require.NoError(t, err)

	ev := checkout(c, "cs_idem", uid)
	first, err := e.payments.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	second, err := e.payments.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.OrderStatusConfirmed, first.Status)
	assert.Equal(t, models.PaymentStatusPaid, first.PaymentStatus)
	assert.Equal(t, "113.00", first.Total.StringFixed(2))
	assert.Equal(t, "CAD", first.Currency)
	assert.Equal(t, "buyer@example.com", first.ShippingInfo.Email)

	_, total, err := e.repo.Orders.List(context.Background(), repository.OrderListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// остаток списан один раз, резерв погашен
	sv := variant(t, e, c.shirt)
	assert.Equal(t, 4, sv.Quantity)
	assert.Zero(t, sv.ReservedQuantity)
	assert.Nil(t, sv.ReservedUntil)
	assert.Equal(t, 4, variant(t, e, c.hat).Quantity)

	// отправка запрошена один раз, трек сохранён
	reqs := e.shipper.Requests()
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].IsReturn)
	assert.True(t, strings.HasPrefix(reqs[0].IdempotencyKey, "ship_cs_idem_"))
	require.NotNil(t, second.TrackingNumber)
	assert.Equal(t, "TRK-TEST", *second.TrackingNumber)

	assert.Len(t, e.events.confirmed, 1)

	stored, err := e.repo.PaymentEvents.Get(context.Background(), "cs_idem")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentEventProcessed, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
}

func TestHandleCheckoutCompleted_ConcurrentDeliveries(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)
	ev := checkout(c, "cs_race", uuid.New())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[uuid.UUID]struct{}{}
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := e.payments.HandleCheckoutCompleted(context.Background(), ev)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[o.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 4, variant(t, e, c.shirt).Quantity)
}

func TestHandleCheckoutCompleted_ShipmentFailureIsNotFatal(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)
	e.shipper.CreateShipmentFunc = func(ctx context.Context, req service.ShipmentRequest) (string, error) {
		return "", errors.New("carrier down")
	}

	ev := checkout(c, "cs_ship_fail", uuid.New())
	o, err := e.payments.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, o.Status)
	assert.Nil(t, o.TrackingNumber)

	// повторная доставка повторяет отправку с тем же ключом
	e.shipper.CreateShipmentFunc = nil
	o2, err := e.payments.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, o2.TrackingNumber)

	reqs := e.shipper.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].IdempotencyKey, reqs[1].IdempotencyKey)
	assert.Equal(t, 4, variant(t, e, c.shirt).Quantity)
}

func TestHandleCheckoutCompleted_OversellAndMissingVariant(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)

	ev := checkout(c, "cs_oversell", uuid.New())
	ev.Items[0].Quantity = 7
	ev.Items = append(ev.Items, service.CheckoutItem{ProductID: uuid.New(), Title: "Ghost", Size: "L", Color: "Blue", Quantity: 1, Price: dec("1")})

	o, err := e.payments.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	assert.Len(t, o.Items, 3)
	assert.Zero(t, variant(t, e, c.shirt).Quantity)
}

func TestReplayAndRetryShipment(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)
	e.shipper.CreateShipmentFunc = func(ctx context.Context, req service.ShipmentRequest) (string, error) {
		return "", errors.New("carrier down")
	}
	o, err := e.payments.HandleCheckoutCompleted(context.Background(), checkout(c, "cs_replay", uuid.New()))
	require.NoError(t, err)

	_, err = e.payments.RetryShipment(customerCtx(uuid.New()), o.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = e.payments.RetryShipment(adminCtx(), o.ID)
	assert.ErrorIs(t, err, service.ErrCarrier)

	e.shipper.CreateShipmentFunc = nil
	shipped, err := e.payments.RetryShipment(adminCtx(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, shipped.TrackingNumber)

	replayed, err := e.payments.Replay(adminCtx(), "cs_replay")
	require.NoError(t, err)
	assert.Equal(t, o.ID, replayed.ID)
	assert.Equal(t, 4, variant(t, e, c.shirt).Quantity)

	_, err = e.payments.Replay(adminCtx(), "cs_unknown")
	assert.ErrorIs(t, err, service.ErrPaymentEventNotFound)
}

func TestOrderService_Access(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)
	owner := uuid.New()
	o, err := e.payments.HandleCheckoutCompleted(context.Background(), checkout(c, "cs_access", owner))
	require.NoError(t, err)

	got, err := e.orders.GetOrder(customerCtx(owner), o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	_, err = e.orders.GetOrder(customerCtx(uuid.New()), o.ID)
	assert.ErrorIs(t, err, service.ErrOrderNotFound)

	_, err = e.orders.GetOrderBySession(customerCtx(uuid.New()), "cs_access")
	assert.ErrorIs(t, err, service.ErrOrderNotFound)

	got, err = e.orders.GetOrderBySession(adminCtx(), "cs_access")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	list, total, err := e.orders.ListOrders(customerCtx(uuid.New()), service.ListOrdersFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	_, err = e.orders.GetOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestInventory_ReserveConcurrent(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)
	ctx := customerCtx(uuid.New())

	var (
		wg           sync.WaitGroup
		ok, rejected int32
		mu           sync.Mutex
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.inventory.Reserve(ctx, service.ReserveInput{ProductID: c.shirt, Size: "M", Color: "Black", Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), ok)
	assert.Equal(t, int32(5), rejected)
	v := variant(t, e, c.shirt)
	assert.Equal(t, 5, v.ReservedQuantity)
	assert.Zero(t, v.Available())
}

func TestInventory_SetStockAndRelease(t *testing.T) {
	e := setup(t)
	c := seedCatalog(t, e)

	_, err := e.inventory.SetStock(customerCtx(uuid.New()), c.hat, []service.StockUpdate{{Size: "OS", Color: "Red", Quantity: 9}})
	assert.ErrorIs(t, err, service.ErrForbidden)

	p, err := e.inventory.SetStock(adminCtx(), c.hat, []service.StockUpdate{{Size: "OS", Color: "Red", Quantity: 9}})
	require.NoError(t, err)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, 9, p.Variants[0].Quantity)

	_, err = e.inventory.SetStock(adminCtx(), c.hat, []service.StockUpdate{{Size: "XL", Color: "Red", Quantity: 1}})
	assert.ErrorIs(t, err, service.ErrVariantNotFound)

	v, err := e.inventory.Reserve(customerCtx(uuid.New()), service.ReserveInput{ProductID: c.hat, Size: "OS", Color: "Red", Quantity: 3})
	require.NoError(t, err)
	released, err := e.inventory.Release(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Zero(t, released.ReservedQuantity)
	assert.Greater(t, released.Version, v.Version)

	_, err = e.inventory.GetStock(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

// --- возвраты ---

type returnFixture struct {
	*env
	catalog
	owner uuid.UUID
	order *models.Order
}

func setupReturns(t *testing.T) *returnFixture {
	t.Helper()
	e := setup(t)
	c := seedCatalog(t, e)
	owner := uuid.New()
	o, err := e.payments.HandleCheckoutCompleted(context.Background(), checkout(c, "cs_returns_"+uuid.NewString()[:8], owner))
	require.NoError(t, err)
	e.processor.PaymentAmountFunc = func(ctx context.Context, pi string) (int64, error) { return 11300, nil }
	return &returnFixture{env: e, catalog: c, owner: owner, order: o}
}

func (f *returnFixture) shirtReturn() service.CreateReturnInput {
	return service.CreateReturnInput{
		OrderID: f.order.ID,
		Reason:  "too small",
		Items:   []service.ReturnItemInput{{ProductID: f.shirt, Title: "Shirt", Size: "M", Color: "Black", Quantity: 1}},
	}
}

func TestCreateReturn(t *testing.T) {
	f := setupReturns(t)
	ctx := customerCtx(f.owner)

	rr, err := f.returns.CreateReturn(ctx, f.shirtReturn())
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusPending, rr.Status)
	assert.Equal(t, f.owner, rr.UserID)
	require.Len(t, rr.Items, 1)
	assert.Equal(t, "45.00", rr.Items[0].Price.StringFixed(2))

	// та же позиция плюс новая: отказ с названием повторной
	in := f.shirtReturn()
	in.Items = append(in.Items, service.ReturnItemInput{ProductID: f.hat, Title: "Hat", Size: "OS", Color: "Red", Quantity: 1})
	_, err = f.returns.CreateReturn(ctx, in)
	var dup *service.DuplicateItemsError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, []string{"Shirt"}, dup.Titles)

	// чужой заказ
	_, err = f.returns.CreateReturn(customerCtx(uuid.New()), f.shirtReturn())
	assert.ErrorIs(t, err, service.ErrOrderNotFound)

	bad := f.shirtReturn()
	bad.Items[0].Quantity = 2
	bad.Items[0].ProductID = f.hat
	bad.Items[0].Size, bad.Items[0].Color = "OS", "Red"
	_, err = f.returns.CreateReturn(ctx, bad)
	assert.ErrorIs(t, err, service.ErrReturnQuantity)

	missing := f.shirtReturn()
	missing.Items[0].Size = "XXL"
	_, err = f.returns.CreateReturn(ctx, missing)
	assert.ErrorIs(t, err, service.ErrItemNotInOrder)

	noReason := f.shirtReturn()
	noReason.Reason = "  "
	_, err = f.returns.CreateReturn(ctx, noReason)
	assert.ErrorIs(t, err, service.ErrReasonRequired)
}

func TestApprove_RefundsProportionalTax(t *testing.T) {
	f := setupReturns(t)
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	_, err = f.returns.Approve(customerCtx(f.owner), rr.ID, service.ApproveInput{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	reason := "damaged"
	res, err := f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, "re_test", res.RefundID)
	assert.Equal(t, "51.50", res.Breakdown.RefundAmount.StringFixed(2))
	assert.Equal(t, "6.50", res.Breakdown.ReturnedItemsTax.StringFixed(2))
	assert.Equal(t, models.ReturnStatusRefunded, res.Return.Status)
	assert.Equal(t, "51.50", res.Return.RefundAmount.StringFixed(2))

	refunds := f.processor.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(5150), refunds[0].AmountCents)
	assert.Equal(t, "refund_"+rr.ID.String(), refunds[0].IdempotencyKey)
	assert.Equal(t, f.order.PaymentID, refunds[0].PaymentIntentID)
	assert.Equal(t, "too small", refunds[0].Metadata["reason"])
	assert.Equal(t, rr.ID.String(), refunds[0].Metadata["return_request_id"])
	assert.NotContains(t, refunds[0].Metadata, "admin_reason")
	require.NotNil(t, res.Return.RefundReason)
	assert.Equal(t, "damaged", *res.Return.RefundReason)
	assert.Equal(t, "100.00", res.Return.RefundPercentage.StringFixed(2))

	o, err := f.repo.Orders.GetByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, o.PaymentStatus)
	assert.Len(t, f.events.refunded, 1)

	// повтор: заявка уже не pending, денег не двигаем
	_, err = f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{})
	assert.ErrorIs(t, err, service.ErrReturnNotPending)
	assert.Len(t, f.processor.Refunds(), 1)
}

func TestApprove_ExceedsRemaining(t *testing.T) {
	f := setupReturns(t)
	f.processor.RefundHistoryFunc = func(ctx context.Context, pi, returnID string) (service.RefundHistory, error) {
		return service.RefundHistory{RefundedCents: 8000}, nil
	}
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	_, err = f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{})
	var exceeded *service.RefundExceedsRemainingError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "51.50", exceeded.Requested.StringFixed(2))
	assert.Equal(t, "33.00", exceeded.Remaining.StringFixed(2))
	assert.Equal(t, "80.00", exceeded.Refunded.StringFixed(2))
	assert.Empty(t, f.processor.Refunds())

	stored, err := f.repo.Returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusPending, stored.Status)
}

func TestApprove_ChargeAlreadyRefunded(t *testing.T) {
	f := setupReturns(t)
	f.processor.RefundFunc = func(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error) {
		return nil, fmt.Errorf("%w: charge ch_1 has already been refunded", service.ErrChargeAlreadyRefunded)
	}
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	res, err := f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{})
	require.NoError(t, err)
	assert.Equal(t, "already_refunded", res.RefundID)
	assert.Equal(t, models.ReturnStatusRefunded, res.Return.Status)
}

func TestApprove_ProcessorFailureLeavesPending(t *testing.T) {
	f := setupReturns(t)
	f.processor.RefundFunc = func(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error) {
		return nil, errors.New("card_declined")
	}
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	_, err = f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{})
	var pErr *service.ProcessorError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "create refund", pErr.Op)

	stored, err := f.repo.Returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusPending, stored.Status)
	o, err := f.repo.Orders.GetByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)

	// повтор с другим комментарием администратора шлёт те же параметры под тем же ключом
	f.processor.RefundFunc = nil
	other := "changed my mind"
	_, err = f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{Reason: &other})
	require.NoError(t, err)
	refunds := f.processor.Refunds()
	require.Len(t, refunds, 2)
	assert.Equal(t, refunds[0].IdempotencyKey, refunds[1].IdempotencyKey)
	assert.Equal(t, refunds[0].AmountCents, refunds[1].AmountCents)
	assert.Equal(t, refunds[0].Metadata, refunds[1].Metadata)
}

func (f *returnFixture) fullReturn() service.CreateReturnInput {
	in := f.shirtReturn()
	in.Items = append(in.Items, service.ReturnItemInput{ProductID: f.hat, Title: "Hat", Size: "OS", Color: "Red", Quantity: 1})
	return in
}

func TestApprove_RecordsRefundIssuedByEarlierAttempt(t *testing.T) {
	f := setupReturns(t)
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.fullReturn())
	require.NoError(t, err)

	// провайдер вернул деньги, но запись в БД не случилась: контекст оборвался сразу после ответа
	ctx, cancel := context.WithCancel(adminCtx())
	f.processor.RefundFunc = func(_ context.Context, req service.RefundRequest) (*service.RefundResult, error) {
		cancel()
		return &service.RefundResult{ID: "re_first", AmountCents: req.AmountCents, Status: "succeeded"}, nil
	}
	_, err = f.returns.Approve(ctx, rr.ID, service.ApproveInput{})
	require.Error(t, err)

	stored, err := f.repo.Returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusPending, stored.Status)
	require.Len(t, f.processor.Refunds(), 1)
	assert.Equal(t, int64(10300), f.processor.Refunds()[0].AmountCents)

	// деньги ушли: отклонить такую заявку нельзя
	_, err = f.returns.Reject(adminCtx(), rr.ID)
	assert.ErrorIs(t, err, service.ErrRefundAlreadyIssued)

	f.processor.RefundFunc = nil
	res, err := f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{})
	require.NoError(t, err)
	assert.Equal(t, "re_first", res.RefundID)
	assert.Equal(t, models.ReturnStatusRefunded, res.Return.Status)
	assert.Equal(t, "103.00", res.Return.RefundAmount.StringFixed(2))
	assert.Len(t, f.processor.Refunds(), 1)

	o, err := f.repo.Orders.GetByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, o.PaymentStatus)
	assert.Len(t, f.events.refunded, 1)
}

func TestApprove_OtherReturnsCountAgainstRemaining(t *testing.T) {
	f := setupReturns(t)
	first, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)
	_, err = f.returns.Approve(adminCtx(), first.ID, service.ApproveInput{})
	require.NoError(t, err)

	hat := f.shirtReturn()
	hat.Items = []service.ReturnItemInput{{ProductID: f.hat, Title: "Hat", Size: "OS", Color: "Red", Quantity: 1}}
	second, err := f.returns.CreateReturn(customerCtx(f.owner), hat)
	require.NoError(t, err)

	// оплачено 60.00, первая заявка уже вернула 51.50
	f.processor.PaymentAmountFunc = func(ctx context.Context, pi string) (int64, error) { return 6000, nil }
	_, err = f.returns.Approve(adminCtx(), second.ID, service.ApproveInput{})
	var exceeded *service.RefundExceedsRemainingError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "51.50", exceeded.Refunded.StringFixed(2))
	assert.Equal(t, "8.50", exceeded.Remaining.StringFixed(2))
	assert.Len(t, f.processor.Refunds(), 1)
}

func TestApprove_PercentageBounds(t *testing.T) {
	f := setupReturns(t)
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	over := dec("100.01")
	_, err = f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{Percentage: &over})
	assert.ErrorIs(t, err, service.ErrInvalidPercentage)

	_, err = f.returns.Process(adminCtx(), rr.ID, "refund", service.ApproveInput{})
	assert.ErrorIs(t, err, service.ErrInvalidAction)
}

func TestReject_HasNoMonetaryEffect(t *testing.T) {
	f := setupReturns(t)
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	res, err := f.returns.Process(adminCtx(), rr.ID, "reject", service.ApproveInput{})
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusRejected, res.Return.Status)
	assert.Empty(t, f.processor.Refunds())
	assert.Len(t, f.events.rejected, 1)

	o, err := f.repo.Orders.GetByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)

	_, err = f.returns.Reject(adminCtx(), rr.ID)
	assert.ErrorIs(t, err, service.ErrReturnNotPending)
	_, err = f.returns.Approve(adminCtx(), rr.ID, service.ApproveInput{})
	assert.ErrorIs(t, err, service.ErrReturnNotPending)

	// отклонённая заявка не блокирует повторную подачу
	_, err = f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	assert.NoError(t, err)
}

func TestReturnShipment(t *testing.T) {
	f := setupReturns(t)
	rr, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	shipped, err := f.returns.RequestReturnShipment(customerCtx(f.owner), rr.ID)
	require.NoError(t, err)
	require.NotNil(t, shipped.ReturnTrackingNumber)

	reqs := f.shipper.Requests()
	last := reqs[len(reqs)-1]
	assert.True(t, last.IsReturn)
	assert.True(t, strings.HasPrefix(last.IdempotencyKey, "return_"+rr.ID.String()+"_"))
	require.Len(t, last.Items, 1)
	assert.Equal(t, 1, last.Items[0].Quantity)

	// трек уже есть: перевозчик больше не вызывается
	_, err = f.returns.RequestReturnShipment(customerCtx(f.owner), rr.ID)
	require.NoError(t, err)
	assert.Len(t, f.shipper.Requests(), len(reqs))

	_, err = f.returns.RequestReturnShipment(customerCtx(uuid.New()), rr.ID)
	assert.ErrorIs(t, err, service.ErrReturnNotFound)
}

func TestListReturns_ScopedToCustomer(t *testing.T) {
	f := setupReturns(t)
	_, err := f.returns.CreateReturn(customerCtx(f.owner), f.shirtReturn())
	require.NoError(t, err)

	list, total, err := f.returns.ListReturns(customerCtx(uuid.New()), repository.ReturnListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	list, total, err = f.returns.ListReturns(adminCtx(), repository.ReturnListFilter{OrderID: &f.order.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
