package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-checkout/internal/checkout/payment"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ItemsForLineItems(ctx context.Context, lineItems []models.LineItem) ([]models.ProductItem, error) {
	args := m.Called(ctx, lineItems)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductItem), args.Error(1)
}

func (m *mockStore) ReserveItem(ctx context.Context, itemID, orderID, userID string) (bool, error) {
	args := m.Called(ctx, itemID, orderID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ReleaseItem(ctx context.Context, itemID, orderID string) error {
	args := m.Called(ctx, itemID, orderID)
	return args.Error(0)
}

func (m *mockStore) ReservationsByOrder(ctx context.Context, orderID string) ([]models.ReservationEntry, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservationEntry), args.Error(1)
}

func (m *mockStore) DeleteReservations(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *mockStore) CommitOrder(ctx context.Context, order models.Order, itemIDs []string) error {
	args := m.Called(ctx, order, itemIDs)
	return args.Error(0)
}

func (m *mockStore) FollowBreaks(ctx context.Context, userID string, breakIDs []string) error {
	args := m.Called(ctx, userID, breakIDs)
	return args.Error(0)
}

func (m *mockStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockStore) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockCommerce struct {
	mock.Mock
}

func (m *mockCommerce) GetCheckout(ctx context.Context, cartID string) (*models.Checkout, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Checkout), args.Error(1)
}

func (m *mockCommerce) CreateOrderFromCheckout(ctx context.Context, cartID string) (int64, error) {
	args := m.Called(ctx, cartID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCommerce) MarkOrderPending(ctx context.Context, bcOrderID int64) error {
	args := m.Called(ctx, bcOrderID)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Authorize(ctx context.Context, token, merchantRef string, amount float64) (string, error) {
	args := m.Called(ctx, token, merchantRef, amount)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) Settle(ctx context.Context, authID, merchantRef string) error {
	args := m.Called(ctx, authID, merchantRef)
	return args.Error(0)
}

func (m *mockGateway) Void(ctx context.Context, authID string) error {
	args := m.Called(ctx, authID)
	return args.Error(0)
}

type mockGuard struct {
	mock.Mock
}

func (m *mockGuard) Acquire(ctx context.Context, cartID, orderID string) (bool, error) {
	args := m.Called(ctx, cartID, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGuard) Release(ctx context.Context, cartID, orderID string) error {
	args := m.Called(ctx, cartID, orderID)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderCompleted(order models.Order, itemIDs []string) error {
	args := m.Called(order, itemIDs)
	return args.Error(0)
}

type sagaFixture struct {
	store    *mockStore
	commerce *mockCommerce
	gateway  *mockGateway
	guard    *mockGuard
	events   *mockPublisher
	service  *Service
}

func newSagaFixture() *sagaFixture {
	f := &sagaFixture{
		store:    new(mockStore),
		commerce: new(mockCommerce),
		gateway:  new(mockGateway),
		guard:    new(mockGuard),
		events:   new(mockPublisher),
	}
	f.service = NewService(f.store, f.commerce, f.gateway, f.guard, f.events, logger.NewSilentLogger())
	return f
}

func (f *sagaFixture) assertExpectations(t *testing.T) {
	f.store.AssertExpectations(t)
	f.commerce.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.guard.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func twoSpotCheckout() (*models.Checkout, []models.ProductItem) {
	checkout := &models.Checkout{
		ID: "checkout001",
		Cart: models.Cart{
			ID: "cart001",
			LineItems: models.LineItems{
				PhysicalItems: []models.LineItem{
					{ID: "li1", ProductID: 100, VariantID: 200, Quantity: 1},
					{ID: "li2", ProductID: 101, VariantID: 201, Quantity: 1},
				},
			},
		},
		SubtotalExTax:          50.0,
		TaxTotal:               5.0,
		ShippingCostTotalExTax: 0,
		GrandTotal:             55.0,
	}

	sellable := &models.Break{ID: "break001", Status: models.BreakStatusUpcoming}
	items := []models.ProductItem{
		{ID: "spot1", BreakID: "break001", Quantity: 1, BCProductID: 100, BCVariantID: 200, Break: sellable},
		{ID: "spot2", BreakID: "break001", Quantity: 1, BCProductID: 101, BCVariantID: 201, Break: sellable},
	}
	return checkout, items
}

func assertCheckoutCode(t *testing.T, err error, code Code) {
	t.Helper()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, code, cerr.Code)
}

func TestCreateOrderSuccess(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.AnythingOfType("string")).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.AnythingOfType("string")).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, checkout.Cart.LineItems.PhysicalItems).Return(items, nil)
	f.store.On("ReserveItem", ctx, "spot1", mock.AnythingOfType("string"), "user123").Return(true, nil)
	f.store.On("ReserveItem", ctx, "spot2", mock.AnythingOfType("string"), "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.AnythingOfType("string"), 55.0).Return("pi_test123", nil)
	f.commerce.On("CreateOrderFromCheckout", ctx, "cart001").Return(int64(777), nil)
	f.commerce.On("MarkOrderPending", ctx, int64(777)).Return(nil)
	f.gateway.On("Settle", ctx, "pi_test123", mock.AnythingOfType("string")).Return(nil)
	f.store.On("CommitOrder", ctx, mock.AnythingOfType("models.Order"), []string{"spot1", "spot2"}).Return(nil)

	// Side effects run on their own goroutine; signal when the last one
	// lands so the assertions below are deterministic.
	done := make(chan struct{})
	f.store.On("FollowBreaks", mock.Anything, "user123", []string{"break001"}).Return(nil)
	f.store.On("DeleteReservations", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	f.events.On("PublishOrderCompleted", mock.AnythingOfType("models.Order"), []string{"spot1", "spot2"}).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil)

	resp, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, 55.0, resp.GrandTotal)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("side effects never ran")
	}

	f.assertExpectations(t)

	// The order id doubles as the payment idempotency key.
	authRef := f.gateway.Calls[0].Arguments.String(2)
	assert.Equal(t, resp.OrderID, authRef)

	committed := f.store.Calls[3].Arguments.Get(1).(models.Order)
	assert.Equal(t, resp.OrderID, committed.ID)
	assert.Equal(t, int64(777), committed.BCOrderID)
	assert.Equal(t, "pi_test123", committed.PaymentID)
}

func TestCreateOrderFreeCartSkipsGateway(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	checkout.GrandTotal = 0
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.commerce.On("CreateOrderFromCheckout", ctx, "cart001").Return(int64(778), nil)
	f.commerce.On("MarkOrderPending", ctx, int64(778)).Return(nil)
	f.store.On("CommitOrder", ctx, mock.Anything, mock.Anything).Return(nil)
	f.store.On("FollowBreaks", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.store.On("DeleteReservations", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.events.On("PublishOrderCompleted", mock.Anything, mock.Anything).Return(nil).Maybe()

	resp, err := f.service.CreateOrder(ctx, "user123", "cart001", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.GrandTotal)

	f.gateway.AssertNotCalled(t, "Authorize")
	f.gateway.AssertNotCalled(t, "Settle")
}

func TestCreateOrderGuardContention(t *testing.T) {
	f := newSagaFixture()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(false, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeCheckoutUnavailable)

	f.guard.AssertNotCalled(t, "Release")
	f.commerce.AssertNotCalled(t, "GetCheckout")
}

func TestCreateOrderGuardReleasedAfterContextCancel(t *testing.T) {
	f := newSagaFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)

	// The client disconnects mid-saga; the checkout fetch fails on the
	// dead request context.
	f.commerce.On("GetCheckout", ctx, "cart001").
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	// The lock release must still go through on a live context, or the
	// cart stays locked for the full TTL.
	f.guard.On("Release",
		mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }),
		"cart001", mock.AnythingOfType("string")).Return(nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeCheckoutUnavailable)

	f.guard.AssertExpectations(t)
}

func TestCreateOrderCheckoutFetchFails(t *testing.T) {
	f := newSagaFixture()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(nil, errors.New("upstream 503"))

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeCheckoutUnavailable)
	f.store.AssertNotCalled(t, "ItemsForLineItems")
}

func TestCreateOrderSoldSpotFailsBeforeReserving(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	items[1].OrderID = "earlier-order"
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeSpotUnavailable)

	f.store.AssertNotCalled(t, "ReserveItem")
	f.gateway.AssertNotCalled(t, "Authorize")
}

func TestCreateOrderLiveBreakNotSellable(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	live := &models.Break{ID: "break001", Status: models.BreakStatusLive}
	items[0].Break = live
	items[1].Break = live
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeSpotUnavailable)
	f.store.AssertNotCalled(t, "ReserveItem")
}

func TestCreateOrderLineItemMismatch(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items[:1], nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeItemLookupFailed)
}

func TestCreateOrderPartialReservationIsRolledBack(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, "spot1", mock.Anything, "user123").Return(true, nil)
	f.store.On("ReserveItem", ctx, "spot2", mock.Anything, "user123").Return(false, nil)

	// Compensation consults the ledger and releases what actually landed.
	f.store.On("ReservationsByOrder", mock.Anything, mock.AnythingOfType("string")).
		Return([]models.ReservationEntry{{ProductItemID: "spot1"}}, nil)
	f.store.On("ReleaseItem", mock.Anything, "spot1", mock.AnythingOfType("string")).Return(nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeSpotUnavailable)

	f.gateway.AssertNotCalled(t, "Authorize")
	f.assertExpectations(t)
}

func TestCreateOrderAuthorizationFails(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.Anything, 55.0).Return("", errors.New("card declined"))
	f.store.On("ReservationsByOrder", mock.Anything, mock.Anything).
		Return([]models.ReservationEntry{{ProductItemID: "spot1"}, {ProductItemID: "spot2"}}, nil)
	f.store.On("ReleaseItem", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodePaymentAuthFailed)

	f.commerce.AssertNotCalled(t, "CreateOrderFromCheckout")
	f.gateway.AssertNotCalled(t, "Void")
}

func TestCreateOrderInsufficientFunds(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.Anything, 55.0).
		Return("", payment.ErrInsufficientFunds)
	f.store.On("ReservationsByOrder", mock.Anything, mock.Anything).Return([]models.ReservationEntry{}, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeInsufficientFunds)
}

func TestCreateOrderPlatformOrderFailsVoidsAuth(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.Anything, 55.0).Return("pi_test123", nil)
	f.commerce.On("CreateOrderFromCheckout", ctx, "cart001").Return(int64(0), errors.New("upstream 500"))
	f.gateway.On("Void", mock.Anything, "pi_test123").Return(nil)
	f.store.On("ReservationsByOrder", mock.Anything, mock.Anything).Return([]models.ReservationEntry{}, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeOrderCreateFailed)
	f.assertExpectations(t)
}

func TestCreateOrderMarkPendingFailsVoidsAuth(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.Anything, 55.0).Return("pi_test123", nil)
	f.commerce.On("CreateOrderFromCheckout", ctx, "cart001").Return(int64(777), nil)
	f.commerce.On("MarkOrderPending", ctx, int64(777)).Return(errors.New("upstream 500"))
	f.gateway.On("Void", mock.Anything, "pi_test123").Return(nil)
	f.store.On("ReservationsByOrder", mock.Anything, mock.Anything).Return([]models.ReservationEntry{}, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeOrderUpdateFailed)
	f.gateway.AssertNotCalled(t, "Settle")
}

func TestCreateOrderSettleFailureDoesNotVoid(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.Anything, 55.0).Return("pi_test123", nil)
	f.commerce.On("CreateOrderFromCheckout", ctx, "cart001").Return(int64(777), nil)
	f.commerce.On("MarkOrderPending", ctx, int64(777)).Return(nil)
	f.gateway.On("Settle", ctx, "pi_test123", mock.Anything).Return(errors.New("processor timeout"))
	f.store.On("ReservationsByOrder", mock.Anything, mock.Anything).Return([]models.ReservationEntry{}, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodePaymentSettleFailed)

	// The hold may still settle later, so it is never voided here.
	f.gateway.AssertNotCalled(t, "Void")
	f.store.AssertNotCalled(t, "CommitOrder")
}

func TestCreateOrderPersistFailureAfterCapture(t *testing.T) {
	f := newSagaFixture()
	checkout, items := twoSpotCheckout()
	ctx := context.Background()

	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(checkout, nil)
	f.store.On("ItemsForLineItems", ctx, mock.Anything).Return(items, nil)
	f.store.On("ReserveItem", ctx, mock.Anything, mock.Anything, "user123").Return(true, nil)
	f.gateway.On("Authorize", ctx, "tok_visa", mock.Anything, 55.0).Return("pi_test123", nil)
	f.commerce.On("CreateOrderFromCheckout", ctx, "cart001").Return(int64(777), nil)
	f.commerce.On("MarkOrderPending", ctx, int64(777)).Return(nil)
	f.gateway.On("Settle", ctx, "pi_test123", mock.Anything).Return(nil)
	f.store.On("CommitOrder", ctx, mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	f.store.On("ReservationsByOrder", mock.Anything, mock.Anything).
		Return([]models.ReservationEntry{{ProductItemID: "spot1"}, {ProductItemID: "spot2"}}, nil)
	f.store.On("ReleaseItem", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeOrderPersistFailed)

	// Money stays captured; only inventory is returned.
	f.gateway.AssertNotCalled(t, "Void")
	f.store.AssertNumberOfCalls(t, "ReleaseItem", 2)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newSagaFixture()
	ctx := context.Background()

	empty := &models.Checkout{ID: "checkout001", Cart: models.Cart{ID: "cart001"}}
	f.guard.On("Acquire", ctx, "cart001", mock.Anything).Return(true, nil)
	f.guard.On("Release", mock.Anything, "cart001", mock.Anything).Return(nil)
	f.commerce.On("GetCheckout", ctx, "cart001").Return(empty, nil)

	_, err := f.service.CreateOrder(ctx, "user123", "cart001", "tok_visa")
	assertCheckoutCode(t, err, CodeItemLookupFailed)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "a", "b", "a"}))
	assert.Empty(t, dedupe([]string{}))
}
