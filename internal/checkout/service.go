package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-checkout/internal/checkout/payment"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"

	"github.com/google/uuid"
)

// Store is the data API the saga drives: inventory conditional updates,
// the reservation ledger and the durable order commit.
type Store interface {
	ItemsForLineItems(ctx context.Context, lineItems []models.LineItem) ([]models.ProductItem, error)
	ReserveItem(ctx context.Context, itemID, orderID, userID string) (bool, error)
	ReleaseItem(ctx context.Context, itemID, orderID string) error
	ReservationsByOrder(ctx context.Context, orderID string) ([]models.ReservationEntry, error)
	DeleteReservations(ctx context.Context, orderID string) error
	CommitOrder(ctx context.Context, order models.Order, itemIDs []string) error
	FollowBreaks(ctx context.Context, userID string, breakIDs []string) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
}

// Commerce is the platform holding carts and externally-visible orders.
type Commerce interface {
	GetCheckout(ctx context.Context, cartID string) (*models.Checkout, error)
	CreateOrderFromCheckout(ctx context.Context, cartID string) (int64, error)
	MarkOrderPending(ctx context.Context, bcOrderID int64) error
}

// Gateway is the payment processor. Authorize is idempotent by merchant
// reference.
type Gateway interface {
	Authorize(ctx context.Context, token, merchantRef string, amount float64) (string, error)
	Settle(ctx context.Context, authID, merchantRef string) error
	Void(ctx context.Context, authID string) error
}

// CartGuard keeps a double-submitted cart from running two sagas at once.
type CartGuard interface {
	Acquire(ctx context.Context, cartID, orderID string) (bool, error)
	Release(ctx context.Context, cartID, orderID string) error
}

type EventPublisher interface {
	PublishOrderCompleted(order models.Order, itemIDs []string) error
}

type Service struct {
	DB       Store
	Commerce Commerce
	Gateway  Gateway
	Guard    CartGuard
	Events   EventPublisher
	logger   *logger.Logger
}

func NewService(db Store, commerce Commerce, gateway Gateway, guard CartGuard, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:       db,
		Commerce: commerce,
		Gateway:  gateway,
		Guard:    guard,
		Events:   events,
		logger:   log,
	}
}

// CreateOrder runs the whole checkout saga: reserve inventory, authorize
// and capture payment, create the platform order, then commit the durable
// order row together with the finalized spots. Any step failure rolls back
// everything reserved or authorized so far and returns a typed *Error.
//
// The order id is generated once per attempt and doubles as the payment
// idempotency key; a retry after a terminal failure is a fresh saga with a
// fresh order id.
func (s *Service) CreateOrder(ctx context.Context, userID, cartID, paymentToken string) (*models.CreateOrderResponse, error) {
	orderID := uuid.NewString()
	s.logger.LogSaga("START", orderID, fmt.Sprintf("user %s checking out cart %s", userID, cartID))

	if s.Guard != nil {
		ok, err := s.Guard.Acquire(ctx, cartID, orderID)
		if err != nil {
			return nil, newError(CodeCheckoutUnavailable, "could not start checkout", err)
		}
		if !ok {
			return nil, newError(CodeCheckoutUnavailable, "a checkout for this cart is already in progress", nil)
		}
		defer func() {
			// The request context may already be cancelled by the time the
			// saga unwinds; releasing on it would leave the cart locked for
			// the full TTL and fail the user's immediate retry.
			relCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
			defer cancel()
			if err := s.Guard.Release(relCtx, cartID, orderID); err != nil {
				s.logger.Warn("SAGA", fmt.Sprintf("Failed to release cart lock for %s: %v", cartID, err))
			}
		}()
	}

	// Step 1: fetch the cart. Nothing to compensate yet.
	checkout, err := s.Commerce.GetCheckout(ctx, cartID)
	if err != nil {
		return nil, newError(CodeCheckoutUnavailable, "could not get checkout from the commerce platform", err)
	}
	lineItems := checkout.Cart.LineItems.PhysicalItems
	if len(lineItems) == 0 {
		return nil, newError(CodeItemLookupFailed, "cart has no line items", nil)
	}

	// Step 2: resolve line items to break product items.
	items, err := s.DB.ItemsForLineItems(ctx, lineItems)
	if err != nil {
		return nil, newError(CodeItemLookupFailed, "could not look up break product items", err)
	}
	if len(items) != len(lineItems) {
		return nil, newError(CodeItemLookupFailed, "checkout items do not match available break items", nil)
	}

	// Step 3: sellability. Reject sold spots and non-sellable breaks
	// before touching anything.
	for _, item := range items {
		if item.Sold() {
			return nil, newError(CodeSpotUnavailable, fmt.Sprintf("spot %s has already been sold", item.ID), nil)
		}
		if item.Break == nil || !item.Break.Status.Sellable() {
			return nil, newError(CodeSpotUnavailable, fmt.Sprintf("spot %s belongs to a break that is no longer on sale", item.ID), nil)
		}
	}

	// Step 4: reserve every spot. The conditional quantity flip plus the
	// ledger insert is the single serialization point between racing
	// checkouts; a partial win is compensated in full.
	for _, item := range items {
		ok, err := s.DB.ReserveItem(ctx, item.ID, orderID, userID)
		if err != nil {
			s.releaseReservations(userID, orderID, "")
			return nil, newError(CodeSpotUnavailable, fmt.Sprintf("could not reserve spot %s", item.ID), err)
		}
		if !ok {
			s.logger.LogSaga("RESERVE", orderID, fmt.Sprintf("lost the race for spot %s", item.ID))
			s.releaseReservations(userID, orderID, "")
			return nil, newError(CodeSpotUnavailable, fmt.Sprintf("spot %s is no longer available", item.ID), nil)
		}
	}
	s.logger.LogSaga("RESERVE", orderID, fmt.Sprintf("reserved %d spots", len(items)))

	// Step 5: authorize payment. Free carts skip the gateway entirely.
	paymentID := ""
	if checkout.GrandTotal > 0 {
		paymentID, err = s.Gateway.Authorize(ctx, paymentToken, orderID, checkout.GrandTotal)
		if err != nil {
			s.releaseReservations(userID, orderID, "")
			if errors.Is(err, payment.ErrInsufficientFunds) {
				return nil, newError(CodeInsufficientFunds, "payment declined: insufficient funds", err)
			}
			return nil, newError(CodePaymentAuthFailed, "could not authorize payment", err)
		}
	}

	// Step 6: create the platform order.
	bcOrderID, err := s.Commerce.CreateOrderFromCheckout(ctx, cartID)
	if err != nil {
		s.voidAuthorization(userID, orderID, paymentID)
		s.releaseReservations(userID, orderID, paymentID)
		return nil, newError(CodeOrderCreateFailed, "could not create the commerce platform order", err)
	}

	// Step 7: flip it to external payment, awaiting fulfillment. The
	// created platform order is left as-is on failure; compensation
	// targets money and inventory only.
	if err := s.Commerce.MarkOrderPending(ctx, bcOrderID); err != nil {
		s.voidAuthorization(userID, orderID, paymentID)
		s.releaseReservations(userID, orderID, paymentID)
		return nil, newError(CodeOrderUpdateFailed, "could not update the commerce platform order", err)
	}

	// Step 8: capture. A failed capture is NOT voided: the hold may still
	// be settleable later, so it goes to manual reconciliation instead.
	if paymentID != "" {
		if err := s.Gateway.Settle(ctx, paymentID, orderID); err != nil {
			s.logger.LogReconciliation(userID, orderID, paymentID,
				"settlement failed after authorization; authorization left in place for manual review")
			s.releaseReservations(userID, orderID, paymentID)
			return nil, newError(CodePaymentSettleFailed, "could not settle payment", err)
		}
	}

	// Step 9: durable commit. Order row and spot finalization land in one
	// store request.
	order := models.Order{
		ID:            orderID,
		UserID:        userID,
		BCOrderID:     bcOrderID,
		PaymentID:     paymentID,
		Subtotal:      checkout.SubtotalExTax,
		DiscountTotal: 0,
		TaxTotal:      checkout.TaxTotal,
		ShippingTotal: checkout.ShippingCostTotalExTax,
		GrandTotal:    checkout.GrandTotal,
		CreatedAt:     time.Now(),
	}
	itemIDs := make([]string, len(items))
	breakIDs := make([]string, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
		breakIDs[i] = item.BreakID
	}
	if err := s.DB.CommitOrder(ctx, order, itemIDs); err != nil {
		// Money is already captured; this is the one branch that always
		// needs financial reconciliation.
		s.logger.LogReconciliation(userID, orderID, paymentID,
			"order persistence failed after settlement; payment captured with no order row")
		s.releaseReservations(userID, orderID, paymentID)
		return nil, newError(CodeOrderPersistFailed, "could not persist the order", err)
	}
	s.logger.LogSaga("COMMIT", orderID, fmt.Sprintf("order committed, grand total %.2f", order.GrandTotal))

	// Step 10: best-effort follow-ups, detached from the response path.
	go s.completeSideEffects(order, itemIDs, breakIDs)

	return &models.CreateOrderResponse{
		OrderID:    orderID,
		GrandTotal: order.GrandTotal,
	}, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.DB.GetOrderByID(ctx, id)
}

func (s *Service) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.DB.GetOrdersByUser(ctx, userID)
}
