package payment

import (
	"context"
	"errors"
	"fmt"

	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// ErrInsufficientFunds marks a decline the buyer can fix by using another
// card, as opposed to a gateway fault.
var ErrInsufficientFunds = errors.New("insufficient funds")

// StripeGateway drives authorize / settle / void against Stripe using
// manual-capture payment intents. The merchant reference doubles as the
// idempotency key, so re-authorizing with the same order id can never
// charge twice.
type StripeGateway struct {
	currency string
	logger   *logger.Logger
}

func NewStripeGateway(cfg config.StripeConfig, log *logger.Logger) *StripeGateway {
	stripe.Key = cfg.SecretKey
	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{currency: currency, logger: log}
}

// minorUnits converts a decimal amount to gateway cents without float
// drift.
func minorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Authorize places a hold for the full amount and returns the
// authorization id. The hold is not captured until Settle.
func (g *StripeGateway) Authorize(ctx context.Context, token, merchantRef string, amount float64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context:        ctx,
			IdempotencyKey: stripe.String(merchantRef),
		},
		Amount:        stripe.Int64(minorUnits(amount)),
		Currency:      stripe.String(g.currency),
		PaymentMethod: stripe.String(token),
		Confirm:       stripe.Bool(true),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddMetadata("merchant_ref", merchantRef)

	intent, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && string(stripeErr.DeclineCode) == "insufficient_funds" {
			g.logger.Warn("PAYMENT", fmt.Sprintf("Authorization declined for %s: insufficient funds", merchantRef))
			return "", fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return "", fmt.Errorf("failed to authorize payment: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusRequiresCapture {
		return "", fmt.Errorf("unexpected authorization status %s", intent.Status)
	}

	g.logger.Info("PAYMENT", fmt.Sprintf("Authorized %s for %s", intent.ID, merchantRef))
	return intent.ID, nil
}

// Settle captures a previously placed hold.
func (g *StripeGateway) Settle(ctx context.Context, authID, merchantRef string) error {
	params := &stripe.PaymentIntentCaptureParams{
		Params: stripe.Params{
			Context:        ctx,
			IdempotencyKey: stripe.String(merchantRef + "-capture"),
		},
	}
	if _, err := paymentintent.Capture(authID, params); err != nil {
		return fmt.Errorf("failed to settle authorization %s: %w", authID, err)
	}
	g.logger.Info("PAYMENT", fmt.Sprintf("Settled %s for %s", authID, merchantRef))
	return nil
}

// Void releases an uncaptured hold back to the buyer.
func (g *StripeGateway) Void(ctx context.Context, authID string) error {
	params := &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	}
	if _, err := paymentintent.Cancel(authID, params); err != nil {
		return fmt.Errorf("failed to void authorization %s: %w", authID, err)
	}
	g.logger.Info("PAYMENT", fmt.Sprintf("Voided authorization %s", authID))
	return nil
}
