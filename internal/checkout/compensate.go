package checkout

import (
	"context"
	"fmt"
	"time"

	"ms-checkout/internal/models"
)

// compensationTimeout bounds the rollback work done after the caller has
// already received a terminal error.
const compensationTimeout = 30 * time.Second

// releaseReservations returns every spot this saga managed to reserve to
// sellable state and clears its ledger rows. The ledger is the source of
// truth for which reserve attempts actually landed, so a partial win after
// a race is rolled back in full.
//
// Compensation is best-effort: failures are logged with enough context to
// reconcile by hand and never surfaced, because the caller already holds
// the original terminal error.
func (s *Service) releaseReservations(userID, orderID, paymentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	entries, err := s.DB.ReservationsByOrder(ctx, orderID)
	if err != nil {
		s.logger.LogReconciliation(userID, orderID, paymentID,
			fmt.Sprintf("could not list reservations to release: %v", err))
		return
	}

	for _, entry := range entries {
		if err := s.DB.ReleaseItem(ctx, entry.ProductItemID, orderID); err != nil {
			s.logger.LogReconciliation(userID, orderID, paymentID,
				fmt.Sprintf("could not release spot %s: %v", entry.ProductItemID, err))
		}
	}

	if len(entries) > 0 {
		s.logger.LogSaga("COMPENSATE", orderID, fmt.Sprintf("released %d reservations", len(entries)))
	}
}

// voidAuthorization cancels an uncaptured hold. Failures go to manual
// reconciliation; a captured payment is never passed here.
func (s *Service) voidAuthorization(userID, orderID, paymentID string) {
	if paymentID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	if err := s.Gateway.Void(ctx, paymentID); err != nil {
		s.logger.LogReconciliation(userID, orderID, paymentID,
			fmt.Sprintf("could not void authorization: %v", err))
	}
}

// completeSideEffects runs the post-commit follow-ups that never affect
// the checkout outcome: follow the purchased breaks, drop this saga's
// ledger rows and publish the completion event.
func (s *Service) completeSideEffects(order models.Order, itemIDs, breakIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	if err := s.DB.FollowBreaks(ctx, order.UserID, dedupe(breakIDs)); err != nil {
		s.logger.Warn("SAGA", fmt.Sprintf("Failed to follow breaks for order %s: %v", order.ID, err))
	}

	if err := s.DB.DeleteReservations(ctx, order.ID); err != nil {
		s.logger.Warn("SAGA", fmt.Sprintf("Failed to clean up reservations for order %s: %v", order.ID, err))
	}

	if s.Events != nil {
		if err := s.Events.PublishOrderCompleted(order, itemIDs); err != nil {
			s.logger.Warn("KAFKA", fmt.Sprintf("Failed to publish completion for order %s: %v", order.ID, err))
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
