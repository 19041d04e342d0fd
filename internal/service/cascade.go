package service

import (
	"context"
	"fmt"

	"trade-service/internal/models"
	"trade-service/internal/util"
)

// itemKey is the lock key covering an item's dependent-offer set
func itemKey(itemID int64) string {
	return fmt.Sprintf("item:%d", itemID)
}

// rejectPendingTargeting flips every Pending offer targeting the item to
// Rejected, skipping exceptID (0 for none). Rejection keeps the offer
// visible in the buyer's history, unlike the collateral cascade below.
func rejectPendingTargeting(ctx context.Context, offers OfferRepository, itemID, exceptID int64) ([]models.Offer, error) {
	pending, err := offers.PendingByListing(ctx, itemID)
	if err != nil {
		return nil, err
	}

	rejected := make([]models.Offer, 0, len(pending))
	for _, offer := range pending {
		if offer.ID == exceptID {
			continue
		}
		if err := offers.UpdateStatus(ctx, offer.ID, models.OfferStatusRejected); err != nil {
			return rejected, err
		}
		offer.Status = models.OfferStatusRejected
		rejected = append(rejected, offer)
	}

	util.OffersRejectedTotal.WithLabelValues("cascade").Add(float64(len(rejected)))
	return rejected, nil
}

// deletePendingCollateral removes every Pending offer that dangles the
// item as swap collateral, skipping exceptID. A promised or withdrawn
// item cannot stay on the table in other negotiations.
func deletePendingCollateral(ctx context.Context, offers OfferRepository, itemID, exceptID int64) ([]models.Offer, error) {
	pending, err := offers.PendingByCollateral(ctx, itemID)
	if err != nil {
		return nil, err
	}

	deleted := make([]models.Offer, 0, len(pending))
	for _, offer := range pending {
		if offer.ID == exceptID {
			continue
		}
		if err := offers.Delete(ctx, offer.ID); err != nil {
			return deleted, err
		}
		deleted = append(deleted, offer)
	}

	util.CascadeOffersDeletedTotal.Add(float64(len(deleted)))
	return deleted, nil
}
