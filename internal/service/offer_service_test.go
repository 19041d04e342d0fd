package service

import (
	"context"
	"fmt"
	"testing"

	"trade-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMoneyOffer(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam Seller", "sam")
	buyer := f.addUser("Bella Buyer", "bella")
	listing := f.addListing(seller.ID, "Mountain Bike", models.OfferKindBoth)

	result, err := f.offerSvc.Create(context.Background(), buyer.ID, &CreateOfferRequest{
		ListingID: listing.ID,
		Kind:      models.OfferKindMoney,
		Amount:    40,
	})
	require.NoError(t, err)

	offer := result.Offer
	assert.Equal(t, models.OfferStatusPending, offer.Status)
	assert.Equal(t, seller.ID, offer.SellerID)
	assert.Equal(t, "$40", offer.OfferedFor)
	assert.Equal(t, "Mountain Bike", offer.ListingTitle)
	assert.Equal(t, "sam", offer.ListingOwnerHandle)

	require.Len(t, result.Notifications, 1)
	n := result.Notifications[0]
	assert.Equal(t, buyer.ID, n.FromUserID)
	assert.Equal(t, seller.ID, n.ToUserID)
	assert.Equal(t, `Bella Buyer made an offer ($40) for your item "Mountain Bike".`, n.Text)

	event, ok := f.publisher.last().(*models.OfferCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, offer.ID, event.OfferID)
	assert.Equal(t, models.EventTypeOfferCreated, event.EventType)
}

func TestCreateOfferDefaultsToMoney(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Lamp", models.OfferKindBoth)

	result, err := f.offerSvc.Create(context.Background(), buyer.ID, &CreateOfferRequest{
		ListingID: listing.ID,
		Amount:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OfferKindMoney, result.Offer.Kind)
}

func TestCreateSwapOfferSnapshotsCollateral(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindSwap)
	guitar := f.addPrivateItem(buyer.ID, "Old Guitar")

	result, err := f.offerSvc.Create(context.Background(), buyer.ID, &CreateOfferRequest{
		ListingID:        listing.ID,
		Kind:             models.OfferKindSwap,
		CollateralItemID: &guitar.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Old Guitar", result.Offer.SwapItemSnapshot.Title)
	assert.Equal(t, "Old Guitar", result.Offer.OfferedFor)

	// later edits to the collateral never touch the snapshot
	guitar.Title = "Renamed Guitar"
	require.NoError(t, f.items.Update(context.Background(), guitar))

	stored, err := f.offers.GetByID(context.Background(), result.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Guitar", stored.SwapItemSnapshot.Title)
}

func TestCreateOfferValidation(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateOfferRequest
		want error
	}{
		{"unknown kind", CreateOfferRequest{ListingID: listing.ID, Kind: "trade"}, models.ErrValidation},
		{"negative amount", CreateOfferRequest{ListingID: listing.ID, Amount: -1}, models.ErrValidation},
		{"kind not allowed by policy", CreateOfferRequest{ListingID: listing.ID, Kind: models.OfferKindSwap}, models.ErrConflict},
		{"swap requires collateral on both policy", CreateOfferRequest{ListingID: listing.ID, Kind: models.OfferKindMoney, Amount: 0}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.offerSvc.Create(ctx, buyer.ID, &tc.req)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}

	_, err := f.offerSvc.Create(ctx, seller.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	assert.ErrorIs(t, err, models.ErrValidation, "own listing")

	private := f.addPrivateItem(seller.ID, "Hidden")
	_, err = f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: private.ID, Amount: 10})
	assert.ErrorIs(t, err, models.ErrConflict, "unlisted target")
}

func TestCreateSwapOfferCollateralRules(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	other := f.addUser("Oscar", "oscar")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindBoth)
	ctx := context.Background()

	_, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{
		ListingID: listing.ID,
		Kind:      models.OfferKindSwap,
	})
	assert.ErrorIs(t, err, models.ErrValidation, "swap without collateral")

	foreign := f.addPrivateItem(other.ID, "Not Yours")
	_, err = f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{
		ListingID:        listing.ID,
		Kind:             models.OfferKindSwap,
		CollateralItemID: &foreign.ID,
	})
	assert.ErrorIs(t, err, models.ErrValidation, "foreign collateral")

	frozen := f.addPrivateItem(buyer.ID, "Frozen")
	frozen.Available = false
	require.NoError(t, f.items.Update(ctx, frozen))
	_, err = f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{
		ListingID:        listing.ID,
		Kind:             models.OfferKindSwap,
		CollateralItemID: &frozen.ID,
	})
	assert.ErrorIs(t, err, models.ErrConflict, "unavailable collateral")
}

func TestCreateOfferSupersedesPrior(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	first, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)
	second, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 20})
	require.NoError(t, err)

	_, err = f.offers.GetByID(ctx, first.Offer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "superseded offer is gone")

	pending, err := f.offers.PendingByListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.Offer.ID, pending[0].ID)
}

func TestAcceptOfferCascade(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam Seller", "sam")
	winner := f.addUser("Wendy Winner", "wendy")
	loser := f.addUser("Larry Loser", "larry")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	winning, err := f.offerSvc.Create(ctx, winner.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 50})
	require.NoError(t, err)
	losing, err := f.offerSvc.Create(ctx, loser.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 30})
	require.NoError(t, err)

	result, err := f.offerSvc.Accept(ctx, winning.Offer.ID, seller.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.OfferStatusAccepted, result.Offer.Status)
	assert.False(t, result.Listing.Available)
	assert.Equal(t, models.ListingPrivate, result.Listing.Status)
	require.NotNil(t, result.Listing.UnavailableReason)
	assert.Equal(t, models.ReasonSold, *result.Listing.UnavailableReason)

	require.Len(t, result.RejectedOffers, 1)
	assert.Equal(t, losing.Offer.ID, result.RejectedOffers[0].ID)

	swept, err := f.offers.GetByID(ctx, losing.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, swept.Status)

	require.Len(t, result.Notifications, 2)
	assert.Equal(t, `Sam Seller accepted your offer ($50) for item "Camera".`, result.Notifications[0].Text)
	assert.Equal(t, winner.ID, result.Notifications[0].ToUserID)
	assert.Equal(t, `Sam Seller rejected your offer ($30) for item "Camera".`, result.Notifications[1].Text)
	assert.Equal(t, loser.ID, result.Notifications[1].ToUserID)

	event, ok := f.publisher.last().(*models.OfferAcceptedEvent)
	require.True(t, ok)
	assert.Equal(t, []int64{losing.Offer.ID}, event.RejectedOfferIDs)
}

func TestAcceptSwapOfferLocksCollateral(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	bystander := f.addUser("Ben", "ben")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindBoth)
	guitar := f.addListing(buyer.ID, "Old Guitar", models.OfferKindBoth)
	otherListing := f.addListing(bystander.ID, "Amp", models.OfferKindBoth)
	ctx := context.Background()

	// the winning swap offer
	winning, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{
		ListingID:        listing.ID,
		Kind:             models.OfferKindBoth,
		Amount:           15,
		CollateralItemID: &guitar.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Old Guitar + $15", winning.Offer.OfferedFor)

	// the same guitar dangled elsewhere
	elsewhere, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{
		ListingID:        otherListing.ID,
		Kind:             models.OfferKindSwap,
		CollateralItemID: &guitar.ID,
	})
	require.NoError(t, err)

	// someone bidding on the guitar's own listing
	onGuitar, err := f.offerSvc.Create(ctx, bystander.ID, &CreateOfferRequest{
		ListingID: guitar.ID,
		Kind:      models.OfferKindMoney,
		Amount:    99,
	})
	require.NoError(t, err)

	result, err := f.offerSvc.Accept(ctx, winning.Offer.ID, seller.ID, "")
	require.NoError(t, err)

	lockedGuitar, err := f.items.GetByID(ctx, guitar.ID)
	require.NoError(t, err)
	assert.False(t, lockedGuitar.Available)
	require.NotNil(t, lockedGuitar.UnavailableReason)
	assert.Equal(t, models.ReasonSwapped, *lockedGuitar.UnavailableReason)
	assert.Equal(t, models.ListingPrivate, lockedGuitar.Status)

	_, err = f.offers.GetByID(ctx, elsewhere.Offer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "competing collateral offer deleted")

	bid, err := f.offers.GetByID(ctx, onGuitar.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, bid.Status, "offer targeting the collateral rejected")

	// The collateral-side rejection is surfaced like any other: it shows
	// up in the result and its buyer is told, naming the guitar.
	rejectedIDs := make([]int64, 0, len(result.RejectedOffers))
	for _, r := range result.RejectedOffers {
		rejectedIDs = append(rejectedIDs, r.ID)
	}
	assert.Contains(t, rejectedIDs, onGuitar.Offer.ID)

	var guitarRejectionText string
	for _, n := range result.Notifications {
		if n.ToUserID == bystander.ID {
			guitarRejectionText = n.Text
		}
	}
	assert.Equal(t, `Sam rejected your offer ($99) for item "Old Guitar".`, guitarRejectionText)
}

func TestAcceptIsExclusive(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	a := f.addUser("Anna", "anna")
	b := f.addUser("Bob", "bob")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	first, err := f.offerSvc.Create(ctx, a.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)
	second, err := f.offerSvc.Create(ctx, b.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 20})
	require.NoError(t, err)

	_, err = f.offerSvc.Accept(ctx, first.Offer.ID, seller.ID, "")
	require.NoError(t, err)

	_, err = f.offerSvc.Accept(ctx, second.Offer.ID, seller.ID, "")
	assert.ErrorIs(t, err, models.ErrConflict, "the cascade already rejected it")

	offers, err := f.offers.ByListing(ctx, listing.ID)
	require.NoError(t, err)
	accepted := 0
	for _, o := range offers {
		if o.Status == models.OfferStatusAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestAcceptGuards(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	created, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)

	_, err = f.offerSvc.Accept(ctx, created.Offer.ID, buyer.ID, "")
	assert.ErrorIs(t, err, models.ErrForbidden, "only the seller accepts")

	_, err = f.offerSvc.Accept(ctx, created.Offer.ID, seller.ID, "lost")
	assert.ErrorIs(t, err, models.ErrValidation, "unknown reason")

	_, err = f.offerSvc.Accept(ctx, created.Offer.ID, seller.ID, models.ReasonOther)
	require.NoError(t, err)

	_, err = f.offerSvc.Accept(ctx, created.Offer.ID, seller.ID, "")
	assert.ErrorIs(t, err, models.ErrConflict, "terminal states are final")
}

func TestRejectOffer(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam Seller", "sam")
	buyer := f.addUser("Bella", "bella")
	other := f.addUser("Oscar", "oscar")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	target, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)
	untouched, err := f.offerSvc.Create(ctx, other.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 20})
	require.NoError(t, err)

	result, err := f.offerSvc.Reject(ctx, target.Offer.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, result.Offer.Status)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, `Sam Seller rejected your offer ($10) for item "Camera".`, result.Notifications[0].Text)

	// no cascade: the listing and the other offer stay live
	item, err := f.items.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, item.Listed())
	assert.True(t, item.Available)

	still, err := f.offers.GetByID(ctx, untouched.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, still.Status)

	_, err = f.offerSvc.Reject(ctx, target.Offer.ID, seller.ID)
	assert.ErrorIs(t, err, models.ErrConflict, "already terminal")
}

func TestCancelOffer(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	created, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)

	_, err = f.offerSvc.Cancel(ctx, created.Offer.ID, seller.ID)
	assert.ErrorIs(t, err, models.ErrForbidden, "only the buyer cancels")

	cancelled, err := f.offerSvc.Cancel(ctx, created.Offer.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusCanceled, cancelled.Status)

	_, err = f.offerSvc.Cancel(ctx, created.Offer.ID, buyer.ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	// the listing is untouched and open for a fresh offer
	again, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 15})
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, again.Offer.Status)
}

func TestDeleteOffer(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	created, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)

	err = f.offerSvc.Delete(ctx, created.Offer.ID, seller.ID)
	assert.ErrorIs(t, err, models.ErrForbidden, "only the buyer deletes their history")

	_, err = f.offerSvc.Reject(ctx, created.Offer.ID, seller.ID)
	require.NoError(t, err)

	// deletion works on terminal offers too
	require.NoError(t, f.offerSvc.Delete(ctx, created.Offer.ID, buyer.ID))
	_, err = f.offers.GetByID(ctx, created.Offer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOfferAccess(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	stranger := f.addUser("Eve", "eve")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	created, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)

	_, err = f.offerSvc.Get(ctx, created.Offer.ID, buyer.ID)
	assert.NoError(t, err)
	_, err = f.offerSvc.Get(ctx, created.Offer.ID, seller.ID)
	assert.NoError(t, err)
	_, err = f.offerSvc.Get(ctx, created.Offer.ID, stranger.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.offerSvc.ByListing(ctx, listing.ID, stranger.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	offers, err := f.offerSvc.ByListing(ctx, listing.ID, seller.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}

func TestIncomingOutgoing(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	created, err := f.offerSvc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	require.NoError(t, err)

	incoming, err := f.offerSvc.Incoming(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, created.Offer.ID, incoming[0].ID)

	outgoing, err := f.offerSvc.Outgoing(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)

	noneIncoming, err := f.offerSvc.Incoming(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, noneIncoming)

	noneOutgoing, err := f.offerSvc.Outgoing(ctx, seller.ID)
	require.NoError(t, err)
	assert.Empty(t, noneOutgoing)
}

func TestFormatOfferedFor(t *testing.T) {
	cases := []struct {
		kind   string
		amount int64
		title  string
		want   string
	}{
		{models.OfferKindMoney, 40, "", "$40"},
		{models.OfferKindMoney, 0, "", "$0"},
		{models.OfferKindSwap, 0, "Old Guitar", "Old Guitar"},
		{models.OfferKindSwap, 0, "", "swap item"},
		{models.OfferKindBoth, 15, "Old Guitar", "Old Guitar + $15"},
		{models.OfferKindBoth, 15, "", "swap item + $15"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.kind, tc.want), func(t *testing.T) {
			offer := &models.Offer{Kind: tc.kind, Amount: tc.amount}
			offer.SwapItemSnapshot.Title = tc.title
			assert.Equal(t, tc.want, formatOfferedFor(offer))
		})
	}
}

func TestKindAllowedByPolicy(t *testing.T) {
	assert.True(t, kindAllowedByPolicy(models.OfferKindMoney, models.OfferKindMoney))
	assert.True(t, kindAllowedByPolicy(models.OfferKindMoney, models.OfferKindBoth))
	assert.False(t, kindAllowedByPolicy(models.OfferKindMoney, models.OfferKindSwap))
	assert.True(t, kindAllowedByPolicy(models.OfferKindSwap, models.OfferKindSwap))
	assert.False(t, kindAllowedByPolicy(models.OfferKindSwap, models.OfferKindMoney))
	assert.True(t, kindAllowedByPolicy(models.OfferKindBoth, models.OfferKindBoth))
	assert.False(t, kindAllowedByPolicy(models.OfferKindBoth, models.OfferKindMoney))
	assert.False(t, kindAllowedByPolicy(models.OfferKindBoth, models.OfferKindSwap))
}

func TestAcceptLeavesRejectedCompetitorCollateralAlone(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	b1 := f.addUser("Bea", "bea")
	b2 := f.addUser("Cal", "cal")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindBoth)
	collateral := f.addPrivateItem(b2.ID, "Skateboard")
	ctx := context.Background()

	cash, err := f.offerSvc.Create(ctx, b1.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 50})
	require.NoError(t, err)
	swap, err := f.offerSvc.Create(ctx, b2.ID, &CreateOfferRequest{
		ListingID:        listing.ID,
		Kind:             models.OfferKindSwap,
		CollateralItemID: &collateral.ID,
	})
	require.NoError(t, err)

	_, err = f.offerSvc.Accept(ctx, cash.Offer.ID, seller.ID, "")
	require.NoError(t, err)

	rejected, err := f.offers.GetByID(ctx, swap.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, rejected.Status)

	// losing a bid never touches the loser's collateral
	board, err := f.items.GetByID(ctx, collateral.ID)
	require.NoError(t, err)
	assert.True(t, board.Available)
	assert.Nil(t, board.UnavailableReason)
}

// raceLocker runs a hook once while acquiring the lock, before the
// caller's critical section starts.
type raceLocker struct {
	inner  Locker
	before func()
}

func (l *raceLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	if l.before != nil {
		hook := l.before
		l.before = nil
		hook()
	}
	return l.inner.Lock(ctx, keys...)
}

func TestCreateRechecksListingUnderLock(t *testing.T) {
	f := newEngineFixture()
	seller := f.addUser("Sam", "sam")
	buyer := f.addUser("Bella", "bella")
	listing := f.addListing(seller.ID, "Camera", models.OfferKindMoney)
	ctx := context.Background()

	// A competing accept resolves the listing between Create's
	// validation and its lock acquisition.
	locks := &raceLocker{inner: NewKeyedMutex(), before: func() {
		item, err := f.items.GetByID(ctx, listing.ID)
		require.NoError(t, err)
		reason := models.ReasonSold
		item.Available = false
		item.UnavailableReason = &reason
		item.Status = models.ListingPrivate
		require.NoError(t, f.items.Update(ctx, item))
	}}
	svc := NewOfferService(f.offers, f.items, f.users, f.itemSvc, locks, f.publisher)

	_, err := svc.Create(ctx, buyer.ID, &CreateOfferRequest{ListingID: listing.ID, Amount: 10})
	assert.ErrorIs(t, err, models.ErrConflict)

	pending, err := f.offers.PendingByListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Empty(t, pending, "no offer may land on a resolved listing")
}
