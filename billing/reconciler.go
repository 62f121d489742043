package billing

import (
	"context"
	"fmt"
	"log"
	"time"

	stripe "github.com/stripe/stripe-go/v74"
	"golang.org/x/sync/errgroup"
)

// Reconciler builds the aggregate billing read for an account, merging the
// local subscription record with the provider's live subscription object.
type Reconciler struct {
	store    Store
	provider Provider
	now      func() time.Time
}

func NewReconciler(store Store, provider Provider) *Reconciler {
	return &Reconciler{store: store, provider: provider, now: time.Now}
}

// Overview returns the normalized billing state for an account. With brief
// set, only the account, the merged subscription and the add-on records are
// returned; the card/invoice/charge/plan lookups are skipped entirely.
func (r *Reconciler) Overview(ctx context.Context, accountID int, brief bool) (*BillingOverview, error) {
	account, err := r.store.FindAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}

	out := &BillingOverview{
		Account:            account,
		Cards:              []Card{},
		Invoices:           []Invoice{},
		Charges:            []Charge{},
		AddonSubscriptions: []AddonView{},
		Plans:              []PlanView{},
	}

	local, err := r.store.FindSubscriptionByAccount(accountID)
	if err != nil {
		return nil, err
	}
	if local == nil {
		// No local record: report null without touching the provider.
		return out, nil
	}

	remote, err := r.provider.GetSubscription(ctx, local.StripeID)
	if err != nil {
		return nil, err
	}
	view, err := r.merge(ctx, local, remote)
	if err != nil {
		return nil, err
	}
	out.Subscription = view

	now := r.now()
	addons, err := r.store.AddonsToBeSettled(accountID)
	if err != nil {
		return nil, err
	}
	for i := range addons {
		out.AddonSubscriptions = append(out.AddonSubscriptions, addons[i].View(now))
	}

	if brief {
		return out, nil
	}

	// The remaining lookups are independent; run them together and fail the
	// whole read if any of them fails. Partial data would read as "the
	// customer has no charges", which is worse than an error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		methods, err := r.provider.ListPaymentMethods(gctx, account.StripeCustomerID)
		if err != nil {
			return err
		}
		out.Cards = FormatCards(methods, account.DefaultPaymentMethod)
		return nil
	})
	g.Go(func() error {
		invoices, err := r.provider.ListInvoices(gctx, account.StripeCustomerID)
		if err != nil {
			return err
		}
		out.Invoices = FormatInvoices(invoices)
		return nil
	})
	g.Go(func() error {
		charges, err := r.provider.ListCharges(gctx, account.StripeCustomerID)
		if err != nil {
			return err
		}
		formatted := make([]Charge, 0, len(charges))
		for _, ch := range charges {
			var dispute *stripe.Dispute
			if ch.Dispute != nil && ch.Dispute.ID != "" {
				// List responses only carry the dispute id.
				dispute, err = r.provider.GetDispute(gctx, ch.Dispute.ID)
				if err != nil {
					return err
				}
			}
			formatted = append(formatted, FormatCharge(ch, dispute))
		}
		out.Charges = formatted
		return nil
	})
	g.Go(func() error {
		plans, err := r.provider.ListPlans(gctx, planPageLimit)
		if err != nil {
			return err
		}
		out.Plans = FormatPlans(plans)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// merge resolves the plan via the item matching the locally stored item id
// and computes the derived facts from both sources.
func (r *Reconciler) merge(ctx context.Context, local *LocalSubscription, remote *stripe.Subscription) (*SubscriptionView, error) {
	item, err := r.resolveItem(ctx, local, remote)
	if err != nil {
		return nil, err
	}

	now := r.now()
	localEnded := local.Ended(now)
	remoteTerminated := remote.EndedAt != 0 || remote.Status == stripe.SubscriptionStatusCanceled
	withinPeriod := remote.CurrentPeriodEnd != 0 && now.Unix() < remote.CurrentPeriodEnd

	ended := localEnded || remoteTerminated
	cancelled := remote.CancelAtPeriodEnd || local.Cancelled()
	active := !ended && (!cancelled || withinPeriod)
	onGracePeriod := cancelled && withinPeriod && !ended

	if localEnded != remoteTerminated {
		log.Printf("[BILLING][drift] account=%d sub=%s local_ended=%v remote_status=%s remote_ended_at=%d",
			local.AccountID, local.StripeID, localEnded, remote.Status, remote.EndedAt)
	}

	var canceledAt *int64
	if remote.CanceledAt != 0 {
		v := remote.CanceledAt
		canceledAt = &v
	}

	return &SubscriptionView{
		ID:           local.ID,
		AccountID:    local.AccountID,
		StripeID:     local.StripeID,
		StripeItemID: local.StripeItemID,
		Quantity:     local.Quantity,
		TrialEndsAt:  local.TrialEndsAt,
		EndsAt:       local.EndsAt,

		Plan:         local.StripePlan,
		StripePlan:   item.Plan.ID,
		PlanAmount:   item.Plan.Amount,
		PlanInterval: string(item.Plan.Interval),
		PlanCurrency: string(item.Plan.Currency),

		Ended:         ended,
		Cancelled:     cancelled,
		Active:        active,
		OnTrial:       local.OnTrial(now),
		OnGracePeriod: onGracePeriod,

		ChargesAutomatically: remote.CollectionMethod == stripe.SubscriptionCollectionMethodChargeAutomatically,
		CreatedAt:            formatDateTime(remote.BillingCycleAnchor),
		EndedAt:              formatDateTime(remote.EndedAt),
		CurrentPeriodStart:   formatDate(remote.CurrentPeriodStart),
		CurrentPeriodEnd:     formatDate(remote.CurrentPeriodEnd),
		DaysUntilDue:         remote.DaysUntilDue,
		CancelAtPeriodEnd:    remote.CancelAtPeriodEnd,
		CanceledAt:           canceledAt,
	}, nil
}

// resolveItem finds the remote item whose id matches the stored item id. A
// subscription may carry several items; the first one is never assumed.
func (r *Reconciler) resolveItem(ctx context.Context, local *LocalSubscription, remote *stripe.Subscription) (*stripe.SubscriptionItem, error) {
	items := []*stripe.SubscriptionItem{}
	if remote.Items != nil {
		items = remote.Items.Data
	}
	if len(items) == 0 {
		// Item list not embedded on the retrieve response; fetch it.
		fetched, err := r.provider.ListSubscriptionItems(ctx, remote.ID)
		if err != nil {
			return nil, err
		}
		items = fetched
	}
	for _, item := range items {
		if item.ID == local.StripeItemID && item.Plan != nil {
			return item, nil
		}
	}
	return nil, fmt.Errorf("%w: subscription %s has no item %s", ErrPlanResolution, local.StripeID, local.StripeItemID)
}
