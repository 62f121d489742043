package billing

import (
	"context"
	"fmt"
	"log"
	"time"

	"cashier-backend/events"
	"cashier-backend/tasks"
)

// Lifecycle executes the mutating subscription commands. Every transition is
// remote-first: the provider call must succeed before the local record is
// touched, so a provider failure leaves no partial local mutation. Callers
// must serialize writes per account; this layer does not lock.
type Lifecycle struct {
	store    Store
	provider Provider
	bus      *events.Bus
	tasks    *tasks.Dispatcher
	addons   AddonLifecycle
	catalog  *AddonCatalog
	alerter  Alerter
	kind     AccountKind
	now      func() time.Time
}

func NewLifecycle(store Store, provider Provider, bus *events.Bus, dispatcher *tasks.Dispatcher, addons AddonLifecycle, catalog *AddonCatalog, alerter Alerter, kind AccountKind) *Lifecycle {
	return &Lifecycle{
		store:    store,
		provider: provider,
		bus:      bus,
		tasks:    dispatcher,
		addons:   addons,
		catalog:  catalog,
		alerter:  alerter,
		kind:     kind,
		now:      time.Now,
	}
}

// Cancel terminates the subscription now, or marks it to cancel at period
// end so service continues through the paid period.
func (l *Lifecycle) Cancel(ctx context.Context, accountID int, immediate bool) error {
	_, sub, err := l.load(accountID)
	if err != nil {
		return err
	}

	remote, err := l.provider.CancelSubscription(ctx, sub.StripeID, immediate)
	if err != nil {
		return err
	}

	now := l.now()
	switch {
	case immediate:
		sub.EndsAt = &now
	case sub.OnTrial(now):
		sub.EndsAt = sub.TrialEndsAt
	case remote.CurrentPeriodEnd != 0:
		t := time.Unix(remote.CurrentPeriodEnd, 0).UTC()
		sub.EndsAt = &t
	default:
		sub.EndsAt = &now
	}
	if err := l.persist(sub, "cancel"); err != nil {
		return err
	}

	l.emit(events.SubscriptionCancelled, accountID)
	return nil
}

// Resume undoes a pending cancellation by re-subscribing to the plan the
// subscription is already on. Only valid during the grace period.
func (l *Lifecycle) Resume(ctx context.Context, accountID int) error {
	_, sub, err := l.load(accountID)
	if err != nil {
		return err
	}
	if sub.Ended(l.now()) {
		return fmt.Errorf("%w: subscription %s is fully terminated, resume is only valid during grace period", ErrInvalidState, sub.StripeID)
	}

	if _, err := l.provider.UpdateSubscriptionPlan(ctx, sub.StripeID, sub.StripeItemID, sub.StripePlan); err != nil {
		return err
	}

	sub.EndsAt = nil
	if err := l.persist(sub, "resume"); err != nil {
		return err
	}

	l.emit(events.SubscriptionUpdated, accountID)
	return nil
}

// Swap moves the subscription to a new plan, prorating per the provider's
// default rules. A pending cancellation is cleared in the same call.
func (l *Lifecycle) Swap(ctx context.Context, accountID int, planID string) error {
	if planID == "" {
		return fmt.Errorf("%w: plan id is required", ErrInvalidState)
	}
	_, sub, err := l.load(accountID)
	if err != nil {
		return err
	}

	remote, err := l.provider.UpdateSubscriptionPlan(ctx, sub.StripeID, sub.StripeItemID, planID)
	if err != nil {
		return err
	}

	sub.StripePlan = planID
	sub.EndsAt = nil
	if remote.Items != nil {
		for _, item := range remote.Items.Data {
			if item.ID == sub.StripeItemID && item.Plan != nil {
				sub.StripePlan = item.Plan.ID
			}
		}
	}
	if err := l.persist(sub, "swap"); err != nil {
		return err
	}

	l.emit(events.SubscriptionUpdated, accountID)
	return nil
}

// CancelAddon delegates the transition to the add-on collaborator and then
// schedules the plan's OnCancel hook, if declared.
func (l *Lifecycle) CancelAddon(ctx context.Context, accountID, addonID int) error {
	account, addon, plan, err := l.loadAddon(accountID, addonID)
	if err != nil {
		return err
	}
	if err := l.addons.Cancel(ctx, addon, plan); err != nil {
		return err
	}
	if plan.OnCancel != nil {
		l.submitHook("addon.on_cancel", plan, plan.OnCancel, account, addon)
	}
	return nil
}

func (l *Lifecycle) ResumeAddon(ctx context.Context, accountID, addonID int) error {
	account, addon, plan, err := l.loadAddon(accountID, addonID)
	if err != nil {
		return err
	}
	if err := l.addons.Resume(ctx, addon, plan); err != nil {
		return err
	}
	if plan.OnResume != nil {
		l.submitHook("addon.on_resume", plan, plan.OnResume, account, addon)
	}
	return nil
}

// Refund instructs the provider to refund a charge, fully when no amount is
// given. Never retried here; refunds are not safe to retry blindly.
func (l *Lifecycle) Refund(ctx context.Context, req RefundRequest) error {
	if req.ChargeID == "" {
		return fmt.Errorf("%w: charge id is required", ErrInvalidState)
	}
	var metadata map[string]string
	if req.Notes != "" {
		metadata = map[string]string{"notes": req.Notes}
	}
	_, err := l.provider.CreateRefund(ctx, req.ChargeID, req.Amount, metadata)
	return err
}

func (l *Lifecycle) load(accountID int) (*BillableAccount, *LocalSubscription, error) {
	account, err := l.store.FindAccount(accountID)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	sub, err := l.store.FindSubscriptionByAccount(accountID)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, fmt.Errorf("%w: account %d has no subscription", ErrNotFound, accountID)
	}
	return account, sub, nil
}

func (l *Lifecycle) loadAddon(accountID, addonID int) (*BillableAccount, *AddonSubscription, AddonPlan, error) {
	account, err := l.store.FindAccount(accountID)
	if err != nil {
		return nil, nil, AddonPlan{}, err
	}
	if account == nil {
		return nil, nil, AddonPlan{}, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	addon, err := l.store.FindAddon(accountID, addonID)
	if err != nil {
		return nil, nil, AddonPlan{}, err
	}
	if addon == nil {
		return nil, nil, AddonPlan{}, fmt.Errorf("%w: addon %d for account %d", ErrNotFound, addonID, accountID)
	}
	plan, ok := l.catalog.Find(addon.ProviderPlan)
	if !ok {
		return nil, nil, AddonPlan{}, fmt.Errorf("%w: addon plan %s is not in the catalog", ErrPlanResolution, addon.ProviderPlan)
	}
	return account, addon, plan, nil
}

// persist writes the already-mutated local record. The remote side has
// committed by the time this runs, so a failure here means local and remote
// now disagree; that condition is alerted, not just returned.
func (l *Lifecycle) persist(sub *LocalSubscription, op string) error {
	if err := l.store.SaveSubscription(sub); err != nil {
		log.Printf("[BILLING][ALERT] %s: remote mutation committed but local persist failed for subscription %s (account %d): %v", op, sub.StripeID, sub.AccountID, err)
		if l.alerter != nil {
			l.alerter.Alert("local state divergence",
				fmt.Sprintf("%s succeeded remotely for subscription %s (account %d) but the local record could not be updated: %v", op, sub.StripeID, sub.AccountID, err))
		}
		return err
	}
	return nil
}

func (l *Lifecycle) submitHook(name string, plan AddonPlan, hook AddonHook, account *BillableAccount, addon *AddonSubscription) {
	l.tasks.Submit(name+"."+plan.ID, func(ctx context.Context) error {
		return hook(ctx, account, addon)
	})
}

// emit publishes the event with a refreshed account snapshot. Best-effort:
// a snapshot load failure downgrades to an event without the account.
func (l *Lifecycle) emit(t events.Type, accountID int) {
	fresh, err := l.store.FindAccount(accountID)
	if err != nil {
		log.Printf("[BILLING] could not refresh account %d for %s event: %v", accountID, t, err)
	}
	l.bus.Emit(t, string(l.kind), fresh)
}
