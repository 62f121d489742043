package addons

import (
	"context"
	"fmt"
	"log"
	"time"

	"cashier-backend/billing"
)

// Local is a minimal AddonLifecycle collaborator that records the transition
// on the local add-on row. Deployments with provider-billed add-ons swap in
// their own implementation; the command layer does not care which.
type Local struct {
	store billing.Store
	now   func() time.Time
}

func NewLocal(store billing.Store) *Local {
	return &Local{store: store, now: time.Now}
}

func (l *Local) Cancel(ctx context.Context, addon *billing.AddonSubscription, plan billing.AddonPlan) error {
	now := l.now()
	addon.EndsAt = &now
	if err := l.store.SaveAddon(addon); err != nil {
		return fmt.Errorf("cancel addon %d: %w", addon.ID, err)
	}
	log.Printf("[ADDONS] cancelled addon %d (plan %s) for account %d", addon.ID, plan.ID, addon.AccountID)
	return nil
}

func (l *Local) Resume(ctx context.Context, addon *billing.AddonSubscription, plan billing.AddonPlan) error {
	addon.EndsAt = nil
	if err := l.store.SaveAddon(addon); err != nil {
		return fmt.Errorf("resume addon %d: %w", addon.ID, err)
	}
	log.Printf("[ADDONS] resumed addon %d (plan %s) for account %d", addon.ID, plan.ID, addon.AccountID)
	return nil
}
