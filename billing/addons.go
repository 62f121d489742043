package billing

import "context"

// AddonHook is a side effect a plan declares for cancel or resume. Hooks run
// on the task dispatcher after the transition commits; their failure never
// rolls the transition back.
type AddonHook func(ctx context.Context, account *BillableAccount, addon *AddonSubscription) error

// AddonPlan is a catalog entry for an add-on plan. Registered once at
// startup; looked up by provider plan id.
type AddonPlan struct {
	ID       string
	Name     string
	OnCancel AddonHook
	OnResume AddonHook
}

type AddonCatalog struct {
	plans map[string]AddonPlan
}

func NewAddonCatalog(plans ...AddonPlan) *AddonCatalog {
	c := &AddonCatalog{plans: map[string]AddonPlan{}}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	return c
}

func (c *AddonCatalog) Register(p AddonPlan) {
	c.plans[p.ID] = p
}

func (c *AddonCatalog) Find(id string) (AddonPlan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// AddonLifecycle is the external collaborator owning add-on billing rules.
// This package only resolves the record and the plan, delegates the
// transition, and schedules the plan's hooks.
type AddonLifecycle interface {
	Cancel(ctx context.Context, addon *AddonSubscription, plan AddonPlan) error
	Resume(ctx context.Context, addon *AddonSubscription, plan AddonPlan) error
}

// Alerter is the operator notification channel for conditions that must not
// pass silently (remote mutated, local persist failed).
type Alerter interface {
	Alert(subject, body string)
}
