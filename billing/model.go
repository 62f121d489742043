package billing

import "time"

// AccountKind tags an account (and the events emitted for it) as individual
// or team billing. Selected once at process start, never per request.
type AccountKind string

const (
	KindUser AccountKind = "user"
	KindTeam AccountKind = "team"
)

type BillableAccount struct {
	ID                   int         `json:"id"`
	Name                 string      `json:"name"`
	Email                string      `json:"email"`
	Kind                 AccountKind `json:"kind"`
	StripeCustomerID     string      `json:"stripe_customer_id"`
	DefaultPaymentMethod string      `json:"default_payment_method"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// LocalSubscription is the persisted record of the primary subscription.
// The provider's subscription object stays authoritative for period and
// pricing facts; this record is authoritative for the cancellation
// timestamps the app itself stamped.
type LocalSubscription struct {
	ID           int        `json:"id"`
	AccountID    int        `json:"account_id"`
	StripeID     string     `json:"stripe_id"`
	StripeItemID string     `json:"stripe_item_id"`
	StripePlan   string     `json:"stripe_plan"`
	Quantity     int        `json:"quantity"`
	TrialEndsAt  *time.Time `json:"trial_ends_at"`
	EndsAt       *time.Time `json:"ends_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (s *LocalSubscription) Ended(now time.Time) bool {
	return s.EndsAt != nil && s.EndsAt.Before(now)
}

func (s *LocalSubscription) OnGracePeriod(now time.Time) bool {
	return s.EndsAt != nil && s.EndsAt.After(now)
}

func (s *LocalSubscription) Cancelled() bool {
	return s.EndsAt != nil
}

func (s *LocalSubscription) Active(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriod(now)
}

func (s *LocalSubscription) OnTrial(now time.Time) bool {
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// AddonSubscription is a secondary subscription tied to the account, with its
// own lifecycle independent of the primary one.
type AddonSubscription struct {
	ID           int        `json:"id"`
	AccountID    int        `json:"account_id"`
	StripeID     string     `json:"stripe_id"`
	ProviderPlan string     `json:"provider_plan"`
	Quantity     int        `json:"quantity"`
	TrialEndsAt  *time.Time `json:"trial_ends_at"`
	EndsAt       *time.Time `json:"ends_at"`
	Settled      bool       `json:"settled"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (a *AddonSubscription) Ended(now time.Time) bool {
	return a.EndsAt != nil && a.EndsAt.Before(now)
}

func (a *AddonSubscription) OnGracePeriod(now time.Time) bool {
	return a.EndsAt != nil && a.EndsAt.After(now)
}

func (a *AddonSubscription) Cancelled() bool {
	return a.EndsAt != nil
}

func (a *AddonSubscription) Active(now time.Time) bool {
	return a.EndsAt == nil || a.OnGracePeriod(now)
}

func (a *AddonSubscription) OnTrial(now time.Time) bool {
	return a.TrialEndsAt != nil && a.TrialEndsAt.After(now)
}

// AddonView is an AddonSubscription annotated with its five derived facts.
type AddonView struct {
	AddonSubscription
	Ended         bool `json:"ended"`
	Cancelled     bool `json:"cancelled"`
	Active        bool `json:"active"`
	OnTrial       bool `json:"on_trial"`
	OnGracePeriod bool `json:"on_grace_period"`
}

func (a *AddonSubscription) View(now time.Time) AddonView {
	return AddonView{
		AddonSubscription: *a,
		Ended:             a.Ended(now),
		Cancelled:         a.Cancelled(),
		Active:            a.Active(now),
		OnTrial:           a.OnTrial(now),
		OnGracePeriod:     a.OnGracePeriod(now),
	}
}

// SubscriptionView is the merged read model: the local record's own fields
// plus the pricing of the remote item matching stripe_item_id, the derived
// facts, and selected remote timing fields.
type SubscriptionView struct {
	ID           int        `json:"id"`
	AccountID    int        `json:"account_id"`
	StripeID     string     `json:"stripe_id"`
	StripeItemID string     `json:"stripe_item_id"`
	Quantity     int        `json:"quantity"`
	TrialEndsAt  *time.Time `json:"trial_ends_at"`
	EndsAt       *time.Time `json:"ends_at"`

	// Plan is the locally stored plan id; StripePlan is the plan id the
	// provider reports on the matching item. They differ only under drift.
	Plan         string `json:"plan"`
	StripePlan   string `json:"stripe_plan"`
	PlanAmount   int64  `json:"plan_amount"`
	PlanInterval string `json:"plan_interval"`
	PlanCurrency string `json:"plan_currency"`

	Ended         bool `json:"ended"`
	Cancelled     bool `json:"cancelled"`
	Active        bool `json:"active"`
	OnTrial       bool `json:"on_trial"`
	OnGracePeriod bool `json:"on_grace_period"`

	ChargesAutomatically bool    `json:"charges_automatically"`
	CreatedAt            *string `json:"created_at"`
	EndedAt              *string `json:"ended_at"`
	CurrentPeriodStart   *string `json:"current_period_start"`
	CurrentPeriodEnd     *string `json:"current_period_end"`
	DaysUntilDue         int64   `json:"days_until_due"`
	CancelAtPeriodEnd    bool    `json:"cancel_at_period_end"`
	CanceledAt           *int64  `json:"canceled_at"`
}

// BillingOverview is the aggregate read returned for an account. In brief
// mode the card/invoice/charge/plan slices stay empty and no provider call
// is made for them.
type BillingOverview struct {
	Account            *BillableAccount  `json:"account"`
	Cards              []Card            `json:"cards"`
	Invoices           []Invoice         `json:"invoices"`
	Charges            []Charge          `json:"charges"`
	Subscription       *SubscriptionView `json:"subscription"`
	AddonSubscriptions []AddonView       `json:"addon_subscriptions"`
	Plans              []PlanView        `json:"plans"`
}

// RefundRequest is the command object for POST /charges/:id/refund.
// Amount zero means full refund; Notes, when set, is attached as opaque
// metadata on the provider side.
type RefundRequest struct {
	ChargeID string
	Amount   int64
	Notes    string
}
