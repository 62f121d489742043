package billing

import (
	"context"
	"errors"
	"fmt"
	"log"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// planPageLimit caps the plan catalog read; the admin UI shows one page.
const planPageLimit = 100

// StripeProvider implements Provider over the Stripe SDK. The API key is
// injected once at construction; there is no global key state.
type StripeProvider struct {
	sc *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	log.Printf("[STRIPE] provider ready (key %s)", maskKey(secretKey))
	return &StripeProvider{sc: sc}
}

func maskKey(k string) string {
	if len(k) < 12 {
		return "****"
	}
	return k[:7] + "..." + k[len(k)-4:]
}

// wrapErr classifies a Stripe failure into the package taxonomy. Remote 404s
// become lookup errors (stale local id), everything else a provider error
// with the payload logged.
func wrapErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == 404 || se.Code == stripe.ErrorCodeResourceMissing {
			log.Printf("[STRIPE][%s] not found: %v", op, se)
			return fmt.Errorf("%w: %s: %s", ErrProviderLookup, op, se.Msg)
		}
		if se.HTTPStatusCode == 401 {
			log.Printf("[STRIPE][%s] authentication failed, check the configured secret key", op)
			return fmt.Errorf("%w: %s: invalid api key", ErrProvider, op)
		}
		log.Printf("[STRIPE][%s] error code=%s status=%d: %v", op, se.Code, se.HTTPStatusCode, se)
		return fmt.Errorf("%w: %s: %s", ErrProvider, op, se.Msg)
	}
	log.Printf("[STRIPE][%s] error: %v", op, err)
	return fmt.Errorf("%w: %s: %v", ErrProvider, op, err)
}

func (s *StripeProvider) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := s.sc.Subscriptions.Get(id, params)
	if err != nil {
		return nil, wrapErr("subscriptions.get", err)
	}
	return sub, nil
}

func (s *StripeProvider) ListSubscriptionItems(ctx context.Context, subscriptionID string) ([]*stripe.SubscriptionItem, error) {
	params := &stripe.SubscriptionItemListParams{Subscription: stripe.String(subscriptionID)}
	params.Context = ctx
	iter := s.sc.SubscriptionItems.List(params)
	items := []*stripe.SubscriptionItem{}
	for iter.Next() {
		items = append(items, iter.SubscriptionItem())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("subscription_items.list", err)
	}
	return items, nil
}

func (s *StripeProvider) CancelSubscription(ctx context.Context, id string, immediate bool) (*stripe.Subscription, error) {
	if immediate {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		sub, err := s.sc.Subscriptions.Cancel(id, params)
		if err != nil {
			return nil, wrapErr("subscriptions.cancel", err)
		}
		return sub, nil
	}
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	sub, err := s.sc.Subscriptions.Update(id, params)
	if err != nil {
		return nil, wrapErr("subscriptions.update", err)
	}
	return sub, nil
}

func (s *StripeProvider) UpdateSubscriptionPlan(ctx context.Context, id, itemID, planID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		Items: []*stripe.SubscriptionItemsParams{{
			ID:   stripe.String(itemID),
			Plan: stripe.String(planID),
		}},
	}
	params.Context = ctx
	sub, err := s.sc.Subscriptions.Update(id, params)
	if err != nil {
		return nil, wrapErr("subscriptions.update", err)
	}
	return sub, nil
}

func (s *StripeProvider) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx
	params.Single = true
	iter := s.sc.PaymentMethods.List(params)
	methods := []*stripe.PaymentMethod{}
	for iter.Next() {
		methods = append(methods, iter.PaymentMethod())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("payment_methods.list", err)
	}
	return methods, nil
}

func (s *StripeProvider) ListInvoices(ctx context.Context, customerID string) ([]*stripe.Invoice, error) {
	params := &stripe.InvoiceListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Single = true
	iter := s.sc.Invoices.List(params)
	invoices := []*stripe.Invoice{}
	for iter.Next() {
		invoices = append(invoices, iter.Invoice())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("invoices.list", err)
	}
	return invoices, nil
}

func (s *StripeProvider) ListCharges(ctx context.Context, customerID string) ([]*stripe.Charge, error) {
	params := &stripe.ChargeListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Single = true
	iter := s.sc.Charges.List(params)
	charges := []*stripe.Charge{}
	for iter.Next() {
		charges = append(charges, iter.Charge())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("charges.list", err)
	}
	return charges, nil
}

func (s *StripeProvider) GetDispute(ctx context.Context, id string) (*stripe.Dispute, error) {
	params := &stripe.DisputeParams{}
	params.Context = ctx
	d, err := s.sc.Disputes.Get(id, params)
	if err != nil {
		return nil, wrapErr("disputes.get", err)
	}
	return d, nil
}

func (s *StripeProvider) CreateRefund(ctx context.Context, chargeID string, amount int64, metadata map[string]string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{Charge: stripe.String(chargeID)}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	r, err := s.sc.Refunds.New(params)
	if err != nil {
		return nil, wrapErr("refunds.new", err)
	}
	return r, nil
}

func (s *StripeProvider) ListPlans(ctx context.Context, limit int64) ([]*stripe.Plan, error) {
	if limit <= 0 || limit > planPageLimit {
		limit = planPageLimit
	}
	params := &stripe.PlanListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	// One page only; the iterator would otherwise keep fetching while the
	// account has more plans than the limit.
	params.Single = true
	iter := s.sc.Plans.List(params)
	plans := []*stripe.Plan{}
	for iter.Next() {
		plans = append(plans, iter.Plan())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("plans.list", err)
	}
	return plans, nil
}
