package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
)

// Provider is the thin adapter over the payment provider. The rest of the
// package depends on this interface, never on the SDK client directly, so
// tests can stand in a fake.
type Provider interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	ListSubscriptionItems(ctx context.Context, subscriptionID string) ([]*stripe.SubscriptionItem, error)

	// CancelSubscription terminates immediately when immediate is true,
	// otherwise marks cancel-at-period-end.
	CancelSubscription(ctx context.Context, id string, immediate bool) (*stripe.Subscription, error)

	// UpdateSubscriptionPlan moves the given item to planID, prorating per
	// the provider's default rules, and clears any pending cancellation.
	UpdateSubscriptionPlan(ctx context.Context, id, itemID, planID string) (*stripe.Subscription, error)

	ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
	ListInvoices(ctx context.Context, customerID string) ([]*stripe.Invoice, error)
	ListCharges(ctx context.Context, customerID string) ([]*stripe.Charge, error)
	GetDispute(ctx context.Context, id string) (*stripe.Dispute, error)
	CreateRefund(ctx context.Context, chargeID string, amount int64, metadata map[string]string) (*stripe.Refund, error)
	ListPlans(ctx context.Context, limit int64) ([]*stripe.Plan, error)
}
