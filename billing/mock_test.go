package billing

import (
	"context"
	"fmt"
	"sync"

	stripe "github.com/stripe/stripe-go/v74"
)

// fakeProvider is a hand-rolled Provider double recording every call.
type cancelCall struct {
	id        string
	immediate bool
}

type updateCall struct {
	id     string
	itemID string
	planID string
}

type refundCall struct {
	chargeID string
	amount   int64
	metadata map[string]string
}

type fakeProvider struct {
	mu sync.Mutex

	subscription *stripe.Subscription
	subErr       error
	getSubCalls  int

	items    []*stripe.SubscriptionItem
	itemsErr error

	cancelResult *stripe.Subscription
	cancelErr    error
	cancelCalls  []cancelCall

	updateResult *stripe.Subscription
	updateErr    error
	updateCalls  []updateCall

	methods    []*stripe.PaymentMethod
	methodsErr error

	invoices    []*stripe.Invoice
	invoicesErr error

	charges    []*stripe.Charge
	chargesErr error

	disputes    map[string]*stripe.Dispute
	disputesErr error

	refundResult *stripe.Refund
	refundErr    error
	refundCalls  []refundCall

	plans    []*stripe.Plan
	plansErr error

	listCalls int
}

func (f *fakeProvider) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getSubCalls++
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.subscription, nil
}

func (f *fakeProvider) ListSubscriptionItems(ctx context.Context, subscriptionID string) ([]*stripe.SubscriptionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return f.items, nil
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, id string, immediate bool) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls = append(f.cancelCalls, cancelCall{id: id, immediate: immediate})
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelResult, nil
}

func (f *fakeProvider) UpdateSubscriptionPlan(ctx context.Context, id, itemID, planID string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, updateCall{id: id, itemID: itemID, planID: planID})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateResult != nil {
		return f.updateResult, nil
	}
	return &stripe.Subscription{ID: id}, nil
}

func (f *fakeProvider) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.methodsErr != nil {
		return nil, f.methodsErr
	}
	return f.methods, nil
}

func (f *fakeProvider) ListInvoices(ctx context.Context, customerID string) ([]*stripe.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.invoicesErr != nil {
		return nil, f.invoicesErr
	}
	return f.invoices, nil
}

func (f *fakeProvider) ListCharges(ctx context.Context, customerID string) ([]*stripe.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.chargesErr != nil {
		return nil, f.chargesErr
	}
	return f.charges, nil
}

func (f *fakeProvider) GetDispute(ctx context.Context, id string) (*stripe.Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disputesErr != nil {
		return nil, f.disputesErr
	}
	if d, ok := f.disputes[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: dispute %s", ErrProviderLookup, id)
}

func (f *fakeProvider) CreateRefund(ctx context.Context, chargeID string, amount int64, metadata map[string]string) (*stripe.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls = append(f.refundCalls, refundCall{chargeID: chargeID, amount: amount, metadata: metadata})
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	if f.refundResult != nil {
		return f.refundResult, nil
	}
	return &stripe.Refund{ID: "re_test"}, nil
}

func (f *fakeProvider) ListPlans(ctx context.Context, limit int64) ([]*stripe.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	return f.plans, nil
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu sync.Mutex

	accounts map[int]*BillableAccount
	subs     map[int]*LocalSubscription
	addons   map[int]map[int]*AddonSubscription

	saveSubErr   error
	saveAddonErr error

	savedSubs   []LocalSubscription
	savedAddons []AddonSubscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[int]*BillableAccount{},
		subs:     map[int]*LocalSubscription{},
		addons:   map[int]map[int]*AddonSubscription{},
	}
}

func (s *fakeStore) FindAccount(id int) (*BillableAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id], nil
}

func (s *fakeStore) FindSubscriptionByAccount(accountID int) (*LocalSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[accountID], nil
}

func (s *fakeStore) FindAddon(accountID, addonID int) (*AddonSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byID, ok := s.addons[accountID]; ok {
		return byID[addonID], nil
	}
	return nil, nil
}

func (s *fakeStore) AddonsToBeSettled(accountID int) ([]AddonSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []AddonSubscription{}
	for _, a := range s.addons[accountID] {
		if !a.Settled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeStore) SaveSubscription(sub *LocalSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveSubErr != nil {
		return s.saveSubErr
	}
	s.savedSubs = append(s.savedSubs, *sub)
	s.subs[sub.AccountID] = sub
	return nil
}

func (s *fakeStore) SaveAddon(a *AddonSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveAddonErr != nil {
		return s.saveAddonErr
	}
	s.savedAddons = append(s.savedAddons, *a)
	if s.addons[a.AccountID] == nil {
		s.addons[a.AccountID] = map[int]*AddonSubscription{}
	}
	s.addons[a.AccountID][a.ID] = a
	return nil
}

// fakeAddonLifecycle records delegated transitions.
type fakeAddonLifecycle struct {
	mu          sync.Mutex
	cancelCalls []int
	resumeCalls []int
	err         error
}

func (f *fakeAddonLifecycle) Cancel(ctx context.Context, addon *AddonSubscription, plan AddonPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls = append(f.cancelCalls, addon.ID)
	return f.err
}

func (f *fakeAddonLifecycle) Resume(ctx context.Context, addon *AddonSubscription, plan AddonPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls = append(f.resumeCalls, addon.ID)
	return f.err
}

// fakeAlerter records operator alerts.
type fakeAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeAlerter) Alert(subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
}
