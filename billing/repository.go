package billing

import (
	"database/sql"
)

// Store is the local persistence boundary. Lookups return nil without error
// when the row does not exist; callers decide whether that is a 404.
type Store interface {
	FindAccount(id int) (*BillableAccount, error)
	FindSubscriptionByAccount(accountID int) (*LocalSubscription, error)
	FindAddon(accountID, addonID int) (*AddonSubscription, error)
	AddonsToBeSettled(accountID int) ([]AddonSubscription, error)
	SaveSubscription(s *LocalSubscription) error
	SaveAddon(a *AddonSubscription) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindAccount(id int) (*BillableAccount, error) {
	row := r.db.QueryRow(`SELECT id, name, email, kind, stripe_customer_id, default_payment_method, created_at, updated_at FROM billable_accounts WHERE id=? LIMIT 1`, id)
	var a BillableAccount
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Kind, &a.StripeCustomerID, &a.DefaultPaymentMethod, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) FindSubscriptionByAccount(accountID int) (*LocalSubscription, error) {
	row := r.db.QueryRow(`SELECT id, account_id, stripe_id, stripe_item_id, stripe_plan, quantity, trial_ends_at, ends_at, created_at, updated_at FROM subscriptions WHERE account_id=? ORDER BY id LIMIT 1`, accountID)
	var s LocalSubscription
	var trialEnds, ends sql.NullTime
	if err := row.Scan(&s.ID, &s.AccountID, &s.StripeID, &s.StripeItemID, &s.StripePlan, &s.Quantity, &trialEnds, &ends, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if trialEnds.Valid {
		t := trialEnds.Time
		s.TrialEndsAt = &t
	}
	if ends.Valid {
		t := ends.Time
		s.EndsAt = &t
	}
	return &s, nil
}

func (r *Repository) FindAddon(accountID, addonID int) (*AddonSubscription, error) {
	row := r.db.QueryRow(`SELECT id, account_id, stripe_id, provider_plan, quantity, trial_ends_at, ends_at, settled, created_at, updated_at FROM addon_subscriptions WHERE account_id=? AND id=? LIMIT 1`, accountID, addonID)
	a, err := scanAddon(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *Repository) AddonsToBeSettled(accountID int) ([]AddonSubscription, error) {
	rows, err := r.db.Query(`SELECT id, account_id, stripe_id, provider_plan, quantity, trial_ends_at, ends_at, settled, created_at, updated_at FROM addon_subscriptions WHERE account_id=? AND settled=0 ORDER BY id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	addons := []AddonSubscription{}
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		addons = append(addons, *a)
	}
	return addons, rows.Err()
}

func (r *Repository) SaveSubscription(s *LocalSubscription) error {
	var trialEnds, ends interface{}
	if s.TrialEndsAt != nil {
		trialEnds = *s.TrialEndsAt
	}
	if s.EndsAt != nil {
		ends = *s.EndsAt
	}
	_, err := r.db.Exec(`UPDATE subscriptions SET stripe_id=?, stripe_item_id=?, stripe_plan=?, quantity=?, trial_ends_at=?, ends_at=? WHERE id=?`,
		s.StripeID, s.StripeItemID, s.StripePlan, s.Quantity, trialEnds, ends, s.ID)
	return err
}

func (r *Repository) SaveAddon(a *AddonSubscription) error {
	var trialEnds, ends interface{}
	if a.TrialEndsAt != nil {
		trialEnds = *a.TrialEndsAt
	}
	if a.EndsAt != nil {
		ends = *a.EndsAt
	}
	_, err := r.db.Exec(`UPDATE addon_subscriptions SET stripe_id=?, provider_plan=?, quantity=?, trial_ends_at=?, ends_at=?, settled=? WHERE id=?`,
		a.StripeID, a.ProviderPlan, a.Quantity, trialEnds, ends, a.Settled, a.ID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAddon(row rowScanner) (*AddonSubscription, error) {
	var a AddonSubscription
	var trialEnds, ends sql.NullTime
	if err := row.Scan(&a.ID, &a.AccountID, &a.StripeID, &a.ProviderPlan, &a.Quantity, &trialEnds, &ends, &a.Settled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if trialEnds.Valid {
		t := trialEnds.Time
		a.TrialEndsAt = &t
	}
	if ends.Valid {
		t := ends.Time
		a.EndsAt = &t
	}
	return &a, nil
}
