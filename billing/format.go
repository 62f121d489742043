package billing

import (
	"time"

	stripe "github.com/stripe/stripe-go/v74"
)

// Normalized wire shapes for the provider sub-resources. Amounts stay in
// minor units untouched; epoch timestamps become strings (or null, never a
// placeholder date).

type Card struct {
	ID        string `json:"id"`
	IsDefault bool   `json:"is_default"`
	Name      string `json:"name"`
	Last4     string `json:"last4"`
	Country   string `json:"country"`
	Brand     string `json:"brand"`
	ExpMonth  int64  `json:"exp_month"`
	ExpYear   int64  `json:"exp_year"`
}

type Invoice struct {
	ID          string  `json:"id"`
	Total       int64   `json:"total"`
	Attempted   bool    `json:"attempted"`
	ChargeID    string  `json:"charge_id"`
	Currency    string  `json:"currency"`
	PeriodStart *string `json:"period_start"`
	PeriodEnd   *string `json:"period_end"`
}

type DisputeView struct {
	ID       string  `json:"id"`
	Amount   int64   `json:"amount"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason"`
	Currency string  `json:"currency"`
	Created  *string `json:"created"`
}

type Charge struct {
	ID             string       `json:"id"`
	Amount         int64        `json:"amount"`
	AmountRefunded int64        `json:"amount_refunded"`
	Captured       bool         `json:"captured"`
	Paid           bool         `json:"paid"`
	Status         string       `json:"status"`
	Currency       string       `json:"currency"`
	Dispute        *DisputeView `json:"dispute"`
	FailureCode    string       `json:"failure_code"`
	FailureMessage string       `json:"failure_message"`
	Created        *string      `json:"created"`
}

type PlanView struct {
	ID            string `json:"id"`
	Price         int64  `json:"price"`
	Interval      string `json:"interval"`
	Currency      string `json:"currency"`
	IntervalCount int64  `json:"interval_count"`
}

// formatDateTime keeps time-of-day; formatDate coarsens to the day. Both map
// a zero epoch to nil.
func formatDateTime(epoch int64) *string {
	if epoch == 0 {
		return nil
	}
	s := time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04:05")
	return &s
}

func formatDate(epoch int64) *string {
	if epoch == 0 {
		return nil
	}
	s := time.Unix(epoch, 0).UTC().Format("2006-01-02")
	return &s
}

// FormatCards marks the entry matching defaultID as the default card.
func FormatCards(methods []*stripe.PaymentMethod, defaultID string) []Card {
	cards := []Card{}
	for _, pm := range methods {
		c := Card{ID: pm.ID, IsDefault: defaultID != "" && pm.ID == defaultID}
		if pm.BillingDetails != nil {
			c.Name = pm.BillingDetails.Name
		}
		if pm.Card != nil {
			c.Last4 = pm.Card.Last4
			c.Country = pm.Card.Country
			c.Brand = string(pm.Card.Brand)
			c.ExpMonth = pm.Card.ExpMonth
			c.ExpYear = pm.Card.ExpYear
		}
		cards = append(cards, c)
	}
	return cards
}

func FormatInvoices(invoices []*stripe.Invoice) []Invoice {
	out := []Invoice{}
	for _, inv := range invoices {
		v := Invoice{
			ID:          inv.ID,
			Total:       inv.Total,
			Attempted:   inv.Attempted,
			Currency:    string(inv.Currency),
			PeriodStart: formatDateTime(inv.PeriodStart),
			PeriodEnd:   formatDateTime(inv.PeriodEnd),
		}
		if inv.Charge != nil {
			v.ChargeID = inv.Charge.ID
		}
		out = append(out, v)
	}
	return out
}

// FormatCharge takes the dispute already resolved by the caller; the list
// endpoint returns charges with only the dispute id populated.
func FormatCharge(ch *stripe.Charge, dispute *stripe.Dispute) Charge {
	v := Charge{
		ID:             ch.ID,
		Amount:         ch.Amount,
		AmountRefunded: ch.AmountRefunded,
		Captured:       ch.Captured,
		Paid:           ch.Paid,
		Status:         string(ch.Status),
		Currency:       string(ch.Currency),
		FailureCode:    ch.FailureCode,
		FailureMessage: ch.FailureMessage,
		Created:        formatDateTime(ch.Created),
	}
	if dispute != nil {
		v.Dispute = &DisputeView{
			ID:       dispute.ID,
			Amount:   dispute.Amount,
			Status:   string(dispute.Status),
			Reason:   string(dispute.Reason),
			Currency: string(dispute.Currency),
			Created:  formatDateTime(dispute.Created),
		}
	}
	return v
}

func FormatPlans(plans []*stripe.Plan) []PlanView {
	out := []PlanView{}
	for _, p := range plans {
		out = append(out, PlanView{
			ID:            p.ID,
			Price:         p.Amount,
			Interval:      string(p.Interval),
			Currency:      string(p.Currency),
			IntervalCount: p.IntervalCount,
		})
	}
	return out
}
