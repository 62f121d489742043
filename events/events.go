package events

import (
	"log"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SubscriptionCancelled Type = "subscription.cancelled"
	SubscriptionUpdated   Type = "subscription.updated"
)

// Event is the single notification shape for subscription changes. Instead
// of separate team/individual event classes there is one type carrying the
// account kind.
type Event struct {
	ID          string      `json:"id"`
	Type        Type        `json:"type"`
	AccountKind string      `json:"account_kind"`
	Account     interface{} `json:"account"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

type Listener func(Event) error

// Bus fans events out to subscribed listeners. Emission is best-effort: a
// failing or panicking listener is logged and never fails the command that
// emitted the event.
type Bus struct {
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener. Call during startup only; the bus is not
// safe for subscription after Emit traffic begins.
func (b *Bus) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

func (b *Bus) Emit(t Type, accountKind string, account interface{}) {
	evt := Event{
		ID:          uuid.NewString(),
		Type:        t,
		AccountKind: accountKind,
		Account:     account,
		OccurredAt:  time.Now(),
	}
	for _, l := range b.listeners {
		b.deliver(l, evt)
	}
}

func (b *Bus) deliver(l Listener, evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[EVENTS] listener panic for %s event %s: %v", evt.Type, evt.ID, rec)
		}
	}()
	if err := l(evt); err != nil {
		log.Printf("[EVENTS] listener error for %s event %s: %v", evt.Type, evt.ID, err)
	}
}
