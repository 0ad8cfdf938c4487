package sink

import (
	"context"
	"sync"
)

// Delivery is one recorded Deliver call.
type Delivery struct {
	Subject string
	Body    string
}

// Capture records deliveries in memory. Tests use it to assert on rendered
// output and to inject delivery failures.
type Capture struct {
	mu         sync.Mutex
	fail       error
	deliveries []Delivery
}

func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Name() string { return "capture" }

// FailWith makes subsequent Deliver calls return err. Pass nil to restore
// successful delivery.
func (c *Capture) FailWith(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

func (c *Capture) Deliver(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.deliveries = append(c.deliveries, Delivery{Subject: subject, Body: body})
	return nil
}

// Deliveries returns a copy of everything delivered so far.
func (c *Capture) Deliveries() []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Delivery(nil), c.deliveries...)
}
