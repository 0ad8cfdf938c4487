package sink

import "context"

// Multi fans a delivery out to several sinks. Every sink is attempted even
// after a failure; the first error is returned so the caller sees the
// cycle as failed.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi { return &Multi{sinks: sinks} }

func (m *Multi) Name() string { return "multi" }

// Sinks returns the fanout targets in delivery order.
func (m *Multi) Sinks() []Sink { return m.sinks }

func (m *Multi) Deliver(ctx context.Context, subject, body string) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, subject, body); err != nil && firstErr == nil {
			firstErr = &DeliveryError{Sink: s.Name(), Err: err}
		}
	}
	return firstErr
}
