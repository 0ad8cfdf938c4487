// Package sink defines the delivery capability for rendered reports and a
// set of concrete sinks: Telegram, log, file, null, plus test doubles.
//
// Sinks deliver synchronously. Retry policy deliberately lives with the
// caller's scheduler, not here, so a report cycle always observes the real
// delivery outcome.
package sink

import (
	"context"
	"fmt"
)

// Sink delivers a rendered report. Deliver may block; callers bound it
// with the context deadline.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, subject, body string) error
}

// DeliveryError reports a failed delivery attempt through a named sink.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
