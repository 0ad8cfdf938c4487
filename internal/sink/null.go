package sink

import "context"

// Null swallows every delivery. Useful as an explicit "nowhere" target.
type Null struct{}

func (Null) Name() string { return "null" }

func (Null) Deliver(_ context.Context, _, _ string) error { return nil }
