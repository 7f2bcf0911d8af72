package notify

import (
	"context"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/types"
)

// Composite dispatches to every channel in order. It returns the first
// error after all channels have been tried.
type Composite []alerts.Notifier

// Dispatch implements alerts.Notifier.
func (c Composite) Dispatch(ctx context.Context, a *types.Alert) error {
	var first error
	for _, n := range c {
		if err := n.Dispatch(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}
