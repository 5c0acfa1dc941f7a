package channels

import (
	"context"
	"sync"

	"github.com/cortexcore/cortex/internal/observability"
)

// Manager runs a set of platform adapters concurrently and logs their
// terminal errors; one adapter's failure does not stop the others.
type Manager struct {
	adapters []Adapter
	logger   *observability.Logger
}

// NewManager constructs a Manager over the given adapters.
func NewManager(logger *observability.Logger, adapters ...Adapter) *Manager {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Manager{adapters: adapters, logger: logger}
}

// Run starts every adapter and blocks until ctx is cancelled and all
// adapters have returned.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, a := range m.adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			if err := a.Run(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error(ctx, "channel adapter stopped", "platform", a.Platform(), "error", err)
			}
		}(a)
	}
	wg.Wait()
}
