package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/logging"
)

// Dispatcher runs handlers on detached goroutines and lets shutdown wait for
// the ones still in flight.
type Dispatcher struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine with a background context that
// keeps the caller's logger. Errors and panics are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.Error(bgCtx, goerr.New("panic in async handler", goerr.V("panic", fmt.Sprint(r))), "async handler panicked")
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.Error(bgCtx, err, "async handler failed")
		}
	}()
}

// Wait blocks until every dispatched handler returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
