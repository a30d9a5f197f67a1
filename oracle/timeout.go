package oracle

import (
	"context"
	"errors"
	"time"
)

// WithTimeout bounds every Invoke of the wrapped oracle to d. A call that
// exceeds the bound fails with TimeoutError. Non-positive d returns the
// oracle unwrapped.
func WithTimeout(o Oracle, d time.Duration) Oracle {
	if d <= 0 {
		return o
	}
	return &timeoutOracle{next: o, timeout: d}
}

type timeoutOracle struct {
	next    Oracle
	timeout time.Duration
}

func (o *timeoutOracle) Invoke(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.next.Invoke(ctx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return Response{}, &TimeoutError{Provider: o.next.Info().Provider, Elapsed: time.Since(start)}
	}
	return resp, err
}

func (o *timeoutOracle) Info() Info { return o.next.Info() }
