package domain

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CallFunc performs one provider call. It must honor ctx cancellation.
type CallFunc func(ctx context.Context) ([]PlaceRecord, error)

// SettleFunc consumes the outcome of a call that is still current.
type SettleFunc func(records []PlaceRecord, err error)

type callResult struct {
	records []PlaceRecord
	err     error
}

// Coordinator keeps at most one live provider call. Issuing a call cancels
// the previous one, and the outcome of a superseded call is dropped even if
// it arrives after the newer call finished.
type Coordinator struct {
	mu      sync.Mutex
	timeout time.Duration
	seq     uint64
	cancel  context.CancelFunc
}

// NewCoordinator creates a coordinator that bounds every call by timeout.
func NewCoordinator(timeout time.Duration) *Coordinator {
	return &Coordinator{
		mu:      sync.Mutex{},
		timeout: timeout,
	}
}

// Issue runs call as the newest request. When the call finishes and no newer
// request has been issued, settle runs under the coordinator lock so that no
// newer request can interleave with it. Issue returns ErrSuperseded when the
// outcome was dropped.
//
// Issue returns as soon as the call's context is done, whether or not the
// underlying transport has noticed yet.
func (c *Coordinator) Issue(ctx context.Context, call CallFunc, settle SettleFunc) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel
	c.mu.Unlock()

	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		records, err := call(callCtx)
		done <- callResult{records: records, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = callCtx.Err()
	}

	if res.err != nil && ctx.Err() != nil {
		res.err = fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return ErrSuperseded
	}
	c.cancel = nil

	settle(res.records, res.err)
	return nil
}

// Current returns the sequence number of the latest issued request.
func (c *Coordinator) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.seq
}
