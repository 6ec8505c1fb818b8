package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSuperseded is delivered to a batch that was replaced by a newer
// submission under the same key.
var ErrSuperseded = errors.New("batch superseded")

// Outcome is the single message delivered for a submitted batch.
type Outcome struct {
	ID     uuid.UUID
	Key    string
	Result *Result
	Err    error
}

// Dispatcher runs batches in the background. At most one batch per key is
// in flight: submitting under a busy key cancels the older batch.
type Dispatcher struct {
	pipeline *Pipeline

	mu       sync.Mutex
	inflight map[string]*submission
}

type submission struct {
	id     uuid.UUID
	cancel context.CancelCauseFunc
}

// NewDispatcher returns a dispatcher running batches through p.
func NewDispatcher(p *Pipeline) *Dispatcher {
	return &Dispatcher{
		pipeline: p,
		inflight: make(map[string]*submission),
	}
}

// Submit starts batch in a new goroutine and returns a channel that
// receives exactly one Outcome and is then closed.
//
// A superseded or cancelled batch reports the cancellation cause and never
// a partial result.
func (d *Dispatcher) Submit(ctx context.Context, key string, batch Batch) <-chan Outcome {
	ctx, cancel := context.WithCancelCause(ctx)
	sub := &submission{id: uuid.New(), cancel: cancel}
	out := make(chan Outcome, 1)

	d.mu.Lock()
	if prev, ok := d.inflight[key]; ok {
		log.Debug().
			Str("key", key).
			Stringer("id", prev.id).
			Stringer("by", sub.id).
			Msg("Superseding in-flight batch")
		prev.cancel(ErrSuperseded)
	}
	d.inflight[key] = sub
	d.mu.Unlock()

	go func() {
		defer close(out)

		res, elapsed, err := d.pipeline.run(ctx, batch)

		d.mu.Lock()
		if d.inflight[key] == sub {
			delete(d.inflight, key)
		}
		d.mu.Unlock()

		// the batch may finish after being superseded, its result is stale then
		if ctx.Err() != nil {
			res, err = nil, context.Cause(ctx)
			if errors.Is(err, ErrSuperseded) && d.pipeline.opts.Recorder != nil {
				d.pipeline.opts.Recorder.ObserveSuperseded(batch.Country)
			}
		} else if err == nil {
			d.pipeline.record(batch.Country, res.Stats, elapsed)
		}
		cancel(nil)

		out <- Outcome{ID: sub.id, Key: key, Result: res, Err: err}
	}()

	return out
}

// Cancel abandons the in-flight batch under key, if any. Its outcome
// carries context.Canceled.
func (d *Dispatcher) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub, ok := d.inflight[key]
	if !ok {
		return false
	}
	sub.cancel(context.Canceled)
	delete(d.inflight, key)
	return true
}

// InFlight returns the number of batches currently running.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
