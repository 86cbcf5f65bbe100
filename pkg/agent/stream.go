package agent

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cexll/architect-go/pkg/event"
)

// streamDispatcher pushes events to the RunStream channel without blocking
// the loop indefinitely. When the buffer fills it emits a backpressure
// marker and falls back to blocking sends.
type streamDispatcher struct {
	ctx        context.Context
	out        chan<- event.Event
	runID      string
	bufferSize int
	throttled  atomic.Bool
}

func newStreamDispatcher(ctx context.Context, out chan<- event.Event, runID string, buffer int) *streamDispatcher {
	if buffer < minStreamBuffer {
		buffer = minStreamBuffer
	}
	return &streamDispatcher{
		ctx:        ctx,
		out:        out,
		runID:      runID,
		bufferSize: buffer,
	}
}

func (d *streamDispatcher) emit(evt event.Event) error {
	select {
	case <-d.ctx.Done():
		return d.ctx.Err()
	case d.out <- evt:
		return nil
	default:
	}
	if d.throttled.CompareAndSwap(false, true) {
		if !d.blockingSend(d.backpressureEvent("throttled")) {
			return d.ctx.Err()
		}
	}
	if !d.blockingSend(evt) {
		return d.ctx.Err()
	}
	if d.throttled.CompareAndSwap(true, false) {
		d.tryEmit(d.backpressureEvent("recovered"))
	}
	return nil
}

func (d *streamDispatcher) blockingSend(evt event.Event) bool {
	for {
		select {
		case <-d.ctx.Done():
			return false
		case d.out <- evt:
			return true
		}
	}
}

func (d *streamDispatcher) tryEmit(evt event.Event) {
	select {
	case <-d.ctx.Done():
	case d.out <- evt:
	default:
	}
}

func (d *streamDispatcher) backpressureEvent(state string) event.Event {
	return progressEvent(d.runID, "backpressure", state, map[string]any{
		"buffer_size": d.bufferSize,
	})
}

// pushTerminal makes a best effort to deliver a final event even when the
// consumer stopped reading.
func (d *streamDispatcher) pushTerminal(evt event.Event) {
	if evt.Type == "" {
		return
	}
	select {
	case d.out <- evt:
		return
	default:
	}
	timer := time.NewTimer(50 * time.Millisecond)
	defer timer.Stop()
	select {
	case d.out <- evt:
	case <-timer.C:
	}
}
