package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

const defaultBackendTimeout = 8 * time.Second

// Backend delivers a reminder through one channel. Implementations must
// respect the context deadline; the dispatcher imposes one per call.
type Backend interface {
	Name() string
	Deliver(ctx context.Context, attempt *DeliveryAttempt) (*Receipt, error)
}

// ScheduleCanceler is implemented by backends that can revoke a delivery they
// previously accepted for a future fire time.
type ScheduleCanceler interface {
	CancelScheduled(ctx context.Context, deliveryID string) error
}

// Dispatcher pushes a delivery attempt through an ordered chain of backends,
// accepting the first success. Adding or removing a backend is a change to
// the injected slice, nothing else.
type Dispatcher struct {
	backends []Backend
	metrics  *Metrics
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher over the given chain. The last element
// is expected to be the terminal offline-queue backend, but the dispatcher
// itself is indifferent to chain composition.
func NewDispatcher(backends []Backend, timeout time.Duration, metrics *Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &Dispatcher{
		backends: backends,
		timeout:  timeout,
		metrics:  metrics,
	}
}

// Dispatch attempts delivery through the chain, stopping at the first
// backend that accepts. Every attempt is logged with enough context to
// reconstruct the delivery path.
func (d *Dispatcher) Dispatch(ctx context.Context, attempt *DeliveryAttempt) (*Receipt, error) {
	if len(d.backends) == 0 {
		return nil, errors.New("no delivery backends configured")
	}

	var lastErr error
	for _, backend := range d.backends {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		receipt, err := backend.Deliver(callCtx, attempt)
		elapsed := time.Since(start)
		cancel()

		if err != nil {
			d.metrics.RecordDispatch(backend.Name(), "failure", elapsed)
			slog.WarnContext(ctx, "delivery backend failed, falling through",
				slog.Int("taskID", int(attempt.Task.ID)),
				slog.String("attemptID", attempt.ID),
				slog.Time("fireAt", attempt.FireAt),
				slog.String("backend", backend.Name()),
				slog.Any("err", err),
			)
			lastErr = errors.Wrapf(err, "backend %s", backend.Name())
			continue
		}

		d.metrics.RecordDispatch(backend.Name(), "success", elapsed)
		slog.InfoContext(ctx, "reminder delivery accepted",
			slog.Int("taskID", int(attempt.Task.ID)),
			slog.String("attemptID", attempt.ID),
			slog.Time("fireAt", attempt.FireAt),
			slog.String("backend", backend.Name()),
			slog.String("deliveryID", receipt.DeliveryID),
			slog.Bool("queued", receipt.Queued),
		)
		return receipt, nil
	}

	return nil, errors.Wrap(lastErr, "all delivery backends exhausted")
}

// Backends returns the network portion of the chain, i.e. every backend
// except the terminal offline-queue one. Used by the queue replay process.
func (d *Dispatcher) NetworkBackends() []Backend {
	network := make([]Backend, 0, len(d.backends))
	for _, b := range d.backends {
		if _, isQueue := b.(*QueueBackend); isQueue {
			continue
		}
		network = append(network, b)
	}
	return network
}
