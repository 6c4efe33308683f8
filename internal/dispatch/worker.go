package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/metrics"
)

// Job describes the three phases of a worker run.
type Job[S, R any] struct {
	// Snapshot captures the inputs on the loop before a run starts.
	Snapshot func() S
	// Run does the slow part off the loop.
	Run func(ctx context.Context, s S) (R, error)
	// Apply publishes a result on the loop. Only the newest request's result is applied.
	Apply func(R)
	// Fail reports a run error on the loop. Optional.
	Fail func(error)
}

// Worker runs at most one Job at a time. Requests made while a run is in flight
// coalesce into a single follow-up run, and results of superseded requests are dropped.
//
// Request and all callbacks run on the loop; the worker holds no locks.
type Worker[S, R any] struct {
	name string
	loop *Loop
	ctx  context.Context
	job  Job[S, R]
	log  *zap.Logger

	seq     uint64
	running bool
	pending bool
}

// NewWorker binds a job to a loop. ctx is handed to every run.
func NewWorker[S, R any](ctx context.Context, loop *Loop, name string, job Job[S, R], log *zap.Logger) *Worker[S, R] {
	return &Worker[S, R]{name: name, loop: loop, ctx: ctx, job: job, log: log}
}

// Request asks for a fresh run. Call it on the loop.
func (w *Worker[S, R]) Request() {
	w.seq++
	if w.running {
		w.pending = true
		return
	}
	w.start()
}

// Busy reports whether a run is in flight. Call it on the loop.
func (w *Worker[S, R]) Busy() bool { return w.running }

func (w *Worker[S, R]) start() {
	w.running = true
	w.pending = false
	seq := w.seq
	input := w.job.Snapshot()

	go func() {
		res, err := w.job.Run(w.ctx, input)
		w.loop.Post(func() { w.complete(seq, res, err) })
	}()
}

func (w *Worker[S, R]) complete(seq uint64, res R, err error) {
	w.running = false

	switch {
	case seq != w.seq:
		metrics.StaleResultsTotal.WithLabelValues(w.name).Inc()
		w.log.Debug("stale result dropped", zap.String("worker", w.name), zap.Uint64("seq", seq), zap.Uint64("latest", w.seq))
	case err != nil:
		if w.job.Fail != nil {
			w.job.Fail(err)
		}
	default:
		w.job.Apply(res)
	}

	if w.pending {
		w.start()
	}
}
