package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"pet-vaccine-reminders/internal/platform/logger"
)

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker queue stopped")
)

// Options configura el pool. Valores <= 0 toman defaults.
type Options struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type task struct {
	name string
	fn   func(ctx context.Context)
}

// Queue es un pool acotado de workers.
// Los callbacks de los timer services se encolan acá para que el núcleo
// (scheduler, action handler) corra sincrónico y fuera del hilo del timer.
type Queue struct {
	log  logger.Logger
	opts Options

	mu      sync.RWMutex
	ch      chan task
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(opts Options, log logger.Logger) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Queue{
		log:  log.With(map[string]any{"component": "worker"}),
		opts: opts,
		ch:   make(chan task, opts.QueueSize),
	}
}

// Start lanza los workers. Llamadas repetidas no hacen nada.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.loop(runCtx)
	}
}

// Submit encola fn sin bloquear. Si la cola está llena devuelve ErrQueueFull.
func (q *Queue) Submit(name string, fn func(ctx context.Context)) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrStopped
	}

	select {
	case q.ch <- task{name: name, fn: fn}:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

// Stop deja de aceptar tareas, drena lo encolado y espera a los workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.ch)
	started := q.started
	q.mu.Unlock()

	if !started {
		return
	}
	q.wg.Wait()
	q.cancel()
}

func (q *Queue) loop(ctx context.Context) {
	defer q.wg.Done()
	for t := range q.ch {
		q.run(ctx, t)
	}
}

func (q *Queue) run(ctx context.Context, t task) {
	start := time.Now()

	runCtx := ctx
	if q.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, q.opts.TaskTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			q.log.Error("task panicked", map[string]any{
				"task":  t.name,
				"panic": fmt.Sprint(rec),
				"stack": string(debug.Stack()),
			})
		}
	}()

	t.fn(runCtx)

	q.log.Debug("task completed", map[string]any{
		"task": t.name,
		"dur":  time.Since(start).String(),
	})
}
