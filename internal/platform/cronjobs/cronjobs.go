package cronjobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-vaccine-reminders/internal/platform/logger"

	"github.com/robfig/cron/v3"
)

// Runner ejecuta jobs periódicos (p.ej. reconciliación de triggers) sobre robfig/cron.
type Runner struct {
	c   *cron.Cron
	log logger.Logger
	ctx context.Context
}

func New(ctx context.Context, loc *time.Location, log logger.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(map[string]any{"component": "cron"})
	cl := cronLogger{log: log}
	return &Runner{
		// SkipIfStillRunning: una reconciliación lenta no se apila con la siguiente.
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
		ctx: ctx,
	}
}

// cronLogger adapta logger.Logger a cron.Logger. Los mensajes internos de cron
// (start, wake, run, skip) van a Debug; los panics recuperados a Error.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["err"] = err
	l.log.Error(msg, fields)
}

func kvFields(kv []interface{}) map[string]any {
	fields := make(map[string]any, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

// Add registra job con una expresión cron estándar (5 campos) o descriptores (@every 1h, @daily).
func (r *Runner) Add(name, spec string, timeout time.Duration, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if strings.TrimSpace(spec) == "" {
		return errors.New("spec required")
	}

	_, err := r.c.AddFunc(spec, func() {
		ctx := r.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		if err := job(ctx); err != nil {
			r.log.Warn("cron job failed", map[string]any{"job": name, "err": err})
			return
		}
		r.log.Info("cron job completed", map[string]any{"job": name, "dur": time.Since(start).String()})
	})
	if err != nil {
		return err
	}

	r.log.Info("cron job registered", map[string]any{"job": name, "spec": spec})
	return nil
}

// Next devuelve el próximo disparo de cada job (para logs/diagnóstico).
func (r *Runner) Next() []time.Time {
	entries := r.c.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

func (r *Runner) Start() { r.c.Start() }

// Stop espera a que terminen los jobs en curso.
func (r *Runner) Stop() {
	<-r.c.Stop().Done()
}
