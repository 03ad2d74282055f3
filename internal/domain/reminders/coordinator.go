package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/platform/logger"
)

// FutureDueLister es la consulta que el coordinador delega al record store.
type FutureDueLister interface {
	ListFutureDue(ctx context.Context, now time.Time) ([]vaccines.Vaccine, error)
}

type BatchFailure struct {
	VaccineID int64  `json:"vaccine_id"`
	Error     string `json:"error"`
}

// BatchOutcome resume un RescheduleAll. Un fallo por ítem no aborta el resto.
type BatchOutcome struct {
	Total     int            `json:"total"`
	Scheduled int            `json:"scheduled"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

type Coordinator struct {
	store       FutureDueLister
	sched       *Scheduler
	parallelism int
	log         logger.Logger
}

func NewCoordinator(store FutureDueLister, sched *Scheduler, parallelism int, log logger.Logger) *Coordinator {
	if parallelism <= 0 {
		parallelism = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		store:       store,
		sched:       sched,
		parallelism: parallelism,
		log:         log.With(map[string]any{"component": "coordinator"}),
	}
}

// Reschedule es la unidad atómica por vacuna: cancel + schedule.
func (c *Coordinator) Reschedule(ctx context.Context, v vaccines.Vaccine, st Settings, now time.Time) (Outcome, error) {
	if err := c.sched.Cancel(ctx, v.ID); err != nil {
		return Outcome{VaccineID: v.ID}, err
	}
	return c.sched.Schedule(ctx, v, st, now)
}

// RescheduleAll re-registra todas las vacunas con vencimiento futuro.
// Solo devuelve error si falla la consulta; los fallos por ítem quedan en el BatchOutcome.
func (c *Coordinator) RescheduleAll(ctx context.Context, st Settings, now time.Time) (BatchOutcome, error) {
	items, err := c.store.ListFutureDue(ctx, now)
	if err != nil {
		return BatchOutcome{}, fmt.Errorf("list future due vaccines: %w", err)
	}

	var (
		mu  sync.Mutex
		out = BatchOutcome{Total: len(items)}
		g   errgroup.Group
	)
	g.SetLimit(c.parallelism)

	for _, v := range items {
		g.Go(func() error {
			res, err := c.Reschedule(ctx, v, st, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				out.Failed++
				out.Failures = append(out.Failures, BatchFailure{VaccineID: v.ID, Error: err.Error()})
				batchItems.WithLabelValues("failed").Inc()
			case res.Status == StatusSkipped:
				out.Skipped++
				batchItems.WithLabelValues("skipped").Inc()
			default:
				out.Scheduled++
				batchItems.WithLabelValues("scheduled").Inc()
			}
			// nunca devolvemos error: un ítem no cancela al resto
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out.Failures, func(i, j int) bool {
		return out.Failures[i].VaccineID < out.Failures[j].VaccineID
	})

	fields := map[string]any{
		"total":     out.Total,
		"scheduled": out.Scheduled,
		"skipped":   out.Skipped,
		"failed":    out.Failed,
	}
	if out.Failed > 0 {
		c.log.Warn("reschedule all finished with failures", fields)
	} else {
		c.log.Info("reschedule all finished", fields)
	}
	return out, nil
}
