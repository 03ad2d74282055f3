package local

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"pet-vaccine-reminders/internal/adapters/timer"
	"pet-vaccine-reminders/internal/domain/reminders"
	"pet-vaccine-reminders/internal/platform/logger"
)

// ErrStopped: el timer ya fue detenido y no acepta registraciones.
var ErrStopped = errors.New("timer stopped")

// DefaultRetryDelay es la espera antes de reintentar un disparo que la cola rechazó.
const DefaultRetryDelay = time.Second

// Timer es un Timer Service en proceso sobre time.AfterFunc.
// Los triggers no sobreviven un reinicio: al arrancar se reconstruyen con RescheduleAll.
type Timer struct {
	exact    bool
	dispatch timer.Dispatcher
	log      logger.Logger
	now      func() time.Time
	retry    time.Duration

	mu      sync.Mutex
	fire    reminders.FireFunc
	gen     uint64
	pending map[int64]*entry
	stopped bool
}

type entry struct {
	t   *time.Timer
	gen uint64
	at  time.Time
	p   reminders.Payload
}

// New crea el timer. exact=false simula un host sin permiso para alarmas precisas.
func New(exact bool, dispatch timer.Dispatcher, log logger.Logger) *Timer {
	if log == nil {
		log = logger.Nop()
	}
	return &Timer{
		exact:    exact,
		dispatch: dispatch,
		log:      log.With(map[string]any{"component": "timer.local"}),
		now:      time.Now,
		retry:    DefaultRetryDelay,
		pending:  make(map[int64]*entry),
	}
}

// WithRetryDelay cambia la espera de reintento cuando la cola rechaza un disparo.
func (t *Timer) WithRetryDelay(d time.Duration) *Timer {
	if d > 0 {
		t.retry = d
	}
	return t
}

// SetFireFunc define el callback de disparo. Se llama una vez, antes de registrar triggers.
func (t *Timer) SetFireFunc(fn reminders.FireFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fire = fn
}

func (t *Timer) CanScheduleExact(_ context.Context) bool {
	return t.exact
}

func (t *Timer) Register(_ context.Context, at time.Time, id int64, p reminders.Payload) error {
	if !t.exact {
		return reminders.ErrPermissionDenied
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return ErrStopped
	}

	if old, ok := t.pending[id]; ok {
		old.t.Stop()
	}
	t.armLocked(id, at, at.Sub(t.now()), p)
	return nil
}

func (t *Timer) armLocked(id int64, at time.Time, d time.Duration, p reminders.Payload) {
	if d < 0 {
		d = 0
	}
	t.gen++
	gen := t.gen
	t.pending[id] = &entry{
		t:   time.AfterFunc(d, func() { t.expire(id, gen) }),
		gen: gen,
		at:  at,
		p:   p,
	}
}

func (t *Timer) Cancel(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.pending[id]; ok {
		e.t.Stop()
		delete(t.pending, id)
	}
	return nil
}

// Pending devuelve el instante programado de cada trigger vivo.
func (t *Timer) Pending() map[int64]time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int64]time.Time, len(t.pending))
	for id, e := range t.pending {
		out[id] = e.at
	}
	return out
}

// Stop frena todos los timers. Los triggers pendientes se descartan.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for id, e := range t.pending {
		e.t.Stop()
		delete(t.pending, id)
	}
}

func (t *Timer) expire(id int64, gen uint64) {
	t.mu.Lock()
	e, ok := t.pending[id]
	// una registración más nueva reemplazó a esta
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.pending, id)
	fire := t.fire
	t.mu.Unlock()

	if fire == nil {
		t.log.Warn("trigger expired without fire func", map[string]any{"trigger_id": id})
		return
	}

	p := e.p
	err := t.dispatch.Submit("fire:"+strconv.FormatInt(id, 10), func(ctx context.Context) {
		fire(ctx, id, p)
	})
	if err != nil {
		t.log.Warn("dispatch trigger failed, retrying", map[string]any{
			"trigger_id": id,
			"error":      err,
			"retry_in":   t.retry.String(),
		})
		t.rearm(id, e.at, p)
	}
}

// rearm vuelve a programar un trigger cuya entrega fue rechazada.
// Si mientras tanto hubo una registración nueva para el mismo id, gana esa.
func (t *Timer) rearm(id int64, at time.Time, p reminders.Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if _, ok := t.pending[id]; ok {
		return
	}
	t.armLocked(id, at, t.retry, p)
}
