package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pet-vaccine-reminders/internal/adapters/timer"
	"pet-vaccine-reminders/internal/domain/reminders"
	"pet-vaccine-reminders/internal/platform/logger"
)

const defaultBatch = 100

// claimScript saca atómicamente los triggers vencidos del ZSET y devuelve pares (id, payload).
// Si dos procesos pollean a la vez, cada trigger lo reclama uno solo.
var claimScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
local out = {}
for _, id in ipairs(due) do
	redis.call('ZREM', KEYS[1], id)
	local p = redis.call('HGET', KEYS[2], id)
	redis.call('HDEL', KEYS[2], id)
	if p then
		table.insert(out, id)
		table.insert(out, p)
	end
end
return out
`)

type Options struct {
	Prefix       string
	Exact        bool
	PollInterval time.Duration
	Batch        int
}

// Timer guarda los triggers en Redis: ZSET <prefix>triggers (score = unix ms)
// y HASH <prefix>payloads (JSON). Sobrevive reinicios y se comparte entre réplicas.
type Timer struct {
	rdb      redis.UniversalClient
	opts     Options
	dispatch timer.Dispatcher
	log      logger.Logger

	mu     sync.RWMutex
	fire   reminders.FireFunc
	cancel context.CancelFunc
	done   chan struct{}
}

func New(rdb redis.UniversalClient, opts Options, dispatch timer.Dispatcher, log logger.Logger) *Timer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = defaultBatch
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Timer{
		rdb:      rdb,
		opts:     opts,
		dispatch: dispatch,
		log:      log.With(map[string]any{"component": "timer.redis"}),
	}
}

func (t *Timer) SetFireFunc(fn reminders.FireFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fire = fn
}

func (t *Timer) triggersKey() string { return t.opts.Prefix + "triggers" }
func (t *Timer) payloadsKey() string { return t.opts.Prefix + "payloads" }

func (t *Timer) CanScheduleExact(_ context.Context) bool {
	return t.opts.Exact
}

// Register hace ZADD + HSET en una transacción. Un id existente se sobreescribe.
func (t *Timer) Register(ctx context.Context, at time.Time, id int64, p reminders.Payload) error {
	if !t.opts.Exact {
		return reminders.ErrPermissionDenied
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	member := strconv.FormatInt(id, 10)
	_, err = t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, t.triggersKey(), redis.Z{Score: float64(at.UnixMilli()), Member: member})
		pipe.HSet(ctx, t.payloadsKey(), member, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register trigger %d: %w", id, err)
	}
	return nil
}

func (t *Timer) Cancel(ctx context.Context, id int64) error {
	member := strconv.FormatInt(id, 10)
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, t.triggersKey(), member)
		pipe.HDel(ctx, t.payloadsKey(), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel trigger %d: %w", id, err)
	}
	return nil
}

// Start lanza el loop de polling. Stop lo frena.
func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case now := <-ticker.C:
				if _, err := t.PollOnce(runCtx, now); err != nil && !errors.Is(err, context.Canceled) {
					t.log.Error("poll triggers failed", map[string]any{"error": err})
				}
			}
		}
	}()
}

func (t *Timer) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// PollOnce reclama los triggers vencidos a now y los despacha. Devuelve cuántos despachó.
func (t *Timer) PollOnce(ctx context.Context, now time.Time) (int, error) {
	res, err := claimScript.Run(ctx, t.rdb,
		[]string{t.triggersKey(), t.payloadsKey()},
		now.UnixMilli(), t.opts.Batch,
	).StringSlice()
	if err != nil {
		return 0, fmt.Errorf("claim triggers: %w", err)
	}

	t.mu.RLock()
	fire := t.fire
	t.mu.RUnlock()

	n := 0
	for i := 0; i+1 < len(res); i += 2 {
		id, err := strconv.ParseInt(res[i], 10, 64)
		if err != nil {
			t.log.Warn("invalid trigger id", map[string]any{"member": res[i]})
			continue
		}
		var p reminders.Payload
		if err := json.Unmarshal([]byte(res[i+1]), &p); err != nil {
			t.log.Warn("invalid trigger payload", map[string]any{"trigger_id": id, "error": err})
			continue
		}
		if fire == nil {
			t.log.Warn("trigger claimed without fire func", map[string]any{"trigger_id": id})
			t.requeue(ctx, res[i], res[i+1], now)
			continue
		}

		err = t.dispatch.Submit("fire:"+res[i], func(ctx context.Context) {
			fire(ctx, id, p)
		})
		if err != nil {
			t.log.Warn("dispatch trigger failed, requeued", map[string]any{"trigger_id": id, "error": err})
			t.requeue(ctx, res[i], res[i+1], now)
			continue
		}
		n++
	}
	return n, nil
}

// requeue devuelve un trigger reclamado al ZSET para el próximo poll.
// NX: si entretanto se registró el mismo id, queda la registración nueva.
func (t *Timer) requeue(ctx context.Context, member, payload string, now time.Time) {
	at := now.Add(t.opts.PollInterval)
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, t.triggersKey(), redis.Z{Score: float64(at.UnixMilli()), Member: member})
		pipe.HSetNX(ctx, t.payloadsKey(), member, payload)
		return nil
	})
	if err != nil {
		t.log.Error("requeue trigger failed", map[string]any{"member": member, "error": err})
	}
}
