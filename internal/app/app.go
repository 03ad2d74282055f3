package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"pet-vaccine-reminders/internal/adapters/auth/identity"
	mem "pet-vaccine-reminders/internal/adapters/storage/memory"
	pg "pet-vaccine-reminders/internal/adapters/storage/postgres"
	"pet-vaccine-reminders/internal/adapters/timer/local"
	"pet-vaccine-reminders/internal/adapters/timer/redisq"
	"pet-vaccine-reminders/internal/config"
	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/reminders"
	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/middleware"
	"pet-vaccine-reminders/internal/platform/cronjobs"
	"pet-vaccine-reminders/internal/platform/logger"
	"pet-vaccine-reminders/internal/platform/worker"
	"pet-vaccine-reminders/internal/ports/auth"
	"pet-vaccine-reminders/internal/router"
)

const resyncTimeout = 10 * time.Minute

// firingTimer es un TimerService al que se le inyecta el callback de disparo.
type firingTimer interface {
	reminders.TimerService
	SetFireFunc(fn reminders.FireFunc)
}

// App arma el grafo de dependencias y controla su ciclo de vida.
type App struct {
	cfg config.Config
	log logger.Logger

	db    *sql.DB
	rdb   *redis.Client
	queue *worker.Queue
	timer firingTimer
	cron  *cronjobs.Runner

	Pets      *pets.Service
	Vaccines  *vaccines.Service
	Reminders *reminders.Service
	Handler   http.Handler
}

func New(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{cfg: cfg, log: log}

	var (
		petRepo      pets.Repository
		vaccineRepo  vaccines.Repository
		settingsRepo reminders.SettingsRepository
		inbox        reminders.Inbox
	)

	if cfg.DB.DSN != "" {
		db, err := pg.Open(cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		petRepo = pg.NewPetsRepo(db)
		vaccineRepo = pg.NewVaccinesRepo(db)
		settingsRepo = pg.NewSettingsRepo(db)
		inbox = pg.NewInboxRepo(db)
		log.Info("record store: postgres", nil)
	} else {
		petRepo = mem.NewPetRepo()
		vaccineRepo = mem.NewVaccineRepo()
		settingsRepo = mem.NewSettingsRepo()
		inbox = mem.NewInboxRepo()
		log.Info("record store: in-memory", nil)
	}

	a.queue = worker.New(worker.Options{
		Workers:     cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}, log)

	switch cfg.Timer.Driver {
	case config.TimerDriverRedis:
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.timer = redisq.New(a.rdb, redisq.Options{
			Prefix:       cfg.Redis.Prefix,
			Exact:        cfg.Timer.Exact,
			PollInterval: cfg.Timer.PollInterval,
		}, a.queue, log)
	default:
		a.timer = local.New(cfg.Timer.Exact, a.queue, log)
	}
	log.Info("timer service ready", map[string]any{"driver": cfg.Timer.Driver, "exact": cfg.Timer.Exact})

	a.Reminders = reminders.NewService(reminders.Deps{
		Vaccines:    vaccineRepo,
		Pets:        petRepo,
		Settings:    settingsRepo,
		Inbox:       inbox,
		Timer:       a.timer,
		Location:    cfg.Reminders.Location,
		Parallelism: cfg.Reminders.Parallelism,
		Log:         log,
	})
	a.Vaccines = vaccines.NewService(vaccineRepo, petRepo, a.Reminders, log)
	a.Pets = pets.NewService(petRepo, a.Vaccines)
	a.timer.SetFireFunc(a.Reminders.OnFire)

	var verifier auth.AuthVerifier
	v, err := identity.NewVerifier(identity.Config{
		BaseURL: cfg.Auth.BaseURL,
		APIKey:  cfg.Auth.APIKey,
		Timeout: cfg.Auth.Timeout,
	})
	switch {
	case err == nil:
		verifier = v
		log.Info("auth: identity provider", map[string]any{"base_url": cfg.Auth.BaseURL})
	case errors.Is(err, identity.ErrNotConfigured):
		log.Warn("auth: dev mode, trusting "+middleware.DebugUserHeader, nil)
	default:
		a.Close()
		return nil, fmt.Errorf("identity verifier: %w", err)
	}

	a.Handler = router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Pets:         a.Pets,
		Vaccines:     a.Vaccines,
		Reminders:    a.Reminders,
		Location:     cfg.Reminders.Location,
		Log:          log,
	})
	return a, nil
}

// Start levanta workers, el poller de Redis y la reconciliación periódica,
// y reconstruye todos los triggers pendientes.
func (a *App) Start(ctx context.Context) error {
	a.queue.Start(ctx)
	if rq, ok := a.timer.(*redisq.Timer); ok {
		rq.Start(ctx)
	}

	out, err := a.Reminders.RescheduleAll(ctx)
	if err != nil {
		return fmt.Errorf("initial reschedule: %w", err)
	}
	a.log.Info("initial reschedule done", map[string]any{
		"scheduled": out.Scheduled,
		"skipped":   out.Skipped,
		"failed":    len(out.Failures),
	})

	if a.cfg.Reminders.ResyncSchedule == "" {
		return nil
	}
	a.cron = cronjobs.New(ctx, a.cfg.Reminders.Location, a.log)
	err = a.cron.Add("reschedule-all", a.cfg.Reminders.ResyncSchedule, resyncTimeout, func(ctx context.Context) error {
		_, err := a.Reminders.RescheduleAll(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("resync schedule: %w", err)
	}
	a.cron.Start()
	a.log.Info("resync scheduled", map[string]any{"next": a.cron.Next()})
	return nil
}

// Close libera recursos en orden inverso al arranque. Se puede llamar más de una vez.
func (a *App) Close() {
	if a.cron != nil {
		a.cron.Stop()
		a.cron = nil
	}
	switch t := a.timer.(type) {
	case *redisq.Timer:
		t.Stop()
	case *local.Timer:
		t.Stop()
	}
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("close redis", map[string]any{"error": err})
		}
		a.rdb = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close postgres", map[string]any{"error": err})
		}
		a.db = nil
	}
}
