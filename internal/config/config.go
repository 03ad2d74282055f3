package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config agrupa toda la configuración del servicio.
type Config struct {
	App       AppConfig
	Log       LogConfig
	DB        DBConfig
	Redis     RedisConfig
	Timer     TimerConfig
	Worker    WorkerConfig
	Reminders RemindersConfig
	Auth      AuthConfig

	// Warnings acumula valores inválidos que se reemplazaron por defaults.
	// Se loguean al arrancar (el logger todavía no existe cuando se carga config).
	Warnings []string
}

type AppConfig struct {
	Env  string
	Port string
}

type LogConfig struct {
	Level  string
	Format string
	App    string
}

type DBConfig struct {
	// DSN vacío => record store in-memory.
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

const (
	TimerDriverLocal = "local"
	TimerDriverRedis = "redis"
)

type TimerConfig struct {
	Driver string
	// Exact=false simula un timer service sin permiso para callbacks precisos.
	Exact        bool
	PollInterval time.Duration
}

type WorkerConfig struct {
	Count       int
	QueueSize   int
	TaskTimeout time.Duration
}

type RemindersConfig struct {
	Location *time.Location
	// ResyncSchedule es una expresión cron; vacío desactiva la reconciliación periódica
	// (RESYNC_SCHEDULE=off).
	ResyncSchedule string
	Parallelism    int
}

type AuthConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Load lee .env (si existe) y luego variables de entorno.
func Load() Config {
	// .env es opcional (en Docker normalmente no existe)
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv arma la config solo desde el entorno actual.
func FromEnv() Config {
	var warns []string
	warn := func(msg string) { warns = append(warns, msg) }

	cfg := Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("PORT", "8080"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			App:    getEnv("APP_NAME", "pet-vaccine-reminders"),
		},
		DB: DBConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0, warn),
			Prefix:   getEnv("REDIS_PREFIX", "reminders:"),
		},
		Timer: TimerConfig{
			Driver:       strings.ToLower(getEnv("TIMER_DRIVER", TimerDriverLocal)),
			Exact:        getBool("TIMER_EXACT", true, warn),
			PollInterval: getDuration("TIMER_POLL_INTERVAL", time.Second, warn),
		},
		Worker: WorkerConfig{
			Count:       getInt("WORKER_COUNT", 4, warn),
			QueueSize:   getInt("WORKER_QUEUE_SIZE", 256, warn),
			TaskTimeout: getDuration("WORKER_TASK_TIMEOUT", 30*time.Second, warn),
		},
		Reminders: RemindersConfig{
			Location:       time.Local,
			ResyncSchedule: getEnv("RESYNC_SCHEDULE", "0 3 * * *"),
			Parallelism:    getInt("RESCHEDULE_PARALLELISM", 4, warn),
		},
		Auth: AuthConfig{
			BaseURL: getEnv("AUTH_BASE_URL", ""),
			APIKey:  getEnv("AUTH_API_KEY", ""),
			Timeout: getDuration("AUTH_TIMEOUT", 5*time.Second, warn),
		},
	}

	if tz := getEnv("REMINDER_TZ", ""); tz != "" && !strings.EqualFold(tz, "local") {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			warn("REMINDER_TZ: unknown location " + tz + ", using Local")
		} else {
			cfg.Reminders.Location = loc
		}
	}

	if strings.EqualFold(cfg.Reminders.ResyncSchedule, "off") {
		cfg.Reminders.ResyncSchedule = ""
	}

	switch cfg.Timer.Driver {
	case TimerDriverLocal, TimerDriverRedis:
	default:
		warn("TIMER_DRIVER: unknown driver " + cfg.Timer.Driver + ", using local")
		cfg.Timer.Driver = TimerDriverLocal
	}

	if cfg.Worker.Count <= 0 {
		warn("WORKER_COUNT must be positive, using 4")
		cfg.Worker.Count = 4
	}
	if cfg.Worker.QueueSize <= 0 {
		warn("WORKER_QUEUE_SIZE must be positive, using 256")
		cfg.Worker.QueueSize = 256
	}
	if cfg.Reminders.Parallelism <= 0 {
		warn("RESCHEDULE_PARALLELISM must be positive, using 4")
		cfg.Reminders.Parallelism = 4
	}
	if cfg.Timer.PollInterval <= 0 {
		warn("TIMER_POLL_INTERVAL must be positive, using 1s")
		cfg.Timer.PollInterval = time.Second
	}

	cfg.Warnings = warns
	return cfg
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, warn func(string)) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		warn(key + ": invalid integer " + raw)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, warn func(string)) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		warn(key + ": invalid boolean " + raw)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, warn func(string)) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		warn(key + ": invalid duration " + raw)
		return fallback
	}
	return d
}
