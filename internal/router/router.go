package router

import (
	"net/http"
	"time"

	_ "pet-vaccine-reminders/docs"
	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/reminders"
	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/middleware"
	"pet-vaccine-reminders/internal/platform/logger"
	"pet-vaccine-reminders/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	Pets      *pets.Service
	Vaccines  *vaccines.Service
	Reminders *reminders.Service

	// Zona en la que se interpretan fechas YYYY-MM-DD.
	Location *time.Location
	Log      logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier, opts.Log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	pets.RegisterRoutes(r, opts.Pets)
	vaccines.RegisterRoutes(r, opts.Vaccines, opts.Location)
	reminders.RegisterRoutes(r, opts.Reminders, opts.Vaccines)

	return r
}
