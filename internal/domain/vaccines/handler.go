package vaccines

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta el editor de vacunas. loc es la zona en la que se
// interpretan las fechas YYYY-MM-DD.
func RegisterRoutes(r chi.Router, svc *Service, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	h := &handlers{svc: svc, loc: loc}

	r.Post("/pets/{petID}/vaccines", h.create)
	r.Get("/pets/{petID}/vaccines", h.list)
	r.Get("/pets/{petID}/vaccines/history", h.history)
	r.Post("/pets/{petID}/vaccines/recommended", h.addRecommended)

	r.Get("/vaccines/upcoming", h.upcoming)
	r.Get("/vaccines/history", h.ownerHistory)
	r.Get("/vaccines/{vaccineID}", h.get)
	r.Patch("/vaccines/{vaccineID}", h.update)
	r.Delete("/vaccines/{vaccineID}", h.remove)
}

type handlers struct {
	svc *Service
	loc *time.Location
}

// createVaccineRequest es el cuerpo para registrar una vacuna.
// Fechas: YYYY-MM-DD (zona configurada) o RFC3339.
type createVaccineRequest struct {
	Name             string `json:"name"`
	Notes            string `json:"notes"`
	AdministeredDate string `json:"administered_date"`
	NextDueDate      string `json:"next_due_date"` // si falta y es recurrente, se calcula
	IsRecurring      bool   `json:"is_recurring"`
	RecurrenceMonths int    `json:"recurrence_months"`
}

type updateVaccineRequest struct {
	// nil = no tocar. Las fechas se resuelven aparte (null = limpiar).
	Name             *string `json:"name"`
	Notes            *string `json:"notes"`
	IsRecurring      *bool   `json:"is_recurring"`
	RecurrenceMonths *int    `json:"recurrence_months"`
}

// vaccineResponse representa una vacuna devuelta por la API.
type vaccineResponse struct {
	ID               int64      `json:"id"`
	PetID            int64      `json:"pet_id"`
	Name             string     `json:"name"`
	Notes            string     `json:"notes"`
	AdministeredDate *time.Time `json:"administered_date"`
	NextDueDate      *time.Time `json:"next_due_date"`
	IsRecurring      bool       `json:"is_recurring"`
	RecurrenceMonths int        `json:"recurrence_months"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// create godoc
// @Summary Registrar vacuna
// @Description Crea una vacuna para la mascota y programa sus recordatorios. Si es recurrente, tiene fecha de aplicación y no se envía next_due_date, el vencimiento se calcula sumando recurrence_months.
// @Tags vaccines
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path int true "ID de la mascota"
// @Param payload body createVaccineRequest true "Datos de la vacuna"
// @Success 201 {object} vaccineResponse
// @Failure 400 {string} string "invalid json / fecha inválida / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/vaccines [post]
func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	petID, ok := h.authorizePet(w, r)
	if !ok {
		return
	}

	var req createVaccineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	administered, err := h.parseDate(req.AdministeredDate)
	if err != nil {
		http.Error(w, "administered_date must be YYYY-MM-DD or RFC3339", http.StatusBadRequest)
		return
	}
	due, err := h.parseDate(req.NextDueDate)
	if err != nil {
		http.Error(w, "next_due_date must be YYYY-MM-DD or RFC3339", http.StatusBadRequest)
		return
	}

	v, err := h.svc.Create(r.Context(), petID, CreateInput{
		Name:             req.Name,
		Notes:            req.Notes,
		AdministeredDate: administered,
		NextDueDate:      due,
		IsRecurring:      req.IsRecurring,
		RecurrenceMonths: req.RecurrenceMonths,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toVaccineResponse(v))
}

// list godoc
// @Summary Listar vacunas de una mascota
// @Tags vaccines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path int true "ID de la mascota"
// @Success 200 {array} vaccineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/vaccines [get]
func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	petID, ok := h.authorizePet(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListByPet(r.Context(), petID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toVaccineResponses(items))
}

// history godoc
// @Summary Historial de vacunas aplicadas
// @Description Vacunas con fecha de aplicación, la más reciente primero.
// @Tags vaccines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path int true "ID de la mascota"
// @Success 200 {array} vaccineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/vaccines/history [get]
func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	petID, ok := h.authorizePet(w, r)
	if !ok {
		return
	}
	items, err := h.svc.History(r.Context(), petID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toVaccineResponses(items))
}

// addRecommended godoc
// @Summary Agregar vacunas recomendadas
// @Description Agrega las vacunas core para la especie de la mascota. Las que ya existen con el mismo nombre no se duplican.
// @Tags vaccines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path int true "ID de la mascota"
// @Success 201 {array} vaccineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/vaccines/recommended [post]
func (h *handlers) addRecommended(w http.ResponseWriter, r *http.Request) {
	petID, ok := h.authorizePet(w, r)
	if !ok {
		return
	}
	items, err := h.svc.AddRecommended(r.Context(), petID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVaccineResponses(items))
}

// petVaccineResponse es una vacuna con el nombre de su mascota (vistas de todas las mascotas).
type petVaccineResponse struct {
	vaccineResponse
	PetName string `json:"pet_name"`
}

// upcoming godoc
// @Summary Próximas vacunas
// @Description Vacunas con vencimiento futuro de todas las mascotas del usuario, la más próxima primero.
// @Tags vaccines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} petVaccineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/upcoming [get]
func (h *handlers) upcoming(w http.ResponseWriter, r *http.Request) {
	h.ownerList(w, r, h.svc.Upcoming)
}

// ownerHistory godoc
// @Summary Historial de vacunas de todas las mascotas
// @Description Vacunas aplicadas de todas las mascotas del usuario, la más reciente primero.
// @Tags vaccines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} petVaccineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/history [get]
func (h *handlers) ownerHistory(w http.ResponseWriter, r *http.Request) {
	h.ownerList(w, r, h.svc.OwnerHistory)
}

func (h *handlers) ownerList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, ownerUserID string) ([]PetVaccine, error)) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	items, err := list(r.Context(), uid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]petVaccineResponse, 0, len(items))
	for _, it := range items {
		out = append(out, petVaccineResponse{vaccineResponse: toVaccineResponse(it.Vaccine), PetName: it.PetName})
	}
	writeJSON(w, http.StatusOK, out)
}

// get godoc
// @Summary Ver vacuna
// @Tags vaccines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Success 200 {object} vaccineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Router /vaccines/{vaccineID} [get]
func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadOwnedVaccine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toVaccineResponse(v))
}

// update godoc
// @Summary Editar vacuna
// @Description PATCH parcial; `administered_date: null` o `next_due_date: null` limpian la fecha. Reprograma los recordatorios de la vacuna.
// @Tags vaccines
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Param payload body updateVaccineRequest true "Campos a modificar"
// @Success 200 {object} vaccineResponse
// @Failure 400 {string} string "invalid json / fecha inválida / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Router /vaccines/{vaccineID} [patch]
func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	current, ok := h.loadOwnedVaccine(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var req updateVaccineRequest
	{
		b, _ := json.Marshal(raw)
		if err := json.Unmarshal(b, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	administered, err := h.optionalDate(raw, "administered_date")
	if err != nil {
		http.Error(w, "administered_date must be YYYY-MM-DD, RFC3339 or null", http.StatusBadRequest)
		return
	}
	due, err := h.optionalDate(raw, "next_due_date")
	if err != nil {
		http.Error(w, "next_due_date must be YYYY-MM-DD, RFC3339 or null", http.StatusBadRequest)
		return
	}

	updated, err := h.svc.Update(r.Context(), current.ID, UpdateInput{
		Name:             req.Name,
		Notes:            req.Notes,
		AdministeredDate: administered,
		NextDueDate:      due,
		IsRecurring:      req.IsRecurring,
		RecurrenceMonths: req.RecurrenceMonths,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVaccineResponse(updated))
}

// remove godoc
// @Summary Borrar vacuna
// @Description Cancela los recordatorios pendientes de la vacuna y la borra.
// @Tags vaccines
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/{vaccineID} [delete]
func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadOwnedVaccine(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), v.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizePet resuelve {petID} y exige que el usuario sea el dueño.
func (h *handlers) authorizePet(w http.ResponseWriter, r *http.Request) (int64, bool) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}

	petID, err := strconv.ParseInt(chi.URLParam(r, "petID"), 10, 64)
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return 0, false
	}

	owner, err := h.svc.OwnerOfPet(r.Context(), petID)
	if err != nil {
		writeServiceError(w, err)
		return 0, false
	}
	if owner != uid {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return petID, true
}

func (h *handlers) loadOwnedVaccine(w http.ResponseWriter, r *http.Request) (Vaccine, bool) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Vaccine{}, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "vaccineID"), 10, 64)
	if err != nil {
		http.Error(w, "vaccine not found", http.StatusNotFound)
		return Vaccine{}, false
	}

	v, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return Vaccine{}, false
	}
	owner, err := h.svc.OwnerOfPet(r.Context(), v.PetID)
	if err != nil {
		writeServiceError(w, err)
		return Vaccine{}, false
	}
	if owner != uid {
		http.Error(w, "forbidden", http.StatusForbidden)
		return Vaccine{}, false
	}
	return v, true
}

func (h *handlers) parseDate(s string) (*time.Time, error) {
	t, err := ParseDate(s, h.loc)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func (h *handlers) optionalDate(raw map[string]json.RawMessage, key string) (OptionalDate, error) {
	v, exists := raw[key]
	if !exists {
		return OptionalDate{}, nil
	}
	if string(v) == "null" {
		return OptionalDate{Present: true}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return OptionalDate{}, err
	}
	t, err := h.parseDate(s)
	if err != nil {
		return OptionalDate{}, err
	}
	return OptionalDate{Present: true, Value: t}, nil
}

// ParseDate acepta YYYY-MM-DD (medianoche en loc) o RFC3339. "" devuelve el tiempo cero.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "vaccine not found", http.StatusNotFound)
	case errors.Is(err, pets.ErrNotFound):
		http.Error(w, "pet not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toVaccineResponse(v Vaccine) vaccineResponse {
	return vaccineResponse{
		ID:               v.ID,
		PetID:            v.PetID,
		Name:             v.Name,
		Notes:            v.Notes,
		AdministeredDate: v.AdministeredDate,
		NextDueDate:      v.NextDueDate,
		IsRecurring:      v.IsRecurring,
		RecurrenceMonths: v.RecurrenceMonths,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func toVaccineResponses(items []Vaccine) []vaccineResponse {
	out := make([]vaccineResponse, 0, len(items))
	for _, v := range items {
		out = append(out, toVaccineResponse(v))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
