package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pet-vaccine-reminders/internal/domain/pets"
	"pet-vaccine-reminders/internal/domain/schedule"
	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// VaccineOwners resuelve el dueño de una vacuna (lo implementa vaccines.Service).
type VaccineOwners interface {
	OwnerOfVaccine(ctx context.Context, vaccineID int64) (string, error)
}

func RegisterRoutes(r chi.Router, svc *Service, owners VaccineOwners) {
	h := &handlers{svc: svc, owners: owners}

	r.Post("/vaccines/{vaccineID}/reminders", h.schedule)
	r.Delete("/vaccines/{vaccineID}/reminders", h.cancel)
	r.Post("/vaccines/{vaccineID}/mark-done", h.markDone)
	r.Post("/vaccines/{vaccineID}/postpone", h.postpone)

	r.Post("/reminders/reschedule", h.rescheduleAll)
	r.Get("/reminders/inbox", h.inbox)

	r.Get("/settings/reminders", h.getSettings)
	r.Put("/settings/reminders", h.putSettings)
}

type handlers struct {
	svc    *Service
	owners VaccineOwners
}

type triggerResponse struct {
	At         time.Time `json:"at"`
	OffsetDays int       `json:"offset_days"`
	TriggerID  int64     `json:"trigger_id"`
}

// outcomeResponse es el resultado de programar una vacuna.
type outcomeResponse struct {
	VaccineID        int64             `json:"vaccine_id"`
	Status           Status            `json:"status" enums:"scheduled,skipped"`
	Reason           Reason            `json:"reason,omitempty" enums:"no_due_date,permission_denied"`
	NotifyPermission bool              `json:"notify_permission"`
	Triggers         []triggerResponse `json:"triggers"`
}

// actionResponse es la confirmación de mark-done / postpone.
type actionResponse struct {
	Action           Action           `json:"action" enums:"mark_done,postpone"`
	VaccineID        int64            `json:"vaccine_id"`
	AdministeredDate *time.Time       `json:"administered_date"`
	NextDueDate      *time.Time       `json:"next_due_date"`
	AlreadyApplied   bool             `json:"already_applied"`
	Message          string           `json:"message"`
	Outcome          *outcomeResponse `json:"outcome,omitempty"`
}

// settingsRequest / settingsResponse: preferencias globales de recordatorio.
type settingsRequest struct {
	Offsets            []int `json:"offsets"`
	NotificationHour   int   `json:"notification_hour"`
	NotificationMinute int   `json:"notification_minute"`
}

type settingsResponse struct {
	Offsets            []int      `json:"offsets"`
	NotificationHour   int        `json:"notification_hour"`
	NotificationMinute int        `json:"notification_minute"`
	Catalog            []int      `json:"catalog"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

type updateSettingsResponse struct {
	Settings   settingsResponse `json:"settings"`
	Reschedule BatchOutcome     `json:"reschedule"`
}

// schedule godoc
// @Summary Programar recordatorios de una vacuna
// @Description Cancela y vuelve a registrar los triggers de la vacuna con los settings actuales. Si el timer no tiene permiso para callbacks precisos, devuelve status=skipped reason=permission_denied (notify_permission=true solo la primera vez).
// @Tags reminders
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Success 200 {object} outcomeResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/{vaccineID}/reminders [post]
func (h *handlers) schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeVaccine(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ScheduleVaccine(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}

// cancel godoc
// @Summary Cancelar recordatorios de una vacuna
// @Tags reminders
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/{vaccineID}/reminders [delete]
func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeVaccine(w, r)
	if !ok {
		return
	}
	if err := h.svc.CancelForVaccine(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// markDone godoc
// @Summary Marcar vacuna como aplicada
// @Description Registra la aplicación ahora. Si es recurrente calcula el próximo vencimiento y programa el ciclo nuevo; si no, deja la vacuna sin vencimiento. Repetir el mismo día no cambia el registro (already_applied=true).
// @Tags reminders
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Param offset query int false "Offset (días) del recordatorio que originó la acción"
// @Success 200 {object} actionResponse
// @Failure 400 {string} string "offset inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/{vaccineID}/mark-done [post]
func (h *handlers) markDone(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.svc.OnMarkDone)
}

// postpone godoc
// @Summary Posponer vacuna una semana
// @Description Corre el vencimiento 7 días y re-programa los recordatorios. Sin vencimiento devuelve 409.
// @Tags reminders
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vaccineID path int true "ID de la vacuna"
// @Param offset query int false "Offset (días) del recordatorio que originó la acción"
// @Success 200 {object} actionResponse
// @Failure 400 {string} string "offset inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "vaccine not found"
// @Failure 409 {string} string "vaccine has no due date to postpone"
// @Failure 500 {string} string "internal error"
// @Router /vaccines/{vaccineID}/postpone [post]
func (h *handlers) postpone(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.svc.OnPostpone)
}

func (h *handlers) action(w http.ResponseWriter, r *http.Request, do func(ctx context.Context, vaccineID int64, firedOffset int) (ActionResult, error)) {
	id, ok := h.authorizeVaccine(w, r)
	if !ok {
		return
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !schedule.ValidOffset(n) {
			http.Error(w, "offset must be an integer between 0 and 999", http.StatusBadRequest)
			return
		}
		offset = n
	}

	res, err := do(r.Context(), id, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := actionResponse{
		Action:           res.Action,
		VaccineID:        res.Vaccine.ID,
		AdministeredDate: res.Vaccine.AdministeredDate,
		NextDueDate:      res.Vaccine.NextDueDate,
		AlreadyApplied:   res.AlreadyApplied,
		Message:          res.Message,
	}
	if res.Outcome != nil {
		o := toOutcomeResponse(*res.Outcome)
		out.Outcome = &o
	}
	writeJSON(w, http.StatusOK, out)
}

// rescheduleAll godoc
// @Summary Re-programar todas las vacunas
// @Description Cancela y vuelve a registrar los triggers de todas las vacunas con vencimiento futuro. Los fallos por vacuna se informan en el resumen y no abortan el resto.
// @Tags reminders
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} BatchOutcome
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /reminders/reschedule [post]
func (h *handlers) rescheduleAll(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r.Context()) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	out, err := h.svc.RescheduleAll(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// inbox godoc
// @Summary Recordatorios disparados
// @Description Recordatorios que ya dispararon para las mascotas del usuario, el más reciente primero.
// @Tags reminders
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} FiredReminder
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /reminders/inbox [get]
func (h *handlers) inbox(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	items, err := h.svc.Inbox(r.Context(), uid)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// getSettings godoc
// @Summary Ver preferencias de recordatorio
// @Tags settings
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} settingsResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /settings/reminders [get]
func (h *handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r.Context()) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.svc.Settings(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(st))
}

// putSettings godoc
// @Summary Actualizar preferencias de recordatorio
// @Description Guarda offsets (subconjunto de 0,1,3,7,14) y hora del día, y re-programa todas las vacunas con vencimiento futuro.
// @Tags settings
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body settingsRequest true "Preferencias"
// @Success 200 {object} updateSettingsResponse
// @Failure 400 {string} string "invalid json / invalid reminder settings"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /settings/reminders [put]
func (h *handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r.Context()) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Offsets == nil {
		req.Offsets = []int{}
	}

	st, batch, err := h.svc.UpdateSettings(r.Context(), Settings{
		Offsets:            req.Offsets,
		NotificationHour:   req.NotificationHour,
		NotificationMinute: req.NotificationMinute,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updateSettingsResponse{
		Settings:   toSettingsResponse(st),
		Reschedule: batch,
	})
}

func (h *handlers) authorizeVaccine(w http.ResponseWriter, r *http.Request) (int64, bool) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "vaccineID"), 10, 64)
	if err != nil {
		http.Error(w, "vaccine not found", http.StatusNotFound)
		return 0, false
	}

	owner, err := h.owners.OwnerOfVaccine(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return 0, false
	}
	if owner != uid {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vaccines.ErrNotFound):
		http.Error(w, "vaccine not found", http.StatusNotFound)
	case errors.Is(err, pets.ErrNotFound):
		http.Error(w, "pet not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, ErrInvalidState.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toOutcomeResponse(o Outcome) outcomeResponse {
	out := outcomeResponse{
		VaccineID:        o.VaccineID,
		Status:           o.Status,
		Reason:           o.Reason,
		NotifyPermission: o.NotifyPermission,
		Triggers:         make([]triggerResponse, 0, len(o.Triggers)),
	}
	for _, t := range o.Triggers {
		out.Triggers = append(out.Triggers, triggerResponse{
			At:         t.At,
			OffsetDays: t.OffsetDays,
			TriggerID:  schedule.TriggerID(o.VaccineID, t.OffsetDays),
		})
	}
	return out
}

func toSettingsResponse(st Settings) settingsResponse {
	out := settingsResponse{
		Offsets:            st.Offsets,
		NotificationHour:   st.NotificationHour,
		NotificationMinute: st.NotificationMinute,
		Catalog:            schedule.Catalog,
	}
	if !st.UpdatedAt.IsZero() {
		u := st.UpdatedAt
		out.UpdatedAt = &u
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
