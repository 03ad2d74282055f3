package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pet-vaccine-reminders/internal/domain/schedule"
	"pet-vaccine-reminders/internal/domain/vaccines"
	"pet-vaccine-reminders/internal/platform/logger"
)

var (
	// ErrNotFound: la vacuna se borró entre el schedule y el disparo. También matchea vaccines.ErrNotFound.
	ErrNotFound = fmt.Errorf("reminders: %w", vaccines.ErrNotFound)
	// ErrInvalidState: postpone sin vencimiento.
	ErrInvalidState = errors.New("vaccine has no due date to postpone")
)

// PostponeDays es lo que corre el vencimiento un Postpone.
const PostponeDays = 7

type Action string

const (
	ActionMarkDone Action = "mark_done"
	ActionPostpone Action = "postpone"
)

// VaccineStore es el acceso read-modify-write por fila que necesitan las acciones.
type VaccineStore interface {
	GetByID(ctx context.Context, id int64) (vaccines.Vaccine, error)
	Update(ctx context.Context, v vaccines.Vaccine) error
}

// ActionResult sirve para el mensaje de confirmación al usuario.
type ActionResult struct {
	Action         Action
	Vaccine        vaccines.Vaccine
	FiredOffset    int
	Outcome        *Outcome
	AlreadyApplied bool
	Message        string
}

// ActionHandler aplica mark-done / postpone sobre un registro y re-programa.
type ActionHandler struct {
	store    VaccineStore
	sched    *Scheduler
	settings SettingsRepository
	inbox    Inbox
	loc      *time.Location
	log      logger.Logger
	now      func() time.Time
}

func NewActionHandler(store VaccineStore, sched *Scheduler, settings SettingsRepository, inbox Inbox, loc *time.Location, log logger.Logger) *ActionHandler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ActionHandler{
		store:    store,
		sched:    sched,
		settings: settings,
		inbox:    inbox,
		loc:      loc,
		log:      log.With(map[string]any{"component": "actions"}),
		now:      time.Now,
	}
}

// MarkDone registra la aplicación de la vacuna ahora y, si es recurrente, programa el próximo ciclo.
//
// Una segunda entrega del mismo MarkDone en el mismo día no cambia el registro
// (AlreadyApplied); si hay ciclo siguiente se vuelve a registrar.
func (h *ActionHandler) MarkDone(ctx context.Context, vaccineID int64, firedOffset int) (ActionResult, error) {
	now := h.now().In(h.loc)
	res := ActionResult{Action: ActionMarkDone, FiredOffset: firedOffset}

	// los demás offsets del ciclo ya no sirven
	if err := h.sched.Cancel(ctx, vaccineID); err != nil {
		h.log.Warn("cancel before mark done failed", map[string]any{"vaccine_id": vaccineID, "error": err})
	}

	v, err := h.load(ctx, vaccineID)
	if err != nil {
		h.count(res.Action, err)
		return res, err
	}

	st, err := LoadSettings(ctx, h.settings)
	if err != nil {
		h.count(res.Action, err)
		return res, err
	}

	if h.alreadyDone(v, now) {
		res.Vaccine = v
		res.AlreadyApplied = true
		res.Outcome = h.scheduleQuietly(ctx, v, st, now)
		res.Message = fmt.Sprintf("%s was already marked as done today", v.Name)
		h.dismiss(ctx, vaccineID)
		actionsHandled.WithLabelValues(string(res.Action), "already_applied").Inc()
		return res, nil
	}

	administered := now
	v.AdministeredDate = &administered
	v.NextDueDate = nil
	if v.Recurs() {
		due, err := schedule.NextDue(now, v.RecurrenceMonths)
		if err != nil {
			h.count(res.Action, err)
			return res, fmt.Errorf("compute next due of vaccine %d: %w", vaccineID, err)
		}
		v.NextDueDate = &due
	}
	v.UpdatedAt = now

	if err := h.store.Update(ctx, v); err != nil {
		h.count(res.Action, err)
		return res, fmt.Errorf("persist vaccine %d: %w", vaccineID, err)
	}

	res.Vaccine = v
	if v.NextDueDate != nil {
		res.Outcome = h.scheduleQuietly(ctx, v, st, now)
		res.Message = fmt.Sprintf("%s marked as done. Next dose due on %s", v.Name, v.NextDueDate.Format("2006-01-02"))
	} else {
		res.Message = fmt.Sprintf("%s marked as done", v.Name)
	}

	h.dismiss(ctx, vaccineID)
	h.count(res.Action, nil)
	h.log.Info("vaccine marked as done", map[string]any{
		"vaccine_id":   vaccineID,
		"fired_offset": firedOffset,
		"recurring":    v.Recurs(),
	})
	return res, nil
}

// Postpone corre el vencimiento PostponeDays días y re-programa los triggers.
// Sin vencimiento devuelve ErrInvalidState y el registro no se toca.
func (h *ActionHandler) Postpone(ctx context.Context, vaccineID int64, firedOffset int) (ActionResult, error) {
	now := h.now().In(h.loc)
	res := ActionResult{Action: ActionPostpone, FiredOffset: firedOffset}

	v, err := h.load(ctx, vaccineID)
	if err != nil {
		h.count(res.Action, err)
		return res, err
	}
	if v.NextDueDate == nil {
		h.count(res.Action, ErrInvalidState)
		return res, fmt.Errorf("vaccine %d: %w", vaccineID, ErrInvalidState)
	}

	st, err := LoadSettings(ctx, h.settings)
	if err != nil {
		h.count(res.Action, err)
		return res, err
	}

	due := v.NextDueDate.AddDate(0, 0, PostponeDays)
	v.NextDueDate = &due
	v.UpdatedAt = now

	if err := h.sched.Cancel(ctx, vaccineID); err != nil {
		h.count(res.Action, err)
		return res, err
	}
	out, err := h.sched.Schedule(ctx, v, st, now)
	if err != nil {
		h.count(res.Action, err)
		return res, err
	}
	if err := h.store.Update(ctx, v); err != nil {
		h.count(res.Action, err)
		return res, fmt.Errorf("persist vaccine %d: %w", vaccineID, err)
	}

	res.Vaccine = v
	res.Outcome = &out
	res.Message = fmt.Sprintf("%s postponed to %s", v.Name, due.In(h.loc).Format("2006-01-02"))

	h.dismiss(ctx, vaccineID)
	h.count(res.Action, nil)
	h.log.Info("vaccine postponed", map[string]any{
		"vaccine_id":   vaccineID,
		"fired_offset": firedOffset,
		"due":          due.Format(time.RFC3339),
	})
	return res, nil
}

func (h *ActionHandler) load(ctx context.Context, vaccineID int64) (vaccines.Vaccine, error) {
	v, err := h.store.GetByID(ctx, vaccineID)
	if errors.Is(err, vaccines.ErrNotFound) {
		return vaccines.Vaccine{}, fmt.Errorf("%w: vaccine %d", ErrNotFound, vaccineID)
	}
	if err != nil {
		return vaccines.Vaccine{}, fmt.Errorf("load vaccine %d: %w", vaccineID, err)
	}
	return v, nil
}

// alreadyDone: aplicada hoy y con el vencimiento que MarkDone habría dejado.
func (h *ActionHandler) alreadyDone(v vaccines.Vaccine, now time.Time) bool {
	if v.AdministeredDate == nil || !sameDay(*v.AdministeredDate, now, h.loc) {
		return false
	}
	if !v.Recurs() {
		return v.NextDueDate == nil
	}
	want, err := schedule.NextDue(v.AdministeredDate.In(h.loc), v.RecurrenceMonths)
	if err != nil || v.NextDueDate == nil {
		return false
	}
	return sameDay(*v.NextDueDate, want, h.loc)
}

// scheduleQuietly programa el ciclo nuevo; si falla, el registro ya está guardado
// y la reconciliación lo reintenta.
func (h *ActionHandler) scheduleQuietly(ctx context.Context, v vaccines.Vaccine, st Settings, now time.Time) *Outcome {
	if v.NextDueDate == nil {
		return nil
	}
	out, err := h.sched.Schedule(ctx, v, st, now)
	if err != nil {
		h.log.Warn("schedule after mark done failed", map[string]any{"vaccine_id": v.ID, "error": err})
		return nil
	}
	return &out
}

func (h *ActionHandler) dismiss(ctx context.Context, vaccineID int64) {
	if h.inbox == nil {
		return
	}
	if err := h.inbox.DismissVaccine(ctx, vaccineID); err != nil {
		h.log.Warn("dismiss fired reminders failed", map[string]any{"vaccine_id": vaccineID, "error": err})
	}
}

func (h *ActionHandler) count(a Action, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrInvalidState):
		result = "invalid_state"
	default:
		result = "error"
	}
	actionsHandled.WithLabelValues(string(a), result).Inc()
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
