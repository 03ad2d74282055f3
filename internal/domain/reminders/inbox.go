package reminders

import (
	"context"
	"fmt"
	"time"
)

// FiredReminder es lo que el usuario ve cuando dispara un trigger.
// Se indexa por TriggerID: una entrega duplicada reemplaza, no duplica.
type FiredReminder struct {
	ID          string    `json:"id"`
	TriggerID   int64     `json:"trigger_id"`
	VaccineID   int64     `json:"vaccine_id"`
	PetID       int64     `json:"pet_id"`
	OwnerUserID string    `json:"owner_user_id"`
	PetName     string    `json:"pet_name"`
	VaccineName string    `json:"vaccine_name"`
	OffsetDays  int       `json:"offset_days"`
	DueDate     time.Time `json:"due_date"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	FiredAt     time.Time `json:"fired_at"`
}

type Inbox interface {
	Put(ctx context.Context, r FiredReminder) error
	// ListByOwner devuelve los recordatorios del usuario, el más reciente primero.
	ListByOwner(ctx context.Context, ownerUserID string) ([]FiredReminder, error)
	DismissVaccine(ctx context.Context, vaccineID int64) error
}

func ReminderTitle(daysRemaining int) string {
	switch daysRemaining {
	case 0:
		return "Vaccine due today"
	case 1:
		return "Vaccine due tomorrow"
	default:
		return "Vaccine due soon"
	}
}

func ReminderText(petName, vaccineName string, daysRemaining int) string {
	switch daysRemaining {
	case 0:
		return fmt.Sprintf("%s's %s vaccine is due today", petName, vaccineName)
	case 1:
		return fmt.Sprintf("%s's %s vaccine is due tomorrow", petName, vaccineName)
	default:
		return fmt.Sprintf("%s's %s vaccine is due in %d days", petName, vaccineName, daysRemaining)
	}
}
