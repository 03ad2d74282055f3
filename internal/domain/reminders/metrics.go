package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_triggers_registered_total",
			Help: "Total number of triggers registered with the timer service",
		},
	)

	triggersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_triggers_cancelled_total",
			Help: "Total number of trigger cancellations issued",
		},
	)

	scheduleOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_schedule_outcomes_total",
			Help: "Schedule calls by status and reason",
		},
		[]string{"status", "reason"},
	)

	remindersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_fired_total",
			Help: "Fired triggers by result",
		},
		[]string{"result"},
	)

	actionsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_actions_total",
			Help: "Mark-done / postpone actions by result",
		},
		[]string{"action", "result"},
	)

	batchItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_reschedule_items_total",
			Help: "Items processed by reschedule-all batches, by result",
		},
		[]string{"result"},
	)
)
