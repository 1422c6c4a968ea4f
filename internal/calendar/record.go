package calendar

import (
	"sort"
	"time"
)

const (
	SourceAppointment = "appointment"
	SourceLead        = "lead"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
	StatusArchived  = "archived"
)

// Durations applied when end_time is absent.
const (
	DefaultAppointmentMinutes = 60
	DefaultLeadMinutes        = 30
)

// Record is the unioned shape consumed by the calendar and the dashboard.
// It is built per request from the two tables and never persisted.
type Record struct {
	ID           string    `json:"id"`
	ClinicID     int64     `json:"clinic_id"`
	PatientName  string    `json:"patient_name"`
	PatientPhone string    `json:"patient_phone"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	Notes        *string   `json:"notes"`
	Doctor       *string   `json:"doctor"`
	Type         *string   `json:"type"`
	Insurance    *string   `json:"insurance"`
	Value        float64   `json:"value"`
}

// leadStatusMap translates legacy lead statuses onto the appointment set.
var leadStatusMap = map[string]string{
	"novo":       StatusScheduled,
	"agendado":   StatusConfirmed,
	"finalizado": StatusCompleted,
	"archived":   StatusArchived,
}

// MapLeadStatus returns the normalized status for a legacy lead status.
// Unknown values pass through as scheduled.
func MapLeadStatus(s string) string {
	if m, ok := leadStatusMap[s]; ok {
		return m
	}
	return StatusScheduled
}

// ValidStatus reports whether s is one of the normalized statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow, StatusArchived:
		return true
	}
	return false
}

// Merge concatenates both sides and orders by start time. The sort is
// stable, so on equal start times appointments keep their place ahead of
// leads (the appointment set is always passed first).
func Merge(appointments, leads []Record) []Record {
	out := make([]Record, 0, len(appointments)+len(leads))
	out = append(out, appointments...)
	out = append(out, leads...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
