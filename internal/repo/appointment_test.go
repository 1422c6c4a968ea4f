package repo

import (
	"strings"
	"testing"
	"time"
)

func TestAppointmentPatchEmpty(t *testing.T) {
	if !(AppointmentPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	s := "confirmed"
	if (AppointmentPatch{Status: &s}).Empty() {
		t.Error("patch with status should not be empty")
	}
}

func TestSetClausesAllowList(t *testing.T) {
	status := "confirmed"
	notes := "retorno"
	v := 150.0
	p := AppointmentPatch{Status: &status, Notes: &notes, Value: &v}
	set, args := p.setClauses()

	if len(args) != 3 {
		t.Fatalf("args = %v, want 3", args)
	}
	for _, col := range []string{"status = $1", "notes = $2", "value = $3", "updated_at = now()"} {
		if !strings.Contains(set, col) {
			t.Errorf("set %q missing %q", set, col)
		}
	}
	// Untouched columns never appear.
	for _, col := range []string{"patient_name", "doctor", "insurance"} {
		if strings.Contains(set, col) {
			t.Errorf("set %q contains unexpected column %s", set, col)
		}
	}
}

func TestSetClausesAppointmentDateSyncsStart(t *testing.T) {
	d := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	p := AppointmentPatch{AppointmentDate: &d}
	set, args := p.setClauses()
	if !strings.Contains(set, "appointment_date = $1") || !strings.Contains(set, "start_time = $2") {
		t.Errorf("set = %q, want appointment_date and start_time both updated", set)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want date twice", args)
	}
}

func TestSetClausesNeverInterpolatesValues(t *testing.T) {
	// A hostile value must end up as a parameter, never inside the SQL text.
	evil := "'; DROP TABLE appointments; --"
	p := AppointmentPatch{Notes: &evil}
	set, args := p.setClauses()
	if strings.Contains(set, "DROP TABLE") {
		t.Fatalf("payload leaked into SQL: %q", set)
	}
	if len(args) != 1 || args[0] != evil {
		t.Fatalf("args = %v, want the raw value as parameter", args)
	}
}
