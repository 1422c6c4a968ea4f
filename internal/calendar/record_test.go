package calendar

import (
	"testing"
	"time"
)

func TestMapLeadStatus(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"novo", StatusScheduled},
		{"agendado", StatusConfirmed},
		{"finalizado", StatusCompleted},
		{"archived", StatusArchived},
		{"whatever", StatusScheduled},
		{"", StatusScheduled},
	}
	for _, tt := range tests {
		if got := MapLeadStatus(tt.in); got != tt.want {
			t.Errorf("MapLeadStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	appts := []Record{
		{ID: "2", StartTime: base.Add(2 * time.Hour)},
		{ID: "1", StartTime: base},
	}
	leads := []Record{
		{ID: "lead-1", StartTime: base.Add(time.Hour)},
		{ID: "lead-2", StartTime: base}, // same instant as appointment 1
	}
	got := Merge(appts, leads)
	wantOrder := []string{"1", "lead-2", "lead-1", "2"}
	if len(got) != len(wantOrder) {
		t.Fatalf("Merge returned %d records, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestMergeTieBreakStable(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	got := Merge([]Record{{ID: "10", StartTime: at}}, []Record{{ID: "lead-10", StartTime: at}})
	// Appointments are passed first, so on a tie they stay first.
	if got[0].ID != "10" || got[1].ID != "lead-10" {
		t.Errorf("tie break order = [%s %s], want [10 lead-10]", got[0].ID, got[1].ID)
	}
}

func TestMergeEmptySides(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("Merge(nil, nil) = %v, want empty", got)
	}
	one := []Record{{ID: "1"}}
	if got := Merge(one, nil); len(got) != 1 {
		t.Errorf("Merge(one, nil) = %v, want one record", got)
	}
	if got := Merge(nil, one); len(got) != 1 {
		t.Errorf("Merge(nil, one) = %v, want one record", got)
	}
}
