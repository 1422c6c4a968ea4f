package metrics

import (
	"testing"
	"time"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
)

func strPtr(s string) *string { return &s }

func TestRecordValue(t *testing.T) {
	tests := []struct {
		name string
		rec  calendar.Record
		want float64
	}{
		{"column wins", calendar.Record{Value: 150}, 150},
		{"no value no notes", calendar.Record{}, 0},
		{
			"notes fallback",
			calendar.Record{Notes: strPtr(`retorno em 30 dias {"financial": {"paymentValue": 320.5}}`)},
			320.5,
		},
		{
			"column beats notes",
			calendar.Record{Value: 100, Notes: strPtr(`{"financial": {"paymentValue": 999}}`)},
			100,
		},
		{"broken notes json", calendar.Record{Notes: strPtr(`{"financial": oops}`)}, 0},
		{"unrelated notes", calendar.Record{Notes: strPtr("paciente chegou atrasado")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordValue(tt.rec); got != tt.want {
				t.Errorf("RecordValue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateGrowth(t *testing.T) {
	tests := []struct {
		name          string
		today, yest   float64
		wantValue     float64
		wantPositive  bool
		wantFormatted string
	}{
		{"zero baseline with revenue", 50, 0, 100, true, "+100%"},
		{"zero baseline no revenue", 0, 0, 0, true, "0%"},
		{"doubled", 200, 100, 100, true, "+100%"},
		{"halved", 50, 100, -50, false, "-50%"},
		{"flat", 100, 100, 0, true, "0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := CalculateGrowth(tt.today, tt.yest)
			if g.Value != tt.wantValue || g.IsPositive != tt.wantPositive || g.Formatted != tt.wantFormatted {
				t.Errorf("CalculateGrowth(%v, %v) = %+v, want {%v %v %s}",
					tt.today, tt.yest, g, tt.wantValue, tt.wantPositive, tt.wantFormatted)
			}
		})
	}
}

func TestCalculateOccupancy(t *testing.T) {
	tests := []struct {
		count, capacity, want int
	}{
		{0, 10, 0},
		{5, 10, 50},
		{10, 10, 100},
		{15, 10, 100}, // never above 100
		{3, 0, 30},    // falls back to the default capacity
	}
	for _, tt := range tests {
		if got := CalculateOccupancy(tt.count, tt.capacity); got != tt.want {
			t.Errorf("CalculateOccupancy(%d, %d) = %d, want %d", tt.count, tt.capacity, got, tt.want)
		}
	}
}

func TestAverageTicket(t *testing.T) {
	recs := []calendar.Record{
		{Status: calendar.StatusCompleted, Value: 100},
		{Status: calendar.StatusCompleted, Value: 300},
		{Status: calendar.StatusCompleted},             // zero value, ignored
		{Status: calendar.StatusScheduled, Value: 999}, // not completed
		{Status: calendar.StatusCancelled, Value: 500}, // not completed
	}
	if got := AverageTicket(recs); got != 200 {
		t.Errorf("AverageTicket = %v, want 200", got)
	}
	if got := AverageTicket(nil); got != 0 {
		t.Errorf("AverageTicket(nil) = %v, want 0", got)
	}
}

func TestRevenueOn(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	recs := []calendar.Record{
		{StartTime: day.Add(9 * time.Hour), Value: 100},
		{StartTime: day.Add(14 * time.Hour), Notes: strPtr(`{"financial": {"paymentValue": 50}}`)},
		{StartTime: day.AddDate(0, 0, 1), Value: 999},
	}
	if got := RevenueOn(recs, day); got != 150 {
		t.Errorf("RevenueOn = %v, want 150", got)
	}
}

func TestTomorrowConfirmations(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)
	recs := []calendar.Record{
		{ID: "1", StartTime: tomorrow, Status: calendar.StatusScheduled},
		{ID: "2", StartTime: tomorrow, Status: calendar.StatusConfirmed},
		{ID: "3", StartTime: now, Status: calendar.StatusScheduled},
		{ID: "4", StartTime: tomorrow.AddDate(0, 0, 1), Status: calendar.StatusScheduled},
	}
	got := TomorrowConfirmations(recs, now)
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("TomorrowConfirmations = %v, want only record 1", got)
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{1234.56, "R$ 1.234,56"},
		{1000000, "R$ 1.000.000,00"},
		{-50.5, "-R$ 50,50"},
		{999.999, "R$ 1.000,00"},
	}
	for _, tt := range tests {
		if got := FormatBRL(tt.in); got != tt.want {
			t.Errorf("FormatBRL(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	recs := []calendar.Record{
		{StartTime: now, Status: calendar.StatusCompleted, Value: 200},
		{StartTime: now.Add(time.Hour), Status: calendar.StatusScheduled},
		{StartTime: yesterday, Status: calendar.StatusCompleted, Value: 100},
	}
	d := Compute(recs, now, 10)
	if d.DailyRevenue != 200 {
		t.Errorf("DailyRevenue = %v, want 200", d.DailyRevenue)
	}
	if d.RevenueGrowth.Formatted != "+100%" {
		t.Errorf("RevenueGrowth = %+v, want +100%%", d.RevenueGrowth)
	}
	if d.TodayOccupancy != 20 {
		t.Errorf("TodayOccupancy = %d, want 20", d.TodayOccupancy)
	}
	if d.DailyRevenueFormatted != "R$ 200,00" {
		t.Errorf("DailyRevenueFormatted = %q", d.DailyRevenueFormatted)
	}
}
