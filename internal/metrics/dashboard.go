// Package metrics computes the dashboard numbers from the normalized
// calendar records. Pure functions, no I/O; the handler feeds it the same
// union the calendar returns.
package metrics

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
)

// DefaultDailyCapacity is the fixed slot capacity used for occupancy.
const DefaultDailyCapacity = 10

// Growth is a percentage delta plus its pre-formatted rendering.
type Growth struct {
	Value      float64 `json:"value"`
	IsPositive bool    `json:"is_positive"`
	Formatted  string  `json:"formatted"`
}

// Dashboard is the aggregate returned to the frontend. Every monetary and
// percentage figure carries a raw number and a locale-formatted string.
type Dashboard struct {
	DailyRevenue          float64           `json:"daily_revenue"`
	DailyRevenueFormatted string            `json:"daily_revenue_formatted"`
	RevenueGrowth         Growth            `json:"revenue_growth"`
	TomorrowCount         int               `json:"tomorrow_count"`
	TomorrowConfirmations []calendar.Record `json:"tomorrow_confirmations"`
	TodayOccupancy        int               `json:"today_occupancy"`
	AverageTicket         float64           `json:"average_ticket"`
	AverageTicketFmt      string            `json:"average_ticket_formatted"`
}

// financialRe finds the embedded financial JSON inside free-text notes.
// Legacy rows carry `{"financial": {"paymentValue": ...}}` there instead of
// a value column; parse failures count as zero.
var financialRe = regexp.MustCompile(`\{"financial":\s*\{[^}]*\}\}`)

type financialNote struct {
	Financial struct {
		PaymentValue float64 `json:"paymentValue"`
	} `json:"financial"`
}

// RecordValue returns the record's monetary value, falling back to the
// notes-embedded financial payload when the column is absent or zero.
func RecordValue(r calendar.Record) float64 {
	if r.Value > 0 {
		return r.Value
	}
	if r.Notes == nil {
		return 0
	}
	raw := financialRe.FindString(*r.Notes)
	if raw == "" {
		return 0
	}
	var fn financialNote
	if err := json.Unmarshal([]byte(raw), &fn); err != nil {
		return 0
	}
	return fn.Financial.PaymentValue
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RevenueOn sums record values for the given calendar day.
func RevenueOn(records []calendar.Record, day time.Time) float64 {
	var total float64
	for _, r := range records {
		if sameDay(r.StartTime, day) {
			total += RecordValue(r)
		}
	}
	return total
}

// CalculateGrowth compares today's figure with yesterday's. A zero baseline
// is defined as +100% when today is positive, else 0%, to avoid division by zero.
func CalculateGrowth(today, yesterday float64) Growth {
	if yesterday == 0 {
		if today > 0 {
			return Growth{Value: 100, IsPositive: true, Formatted: "+100%"}
		}
		return Growth{Value: 0, IsPositive: true, Formatted: "0%"}
	}
	pct := (today - yesterday) / yesterday * 100
	return Growth{Value: pct, IsPositive: pct >= 0, Formatted: FormatPercent(pct)}
}

// CalculateOccupancy returns count/capacity as a percentage capped at 100.
// Overbooking never reports above full.
func CalculateOccupancy(count, capacity int) int {
	if capacity <= 0 {
		capacity = DefaultDailyCapacity
	}
	pct := count * 100 / capacity
	if pct > 100 {
		return 100
	}
	return pct
}

// TomorrowConfirmations returns the records dated tomorrow still in
// scheduled status (pending confirmation).
func TomorrowConfirmations(records []calendar.Record, now time.Time) []calendar.Record {
	tomorrow := now.AddDate(0, 0, 1)
	var out []calendar.Record
	for _, r := range records {
		if sameDay(r.StartTime, tomorrow) && r.Status == calendar.StatusScheduled {
			out = append(out, r)
		}
	}
	return out
}

// AverageTicket is the mean value across completed records with value > 0.
func AverageTicket(records []calendar.Record) float64 {
	var sum float64
	var n int
	for _, r := range records {
		if r.Status != calendar.StatusCompleted {
			continue
		}
		v := RecordValue(r)
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Compute assembles the full dashboard for the given reference time.
func Compute(records []calendar.Record, now time.Time, capacity int) Dashboard {
	todayRevenue := RevenueOn(records, now)
	yesterdayRevenue := RevenueOn(records, now.AddDate(0, 0, -1))
	tomorrow := TomorrowConfirmations(records, now)
	todayCount := 0
	for _, r := range records {
		if sameDay(r.StartTime, now) {
			todayCount++
		}
	}
	avg := AverageTicket(records)
	return Dashboard{
		DailyRevenue:          todayRevenue,
		DailyRevenueFormatted: FormatBRL(todayRevenue),
		RevenueGrowth:         CalculateGrowth(todayRevenue, yesterdayRevenue),
		TomorrowCount:         len(tomorrow),
		TomorrowConfirmations: tomorrow,
		TodayOccupancy:        CalculateOccupancy(todayCount, capacity),
		AverageTicket:         avg,
		AverageTicketFmt:      FormatBRL(avg),
	}
}

// FormatBRL renders a value with Brazilian currency conventions: R$ 1.234,56.
func FormatBRL(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	intPart, decPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}

// FormatPercent renders a signed integer percentage ("+100%", "-50%", "0%").
func FormatPercent(pct float64) string {
	rounded := int(pct)
	if pct >= 0 {
		if rounded == 0 {
			return "0%"
		}
		return fmt.Sprintf("+%d%%", rounded)
	}
	return fmt.Sprintf("%d%%", rounded)
}
