package repo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/migrate"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/testutil"
)

func TestTenantIsolationAndUnion(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	if err := migrate.Run(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	mk := func(label string) *repo.Clinic {
		c, err := repo.CreateClinicWithAdmin(ctx, pool, repo.CreateClinicInput{
			Name:          "Clinic " + label,
			Slug:          "it-" + label + "-" + suffix,
			AdminUsername: "admin-" + label + "-" + suffix,
			AdminPassword: "senha-super-secreta",
			AdminName:     "Admin " + label,
		})
		if err != nil {
			t.Fatalf("create clinic %s: %v", label, err)
		}
		t.Cleanup(func() { _ = repo.DeleteClinic(context.Background(), pool, c.ID) })
		return c
	}
	a, b := mk("a"), mk("b")

	when := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	apptID, err := repo.CreateAppointment(ctx, pool, repo.CreateAppointmentInput{
		ClinicID:        a.ID,
		PatientName:     "Paciente A",
		AppointmentDate: when,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	leadID, err := repo.CreateLead(ctx, pool, repo.CreateLeadInput{
		ClinicID:        a.ID,
		Name:            "Lead A",
		AppointmentDate: &when,
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, err := repo.CreateAppointment(ctx, pool, repo.CreateAppointmentInput{
		ClinicID:        b.ID,
		PatientName:     "Paciente B",
		AppointmentDate: when,
	}); err != nil {
		t.Fatalf("create appointment b: %v", err)
	}

	// Clinic A sees exactly its appointment and its lead.
	appts, err := repo.ListAppointmentRecords(ctx, pool, &a.ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	leads, err := repo.ListLeadRecords(ctx, pool, &a.ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	merged := calendar.Merge(appts, leads)
	if len(merged) != 2 {
		t.Fatalf("clinic A sees %d records, want 2", len(merged))
	}
	wantLead := fmt.Sprintf("lead-%d", leadID)
	foundLead := false
	for _, r := range merged {
		if r.ClinicID != a.ID {
			t.Errorf("record %s belongs to clinic %d, leaked into clinic %d listing", r.ID, r.ClinicID, a.ID)
		}
		if r.ID == wantLead {
			foundLead = true
			if r.Source != calendar.SourceLead {
				t.Errorf("lead source = %q", r.Source)
			}
			if got := r.EndTime.Sub(r.StartTime); got != 30*time.Minute {
				t.Errorf("lead duration = %v, want 30m", got)
			}
		}
	}
	if !foundLead {
		t.Errorf("merged view misses %s", wantLead)
	}

	// Bounds are inclusive: a window ending exactly on the record instant
	// still returns it.
	dayStart := time.Date(when.Year(), when.Month(), when.Day(), 0, 0, 0, 0, when.Location())
	sameDayAppts, err := repo.ListAppointmentRecords(ctx, pool, &a.ID, &dayStart, &when)
	if err != nil {
		t.Fatal(err)
	}
	sameDayLeads, err := repo.ListLeadRecords(ctx, pool, &a.ID, &dayStart, &when)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(calendar.Merge(sameDayAppts, sameDayLeads)); got != 2 {
		t.Errorf("same-day window sees %d records, want 2", got)
	}

	// Cross-tenant read by id must not resolve.
	if _, err := repo.AppointmentRecordByID(ctx, pool, apptID, &b.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("cross-tenant get = %v, want ErrNotFound", err)
	}

	// Unscoped read (super admin bypass) sees both clinics.
	all, err := repo.ListAppointmentRecords(ctx, pool, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	clinics := map[int64]bool{}
	for _, r := range all {
		clinics[r.ClinicID] = true
	}
	if !clinics[a.ID] || !clinics[b.ID] {
		t.Errorf("bypass listing misses a clinic: %v", clinics)
	}
}

func TestFinalizeAppointmentOnce(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	if err := migrate.Run(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	c, err := repo.CreateClinicWithAdmin(ctx, pool, repo.CreateClinicInput{
		Name:          "Clinic Fin",
		Slug:          "it-fin-" + suffix,
		AdminUsername: "admin-fin-" + suffix,
		AdminPassword: "senha-super-secreta",
		AdminName:     "Admin",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.DeleteClinic(context.Background(), pool, c.ID) })

	id, err := repo.CreateAppointment(ctx, pool, repo.CreateAppointmentInput{
		ClinicID:        c.ID,
		PatientName:     "Paciente",
		AppointmentDate: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rx := "Amoxicilina 500mg, 8/8h por 7 dias"
	val := 180.0
	res, err := repo.FinalizeAppointment(ctx, pool, id, &c.ID, repo.FinalizeInput{
		Prescription: &rx,
		Value:        &val,
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Prescription == nil || res.Prescription.VerificationToken == "" {
		t.Fatal("finalize did not issue a prescription token")
	}

	rec, err := repo.AppointmentRecordByID(ctx, pool, id, &c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != calendar.StatusCompleted {
		t.Errorf("status = %q, want completed", rec.Status)
	}
	if rec.Value != val {
		t.Errorf("value = %v, want %v", rec.Value, val)
	}

	if _, err := repo.FinalizeAppointment(ctx, pool, id, &c.ID, repo.FinalizeInput{}); !errors.Is(err, repo.ErrConflict) {
		t.Errorf("second finalize = %v, want ErrConflict", err)
	}

	p, err := repo.PrescriptionByToken(ctx, pool, res.Prescription.VerificationToken)
	if err != nil {
		t.Fatalf("prescription lookup: %v", err)
	}
	if p.Content != rx {
		t.Errorf("prescription content = %q", p.Content)
	}
}

func TestIncomeReachesFinancialDashboard(t *testing.T) {
	pool := testutil.Pool(t)
	gdb := testutil.Gorm(t)
	ctx := context.Background()
	if err := migrate.Run(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	c, err := repo.CreateClinicWithAdmin(ctx, pool, repo.CreateClinicInput{
		Name:          "Clinic Fin",
		Slug:          "it-fin-" + suffix,
		AdminUsername: "admin-fin-" + suffix,
		AdminPassword: "senha-super-secreta",
		AdminName:     "Admin Fin",
	})
	if err != nil {
		t.Fatalf("create clinic: %v", err)
	}
	t.Cleanup(func() { _ = repo.DeleteClinic(context.Background(), pool, c.ID) })

	before, err := repo.FinancialDashboard(ctx, gdb, c.ID, time.Now())
	if err != nil {
		t.Fatalf("dashboard before: %v", err)
	}

	method := "pix"
	tr, err := repo.CreateTransaction(ctx, gdb, c.ID, repo.CreateTransactionInput{
		Type:          repo.TransactionIncome,
		Amount:        150,
		Category:      "Consulta",
		PaymentMethod: &method,
		Status:        repo.TransactionPaid,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if tr.ID == 0 {
		t.Fatal("transaction id not returned")
	}

	after, err := repo.FinancialDashboard(ctx, gdb, c.ID, time.Now())
	if err != nil {
		t.Fatalf("dashboard after: %v", err)
	}
	if got := after.MonthlyIncome - before.MonthlyIncome; got != 150 {
		t.Errorf("monthly income delta = %v, want 150", got)
	}
	if got := after.Balance - before.Balance; got != 150 {
		t.Errorf("balance delta = %v, want 150", got)
	}
}
