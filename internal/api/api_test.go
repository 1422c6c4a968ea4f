package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth/loginlimit"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/cache"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/config"
)

func testHandler() *Handler {
	return &Handler{
		Cfg:     &config.Config{AppEnv: "development"},
		Cache:   cache.New(time.Minute),
		Limiter: loginlimit.NewMemory(),
	}
}

func withClaims(r *http.Request, c *auth.Claims) *http.Request {
	return r.WithContext(auth.WithClaims(r.Context(), c))
}

func staffClaims(clinicID int64) *auth.Claims {
	return &auth.Claims{UserID: 1, Username: "staff", Role: auth.RoleStaff, ClinicID: &clinicID}
}

func TestParseDateParam(t *testing.T) {
	tests := []struct {
		in      string
		wantNil bool
		wantErr bool
	}{
		{"", true, false},
		{"2025-03-10", false, false},
		{"2025-03-10T14:30:00Z", false, false},
		{"10/03/2025", false, true},
		{"not-a-date", false, true},
	}
	for _, tt := range tests {
		got, err := parseDateParam(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDateParam(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (got == nil) != tt.wantNil {
			t.Errorf("parseDateParam(%q) = %v, wantNil %v", tt.in, got, tt.wantNil)
		}
	}
}

func TestLoginBlockedAnswers429(t *testing.T) {
	h := testHandler()
	for i := 0; i < loginlimit.MaxAttempts; i++ {
		h.Limiter.Fail(context.Background(), "maria")
	}

	body := strings.NewReader(`{"username": "Maria", "password": "x"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	w := httptest.NewRecorder()
	h.Login(w, r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] == "" {
		t.Error("missing error message")
	}
}

func TestLoginRejectsEmptyFields(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": "", "password": ""}`))
	w := httptest.NewRecorder()
	h.Login(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCalendarWithoutClinicIs401(t *testing.T) {
	h := testHandler()
	// Staff token without clinic id: the request must stop before any query.
	r := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	r = withClaims(r, &auth.Claims{UserID: 1, Username: "s", Role: auth.RoleStaff})
	w := httptest.NewRecorder()
	h.ListCalendar(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "clinic not identified" {
		t.Errorf("error = %q, want %q", resp["error"], "clinic not identified")
	}
}

func TestUpdateCalendarItemBadRef(t *testing.T) {
	h := testHandler()
	for _, id := range []string{"abc", "lead-0", "lead-abc", "-1"} {
		r := httptest.NewRequest(http.MethodPatch, "/api/appointments/"+id, strings.NewReader(`{"status": "confirmed"}`))
		r = withClaims(r, staffClaims(3))
		r = mux.SetURLVars(r, map[string]string{"id": id})
		w := httptest.NewRecorder()
		h.UpdateCalendarItem(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, w.Code)
		}
	}
}

func TestUpdateLeadIgnoresNonDateFields(t *testing.T) {
	// Sem pool: chegar ao repositório seria panic, então o 204 prova que
	// os campos fora do esquema do lead foram descartados sem tocar o banco.
	h := testHandler()
	r := httptest.NewRequest(http.MethodPatch, "/api/appointments/lead-5", strings.NewReader(`{"status": "confirmed", "notes": "x"}`))
	r = withClaims(r, staffClaims(3))
	r = mux.SetURLVars(r, map[string]string{"id": "lead-5"})
	w := httptest.NewRecorder()
	h.UpdateCalendarItem(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}

func TestUpdateCalendarItemEmptyBody(t *testing.T) {
	h := testHandler()
	for _, id := range []string{"5", "lead-5"} {
		r := httptest.NewRequest(http.MethodPatch, "/api/appointments/"+id, strings.NewReader(`{}`))
		r = withClaims(r, staffClaims(3))
		r = mux.SetURLVars(r, map[string]string{"id": id})
		w := httptest.NewRecorder()
		h.UpdateCalendarItem(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, w.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp["error"] != "at least one field required" {
			t.Errorf("id %q: error = %q", id, resp["error"])
		}
	}
}

func TestUpdateRequestAliases(t *testing.T) {
	var req UpdateCalendarItemRequest
	body := `{"name": "Ana", "phone": "11999990000", "start": "2025-03-10T14:00:00Z"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	req.normalize()
	if req.PatientName == nil || *req.PatientName != "Ana" {
		t.Errorf("PatientName = %v, want Ana", req.PatientName)
	}
	if req.PatientPhone == nil || *req.PatientPhone != "11999990000" {
		t.Errorf("PatientPhone = %v, want 11999990000", req.PatientPhone)
	}
	if req.Start == nil || !req.Start.Equal(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", req.Start)
	}

	// snake_case continua valendo quando o nome canônico falta.
	var snake UpdateCalendarItemRequest
	if err := json.Unmarshal([]byte(`{"patient_name": "Bia", "start_time": "2025-03-11T09:00:00Z"}`), &snake); err != nil {
		t.Fatal(err)
	}
	snake.normalize()
	if snake.PatientName == nil || *snake.PatientName != "Bia" {
		t.Errorf("PatientName = %v, want Bia", snake.PatientName)
	}
	if snake.Start == nil {
		t.Error("Start not folded from start_time")
	}
}

func TestInclusiveEnd(t *testing.T) {
	if inclusiveEnd(nil) != nil {
		t.Error("nil in, nil out")
	}

	bare := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	got := inclusiveEnd(&bare)
	want := time.Date(2025, 3, 10, 23, 59, 59, 999999999, time.UTC)
	if !got.Equal(want) {
		t.Errorf("bare date = %v, want %v", got, want)
	}

	// Uma consulta de um dia só precisa cobrir os registros daquele dia.
	from, _ := parseDateParam("2025-03-10")
	to := inclusiveEnd(from)
	rec := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	if rec.Before(*from) || rec.After(*to) {
		t.Errorf("record %v outside [%v, %v]", rec, from, to)
	}

	stamped := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	if got := inclusiveEnd(&stamped); !got.Equal(stamped) {
		t.Errorf("timestamp changed to %v", got)
	}
}

func TestListCalendarReadsSpecParamNames(t *testing.T) {
	h := testHandler()
	for _, target := range []string{
		"/api/calendar/appointments?startDate=nope",
		"/api/calendar/appointments?endDate=nope",
	} {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		r = withClaims(r, staffClaims(3))
		w := httptest.NewRecorder()
		h.ListCalendar(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestCreateAppointmentInputDefaults(t *testing.T) {
	date := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	in := CreateAppointmentRequest{PatientName: "Ana"}.toInput(3, date)
	if in.DurationMinutes != 0 || in.Insurance != "" || in.Value != 0 {
		t.Errorf("absent optionals must stay zero for the repo defaults, got %+v", in)
	}
	if in.ClinicID != 3 || !in.AppointmentDate.Equal(date) {
		t.Errorf("clinic/date not carried: %+v", in)
	}

	dur, ins, val := 45, "Unimed", 320.5
	in = CreateAppointmentRequest{PatientName: "Ana", DurationMinutes: &dur, Insurance: &ins, Value: &val}.toInput(3, date)
	if in.DurationMinutes != 45 || in.Insurance != "Unimed" || in.Value != 320.5 {
		t.Errorf("optionals not dereferenced: %+v", in)
	}
}

func TestUpdateClinicRejectsUnknownStatus(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPatch, "/api/saas/clinics/2", strings.NewReader(`{"status": "banana"}`))
	r = withClaims(r, &auth.Claims{UserID: 1, Username: "root", Role: auth.RoleSuperAdmin})
	r = mux.SetURLVars(r, map[string]string{"id": "2"})
	w := httptest.NewRecorder()
	h.UpdateClinic(w, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestUpdateCalendarItemUnknownStatus(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPatch, "/api/appointments/5", strings.NewReader(`{"status": "talvez"}`))
	r = withClaims(r, staffClaims(3))
	r = mux.SetURLVars(r, map[string]string{"id": "5"})
	w := httptest.NewRecorder()
	h.UpdateCalendarItem(w, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(`{"patient_name": "  ", "appointment_date": "nope"}`))
	r = withClaims(r, staffClaims(3))
	w := httptest.NewRecorder()
	h.CreateAppointment(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Fields["patient_name"] == "" || resp.Fields["appointment_date"] == "" {
		t.Errorf("fields = %v, want both patient_name and appointment_date flagged", resp.Fields)
	}
}

func TestCreateAppointmentSuperAdminNeedsClinic(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(`{"patient_name": "X", "appointment_date": "2025-03-10"}`))
	r = withClaims(r, &auth.Claims{UserID: 1, Username: "root", Role: auth.RoleSuperAdmin})
	w := httptest.NewRecorder()
	h.CreateAppointment(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
