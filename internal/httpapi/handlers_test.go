package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// ---------- Fakes ----------

type memLedger struct {
	packages map[int64]*model.CreditPackage
	err      error
}

func (l *memLedger) CreditsForPatient(_ context.Context, patientID int64) ([]*model.CreditPackage, error) {
	if l.err != nil {
		return nil, l.err
	}
	var result []*model.CreditPackage
	for _, pkg := range l.packages {
		if pkg.PatientID == patientID {
			result = append(result, pkg)
		}
	}
	return result, nil
}

func (l *memLedger) GetByID(_ context.Context, id int64) (*model.CreditPackage, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.packages[id], nil
}

func (l *memLedger) ListDrifted(context.Context) ([]*model.CreditPackage, error) {
	return nil, nil
}

type memStore struct {
	ledger *memLedger
	err    error
}

func (s *memStore) CommitBooking(_ context.Context, commit *model.BookingCommit) (*model.BookingReceipt, error) {
	if s.err != nil {
		return nil, s.err
	}
	pkg := s.ledger.packages[commit.PackageID]
	receipt := &model.BookingReceipt{BatchID: commit.BatchID, PackageID: commit.PackageID}
	for i := range commit.Slots {
		receipt.AppointmentIDs = append(receipt.AppointmentIDs, int64(i+1))
	}
	pkg.SessionsAllocated += len(commit.Slots)
	receipt.Remaining = pkg.Remaining()
	return receipt, nil
}

func (s *memStore) PhysioSessionsBetween(context.Context, int64, time.Time, time.Time) ([]time.Time, error) {
	return nil, nil
}

type memDirectory struct{}

func (memDirectory) Search(_ context.Context, kind model.DirectoryKind, query string, _ int) ([]*model.DirectoryEntry, error) {
	return []*model.DirectoryEntry{{ID: 7, DisplayName: "Ravi Kumar", Contact: "ravi@example.com"}}, nil
}

func (memDirectory) GetByID(context.Context, model.DirectoryKind, int64) (*model.DirectoryEntry, error) {
	return nil, nil
}

// ---------- Helper ----------

func newTestHandler() (*Handler, *memLedger, *memStore, *echo.Echo) {
	ledger := &memLedger{packages: map[int64]*model.CreditPackage{
		1: {
			ID: 1, PatientID: 7, SessionCount: 10, SessionsAllocated: 4,
			AmountPaid: decimal.RequireFromString("12000.00"), Status: model.PaymentStatusCompleted,
		},
	}}
	store := &memStore{ledger: ledger}
	logger := zap.NewNop()

	credits := service.NewCreditService(ledger, logger)
	validator := scheduling.NewValidator(scheduling.NewGenerator(time.UTC))
	sched := service.NewSchedulingService(credits, validator, store, nil, logger)
	dir := service.NewDirectoryService(memDirectory{})

	return NewHandler(credits, sched, dir, logger), ledger, store, echo.New()
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

const bookingBody = `{"patient_id":7,"doctor_id":3,"physio_id":5,"package_id":1,
	"start_date":"2024-01-01","end_date":"2024-01-06","time_of_day":"09:00",
	"duration_minutes":30,"rule":"daily","is_recurring":true}`

// ---------- Handler Tests ----------

func TestHandler_ListCredits(t *testing.T) {
	h, _, _, e := newTestHandler()

	c, rec := jsonContext(e, http.MethodGet, "/api/v1/patients/7/credits", "")
	c.SetParamNames("id")
	c.SetParamValues("7")

	if err := h.ListCredits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Packages []creditView `json:"packages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Packages) != 1 || body.Packages[0].Remaining != 6 {
		t.Errorf("expected one package with 6 remaining, got %+v", body.Packages)
	}
	if !body.Packages[0].AmountPaid.Equal(decimal.RequireFromString("12000")) {
		t.Errorf("expected amount 12000, got %s", body.Packages[0].AmountPaid)
	}
}

func TestHandler_ListCredits_LedgerDown(t *testing.T) {
	h, ledger, _, e := newTestHandler()
	ledger.err = errors.New("connection reset")

	c, _ := jsonContext(e, http.MethodGet, "/api/v1/patients/7/credits", "")
	c.SetParamNames("id")
	c.SetParamValues("7")

	if code := httpStatus(h.ListCredits(c)); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
}

func TestHandler_Bound(t *testing.T) {
	h, _, _, e := newTestHandler()

	tests := []struct {
		body string
		want string
	}{
		{`{"start_date":"2024-01-01","rule":"daily","remaining":5}`, "2024-01-05"},
		{`{"start_date":"2024-01-01","rule":"weekly","remaining":4}`, "2024-01-22"},
		{`{"start_date":"2024-01-06","rule":"weekdays","remaining":1}`, "2024-01-08"},
		{`{"start_date":"2024-01-01","rule":"daily","remaining":0}`, "2024-01-01"},
	}

	for _, tt := range tests {
		c, rec := jsonContext(e, http.MethodPost, "/api/v1/schedule/bound", tt.body)
		if err := h.Bound(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var body map[string]string
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["max_end_date"] != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.body, tt.want, body["max_end_date"])
		}
	}

	c, _ := jsonContext(e, http.MethodPost, "/api/v1/schedule/bound", `{"start_date":"2024-01-01","rule":"monthly","remaining":3}`)
	if code := httpStatus(h.Bound(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown rule, got %d", code)
	}

	huge := []string{
		`{"start_date":"2024-01-01","rule":"weekdays","remaining":100001}`,
		`{"start_date":"2024-01-01","rule":"weekly","remaining":1152921504606846976}`,
	}
	for _, body := range huge {
		c, _ := jsonContext(e, http.MethodPost, "/api/v1/schedule/bound", body)
		if code := httpStatus(h.Bound(c)); code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, code)
		}
	}
}

func TestHandler_Clamp(t *testing.T) {
	h, _, _, e := newTestHandler()

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/schedule/clamp",
		`{"patient_id":7,"package_id":1,"start_date":"2024-01-01","end_date":"2024-03-01","rule":"daily"}`)
	if err := h.Clamp(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		EndDate string `json:"end_date"`
		Clamped bool   `json:"clamped"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.EndDate != "2024-01-06" || !body.Clamped {
		t.Errorf("expected clamped to 2024-01-06, got %+v", body)
	}

	c, _ = jsonContext(e, http.MethodPost, "/api/v1/schedule/clamp",
		`{"patient_id":8,"package_id":1,"start_date":"2024-01-01","end_date":"2024-03-01","rule":"daily"}`)
	if code := httpStatus(h.Clamp(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign package, got %d", code)
	}
}

func TestHandler_Preview(t *testing.T) {
	h, _, _, e := newTestHandler()

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/schedule/preview", bookingBody)
	if err := h.Preview(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var preview service.Preview
	json.Unmarshal(rec.Body.Bytes(), &preview)
	if preview.TotalSessions != 6 || len(preview.Slots) != 6 {
		t.Errorf("expected 6 slots, got %d", len(preview.Slots))
	}

	c, rec = jsonContext(e, http.MethodPost, "/api/v1/schedule/preview", `{"start_date":"01/01/2024","time_of_day":"09:00"}`)
	if err := h.Preview(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &preview)
	if len(preview.Slots) != 0 {
		t.Errorf("expected empty preview for bad date, got %d slots", len(preview.Slots))
	}
}

func TestHandler_Validate(t *testing.T) {
	h, _, _, e := newTestHandler()

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/schedule/validate", bookingBody)
	if err := h.Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	over := strings.Replace(bookingBody, "2024-01-06", "2024-01-10", 1)
	c, rec = jsonContext(e, http.MethodPost, "/api/v1/schedule/validate", over)
	if err := h.Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	var outcome scheduling.Outcome
	json.Unmarshal(rec.Body.Bytes(), &outcome)
	if outcome.Reason != scheduling.ReasonCreditExceeded || outcome.Remaining != 6 {
		t.Errorf("expected credit_exceeded with 6 remaining, got %s with %d", outcome.Reason, outcome.Remaining)
	}
}

func TestHandler_Book(t *testing.T) {
	h, ledger, _, e := newTestHandler()

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/bookings", bookingBody)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ledger.packages[1].SessionsAllocated != 10 {
		t.Errorf("expected 10 allocated, got %d", ledger.packages[1].SessionsAllocated)
	}

	c, rec = jsonContext(e, http.MethodPost, "/api/v1/bookings", bookingBody)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	var body rejection
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Reason != string(scheduling.ReasonNoCreditRemaining) {
		t.Errorf("expected no_credit_remaining, got %s", body.Reason)
	}
}

func TestHandler_Book_LogsOperator(t *testing.T) {
	h, _, _, e := newTestHandler()
	core, logs := observer.New(zap.InfoLevel)
	h.logger = zap.New(core)

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/bookings", bookingBody)
	c.Set(operatorIDKey, "operator-1")
	c.Set(operatorRoleKey, "front_desk")
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	entries := logs.FilterMessage("Booking submitted").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 submission log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["operator_id"] != "operator-1" || fields["operator_role"] != "front_desk" {
		t.Errorf("expected operator-1/front_desk, got %v/%v", fields["operator_id"], fields["operator_role"])
	}
}

func TestHandler_Book_CommitConflict(t *testing.T) {
	h, _, store, e := newTestHandler()
	store.err = repository.ErrSlotTaken

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/bookings", bookingBody)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	var body rejection
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Reason != string(scheduling.ReasonConflict) {
		t.Errorf("expected conflict, got %s", body.Reason)
	}
}

func TestHandler_SearchDirectory(t *testing.T) {
	h, _, _, e := newTestHandler()

	c, rec := jsonContext(e, http.MethodGet, "/api/v1/directory/patients?q=ravi", "")
	c.SetParamNames("kind")
	c.SetParamValues("patients")
	if err := h.SearchDirectory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []model.DirectoryEntry
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}

	c, _ = jsonContext(e, http.MethodGet, "/api/v1/directory/nurses?q=ravi", "")
	c.SetParamNames("kind")
	c.SetParamValues("nurses")
	if code := httpStatus(h.SearchDirectory(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

// ---------- Middleware Tests ----------

func signedToken(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	return signedTokenFor(t, secret, method, "operator-1", "front_desk")
}

func signedTokenFor(t *testing.T, secret string, method jwt.SigningMethod, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestServer_Auth(t *testing.T) {
	h, _, _, _ := newTestHandler()
	srv := NewServer(Options{JWTSecret: "s3cret"}, h, zap.NewNop())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signedToken(t, "other", jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"no subject", "Bearer " + signedTokenFor(t, "s3cret", jwt.SigningMethodHS256, "", "front_desk"), http.StatusUnauthorized},
		{"patient role", "Bearer " + signedTokenFor(t, "s3cret", jwt.SigningMethodHS256, "patient-9", RolePatient), http.StatusForbidden},
		{"valid", "Bearer " + signedToken(t, "s3cret", jwt.SigningMethodHS256), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/7/credits", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestServer_HealthBypassesAuth(t *testing.T) {
	h, _, _, _ := newTestHandler()
	srv := NewServer(Options{JWTSecret: "s3cret"}, h, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	h, _, _, _ := newTestHandler()
	srv := NewServer(Options{RateLimitRPS: 1, RateLimitBurst: 2}, h, zap.NewNop())

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/7/credits", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected [200 200 429], got %v", codes)
	}
}
