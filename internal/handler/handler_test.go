package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/middleware"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/service"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/settlement"
)

type stubService struct {
	viewResp *service.ReservationView
	viewErr  error

	ledgerResp *model.Ledger
	ledgerErr  error

	checkInPreview  *service.CheckInPreview
	checkOutPreview *service.CheckOutPreview
	previewErr      error

	transitionResp *service.Result
	transitionErr  error

	pingErr error

	lastID       int64
	lastCheckIn  service.CheckInInput
	lastCheckOut service.CheckOutInput
	lastCancel   service.CancelInput
}

func (s *stubService) GetReservation(ctx context.Context, id int64) (*service.ReservationView, error) {
	s.lastID = id
	return s.viewResp, s.viewErr
}

func (s *stubService) GetLedger(ctx context.Context, id int64) (*model.Ledger, error) {
	s.lastID = id
	return s.ledgerResp, s.ledgerErr
}

func (s *stubService) GetCheckinPreview(ctx context.Context, id int64) (*service.CheckInPreview, error) {
	s.lastID = id
	return s.checkInPreview, s.previewErr
}

func (s *stubService) GetCheckoutPreview(ctx context.Context, id int64) (*service.CheckOutPreview, error) {
	s.lastID = id
	return s.checkOutPreview, s.previewErr
}

func (s *stubService) CheckIn(ctx context.Context, id int64, in service.CheckInInput) (*service.Result, error) {
	s.lastID, s.lastCheckIn = id, in
	return s.transitionResp, s.transitionErr
}

func (s *stubService) CheckOut(ctx context.Context, id int64, in service.CheckOutInput) (*service.Result, error) {
	s.lastID, s.lastCheckOut = id, in
	return s.transitionResp, s.transitionErr
}

func (s *stubService) Cancel(ctx context.Context, id int64, in service.CancelInput) (*service.Result, error) {
	s.lastID, s.lastCancel = id, in
	return s.transitionResp, s.transitionErr
}

func (s *stubService) Ping(ctx context.Context) error {
	return s.pingErr
}

var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func testReservation() model.Reservation {
	return model.Reservation{
		ID:            5,
		BookingRef:    "BK-0005",
		CustomerID:    1,
		RoomID:        3,
		CheckInDate:   testNow,
		CheckOutDate:  testNow.Add(48 * time.Hour),
		TotalAmount:   decimal.NewFromInt(10000),
		AdvancePaid:   decimal.NewFromInt(3000),
		BalanceDue:    decimal.NewFromInt(7000),
		PaymentStatus: model.PaymentStatusPartial,
		Status:        model.ReservationStatusConfirmed,
		UpdatedAt:     testNow,
	}
}

type testServer struct {
	router http.Handler
	staff  *middleware.StaffMiddleware
}

func newTestServer(t *testing.T, svc Service) *testServer {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	staff := middleware.NewStaffMiddleware("test-secret")
	h := NewHandler(svc, logger, staff, []string{"*"})

	return &testServer{router: h.SetupRouter(), staff: staff}
}

func (s *testServer) do(method, path, body string, staffID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if staffID > 0 {
		req.Header.Set(middleware.StaffTokenHeader, s.staff.Sign(staffID))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := srv.do(http.MethodGet, "/healthz", "", 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	srv = newTestServer(t, &stubService{pingErr: errors.New("db down")})
	rec = srv.do(http.MethodGet, "/healthz", "", 0)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReservationRoutes_RequireStaffToken(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := srv.do(http.MethodPost, "/api/reservations/5/check-in", `{}`, 0)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGetReservation_Success(t *testing.T) {
	r := testReservation()
	svc := &stubService{viewResp: &service.ReservationView{
		Reservation: r,
		Totals:      settlement.Current(r),
	}}
	srv := newTestServer(t, svc)

	rec := srv.do(http.MethodGet, "/api/reservations/5", "", 9)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.lastID != 5 {
		t.Fatalf("service got id %d, want 5", svc.lastID)
	}

	var resp reservationViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reservation.BookingRef != "BK-0005" {
		t.Fatalf("bookingRef = %q, want BK-0005", resp.Reservation.BookingRef)
	}
	if !resp.Totals.BalanceDue.Equal(decimal.NewFromInt(7000)) {
		t.Fatalf("balanceDue = %s, want 7000", resp.Totals.BalanceDue)
	}
}

func TestGetReservation_InvalidID(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := srv.do(http.MethodGet, "/api/reservations/abc", "", 9)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if resp := decodeError(t, rec); resp.Fields["reservationId"] == "" {
		t.Fatalf("expected reservationId field error, got %+v", resp)
	}
}

func TestCheckIn_PassesInputAndStaff(t *testing.T) {
	r := testReservation()
	r.Status = model.ReservationStatusCheckedIn
	payment := int64(11)
	svc := &stubService{transitionResp: &service.Result{
		Reservation: r,
		Customer:    &model.Customer{ID: 1, FirstName: "John", LastName: "Smith"},
		Summary: service.Summary{
			TransitionID: "11111111-2222-3333-4444-555555555555",
			RoomNumber:   "101",
			RoomStatus:   model.RoomStatusOccupied,
			PaymentID:    &payment,
		},
	}}
	srv := newTestServer(t, svc)

	body := `{"paymentAmount":"350.50","paymentMethod":"CARD","guestConfirmed":true,
		"identityVerified":true,"keyCardIssued":true,"roomInspected":true,"notes":"late flight"}`
	rec := srv.do(http.MethodPost, "/api/reservations/5/check-in", body, 42)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	in := svc.lastCheckIn
	if in.StaffID != 42 {
		t.Fatalf("staff id = %d, want 42", in.StaffID)
	}
	if !in.PaymentAmount.Equal(decimal.RequireFromString("350.5")) {
		t.Fatalf("payment = %s, want 350.5", in.PaymentAmount)
	}
	if in.PaymentMethod != model.PaymentMethodCard || !in.GuestConfirmed || !in.RoomInspected {
		t.Fatalf("unexpected input %+v", in)
	}

	var resp transitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Customer == nil || resp.Customer.FullName != "John Smith" {
		t.Fatalf("customer = %+v, want John Smith", resp.Customer)
	}
	if resp.Summary.PaymentID == nil || *resp.Summary.PaymentID != 11 {
		t.Fatalf("paymentId = %v, want 11", resp.Summary.PaymentID)
	}
	if resp.Summary.RoomStatus != "OCCUPIED" {
		t.Fatalf("roomStatus = %q, want OCCUPIED", resp.Summary.RoomStatus)
	}
}

func TestCheckIn_MalformedBody(t *testing.T) {
	svc := &stubService{}
	srv := newTestServer(t, svc)

	rec := srv.do(http.MethodPost, "/api/reservations/5/check-in", `{"paymentAmount":`, 42)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = srv.do(http.MethodPost, "/api/reservations/5/check-in", `{"unknown":1}`, 42)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if svc.lastID != 0 {
		t.Fatalf("service should not be called on malformed body")
	}
}

func TestTransition_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        apperr.NewValidation("paymentMethod", "required when paymentAmount > 0"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "not found",
			err:        &apperr.NotFoundError{Entity: "reservation", ID: 5},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name: "precondition",
			err: &apperr.PreconditionError{
				Code:          apperr.CodeRoomOccupied,
				Message:       "Room 204 is occupied by Jane Doe, check them out first",
				RoomNumber:    "204",
				ConflictGuest: "Jane Doe",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperr.CodeRoomOccupied,
		},
		{
			name:       "conflict",
			err:        &apperr.ConflictError{Op: "check-in"},
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "persistence",
			err:        &apperr.PersistenceError{Op: "check-in", Err: errors.New("connection reset")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "PERSISTENCE_FAILED",
		},
		{
			name:       "untyped",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubService{transitionErr: tt.err})

			rec := srv.do(http.MethodPost, "/api/reservations/5/check-in", `{}`, 42)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if tt.wantStatus == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Fatalf("Retry-After header missing")
			}
		})
	}
}

func TestPrecondition_MessageIsPassedThrough(t *testing.T) {
	msg := "Room 204 is occupied by Jane Doe, check them out first"
	srv := newTestServer(t, &stubService{transitionErr: &apperr.PreconditionError{
		Code:          apperr.CodeRoomOccupied,
		Message:       msg,
		ConflictGuest: "Jane Doe",
	}})

	rec := srv.do(http.MethodPost, "/api/reservations/5/check-in", `{}`, 42)
	resp := decodeError(t, rec)
	if resp.Message != msg {
		t.Fatalf("message = %q, want %q", resp.Message, msg)
	}
	if resp.ConflictGuest != "Jane Doe" {
		t.Fatalf("conflictGuest = %q, want Jane Doe", resp.ConflictGuest)
	}
}

func TestCheckOut_PassesCharges(t *testing.T) {
	r := testReservation()
	r.Status = model.ReservationStatusCheckedOut
	svc := &stubService{transitionResp: &service.Result{Reservation: r}}
	srv := newTestServer(t, svc)

	body := `{"additionalCharges":200,"lateCheckoutFee":"75","damageFee":"1200",
		"damageDescription":"broken lamp","paymentAmount":"8000","paymentMethod":"CASH"}`
	rec := srv.do(http.MethodPost, "/api/reservations/5/check-out", body, 3)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	in := svc.lastCheckOut
	if in.StaffID != 3 {
		t.Fatalf("staff id = %d, want 3", in.StaffID)
	}
	if in.LateCheckoutFee == nil || !in.LateCheckoutFee.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("late checkout fee = %v, want 75", in.LateCheckoutFee)
	}
	if !in.DamageFee.Equal(decimal.NewFromInt(1200)) || in.DamageDescription != "broken lamp" {
		t.Fatalf("unexpected damage input %+v", in)
	}
	if !in.AdditionalCharges.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("additional charges = %s, want 200", in.AdditionalCharges)
	}
}

func TestCheckOut_NoLateFeeOverride(t *testing.T) {
	svc := &stubService{transitionResp: &service.Result{Reservation: testReservation()}}
	srv := newTestServer(t, svc)

	rec := srv.do(http.MethodPost, "/api/reservations/5/check-out", `{"paymentAmount":0}`, 3)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastCheckOut.LateCheckoutFee != nil {
		t.Fatalf("late checkout fee should be nil when omitted")
	}
}

func TestCancel(t *testing.T) {
	r := testReservation()
	r.Status = model.ReservationStatusCancelled
	svc := &stubService{transitionResp: &service.Result{Reservation: r}}
	srv := newTestServer(t, svc)

	rec := srv.do(http.MethodPost, "/api/reservations/5/cancel", `{"reason":"guest request"}`, 8)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastCancel.Reason != "guest request" || svc.lastCancel.StaffID != 8 {
		t.Fatalf("unexpected cancel input %+v", svc.lastCancel)
	}
	if !strings.Contains(rec.Body.String(), `"status":"CANCELLED"`) {
		t.Fatalf("response does not contain cancelled status: %s", rec.Body.String())
	}
}

func TestPreviews(t *testing.T) {
	r := testReservation()
	room := model.Room{ID: 3, Number: "101", Status: model.RoomStatusAvailable}
	svc := &stubService{
		checkInPreview: &service.CheckInPreview{
			Reservation: r,
			Room:        room,
			EarlyFee:    decimal.NewFromInt(300),
			IsEarly:     true,
			Projected:   settlement.Current(r),
		},
		checkOutPreview: &service.CheckOutPreview{
			Reservation:      r,
			Room:             room,
			Ancillary:        []model.LineItem{{Source: "restaurant", Description: "Dinner", Amount: decimal.NewFromInt(450)}},
			AncillaryTotal:   decimal.NewFromInt(450),
			CheckoutBoundary: testNow.Add(48 * time.Hour),
			ProjectedBalance: decimal.NewFromInt(7450),
		},
	}
	srv := newTestServer(t, svc)

	rec := srv.do(http.MethodGet, "/api/reservations/5/check-in/preview", "", 1)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-in preview status = %d, want %d", rec.Code, http.StatusOK)
	}
	var in checkInPreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !in.IsEarly || !in.EarlyFee.Equal(decimal.NewFromInt(300)) || in.Room.Number != "101" {
		t.Fatalf("unexpected check-in preview %+v", in)
	}

	rec = srv.do(http.MethodGet, "/api/reservations/5/check-out/preview", "", 1)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-out preview status = %d, want %d", rec.Code, http.StatusOK)
	}
	var out checkOutPreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Ancillary) != 1 || !out.ProjectedBalance.Equal(decimal.NewFromInt(7450)) {
		t.Fatalf("unexpected check-out preview %+v", out)
	}
}

func TestGetLedger(t *testing.T) {
	svc := &stubService{ledgerResp: &model.Ledger{
		Payments: []model.Payment{
			{ID: 1, Amount: decimal.NewFromInt(500), Method: model.PaymentMethodCash, Type: model.PaymentTypeCheckIn, CreatedAt: testNow},
		},
		CashFlows: []model.CashFlow{
			{ID: 1, Type: model.CashFlowInflow, Amount: decimal.NewFromInt(500), CreatedAt: testNow},
		},
	}}
	srv := newTestServer(t, svc)

	rec := srv.do(http.MethodGet, "/api/reservations/5/ledger", "", 1)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp ledgerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Payments) != 1 || len(resp.CashFlows) != 1 || resp.Incidents == nil {
		t.Fatalf("unexpected ledger %+v", resp)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := srv.do(http.MethodGet, "/api/unknown", "", 1)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
