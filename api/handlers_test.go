/*
handlers_test.go - HTTP-level tests for the API

Tests drive the full router with an in-memory engine, exercising the
status-code mapping and the JSON shapes the frontend depends on.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/thebb/points-engine/booking"
	bstore "github.com/thebb/points-engine/booking/store"
	"github.com/thebb/points-engine/ledger"
	lstore "github.com/thebb/points-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type apiFixture struct {
	router  http.Handler
	handler *Handler
	points  *ledger.Service
	catalog *bstore.Memory
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	lmem := lstore.NewMemory()
	bmem := bstore.NewMemory()
	points := ledger.NewService(lmem)
	outbox := ledger.NewOutbox(lmem)
	engine := booking.NewEngine(bmem, points, outbox)

	reg := prometheus.NewRegistry()
	h := NewHandler(engine, points, outbox, bmem, zap.NewNop(), NewMetrics(reg))

	return &apiFixture{
		router:  NewRouter(h, reg),
		handler: h,
		points:  points,
		catalog: bmem,
	}
}

func (f *apiFixture) seedActiveClinic(t *testing.T, ref ledger.AccountRef, points int64, eventID booking.EventID, price int64) {
	t.Helper()
	ctx := context.Background()

	_, err := f.points.CreateAccount(ctx, ledger.Account{
		Ref: ref, Kind: ledger.KindClinic, Name: "Clinic " + string(ref), Status: ledger.ClinicActive,
	})
	if err != nil {
		t.Fatalf("create clinic: %v", err)
	}
	if points > 0 {
		if _, _, err := f.points.Credit(ctx, ref, points, ledger.TxCharge, "seed", "card", ""); err != nil {
			t.Fatalf("seed credit: %v", err)
		}
	}
	err = f.catalog.SaveEvent(ctx, booking.Event{
		ID: eventID, Clinic: ref, Title: "Laser Toning", Price: price, Promoted: true, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("save event: %v", err)
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return out
}

// =============================================================================
// POINTS ENDPOINTS
// =============================================================================

func TestChargePoints_ReturnsNewBalance(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 0, "evt-1", 100_000)

	rec := f.do(t, http.MethodPost, "/api/points/charge", ChargeRequest{
		AccountRef: "clinic_a", Amount: 30_000, Method: "card",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	balance := decodeBody[BalanceDTO](t, rec)
	if balance.Points != 30_000 {
		t.Errorf("expected balance 30000, got %d", balance.Points)
	}
}

func TestChargePoints_InvalidAmount_BadRequest(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/points/charge", ChargeRequest{AccountRef: "clinic_a", Amount: 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetBalance_UnknownAccount_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/accounts/ghost/balance", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetTransactions_NewestFirst(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 0, "evt-1", 100_000)

	f.do(t, http.MethodPost, "/api/points/charge", ChargeRequest{AccountRef: "clinic_a", Amount: 10_000})
	f.do(t, http.MethodPost, "/api/points/charge", ChargeRequest{AccountRef: "clinic_a", Amount: 5_000})

	rec := f.do(t, http.MethodGet, "/api/accounts/clinic_a/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	txs := decodeBody[[]TransactionDTO](t, rec)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Amount != 5_000 {
		t.Errorf("expected newest (5000) first, got %d", txs[0].Amount)
	}
}

// =============================================================================
// RESERVATION ENDPOINTS
// =============================================================================

func TestBookReservation_Created(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 50_000, "evt-1", 200_000)

	rec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim",
		Contact:      "010-1111-2222",
		EventID:      "evt-1",
		TotalPrice:   200_000,
		Options:      []string{"3 sessions"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	res := decodeBody[ReservationDTO](t, rec)
	if res.Commission != 20_000 {
		t.Errorf("expected commission 20000, got %d", res.Commission)
	}
	if res.Status != string(booking.StatusConfirmed) {
		t.Errorf("expected confirmed, got %s", res.Status)
	}

	// Balance reflects the deduction
	balRec := f.do(t, http.MethodGet, "/api/accounts/clinic_a/balance", nil)
	balance := decodeBody[BalanceDTO](t, balRec)
	if balance.Points != 30_000 {
		t.Errorf("expected balance 30000 after booking, got %d", balance.Points)
	}
}

func TestBookReservation_InsufficientPoints_PaymentRequired(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 1_000, "evt-1", 90_000)

	rec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-1", TotalPrice: 90_000,
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", rec.Code)
	}
}

func TestBookReservation_UnknownEvent_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "ghost", TotalPrice: 100_000,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBookReservation_MissingName_BadRequest(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 50_000, "evt-1", 200_000)

	rec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		EventID: "evt-1", TotalPrice: 200_000,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCancelReservation_RefundsAndDoubleCancelRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 50_000, "evt-1", 200_000)

	bookRec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-1", TotalPrice: 200_000,
	})
	res := decodeBody[ReservationDTO](t, bookRec)

	cancelRec := f.do(t, http.MethodPost, "/api/reservations/"+res.ID+"/cancel", nil)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", cancelRec.Code, cancelRec.Body.String())
	}
	cancelled := decodeBody[ReservationDTO](t, cancelRec)
	if cancelled.Status != string(booking.StatusCancelled) {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	balRec := f.do(t, http.MethodGet, "/api/accounts/clinic_a/balance", nil)
	balance := decodeBody[BalanceDTO](t, balRec)
	if balance.Points != 50_000 {
		t.Errorf("expected refund to restore 50000, got %d", balance.Points)
	}

	again := f.do(t, http.MethodPost, "/api/reservations/"+res.ID+"/cancel", nil)
	if again.Code != http.StatusBadRequest {
		t.Errorf("double cancel status = %d, want 400", again.Code)
	}
}

// =============================================================================
// CLINIC & ADMIN ENDPOINTS
// =============================================================================

func TestClinicLifecycle_ApplyApproveBook(t *testing.T) {
	// GIVEN: A clinic application
	// WHEN: The admin approves it and the clinic charges points
	// THEN: Bookings against its events succeed

	f := newAPIFixture(t)

	applyRec := f.do(t, http.MethodPost, "/api/clinic-applications", ClinicApplicationRequest{
		HospitalName: "Bright Skin Clinic", Username: "clinic_bright",
	})
	if applyRec.Code != http.StatusCreated {
		t.Fatalf("apply status = %d, body %s", applyRec.Code, applyRec.Body.String())
	}
	acct := decodeBody[AccountDTO](t, applyRec)
	if acct.Status != string(ledger.ClinicPending) {
		t.Errorf("expected pending, got %s", acct.Status)
	}

	// Booking before approval is rejected
	_ = f.catalog.SaveEvent(context.Background(), booking.Event{
		ID: "evt-b", Clinic: "clinic_bright", Title: "Event", Price: 100_000, CreatedAt: time.Now().UTC(),
	})
	earlyRec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-b", TotalPrice: 100_000,
	})
	if earlyRec.Code != http.StatusBadRequest {
		t.Errorf("booking against pending clinic: status = %d, want 400", earlyRec.Code)
	}

	approveRec := f.do(t, http.MethodPost, "/api/admin/clinics/approve", ApproveClinicRequest{
		ClinicRef: "clinic_bright", Decision: "approve",
	})
	if approveRec.Code != http.StatusOK {
		t.Fatalf("approve status = %d", approveRec.Code)
	}

	f.do(t, http.MethodPost, "/api/points/charge", ChargeRequest{AccountRef: "clinic_bright", Amount: 50_000})

	bookRec := f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-b", TotalPrice: 100_000,
	})
	if bookRec.Code != http.StatusCreated {
		t.Errorf("post-approval booking status = %d, body %s", bookRec.Code, bookRec.Body.String())
	}
}

func TestPendingClinics_ListsUndecided(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/clinic-applications", ClinicApplicationRequest{
		HospitalName: "A", Username: "clinic_a",
	})
	f.do(t, http.MethodPost, "/api/clinic-applications", ClinicApplicationRequest{
		HospitalName: "B", Username: "clinic_b",
	})
	f.do(t, http.MethodPost, "/api/admin/clinics/approve", ApproveClinicRequest{
		ClinicRef: "clinic_a", Decision: "approve",
	})

	rec := f.do(t, http.MethodGet, "/api/admin/clinics/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	pending := decodeBody[[]AccountDTO](t, rec)
	if len(pending) != 1 || pending[0].Ref != "clinic_b" {
		t.Errorf("expected only clinic_b pending, got %+v", pending)
	}
}

func TestSetCommissionRate_And_Settlement(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 100_000, "evt-1", 100_000)

	rateRec := f.do(t, http.MethodPut, "/api/admin/clinics/clinic_a/commission", SetCommissionRateRequest{Rate: 20})
	if rateRec.Code != http.StatusOK {
		t.Fatalf("rate status = %d", rateRec.Code)
	}

	f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-1", TotalPrice: 100_000,
	})

	now := time.Now().UTC()
	period := booking.PeriodKey(now.Year(), now.Month())
	setRec := f.do(t, http.MethodGet, "/api/admin/settlements/calculate?month="+period, nil)
	if setRec.Code != http.StatusOK {
		t.Fatalf("settlement status = %d", setRec.Code)
	}

	summaries := decodeBody[map[string]SettlementDTO](t, setRec)
	s, ok := summaries["clinic_a"]
	if !ok {
		t.Fatalf("expected clinic_a in settlement, got %v", summaries)
	}
	if s.TotalCommission != 20_000 {
		t.Errorf("expected 20%% commission 20000, got %d", s.TotalCommission)
	}
}

func TestPlatformFinancials_AggregatesAcrossClinics(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 50_000, "evt-a", 100_000)
	f.seedActiveClinic(t, "clinic_b", 50_000, "evt-b", 200_000)

	f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-a", TotalPrice: 100_000,
	})
	f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Jiho Park", EventID: "evt-b", TotalPrice: 200_000,
	})

	rec := f.do(t, http.MethodGet, "/api/admin/financials", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	out := decodeBody[PlatformFinancialsDTO](t, rec)
	if out.TotalSales != 300_000 {
		t.Errorf("expected total sales 300000, got %d", out.TotalSales)
	}
	if out.TotalCommission != 30_000 {
		t.Errorf("expected total commission 30000, got %d", out.TotalCommission)
	}
	if out.TotalCount != 2 {
		t.Errorf("expected 2 reservations, got %d", out.TotalCount)
	}
	if out.RegisteredClinics != 2 {
		t.Errorf("expected 2 registered clinics, got %d", out.RegisteredClinics)
	}
}

func TestListUsers_ReturnsCustomerAccounts(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 0, "evt-1", 100_000)
	ctx := context.Background()

	if _, err := f.points.CreateAccount(ctx, ledger.Account{
		Ref: "user_minji", Kind: ledger.KindUser, Name: "김민지",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/admin/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	users := decodeBody[[]AccountDTO](t, rec)
	if len(users) != 1 {
		t.Fatalf("expected 1 user account, got %d", len(users))
	}
	if users[0].Ref != "user_minji" {
		t.Errorf("expected user_minji, got %s", users[0].Ref)
	}
}

func TestTogglePromotion_Flips(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 0, "evt-1", 100_000)

	rec := f.do(t, http.MethodPost, "/api/admin/promotions/toggle", TogglePromotionRequest{EventID: "evt-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeBody[map[string]any](t, rec)
	if promoted, _ := out["promoted"].(bool); promoted {
		t.Error("expected promotion toggled off")
	}
}

// =============================================================================
// NOTIFICATION ENDPOINTS
// =============================================================================

func TestNotifications_FeedAndMarkRead(t *testing.T) {
	f := newAPIFixture(t)
	f.seedActiveClinic(t, "clinic_a", 50_000, "evt-1", 200_000)

	f.do(t, http.MethodPost, "/api/reservations", BookingRequestDTO{
		CustomerName: "Minji Kim", EventID: "evt-1", TotalPrice: 200_000,
	})

	rec := f.do(t, http.MethodGet, "/api/notifications/clinic_a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	feed := decodeBody[[]NotificationDTO](t, rec)
	if len(feed) == 0 {
		t.Fatal("expected a booking notification in the feed")
	}

	markRec := f.do(t, http.MethodPost, "/api/notifications/read", MarkReadRequest{ID: feed[0].ID})
	if markRec.Code != http.StatusOK {
		t.Fatalf("mark read status = %d", markRec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/notifications/clinic_a", nil)
	feed = decodeBody[[]NotificationDTO](t, rec)
	if !feed[0].IsRead {
		t.Error("expected notification marked read")
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth_OK(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
