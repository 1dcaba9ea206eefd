/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates clinics, events,
	point charges, and reservations that demonstrate specific flows.

AVAILABLE SCENARIOS:

	funded-clinic:    Active clinic with points, promoted events, one booking
	low-balance:      Clinic whose balance cannot cover the next commission
	settlement-month: Two clinics with a month of reservations to settle
	pending-clinics:  Applications awaiting admin approval

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create clinic accounts (and approve where the scenario needs it)
 3. Create promoted events
 4. Charge points through the engine so the ledger stays consistent
 5. Optionally book reservations through the engine

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "funded-clinic"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - booking/engine.go: Book/Charge used to populate data
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/thebb/points-engine/booking"
)

// Resetter clears all stored data. Implemented by the SQLite store and
// used only by the demo scenario loader.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "funded-clinic",
		Name:        "Funded Clinic",
		Description: "Active clinic with charged points, promoted events, and a confirmed booking",
		Category:    "booking",
	},
	{
		ID:          "low-balance",
		Name:        "Low Balance",
		Description: "Clinic whose point balance cannot cover the next booking commission",
		Category:    "booking",
	},
	{
		ID:          "settlement-month",
		Name:        "Settlement Month",
		Description: "Two clinics with a month of reservations ready for settlement",
		Category:    "settlement",
	},
	{
		ID:          "pending-clinics",
		Name:        "Pending Clinics",
		Description: "Clinic applications awaiting admin approval",
		Category:    "admin",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if h.Resetter == nil {
		writeError(w, http.StatusInternalServerError, "Scenario loading is not enabled", nil)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "funded-clinic":
		err = h.loadFundedClinicScenario(ctx)
	case "low-balance":
		err = h.loadLowBalanceScenario(ctx)
	case "settlement-month":
		err = h.loadSettlementMonthScenario(ctx)
	case "pending-clinics":
		err = h.loadPendingClinicsScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// createActiveClinic registers and approves a clinic, then charges points.
// All mutations go through the engine so the ledger and audit trail stay
// consistent with real traffic.
func (h *Handler) createActiveClinic(ctx context.Context, username, name, contact string, points int64) error {
	acct, err := h.Engine.ApplyClinic(ctx, booking.Application{
		HospitalName:   name,
		Representative: name + " 대표",
		Contact:        contact,
		Email:          username + "@example.com",
		Username:       username,
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.Approve(ctx, acct.Ref, booking.DecisionApprove); err != nil {
		return err
	}
	if points > 0 {
		if _, err := h.Engine.Charge(ctx, acct.Ref, points, "card"); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadFundedClinicScenario(ctx context.Context) error {
	// clinic_test: approved, 50,000 points at the default 10% rate
	if err := h.createActiveClinic(ctx, "clinic_test", "서울밝은피부과", "02-1234-5678", 50_000); err != nil {
		return err
	}

	// Two promoted events
	events := []booking.Event{
		{ID: "evt-laser-01", Clinic: "clinic_test", Title: "레이저 토닝 3회", Price: 200_000, Promoted: true, CreatedAt: time.Now().UTC()},
		{ID: "evt-botox-01", Clinic: "clinic_test", Title: "보톡스 이벤트", Price: 90_000, Promoted: true, CreatedAt: time.Now().UTC()},
	}
	for _, ev := range events {
		if err := h.Catalog.SaveEvent(ctx, ev); err != nil {
			return err
		}
	}

	// One confirmed booking: 200,000 at 10% deducts 20,000 points
	_, err := h.Engine.Book(ctx, booking.BookingRequest{
		CustomerName: "김민지",
		Contact:      "010-1111-2222",
		CustomerRef:  "user_minji",
		EventID:      "evt-laser-01",
		TotalPrice:   200_000,
		Options:      []string{"토닝 3회"},
	})
	return err
}

func (h *Handler) loadLowBalanceScenario(ctx context.Context) error {
	// 1,000 points cannot cover the 9,000 commission on the 90,000 event,
	// so the next booking attempt returns 402 and alerts the clinic.
	if err := h.createActiveClinic(ctx, "clinic_low", "한강미소의원", "02-9876-5432", 1_000); err != nil {
		return err
	}

	ev := booking.Event{
		ID:        "evt-filler-01",
		Clinic:    "clinic_low",
		Title:     "필러 프로모션",
		Price:     90_000,
		Promoted:  true,
		CreatedAt: time.Now().UTC(),
	}
	return h.Catalog.SaveEvent(ctx, ev)
}

func (h *Handler) loadSettlementMonthScenario(ctx context.Context) error {
	if err := h.createActiveClinic(ctx, "clinic_gangnam", "강남라인의원", "02-5555-0001", 100_000); err != nil {
		return err
	}
	if err := h.createActiveClinic(ctx, "clinic_busan", "부산해운대의원", "051-555-0002", 80_000); err != nil {
		return err
	}

	events := []booking.Event{
		{ID: "evt-gn-01", Clinic: "clinic_gangnam", Title: "울쎄라 리프팅", Price: 300_000, Promoted: true, CreatedAt: time.Now().UTC()},
		{ID: "evt-bs-01", Clinic: "clinic_busan", Title: "스킨부스터", Price: 150_000, Promoted: true, CreatedAt: time.Now().UTC()},
	}
	for _, ev := range events {
		if err := h.Catalog.SaveEvent(ctx, ev); err != nil {
			return err
		}
	}

	// A month of traffic: three bookings for gangnam, two for busan,
	// one of which gets cancelled so settlement excludes it.
	bookings := []booking.BookingRequest{
		{CustomerName: "이서연", Contact: "010-2000-0001", CustomerRef: "user_seoyeon", EventID: "evt-gn-01", TotalPrice: 300_000},
		{CustomerName: "박지훈", Contact: "010-2000-0002", CustomerRef: "user_jihun", EventID: "evt-gn-01", TotalPrice: 300_000},
		{CustomerName: "최수아", Contact: "010-2000-0003", CustomerRef: "user_sua", EventID: "evt-gn-01", TotalPrice: 300_000},
		{CustomerName: "정다은", Contact: "010-2000-0004", CustomerRef: "user_daeun", EventID: "evt-bs-01", TotalPrice: 150_000},
	}
	for _, req := range bookings {
		if _, err := h.Engine.Book(ctx, req); err != nil {
			return err
		}
	}

	cancelled, err := h.Engine.Book(ctx, booking.BookingRequest{
		CustomerName: "한지우",
		Contact:      "010-2000-0005",
		CustomerRef:  "user_jiwoo",
		EventID:      "evt-bs-01",
		TotalPrice:   150_000,
	})
	if err != nil {
		return err
	}
	_, err = h.Engine.Cancel(ctx, cancelled.ID)
	return err
}

// ResetDatabase clears all stored data. Dev and demo environments only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Resetter == nil {
		writeError(w, http.StatusInternalServerError, "Reset is not enabled", nil)
		return
	}
	if err := h.Resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadPendingClinicsScenario(ctx context.Context) error {
	applications := []booking.Application{
		{HospitalName: "신촌더마의원", Representative: "오세훈", Contact: "02-7777-1111", Email: "sinchon@example.com", Username: "clinic_sinchon"},
		{HospitalName: "판교클리어피부과", Representative: "윤하늘", Contact: "031-777-2222", Email: "pangyo@example.com", Username: "clinic_pangyo"},
	}
	for _, app := range applications {
		if _, err := h.Engine.ApplyClinic(ctx, app); err != nil {
			return err
		}
	}
	return nil
}
