/*
handlers.go - HTTP API handlers for the points & booking engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic. No business rules live
  here.

ENDPOINTS:
  Points:
    POST   /api/points/charge                  Charge (top up) an account
    GET    /api/accounts/{ref}/balance         Verified balance
    GET    /api/accounts/{ref}/transactions    Point history, newest first

  Reservations:
    POST   /api/reservations                   Book a promoted event
    POST   /api/reservations/{id}/cancel       Cancel with commission refund

  Clinics:
    POST   /api/clinic-applications            Apply to join the platform
    GET    /api/clinics/{ref}/financials       Lifetime totals + points
    GET    /api/clinics/{ref}/reservations     Clinic's reservations
    GET    /api/clinics/{ref}/events           Clinic's events

  Admin:
    GET    /api/admin/clinics                  All clinics
    GET    /api/admin/clinics/pending          Awaiting approval
    POST   /api/admin/clinics/approve          Approve or reject
    PUT    /api/admin/clinics/{ref}/commission Change rate
    POST   /api/admin/promotions/toggle        Flip event promoted flag
    GET    /api/admin/settlements/calculate    Monthly settlement
    GET    /api/admin/audit                    Audit trail

  Notifications:
    GET    /api/notifications/{recipient}      Newest first, incl. broadcasts
    POST   /api/notifications/read             Mark read (unknown id ignored)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 402: Insufficient clinic points (expected business rejection)
  - 404: Record not found
  - 500: Internal errors and ledger invariant violations (logged loudly)

  The 402/500 split matters to clients: "insufficient funds, contact the
  clinic" versus "please retry".

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scenarios.go: Demo data loaders
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thebb/points-engine/booking"
	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *booking.Engine
	Points  *ledger.Service
	Outbox  *ledger.Outbox
	Catalog booking.Store
	Log     *zap.Logger
	Metrics *Metrics

	// clears all stored data before loading a demo scenario; optional
	Resetter Resetter

	// currently loaded demo scenario, if any
	currentScenario string
}

// NewHandler wires the handler with its engine dependencies.
func NewHandler(engine *booking.Engine, points *ledger.Service, outbox *ledger.Outbox, catalog booking.Store, log *zap.Logger, metrics *Metrics) *Handler {
	return &Handler{
		Engine:  engine,
		Points:  points,
		Outbox:  outbox,
		Catalog: catalog,
		Log:     log,
		Metrics: metrics,
	}
}

// =============================================================================
// POINTS
// =============================================================================

// ChargePoints credits purchased points onto an account (simulated PG).
func (h *Handler) ChargePoints(w http.ResponseWriter, r *http.Request) {
	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AccountRef == "" {
		writeError(w, http.StatusBadRequest, "account_ref is required", nil)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", nil)
		return
	}

	balance, err := h.Engine.Charge(r.Context(), ledger.AccountRef(req.AccountRef), req.Amount, req.Method)
	if err != nil {
		h.writeDomainError(w, err, "Failed to charge points")
		return
	}

	h.Metrics.PointsCharged.Add(float64(req.Amount))
	writeJSON(w, http.StatusOK, BalanceDTO{Account: req.AccountRef, Points: balance})
}

// GetBalance returns the verified balance of an account.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ref := ledger.AccountRef(chi.URLParam(r, "ref"))

	balance, err := h.Points.BalanceOf(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Account: string(ref), Points: balance})
}

// GetTransactions returns an account's point history, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ref := ledger.AccountRef(chi.URLParam(r, "ref"))

	txs, err := h.Points.History(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get transactions")
		return
	}

	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESERVATIONS
// =============================================================================

// BookReservation runs the booking saga: commission debit, then the
// reservation write, compensating on partial failure.
func (h *Handler) BookReservation(w http.ResponseWriter, r *http.Request) {
	var req BookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Engine.Book(r.Context(), booking.BookingRequest{
		CustomerName: req.CustomerName,
		Contact:      req.Contact,
		CustomerRef:  ledger.AccountRef(req.CustomerRef),
		EventID:      booking.EventID(req.EventID),
		TotalPrice:   req.TotalPrice,
		Options:      req.Options,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientPoints) {
			h.Metrics.BookingsRejected.WithLabelValues("insufficient_points").Inc()
			writeError(w, http.StatusPaymentRequired,
				"Booking suspended: the clinic's point balance is insufficient", err)
			return
		}
		if booking.IsNotFound(err) {
			h.Metrics.BookingsRejected.WithLabelValues("not_found").Inc()
		}
		h.writeDomainError(w, err, "Failed to book reservation")
		return
	}

	h.Metrics.BookingsConfirmed.Inc()
	h.Metrics.CommissionCollected.Add(float64(res.Commission))
	writeJSON(w, http.StatusCreated, toReservationDTO(*res))
}

// CancelReservation cancels a confirmed reservation and refunds the
// commission.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.Engine.Cancel(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err, "Failed to cancel reservation")
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(*res))
}

// =============================================================================
// CLINICS
// =============================================================================

// ApplyClinic registers a pending clinic account.
func (h *Handler) ApplyClinic(w http.ResponseWriter, r *http.Request) {
	var req ClinicApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	acct, err := h.Engine.ApplyClinic(r.Context(), booking.Application{
		HospitalName:   req.HospitalName,
		Representative: req.Representative,
		Contact:        req.Contact,
		Email:          req.Email,
		Username:       req.Username,
	})
	if err != nil {
		h.writeDomainError(w, err, "Failed to register clinic application")
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*acct))
}

// ClinicFinancials returns lifetime totals plus the verified balance.
func (h *Handler) ClinicFinancials(w http.ResponseWriter, r *http.Request) {
	ref := ledger.AccountRef(chi.URLParam(r, "ref"))

	f, err := h.Engine.Financials(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get financials")
		return
	}
	writeJSON(w, http.StatusOK, FinancialsDTO{
		Clinic:          string(f.Clinic),
		TotalSales:      f.TotalSales,
		TotalCommission: f.TotalCommission,
		TotalCount:      f.TotalCount,
		CurrentPoints:   f.CurrentPoints,
	})
}

// ClinicReservations lists a clinic's reservations, newest first.
func (h *Handler) ClinicReservations(w http.ResponseWriter, r *http.Request) {
	ref := ledger.AccountRef(chi.URLParam(r, "ref"))

	reservations, err := h.Catalog.ReservationsByClinic(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reservations", err)
		return
	}
	dtos := make([]ReservationDTO, 0, len(reservations))
	for _, res := range reservations {
		dtos = append(dtos, toReservationDTO(res))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClinicEvents lists a clinic's events.
func (h *Handler) ClinicEvents(w http.ResponseWriter, r *http.Request) {
	ref := ledger.AccountRef(chi.URLParam(r, "ref"))

	events, err := h.Catalog.EventsByClinic(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, toEventDTO(ev))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EVENTS
// =============================================================================

// ListEvents returns all events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Catalog.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, toEventDTO(ev))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEvent returns one event.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.Catalog.GetEvent(r.Context(), booking.EventID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get event", err)
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, "Event not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*ev))
}

// =============================================================================
// ADMIN
// =============================================================================

// ListClinics returns all clinic accounts.
func (h *Handler) ListClinics(w http.ResponseWriter, r *http.Request) {
	clinics, err := h.Points.ListClinics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clinics", err)
		return
	}
	dtos := make([]AccountDTO, 0, len(clinics))
	for _, c := range clinics {
		dtos = append(dtos, toAccountDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListUsers returns all customer accounts.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Points.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	dtos := make([]AccountDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toAccountDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PlatformFinancials returns sales and commission totals across all clinics.
func (h *Handler) PlatformFinancials(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.Platform(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get platform financials", err)
		return
	}
	writeJSON(w, http.StatusOK, PlatformFinancialsDTO{
		TotalSales:        p.TotalSales,
		TotalCommission:   p.TotalCommission,
		TotalCount:        p.TotalCount,
		RegisteredClinics: p.RegisteredClinics,
	})
}

// PendingClinics returns clinics awaiting an approval decision.
func (h *Handler) PendingClinics(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Engine.PendingClinics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending clinics", err)
		return
	}
	dtos := make([]AccountDTO, 0, len(pending))
	for _, c := range pending {
		dtos = append(dtos, toAccountDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveClinic applies an admin approve/reject decision.
func (h *Handler) ApproveClinic(w http.ResponseWriter, r *http.Request) {
	var req ApproveClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status, err := h.Engine.Approve(r.Context(), ledger.AccountRef(req.ClinicRef), booking.Decision(req.Decision))
	if err != nil {
		h.writeDomainError(w, err, "Failed to apply decision")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clinic": req.ClinicRef, "status": string(status)})
}

// SetCommissionRate changes a clinic's rate for future bookings.
func (h *Handler) SetCommissionRate(w http.ResponseWriter, r *http.Request) {
	ref := ledger.AccountRef(chi.URLParam(r, "ref"))

	var req SetCommissionRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.SetCommissionRate(r.Context(), ref, req.Rate); err != nil {
		h.writeDomainError(w, err, "Failed to set commission rate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clinic": string(ref), "commission_rate": req.Rate})
}

// TogglePromotion flips an event's promoted flag.
func (h *Handler) TogglePromotion(w http.ResponseWriter, r *http.Request) {
	var req TogglePromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	promoted, err := h.Engine.TogglePromotion(r.Context(), booking.EventID(req.EventID))
	if err != nil {
		h.writeDomainError(w, err, "Failed to toggle promotion")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": req.EventID, "promoted": promoted})
}

// CalculateSettlement returns per-clinic monthly settlement figures.
// ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) CalculateSettlement(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("month")

	summaries, err := h.Engine.Settle(r.Context(), period)
	if err != nil {
		h.writeDomainError(w, err, "Failed to calculate settlement")
		return
	}

	out := make(map[string]SettlementDTO, len(summaries))
	for clinic, s := range summaries {
		out[string(clinic)] = SettlementDTO{
			Clinic:           string(s.Clinic),
			Period:           s.Period,
			TotalSales:       s.TotalSales,
			TotalCommission:  s.TotalCommission,
			ReservationCount: s.ReservationCount,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// AuditTrail returns recent audit entries, newest first.
func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Outbox.AuditTrail(r.Context(), 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audit trail", err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// ListNotifications returns a recipient's notifications plus broadcasts.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	recipient := ledger.AccountRef(chi.URLParam(r, "recipient"))

	notis, err := h.Outbox.Notifications(r.Context(), recipient)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	dtos := make([]NotificationDTO, 0, len(notis))
	for _, n := range notis {
		dtos = append(dtos, toNotificationDTO(n))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkNotificationRead flips the read flag. Unknown ids are acknowledged
// without error, matching the platform's existing behavior.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Outbox.MarkRead(r.Context(), req.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError maps engine errors onto HTTP statuses. Invariant
// violations are system faults: logged loudly, surfaced as 500, never
// silently corrected.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, msg string) {
	switch {
	case ledger.IsInvariantViolation(err):
		h.Log.Error("ledger invariant violation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal ledger inconsistency", err)
	case errors.Is(err, ledger.ErrInsufficientPoints):
		writeError(w, http.StatusPaymentRequired, msg, err)
	case booking.IsNotFound(err) || ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	case booking.IsClientError(err) || ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, msg, err)
	default:
		h.Log.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
