/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers validate shape (required fields, parseable numbers) before
  calling into the engine; business rules live in the engine itself.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/thebb/points-engine/booking"
	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChargeRequest tops up an account through the simulated payment gateway.
type ChargeRequest struct {
	AccountRef string `json:"account_ref"`
	UserType   string `json:"user_type"` // "user" or "clinic" (informational)
	Amount     int64  `json:"amount"`
	Method     string `json:"method"` // "card", "bank"
}

// BookingRequestDTO is a customer's application for a promoted event.
type BookingRequestDTO struct {
	CustomerName string   `json:"customer_name"`
	Contact      string   `json:"contact"`
	CustomerRef  string   `json:"customer_ref,omitempty"`
	EventID      string   `json:"event_id"`
	TotalPrice   int64    `json:"total_price"`
	Options      []string `json:"selected_options,omitempty"`
}

// ApproveClinicRequest carries an admin approval decision.
type ApproveClinicRequest struct {
	ClinicRef string `json:"clinic_ref"`
	Decision  string `json:"decision"` // "approve" or "reject"
}

// TogglePromotionRequest flips an event's promoted flag.
type TogglePromotionRequest struct {
	EventID string `json:"event_id"`
}

// ClinicApplicationRequest is a clinic's request to join the platform.
type ClinicApplicationRequest struct {
	HospitalName   string `json:"hospital_name"`
	Representative string `json:"representative"`
	Contact        string `json:"contact"`
	Email          string `json:"email"`
	Username       string `json:"username,omitempty"`
}

// MarkReadRequest marks a notification as read.
type MarkReadRequest struct {
	ID string `json:"id"`
}

// SetCommissionRateRequest changes a clinic's rate for future bookings.
type SetCommissionRateRequest struct {
	Rate int `json:"rate"`
}

// LoadScenarioRequest selects a demo scenario to seed.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type AccountDTO struct {
	Ref            string `json:"ref"`
	Kind           string `json:"kind"`
	Name           string `json:"name"`
	Contact        string `json:"contact,omitempty"`
	Email          string `json:"email,omitempty"`
	Points         int64  `json:"points"`
	CommissionRate int    `json:"commission_rate,omitempty"`
	Status         string `json:"status,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type TransactionDTO struct {
	ID          string `json:"id"`
	Account     string `json:"account"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type BalanceDTO struct {
	Account string `json:"account"`
	Points  int64  `json:"points"`
}

type ReservationDTO struct {
	ID            string   `json:"id"`
	CustomerName  string   `json:"customer_name"`
	Contact       string   `json:"contact,omitempty"`
	EventID       string   `json:"event_id"`
	Clinic        string   `json:"clinic"`
	Options       []string `json:"selected_options,omitempty"`
	TotalPrice    int64    `json:"total_price"`
	Commission    int64    `json:"commission"`
	TransactionID string   `json:"transaction_id"`
	Status        string   `json:"status"`
	SubmittedAt   string   `json:"submitted_at"`
}

type EventDTO struct {
	ID        string `json:"id"`
	Clinic    string `json:"clinic"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Promoted  bool   `json:"promoted"`
	CreatedAt string `json:"created_at"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

type AuditEntryDTO struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Target    string `json:"target"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

type SettlementDTO struct {
	Clinic           string `json:"clinic"`
	Period           string `json:"period"`
	TotalSales       int64  `json:"total_sales"`
	TotalCommission  int64  `json:"total_commission"`
	ReservationCount int    `json:"reservation_count"`
}

type FinancialsDTO struct {
	Clinic          string `json:"clinic"`
	TotalSales      int64  `json:"total_sales"`
	TotalCommission int64  `json:"total_commission"`
	TotalCount      int    `json:"total_count"`
	CurrentPoints   int64  `json:"current_points"`
}

type PlatformFinancialsDTO struct {
	TotalSales        int64 `json:"total_sales"`
	TotalCommission   int64 `json:"total_commission"`
	TotalCount        int   `json:"total_count"`
	RegisteredClinics int   `json:"registered_clinics"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		Ref:            string(a.Ref),
		Kind:           string(a.Kind),
		Name:           a.Name,
		Contact:        a.Contact,
		Email:          a.Email,
		Points:         a.Points,
		CommissionRate: a.CommissionRate,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(tx ledger.PointTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		Account:     string(tx.Account),
		Kind:        string(tx.Kind),
		Amount:      tx.Amount,
		Description: tx.Description,
		Method:      tx.Method,
		ReferenceID: tx.ReferenceID,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}

func toReservationDTO(r booking.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:            r.ID,
		CustomerName:  r.CustomerName,
		Contact:       r.Contact,
		EventID:       string(r.EventID),
		Clinic:        string(r.Clinic),
		Options:       r.Options,
		TotalPrice:    r.TotalPrice,
		Commission:    r.Commission,
		TransactionID: r.TransactionID,
		Status:        string(r.Status),
		SubmittedAt:   r.SubmittedAt.Format(time.RFC3339),
	}
}

func toEventDTO(ev booking.Event) EventDTO {
	return EventDTO{
		ID:        string(ev.ID),
		Clinic:    string(ev.Clinic),
		Title:     ev.Title,
		Price:     ev.Price,
		Promoted:  ev.Promoted,
		CreatedAt: ev.CreatedAt.Format(time.RFC3339),
	}
}

func toAuditEntryDTO(e ledger.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Actor:     e.Actor,
		Action:    e.Action,
		Target:    e.Target,
		Details:   e.Details,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toNotificationDTO(n ledger.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Recipient: string(n.Recipient),
		Channel:   string(n.Channel),
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}
