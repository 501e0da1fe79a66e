package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/models"
)

type EmitTicketInput struct {
	RequestID string
	TenantID  string
	ServiceID string
	// Priority overrides the service default when set to a valid class.
	Priority string
	IssuedAt time.Time
}

// EmitResult is what the issuing collaborator needs to print a stub.
type EmitResult struct {
	Ticket models.Ticket
	// Position is the 1-based place in the waiting queue at emission time.
	Position int
	// Replayed is true when RequestID matched a previous emission.
	Replayed bool
}

type CallNextInput struct {
	TenantID     string
	OperatorID   string
	OperatorName string
	CounterID    string
	CounterName  string
	// ServiceIDs restricts selection to services the operator covers.
	// Empty means every service of the tenant.
	ServiceIDs []string
	CalledAt   time.Time
}

type TicketActionInput struct {
	TenantID     string
	TicketID     string
	OperatorID   string
	OperatorName string
	OccurredAt   time.Time
}

// CallTicketInput claims one specific waiting ticket out of queue order.
type CallTicketInput struct {
	TenantID     string
	TicketID     string
	OperatorID   string
	OperatorName string
	CounterID    string
	CounterName  string
	CalledAt     time.Time
}

type TicketStore interface {
	EmitTicket(ctx context.Context, input EmitTicketInput) (EmitResult, error)
	GetTicket(ctx context.Context, tenantID, ticketID string) (models.Ticket, error)
	CallNext(ctx context.Context, input CallNextInput) (models.Ticket, error)
	CallTicket(ctx context.Context, input CallTicketInput) (models.Ticket, error)
	RecallTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	StartService(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	CompleteTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	NoShowTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	CancelTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	ListWaiting(ctx context.Context, tenantID string, serviceIDs []string, limit int) ([]models.Ticket, error)
	ListInService(ctx context.Context, tenantID string, limit int) ([]models.Ticket, error)
	ListHistory(ctx context.Context, tenantID string, limit int) ([]models.Ticket, error)
	Snapshot(ctx context.Context, tenantID string) (models.StateSnapshot, error)
	ResetSequences(ctx context.Context, tenantID string, date time.Time) (int64, error)
	ListOutboxEvents(ctx context.Context, afterID int64, limit int) ([]OutboxEvent, error)
	LatestOutboxEventID(ctx context.Context) (int64, error)
	GetSession(ctx context.Context, token string) (Session, error)
	GetTenantProfile(ctx context.Context, tenantID string) (models.TenantProfile, error)
}

type Session struct {
	Token        string
	OperatorID   string
	OperatorName string
	TenantID     string
	Role         string
	ExpiresAt    time.Time
}

type OutboxEvent struct {
	EventID   int64           `json:"event_id"`
	TenantID  string          `json:"tenant_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	EventTicketCreated   = "ticket.created"
	EventTicketCompleted = "ticket.completed"
)
